package handlers

import (
	"encoding/json"
	"linkup/internal/core/contracts"
	"linkup/internal/core/domain"
	"linkup/internal/core/services"
	"linkup/internal/platform/ratelimiter"
	"linkup/pkg/logging"
	"linkup/pkg/middleware"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"
)

// Contact is a sidebar entry.
type Contact struct {
	services.PublicUser
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type MessageHandler struct {
	log      *slog.Logger
	users    *services.UserService
	messages *services.MessageService
	registry contracts.Registry
	presence contracts.PresenceStore
	limiter  *ratelimiter.MapLimiter
}

// NewMessageHandler builds the handler. presence and limiter may be nil.
func NewMessageHandler(
	log *slog.Logger,
	users *services.UserService,
	messages *services.MessageService,
	registry contracts.Registry,
	presence contracts.PresenceStore,
	limiter *ratelimiter.MapLimiter,
) *MessageHandler {
	return &MessageHandler{
		log:      log,
		users:    users,
		messages: messages,
		registry: registry,
		presence: presence,
		limiter:  limiter,
	}
}

func (h *MessageHandler) Users(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), h.log)
	userID, _ := middleware.UserID(r.Context())
	users, err := h.users.Contacts(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	online := lo.Keyify(h.registry.OnlineUsers())
	var lastSeen map[string]time.Time
	if h.presence != nil && len(users) > 0 {
		ids := lo.Map(users, func(u domain.User, _ int) string { return u.ID })
		if lastSeen, err = h.presence.LastSeen(r.Context(), ids); err != nil {
			log.WarnContext(r.Context(), "message handler - users - last seen unavailable", logging.Err(err))
		}
	}
	contacts := lo.Map(users, func(u domain.User, _ int) Contact {
		_, isOnline := online[u.ID]
		c := Contact{PublicUser: services.NewPublicUser(u), Online: isOnline}
		if at, ok := lastSeen[u.ID]; ok {
			c.LastSeen = &at
		}
		return c
	})
	writeJSON(w, http.StatusOK, contacts)
}

func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	msgs, err := h.messages.History(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(msgs, func(m domain.Message, _ int) domain.MessageRecord {
		return domain.NewMessageRecord(m)
	}))
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), h.log)
	userID, _ := middleware.UserID(r.Context())
	if !h.limiter.Allow(userID, time.Now()) {
		log.InfoContext(r.Context(), "message handler - send - rate limited", logging.User(userID))
		writeDomainError(w, domain.ErrRateLimited)
		return
	}
	var req services.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	msg, err := h.messages.Send(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.NewMessageRecord(msg))
}
