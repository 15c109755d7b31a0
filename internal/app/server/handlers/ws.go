package handlers

import (
	"context"
	"fmt"
	"linkup/internal/app/server/ws"
	"linkup/internal/config"
	"linkup/internal/core/contracts"
	"linkup/internal/core/domain"
	"linkup/internal/core/services"
	"linkup/internal/platform/metrics"
	"linkup/pkg/logging"
	"linkup/pkg/middleware"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	handshakeAccepted     = "accepted"
	handshakeNoToken      = "no_token"
	handshakeInvalidToken = "invalid_token"
	handshakeMismatch     = "identity_mismatch"
	handshakeUpgradeError = "upgrade_failed"
	handshakeRefused      = "refused"
)

type WSHandler struct {
	log        *slog.Logger
	auth       contracts.Authenticator
	manager    *services.ConnectionManager
	metrics    *metrics.Metrics
	cfg        *config.RealtimeConfig
	cookieName string
	upgrader   websocket.Upgrader
}

func NewWSHandler(
	log *slog.Logger,
	auth contracts.Authenticator,
	manager *services.ConnectionManager,
	m *metrics.Metrics,
	cfg *config.RealtimeConfig,
	cookieName string,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		log:        log,
		auth:       auth,
		manager:    manager,
		metrics:    m,
		cfg:        cfg,
		cookieName: cookieName,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// checkOrigin accepts requests without an Origin header (non-browser clients)
// and browsers from the configured origins; "*" allows any.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || lo.Contains(allowed, "*") || lo.Contains(allowed, origin)
	}
}

// Handler authenticates the handshake before upgrading: a missing or invalid
// token, or a userId that is not the token's subject, gets a 401 and leaves
// no state behind.
func (h *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), h.log)
	span := trace.SpanFromContext(r.Context())

	token := middleware.TokenFromRequest(r, h.cookieName)
	if token == "" {
		h.reject(w, r, handshakeNoToken, "Unauthorized - No Token Provided", nil)
		return
	}
	userID, err := h.auth.ValidateToken(token)
	if err != nil {
		h.reject(w, r, handshakeInvalidToken, "Unauthorized - Invalid Token", err)
		return
	}
	if err := matchClaim(r.URL.Query().Get("userId"), userID); err != nil {
		h.reject(w, r, handshakeMismatch, "Unauthorized - Identity Mismatch", err)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already wrote the HTTP error.
		h.metrics.IncHandshake(handshakeUpgradeError)
		log.WarnContext(r.Context(), "ws handler - upgrade failed", logging.User(userID), logging.Err(err))
		return
	}
	ctx := context.WithoutCancel(r.Context())
	socket := ws.NewWebSocket(ctx, log, conn, h.cfg)
	client := ws.NewClient(ctx, socket, userID)

	session, err := h.manager.Connect(ctx, client)
	if err != nil {
		h.metrics.IncHandshake(handshakeRefused)
		log.WarnContext(ctx, "ws handler - connect refused", logging.User(userID), logging.Err(err))
		return
	}
	h.metrics.IncHandshake(handshakeAccepted)
	defer session.Close(ctx)
	log.InfoContext(ctx, "ws handler - connection established", logging.User(userID), logging.Conn(client.ID()))

	conn.SetCloseHandler(func(code int, text string) error {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(time.Second))
		session.Close(ctx)
		return nil
	})
	// Inbound data frames carry nothing the server acts on.
	socket.ReadLoop(func(data []byte) {
		log.DebugContext(ctx, "ws handler - inbound frame ignored", logging.Conn(client.ID()), "size", len(data))
	})
}

// matchClaim checks the optional userId claim against the token subject.
func matchClaim(claimed, subject string) error {
	if claimed != "" && claimed != subject {
		return fmt.Errorf("%w: claimed %q, token %q", domain.ErrIdentityMismatch, claimed, subject)
	}
	return nil
}

func (h *WSHandler) reject(w http.ResponseWriter, r *http.Request, result, msg string, err error) {
	h.metrics.IncHandshake(result)
	attrs := []any{"reason", result}
	if err != nil {
		attrs = append(attrs, logging.Err(err))
	}
	logging.FromContext(r.Context(), h.log).InfoContext(r.Context(), "ws handler - handshake rejected", attrs...)
	writeError(w, http.StatusUnauthorized, msg)
}
