package handlers

import (
	"encoding/json"
	"errors"
	"linkup/internal/config"
	"linkup/internal/core/domain"
	"linkup/internal/core/services"
	"linkup/pkg/logging"
	"linkup/pkg/middleware"
	"log/slog"
	"net/http"
)

type AuthHandler struct {
	log      *slog.Logger
	userSvc  *services.UserService
	tokenSvc *services.TokenService
	cfg      *config.AuthConfig
}

func NewAuthHandler(log *slog.Logger, u *services.UserService, t *services.TokenService, cfg *config.AuthConfig) *AuthHandler {
	return &AuthHandler{log: log, userSvc: u, tokenSvc: t, cfg: cfg}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), h.log)
	var req services.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := h.userSvc.Signup(r.Context(), req)
	if err != nil {
		log.WarnContext(r.Context(), "auth handler - signup failed", logging.Err(err))
		writeDomainError(w, err)
		return
	}
	if !h.issueCookie(w, r, user.ID) {
		return
	}
	log.InfoContext(r.Context(), "auth handler - signup success", logging.User(user.ID))
	writeJSON(w, http.StatusCreated, services.NewPublicUser(*user))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), h.log)
	var req services.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := h.userSvc.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			err = domain.ErrInvalidCredentials
		}
		log.InfoContext(r.Context(), "auth handler - login rejected", logging.Err(err))
		writeDomainError(w, err)
		return
	}
	if !h.issueCookie(w, r, user.ID) {
		return
	}
	log.InfoContext(r.Context(), "auth handler - login success", logging.User(user.ID))
	writeJSON(w, http.StatusOK, services.NewPublicUser(*user))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookie("", -1))
	writeJSON(w, http.StatusOK, errorBody{Message: "Logged out successfully"})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), h.log)
	userID, _ := middleware.UserID(r.Context())
	var req services.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := h.userSvc.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		log.WarnContext(r.Context(), "auth handler - update profile failed", logging.User(userID), logging.Err(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, services.NewPublicUser(*user))
}

func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	user, err := h.userSvc.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, services.NewPublicUser(*user))
}

func (h *AuthHandler) issueCookie(w http.ResponseWriter, r *http.Request, userID string) bool {
	token, err := h.tokenSvc.GenerateToken(userID)
	if err != nil {
		logging.FromContext(r.Context(), h.log).ErrorContext(r.Context(), "auth handler - generate token failed", logging.User(userID), logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return false
	}
	http.SetCookie(w, h.cookie(token, int(h.tokenSvc.TTL().Seconds())))
	return true
}

func (h *AuthHandler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	}
}
