package server

import (
	"context"
	"errors"
	"linkup/internal/app/registry"
	"linkup/internal/app/server/handlers"
	"linkup/internal/config"
	"linkup/internal/core/contracts"
	"linkup/internal/core/services"
	"linkup/internal/platform/metrics"
	"linkup/internal/platform/ratelimiter"
	"linkup/pkg/logging"
	"linkup/pkg/middleware"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Users    *services.UserService
	Tokens   *services.TokenService
	Messages *services.MessageService
	Manager  *services.ConnectionManager
	Registry *registry.Registry
	Presence contracts.PresenceStore // optional
	Metrics  *metrics.Metrics
	Limiter  *ratelimiter.MapLimiter
}

type Server struct {
	log      *slog.Logger
	cfg      *config.Config
	mux      *http.ServeMux
	http     *http.Server
	registry *registry.Registry
	deps     Deps
}

func NewServer(log *slog.Logger, cfg *config.Config, deps Deps) *Server {
	s := &Server{
		log:      log,
		cfg:      cfg,
		mux:      http.NewServeMux(),
		registry: deps.Registry,
		deps:     deps,
	}
	s.routes()
	s.http = &http.Server{
		Addr:              cfg.Service.Add,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	d := s.deps
	auth := middleware.AuthMiddleware(d.Tokens, s.cfg.Auth.CookieName)
	authH := handlers.NewAuthHandler(s.log, d.Users, d.Tokens, s.cfg.Auth)
	msgH := handlers.NewMessageHandler(s.log, d.Users, d.Messages, d.Registry, d.Presence, d.Limiter)
	wsH := handlers.NewWSHandler(s.log, d.Tokens, d.Manager, d.Metrics, s.cfg.Realtime, s.cfg.Auth.CookieName, s.cfg.Service.AllowedOrigins)

	// Public
	s.mux.HandleFunc("POST /api/auth/signup", authH.Signup)
	s.mux.HandleFunc("POST /api/auth/login", authH.Login)
	s.mux.HandleFunc("POST /api/auth/logout", authH.Logout)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.mux.Handle("GET /metrics", d.Metrics.Handler())

	// Protected
	s.mux.Handle("PUT /api/auth/update-profile", auth(http.HandlerFunc(authH.UpdateProfile)))
	s.mux.Handle("GET /api/auth/check", auth(http.HandlerFunc(authH.Check)))
	s.mux.Handle("GET /api/messages/users", auth(http.HandlerFunc(msgH.Users)))
	s.mux.Handle("GET /api/messages/{id}", auth(http.HandlerFunc(msgH.History)))
	s.mux.Handle("POST /api/messages/send/{id}", auth(http.HandlerFunc(msgH.Send)))

	// The handshake authenticates itself so it can reject before the upgrade.
	s.mux.HandleFunc("GET /ws", wsH.Handler)
}

// Handler is the mux wrapped in CORS, tracing and request logging.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.Service.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	})
	var h http.Handler = s.mux
	h = middleware.RequestLogger(s.log)(h)
	h = middleware.TracerMiddleware(s.cfg.Service.Name)(h)
	return c.Handler(h)
}

// Start blocks serving until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("server - start - listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown refuses new connections, closes every live one, then drains
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	live := s.registry.Close()
	for _, c := range live {
		c.Close()
	}
	s.log.InfoContext(ctx, "server - shutdown - closed live connections", "connections", len(live))
	if err := s.http.Shutdown(ctx); err != nil {
		s.log.ErrorContext(ctx, "server - shutdown - drain failed", logging.Err(err))
		return err
	}
	return nil
}
