package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/waabox/fyerslogin/internal/auth"
	"github.com/waabox/fyerslogin/internal/domain"
)

// TokenStore reads and writes the saved access token.
type TokenStore interface {
	Load() (string, error)
	Persist(token *domain.Token) error
}

// Options configures the token server.
type Options struct {
	Addr string
	// AllowedOrigins may read responses cross-origin. Empty sends no CORS headers.
	AllowedOrigins []string
	// DevMode registers the create-test-token endpoint.
	DevMode bool
}

// Server exposes the saved access token to local dashboards over HTTP.
type Server struct {
	store  TokenStore
	opts   Options
	logger *zap.Logger
	now    func() time.Time
	http   *http.Server
}

// New creates a Server. It does not start listening.
func New(store TokenStore, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{store: store, opts: opts, logger: logger, now: time.Now}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes constructs the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(CORSMiddleware(s.opts.AllowedOrigins))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/token-server", func(r chi.Router) {
		r.Get("/check-token", s.handleCheckToken)
		r.Get("/token-info", s.handleTokenInfo)
		if s.opts.DevMode {
			r.Post("/create-test-token", s.handleCreateTestToken)
		}
	})
	return r
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("token server listening", zap.String("addr", s.opts.Addr), zap.Bool("dev_mode", s.opts.DevMode))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type checkTokenResponse struct {
	Token *string `json:"token"`
}

type tokenInfoResponse struct {
	JWT       bool       `json:"jwt"`
	Subject   string     `json:"subject,omitempty"`
	Issuer    string     `json:"issuer,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCheckToken(w http.ResponseWriter, r *http.Request) {
	value, err := s.store.Load()
	if errors.Is(err, domain.ErrNoToken) {
		writeJSON(w, http.StatusOK, checkTokenResponse{})
		return
	}
	if err != nil {
		s.logger.Error("checking token", zap.String("request_id", RequestIDFromContext(r.Context())), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "Failed to check token: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, checkTokenResponse{Token: &value})
}

func (s *Server) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	value, err := s.store.Load()
	if errors.Is(err, domain.ErrNoToken) {
		writeJSON(w, http.StatusNotFound, statusResponse{Message: "No saved access token"})
		return
	}
	if err != nil {
		s.logger.Error("reading token", zap.String("request_id", RequestIDFromContext(r.Context())), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "Failed to read token: " + err.Error()})
		return
	}

	info, err := auth.Inspect(value)
	if err != nil {
		writeJSON(w, http.StatusOK, tokenInfoResponse{JWT: false})
		return
	}
	resp := tokenInfoResponse{
		JWT:     true,
		Subject: info.Subject,
		Issuer:  info.Issuer,
		Expired: info.Expired(s.now()),
	}
	if !info.IssuedAt.IsZero() {
		resp.IssuedAt = &info.IssuedAt
	}
	if !info.ExpiresAt.IsZero() {
		resp.ExpiresAt = &info.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTestToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil || body.Token == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "Token is required"})
		return
	}
	token := &domain.Token{Value: body.Token, ObtainedAt: s.now(), Mode: domain.ModeSimulated}
	err := s.store.Persist(token)
	if errors.Is(err, domain.ErrMalformedToken) {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "Token must not have surrounding whitespace"})
		return
	}
	if err != nil {
		s.logger.Error("creating test token", zap.String("request_id", RequestIDFromContext(r.Context())), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "Failed to create test token: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "Test token created successfully"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
