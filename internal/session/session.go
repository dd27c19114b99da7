package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/waabox/fyerslogin/internal/domain"
)

// DefaultExchangeTimeout bounds a single token exchange.
const DefaultExchangeTimeout = 30 * time.Second

var (
	// ErrNoAuthURL is returned by SubmitAuthCode when no authorization URL has been
	// issued for the current flow.
	ErrNoAuthURL = errors.New("no authorization URL issued: request one before submitting a code")
	// ErrExchangeInFlight is returned when an action is attempted while an exchange is running.
	ErrExchangeInFlight = errors.New("a token exchange is already in progress")
)

// TokenStore persists an obtained token.
type TokenStore interface {
	Persist(token *domain.Token) error
}

// Snapshot is a point-in-time copy of the session for presentation.
type Snapshot struct {
	State   State
	Mode    domain.Mode
	AuthURL string
	Token   *domain.Token
	Err     error
}

// Result carries the outcome of an asynchronous SubmitAuthCode.
type Result struct {
	Token domain.Token
	Err   error
}

// LoginSession drives one authorization-code flow at a time:
// Idle -> AuthURLIssued -> Exchanging -> Authenticated, with Errored reachable
// from AuthURLIssued and Exchanging. It is safe for concurrent use; at most one
// exchange runs at a time.
type LoginSession struct {
	mu      sync.Mutex
	client  domain.TokenExchangeClient
	cfg     domain.CredentialConfig
	state   State
	authURL string
	token   *domain.Token
	lastErr error
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a LoginSession.
type Option func(*LoginSession)

// WithExchangeTimeout overrides DefaultExchangeTimeout. Non-positive values are ignored.
func WithExchangeTimeout(d time.Duration) Option {
	return func(s *LoginSession) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *LoginSession) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a session in StateIdle bound to client for its whole lifetime.
func New(client domain.TokenExchangeClient, cfg domain.CredentialConfig, opts ...Option) *LoginSession {
	s := &LoginSession{
		client:  client,
		cfg:     cfg,
		state:   StateIdle,
		timeout: DefaultExchangeTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetConfig replaces the credentials wholesale. It is rejected while an exchange is running.
// Changed credentials end the current flow: the issued URL is dropped, an AuthURLIssued
// session returns to Idle, and a new URL must be requested before submitting a code.
func (s *LoginSession) SetConfig(cfg domain.CredentialConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateExchanging {
		return ErrExchangeInFlight
	}
	if cfg == s.cfg {
		return nil
	}
	s.cfg = cfg
	s.authURL = ""
	if s.state == StateAuthURLIssued {
		s.transition(StateIdle)
	}
	return nil
}

// Config returns the current credentials.
func (s *LoginSession) Config() domain.CredentialConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// RequestAuthURL validates the credentials and builds the authorization URL.
// On success the session moves to AuthURLIssued; on a *domain.ValidationError it
// moves to Errored and no URL is kept. A previously obtained token stays readable.
func (s *LoginSession) RequestAuthURL() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateExchanging {
		return "", ErrExchangeInFlight
	}

	u, err := s.client.BuildAuthURL(s.cfg)
	if err != nil {
		s.authURL = ""
		s.fail(err)
		return "", err
	}
	s.authURL = u
	s.lastErr = nil
	s.transition(StateAuthURLIssued)
	return u, nil
}

// SubmitAuthCode exchanges code for a token, blocking until the exchange finishes
// or the exchange timeout expires. It is rejected with ErrNoAuthURL unless a URL has
// been issued in the current flow, and with ErrExchangeInFlight during another exchange;
// neither rejection changes the state.
func (s *LoginSession) SubmitAuthCode(ctx context.Context, code string) (domain.Token, error) {
	s.mu.Lock()
	switch {
	case s.state == StateExchanging:
		s.mu.Unlock()
		return domain.Token{}, ErrExchangeInFlight
	case s.state == StateIdle, s.state == StateAuthenticated, s.authURL == "":
		s.mu.Unlock()
		return domain.Token{}, ErrNoAuthURL
	}
	if err := s.cfg.ValidateForExchange(code); err != nil {
		s.fail(err)
		s.mu.Unlock()
		return domain.Token{}, err
	}
	cfg, client := s.cfg, s.client
	s.transition(StateExchanging)
	s.mu.Unlock()

	exCtx, cancel := context.WithTimeout(ctx, s.timeout)
	token, err := client.ExchangeCode(exCtx, cfg, code)
	cancel()
	if err != nil {
		var exErr *domain.ExchangeError
		if !errors.As(err, &exErr) {
			err = domain.NetworkError("%v", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fail(err)
		return domain.Token{}, err
	}
	s.token = &token
	s.lastErr = nil
	s.transition(StateAuthenticated)
	return token, nil
}

// SubmitAuthCodeAsync runs SubmitAuthCode on its own goroutine and delivers the
// outcome on the returned channel, which receives exactly one Result.
func (s *LoginSession) SubmitAuthCodeAsync(ctx context.Context, code string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		token, err := s.SubmitAuthCode(ctx, code)
		ch <- Result{Token: token, Err: err}
	}()
	return ch
}

// Persist hands the current token to store. With no token it fails with
// domain.ErrNothingToPersist. Persisting never changes the flow state.
func (s *LoginSession) Persist(store TokenStore) error {
	s.mu.Lock()
	var token *domain.Token
	if s.token != nil {
		t := *s.token
		token = &t
	}
	s.mu.Unlock()

	if token == nil {
		return &domain.StoreError{Op: "save", Cause: domain.ErrNothingToPersist}
	}
	if err := store.Persist(token); err != nil {
		s.logger.Warn("persisting token failed", zap.Error(err))
		return err
	}
	s.logger.Info("token persisted", zap.String("mode", string(token.Mode)))
	return nil
}

// Snapshot returns a copy of the session's current state.
func (s *LoginSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:   s.state,
		Mode:    s.client.Mode(),
		AuthURL: s.authURL,
		Err:     s.lastErr,
	}
	if s.token != nil {
		t := *s.token
		snap.Token = &t
	}
	return snap
}

// fail and transition must be called with s.mu held.
func (s *LoginSession) fail(err error) {
	s.lastErr = err
	s.transition(StateErrored)
}

func (s *LoginSession) transition(to State) {
	s.logger.Debug("session transition",
		zap.Stringer("from", s.state),
		zap.Stringer("to", to))
	s.state = to
}
