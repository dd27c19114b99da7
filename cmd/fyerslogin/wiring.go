package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/waabox/fyerslogin/internal/auth"
	"github.com/waabox/fyerslogin/internal/config"
	"github.com/waabox/fyerslogin/internal/domain"
	"github.com/waabox/fyerslogin/internal/provider"
	"github.com/waabox/fyerslogin/internal/session"
)

// newLogger returns a JSON file logger when logFile is set, a development
// logger on stderr when console is true, and a no-op logger otherwise.
func newLogger(logFile string, console bool) (*zap.Logger, error) {
	switch {
	case logFile != "":
		zc := zap.NewProductionConfig()
		zc.OutputPaths = []string{logFile}
		zc.ErrorOutputPaths = []string{logFile}
		return zc.Build()
	case console:
		return zap.NewDevelopment()
	default:
		return zap.NewNop(), nil
	}
}

// newRegistry registers both exchange variants, each wrapped with logging.
func newRegistry(cfg config.Config, timeout time.Duration, logger *zap.Logger) *provider.Registry {
	endpoint := cfg.Endpoint()
	registry := provider.NewRegistry()
	registry.Register(provider.NewLoggingClient(auth.NewLiveClient(endpoint, timeout, logger), logger))
	registry.Register(provider.NewLoggingClient(auth.NewSimulatedClient(endpoint, nil), logger))
	return registry
}

// newSession selects the configured variant once and binds it to a new session.
func newSession(cfg config.Config, logger *zap.Logger) (*session.LoginSession, error) {
	timeout, err := cfg.ExchangeTimeoutOrDefault()
	if err != nil {
		return nil, err
	}
	client, err := newRegistry(cfg, timeout, logger).Select(cfg.ExchangeMode())
	if err != nil {
		return nil, err
	}
	return session.New(client, cfg.Credentials(),
		session.WithExchangeTimeout(timeout),
		session.WithLogger(logger)), nil
}

// promptLogin runs one flow with plain prompts. All prompts are written to
// prompt so stdout remains clean for piping the token.
func promptLogin(ctx context.Context, sess *session.LoginSession, in io.Reader, prompt io.Writer, openURL func(string) error) (domain.Token, error) {
	u, err := sess.RequestAuthURL()
	if err != nil {
		return domain.Token{}, fmt.Errorf("building auth URL: %w", err)
	}
	if sess.Snapshot().Mode == domain.ModeSimulated {
		fmt.Fprintf(prompt, "Running in SIMULATION MODE.\n")
	}
	fmt.Fprintf(prompt, "Visit:      %s\n", u)
	if err := openURL(u); err != nil {
		fmt.Fprintf(prompt, "Could not open a browser (%v), open the URL above manually.\n", err)
	}
	fmt.Fprintf(prompt, "Paste the auth code from the redirect URL: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return domain.Token{}, fmt.Errorf("reading auth code: %w", err)
		}
		return domain.Token{}, errors.New("reading auth code: no input")
	}
	code := strings.TrimSpace(scanner.Text())

	fmt.Fprintf(prompt, "Exchanging auth code for access token...\n")
	select {
	case res := <-sess.SubmitAuthCodeAsync(ctx, code):
		return res.Token, res.Err
	case <-ctx.Done():
		return domain.Token{}, ctx.Err()
	}
}
