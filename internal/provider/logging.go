package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/waabox/fyerslogin/internal/domain"
)

// LoggingClient wraps a TokenExchangeClient and records every call.
// The wrapped client's results are returned unchanged.
type LoggingClient struct {
	inner  domain.TokenExchangeClient
	logger *zap.Logger
}

var _ domain.TokenExchangeClient = (*LoggingClient)(nil)

// NewLoggingClient creates a LoggingClient. A nil logger disables logging.
func NewLoggingClient(inner domain.TokenExchangeClient, logger *zap.Logger) *LoggingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingClient{
		inner:  inner,
		logger: logger.With(zap.String("mode", string(inner.Mode()))),
	}
}

func (lc *LoggingClient) Mode() domain.Mode { return lc.inner.Mode() }

func (lc *LoggingClient) BuildAuthURL(cfg domain.CredentialConfig) (string, error) {
	u, err := lc.inner.BuildAuthURL(cfg)
	if err != nil {
		lc.logger.Warn("auth url rejected", zap.Object("credentials", cfg), zap.Error(err))
		return "", err
	}
	lc.logger.Info("auth url built", zap.Object("credentials", cfg))
	return u, nil
}

func (lc *LoggingClient) ExchangeCode(ctx context.Context, cfg domain.CredentialConfig, code string) (domain.Token, error) {
	start := time.Now()
	token, err := lc.inner.ExchangeCode(ctx, cfg, code)
	fields := []zap.Field{
		zap.Object("credentials", cfg),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		var exErr *domain.ExchangeError
		if errors.As(err, &exErr) {
			fields = append(fields, zap.Stringer("kind", exErr.Kind))
		}
		lc.logger.Warn("token exchange failed", append(fields, zap.Error(err))...)
		return domain.Token{}, err
	}
	lc.logger.Info("token exchange succeeded", fields...)
	return token, nil
}
