package domain

import (
	"context"
	"time"
)

// Mode identifies which exchange client produced a token.
type Mode string

const (
	ModeLive      Mode = "live"
	ModeSimulated Mode = "simulated"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeLive || m == ModeSimulated
}

// Token is the bearer access token obtained from a successful exchange.
type Token struct {
	Value      string
	ObtainedAt time.Time
	Mode       Mode
}

// TokenExchangeClient is the port implemented by the live and simulated broker clients.
// Both build the authorization URL the same way; they differ only in ExchangeCode.
type TokenExchangeClient interface {
	BuildAuthURL(cfg CredentialConfig) (string, error)
	ExchangeCode(ctx context.Context, cfg CredentialConfig, code string) (Token, error)
	Mode() Mode
}
