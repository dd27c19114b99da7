package auth

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/waabox/fyerslogin/internal/domain"
)

// simulatedTimestampLayout is YYYYMMDDHHMMSS.
const simulatedTimestampLayout = "20060102150405"

// SimulatedClient fabricates deterministic tokens without touching the network.
// It is used for demos and offline testing when the live broker is not wanted.
type SimulatedClient struct {
	endpoint oauth2.Endpoint
	now      func() time.Time
}

var _ domain.TokenExchangeClient = (*SimulatedClient)(nil)

// NewSimulatedClient creates a SimulatedClient. A nil now uses time.Now.
func NewSimulatedClient(endpoint oauth2.Endpoint, now func() time.Time) *SimulatedClient {
	if now == nil {
		now = time.Now
	}
	return &SimulatedClient{endpoint: withDefaults(endpoint), now: now}
}

// Mode reports ModeSimulated.
func (c *SimulatedClient) Mode() domain.Mode { return domain.ModeSimulated }

// BuildAuthURL builds the same URL the live client would.
func (c *SimulatedClient) BuildAuthURL(cfg domain.CredentialConfig) (string, error) {
	return BuildAuthURL(cfg, c.endpoint)
}

// ExchangeCode returns "<clientId>:SIMULATED_TOKEN_<YYYYMMDDHHMMSS>".
func (c *SimulatedClient) ExchangeCode(_ context.Context, cfg domain.CredentialConfig, code string) (domain.Token, error) {
	if err := cfg.ValidateForExchange(code); err != nil {
		return domain.Token{}, err
	}
	now := c.now()
	return domain.Token{
		Value:      cfg.ClientID + ":SIMULATED_TOKEN_" + now.Format(simulatedTimestampLayout),
		ObtainedAt: now,
		Mode:       domain.ModeSimulated,
	}, nil
}
