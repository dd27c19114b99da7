package provider

import (
	"fmt"
	"sort"

	"github.com/waabox/fyerslogin/internal/domain"
)

// Registry maps exchange modes to TokenExchangeClient implementations.
// The client for a session is chosen once at startup from the configured mode.
type Registry struct {
	clients map[domain.Mode]domain.TokenExchangeClient
}

// NewRegistry creates an empty client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[domain.Mode]domain.TokenExchangeClient)}
}

// Register associates a mode with a client, replacing any previous registration.
func (r *Registry) Register(c domain.TokenExchangeClient) {
	r.clients[c.Mode()] = c
}

// Select returns the client registered for mode.
// Returns an error if the mode is unknown or nothing is registered for it.
func (r *Registry) Select(mode domain.Mode) (domain.TokenExchangeClient, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown exchange mode %q (want %q or %q)", mode, domain.ModeLive, domain.ModeSimulated)
	}
	c, ok := r.clients[mode]
	if !ok {
		return nil, fmt.Errorf("no client registered for mode %q (registered: %v)", mode, r.Modes())
	}
	return c, nil
}

// Modes lists the registered modes in sorted order.
func (r *Registry) Modes() []domain.Mode {
	modes := make([]domain.Mode, 0, len(r.clients))
	for m := range r.clients {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}
