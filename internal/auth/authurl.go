package auth

import (
	"golang.org/x/oauth2"

	"github.com/waabox/fyerslogin/internal/domain"
)

// DefaultEndpoint is the Fyers API v2 OAuth endpoint.
var DefaultEndpoint = oauth2.Endpoint{
	AuthURL:  "https://api.fyers.in/api/v2/generate-authcode",
	TokenURL: "https://api.fyers.in/api/v2/token",
}

// BuildAuthURL returns the authorization-request URL the user opens in a browser.
// The query carries exactly client_id, redirect_uri and response_type=code, encoded
// in sorted key order. It fails with a *domain.ValidationError when the client id or
// redirect URI is missing.
func BuildAuthURL(cfg domain.CredentialConfig, endpoint oauth2.Endpoint) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	oc := oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: cfg.RedirectURI,
		Endpoint:    withDefaults(endpoint),
	}
	// An empty state keeps the query to the three parameters the broker expects.
	return oc.AuthCodeURL(""), nil
}

func withDefaults(endpoint oauth2.Endpoint) oauth2.Endpoint {
	if endpoint.AuthURL == "" {
		endpoint.AuthURL = DefaultEndpoint.AuthURL
	}
	if endpoint.TokenURL == "" {
		endpoint.TokenURL = DefaultEndpoint.TokenURL
	}
	return endpoint
}
