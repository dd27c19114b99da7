package domain

import (
	"fmt"
	"net/url"

	"go.uber.org/zap/zapcore"
)

// Field names reported by ValidationError and ExchangeError.
const (
	FieldClientID     = "clientId"
	FieldClientSecret = "clientSecret"
	FieldRedirectURI  = "redirectUri"
	FieldAuthCode     = "authCode"
)

// OAuth constants sent with every authorization request and exchange.
const (
	ResponseTypeCode           = "code"
	GrantTypeAuthorizationCode = "authorization_code"
)

const redacted = "[redacted]"

// CredentialConfig holds the broker application identity used for one login flow.
// ClientSecret is sensitive: it never appears in String output or structured logs.
type CredentialConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// ResponseType is always "code" for the authorization-code grant.
func (c CredentialConfig) ResponseType() string { return ResponseTypeCode }

// GrantType is always "authorization_code".
func (c CredentialConfig) GrantType() string { return GrantTypeAuthorizationCode }

// Validate checks the fields needed to build an authorization URL:
// a non-empty client id and an absolute redirect URI.
func (c CredentialConfig) Validate() error {
	if c.ClientID == "" {
		return &ValidationError{Field: FieldClientID}
	}
	if c.RedirectURI == "" {
		return &ValidationError{Field: FieldRedirectURI}
	}
	u, err := url.Parse(c.RedirectURI)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: FieldRedirectURI, Reason: "must be an absolute URL"}
	}
	return nil
}

// ValidateForExchange checks that every identity field and the authorization code are present.
// It returns an ExchangeError of kind InvalidInput naming the first missing field.
func (c CredentialConfig) ValidateForExchange(code string) error {
	switch {
	case c.ClientID == "":
		return InvalidInput(FieldClientID)
	case c.ClientSecret == "":
		return InvalidInput(FieldClientSecret)
	case c.RedirectURI == "":
		return InvalidInput(FieldRedirectURI)
	case code == "":
		return InvalidInput(FieldAuthCode)
	}
	return nil
}

// String renders the config with the secret masked.
func (c CredentialConfig) String() string {
	return fmt.Sprintf("CredentialConfig{client_id=%s redirect_uri=%s secret_key=%s}",
		c.ClientID, c.RedirectURI, maskSecret(c.ClientSecret))
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (c CredentialConfig) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("client_id", c.ClientID)
	enc.AddString("redirect_uri", c.RedirectURI)
	enc.AddString("secret_key", maskSecret(c.ClientSecret))
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}
