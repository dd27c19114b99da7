package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"

	"github.com/waabox/fyerslogin/internal/domain"
)

// Defaults used when neither the file nor the environment supplies a value.
// The app id and secret are placeholders to be replaced with real app credentials.
const (
	DefaultAppID           = "YOUR_APP_ID"
	DefaultSecret          = "YOUR_APP_SECRET"
	DefaultRedirectURI     = "https://trade.fyers.in/api-login/redirect-uri/index.html"
	DefaultTokenFile       = "access_token.txt"
	DefaultServerAddr      = "127.0.0.1:3000"
	defaultExchangeTimeout = 30 * time.Second
)

// BrokerConfig holds the broker application identity and OAuth endpoints.
type BrokerConfig struct {
	ClientID    string `toml:"client_id"`
	SecretKey   string `toml:"secret_key"`
	RedirectURI string `toml:"redirect_uri"`
	AuthURL     string `toml:"auth_url,omitempty"`
	TokenURL    string `toml:"token_url,omitempty"`
}

// ServerConfig holds settings for the local token server.
type ServerConfig struct {
	Addr           string   `toml:"addr,omitempty"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
	DevMode        bool     `toml:"dev_mode"`
}

// Config holds all fyerslogin configuration.
type Config struct {
	Mode            string       `toml:"mode"`
	TokenFile       string       `toml:"token_file,omitempty"`
	ExchangeTimeout string       `toml:"exchange_timeout,omitempty"`
	LogFile         string       `toml:"log_file,omitempty"`
	Broker          BrokerConfig `toml:"broker"`
	Server          ServerConfig `toml:"server"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Mode: string(domain.ModeSimulated),
		Broker: BrokerConfig{
			ClientID:    DefaultAppID,
			SecretKey:   DefaultSecret,
			RedirectURI: DefaultRedirectURI,
		},
	}
}

// Credentials returns the broker identity as a domain.CredentialConfig.
func (c Config) Credentials() domain.CredentialConfig {
	return domain.CredentialConfig{
		ClientID:     c.Broker.ClientID,
		ClientSecret: c.Broker.SecretKey,
		RedirectURI:  c.Broker.RedirectURI,
	}
}

// Endpoint returns the configured OAuth endpoint; empty URLs are filled in by the clients.
func (c Config) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{AuthURL: c.Broker.AuthURL, TokenURL: c.Broker.TokenURL}
}

// ExchangeMode returns Mode as a domain.Mode, defaulting to simulated.
func (c Config) ExchangeMode() domain.Mode {
	if c.Mode == "" {
		return domain.ModeSimulated
	}
	return domain.Mode(c.Mode)
}

// TokenFileOrDefault returns TokenFile if set, otherwise DefaultTokenFile.
func (c Config) TokenFileOrDefault() string {
	if c.TokenFile != "" {
		return c.TokenFile
	}
	return DefaultTokenFile
}

// ServerAddrOrDefault returns Server.Addr if set, otherwise DefaultServerAddr.
func (c Config) ServerAddrOrDefault() string {
	if c.Server.Addr != "" {
		return c.Server.Addr
	}
	return DefaultServerAddr
}

// CORSOrigins returns the origins allowed to read the token server cross-origin.
// Nothing is allowed unless configured; "*" must be listed explicitly.
func (c Config) CORSOrigins() []string {
	return c.Server.AllowedOrigins
}

// ExchangeTimeoutOrDefault parses ExchangeTimeout, falling back to 30s when unset.
func (c Config) ExchangeTimeoutOrDefault() (time.Duration, error) {
	if c.ExchangeTimeout == "" {
		return defaultExchangeTimeout, nil
	}
	d, err := time.ParseDuration(c.ExchangeTimeout)
	if err != nil {
		return 0, fmt.Errorf("parsing exchange_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("exchange_timeout must be positive, got %s", c.ExchangeTimeout)
	}
	return d, nil
}

// Validate reports configuration errors that would prevent startup.
func (c Config) Validate() error {
	if !c.ExchangeMode().Valid() {
		return fmt.Errorf("mode must be %q or %q, got %q", domain.ModeLive, domain.ModeSimulated, c.Mode)
	}
	if _, err := c.ExchangeTimeoutOrDefault(); err != nil {
		return err
	}
	return nil
}

// LoadFrom reads configuration from the given TOML file path on top of Default().
// If the file does not exist, it returns the defaults without error.
// Environment variables always take precedence over file values:
//   - FYERS_APP_ID       overrides broker.client_id
//   - FYERS_SECRET       overrides broker.secret_key
//   - FYERS_REDIRECT_URI overrides broker.redirect_uri
//   - FYERS_MODE         overrides mode
//   - FYERS_TOKEN_FILE   overrides token_file
func LoadFrom(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the fyerslogin config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return home + "/.config/fyerslogin/config.toml"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FYERS_APP_ID"); v != "" {
		cfg.Broker.ClientID = v
	}
	if v := os.Getenv("FYERS_SECRET"); v != "" {
		cfg.Broker.SecretKey = v
	}
	if v := os.Getenv("FYERS_REDIRECT_URI"); v != "" {
		cfg.Broker.RedirectURI = v
	}
	if v := os.Getenv("FYERS_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("FYERS_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
