package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/waabox/fyerslogin/internal/domain"
)

const (
	maxResponseBytes   = 1 << 20
	defaultHTTPTimeout = 30 * time.Second
)

// LiveClient exchanges authorization codes against the broker's token endpoint.
type LiveClient struct {
	endpoint oauth2.Endpoint
	client   *http.Client
	logger   *zap.Logger
	now      func() time.Time
}

var _ domain.TokenExchangeClient = (*LiveClient)(nil)

// NewLiveClient creates a LiveClient whose requests give up after timeout.
// A non-positive timeout uses defaultHTTPTimeout. Empty endpoint URLs fall back to
// DefaultEndpoint; pass a test server URL in tests.
func NewLiveClient(endpoint oauth2.Endpoint, timeout time.Duration, logger *zap.Logger) *LiveClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &LiveClient{
		endpoint: withDefaults(endpoint),
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		now:      time.Now,
	}
}

// Mode reports ModeLive.
func (c *LiveClient) Mode() domain.Mode { return domain.ModeLive }

// BuildAuthURL builds the authorization URL for cfg.
func (c *LiveClient) BuildAuthURL(cfg domain.CredentialConfig) (string, error) {
	return BuildAuthURL(cfg, c.endpoint)
}

type exchangeRequest struct {
	ClientID     string `json:"client_id"`
	SecretKey    string `json:"secret_key"`
	RedirectURI  string `json:"redirect_uri"`
	ResponseType string `json:"response_type"`
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
}

type exchangeResponse struct {
	Status      string `json:"status"`
	S           string `json:"s"`
	Code        int    `json:"code"`
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

func (r exchangeResponse) succeeded() bool {
	return r.Status == "success" || r.S == "ok"
}

// ExchangeCode trades an authorization code for an access token.
// Transport failures, timeouts and undecodable responses map to NetworkFailure;
// any non-success broker status maps to RemoteRejected.
func (c *LiveClient) ExchangeCode(ctx context.Context, cfg domain.CredentialConfig, code string) (domain.Token, error) {
	if err := cfg.ValidateForExchange(code); err != nil {
		return domain.Token{}, err
	}

	body, err := json.Marshal(exchangeRequest{
		ClientID:     cfg.ClientID,
		SecretKey:    cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		ResponseType: cfg.ResponseType(),
		GrantType:    cfg.GrantType(),
		Code:         code,
	})
	if err != nil {
		return domain.Token{}, domain.NetworkError("encoding request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.TokenURL, bytes.NewReader(body))
	if err != nil {
		return domain.Token{}, domain.NetworkError("creating request: %v", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log := c.logger.With(zap.String("request_id", requestID), zap.String("client_id", cfg.ClientID))
	log.Debug("exchanging authorization code", zap.String("token_url", c.endpoint.TokenURL))

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn("token request failed", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Token{}, domain.NetworkError("timed out waiting for broker")
		}
		return domain.Token{}, domain.NetworkError("requesting token: %v", err)
	}
	defer resp.Body.Close()

	var raw exchangeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&raw); err != nil {
		log.Warn("undecodable token response", zap.Int("http_status", resp.StatusCode), zap.Error(err))
		return domain.Token{}, domain.NetworkError("malformed response from broker (HTTP %d)", resp.StatusCode)
	}

	if raw.succeeded() {
		if raw.AccessToken == "" {
			return domain.Token{}, domain.NetworkError("malformed response from broker: success without access_token")
		}
		log.Info("access token issued")
		return domain.Token{Value: raw.AccessToken, ObtainedAt: c.now(), Mode: domain.ModeLive}, nil
	}

	status := raw.Code
	if status == 0 {
		status = resp.StatusCode
	}
	msg := truncate(raw.Message, 100)
	if msg == "" {
		msg = "no message from broker"
	}
	log.Warn("token exchange rejected", zap.Int("code", status), zap.String("message", msg))
	return domain.Token{}, domain.Rejected(status, msg)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
