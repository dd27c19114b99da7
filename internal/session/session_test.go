package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/waabox/fyerslogin/internal/auth"
	"github.com/waabox/fyerslogin/internal/domain"
	"github.com/waabox/fyerslogin/internal/session"
	"github.com/waabox/fyerslogin/internal/store"
)

func scenarioConfig() domain.CredentialConfig {
	return domain.CredentialConfig{
		ClientID:     "TEST1-100",
		ClientSecret: "x",
		RedirectURI:  "https://example.com/cb",
	}
}

func simulatedSession(cfg domain.CredentialConfig) *session.LoginSession {
	return session.New(auth.NewSimulatedClient(oauth2.Endpoint{}, nil), cfg)
}

// gatedClient blocks ExchangeCode until release is closed or the context ends.
type gatedClient struct {
	started chan struct{}
	release chan struct{}
	token   domain.Token
	err     error
}

func newGatedClient() *gatedClient {
	return &gatedClient{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedClient) Mode() domain.Mode { return domain.ModeLive }
func (g *gatedClient) BuildAuthURL(cfg domain.CredentialConfig) (string, error) {
	return auth.BuildAuthURL(cfg, oauth2.Endpoint{})
}
func (g *gatedClient) ExchangeCode(ctx context.Context, _ domain.CredentialConfig, _ string) (domain.Token, error) {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return g.token, g.err
	case <-ctx.Done():
		return domain.Token{}, ctx.Err()
	}
}

func TestSession_ScenarioA_SimulatedFlow(t *testing.T) {
	s := simulatedSession(scenarioConfig())
	assert.Equal(t, session.StateIdle, s.Snapshot().State)

	u, err := s.RequestAuthURL()
	require.NoError(t, err)
	assert.Contains(t, u, "client_id=TEST1-100")
	assert.Equal(t, session.StateAuthURLIssued, s.Snapshot().State)

	token, err := s.SubmitAuthCode(context.Background(), "anycode")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^TEST1-100:SIMULATED_TOKEN_\d{14}$`), token.Value)

	snap := s.Snapshot()
	assert.Equal(t, session.StateAuthenticated, snap.State)
	require.NotNil(t, snap.Token)
	assert.Equal(t, token.Value, snap.Token.Value)
	assert.Equal(t, domain.ModeSimulated, snap.Token.Mode)
	assert.NoError(t, snap.Err)
}

func TestSession_ScenarioB_ValidationFailure(t *testing.T) {
	cfg := scenarioConfig()
	cfg.ClientID = ""
	s := simulatedSession(cfg)

	u, err := s.RequestAuthURL()
	assert.Empty(t, u)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "clientId", vErr.Field)

	snap := s.Snapshot()
	assert.Equal(t, session.StateErrored, snap.State)
	assert.Empty(t, snap.AuthURL)
	assert.ErrorAs(t, snap.Err, &vErr)
}

func TestSession_EmptyRedirectIsValidationError(t *testing.T) {
	cfg := scenarioConfig()
	cfg.RedirectURI = ""
	s := simulatedSession(cfg)

	_, err := s.RequestAuthURL()
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, domain.FieldRedirectURI, vErr.Field)
}

func TestSession_SubmitBeforeURLIsRejected(t *testing.T) {
	s := simulatedSession(scenarioConfig())

	_, err := s.SubmitAuthCode(context.Background(), "anycode")
	require.ErrorIs(t, err, session.ErrNoAuthURL)
	assert.Equal(t, session.StateIdle, s.Snapshot().State)
	assert.Nil(t, s.Snapshot().Token)
}

func TestSession_SubmitAfterFailedURLRequestIsRejected(t *testing.T) {
	cfg := scenarioConfig()
	cfg.ClientID = ""
	s := simulatedSession(cfg)
	_, _ = s.RequestAuthURL()

	_, err := s.SubmitAuthCode(context.Background(), "anycode")
	require.ErrorIs(t, err, session.ErrNoAuthURL)
	assert.Equal(t, session.StateErrored, s.Snapshot().State)
}

func TestSession_EmptyCodeMovesToErroredAndIsRetryable(t *testing.T) {
	s := simulatedSession(scenarioConfig())
	_, err := s.RequestAuthURL()
	require.NoError(t, err)

	_, err = s.SubmitAuthCode(context.Background(), "")
	var exErr *domain.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, domain.InvalidInputKind, exErr.Kind)
	assert.Equal(t, domain.FieldAuthCode, exErr.Field)
	assert.Equal(t, session.StateErrored, s.Snapshot().State)

	_, err = s.SubmitAuthCode(context.Background(), "anycode")
	require.NoError(t, err)
	assert.Equal(t, session.StateAuthenticated, s.Snapshot().State)
}

func TestSession_MissingSecretIsInvalidInput(t *testing.T) {
	cfg := scenarioConfig()
	cfg.ClientSecret = ""
	s := simulatedSession(cfg)
	_, err := s.RequestAuthURL()
	require.NoError(t, err, "the secret is not needed to build the URL")

	_, err = s.SubmitAuthCode(context.Background(), "anycode")
	var exErr *domain.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, domain.FieldClientSecret, exErr.Field)
}

func TestSession_ExchangeErrorMovesToErrored(t *testing.T) {
	client := newGatedClient()
	client.err = domain.Rejected(-413, "invalid auth code")
	close(client.release)
	s := session.New(client, scenarioConfig())
	_, err := s.RequestAuthURL()
	require.NoError(t, err)

	_, err = s.SubmitAuthCode(context.Background(), "stale")
	require.True(t, errors.Is(err, &domain.ExchangeError{Kind: domain.RemoteRejected}))

	snap := s.Snapshot()
	assert.Equal(t, session.StateErrored, snap.State)
	assert.Equal(t, err, snap.Err)
	assert.NotEmpty(t, snap.AuthURL, "the issued URL survives so the code can be resubmitted")
}

func TestSession_TimeoutMapsToNetworkFailure(t *testing.T) {
	client := newGatedClient()
	s := session.New(client, scenarioConfig(), session.WithExchangeTimeout(20*time.Millisecond))
	_, err := s.RequestAuthURL()
	require.NoError(t, err)

	_, err = s.SubmitAuthCode(context.Background(), "code")
	var exErr *domain.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, domain.NetworkFailure, exErr.Kind)
	assert.Equal(t, session.StateErrored, s.Snapshot().State)
}

func TestSession_OnlyOneExchangeInFlight(t *testing.T) {
	client := newGatedClient()
	client.token = domain.Token{Value: "live_tok", Mode: domain.ModeLive}
	s := session.New(client, scenarioConfig())
	_, err := s.RequestAuthURL()
	require.NoError(t, err)

	results := s.SubmitAuthCodeAsync(context.Background(), "code")
	<-client.started
	assert.Equal(t, session.StateExchanging, s.Snapshot().State)

	_, err = s.SubmitAuthCode(context.Background(), "code")
	assert.ErrorIs(t, err, session.ErrExchangeInFlight)
	_, err = s.RequestAuthURL()
	assert.ErrorIs(t, err, session.ErrExchangeInFlight)
	assert.ErrorIs(t, s.SetConfig(scenarioConfig()), session.ErrExchangeInFlight)

	close(client.release)
	res := <-results
	require.NoError(t, res.Err)
	assert.Equal(t, "live_tok", res.Token.Value)
	assert.Equal(t, session.StateAuthenticated, s.Snapshot().State)
}

func TestSession_RestartFromAuthenticatedKeepsOldToken(t *testing.T) {
	s := simulatedSession(scenarioConfig())
	_, err := s.RequestAuthURL()
	require.NoError(t, err)
	first, err := s.SubmitAuthCode(context.Background(), "anycode")
	require.NoError(t, err)

	_, err = s.SubmitAuthCode(context.Background(), "again")
	require.ErrorIs(t, err, session.ErrNoAuthURL, "a consumed flow needs a fresh URL")

	_, err = s.RequestAuthURL()
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, session.StateAuthURLIssued, snap.State)
	require.NotNil(t, snap.Token)
	assert.Equal(t, first.Value, snap.Token.Value)

	cfg := scenarioConfig()
	cfg.ClientID = ""
	require.NoError(t, s.SetConfig(cfg))
	_, err = s.RequestAuthURL()
	require.Error(t, err)
	snap = s.Snapshot()
	assert.Equal(t, session.StateErrored, snap.State)
	require.NotNil(t, snap.Token, "old token stays readable until overwritten")
	assert.Equal(t, first.Value, snap.Token.Value)
}

func TestSession_ErroredURLRequestIsRetryable(t *testing.T) {
	cfg := scenarioConfig()
	cfg.ClientID = ""
	s := simulatedSession(cfg)
	_, err := s.RequestAuthURL()
	require.Error(t, err)

	require.NoError(t, s.SetConfig(scenarioConfig()))
	_, err = s.RequestAuthURL()
	require.NoError(t, err)
	assert.Equal(t, session.StateAuthURLIssued, s.Snapshot().State)
	assert.NoError(t, s.Snapshot().Err)
}

func TestSession_ChangedConfigEndsIssuedFlow(t *testing.T) {
	s := simulatedSession(scenarioConfig())
	u, err := s.RequestAuthURL()
	require.NoError(t, err)
	require.Contains(t, u, "client_id=TEST1-100")

	cfg := scenarioConfig()
	cfg.ClientID = "OTHER-200"
	require.NoError(t, s.SetConfig(cfg))
	snap := s.Snapshot()
	assert.Equal(t, session.StateIdle, snap.State)
	assert.Empty(t, snap.AuthURL)

	_, err = s.SubmitAuthCode(context.Background(), "anycode")
	require.ErrorIs(t, err, session.ErrNoAuthURL)
	assert.Nil(t, s.Snapshot().Token)

	u, err = s.RequestAuthURL()
	require.NoError(t, err)
	assert.Contains(t, u, "client_id=OTHER-200")
	token, err := s.SubmitAuthCode(context.Background(), "anycode")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^OTHER-200:SIMULATED_TOKEN_`), token.Value)
}

func TestSession_ChangedSecretAlsoEndsFlow(t *testing.T) {
	s := simulatedSession(scenarioConfig())
	_, err := s.RequestAuthURL()
	require.NoError(t, err)

	cfg := scenarioConfig()
	cfg.ClientSecret = "y"
	require.NoError(t, s.SetConfig(cfg))

	_, err = s.SubmitAuthCode(context.Background(), "anycode")
	assert.ErrorIs(t, err, session.ErrNoAuthURL)
}

func TestSession_SameConfigKeepsIssuedFlow(t *testing.T) {
	s := simulatedSession(scenarioConfig())
	u, err := s.RequestAuthURL()
	require.NoError(t, err)

	require.NoError(t, s.SetConfig(scenarioConfig()))
	snap := s.Snapshot()
	assert.Equal(t, session.StateAuthURLIssued, snap.State)
	assert.Equal(t, u, snap.AuthURL)

	_, err = s.SubmitAuthCode(context.Background(), "anycode")
	assert.NoError(t, err)
}

func TestSession_PersistWithoutToken(t *testing.T) {
	s := simulatedSession(scenarioConfig())
	st := store.NewFileStore(filepath.Join(t.TempDir(), "access_token.txt"))

	err := s.Persist(st)
	assert.ErrorIs(t, err, domain.ErrNothingToPersist)
	assert.Equal(t, session.StateIdle, s.Snapshot().State)
}

func TestSession_PersistRoundTrip(t *testing.T) {
	s := simulatedSession(scenarioConfig())
	st := store.NewFileStore(filepath.Join(t.TempDir(), "access_token.txt"))
	_, err := s.RequestAuthURL()
	require.NoError(t, err)
	token, err := s.SubmitAuthCode(context.Background(), "anycode")
	require.NoError(t, err)

	require.NoError(t, s.Persist(st))
	saved, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, token.Value, saved)
	assert.Equal(t, session.StateAuthenticated, s.Snapshot().State)
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	s := simulatedSession(scenarioConfig())
	_, _ = s.RequestAuthURL()
	_, err := s.SubmitAuthCode(context.Background(), "anycode")
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Token.Value = "tampered"
	assert.NotEqual(t, "tampered", s.Snapshot().Token.Value)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", session.StateIdle.String())
	assert.Equal(t, "auth_url_issued", session.StateAuthURLIssued.String())
	assert.Equal(t, "exchanging", session.StateExchanging.String())
	assert.Equal(t, "authenticated", session.StateAuthenticated.String())
	assert.Equal(t, "errored", session.StateErrored.String())
}
