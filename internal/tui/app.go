package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/waabox/fyerslogin/internal/auth"
	"github.com/waabox/fyerslogin/internal/domain"
	"github.com/waabox/fyerslogin/internal/session"
)

// AuthURLMsg is sent when an authorization URL has been requested.
// It is exported so that tests can inject it directly into AppModel.Update.
type AuthURLMsg struct {
	URL     string
	Err     error
	OpenErr error
}

// TokenExchangedMsg is sent when an authorization code exchange completes.
type TokenExchangedMsg struct {
	Token domain.Token
	Err   error
}

// TokenSavedMsg is sent when the token has been written (or failed to be written) to the store.
type TokenSavedMsg struct {
	Path string
	Err  error
}

// TokenStore persists tokens for the save trigger.
type TokenStore interface {
	Persist(token *domain.Token) error
	Path() string
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	simStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle = lipgloss.NewStyle().Reverse(true)
)

const separator = "────────────────────────────────────────────────────────────\n"

// AppModel is the root Bubbletea model for the login tool.
// All flow state lives in the session; the model only keeps what is typed and shown.
type AppModel struct {
	session *session.LoginSession
	store   TokenStore
	openURL func(string) error
	form    FormModel

	exchanging bool
	status     string
	notice     string
	now        func() time.Time
}

// NewAppModel creates the root application model. openURL is called with the
// authorization URL after it is issued.
func NewAppModel(sess *session.LoginSession, store TokenStore, openURL func(string) error) AppModel {
	if openURL == nil {
		openURL = func(string) error { return errors.New("no browser configured") }
	}
	return AppModel{
		session: sess,
		store:   store,
		openURL: openURL,
		form:    NewFormModel(sess.Config()),
		status:  "Ready",
		now:     time.Now,
	}
}

// Init has nothing to load up front.
func (m AppModel) Init() tea.Cmd {
	return nil
}

func (m AppModel) simulated() bool {
	return m.session.Snapshot().Mode == domain.ModeSimulated
}

func (m AppModel) requestAuthURL() tea.Cmd {
	cfg := m.form.Credentials()
	return func() tea.Msg {
		if err := m.session.SetConfig(cfg); err != nil {
			return AuthURLMsg{Err: err}
		}
		u, err := m.session.RequestAuthURL()
		if err != nil {
			return AuthURLMsg{Err: err}
		}
		return AuthURLMsg{URL: u, OpenErr: m.openURL(u)}
	}
}

// submitAuthCode exchanges with the credentials the auth URL was issued for.
func (m AppModel) submitAuthCode() tea.Cmd {
	code := m.form.AuthCode()
	return func() tea.Msg {
		token, err := m.session.SubmitAuthCode(context.Background(), code)
		return TokenExchangedMsg{Token: token, Err: err}
	}
}

func (m AppModel) saveToken() tea.Cmd {
	return func() tea.Msg {
		err := m.session.Persist(m.store)
		return TokenSavedMsg{Path: m.store.Path(), Err: err}
	}
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case AuthURLMsg:
		if msg.Err != nil {
			m.notice = "Failed to generate auth URL: " + msg.Err.Error()
			m.status = "Error generating auth URL"
			return m, nil
		}
		m.notice = ""
		if msg.OpenErr != nil {
			m.notice = "Could not open a browser, open the URL above manually: " + msg.OpenErr.Error()
			m.status = "Auth URL generated"
		} else {
			m.status = "Auth URL opened in browser"
		}
		if m.simulated() {
			m.status += " (SIMULATION MODE)"
		}
		m.form = m.form.Focus(FieldAuthCode)

	case TokenExchangedMsg:
		m.exchanging = false
		if msg.Err != nil {
			m.notice = "Failed to generate access token: " + msg.Err.Error()
			m.status = "Error generating access token"
			return m, nil
		}
		m.notice = ""
		if msg.Token.Mode == domain.ModeSimulated {
			m.status = "Access token generated (SIMULATION MODE)"
		} else {
			m.status = "Access token successfully generated"
		}

	case TokenSavedMsg:
		if msg.Err != nil {
			if errors.Is(msg.Err, domain.ErrNothingToPersist) {
				m.notice = "No access token to save"
			} else {
				m.notice = "Failed to save access token: " + msg.Err.Error()
			}
			m.status = "Error saving access token"
			return m, nil
		}
		m.notice = ""
		m.status = "Access token saved to " + msg.Path

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m AppModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "down":
		m.form = m.form.Next()
	case "shift+tab", "up":
		m.form = m.form.Prev()
	case "ctrl+g":
		if m.exchanging {
			m.notice = session.ErrExchangeInFlight.Error()
			return m, nil
		}
		return m, m.requestAuthURL()
	case "ctrl+t":
		return m.startExchange()
	case "enter":
		if m.form.Focused() == FieldAuthCode {
			return m.startExchange()
		}
		m.form = m.form.Next()
	case "ctrl+s":
		return m, m.saveToken()
	case "ctrl+u":
		m.form = m.form.Clear()
	case "backspace":
		m.form = m.form.Backspace()
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.form = m.form.Insert(string(msg.Runes))
		}
	}
	return m, nil
}

func (m AppModel) startExchange() (tea.Model, tea.Cmd) {
	if m.exchanging {
		m.notice = session.ErrExchangeInFlight.Error()
		return m, nil
	}
	if m.form.Credentials() != m.session.Config() {
		m.notice = "Credentials changed since the auth URL was issued, press ctrl+g for a new one"
		m.status = "Error generating access token"
		return m, nil
	}
	m.exchanging = true
	m.notice = ""
	m.status = "Exchanging auth code for access token..."
	return m, m.submitAuthCode()
}

// View renders the full TUI.
func (m AppModel) View() string {
	snap := m.session.Snapshot()

	header := " " + titleStyle.Render("Fyers API Login Tool")
	if snap.Mode == domain.ModeSimulated {
		header += "  " + simStyle.Render("[SIMULATION MODE]")
	}
	header += "\n"

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString(separator)
	sb.WriteString(m.form.View())
	sb.WriteString(separator)
	if snap.AuthURL != "" {
		sb.WriteString(" Auth URL: " + snap.AuthURL + "\n")
	}
	sb.WriteString(" Access Token: " + m.renderToken(snap.Token) + "\n")
	if m.notice != "" {
		sb.WriteString("\n " + errorStyle.Render(m.notice) + "\n")
	}
	sb.WriteString(separator)
	sb.WriteString(" " + statusStyle.Render(m.status) + "\n")
	sb.WriteString(" tab: next field   ctrl+g: auth URL & browser   enter/ctrl+t: get token   ctrl+s: save   esc: quit\n")
	return sb.String()
}

func (m AppModel) renderToken(token *domain.Token) string {
	if token == nil {
		return "--"
	}
	out := token.Value
	info, err := auth.Inspect(token.Value)
	if err != nil || info.ExpiresAt.IsZero() {
		return out
	}
	if info.Expired(m.now()) {
		return out + "\n   (expired " + info.ExpiresAt.Local().Format(time.DateTime) + ")"
	}
	return out + fmt.Sprintf("\n   (expires %s)", info.ExpiresAt.Local().Format(time.DateTime))
}

// Run starts the Bubbletea program and blocks until the user quits.
func Run(sess *session.LoginSession, store TokenStore, openURL func(string) error) error {
	p := tea.NewProgram(NewAppModel(sess, store, openURL), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
