package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/waabox/fyerslogin/internal/domain"
)

// Form field positions, in focus order.
const (
	FieldClientID = iota
	FieldSecret
	FieldRedirectURI
	FieldAuthCode
	fieldCount
)

var fieldLabels = [fieldCount]string{
	FieldClientID:    "App ID",
	FieldSecret:      "App Secret",
	FieldRedirectURI: "Redirect URI",
	FieldAuthCode:    "Auth Code",
}

var (
	labelStyle   = lipgloss.NewStyle().Bold(true)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// FormModel is an immutable model for the credential form.
type FormModel struct {
	values [fieldCount]string
	cursor int
}

// NewFormModel creates a form pre-filled from cfg, focused on the first field.
func NewFormModel(cfg domain.CredentialConfig) FormModel {
	var m FormModel
	m.values[FieldClientID] = cfg.ClientID
	m.values[FieldSecret] = cfg.ClientSecret
	m.values[FieldRedirectURI] = cfg.RedirectURI
	return m
}

// Next returns a new model with focus on the following field, wrapping around.
func (m FormModel) Next() FormModel {
	m.cursor = (m.cursor + 1) % fieldCount
	return m
}

// Prev returns a new model with focus on the preceding field, wrapping around.
func (m FormModel) Prev() FormModel {
	m.cursor = (m.cursor + fieldCount - 1) % fieldCount
	return m
}

// Focus returns a new model focused on field i. Out-of-range values are ignored.
func (m FormModel) Focus(i int) FormModel {
	if i >= 0 && i < fieldCount {
		m.cursor = i
	}
	return m
}

// Focused returns the focused field index.
func (m FormModel) Focused() int {
	return m.cursor
}

// Value returns the raw text of field i.
func (m FormModel) Value(i int) string {
	return m.values[i]
}

// Insert appends s to the focused field.
func (m FormModel) Insert(s string) FormModel {
	m.values[m.cursor] += s
	return m
}

// Backspace removes the last rune of the focused field.
func (m FormModel) Backspace() FormModel {
	r := []rune(m.values[m.cursor])
	if len(r) > 0 {
		m.values[m.cursor] = string(r[:len(r)-1])
	}
	return m
}

// Clear empties the focused field.
func (m FormModel) Clear() FormModel {
	m.values[m.cursor] = ""
	return m
}

// Credentials returns the identity fields with surrounding whitespace trimmed.
func (m FormModel) Credentials() domain.CredentialConfig {
	return domain.CredentialConfig{
		ClientID:     strings.TrimSpace(m.values[FieldClientID]),
		ClientSecret: strings.TrimSpace(m.values[FieldSecret]),
		RedirectURI:  strings.TrimSpace(m.values[FieldRedirectURI]),
	}
}

// AuthCode returns the trimmed authorization code.
func (m FormModel) AuthCode() string {
	return strings.TrimSpace(m.values[FieldAuthCode])
}

// View renders the form; the secret is always masked.
func (m FormModel) View() string {
	var sb strings.Builder
	for i := 0; i < fieldCount; i++ {
		value := m.values[i]
		if i == FieldSecret {
			value = strings.Repeat("*", len([]rune(value)))
		}
		prefix := "  "
		line := labelStyle.Render(fmt.Sprintf("%-13s", fieldLabels[i]+":")) + " " + value
		if i == m.cursor {
			prefix = "> "
			line = focusedStyle.Render(line + "_")
		}
		sb.WriteString(prefix + line + "\n")
	}
	return sb.String()
}
