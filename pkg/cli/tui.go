package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme of the chat transcript.
type Theme struct {
	Primary lipgloss.Color // Assistant and accents
	User    lipgloss.Color // User messages
	Warning lipgloss.Color // Notices
	Dim     lipgloss.Color // Status and help text
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	User:    lipgloss.Color("#58a6ff"),
	Warning: lipgloss.Color("#f0883e"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Notice    lipgloss.Style
	Alert     lipgloss.Style
	Help      lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		User:      lipgloss.NewStyle().Bold(true).Foreground(t.User),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Notice:    lipgloss.NewStyle().Foreground(t.Warning),
		Alert:     lipgloss.NewStyle().Bold(true).Foreground(t.Warning).Border(lipgloss.RoundedBorder()).BorderForeground(t.Warning).Padding(0, 1),
		Help:      lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// PlainStyles renders without colors or borders, for non-terminal output
// and tests.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Title: s, User: s, Assistant: s, Notice: s, Alert: s, Help: s}
}

// Message renders one transcript line with a role label, indenting
// continuation lines under the text.
func (s Styles) Message(role, content string) string {
	var label string
	switch role {
	case "user":
		label = s.User.Render("вы ›")
	default:
		label = s.Assistant.Render("ассистент ›")
	}
	indent := strings.Repeat(" ", lipgloss.Width(label)+1)
	return label + " " + strings.ReplaceAll(content, "\n", "\n"+indent)
}

// NoticeLine renders a transient notice.
func (s Styles) NoticeLine(text string) string {
	return s.Notice.Render("⚠ " + text)
}

// AlertBox renders a notice that needs acknowledgement.
func (s Styles) AlertBox(text string) string {
	return s.Alert.Render(text)
}

// Status renders a dimmed status line such as "[listening]".
func (s Styles) Status(text string) string {
	return s.Help.Render("[" + text + "]")
}
