package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Colours for terminal output. lipgloss drops them when stdout is not a
// terminal.
var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#06B6D4")
	colorMuted     = lipgloss.Color("#6C7086")
	colorSuccess   = lipgloss.Color("#A6E3A1")
	colorWarning   = lipgloss.Color("#F9E2AF")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSecondary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	okStyle      = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarning)
)

const (
	defaultRuleWidth = 60
	maxRuleWidth     = 100
)

// ruleWidth is the terminal width capped at maxRuleWidth, or
// defaultRuleWidth when stdout is not a terminal.
func ruleWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultRuleWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultRuleWidth
	}
	return min(w, maxRuleWidth)
}

func rule() string {
	return mutedStyle.Render(strings.Repeat("─", ruleWidth()))
}
