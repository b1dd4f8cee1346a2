package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	userStyle   = lipgloss.NewStyle().Bold(true)
	regionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	snetStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
)

// PromptInfo is what the shell prompt shows.
type PromptInfo struct {
	User   string
	Region string
	Secure bool
	Path   string
}

// Prompt renders "user@REGION(snet):/path/> ", or "user> " when no region
// is selected. Styles are applied only when styled is set.
func Prompt(p PromptInfo, styled bool) string {
	render := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	b.WriteString(render(userStyle, p.User))
	if p.Region != "" {
		b.WriteString("@")
		b.WriteString(render(regionStyle, p.Region))
		if p.Secure {
			b.WriteString(render(snetStyle, "(snet)"))
		}
		b.WriteString(":")
		b.WriteString(render(pathStyle, p.Path))
	}
	b.WriteString("> ")
	return b.String()
}
