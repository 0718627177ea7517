package prompt

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"nudge/internal/update"
)

var (
	cPurple    = lipgloss.Color("99")
	cRed       = lipgloss.Color("203")
	cGold      = lipgloss.Color("220")
	cGray      = lipgloss.Color("240")
	cLightGray = lipgloss.Color("250")
	cWhite     = lipgloss.Color("255")

	styleTitle = lipgloss.NewStyle().
			Foreground(cWhite).
			Background(cPurple).
			Bold(true).
			Padding(0, 1)

	styleVersion  = lipgloss.NewStyle().Foreground(cGold).Bold(true)
	styleDim      = lipgloss.NewStyle().Foreground(cLightGray)
	styleCritical = lipgloss.NewStyle().Foreground(cRed).Bold(true)

	styleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cGray).
			Padding(0, 1)
)

// noteRenderer returns a function that renders release notes for format.
// "plain" wraps text only; anything else goes through glamour with a style
// picked for the terminal background.
func noteRenderer(format string, width int) func(string) string {
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	style := strings.ToLower(strings.TrimSpace(format))
	switch style {
	case "plain":
		return fallback
	case "", "rich":
		style = "light"
		if termenv.HasDarkBackground() {
			style = "dark"
		}
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}

// versionLine renders "current → latest", flagging critical updates.
func versionLine(info *update.UpdateInfo) string {
	line := fmt.Sprintf("%s %s %s",
		styleDim.Render(info.CurrentVersion.String()),
		styleDim.Render("→"),
		styleVersion.Render(info.LatestVersion.String()))
	if info.IsCritical {
		line += "  " + styleCritical.Render("critical")
	}
	return line
}

// Summary renders a non-interactive description of info, for pipes and logs.
func Summary(info *update.UpdateInfo, format string, width int) string {
	if info == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Update available: %s -> %s", info.CurrentVersion, info.LatestVersion)
	if info.IsCritical {
		b.WriteString(" (critical)")
	}
	b.WriteString("\n")
	if notes := strings.TrimSpace(info.ReleaseNotes); notes != "" {
		b.WriteString("\n")
		b.WriteString(noteRenderer(format, width)(notes))
		b.WriteString("\n")
	}
	if info.UpdateURL != "" {
		fmt.Fprintf(&b, "\n%s\n", info.UpdateURL)
	}
	return b.String()
}
