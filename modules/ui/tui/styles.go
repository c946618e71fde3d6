package tui

import (
	"github.com/charmbracelet/lipgloss"

	"panetree/modules/core/tree"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Orange
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorText      = lipgloss.Color("#F9FAFB") // Light
	ColorBgAlt     = lipgloss.Color("#1F2937") // Dark alt
)

var (
	// Header
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	HeaderBlurredStyle = lipgloss.NewStyle().
				Foreground(ColorMuted)

	BranchStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	ModeTagStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Rows
	DirStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	FileStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SelectedStyle = lipgloss.NewStyle().
			Background(ColorBgAlt).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	MessageStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)
)

// statusStyles colors the one-letter git markers
var statusStyles = map[tree.GitStatus]lipgloss.Style{
	tree.StatusModified:  lipgloss.NewStyle().Foreground(ColorWarning),
	tree.StatusAdded:     lipgloss.NewStyle().Foreground(ColorSuccess),
	tree.StatusDeleted:   lipgloss.NewStyle().Foreground(ColorError),
	tree.StatusUntracked: lipgloss.NewStyle().Foreground(ColorMuted),
	tree.StatusRenamed:   lipgloss.NewStyle().Foreground(ColorPrimary),
}

func statusMarker(s tree.GitStatus) string {
	if s == tree.StatusNone {
		return ""
	}
	return statusStyles[s].Render(s.Symbol()) + " "
}
