// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/flurchat/internal/ui/styles"
)

// init matches the lipgloss color profile to the output terminal.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(16)

	// ValueStyle is used for regular values
	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	// SuccessStyle is used for OK statuses
	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	// ErrorStyle is used for error messages
	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	// WarningStyle is used for warnings
	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// DimStyle is used for hints and secondary text
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	// SeparatorStyle is used for horizontal rules
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(styles.Overlay)

	// Role labels in transcripts
	userLabelStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(styles.Purple).
				Bold(true)

	systemLabelStyle = lipgloss.NewStyle().
				Foreground(styles.TextSecondary).
				Italic(true)

	// REPL prompt
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal rule, 60 cells wide by default.
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("─", w))
}

// RenderLabel renders "label  value" with the label column padded.
func RenderLabel(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}

// RenderStatus renders a bracketed status indicator.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success":
		return SuccessStyle.Render(styles.StatusIndicators.Success)
	case "error", "fail", "failed":
		return ErrorStyle.Render(styles.StatusIndicators.Error)
	case "warning", "warn":
		return WarningStyle.Render(styles.StatusIndicators.Warning)
	default:
		return DimStyle.Render("[" + strings.ToUpper(status) + "]")
	}
}
