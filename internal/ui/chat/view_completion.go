// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/flurchat/internal/commands"
)

// maxVisibleCompletions bounds the completion row.
const maxVisibleCompletions = 8

// =============================================================================
// COMPLETION ROW RENDERING
// =============================================================================

// renderCompletions renders the completion candidates on one row, the
// selected one highlighted. Empty when nothing is being completed.
func (m Model) renderCompletions() string {
	if !m.completion.Visible || len(m.completion.Completions) == 0 {
		return ""
	}

	comps := m.completion.Completions
	start := 0
	if m.completion.Selected >= maxVisibleCompletions {
		start = m.completion.Selected - maxVisibleCompletions + 1
	}

	var items []string
	width := 0
	for i := start; i < len(comps) && i < start+maxVisibleCompletions; i++ {
		text := comps[i].Display
		if text == "" {
			text = comps[i].Value
		}
		style := m.theme.Completion
		if i == m.completion.Selected {
			style = m.theme.CompletionSel
		}
		item := style.Render(" " + text + " ")
		if width+lipgloss.Width(item) > m.width && len(items) > 0 {
			break
		}
		width += lipgloss.Width(item)
		items = append(items, item)
	}
	return strings.Join(items, "")
}

// registryHelp returns the slash-command section of the help panel.
func (m Model) registryHelp() string {
	return commands.GenerateHelpText(m.registry)
}
