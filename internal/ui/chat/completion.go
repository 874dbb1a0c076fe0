// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/flurchat/internal/commands"
)

// =============================================================================
// TAB COMPLETION
// =============================================================================

// completeInput handles Tab in the composer. It returns false when the
// input is not a slash command, so Tab can move focus instead.
func (m *Model) completeInput() bool {
	value := m.input.Value()
	if !commands.IsCommand(value) {
		return false
	}

	if m.completion.Visible {
		m.completion.Next()
		return true
	}

	completions := m.completer.Complete(value, len(value))
	switch len(completions) {
	case 0:
		m.setNotice("No completions.", false)
	case 1:
		m.input.SetValue(commands.ApplyCompletion(value, completions[0].Value))
		m.input.CursorEnd()
		m.completion.Clear()
	default:
		m.completion.Update(completions)
	}
	return true
}

// acceptCompletion applies the selected completion to the input.
func (m *Model) acceptCompletion() {
	value := m.completion.Accept()
	m.completion.Clear()
	if value == "" {
		return
	}
	m.input.SetValue(commands.ApplyCompletion(m.input.Value(), value))
	m.input.CursorEnd()
}
