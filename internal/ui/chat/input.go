// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/flurchat/internal/commands"
	"github.com/jeranaias/flurchat/internal/stream"
)

// =============================================================================
// SUBMIT
// =============================================================================

// submitInput runs a slash command or sends the composed message together
// with any pending attachments.
func (m Model) submitInput() (Model, tea.Cmd) {
	if m.completion.Visible {
		m.acceptCompletion()
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if commands.IsCommand(text) {
		m.input.Reset()
		return m.runCommand(text)
	}

	// The composer is disabled while a reply streams
	if m.busy() {
		m.setNotice(commands.ErrBusy.Error(), true)
		return m, nil
	}
	if m.session == nil {
		m.setNotice("No chat endpoint is configured.", true)
		return m, nil
	}
	if text == "" && m.attachments.Len() == 0 {
		return m, nil
	}

	turn := stream.Turn{Text: text, Images: m.attachments.Take()}
	m.input.Reset()
	m.clearNotice()
	m.closePanel()
	m.sending = true
	m.logger.Debug().Int("images", len(turn.Images)).Msg("sending message")
	return m, m.sendCmd(turn)
}

// sendCmd streams the reply on a command goroutine. Progress reaches the
// view through the store subscription; the result arrives as
// SendFinishedMsg.
func (m Model) sendCmd(turn stream.Turn) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return SendFinishedMsg{Result: session.Send(ctx, turn)}
	}
}

// runCommand executes a slash command and shows its outcome. Output of
// more than one line opens in the conversation area until Esc.
func (m Model) runCommand(input string) (Model, tea.Cmd) {
	out := m.registry.Execute(m.env, input)
	if out.Quit {
		m.quitting = true
		return m, tea.Quit
	}

	m.closePanel()
	switch {
	case out.Err != nil:
		m.setNotice(out.Err.Error(), true)
	case strings.Contains(out.Output, "\n"):
		m.clearNotice()
		m.syncState()
		m.showPanel(out.Output)
		return m, nil
	default:
		m.setNotice(out.Output, false)
	}
	m.syncState()
	return m, nil
}
