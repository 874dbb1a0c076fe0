// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/flurchat/internal/stream"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.layout()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		m.refreshViewport()
		return m, nil

	case StateChangedMsg:
		m.syncState()
		return m, tea.Batch(m.feed.Wait(), m.startSpinner())

	case SendFinishedMsg:
		m.sending = false
		m.handleSendResult(msg.Result)
		m.syncState()
		return m, nil

	case CancelledMsg:
		m.setNotice("Cancelled.", false)
		m.syncState()
		return m, nil

	case NoticeMsg:
		m.setNotice(msg.Text, msg.Error)
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startSpinner starts the spinner tick loop when a send is running.
func (m *Model) startSpinner() tea.Cmd {
	if !m.busy() || m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// handleSendResult reports how a send ended. Failures are already written
// into the conversation by the session.
func (m *Model) handleSendResult(res stream.Result) {
	switch res.Phase {
	case stream.PhaseDone:
		m.clearNotice()
	case stream.PhaseCancelled:
		m.setNotice("Cancelled.", false)
	case stream.PhaseFailed:
		m.setNotice(fmt.Sprintf("Send failed: %v", res.Err), true)
		m.logger.Warn().Err(res.Err).Msg("send failed")
	}
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.session != nil && m.session.InFlight() {
			return m, m.cancelCmd()
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.panel != "" {
			m.closePanel()
			return m, nil
		}
		m.showPanel(m.renderKeyHelp())
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m.runCommand("/new")

	case key.Matches(msg, m.keys.ToggleSide):
		m.showSidebar = !m.showSidebar
		if !m.sidebarVisible() && m.focus == focusSidebar {
			m.focusInputArea()
		}
		m.layout()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

// cancelCmd cancels the running send off the UI goroutine, since Cancel
// waits for the stream to unwind.
func (m Model) cancelCmd() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		session.Cancel()
		return CancelledMsg{}
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submitInput()

	case key.Matches(msg, m.keys.Complete):
		if m.completeInput() {
			return m, nil
		}
		if m.sidebarVisible() {
			m.focusSidebarArea()
		}
		return m, nil

	case msg.Type == tea.KeyShiftTab && m.completion.Visible:
		m.completion.Prev()
		return m, nil

	case key.Matches(msg, m.keys.Back):
		switch {
		case m.completion.Visible:
			m.completion.Clear()
		case m.session != nil && m.session.InFlight():
			return m, m.cancelCmd()
		case m.panel != "":
			m.closePanel()
		default:
			m.clearNotice()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.completion.Clear()
	return m, cmd
}
