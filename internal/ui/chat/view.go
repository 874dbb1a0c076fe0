// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/flurchat/internal/model"
	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/stream"
	"github.com/jeranaias/flurchat/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View implements tea.Model.
// Layout: header (1) + body (viewport, sidebar beside it) + info lines +
// input (border + rows) + status (1).
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	body := m.viewport.View()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(m.viewport.Height), body)
	}

	parts := []string{m.renderHeader(), body}
	parts = append(parts, m.infoLines()...)
	parts = append(parts, m.renderInput(), m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := store.EmptyTitle
	if conv, ok := m.state.Conversation(m.state.ActiveConversationID); ok {
		title = conv.Title
	} else if len(m.state.Messages) > 0 {
		title = store.CurrentTitle
	}

	left := m.theme.HeaderTitle.Render("flurchat")
	right := m.theme.HeaderSubtitle.Render(util.TruncateWidth(title, max(m.width-14, 1)))
	return m.theme.Header.Width(m.width).Render(left + "  " + right)
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the active list for the viewport.
func (m Model) renderMessages() string {
	if len(m.state.Messages) == 0 {
		return m.renderEmptyState()
	}

	now := time.Now()
	blocks := make([]string, 0, len(m.state.Messages))
	for _, msg := range m.state.Messages {
		blocks = append(blocks, m.renderMessage(msg, now))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg model.Message, now time.Time) string {
	label := m.theme.AssistantLabel
	bubble := m.theme.AssistantBubble
	switch msg.Role {
	case model.RoleUser:
		label = m.theme.UserLabel
		bubble = m.theme.UserBubble
	case model.RoleSystem:
		label = m.theme.SystemLabel
	}

	head := label.Render(msg.Role.DisplayName())
	if ts := formatTimestamp(msg.Timestamp, now); ts != "" {
		head += "  " + m.theme.Timestamp.Render(ts)
	}

	width := calculateContentWidth(m.viewport.Width, 4)
	var body string
	switch {
	case msg.Role == model.RoleAssistant:
		body = m.markdown.render(msg.ID, msg.Text())
	default:
		body = wrapText(msg.Text(), width)
	}
	if msg.Text() == stream.FailureText || strings.HasSuffix(msg.Text(), "\n\n"+stream.FailureText) {
		bubble = bubble.BorderForeground(m.theme.ErrorNotice.GetForeground())
	}

	if n := msg.ImageCount(); n > 0 {
		tag := m.theme.ImageTag.Render(fmt.Sprintf("[%d image(s) attached]", n))
		if strings.TrimSpace(body) == "" {
			body = tag
		} else {
			body = tag + "\n" + body
		}
	}

	return head + "\n" + bubble.Render(body)
}

func (m Model) renderEmptyState() string {
	lines := []string{
		m.theme.Empty.Render("No messages yet."),
		"",
		m.theme.Notice.Render("Type a message and press Enter to send it."),
		m.theme.Notice.Render("/attach <image> adds a picture, /help lists every command."),
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// INFO LINES
// =============================================================================

// infoLines are the rows between the conversation and the composer:
// completions, the last notice and pending attachments.
func (m Model) infoLines() []string {
	var lines []string
	if line := m.renderCompletions(); line != "" {
		lines = append(lines, line)
	}
	if m.notice != "" {
		style := m.theme.Notice
		text := m.notice
		if m.noticeErr {
			style = m.theme.ErrorNotice
		}
		lines = append(lines, style.Render(util.TruncateWidth(util.SingleLine(text), max(m.width, 1))))
	}
	if m.attachments.Len() > 0 {
		text := fmt.Sprintf("Attached: %s  (/detach to remove)", strings.Join(m.attachments.Names(), ", "))
		lines = append(lines, m.theme.Attachment.Render(util.TruncateWidth(text, max(m.width, 1))))
	}
	return lines
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.viewport.Width).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.busy():
		phase := m.phase
		if !phase.IsTerminal() && phase != stream.PhaseIdle {
			left = m.spinner.View() + " " + strings.ToLower(phase.String()) + "..."
		} else {
			left = m.spinner.View() + " sending..."
		}
		left = m.theme.StatusBusy.Render(left)
	default:
		left = store.MessageCountLabel(len(m.state.Messages))
		if n := len(m.state.Conversations); n > 0 {
			left += fmt.Sprintf(" · %d saved", n)
		}
	}

	bindings := m.keys.ShortHelp()
	if m.focus == focusSidebar {
		bindings = m.keys.SidebarHelp()
	}
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, m.theme.StatusKey.Render(h.Key)+" "+h.Desc)
	}
	right := strings.Join(hints, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return m.theme.StatusBar.Width(m.width).Render(left)
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderKeyHelp lists key bindings and slash commands for the help panel.
func (m Model) renderKeyHelp() string {
	var sb strings.Builder
	sb.WriteString(m.theme.SidebarHeading.Render("Keys"))
	sb.WriteString("\n")
	for _, group := range m.keys.FullHelp() {
		for _, b := range group {
			h := b.Help()
			fmt.Fprintf(&sb, "  %s %s\n", padRight(h.Key, 12), h.Desc)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(m.registryHelp())
	sb.WriteString("\n\nPress F1 or Esc to close.")
	return sb.String()
}
