// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/ui/styles"
)

// linesPerEntry is the height of one sidebar row: title and detail.
const linesPerEntry = 2

// entries returns the sidebar rows for the current filter.
func (m Model) entries() []store.ChatEntry {
	return store.Entries(m.state, m.sidebar.filter)
}

// selectedEntry returns the highlighted row.
func (m Model) selectedEntry() (store.ChatEntry, bool) {
	entries := m.entries()
	if m.sidebar.selected < 0 || m.sidebar.selected >= len(entries) {
		return store.ChatEntry{}, false
	}
	return entries[m.sidebar.selected], true
}

func (m *Model) clampSelection() {
	n := len(m.entries())
	if m.sidebar.selected >= n {
		m.sidebar.selected = n - 1
	}
	if m.sidebar.selected < 0 {
		m.sidebar.selected = 0
	}
}

// =============================================================================
// SIDEBAR KEYS
// =============================================================================

func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.sidebar.filtering {
		m.handleFilterKey(msg)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.sidebar.selected > 0 {
			m.sidebar.selected--
		}

	case key.Matches(msg, m.keys.Down):
		if m.sidebar.selected < len(m.entries())-1 {
			m.sidebar.selected++
		}

	case key.Matches(msg, m.keys.Open):
		entry, ok := m.selectedEntry()
		if !ok {
			return m, nil
		}
		next, cmd := m.runCommand("/switch " + entry.ID)
		next.focusInputArea()
		return next, cmd

	case key.Matches(msg, m.keys.Delete):
		entry, ok := m.selectedEntry()
		if !ok {
			return m, nil
		}
		return m.runCommand("/delete " + entry.ID)

	case key.Matches(msg, m.keys.Filter):
		m.sidebar.filtering = true

	case key.Matches(msg, m.keys.Back):
		if m.sidebar.filter != "" {
			m.sidebar.filter = ""
			m.clampSelection()
			return m, nil
		}
		m.focusInputArea()

	case key.Matches(msg, m.keys.Complete):
		m.focusInputArea()
	}
	return m, nil
}

// handleFilterKey edits the title filter.
func (m *Model) handleFilterKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEsc:
		m.sidebar.filtering = false
		m.sidebar.filter = ""
	case tea.KeyEnter:
		m.sidebar.filtering = false
	case tea.KeyBackspace:
		if r := []rune(m.sidebar.filter); len(r) > 0 {
			m.sidebar.filter = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.sidebar.filter += " "
	case tea.KeyRunes:
		m.sidebar.filter += string(msg.Runes)
	}
	m.sidebar.selected = 0
}

// =============================================================================
// SIDEBAR RENDERING
// =============================================================================

// renderSidebar draws the conversation list at the given total height.
func (m Model) renderSidebar(height int) string {
	style := m.theme.Sidebar
	if m.focus == focusSidebar {
		style = m.theme.SidebarFocused
	}

	// border 2 + padding 2
	inner := styles.SidebarWidth - 4
	innerHeight := height - 2
	if innerHeight < 1 {
		innerHeight = 1
	}

	lines := []string{m.theme.SidebarHeading.Render("Conversations")}
	if m.sidebar.filtering || m.sidebar.filter != "" {
		filter := "/" + m.sidebar.filter
		if m.sidebar.filtering {
			filter += "_"
		}
		lines = append(lines, m.theme.SidebarFilter.Render(padRight(filter, inner)))
	}

	entries := m.entries()
	if len(entries) == 0 {
		lines = append(lines, m.theme.Empty.Render("No matches"))
	}

	// Scroll so the selection stays visible
	visible := (innerHeight - len(lines)) / linesPerEntry
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.sidebar.selected >= visible {
		start = m.sidebar.selected - visible + 1
	}

	for i := start; i < len(entries) && i < start+visible; i++ {
		e := entries[i]

		marker := "  "
		if e.Active {
			marker = "* "
		}
		title := padRight(marker+e.Title, inner)
		titleStyle := m.theme.SidebarItem
		switch {
		case i == m.sidebar.selected && m.focus == focusSidebar:
			titleStyle = m.theme.SidebarSelected
		case e.Active:
			titleStyle = m.theme.SidebarActive
		}

		detail := "  " + e.Detail
		if e.Preview != "" {
			detail += "  " + e.Preview
		}
		lines = append(lines,
			titleStyle.Render(title),
			m.theme.SidebarDetail.Render(padRight(detail, inner)),
		)
	}

	return style.
		Width(styles.SidebarWidth - 2).
		Height(innerHeight).
		Render(strings.Join(lines, "\n"))
}
