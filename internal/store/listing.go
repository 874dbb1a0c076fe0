// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/flurchat/internal/util"
)

// Titles of the synthetic unsaved-buffer entry.
const (
	CurrentTitle = "Current Conversation"
	EmptyTitle   = "No Conversation"
)

// entryPreviewRunes bounds the last-message preview of the current entry.
const entryPreviewRunes = 50

// ChatEntry is one row of the conversation list: the unsaved buffer first,
// then every saved conversation.
type ChatEntry struct {
	ID        string
	Title     string
	Detail    string // message count for the current entry, save time otherwise
	Preview   string
	CreatedAt time.Time
	Current   bool // the unsaved-buffer entry
	Active    bool // the entry shown in the active list
}

// ChatEntries lists the unsaved buffer and the saved conversations whose
// title contains query, compared case-insensitively. An empty query keeps
// every entry.
func (s *Store) ChatEntries(query string) []ChatEntry {
	return Entries(s.State(), query)
}

// Entries builds the conversation list for st.
func Entries(st State, query string) []ChatEntry {
	entries := make([]ChatEntry, 0, len(st.Conversations)+1)

	current := ChatEntry{
		ID:      CurrentTarget,
		Title:   EmptyTitle,
		Detail:  "—",
		Preview: "No messages yet",
		Current: true,
		Active:  st.ActiveConversationID == "",
	}
	if n := len(st.UnsavedMessages); n > 0 {
		current.Title = CurrentTitle
		current.Detail = MessageCountLabel(n)
		last := st.UnsavedMessages[n-1]
		current.Preview = fmt.Sprintf("%s: %s", last.Role,
			util.TruncateRunes(util.SingleLine(last.Text()), entryPreviewRunes))
	}
	entries = append(entries, current)

	for _, c := range st.Conversations {
		entries = append(entries, ChatEntry{
			ID:        c.ID,
			Title:     c.Title,
			Detail:    c.CreatedAt.Local().Format("2006-01-02 15:04"),
			Preview:   c.Preview(entryPreviewRunes),
			CreatedAt: c.CreatedAt,
			Active:    c.ID == st.ActiveConversationID,
		})
	}

	q := strings.ToLower(query)
	if q == "" {
		return entries
	}
	filtered := entries[:0]
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), q) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// MessageCountLabel formats n as "1 message" or "N messages".
func MessageCountLabel(n int) string {
	if n == 1 {
		return "1 message"
	}
	return fmt.Sprintf("%d messages", n)
}
