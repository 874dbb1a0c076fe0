// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/flurchat/internal/store"
)

// formatDuration renders d for humans: "850ms", "4.2s", "2m05s".
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		return fmt.Sprintf("%dm%02ds", m, s)
	}
}

// formatAge renders t relative to now ("3 hours ago"), or "—" for zero.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return humanize.Time(t)
}

// activeTitle names the conversation in the active list.
func activeTitle(st store.State) string {
	if conv, ok := st.Conversation(st.ActiveConversationID); ok {
		return conv.Title
	}
	if len(st.UnsavedMessages) > 0 {
		return store.CurrentTitle
	}
	return "New conversation"
}
