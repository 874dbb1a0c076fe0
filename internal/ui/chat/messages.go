// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/flurchat/internal/stream"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// StateChangedMsg reports that the store or the session changed. The model
// re-reads both when it arrives.
type StateChangedMsg struct{}

// SendFinishedMsg carries the result of a send.
type SendFinishedMsg struct {
	Result stream.Result
}

// CancelledMsg is sent when a cancel requested with Ctrl+C has unwound.
type CancelledMsg struct{}

// NoticeMsg shows a one-line notice above the input.
type NoticeMsg struct {
	Text  string
	Error bool
}
