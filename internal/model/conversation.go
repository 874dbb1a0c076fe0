// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TitleMaxRunes is the length a derived conversation title is cut to.
const TitleMaxRunes = 50

// DefaultTitle is used when no message text is available for a title.
const DefaultTitle = "Conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a saved snapshot of a message list.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages"`
}

// NewConversationID returns a fresh unique conversation identifier.
func NewConversationID() string {
	return uuid.NewString()
}

// MessageCount returns the number of messages in the conversation.
func (c Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if the conversation has no messages.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Preview returns a short preview of the first user message.
func (c Conversation) Preview(maxLen int) string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			return msg.Preview(maxLen)
		}
	}
	return ""
}

// DeriveTitle returns the title a conversation gets when saved without an
// override: the first user message's text cut to TitleMaxRunes runes, or
// DefaultTitle when there is no user message or its text is blank.
func DeriveTitle(messages []Message) string {
	return DeriveTitleN(messages, TitleMaxRunes)
}

// DeriveTitleN is DeriveTitle with a configurable length.
func DeriveTitleN(messages []Message, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = TitleMaxRunes
	}
	for _, msg := range messages {
		if msg.Role != RoleUser {
			continue
		}
		text := strings.TrimSpace(msg.Text())
		if text == "" {
			return DefaultTitle
		}
		runes := []rune(text)
		if len(runes) > maxRunes {
			runes = runes[:maxRunes]
		}
		return string(runes)
	}
	return DefaultTitle
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func truncatePreview(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
