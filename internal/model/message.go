// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry of a conversation.
//
// ID and Role never change after creation. Content only grows, and only on
// the last assistant message of the active list while a reply streams in.
type Message struct {
	ID      string  `json:"id"`
	Role    Role    `json:"role"`
	Content Content `json:"content"`

	// Images keeps the attached image urls for previews. The block content
	// is what gets sent.
	Images []string `json:"images,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// NewMessageID returns a fresh unique message identifier.
func NewMessageID() string {
	return uuid.NewString()
}

// NewUserMessage builds a user turn from composed text and image urls.
// ID and Timestamp are left for the store to assign.
func NewUserMessage(text string, images []string) Message {
	msg := Message{
		Role:    RoleUser,
		Content: ComposeContent(text, images),
	}
	if len(images) > 0 {
		msg.Images = append([]string(nil), images...)
	}
	return msg
}

// NewAssistantMessage builds an assistant message holding text.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: PlainText(text)}
}

// Text returns the textual content of the message.
func (m Message) Text() string {
	return m.Content.Text()
}

// ImageCount returns the number of images attached to the message.
func (m Message) ImageCount() int {
	if n := len(m.Content.Images()); n > 0 {
		return n
	}
	return len(m.Images)
}

// Preview returns a truncated single-line preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	return truncatePreview(m.Text(), maxLen)
}

// =============================================================================
// API PAYLOAD
// =============================================================================

// APIMessage is one entry of the outbound chat payload.
type APIMessage struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// OpenAI converts m to the go-openai wire type.
func (m APIMessage) OpenAI() openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{Role: string(m.Role)}
	if m.Content.IsBlocks() {
		msg.MultiContent = m.Content.Parts()
	} else {
		msg.Content = m.Content.Text()
	}
	return msg
}
