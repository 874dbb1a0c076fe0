// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the domain types shared by the store, the stream
// ingestion session and the storage backends.
//
// # Key Types
//
//   - Content: tagged variant holding either plain text or a block sequence
//   - Block: one text or image fragment of a multimodal message
//   - Message: single message with id, role, content and preview images
//   - Conversation: saved snapshot of a message list with a title
//   - APIMessage: one entry of the outbound chat payload
//   - Role: message role enumeration (user, assistant, system)
//
// # Usage
//
// Compose a multimodal user turn:
//
//	msg := model.NewUserMessage("describe", []string{img1, img2})
//	// msg.Content is [text, image, image]
//
// Grow a streamed reply:
//
//	c := model.PlainText("Hel")
//	c = c.Append("lo") // "Hello"
package model
