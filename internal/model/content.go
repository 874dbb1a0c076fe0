// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// =============================================================================
// BLOCK TYPE
// =============================================================================

// BlockKind tags the two cases of a content block.
type BlockKind string

const (
	BlockText  BlockKind = "text"
	BlockImage BlockKind = "image"
)

// Block is one typed fragment of a multimodal message. Text is set for
// BlockText, URL (a data URI or remote URL) for BlockImage.
type Block struct {
	Kind BlockKind
	Text string
	URL  string
}

// TextBlock returns a text block.
func TextBlock(text string) Block {
	return Block{Kind: BlockText, Text: text}
}

// ImageBlock returns an image block pointing at url.
func ImageBlock(url string) Block {
	return Block{Kind: BlockImage, URL: url}
}

// =============================================================================
// CONTENT TYPE
// =============================================================================

// Content is the body of a message: either plain text or an ordered block
// sequence. The zero value is empty plain text.
//
// Content values are immutable. Append returns a new value and never writes
// into storage shared with the receiver, so a Content can be handed to
// another goroutine while the stream keeps growing the original message.
type Content struct {
	blocks   []Block
	text     string
	isBlocks bool
}

// PlainText returns text-only content.
func PlainText(text string) Content {
	return Content{text: text}
}

// Blocks returns block-sequence content.
func Blocks(blocks ...Block) Content {
	cp := make([]Block, len(blocks))
	copy(cp, blocks)
	return Content{blocks: cp, isBlocks: true}
}

// IsBlocks reports whether c is a block sequence.
func (c Content) IsBlocks() bool {
	return c.isBlocks
}

// Blocks returns a copy of the block sequence, or nil for plain text.
func (c Content) Blocks() []Block {
	if !c.isBlocks {
		return nil
	}
	cp := make([]Block, len(c.blocks))
	copy(cp, c.blocks)
	return cp
}

// Text returns the textual part of c. For block sequences the text blocks
// are joined with blank lines.
func (c Content) Text() string {
	if !c.isBlocks {
		return c.text
	}
	var parts []string
	for _, b := range c.blocks {
		if b.Kind == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Images returns the urls of the image blocks in order.
func (c Content) Images() []string {
	var urls []string
	for _, b := range c.blocks {
		if b.Kind == BlockImage {
			urls = append(urls, b.URL)
		}
	}
	return urls
}

// IsEmpty reports whether c carries no text and no blocks.
func (c Content) IsEmpty() bool {
	if c.isBlocks {
		return len(c.blocks) == 0
	}
	return c.text == ""
}

// Append merges a streamed token into c. Plain text is concatenated. For a
// block sequence the token extends the trailing text block, or becomes a new
// text block when the sequence is empty or ends with an image.
func (c Content) Append(token string) Content {
	if !c.isBlocks {
		return Content{text: c.text + token}
	}

	n := len(c.blocks)
	if n > 0 && c.blocks[n-1].Kind == BlockText {
		out := make([]Block, n)
		copy(out, c.blocks)
		out[n-1].Text += token
		return Content{blocks: out, isBlocks: true}
	}

	out := make([]Block, n, n+1)
	copy(out, c.blocks)
	out = append(out, TextBlock(token))
	return Content{blocks: out, isBlocks: true}
}

// Equal reports whether c and other hold the same case and value.
func (c Content) Equal(other Content) bool {
	if c.isBlocks != other.isBlocks {
		return false
	}
	if !c.isBlocks {
		return c.text == other.text
	}
	if len(c.blocks) != len(other.blocks) {
		return false
	}
	for i := range c.blocks {
		if c.blocks[i] != other.blocks[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (c Content) String() string {
	return c.Text()
}

// ComposeContent converts a composed user turn into message content: plain
// text when there are no images, otherwise a text block (only when the
// trimmed text is non-empty) followed by one image block per image in
// attachment order.
func ComposeContent(text string, images []string) Content {
	if len(images) == 0 {
		return PlainText(text)
	}
	blocks := make([]Block, 0, len(images)+1)
	if strings.TrimSpace(text) != "" {
		blocks = append(blocks, TextBlock(text))
	}
	for _, img := range images {
		blocks = append(blocks, ImageBlock(img))
	}
	return Content{blocks: blocks, isBlocks: true}
}

// =============================================================================
// WIRE FORMAT
// =============================================================================

// Parts returns the block sequence as OpenAI chat message parts.
func (c Content) Parts() []openai.ChatMessagePart {
	parts := make([]openai.ChatMessagePart, 0, len(c.blocks))
	for _, b := range c.blocks {
		switch b.Kind {
		case BlockText:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: b.Text,
			})
		case BlockImage:
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: b.URL},
			})
		}
	}
	return parts
}

// contentFromParts is the inverse of Parts. Unknown part types are dropped.
func contentFromParts(parts []openai.ChatMessagePart) Content {
	blocks := make([]Block, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case openai.ChatMessagePartTypeText:
			blocks = append(blocks, TextBlock(p.Text))
		case openai.ChatMessagePartTypeImageURL:
			if p.ImageURL != nil {
				blocks = append(blocks, ImageBlock(p.ImageURL.URL))
			}
		}
	}
	return Content{blocks: blocks, isBlocks: true}
}

// MarshalJSON encodes plain text as a JSON string and block sequences as the
// OpenAI content-part array.
func (c Content) MarshalJSON() ([]byte, error) {
	if !c.isBlocks {
		return json.Marshal(c.text)
	}
	return json.Marshal(c.Parts())
}

// UnmarshalJSON accepts either a JSON string or a content-part array.
// null decodes to empty plain text.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Content{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("failed to decode text content: %w", err)
		}
		*c = PlainText(s)
		return nil
	case '[':
		var parts []openai.ChatMessagePart
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return fmt.Errorf("failed to decode content parts: %w", err)
		}
		*c = contentFromParts(parts)
		return nil
	default:
		return fmt.Errorf("content must be a string or an array, got %q", trimmed[0])
	}
}
