// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CONTENT TESTS
// =============================================================================

func TestContent_AppendPlain(t *testing.T) {
	c := PlainText("Hel").Append("lo")
	assert.False(t, c.IsBlocks())
	assert.Equal(t, "Hello", c.Text())
}

func TestContent_AppendBlocks(t *testing.T) {
	tests := []struct {
		name string
		in   Content
		want []Block
	}{
		{
			name: "extends trailing text block",
			in:   Blocks(ImageBlock("data:a"), TextBlock("Hel")),
			want: []Block{ImageBlock("data:a"), TextBlock("Hello")},
		},
		{
			name: "new text block after image",
			in:   Blocks(TextBlock("look"), ImageBlock("data:a")),
			want: []Block{TextBlock("look"), ImageBlock("data:a"), TextBlock("lo")},
		},
		{
			name: "new text block on empty sequence",
			in:   Blocks(),
			want: []Block{TextBlock("lo")},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Append("lo").Blocks())
		})
	}
}

func TestContent_AppendDoesNotMutateReceiver(t *testing.T) {
	base := Blocks(TextBlock("a"), ImageBlock("u"))
	grown := base.Append("b")
	extended := grown.Append("c")

	assert.Len(t, base.Blocks(), 2)
	assert.Equal(t, []Block{TextBlock("a"), ImageBlock("u"), TextBlock("b")}, grown.Blocks())
	assert.Equal(t, []Block{TextBlock("a"), ImageBlock("u"), TextBlock("bc")}, extended.Blocks())
}

func TestComposeContent(t *testing.T) {
	t.Run("text only is plain", func(t *testing.T) {
		c := ComposeContent("hello", nil)
		assert.False(t, c.IsBlocks())
		assert.Equal(t, "hello", c.Text())
	})

	t.Run("text and images", func(t *testing.T) {
		c := ComposeContent("describe", []string{"data:1", "data:2"})
		require.True(t, c.IsBlocks())
		assert.Equal(t, []Block{TextBlock("describe"), ImageBlock("data:1"), ImageBlock("data:2")}, c.Blocks())
	})

	t.Run("blank text with image drops the text block", func(t *testing.T) {
		c := ComposeContent("   ", []string{"data:1"})
		assert.Equal(t, []Block{ImageBlock("data:1")}, c.Blocks())
	})
}

func TestContent_JSON(t *testing.T) {
	plain, err := json.Marshal(PlainText("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `"hi"`, string(plain))

	blocks, err := json.Marshal(Blocks(TextBlock("describe"), ImageBlock("data:image/png;base64,AA")))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"text","text":"describe"},
		{"type":"image_url","image_url":{"url":"data:image/png;base64,AA"}}
	]`, string(blocks))

	var decoded Content
	require.NoError(t, json.Unmarshal(blocks, &decoded))
	assert.True(t, decoded.Equal(Blocks(TextBlock("describe"), ImageBlock("data:image/png;base64,AA"))))

	require.NoError(t, json.Unmarshal([]byte(`null`), &decoded))
	assert.True(t, decoded.Equal(PlainText("")))

	assert.Error(t, json.Unmarshal([]byte(`42`), &decoded))
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestRole(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("tool").Valid())
	assert.Equal(t, "You", RoleUser.DisplayName())
}

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("describe", []string{"data:1", "data:2"})
	assert.Equal(t, RoleUser, msg.Role)
	assert.Len(t, msg.Content.Blocks(), 3)
	assert.Equal(t, []string{"data:1", "data:2"}, msg.Images)
	assert.Equal(t, 2, msg.ImageCount())
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	msg := NewUserMessage("describe", []string{"data:1"})
	msg.ID = "m1"

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, RoleUser, got.Role)
	assert.True(t, got.Content.Equal(msg.Content))
}

func TestAPIMessage_OpenAI(t *testing.T) {
	plain := APIMessage{Role: RoleSystem, Content: PlainText("be nice")}.OpenAI()
	assert.Equal(t, "system", plain.Role)
	assert.Equal(t, "be nice", plain.Content)
	assert.Empty(t, plain.MultiContent)

	multi := APIMessage{Role: RoleUser, Content: ComposeContent("x", []string{"u"})}.OpenAI()
	assert.Empty(t, multi.Content)
	require.Len(t, multi.MultiContent, 2)
	assert.Equal(t, "u", multi.MultiContent[1].ImageURL.URL)
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestDeriveTitle(t *testing.T) {
	long := strings.Repeat("ü", 80)
	tests := []struct {
		name     string
		messages []Message
		want     string
	}{
		{"empty", nil, DefaultTitle},
		{"first user text", []Message{NewUserMessage("Hello there", nil)}, "Hello there"},
		{"truncated to 50 runes", []Message{NewUserMessage(long, nil)}, strings.Repeat("ü", 50)},
		{"image only falls back", []Message{NewUserMessage("", []string{"u"})}, DefaultTitle},
		{"image-only first turn does not borrow later text",
			[]Message{NewUserMessage("", []string{"u"}), NewUserMessage("later", nil)}, DefaultTitle},
		{"skips assistant", []Message{NewAssistantMessage("hi"), NewUserMessage("question", nil)}, "question"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveTitle(tc.messages))
		})
	}
}

func TestConversation_Preview(t *testing.T) {
	conv := Conversation{Messages: []Message{
		NewAssistantMessage("welcome"),
		NewUserMessage("a fairly long\nquestion about things", nil),
	}}
	assert.Equal(t, "a fairly...", conv.Preview(11))
	assert.Equal(t, 2, conv.MessageCount())
}
