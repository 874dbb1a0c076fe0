// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/flurchat/internal/model"
)

func sampleConversation() *model.Conversation {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	msgs := []model.Message{
		model.NewUserMessage("What does this show?", []string{"data:image/png;base64,iVBORw0KGgo="}),
		model.NewAssistantMessage("A chart.\n\nTry:\n\n```go\nfmt.Println(\"hi\")\n```"),
	}
	for i := range msgs {
		msgs[i].ID = model.NewMessageID()
		msgs[i].Timestamp = at.Add(time.Duration(i) * time.Second)
	}
	return &model.Conversation{
		ID:        "c0ffee",
		Title:     "Chart question",
		CreatedAt: at,
		Messages:  msgs,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"markdown", FormatMarkdown},
		{"MD", FormatMarkdown},
		{".md", FormatMarkdown},
		{"json", FormatJSON},
		{"html", FormatHTML},
		{"htm", FormatHTML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleConversation())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: Chart question\n"))
	assert.Contains(t, md, "# Chart question")
	assert.Contains(t, md, "### [You] <sub>09:26:53</sub>")
	assert.Contains(t, md, "### [Assistant] <sub>09:26:54</sub>")
	assert.Contains(t, md, "What does this show?")
	assert.Contains(t, md, "*[1 image attached]*")
	assert.Contains(t, md, "```go\nfmt.Println(\"hi\")\n```")
	assert.NotContains(t, md, "base64", "image data stays out of markdown")
}

func TestMarkdownExport_WithoutMetadata(t *testing.T) {
	opts := &Options{}
	out, err := NewMarkdownExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Chart question"))
	assert.Contains(t, md, "### [You]\n")
	assert.NotContains(t, md, "<sub>")
}

func TestMarkdownExport_TitleCannotInjectFrontmatter(t *testing.T) {
	conv := sampleConversation()
	conv.Title = "Test\nInjection: malicious"

	out, err := NewMarkdownExporter(nil).Export(conv)
	require.NoError(t, err)

	for _, line := range strings.Split(string(out), "\n") {
		assert.False(t, strings.HasPrefix(line, "Injection:"), "title newline leaked into frontmatter")
	}
	assert.Contains(t, string(out), `title: "Test\nInjection: malicious"`)
}

func TestDocumentFormatsRejectEmpty(t *testing.T) {
	empty := &model.Conversation{Title: "Nothing"}

	_, err := NewMarkdownExporter(nil).Export(empty)
	assert.ErrorIs(t, err, ErrEmptyConversation)
	_, err = NewHTMLExporter(nil).Export(empty)
	assert.ErrorIs(t, err, ErrEmptyConversation)
	_, err = NewMarkdownExporter(nil).Export(nil)
	assert.ErrorIs(t, err, ErrNilConversation)
}

func TestJSONExport_ReadsBackAsConversation(t *testing.T) {
	conv := sampleConversation()
	out, err := NewJSONExporter(nil).Export(conv)
	require.NoError(t, err)

	var back model.Conversation
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, conv.ID, back.ID)
	assert.Equal(t, conv.Title, back.Title)
	assert.True(t, conv.CreatedAt.Equal(back.CreatedAt))
	require.Len(t, back.Messages, 2)
	for i := range conv.Messages {
		assert.Equal(t, conv.Messages[i].ID, back.Messages[i].ID)
		assert.Equal(t, conv.Messages[i].Role, back.Messages[i].Role)
		assert.Equal(t, conv.Messages[i].Text(), back.Messages[i].Text())
	}
	assert.Equal(t, 1, back.Messages[0].ImageCount())

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &meta))
	assert.Equal(t, Generator, meta["generator"])
}

func TestJSONExport_EmptyConversation(t *testing.T) {
	out, err := NewJSONExporter(nil).Export(&model.Conversation{Title: "Nothing"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"messages": []`)
}

func TestHTMLExport(t *testing.T) {
	out, err := NewHTMLExporter(nil).Export(sampleConversation())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<title>Chart question</title>")
	assert.Contains(t, page, `<body class="dark-theme">`)
	assert.Contains(t, page, `<div class="message user-message">`)
	assert.Contains(t, page, `<img src="data:image/png;base64,iVBORw0KGgo=" alt="attached image">`)
	assert.Contains(t, page, `<div class="code-lang">go</div>`)
	assert.Contains(t, page, "fmt.Println(&#34;hi&#34;)")
}

func TestHTMLExport_LightTheme(t *testing.T) {
	opts := DefaultOptions()
	opts.Theme = "light"
	out, err := NewHTMLExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	assert.Contains(t, string(out), `<body class="light-theme">`)
}

func TestHTMLExport_EscapesContent(t *testing.T) {
	conv := sampleConversation()
	conv.Title = "<b>bold</b>"
	conv.Messages[1] = model.NewAssistantMessage("```<script>alert('xss')</script>\ncode here\n```")

	out, err := NewHTMLExporter(nil).Export(conv)
	require.NoError(t, err)
	page := string(out)

	assert.NotContains(t, page, "<script>alert")
	assert.Contains(t, page, "&lt;script&gt;")
	assert.Contains(t, page, "<title>&lt;b&gt;bold&lt;/b&gt;</title>")
}

func TestHTMLExport_SkipsUnsafeImageSources(t *testing.T) {
	conv := sampleConversation()
	conv.Messages[0] = model.NewUserMessage("look", []string{"javascript:alert(1)"})

	out, err := NewHTMLExporter(nil).Export(conv)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "javascript:")
	assert.Contains(t, string(out), "[1 image attached]")
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = filepath.Join(dir, "exports")

	conv := sampleConversation()
	conv.Title = "a/b: c?"
	path, err := ExportToFile(conv, NewMarkdownExporter(opts), opts)
	require.NoError(t, err)

	assert.Equal(t, opts.OutputDir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "conversation_a-b-_c-_"))
	assert.Equal(t, ".md", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "What does this show?")
}

func TestWriteFile_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	got, err := WriteFile(sampleConversation(), NewJSONExporter(nil), path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.FileExists(t, path)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "conversation", sanitizeFilename("   "))
	assert.Equal(t, "a-b_c", sanitizeFilename("a/b c"))
	assert.Equal(t, "x-y", sanitizeFilename("x\x01y"))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("é", 80))), 50)
}

func TestExportedTime_FallsBackToFirstMessage(t *testing.T) {
	conv := sampleConversation()
	first := conv.Messages[0].Timestamp
	conv.CreatedAt = time.Time{}
	assert.True(t, exportedTime(conv).Equal(first))
}
