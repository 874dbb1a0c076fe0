// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/flurchat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}
	if len(conv.Messages) == 0 {
		return nil, ErrEmptyConversation
	}
	created := exportedTime(conv)

	var sb strings.Builder

	// YAML frontmatter
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(conv.Title))
		if conv.ID != "" {
			fmt.Fprintf(&sb, "id: %s\n", escapeYAML(conv.ID))
		}
		if !created.IsZero() {
			fmt.Fprintf(&sb, "date: %s\n", created.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(conv.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", time.Now().Format(time.RFC3339))
		fmt.Fprintf(&sb, "generator: %s\n", Generator)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(conv.Title))

	if e.options.IncludeMetadata {
		if !created.IsZero() {
			fmt.Fprintf(&sb, "- **Created**: %s\n", formatTimestamp(created))
		}
		fmt.Fprintf(&sb, "- **Messages**: %d\n", len(conv.Messages))
		if n := countImages(conv.Messages); n > 0 {
			fmt.Fprintf(&sb, "- **Images**: %d\n", n)
		}
		sb.WriteString("\n---\n\n")
	}

	for i, msg := range conv.Messages {
		label := formatRoleLabel(msg.Role)
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		if text := strings.TrimSpace(msg.Text()); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
		if n := msg.ImageCount(); n > 0 {
			fmt.Fprintf(&sb, "*[%s]*\n\n", imageNote(n))
		}

		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Exported from %s on %s*\n", Generator,
		time.Now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatRoleLabel returns a heading label for the message role.
func formatRoleLabel(role model.Role) string {
	if role == "" {
		return "Unknown"
	}
	return "[" + role.DisplayName() + "]"
}

func countImages(messages []model.Message) int {
	n := 0
	for _, msg := range messages {
		n += msg.ImageCount()
	}
	return n
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes the characters that break a heading.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return strings.ReplaceAll(s, "\n", " ")
}

// escapeYAML quotes a frontmatter value when it could be misread.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
