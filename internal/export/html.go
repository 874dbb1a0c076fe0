// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/jeranaias/flurchat/internal/model"
)

var (
	codeBlockRegex  = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]*?)```")
	inlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}
	if len(conv.Messages) == 0 {
		return nil, ErrEmptyConversation
	}

	theme := "dark"
	if e.options.Theme == "light" {
		theme = "light"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(conv.Title))
	fmt.Fprintf(&sb, "    <meta name=\"generator\" content=\"%s\">\n", Generator)
	if created := exportedTime(conv); !created.IsZero() {
		fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", created.Format(time.RFC3339))
	}
	sb.WriteString(pageCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", theme)
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		e.renderHeader(&sb, conv)
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		e.renderMessage(&sb, msg)
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>%s</strong> on %s</p>\n",
		Generator, time.Now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(sb *strings.Builder, conv *model.Conversation) {
	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(sb, "            <h1>%s</h1>\n", html.EscapeString(conv.Title))
	sb.WriteString("            <div class=\"metadata\">\n")
	if created := exportedTime(conv); !created.IsZero() {
		fmt.Fprintf(sb, "                <span><strong>Created:</strong> %s</span>\n", formatTimestamp(created))
	}
	fmt.Fprintf(sb, "                <span><strong>Messages:</strong> %d</span>\n", len(conv.Messages))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
}

func (e *HTMLExporter) renderMessage(sb *strings.Builder, msg model.Message) {
	role := "unknown"
	if msg.Role.Valid() {
		role = msg.Role.String()
	}
	fmt.Fprintf(sb, "            <div class=\"message %s-message\">\n", role)

	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(sb, "                    <span class=\"role-label\">%s</span>\n", html.EscapeString(msg.Role.DisplayName()))
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		fmt.Fprintf(sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(formatContent(msg.Text()))
	sb.WriteString("\n")
	renderImages(sb, msg)
	sb.WriteString("                </div>\n")
	sb.WriteString("            </div>\n")
}

// renderImages inlines image attachments. Only data:image and http(s)
// sources are embedded; anything else is listed by count.
func renderImages(sb *strings.Builder, msg model.Message) {
	urls := msg.Content.Images()
	if len(urls) == 0 {
		urls = msg.Images
	}
	if len(urls) == 0 {
		return
	}

	sb.WriteString("                <div class=\"images\">\n")
	skipped := 0
	for _, url := range urls {
		if !safeImageURL(url) {
			skipped++
			continue
		}
		fmt.Fprintf(sb, "                    <img src=\"%s\" alt=\"attached image\">\n", html.EscapeString(url))
	}
	if skipped > 0 {
		fmt.Fprintf(sb, "                    <p class=\"image-note\">[%s]</p>\n", imageNote(skipped))
	}
	sb.WriteString("                </div>\n")
}

func safeImageURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "data:image/") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "http://")
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

// formatContent escapes message text and turns fenced and inline code into
// markup. Other text becomes paragraphs split on blank lines.
func formatContent(content string) string {
	content = html.EscapeString(strings.TrimSpace(content))
	if content == "" {
		return ""
	}

	var blocks []string
	content = codeBlockRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeBlockRegex.FindStringSubmatch(match)
		lang, code := parts[1], strings.TrimRight(parts[2], "\n")

		label := ""
		if lang != "" {
			label = fmt.Sprintf("<div class=\"code-lang\">%s</div>", lang)
		}
		blocks = append(blocks, fmt.Sprintf("<div class=\"code-block\">%s<pre><code>%s</code></pre></div>", label, code))
		return fmt.Sprintf("\x00%d\x00", len(blocks)-1)
	})

	var out []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if strings.HasPrefix(para, "\x00") && strings.HasSuffix(para, "\x00") {
			var idx int
			if _, err := fmt.Sscanf(strings.Trim(para, "\x00"), "%d", &idx); err == nil && idx < len(blocks) {
				out = append(out, blocks[idx])
				continue
			}
		}
		para = inlineCodeRegex.ReplaceAllString(para, "<code class=\"inline-code\">$1</code>")
		para = strings.ReplaceAll(para, "\n", "<br>\n")
		out = append(out, "<p>"+restoreBlocks(para, blocks)+"</p>")
	}
	return strings.Join(out, "\n")
}

// restoreBlocks puts back code blocks that shared a paragraph with text.
func restoreBlocks(s string, blocks []string) string {
	for i, b := range blocks {
		s = strings.ReplaceAll(s, fmt.Sprintf("\x00%d\x00", i), b)
	}
	return s
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const pageCSS = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --bg-tertiary: #414868;
            --text-primary: #c0caf5;
            --text-muted: #565f89;
            --user-bg: #1f2335;
            --code-bg: #16161e;
            --accent-blue: #7aa2f7;
            --accent-green: #9ece6a;
            --accent-purple: #bb9af7;
        }

        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f7f8fa;
            --bg-tertiary: #e1e4e8;
            --text-primary: #24292e;
            --text-muted: #6a737d;
            --user-bg: #f0f4ff;
            --code-bg: #f6f8fa;
            --accent-blue: #0366d6;
            --accent-green: #22863a;
            --accent-purple: #6f42c1;
        }

        body {
            font-family: var(--font-sans);
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
        }

        .container { max-width: 900px; margin: 0 auto; background: var(--bg-secondary); border-radius: 12px; overflow: hidden; }
        .header { padding: 32px; background: var(--bg-tertiary); }
        .header h1 { font-size: 26px; margin-bottom: 12px; }
        .metadata { display: flex; gap: 16px; font-size: 14px; color: var(--text-muted); }
        .conversation { padding: 24px 32px; }
        .message { margin-bottom: 20px; padding: 16px; border-radius: 8px; border-left: 4px solid var(--accent-blue); }
        .user-message { background: var(--user-bg); }
        .assistant-message { border-left-color: var(--accent-green); }
        .system-message { border-left-color: var(--accent-purple); font-style: italic; }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 8px; font-weight: 600; }
        .timestamp { font-size: 12px; color: var(--text-muted); font-weight: normal; }
        .message-content p { margin-bottom: 10px; }
        .code-block { margin: 10px 0; background: var(--code-bg); border-radius: 6px; overflow-x: auto; }
        .code-lang { padding: 4px 12px; font-size: 12px; color: var(--text-muted); }
        pre { padding: 12px; font-family: var(--font-mono); font-size: 14px; }
        .inline-code { font-family: var(--font-mono); background: var(--code-bg); padding: 1px 4px; border-radius: 4px; }
        .images img { max-width: 100%; border-radius: 6px; margin-top: 8px; }
        .image-note { font-size: 13px; color: var(--text-muted); }
        .footer { padding: 16px 32px; font-size: 13px; color: var(--text-muted); text-align: center; }
    </style>
`
