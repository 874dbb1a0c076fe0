// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"
)

// =============================================================================
// RENDER CACHE
// =============================================================================

// renderCache keeps rendered message bodies keyed by message id. An entry is
// reused only while the message content hashes the same, so a streaming
// reply is re-rendered and every finished message is not.
type renderCache struct {
	entries map[string]cachedRender
	hits    uint64
	misses  uint64
}

type cachedRender struct {
	hash string
	out  string
}

func newRenderCache() *renderCache {
	return &renderCache{entries: make(map[string]cachedRender)}
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func (c *renderCache) get(id, content string) (string, bool) {
	e, ok := c.entries[id]
	if !ok || e.hash != hashContent(content) {
		c.misses++
		return "", false
	}
	c.hits++
	return e.out, true
}

func (c *renderCache) put(id, content, out string) {
	c.entries[id] = cachedRender{hash: hashContent(content), out: out}
}

// reset drops every entry. Called when the wrap width changes.
func (c *renderCache) reset() {
	c.entries = make(map[string]cachedRender)
}

// =============================================================================
// MARKDOWN
// =============================================================================

// markdownRenderer renders assistant replies through glamour at the current
// wrap width. With Markdown disabled it only wraps.
type markdownRenderer struct {
	enabled bool
	style   string
	width   int
	tr      *glamour.TermRenderer
	cache   *renderCache
	logger  zerolog.Logger
}

func newMarkdownRenderer(enabled, dark bool, logger zerolog.Logger) *markdownRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	return &markdownRenderer{
		enabled: enabled,
		style:   style,
		cache:   newRenderCache(),
		logger:  logger,
	}
}

// setWidth rebuilds the renderer for a new wrap width.
func (r *markdownRenderer) setWidth(width int) {
	if width < 10 {
		width = 10
	}
	if width == r.width && (r.tr != nil || !r.enabled) {
		return
	}
	r.width = width
	r.cache.reset()
	r.tr = nil

	if !r.enabled {
		return
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r.logger.Warn().Err(err).Msg("markdown renderer unavailable, falling back to plain text")
		return
	}
	r.tr = tr
}

// render returns the rendered body for a message.
func (r *markdownRenderer) render(id, text string) string {
	if out, ok := r.cache.get(id, text); ok {
		return out
	}

	out := wrapText(text, r.width)
	if r.tr != nil {
		if md, err := r.tr.Render(text); err == nil {
			out = strings.Trim(md, "\n")
		} else {
			r.logger.Debug().Err(err).Str("message", id).Msg("markdown render failed")
		}
	}
	r.cache.put(id, text, out)
	return out
}
