// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// FORMATTING UTILITIES
// =============================================================================

// formatTimestamp formats a message timestamp relative to now:
//   - Today: just time (e.g., "15:04")
//   - This week: day and time (e.g., "Mon 15:04")
//   - Older: date and time (e.g., "Jan 2 15:04")
func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now = now.Local()

	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Mon 15:04")
	}
	return t.Format("Jan 2 15:04")
}

// =============================================================================
// TEXT UTILITIES
// =============================================================================

// calculateContentWidth returns the wrap width left after margin columns,
// never less than 3.
func calculateContentWidth(totalWidth, margin int) int {
	contentWidth := totalWidth - margin
	if contentWidth < 3 {
		contentWidth = 3
	}
	return contentWidth
}

// wrapText wraps text to maxWidth terminal columns. Existing line breaks
// are kept and long lines break at the last space that fits.
//
// UNICODE: widths are measured in cells, so wide characters count twice.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteByte('\n')
		}

		for runewidth.StringWidth(line) > maxWidth {
			runes := []rune(line)

			// Longest prefix that fits
			cut, width := 0, 0
			for cut < len(runes) {
				w := runewidth.RuneWidth(runes[cut])
				if width+w > maxWidth {
					break
				}
				width += w
				cut++
			}
			if cut == 0 {
				cut = 1
			}

			// Prefer the last space inside the prefix
			breakPoint := cut
			for j := cut; j > 0; j-- {
				if j < len(runes) && runes[j] == ' ' {
					breakPoint = j
					break
				}
			}

			result.WriteString(string(runes[:breakPoint]))
			result.WriteByte('\n')
			line = strings.TrimLeft(string(runes[breakPoint:]), " ")
		}
		result.WriteString(line)
	}

	return result.String()
}

// padRight pads s with spaces to width cells, truncating when longer.
func padRight(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, ""), width)
}
