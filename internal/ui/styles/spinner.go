// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// SpinnerConfig holds the frames and speed of a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// DotsSpinner - Classic three-dot animation, shown while a reply streams
var DotsSpinner = SpinnerConfig{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    6,
}

// LineSpinner - Simple line rotation, shown while waiting for headers
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// Duration returns the time per frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Second / time.Duration(s.FPS)
}

// Bubble converts the config to a bubbles spinner.
func (s SpinnerConfig) Bubble() spinner.Spinner {
	return spinner.Spinner{Frames: s.Frames, FPS: s.Duration()}
}
