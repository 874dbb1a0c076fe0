// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	assert.True(t, NewTheme(ModeDark).IsDark)
	assert.False(t, NewTheme(ModeLight).IsDark)
}

func TestTheme_LayoutMode(t *testing.T) {
	theme := NewTheme(ModeDark)

	tests := []struct {
		width   int
		mode    LayoutMode
		sidebar bool
	}{
		{40, LayoutNarrow, false},
		{59, LayoutNarrow, false},
		{60, LayoutMedium, true},
		{99, LayoutMedium, true},
		{100, LayoutWide, true},
	}
	for _, tc := range tests {
		theme.SetSize(tc.width, 30)
		assert.Equal(t, tc.mode, theme.GetLayoutMode(), "width %d", tc.width)
		assert.Equal(t, tc.sidebar, theme.ShowSidebar(), "width %d", tc.width)
	}
}

func TestSpinnerConfig(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, LineSpinner.Duration())
	assert.Equal(t, 100*time.Millisecond, SpinnerConfig{}.Duration())

	s := DotsSpinner.Bubble()
	assert.Equal(t, DotsSpinner.Frames, s.Frames)
	assert.Equal(t, time.Second/6, s.FPS)
}

func TestRenderHelpers_IncludeIndicators(t *testing.T) {
	assert.True(t, strings.Contains(RenderSuccess("saved"), "[OK] saved"))
	assert.True(t, strings.Contains(RenderError("failed"), "[X] failed"))
	assert.True(t, strings.Contains(RenderWarning("slow"), "[!] slow"))
	assert.True(t, strings.Contains(RenderInfo("hint"), "[i] hint"))
}
