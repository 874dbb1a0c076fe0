// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeDark  = "dark"
	ModeLight = "light"
	ModeAuto  = "auto"
)

// SidebarWidth is the width of the conversation list, borders included.
const SidebarWidth = 34

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER AND STATUS
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	StatusBar      lipgloss.Style
	StatusKey      lipgloss.Style
	StatusBusy     lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar         lipgloss.Style
	SidebarFocused  lipgloss.Style
	SidebarHeading  lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarActive   lipgloss.Style
	SidebarDetail   lipgloss.Style
	SidebarPreview  lipgloss.Style
	SidebarFilter   lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel       lipgloss.Style
	AssistantLabel  lipgloss.Style
	SystemLabel     lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	Timestamp       lipgloss.Style
	ImageTag        lipgloss.Style
	Notice          lipgloss.Style
	ErrorNotice     lipgloss.Style
	Empty           lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	Attachment     lipgloss.Style
	Completion     lipgloss.Style
	CompletionSel  lipgloss.Style
}

// NewTheme creates a theme. mode is ModeDark, ModeLight or ModeAuto; any
// other value is treated as auto.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	// Header and status
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Background(SurfaceDim).
		Bold(true)
	t.StatusBusy = lipgloss.NewStyle().
		Foreground(Amber).
		Background(SurfaceDim)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SidebarFocused = t.Sidebar.
		BorderForeground(Purple)
	t.SidebarHeading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)
	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.SidebarSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)
	t.SidebarActive = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.SidebarDetail = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.SidebarPreview = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)
	t.SidebarFilter = lipgloss.NewStyle().
		Foreground(Amber)

	// Messages
	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.SystemLabel = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)
	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.ImageTag = lipgloss.NewStyle().
		Foreground(Emerald)
	t.Notice = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.ErrorNotice = lipgloss.NewStyle().
		Foreground(Rose)
	t.Empty = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.Attachment = lipgloss.NewStyle().
		Foreground(Emerald)
	t.Completion = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.CompletionSel = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// ShowSidebar reports whether the conversation list fits beside the chat.
func (t *Theme) ShowSidebar() bool {
	return t.GetLayoutMode() != LayoutNarrow
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
