// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the flurchat TUI.

All colors use Lip Gloss AdaptiveColor, so one palette serves light and
dark terminals. The theme can follow the terminal (auto) or force either
background.

# Color System (colors.go)

  - Purple: assistant messages and selections
  - Cyan: brand color, user messages and prompts
  - Emerald: success
  - Amber: streaming and warnings
  - Rose: errors

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	theme.SetSize(width, height)
	if theme.ShowSidebar() {
		// wide enough for the conversation list
	}

# Spinners (spinner.go)

	s := spinner.New(spinner.WithSpinner(styles.DotsSpinner.Bubble()))
*/
package styles
