// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat interface for flurchat.

The chat package is a Bubble Tea front end over the conversation store and
the stream session. It owns no chat state of its own: every frame is drawn
from the latest store.State, and every user action goes through the store,
the session or the slash-command registry.

# Key Components

## Model (model.go)

The Model struct is the Bubble Tea model. It holds the widgets (viewport,
textarea, spinner), the focus and sidebar selection, and the last store
state it was notified of.

## Change Feed (streaming.go)

Store subscribers and the session's phase hook run on other goroutines and
must never block. They signal a coalescing feed; the Bubble Tea loop drains
it at a capped frame rate and re-reads the store.

## Update Loop (update.go, input.go)

Handles keys, window resizes and send results:
  - Enter sends the composed message, or runs a slash command
  - Tab completes slash commands, or moves focus to the sidebar
  - Ctrl+N saves the chat and starts a new one
  - Ctrl+C cancels a streaming reply, or quits when idle

## View Rendering (view.go, sidebar.go)

Header, message bubbles (optionally rendered as Markdown through glamour),
the conversation sidebar, pending attachments and the status bar.

# Usage

	m := chat.New(chat.Options{
		Store:    st,
		Session:  session,
		Registry: commands.NewRegistry(),
		Config:   cfg,
		Theme:    styles.NewTheme(cfg.UI.Theme),
		Logger:   logger,
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
*/
package chat
