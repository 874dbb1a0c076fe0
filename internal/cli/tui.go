// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/flurchat/internal/ui/chat"
	"github.com/jeranaias/flurchat/internal/ui/styles"
)

// runTUI opens the full-screen chat and blocks until it exits.
func runTUI(cmd *cobra.Command, rt *runtime) error {
	if err := RequiresTTY("open the chat"); err != nil {
		return err
	}

	app, err := rt.openApp(cmd.Context())
	if err != nil {
		return err
	}
	app.StartWatch(cmd.Context())

	m := chat.New(chat.Options{
		Store:       app.Store,
		Session:     app.Session,
		Registry:    app.Registry,
		Attachments: app.Attachments,
		Config:      app.Config,
		Theme:       styles.NewTheme(app.Config.UI.Theme),
		Logger:      app.Logger,
	})
	defer m.Close()

	app.Logger.Info().Str("endpoint", app.Client.URL()).Msg("tui started")
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat exited: %w", err)
	}
	return nil
}
