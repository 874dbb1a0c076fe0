// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/flurchat/internal/commands"
	"github.com/jeranaias/flurchat/internal/export"
	"github.com/jeranaias/flurchat/internal/model"
	"github.com/jeranaias/flurchat/internal/store"
)

// conversationSummary is one --json row of `conversations list`.
type conversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	Preview   string    `json:"preview"`
	Current   bool      `json:"current"`
	Active    bool      `json:"active"`
}

// conversationDetail is the --json payload of `conversations show`.
type conversationDetail struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	CreatedAt time.Time       `json:"created_at"`
	Messages  []model.Message `json:"messages"`
}

func newConversationsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "c"},
		Short:   "Manage saved conversations",
		Long: `Manage saved conversations. ID may be a list number, a full id, a unique
id prefix, or "current" for the unsaved conversation.`,
	}

	cmd.AddCommand(
		newConversationsListCommand(rt),
		newConversationsShowCommand(rt),
		newConversationsSwitchCommand(rt),
		newConversationsNewCommand(rt),
		newConversationsRenameCommand(rt),
		newConversationsDeleteCommand(rt),
		newConversationsExportCommand(rt),
	)
	return cmd
}

// exactArgs is cobra.ExactArgs reporting a UsageError.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

// minimumArgs is cobra.MinimumNArgs reporting a UsageError.
func minimumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

// runHandler runs a slash-command handler outside the chat and prints its
// output.
func runHandler(cmd *cobra.Command, app *App, handler func(*commands.Env, []string) commands.Outcome, args ...string) error {
	outcome := handler(app.Env(), args)
	if outcome.Err != nil {
		return outcome.Err
	}
	if outcome.Output != "" {
		fmt.Fprintln(cmd.OutOrStdout(), outcome.Output)
	}
	return nil
}

// =============================================================================
// LIST / SHOW
// =============================================================================

func newConversationsListCommand(rt *runtime) *cobra.Command {
	var (
		filter  string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			st := app.Store.State()
			entries := store.Entries(st, filter)

			if jsonOut {
				rows := make([]conversationSummary, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, summarize(st, e))
				}
				return OutputJSON(cmd.OutOrStdout(), "conversations list", rows)
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render(fmt.Sprintf("No conversations match %q.", filter)))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), commands.FormatEntries(st, entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only titles containing this text")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

func summarize(st store.State, e store.ChatEntry) conversationSummary {
	row := conversationSummary{
		ID:        e.ID,
		Title:     e.Title,
		CreatedAt: e.CreatedAt,
		Preview:   e.Preview,
		Current:   e.Current,
		Active:    e.Active,
	}
	if e.Current {
		row.Messages = len(st.UnsavedMessages)
	} else if conv, ok := st.Conversation(e.ID); ok {
		row.Messages = len(conv.Messages)
	}
	return row
}

func newConversationsShowCommand(rt *runtime) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show ID|current",
		Short: "Print a conversation",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			detail, err := lookupConversation(app.Store.State(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return OutputJSON(out, "conversations show", detail)
			}

			fmt.Fprintln(out, TitleStyle.Render(detail.Title))
			if !detail.CreatedAt.IsZero() {
				fmt.Fprintln(out, RenderLabel("Saved", formatAge(detail.CreatedAt)))
			}
			fmt.Fprintln(out, RenderLabel("Messages", fmt.Sprint(len(detail.Messages))))
			fmt.Fprintln(out, RenderSeparator())
			if len(detail.Messages) == 0 {
				fmt.Fprintln(out, DimStyle.Render("No messages yet."))
				return nil
			}
			writeTranscript(out, detail.Messages)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

// lookupConversation resolves arg to the unsaved buffer or a saved
// conversation.
func lookupConversation(st store.State, arg string) (conversationDetail, error) {
	id, err := commands.ResolveTarget(st, arg)
	if err != nil {
		return conversationDetail{}, err
	}
	if id == store.CurrentTarget {
		title := store.EmptyTitle
		if len(st.UnsavedMessages) > 0 {
			title = store.CurrentTitle
		}
		return conversationDetail{
			ID:       store.CurrentTarget,
			Title:    title,
			Messages: st.UnsavedMessages,
		}, nil
	}

	conv, ok := st.Conversation(id)
	if !ok {
		return conversationDetail{}, fmt.Errorf("%w: %s", store.ErrConversationNotFound, arg)
	}
	return conversationDetail{
		ID:        conv.ID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		Messages:  conv.Messages,
	}, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

func newConversationsSwitchCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "switch ID|current",
		Short: "Make a conversation the open one",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			return runHandler(cmd, app, commands.HandleSwitch, args[0])
		},
	}
}

func newConversationsNewCommand(rt *runtime) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Save the open conversation and start a new one",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			if title == "" {
				return runHandler(cmd, app, commands.HandleNew)
			}
			return runHandler(cmd, app, commands.HandleNew, title)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "title for the saved conversation")
	return cmd
}

func newConversationsRenameCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID TITLE",
		Short: "Rename a saved conversation",
		Args:  minimumArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			st := app.Store.State()
			id, err := commands.ResolveTarget(st, args[0])
			if err != nil {
				return err
			}
			if id == store.CurrentTarget {
				return &UsageError{Err: errors.New("the current conversation is not saved; use `conversations new --title`")}
			}

			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return &UsageError{Err: errors.New("title must not be empty")}
			}
			if err := app.Store.SetConversationTitle(id, title); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %q.\n", title)
			return nil
		},
	}
}

func newConversationsDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a saved conversation",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			return runHandler(cmd, app, commands.HandleDelete, args[0])
		},
	}
}

// =============================================================================
// EXPORT
// =============================================================================

func newConversationsExportCommand(rt *runtime) *cobra.Command {
	var (
		format     string
		outputPath string
		theme      string
		bare       bool
		open       bool
	)

	cmd := &cobra.Command{
		Use:   "export ID|current",
		Short: "Write a conversation to a markdown, JSON or HTML file",
		Long: `Write a conversation to a file. Without --output the file is created in
the working directory under a name built from the title. "--output -"
writes to stdout.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return &UsageError{Err: err}
			}
			if theme != "dark" && theme != "light" {
				return &UsageError{Err: fmt.Errorf("unknown theme %q (use dark or light)", theme)}
			}

			app, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			detail, err := lookupConversation(app.Store.State(), args[0])
			if err != nil {
				return err
			}
			conv := &model.Conversation{
				ID:        detail.ID,
				Title:     detail.Title,
				CreatedAt: detail.CreatedAt,
				Messages:  detail.Messages,
			}

			opts := export.DefaultOptions()
			opts.Theme = theme
			opts.IncludeMetadata = !bare
			opts.IncludeTimestamps = !bare
			exporter, err := export.New(f, opts)
			if err != nil {
				return err
			}

			if outputPath == "-" {
				content, err := exporter.Export(conv)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(content)
				return err
			}

			var path string
			if outputPath != "" {
				path, err = export.WriteFile(conv, exporter, outputPath)
			} else {
				path, err = export.ExportToFile(conv, exporter, opts)
			}
			if err != nil {
				return err
			}
			rt.logger.Info().Str("path", path).Str("format", string(f)).Msg("conversation exported")
			fmt.Fprintln(cmd.OutOrStdout(), RenderStatus("ok"), "wrote", path)

			if open {
				if err := export.OpenFile(path); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("Warning:"), "could not open file:", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatMarkdown), "file format ("+strings.Join(export.Formats, ", ")+")")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file, or - for stdout")
	cmd.Flags().StringVar(&theme, "theme", "dark", "HTML theme (dark or light)")
	cmd.Flags().BoolVar(&bare, "bare", false, "leave out metadata and timestamps")
	cmd.Flags().BoolVar(&open, "open", false, "open the file in the default application")
	return cmd
}
