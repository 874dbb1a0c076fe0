// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/flurchat/internal/commands"
	"github.com/jeranaias/flurchat/internal/config"
	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/stream"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides line editing, history and tab completion for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI whose history lives in the config directory.
func NewChatCLI(completer *commands.Completer) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(lineCompleter(completer))

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// lineCompleter adapts slash-command completion to liner.
func lineCompleter(completer *commands.Completer) liner.Completer {
	return func(line string) []string {
		if completer == nil || !commands.IsCommand(line) {
			return nil
		}
		var out []string
		for _, c := range completer.Complete(line, len(line)) {
			out = append(out, commands.ApplyCompletion(line, c.Value))
		}
		return out
	}
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with the given prompt, recording non-empty input.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

func newChatCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat line by line in the terminal",
		Long: `Start a line-oriented chat. Replies stream as they arrive. Slash commands
work as in the full-screen chat; Tab completes them.

  Ctrl+C    stop the reply that is streaming
  Ctrl+D    exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := RequiresTTY("chat"); err != nil {
				return err
			}
			app, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			app.StartWatch(cmd.Context())

			completer := commands.NewCompleter(app.Registry)
			completer.ConversationsFn = func() []store.ChatEntry { return app.Store.ChatEntries("") }
			input := NewChatCLI(completer)
			defer input.Close()

			return newREPL(app, cmd.OutOrStdout()).run(cmd.Context(), input.ReadInput)
		},
	}
}

// repl is the line-oriented chat loop. It reads through a prompt function
// so the loop can run without a terminal.
type repl struct {
	app     *App
	out     io.Writer
	printer *replyPrinter
}

func newREPL(app *App, out io.Writer) *repl {
	return &repl{app: app, out: out, printer: newReplyPrinter(out)}
}

// run loops until EOF, /quit or ctx ends. SIGINT cancels the reply that
// is streaming instead of ending the process.
func (r *repl) run(ctx context.Context, prompt func(string) (string, error)) error {
	unsubscribe := r.app.Store.Subscribe(r.printer.observe)
	defer unsubscribe()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-sigCh:
				if r.app.Session.InFlight() {
					r.app.Session.Cancel()
				}
			case <-done:
				return
			}
		}
	}()

	r.printWelcome()

	for ctx.Err() == nil {
		line, err := prompt(promptStyle.Render("you> "))
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			fmt.Fprintln(r.out, DimStyle.Render("(Ctrl+D or /quit to exit)"))
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(r.out)
			return nil
		case err != nil:
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case commands.IsCommand(line):
			if quit := r.runCommand(line); quit {
				return nil
			}
			continue
		}

		r.send(ctx, stream.Turn{Text: line, Images: r.app.Attachments.Take()})
	}
	return nil
}

func (r *repl) printWelcome() {
	st := r.app.Store.State()
	fmt.Fprintln(r.out, TitleStyle.Render("flurchat")+" "+DimStyle.Render(r.app.Client.URL()))
	fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("%s · %s · /help for commands",
		activeTitle(st), store.MessageCountLabel(len(st.Messages)))))
	fmt.Fprintln(r.out)
}

// runCommand executes a slash command and reports whether to exit.
func (r *repl) runCommand(line string) bool {
	outcome := r.app.Registry.Execute(r.app.Env(), line)
	switch {
	case outcome.Err != nil:
		fmt.Fprintln(r.out, ErrorStyle.Render("Error:"), outcome.Err)
	case outcome.Output != "":
		fmt.Fprintln(r.out, outcome.Output)
	}
	return outcome.Quit
}

// send streams one turn, printing the reply through the store subscription.
func (r *repl) send(ctx context.Context, turn stream.Turn) {
	r.printer.arm(r.app.Store.State())
	fmt.Fprint(r.out, assistantLabelStyle.Render("assistant> "))

	res := r.app.Session.Send(ctx, turn)
	fmt.Fprintln(r.out)

	switch res.Phase {
	case stream.PhaseCancelled:
		fmt.Fprintln(r.out, WarningStyle.Render("Cancelled."))
	case stream.PhaseFailed:
		fmt.Fprintln(r.out, ErrorStyle.Render("Send failed:"), res.Err)
	default:
		fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("%d tokens · %s", res.Tokens, formatDuration(res.Duration))))
	}
	fmt.Fprintln(r.out)
}
