// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/flurchat/internal/stream"
)

var (
	// errInterrupted reports a send stopped with Ctrl+C.
	errInterrupted = errors.New("interrupted")

	// errSendFailed marks a reply that could not be completed.
	errSendFailed = errors.New("send failed")
)

// askResult is the --json payload of ask.
type askResult struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Reply          string `json:"reply"`
	Tokens         int    `json:"tokens"`
	DurationMS     int64  `json:"duration_ms"`
}

func newAskCommand(rt *runtime) *cobra.Command {
	var (
		images  []string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "ask [--image FILE]... TEXT",
		Short: "Send one message and stream the reply",
		Long: `Send one message into the open conversation and print the reply as it
streams. Use "-" as TEXT to read the message from stdin.`,
		Example: `  flurchat ask "What is a monad?"
  flurchat ask --image diagram.png "Explain this diagram"
  git diff | flurchat ask -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := askText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runAsk(cmd, rt, text, images, jsonOut)
		},
	}

	cmd.Flags().StringArrayVarP(&images, "image", "i", nil, "attach an image file or URL (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the finished reply as JSON")
	return cmd
}

// askText joins the arguments, or reads stdin for a lone "-".
func askText(in io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}

func runAsk(cmd *cobra.Command, rt *runtime, text string, images []string, jsonOut bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := rt.openApp(ctx)
	if err != nil {
		return err
	}

	for _, ref := range images {
		if _, err := app.Attachments.Add(ref); err != nil {
			return &UsageError{Err: fmt.Errorf("--image %s: %w", ref, err)}
		}
	}
	turn := stream.Turn{Text: text, Images: app.Attachments.Take()}
	if turn.IsEmpty() {
		return &UsageError{Err: errors.New("nothing to send: give TEXT or --image")}
	}

	out := cmd.OutOrStdout()
	printer := newReplyPrinter(out)
	if jsonOut {
		printer = newReplyPrinter(io.Discard)
	}
	printer.arm(app.Store.State())
	unsubscribe := app.Store.Subscribe(printer.observe)
	defer unsubscribe()

	res := app.Session.Send(ctx, turn)
	if printer.wrote() {
		fmt.Fprintln(out)
	}

	app.Logger.Debug().
		Str("phase", res.Phase.String()).
		Int("tokens", res.Tokens).
		Dur("duration", res.Duration).
		Msg("ask finished")

	switch res.Phase {
	case stream.PhaseCancelled:
		fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("Cancelled."))
		return errInterrupted
	case stream.PhaseFailed:
		return fmt.Errorf("%w: %w", errSendFailed, res.Err)
	}

	if jsonOut {
		st := app.Store.State()
		result := askResult{
			ConversationID: st.ActiveConversationID,
			Tokens:         res.Tokens,
			DurationMS:     res.Duration.Milliseconds(),
		}
		if last, ok := st.LastMessage(); ok && last.ID == res.AssistantMessageID {
			result.Reply = last.Text()
		}
		return OutputJSON(out, "ask", result)
	}
	return nil
}
