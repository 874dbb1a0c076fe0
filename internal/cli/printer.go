// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/flurchat/internal/model"
	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/util"
)

// replyPrinter writes a streaming reply to out as the store grows it.
// It runs as a store subscriber, so it only writes and never calls back
// into the store.
type replyPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	skipID  string // last message before the send
	replyID string
	printed int
}

func newReplyPrinter(out io.Writer) *replyPrinter {
	return &replyPrinter{out: out}
}

// arm prepares for a send that starts from st.
func (p *replyPrinter) arm(st store.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skipID, p.replyID, p.printed = "", "", 0
	if last, ok := st.LastMessage(); ok {
		p.skipID = last.ID
	}
}

// observe prints whatever the reply gained since the last call.
func (p *replyPrinter) observe(st store.State) {
	last, ok := st.LastMessage()
	if !ok || last.Role != model.RoleAssistant {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if last.ID == p.skipID {
		return
	}
	if last.ID != p.replyID {
		p.replyID, p.printed = last.ID, 0
	}
	text := last.Text()
	if len(text) <= p.printed {
		return
	}
	io.WriteString(p.out, text[p.printed:])
	p.printed = len(text)
}

// wrote reports whether any reply text was printed since arm.
func (p *replyPrinter) wrote() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printed > 0
}

// =============================================================================
// TRANSCRIPTS
// =============================================================================

// writeTranscript prints msgs with role labels, the way `conversations
// show` and the REPL history do.
func writeTranscript(out io.Writer, msgs []model.Message) {
	for i, msg := range msgs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s %s\n", roleLabel(msg.Role), DimStyle.Render(msg.Timestamp.Format("2006-01-02 15:04")))
		if text := strings.TrimRight(msg.Text(), "\n"); text != "" {
			fmt.Fprintln(out, text)
		}
		if n := msg.ImageCount(); n > 0 {
			fmt.Fprintln(out, DimStyle.Render(fmt.Sprintf("[%d image(s) attached]", n)))
		}
	}
}

func roleLabel(role model.Role) string {
	name := role.DisplayName() + ":"
	switch role {
	case model.RoleUser:
		return userLabelStyle.Render(name)
	case model.RoleAssistant:
		return assistantLabelStyle.Render(name)
	default:
		return systemLabelStyle.Render(name)
	}
}

// oneLine squeezes s onto one line of at most width cells.
func oneLine(s string, width int) string {
	return util.TruncateWidth(util.SingleLine(s), width)
}
