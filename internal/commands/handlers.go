// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/flurchat/internal/export"
	"github.com/jeranaias/flurchat/internal/model"
	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/util"
)

// listTitleWidth is the title column width in /list output.
const listTitleWidth = 32

// ErrAmbiguous is returned when a conversation prefix matches more than one id.
var ErrAmbiguous = errors.New("ambiguous conversation")

// =============================================================================
// NAVIGATION
// =============================================================================

func (r *Registry) handleHelp(env *Env, args []string) Outcome {
	if len(args) == 0 {
		return info("%s", GenerateHelpText(r))
	}

	name := args[0]
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	cmd := r.Get(name)
	if cmd == nil {
		return fail(fmt.Errorf("%w: %s", ErrUnknownCommand, name))
	}
	return info("%s", commandHelp(cmd))
}

// HandleQuit asks the front end to exit.
func HandleQuit(env *Env, args []string) Outcome {
	return Outcome{Quit: true}
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// HandleNew saves the open chat (when it has messages) and starts a fresh one.
func HandleNew(env *Env, args []string) Outcome {
	conv, saved := env.Store.NewConversation(strings.Join(args, " "))
	if !saved {
		return info("Started a new conversation.")
	}
	return info("Saved %q. Started a new conversation.", conv.Title)
}

// HandleList prints the conversation list, optionally filtered by title.
func HandleList(env *Env, args []string) Outcome {
	entries := env.Store.ChatEntries(strings.Join(args, " "))
	if len(entries) == 0 {
		return info("No conversations match %q.", strings.Join(args, " "))
	}
	return info("%s", FormatEntries(env.Store.State(), entries))
}

// FormatEntries renders entries as aligned rows. Saved conversations are
// numbered by their position in st so the numbers work with /switch and
// /delete even when the list is filtered.
func FormatEntries(st store.State, entries []store.ChatEntry) string {
	var sb strings.Builder
	for i, e := range entries {
		marker := " "
		if e.Active {
			marker = "*"
		}

		num := "0"
		if !e.Current {
			num = strconv.Itoa(conversationNumber(st, e.ID))
		}

		title := runewidth.FillRight(util.TruncateWidth(e.Title, listTitleWidth), listTitleWidth)
		fmt.Fprintf(&sb, "%s %3s  %s  %-16s  %s", marker, num, title, e.Detail, e.Preview)
		if i < len(entries)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func conversationNumber(st store.State, id string) int {
	for i, c := range st.Conversations {
		if c.ID == id {
			return i + 1
		}
	}
	return 0
}

// ResolveTarget maps user input to a conversation id. It accepts
// "current" or "0" for the unsaved chat, a list number, a full id, or a
// unique id prefix. Anything else is returned unchanged so the store can
// report it as not found.
func ResolveTarget(st store.State, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if strings.EqualFold(arg, store.CurrentTarget) || arg == "0" {
		return store.CurrentTarget, nil
	}

	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(st.Conversations) {
			return st.Conversations[n-1].ID, nil
		}
		return arg, nil
	}

	var match string
	for _, c := range st.Conversations {
		if c.ID == arg {
			return c.ID, nil
		}
		if strings.HasPrefix(c.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("%w: %q", ErrAmbiguous, arg)
			}
			match = c.ID
		}
	}
	if match != "" {
		return match, nil
	}
	return arg, nil
}

// HandleSwitch opens a saved conversation or the unsaved chat.
func HandleSwitch(env *Env, args []string) Outcome {
	st := env.Store.State()
	id, err := ResolveTarget(st, args[0])
	if err != nil {
		return fail(err)
	}
	if err := env.Store.SwitchConversation(id); err != nil {
		return fail(err)
	}
	if id == store.CurrentTarget {
		return info("Switched to the current conversation.")
	}
	conv, _ := st.Conversation(id)
	return info("Switched to %q.", conv.Title)
}

// HandleDelete removes a saved conversation.
func HandleDelete(env *Env, args []string) Outcome {
	st := env.Store.State()
	id, err := ResolveTarget(st, args[0])
	if err != nil {
		return fail(err)
	}
	if id == store.CurrentTarget {
		return fail(errors.New("the current conversation is not saved; use /clear"))
	}
	conv, _ := st.Conversation(id)
	if err := env.Store.DeleteConversation(id); err != nil {
		return fail(err)
	}
	return info("Deleted %q.", conv.Title)
}

// HandleTitle renames the open saved conversation.
func HandleTitle(env *Env, args []string) Outcome {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return fail(errors.New("title must not be empty"))
	}
	id := env.Store.State().ActiveConversationID
	if id == "" {
		return fail(errors.New("this conversation is not saved yet; use /new <title> to save it"))
	}
	if err := env.Store.SetConversationTitle(id, title); err != nil {
		return fail(err)
	}
	return info("Renamed to %q.", title)
}

// HandleClear empties the open chat. Saved conversations are kept.
func HandleClear(env *Env, args []string) Outcome {
	env.Store.ClearActive()
	return info("Cleared.")
}

// HandleExport writes the open chat to a file in the working directory.
// The format defaults to markdown.
func HandleExport(env *Env, args []string) Outcome {
	format := export.FormatMarkdown
	if len(args) > 0 {
		f, err := export.ParseFormat(args[0])
		if err != nil {
			return fail(err)
		}
		format = f
	}

	conv, ok := OpenConversation(env.Store.State())
	if !ok {
		return fail(errors.New("nothing to export"))
	}
	exporter, err := export.New(format, nil)
	if err != nil {
		return fail(err)
	}
	path, err := export.ExportToFile(&conv, exporter, export.DefaultOptions())
	if err != nil {
		return fail(err)
	}
	log.Debug().Str("path", path).Str("format", string(format)).Msg("conversation exported")
	return info("Exported to %s.", path)
}

// OpenConversation returns the open chat as a conversation record. A chat
// that was never saved carries no id and the current-conversation title.
func OpenConversation(st store.State) (model.Conversation, bool) {
	if len(st.Messages) == 0 {
		return model.Conversation{}, false
	}
	conv := model.Conversation{Title: store.CurrentTitle, Messages: st.Messages}
	if saved, ok := st.Conversation(st.ActiveConversationID); ok && st.ActiveConversationID != "" {
		conv.ID = saved.ID
		conv.Title = saved.Title
		conv.CreatedAt = saved.CreatedAt
	}
	return conv, true
}

// =============================================================================
// SETTINGS
// =============================================================================

// HandleSystem shows or replaces the system prompt. "reset" restores the
// configured default.
func HandleSystem(env *Env, args []string) Outcome {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	switch {
	case prompt == "":
		return info("System prompt: %s", env.Store.State().SystemPrompt)
	case strings.EqualFold(prompt, "reset"):
		prompt = store.DefaultSystemPrompt
		if env.Config != nil && env.Config.Chat.SystemPrompt != "" {
			prompt = env.Config.Chat.SystemPrompt
		}
	}
	env.Store.SetSystemPrompt(prompt)
	return info("System prompt updated. It applies to the next message.")
}

// =============================================================================
// MESSAGE
// =============================================================================

// HandleAttach stages an image for the next message.
func HandleAttach(env *Env, args []string) Outcome {
	if env.Attachments == nil {
		return fail(errors.New("attachments are not available here"))
	}
	a, err := env.Attachments.Add(strings.Join(args, " "))
	if err != nil {
		return fail(err)
	}
	return info("Attached %s (%d pending).", a.Name, env.Attachments.Len())
}

// HandleDetach drops every staged image.
func HandleDetach(env *Env, args []string) Outcome {
	if env.Attachments == nil {
		return info("No attachments.")
	}
	n := env.Attachments.Clear()
	return info("Removed %d attachment(s).", n)
}

// HandleCancel stops the reply that is streaming and waits for it to
// unwind.
func HandleCancel(env *Env, args []string) Outcome {
	if env.Session == nil || !env.Session.InFlight() {
		return info("Nothing to cancel.")
	}
	env.Session.Cancel()
	log.Debug().Msg("send cancelled by command")
	return info("Cancelled.")
}

// =============================================================================
// HELP TEXT
// =============================================================================

var categoryOrder = []string{"Conversation", "Message", "Settings", "Navigation", "General"}

// GenerateHelpText lists visible commands grouped by category.
func GenerateHelpText(r *Registry) string {
	groups := r.ByCategory()

	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, category := range categoryOrder {
		cmds := groups[category]
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s\n", category)
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&sb, "  %s  %s\n", runewidth.FillRight(usage, 30), cmd.Description)
		}
	}
	sb.WriteString("\nType a message and press Enter to send it.")
	return sb.String()
}

func commandHelp(cmd *Command) string {
	var sb strings.Builder
	usage := cmd.Usage
	if usage == "" {
		usage = cmd.Name
	}
	fmt.Fprintf(&sb, "%s\n  %s", usage, cmd.Description)
	if len(cmd.Aliases) > 0 {
		fmt.Fprintf(&sb, "\n  Aliases: %s", strings.Join(cmd.Aliases, ", "))
	}
	for _, arg := range cmd.Args {
		req := "optional"
		if arg.Required {
			req = "required"
		}
		fmt.Fprintf(&sb, "\n  <%s> %s (%s)", arg.Name, arg.Description, req)
	}
	return sb.String()
}
