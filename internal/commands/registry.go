// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jeranaias/flurchat/internal/config"
	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/stream"
)

// ErrUnknownCommand is returned for input that names no registered command.
var ErrUnknownCommand = errors.New("unknown command")

// ErrBusy is returned for commands that cannot run while a reply streams.
var ErrBusy = errors.New("a reply is still streaming; wait for it or /cancel it")

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/switch <conversation>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler is the function that executes the command
	Handler func(env *Env, args []string) Outcome

	// AllowBusy lets the command run while a reply is streaming
	AllowBusy bool

	// Hidden commands don't appear in help
	Hidden bool

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string

	// Values for enum types
	Values []string

	// Completer for custom completion
	Completer func() []string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString       ArgType = iota // Free-form string
	ArgTypeConversation                // Conversation id, list number or "current"
	ArgTypeFile                        // File path
	ArgTypeEnum                        // One of predefined values
	ArgTypeCommand                     // Command name
)

// =============================================================================
// ENV AND OUTCOME
// =============================================================================

// Env provides the dependencies command handlers act on. Store is
// required; the rest may be nil.
type Env struct {
	Store       *store.Store
	Session     *stream.Session
	Attachments *Attachments
	Config      *config.Config
}

// Outcome is what a command reports back to the front end.
type Outcome struct {
	// Output is text for the user, possibly several lines.
	Output string

	// Err is a failure to show instead of Output.
	Err error

	// Quit asks the front end to exit.
	Quit bool
}

func info(format string, args ...interface{}) Outcome {
	return Outcome{Output: fmt.Sprintf(format, args...)}
}

func fail(err error) Outcome {
	return Outcome{Err: err}
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
	parser   *Parser
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.parser = NewParser(r)
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Names returns the primary names of all visible commands.
func (r *Registry) Names() []string {
	var names []string
	for _, cmd := range r.All() {
		if !cmd.Hidden {
			names = append(names, cmd.Name)
		}
	}
	return names
}

// ByCategory returns commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// Execute parses input as a slash command and runs it against env.
func (r *Registry) Execute(env *Env, input string) Outcome {
	res := r.parser.Parse(input)
	if !res.IsCommand || res.CommandName == "" {
		return fail(fmt.Errorf("%w: %q", ErrUnknownCommand, input))
	}
	if res.Command == nil {
		return fail(fmt.Errorf("%w: %s (type /help for a list)", ErrUnknownCommand, res.CommandName))
	}
	if err := ValidateArgs(res.Command, res.Args); err != nil {
		return fail(err)
	}
	if !res.Command.AllowBusy && env.Store.State().IsLoading {
		return fail(ErrBusy)
	}
	return res.Command.Handler(env, res.Args)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show help and available commands",
		Usage:       "/help [command]",
		Args: []ArgDef{
			{Name: "command", Type: ArgTypeCommand, Description: "Command to describe"},
		},
		AllowBusy: true,
		Category:  "Navigation",
		Handler:   r.handleHelp,
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit flurchat",
		AllowBusy:   true,
		Category:    "Navigation",
		Handler:     HandleQuit,
	})

	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Save the current chat and start a new one",
		Usage:       "/new [title]",
		Args: []ArgDef{
			{Name: "title", Type: ArgTypeString, Description: "Title for the saved chat"},
		},
		Category: "Conversation",
		Handler:  HandleNew,
	})

	r.Register(&Command{
		Name:        "/list",
		Aliases:     []string{"/ls", "/conversations"},
		Description: "List conversations",
		Usage:       "/list [filter]",
		Args: []ArgDef{
			{Name: "filter", Type: ArgTypeString, Description: "Title substring"},
		},
		AllowBusy: true,
		Category:  "Conversation",
		Handler:   HandleList,
	})

	r.Register(&Command{
		Name:        "/switch",
		Aliases:     []string{"/s", "/load"},
		Description: "Open a conversation",
		Usage:       "/switch <number|id|current>",
		Args: []ArgDef{
			{Name: "conversation", Required: true, Type: ArgTypeConversation, Description: "Conversation to open"},
		},
		Category: "Conversation",
		Handler:  HandleSwitch,
	})

	r.Register(&Command{
		Name:        "/delete",
		Aliases:     []string{"/rm"},
		Description: "Delete a saved conversation",
		Usage:       "/delete <number|id>",
		Args: []ArgDef{
			{Name: "conversation", Required: true, Type: ArgTypeConversation, Description: "Conversation to delete"},
		},
		Category: "Conversation",
		Handler:  HandleDelete,
	})

	r.Register(&Command{
		Name:        "/title",
		Aliases:     []string{"/rename"},
		Description: "Rename the open conversation",
		Usage:       "/title <title>",
		Args: []ArgDef{
			{Name: "title", Required: true, Type: ArgTypeString, Description: "New title"},
		},
		Category: "Conversation",
		Handler:  HandleTitle,
	})

	r.Register(&Command{
		Name:        "/export",
		Description: "Write the open chat to a file",
		Usage:       "/export [markdown|json|html]",
		Args: []ArgDef{
			{Name: "format", Type: ArgTypeEnum, Values: []string{"markdown", "json", "html", "md"},
				Description: "File format"},
		},
		AllowBusy: true,
		Category:  "Conversation",
		Handler:   HandleExport,
	})

	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/c"},
		Description: "Clear the open chat",
		Category:    "Conversation",
		Handler:     HandleClear,
	})

	r.Register(&Command{
		Name:        "/system",
		Description: "Show or set the system prompt",
		Usage:       "/system [prompt|reset]",
		Args: []ArgDef{
			{Name: "prompt", Type: ArgTypeString, Description: "New system prompt, or reset",
				Completer: func() []string { return []string{"reset"} }},
		},
		AllowBusy: true,
		Category:  "Settings",
		Handler:   HandleSystem,
	})

	r.Register(&Command{
		Name:        "/attach",
		Aliases:     []string{"/img", "/image"},
		Description: "Attach an image to the next message",
		Usage:       "/attach <path|url>",
		Args: []ArgDef{
			{Name: "image", Required: true, Type: ArgTypeFile, Description: "Image file or URL"},
		},
		AllowBusy: true,
		Category:  "Message",
		Handler:   HandleAttach,
	})

	r.Register(&Command{
		Name:        "/detach",
		Description: "Drop pending attachments",
		AllowBusy:   true,
		Category:    "Message",
		Handler:     HandleDetach,
	})

	r.Register(&Command{
		Name:        "/cancel",
		Aliases:     []string{"/stop"},
		Description: "Stop the reply that is streaming",
		AllowBusy:   true,
		Category:    "Message",
		Handler:     HandleCancel,
	})
}

// =============================================================================
// COMPLETION TYPE
// =============================================================================

// Completion represents a completion suggestion.
type Completion struct {
	// Value to insert
	Value string

	// Display text (may include formatting)
	Display string

	// Description shown alongside
	Description string

	// Score for ranking (higher = better match)
	Score int
}
