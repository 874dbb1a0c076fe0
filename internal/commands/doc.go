// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system shared by the
// terminal UI and the line-mode REPL.
//
// Handlers act on an Env (the conversation store, the stream session and
// the pending image attachments) and report back through an Outcome, so
// each front end decides how to render the result.
//
// # Key Types
//
//   - Registry: Command registry with all available commands
//   - Parser: Splits input into a command and its arguments
//   - Env: Dependencies handed to every handler
//   - Outcome: Text to show, error, and follow-up flags
//   - Completer: Tab completion for commands and arguments
//
// # Built-in Commands
//
//   - /new, /list, /switch, /delete, /title: conversation management
//   - /system: show or change the system prompt
//   - /attach, /detach: stage images for the next message
//   - /clear, /cancel, /help, /quit
//
// # Usage
//
//	registry := commands.NewRegistry()
//	out := registry.Execute(env, input)
//	if out.Quit {
//	    return
//	}
package commands
