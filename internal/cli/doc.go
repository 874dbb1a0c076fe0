// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the flurchat command line.
//
// The root command opens the full-screen chat. Subcommands cover a
// line-oriented REPL, one-shot sends, conversation management and
// configuration:
//
//	flurchat                         Full-screen chat (default)
//	flurchat chat                    Line-oriented chat with history
//	flurchat ask [--image F] TEXT    Send one message, stream the reply
//	flurchat conversations list      List saved conversations
//	flurchat conversations show ID   Print a conversation
//	flurchat conversations export ID Write a conversation to a file
//	flurchat config show             Print the effective configuration
//	flurchat version                 Print version information
//
// Every command shares one App: configuration, the zerolog logger, the
// snapshot backend, the conversation store and the stream session.
//
// Output conventions:
//   - Results go to the command's stdout, diagnostics to the log file
//   - --json switches list and show commands to a JSONResponse envelope
//   - Colors are disabled for non-TTY output and when NO_COLOR is set
package cli
