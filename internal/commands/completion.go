// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/util"
)

// maxFileCompletions caps file suggestions.
const maxFileCompletions = 20

// =============================================================================
// COMPLETER
// =============================================================================

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// ConversationsFn returns the conversation list for /switch and /delete.
	ConversationsFn func() []store.ChatEntry

	// FilesFn returns matching paths; nil means read the file system.
	FilesFn func(prefix string) []string
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns completions for the input up to cursorPos.
func (c *Completer) Complete(input string, cursorPos int) []Completion {
	if cursorPos >= 0 && cursorPos < len(input) {
		input = input[:cursorPos]
	}
	input = strings.TrimLeft(input, " \t")
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	trailingSpace := strings.HasSuffix(input, " ")
	parts := splitCommandLine(input)
	if len(parts) == 0 {
		return c.completeCommands("")
	}
	if len(parts) == 1 && !trailingSpace {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(strings.ToLower(parts[0]))
	if cmd == nil {
		return nil
	}

	argIndex := len(parts) - 2
	partial := ""
	if trailingSpace {
		argIndex++
	} else {
		partial = parts[len(parts)-1]
	}
	return c.completeArg(cmd, argIndex, partial)
}

// =============================================================================
// COMMAND COMPLETION
// =============================================================================

func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}
		if strings.HasPrefix(cmd.Name, partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}
		for _, alias := range cmd.Aliases {
			if len(partial) > 1 && strings.HasPrefix(alias, partial) {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, partial) - 10,
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}

	arg := cmd.Args[argIndex]
	switch arg.Type {
	case ArgTypeConversation:
		return c.completeConversations(partial)
	case ArgTypeFile:
		return c.completeFiles(partial)
	case ArgTypeEnum:
		return completeFromList(arg.Values, partial)
	case ArgTypeCommand:
		return completeFromList(c.registry.Names(), partial)
	default:
		if arg.Completer != nil {
			return completeFromList(arg.Completer(), partial)
		}
		return nil
	}
}

func (c *Completer) completeConversations(partial string) []Completion {
	if c.ConversationsFn == nil {
		return nil
	}

	var completions []Completion
	lower := strings.ToLower(partial)

	for _, e := range c.ConversationsFn() {
		idMatch := strings.HasPrefix(strings.ToLower(e.ID), lower)
		titleMatch := strings.Contains(strings.ToLower(e.Title), lower)
		if !idMatch && !titleMatch {
			continue
		}

		score := calculateScore(e.ID, lower)
		if titleMatch && !idMatch {
			score -= 5
		}
		completions = append(completions, Completion{
			Value:       e.ID,
			Display:     util.TruncateRunes(e.Title, 30),
			Description: e.Preview,
			Score:       score,
		})
	}

	sortCompletions(completions)
	return completions
}

func (c *Completer) completeFiles(partial string) []Completion {
	if c.FilesFn != nil {
		return completeFromList(c.FilesFn(partial), partial)
	}
	return imageFileCompletion(partial)
}

// imageFileCompletion lists directories and supported image files under
// the directory partial points into.
func imageFileCompletion(partial string) []Completion {
	dir := filepath.Dir(partial)
	prefix := filepath.Base(partial)
	if partial == "" || strings.HasSuffix(partial, string(os.PathSeparator)) {
		dir = partial
		if dir == "" {
			dir = "."
		}
		prefix = ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var completions []Completion
	lowerPrefix := strings.ToLower(prefix)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if !entry.IsDir() && util.ImageMediaType(filepath.Ext(name)) == "" {
			continue
		}

		p := filepath.Join(dir, name)
		score := calculateScore(name, lowerPrefix)
		desc := "directory"
		if entry.IsDir() {
			p += string(os.PathSeparator)
			score += 5
		} else if fi, err := entry.Info(); err == nil {
			desc = humanize.Bytes(uint64(fi.Size()))
		}

		completions = append(completions, Completion{
			Value:       p,
			Display:     name,
			Description: desc,
			Score:       score,
		})
	}

	sortCompletions(completions)
	if len(completions) > maxFileCompletions {
		completions = completions[:maxFileCompletions]
	}
	return completions
}

func completeFromList(values []string, partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, value := range values {
		if strings.HasPrefix(strings.ToLower(value), partial) {
			completions = append(completions, Completion{
				Value:   value,
				Display: value,
				Score:   calculateScore(value, partial),
			})
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// calculateScore ranks a completion; higher is a better match.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100
	if value == partial {
		return score + 100
	}
	if strings.HasPrefix(value, partial) {
		score += 50
		score += 20 - len(value)
	}
	score -= len(value) / 2
	return score
}

// sortCompletions sorts completions by score (descending), then alphabetically.
func sortCompletions(completions []Completion) {
	sort.Slice(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

// =============================================================================
// COMPLETION NAVIGATION
// =============================================================================

// CompletionState holds the state for cycling through completions.
type CompletionState struct {
	Completions []Completion

	// Selected index (-1 for none)
	Selected int

	Visible bool
}

// NewCompletionState creates a new completion state.
func NewCompletionState() *CompletionState {
	return &CompletionState{Selected: -1}
}

// Update replaces the completions and selects the first.
func (cs *CompletionState) Update(completions []Completion) {
	cs.Completions = completions
	cs.Selected = 0
	cs.Visible = len(completions) > 0
}

// Next moves to the next completion.
func (cs *CompletionState) Next() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected = (cs.Selected + 1) % len(cs.Completions)
}

// Prev moves to the previous completion.
func (cs *CompletionState) Prev() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected--
	if cs.Selected < 0 {
		cs.Selected = len(cs.Completions) - 1
	}
}

// Accept returns the selected completion value, or empty if none selected.
func (cs *CompletionState) Accept() string {
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		if len(cs.Completions) > 0 {
			return cs.Completions[0].Value
		}
		return ""
	}
	return cs.Completions[cs.Selected].Value
}

// Clear clears the completion state.
func (cs *CompletionState) Clear() {
	cs.Completions = nil
	cs.Selected = -1
	cs.Visible = false
}

// ApplyCompletion replaces the word being completed in input with value.
// A space follows unless value is a directory.
func ApplyCompletion(input, value string) string {
	if !strings.HasSuffix(value, string(os.PathSeparator)) {
		value += " "
	}
	i := strings.LastIndexAny(input, " \t")
	if i < 0 {
		return value
	}
	return input[:i+1] + value
}
