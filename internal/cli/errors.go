// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/flurchat/internal/config"
	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/stream"
)

// Commands always return errors and let Execute decide how to show them.

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the chat endpoint could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a conversation or key was not found
	ExitNotFoundError = 7
	// ExitCancelled indicates the user interrupted the command
	ExitCancelled = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command failure with context.
type CommandError struct {
	Command string // Command that failed (e.g., "conversations")
	Action  string // Action being performed (e.g., "delete")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a CommandError.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// UsageError wraps argument and flag mistakes.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		usageErr  *UsageError
		statusErr *stream.StatusError
		cfgErrs   config.ValidateErrors
	)
	switch {
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.As(err, &cfgErrs), errors.Is(err, config.ErrUnknownKey):
		return ExitConfigError
	case errors.Is(err, store.ErrConversationNotFound):
		return ExitNotFoundError
	case errors.Is(err, errInterrupted):
		return ExitCancelled
	case errors.As(err, &statusErr), errors.Is(err, errSendFailed):
		return ExitNetworkError
	}
	return ExitGeneralError
}
