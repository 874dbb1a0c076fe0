// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

// ErrConversationNotFound is returned when a conversation id does not match
// any saved conversation. Use errors.Is to check for it.
var ErrConversationNotFound = &StoreError{Message: "conversation not found"}

// ErrBusy is returned by Replace while a reply is streaming.
var ErrBusy = &StoreError{Message: "store is busy streaming"}

// StoreError represents a store-related error.
// It implements the error interface and can be compared using errors.Is.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
