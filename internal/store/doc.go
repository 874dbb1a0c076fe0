// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the chat state: the active message list, the saved
// conversations and the unsaved buffer.
//
// The Store is built once by the application root and handed to every front
// end. All mutations go through its methods, are written through to the
// snapshot backend, and are announced to subscribers in the order they
// happened.
//
// # Active List and Unsaved Buffer
//
// The active list either mirrors the unsaved buffer (ActiveConversationID is
// empty) or a saved conversation edited in place. Every append updates both
// views so they never drift.
//
// # Usage
//
//	st := store.New(store.Options{Backend: backend, DefaultSystemPrompt: prompt})
//	if err := st.Load(ctx); err != nil {
//	    log.Warn().Err(err).Msg("starting with an empty store")
//	}
//	unsubscribe := st.Subscribe(func(s store.State) { render(s) })
//	defer unsubscribe()
//	st.AddMessage(model.NewUserMessage("hello", nil))
package store
