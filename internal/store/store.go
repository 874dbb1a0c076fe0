// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/flurchat/internal/model"
	"github.com/jeranaias/flurchat/internal/storage"
)

// CurrentTarget is the switch target naming the unsaved buffer.
const CurrentTarget = "current"

// DefaultSystemPrompt is used when neither the caller nor the snapshot
// supplies one.
const DefaultSystemPrompt = "You are an expert and helpful assistant."

// saveTimeout bounds a single write-through save.
const saveTimeout = 10 * time.Second

// =============================================================================
// STATE
// =============================================================================

// State is a read-only view of the store. Slices in a State are never
// written to after the State is handed out, so it may be kept across later
// mutations.
type State struct {
	// Messages is the active list.
	Messages []model.Message

	// Conversations are the saved conversations in save order.
	Conversations []model.Conversation

	// ActiveConversationID names the conversation being edited in place,
	// or is empty when the active list is the unsaved buffer.
	ActiveConversationID string

	// UnsavedMessages is the buffer restored by switching to "current".
	UnsavedMessages []model.Message

	// IsLoading is true between send initiation and stream completion.
	IsLoading bool

	// SystemPrompt is injected at payload construction time only.
	SystemPrompt string
}

// Conversation returns the saved conversation with the given id.
func (s State) Conversation(id string) (model.Conversation, bool) {
	for _, c := range s.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// LastMessage returns the last message of the active list.
func (s State) LastMessage() (model.Message, bool) {
	if len(s.Messages) == 0 {
		return model.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// =============================================================================
// STORE
// =============================================================================

// Options configures a Store.
type Options struct {
	// Backend persists snapshots. Nil keeps the state in memory only.
	Backend storage.SnapshotStore

	// DefaultSystemPrompt seeds the prompt when nothing was persisted.
	DefaultSystemPrompt string

	// TitleMaxRunes bounds derived conversation titles (default 50).
	TitleMaxRunes int

	// Logger receives persistence failures and lifecycle events.
	Logger zerolog.Logger
}

// Store is the single source of truth for the chat state.
// It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	state State
	seq   uint64

	backend       storage.SnapshotStore
	defaultPrompt string
	titleMax      int
	logger        zerolog.Logger

	// Notification queue, drained in mutation order
	notifyMu sync.Mutex
	pending  []State
	draining bool
	subs     map[int]func(State)
	nextSub  int

	// Persistence ordering
	saveMu  sync.Mutex
	savedAt uint64
}

// New creates a store holding the default state.
func New(opts Options) *Store {
	prompt := opts.DefaultSystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultSystemPrompt
	}
	titleMax := opts.TitleMaxRunes
	if titleMax <= 0 {
		titleMax = model.TitleMaxRunes
	}

	return &Store{
		state:         State{SystemPrompt: prompt},
		backend:       opts.Backend,
		defaultPrompt: prompt,
		titleMax:      titleMax,
		logger:        opts.Logger.With().Str("component", "store").Logger(),
		subs:          make(map[int]func(State)),
	}
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn to receive the state after every mutation. fn runs
// outside the store lock and may call back into the store; mutations it
// makes are delivered after it returns. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.notifyMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			delete(s.subs, id)
			s.notifyMu.Unlock()
		})
	}
}

// enqueue must be called with s.mu held so the queue follows mutation order.
func (s *Store) enqueue(st State) {
	s.notifyMu.Lock()
	s.pending = append(s.pending, st)
	s.notifyMu.Unlock()
}

// flush delivers queued states. Only one goroutine drains at a time; others
// leave their states to it.
func (s *Store) flush() {
	s.notifyMu.Lock()
	if s.draining {
		s.notifyMu.Unlock()
		return
	}
	s.draining = true

	for len(s.pending) > 0 {
		st := s.pending[0]
		s.pending = s.pending[1:]

		subs := make([]func(State), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
		s.notifyMu.Unlock()

		for _, fn := range subs {
			fn(st)
		}

		s.notifyMu.Lock()
	}

	s.pending = nil
	s.draining = false
	s.notifyMu.Unlock()
}

// =============================================================================
// MUTATION PLUMBING
// =============================================================================

// update applies fn to a copy of the state. fn reports whether it changed
// anything; unchanged states are neither persisted nor announced.
func (s *Store) update(persist bool, fn func(st *State) bool) {
	s.mu.Lock()
	next := s.state
	if !fn(&next) {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.seq++
	seq := s.seq
	s.enqueue(next)
	s.mu.Unlock()

	if persist {
		s.persist(seq, next)
	}
	s.flush()
}

// persist writes st unless a newer state has already been written.
// Failures are logged and swallowed; memory stays authoritative.
func (s *Store) persist(seq uint64, st State) {
	if s.backend == nil {
		return
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if seq <= s.savedAt {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.backend.Save(ctx, toSnapshot(st)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist state")
		return
	}
	s.savedAt = seq
}

// setActive installs msgs as the active list and mirrors it into the
// conversation being edited or the unsaved buffer.
func setActive(st *State, msgs []model.Message) {
	st.Messages = msgs
	if st.ActiveConversationID == "" {
		st.UnsavedMessages = msgs
		return
	}

	convs := make([]model.Conversation, len(st.Conversations))
	copy(convs, st.Conversations)
	for i := range convs {
		if convs[i].ID == st.ActiveConversationID {
			convs[i].Messages = msgs
		}
	}
	st.Conversations = convs
}

func findConversation(convs []model.Conversation, id string) int {
	for i, c := range convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AddMessage appends msg to the active list with a fresh id and returns the
// stored message. A zero Timestamp is set to now.
func (s *Store) AddMessage(msg model.Message) model.Message {
	msg.ID = model.NewMessageID()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if len(msg.Images) > 0 {
		msg.Images = append([]string(nil), msg.Images...)
	}

	s.update(true, func(st *State) bool {
		next := make([]model.Message, len(st.Messages), len(st.Messages)+1)
		copy(next, st.Messages)
		next = append(next, msg)
		setActive(st, next)
		return true
	})

	s.logger.Debug().
		Str("role", msg.Role.String()).
		Str("message_id", msg.ID).
		Msg("message added")
	return msg
}

// AppendToLastMessage merges a streamed token into the last message. It
// reports false, changing nothing, when the active list is empty, the token
// is empty, or the last message is not an assistant message.
func (s *Store) AppendToLastMessage(token string) bool {
	if token == "" {
		return false
	}

	applied := false
	s.update(true, func(st *State) bool {
		n := len(st.Messages)
		if n == 0 || st.Messages[n-1].Role != model.RoleAssistant {
			return false
		}

		next := make([]model.Message, n)
		copy(next, st.Messages)
		next[n-1].Content = next[n-1].Content.Append(token)
		setActive(st, next)
		applied = true
		return true
	})
	return applied
}

// MessagesForAPI returns the outbound payload: one system entry built from
// the system prompt, followed by the active list without system messages.
func (s *Store) MessagesForAPI() []model.APIMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.APIMessage, 0, len(s.state.Messages)+1)
	out = append(out, model.APIMessage{
		Role:    model.RoleSystem,
		Content: model.PlainText(s.state.SystemPrompt),
	})
	for _, msg := range s.state.Messages {
		if msg.Role == model.RoleSystem {
			continue
		}
		out = append(out, model.APIMessage{Role: msg.Role, Content: msg.Content})
	}
	return out
}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// NewConversation saves a non-empty active list as a new conversation and
// starts a fresh unsaved buffer. titleOverride, when not blank, replaces the
// derived title. It returns the saved conversation and whether one was
// created.
func (s *Store) NewConversation(titleOverride string) (model.Conversation, bool) {
	var saved model.Conversation
	created := false

	s.update(true, func(st *State) bool {
		if len(st.Messages) > 0 {
			title := strings.TrimSpace(titleOverride)
			if title == "" {
				title = model.DeriveTitleN(st.Messages, s.titleMax)
			}
			saved = model.Conversation{
				ID:        model.NewConversationID(),
				Title:     title,
				CreatedAt: time.Now(),
				Messages:  st.Messages,
			}

			convs := make([]model.Conversation, len(st.Conversations), len(st.Conversations)+1)
			copy(convs, st.Conversations)
			st.Conversations = append(convs, saved)
			created = true
		}

		st.Messages = nil
		st.UnsavedMessages = nil
		st.ActiveConversationID = ""
		return true
	})

	if created {
		s.logger.Info().
			Str("conversation_id", saved.ID).
			Int("messages", len(saved.Messages)).
			Msg("conversation saved")
	}
	return saved, created
}

// SwitchConversation makes target the active list. CurrentTarget restores
// the unsaved buffer. Leaving the unsaved buffer for a saved conversation
// stores the active list into the buffer first; hopping between saved
// conversations leaves the buffer alone. An unknown id changes nothing and
// returns ErrConversationNotFound.
func (s *Store) SwitchConversation(target string) error {
	var err error
	s.update(true, func(st *State) bool {
		if target == CurrentTarget {
			st.Messages = st.UnsavedMessages
			st.ActiveConversationID = ""
			return true
		}

		i := findConversation(st.Conversations, target)
		if i < 0 {
			err = fmt.Errorf("%w: %s", ErrConversationNotFound, target)
			return false
		}

		if st.ActiveConversationID == "" {
			st.UnsavedMessages = st.Messages
		}
		st.Messages = st.Conversations[i].Messages
		st.ActiveConversationID = target
		return true
	})

	if err != nil {
		s.logger.Debug().Str("conversation_id", target).Msg("switch to unknown conversation")
	}
	return err
}

// DeleteConversation removes a saved conversation. Deleting the active one
// also empties the active list and the unsaved buffer. An unknown id
// changes nothing and returns ErrConversationNotFound.
func (s *Store) DeleteConversation(id string) error {
	var err error
	s.update(true, func(st *State) bool {
		i := findConversation(st.Conversations, id)
		if i < 0 {
			err = fmt.Errorf("%w: %s", ErrConversationNotFound, id)
			return false
		}

		convs := make([]model.Conversation, 0, len(st.Conversations)-1)
		convs = append(convs, st.Conversations[:i]...)
		convs = append(convs, st.Conversations[i+1:]...)
		st.Conversations = convs

		if st.ActiveConversationID == id {
			st.Messages = nil
			st.UnsavedMessages = nil
			st.ActiveConversationID = ""
		}
		return true
	})
	return err
}

// SetConversationTitle renames a saved conversation. An unknown id changes
// nothing and returns ErrConversationNotFound.
func (s *Store) SetConversationTitle(id, title string) error {
	var err error
	s.update(true, func(st *State) bool {
		i := findConversation(st.Conversations, id)
		if i < 0 {
			err = fmt.Errorf("%w: %s", ErrConversationNotFound, id)
			return false
		}

		convs := make([]model.Conversation, len(st.Conversations))
		copy(convs, st.Conversations)
		convs[i].Title = title
		st.Conversations = convs
		return true
	})
	return err
}

// =============================================================================
// SETTERS
// =============================================================================

// SetLoading sets the loading flag. The flag is transient and not persisted.
func (s *Store) SetLoading(loading bool) {
	s.update(false, func(st *State) bool {
		if st.IsLoading == loading {
			return false
		}
		st.IsLoading = loading
		return true
	})
}

// SetSystemPrompt replaces the system prompt used for future sends.
func (s *Store) SetSystemPrompt(prompt string) {
	s.update(true, func(st *State) bool {
		st.SystemPrompt = prompt
		return true
	})
}

// ClearActive empties the active list and the unsaved buffer, detaches from
// any saved conversation and clears the loading flag. Saved conversations
// are kept.
func (s *Store) ClearActive() {
	s.update(true, func(st *State) bool {
		st.Messages = nil
		st.UnsavedMessages = nil
		st.ActiveConversationID = ""
		st.IsLoading = false
		return true
	})
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Load restores the state from the backend. A missing or corrupt snapshot
// leaves the default state in place; other read failures do too, but are
// returned so the caller can report them.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	snap, err := s.backend.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		s.logger.Debug().Msg("no saved state, starting fresh")
		s.reset()
		return nil
	case errors.Is(err, storage.ErrCorruptSnapshot):
		s.logger.Warn().Err(err).Msg("saved state is corrupt, starting fresh")
		s.reset()
		return nil
	case err != nil:
		s.reset()
		return fmt.Errorf("failed to load state: %w", err)
	}

	restored := s.fromSnapshot(snap)
	s.update(false, func(st *State) bool {
		*st = restored
		return true
	})

	s.logger.Debug().
		Int("messages", len(restored.Messages)).
		Int("conversations", len(restored.Conversations)).
		Str("conversation_id", restored.ActiveConversationID).
		Msg("state restored")
	return nil
}

// Save writes the current state to the backend.
func (s *Store) Save(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	s.mu.RLock()
	st, seq := s.state, s.seq
	s.mu.RUnlock()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.backend.Save(ctx, toSnapshot(st)); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	if seq > s.savedAt {
		s.savedAt = seq
	}
	return nil
}

// Replace adopts a snapshot written elsewhere, applying the same restore
// rules as Load. It returns ErrBusy while a reply is streaming.
func (s *Store) Replace(snap *storage.Snapshot) error {
	if snap == nil {
		return nil
	}
	restored := s.fromSnapshot(snap)

	var err error
	s.update(false, func(st *State) bool {
		if st.IsLoading {
			err = ErrBusy
			return false
		}
		*st = restored
		return true
	})
	return err
}

func (s *Store) reset() {
	s.update(false, func(st *State) bool {
		*st = State{SystemPrompt: s.defaultPrompt}
		return true
	})
}

// fromSnapshot applies the restore rules: a matching active id takes its
// messages from that conversation, anything else falls back to the unsaved
// buffer and drops the dangling id.
func (s *Store) fromSnapshot(snap *storage.Snapshot) State {
	st := State{
		Conversations:   snap.Conversations,
		UnsavedMessages: snap.UnsavedMessages,
		SystemPrompt:    snap.SystemPrompt,
	}
	if strings.TrimSpace(st.SystemPrompt) == "" {
		st.SystemPrompt = s.defaultPrompt
	}
	if snap.ActiveConversationID != nil && *snap.ActiveConversationID != "" {
		if i := findConversation(snap.Conversations, *snap.ActiveConversationID); i >= 0 {
			st.ActiveConversationID = *snap.ActiveConversationID
			st.Messages = snap.Conversations[i].Messages
			return st
		}
		s.logger.Warn().
			Str("conversation_id", *snap.ActiveConversationID).
			Msg("saved active conversation no longer exists")
	}

	if st.UnsavedMessages == nil {
		st.UnsavedMessages = snap.Messages
	}
	st.Messages = st.UnsavedMessages
	return st
}

func toSnapshot(st State) *storage.Snapshot {
	snap := &storage.Snapshot{
		Messages:        nonNil(st.Messages),
		Conversations:   st.Conversations,
		UnsavedMessages: nonNil(st.UnsavedMessages),
		SystemPrompt:    st.SystemPrompt,
	}
	if snap.Conversations == nil {
		snap.Conversations = []model.Conversation{}
	}
	if st.ActiveConversationID != "" {
		id := st.ActiveConversationID
		snap.ActiveConversationID = &id
	}
	return snap
}

func nonNil(msgs []model.Message) []model.Message {
	if msgs == nil {
		return []model.Message{}
	}
	return msgs
}
