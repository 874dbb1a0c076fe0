// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps the encoded snapshot in memory. Snapshots go through
// the same JSON encoding as the durable backends, so a loaded snapshot
// never aliases the saved one.
type MemoryStore struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	saveErr error
}

// NewMemoryStore returns an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the last saved snapshot.
func (s *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrNoSnapshot
	}
	return DecodeSnapshot(s.data)
}

// Save encodes and keeps snap.
func (s *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	s.data = data
	s.saves++
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// SetRaw replaces the stored document with raw bytes.
func (s *MemoryStore) SetRaw(data []byte) {
	s.mu.Lock()
	s.data = append([]byte(nil), data...)
	s.mu.Unlock()
}

// SetSaveError makes subsequent saves fail with err (nil restores saving).
func (s *MemoryStore) SetSaveError(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

// Saves returns the number of successful saves.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
