// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/flurchat/internal/util"
)

// FileStore keeps the snapshot as a JSON document on disk.
type FileStore struct {
	path string

	mu sync.Mutex
	// last bytes read or written by this process, used by Watch to tell
	// foreign writes from our own
	last []byte
}

// NewFileStore creates a file store for key under dir. An empty dir means
// DefaultDir.
func NewFileStore(dir, key string) (*FileStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine data directory: %w", err)
		}
		dir = d
	}
	if key == "" {
		key = StorageKey
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, fileNameForKey(key))}, nil
}

// Path returns the location of the snapshot document.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the snapshot document.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	s.remember(data)
	return DecodeSnapshot(data)
}

// Save atomically replaces the snapshot document.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := snap.Encode()
	if err != nil {
		return err
	}

	// RELIABILITY: remember before the rename so the watcher never mistakes
	// our own write for a foreign one
	s.remember(data)
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) remember(data []byte) {
	s.mu.Lock()
	s.last = append(s.last[:0], data...)
	s.mu.Unlock()
}

// isOwn reports whether data equals what this process last read or wrote.
func (s *FileStore) isOwn(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Equal(s.last, data)
}
