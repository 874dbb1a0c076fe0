// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultWatchDebounce is how long the watcher waits for writes to settle.
const DefaultWatchDebounce = 150 * time.Millisecond

// Watch calls fn with the decoded snapshot whenever another process replaces
// the document. Writes made through s itself are ignored. Watch blocks until
// ctx is cancelled.
//
// The parent directory is watched rather than the file, because an atomic
// replace swaps the inode out from under a file watch.
func (s *FileStore) Watch(ctx context.Context, debounce time.Duration, logger zerolog.Logger, fn func(*Snapshot)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	logger = logger.With().Str("component", "watch").Str("path", s.path).Logger()
	logger.Debug().Msg("watching snapshot")

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			data, err := os.ReadFile(s.path)
			if err != nil {
				logger.Debug().Err(err).Msg("snapshot vanished")
				continue
			}
			if s.isOwn(data) {
				continue
			}
			snap, err := DecodeSnapshot(data)
			if err != nil {
				logger.Warn().Err(err).Msg("ignoring unreadable snapshot")
				continue
			}
			s.remember(data)
			fn(snap)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")
		}
	}
}
