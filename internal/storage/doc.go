// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides snapshot persistence for the flurchat store.
//
// The whole chat state is written as one JSON document under a fixed key.
// Backends only move bytes; the restore rules live in the store package.
//
// # Key Types
//
//   - Snapshot: the persisted subset of the store state
//   - SnapshotStore: narrow load/save interface implemented by every backend
//   - FileStore: JSON file with atomic replace (default)
//   - SQLiteStore: key/value row in an embedded SQLite database
//   - RedisStore: one Redis string
//   - ObjectStore: one object in an S3-compatible bucket
//   - MemoryStore: in-process, for tests and ephemeral sessions
//
// # Usage
//
//	backend, err := storage.Open(ctx, storage.Options{Backend: storage.BackendFile, Dir: dir})
//	snap, err := backend.Load(ctx)
//	if errors.Is(err, storage.ErrNoSnapshot) {
//	    // first run
//	}
//	err = backend.Save(ctx, snap)
//
// # Storage Location
//
// The file and SQLite backends keep their data in ~/.flurchat/data/ unless
// a directory is configured.
package storage
