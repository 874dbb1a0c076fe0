// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/flurchat/internal/model"
)

// StorageKey is the fixed key the snapshot is stored under.
const StorageKey = "flur-chat:state-v1"

// =============================================================================
// SNAPSHOT TYPE
// =============================================================================

// Snapshot is the persisted part of the chat state. The loading flag is
// transient and never stored.
type Snapshot struct {
	Messages             []model.Message      `json:"messages"`
	Conversations        []model.Conversation `json:"conversations"`
	ActiveConversationID *string              `json:"activeConversationId"`
	UnsavedMessages      []model.Message      `json:"unsavedMessages"`
	SystemPrompt         string               `json:"systemPrompt"`
}

// Encode serializes the snapshot.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a stored document. Undecodable input yields an
// error wrapping ErrCorruptSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &snap, nil
}

// =============================================================================
// SNAPSHOT STORE INTERFACE
// =============================================================================

// SnapshotStore is a durable slot holding one snapshot.
type SnapshotStore interface {
	// Load returns the stored snapshot, or ErrNoSnapshot when the slot is
	// empty.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Close releases backend resources.
	Close() error
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// ErrCorruptSnapshot is returned when the stored document cannot be decoded.
var ErrCorruptSnapshot = errors.New("snapshot is corrupt")

// =============================================================================
// BACKEND SELECTION
// =============================================================================

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Backends lists every backend name, in the order they are documented.
var Backends = []string{BackendFile, BackendSQLite, BackendRedis, BackendS3, BackendMemory}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Key     string // defaults to StorageKey
	Dir     string // file and sqlite backends

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
}

// Open constructs the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (SnapshotStore, error) {
	if opts.Key == "" {
		opts.Key = StorageKey
	}

	backend := strings.ToLower(opts.Backend)
	if opts.Dir == "" && (backend == "" || backend == BackendFile || backend == BackendSQLite) {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine data directory: %w", err)
		}
		opts.Dir = dir
	}

	switch backend {
	case "", BackendFile:
		return NewFileStore(opts.Dir, opts.Key)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(opts.Dir, "flurchat.db"), opts.Key)
	case BackendRedis:
		return NewRedisStore(ctx, RedisConfig{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		}, opts.Key)
	case BackendS3:
		return NewObjectStore(ctx, ObjectStoreConfig{
			Endpoint:  opts.S3Endpoint,
			AccessKey: opts.S3AccessKey,
			SecretKey: opts.S3SecretKey,
			Bucket:    opts.S3Bucket,
			UseSSL:    opts.S3UseSSL,
		}, opts.Key)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want one of %s)",
			opts.Backend, strings.Join(Backends, ", "))
	}
}

// DefaultDir returns ~/.flurchat/data.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".flurchat", "data"), nil
}

// fileNameForKey maps a storage key to a portable file name.
func fileNameForKey(key string) string {
	r := strings.NewReplacer(":", "_", "/", "_", "\\", "_")
	return r.Replace(key) + ".json"
}
