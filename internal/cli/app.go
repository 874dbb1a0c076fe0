// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/flurchat/internal/commands"
	"github.com/jeranaias/flurchat/internal/config"
	"github.com/jeranaias/flurchat/internal/storage"
	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/stream"
)

// App bundles what every command works against.
type App struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Backend     storage.SnapshotStore
	Store       *store.Store
	Client      *stream.Client
	Session     *stream.Session
	Registry    *commands.Registry
	Attachments *commands.Attachments

	stopWatch context.CancelFunc
	watchWG   sync.WaitGroup
}

// OpenApp opens the configured backend and restores the saved state.
// A backend that cannot be reached is an error; a corrupt snapshot is not.
func OpenApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	opts, err := storageOptions(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", opts.Backend, err)
	}

	st := store.New(store.Options{
		Backend:             backend,
		DefaultSystemPrompt: cfg.Chat.SystemPrompt,
		TitleMaxRunes:       cfg.Chat.TitleMaxRunes,
		Logger:              logger,
	})
	if err := st.Load(ctx); err != nil {
		// Memory stays authoritative; the next write retries the backend
		logger.Warn().Err(err).Str("backend", opts.Backend).Msg("starting with an empty state")
	}

	client := stream.NewClient(stream.ClientConfig{
		BaseURL:       cfg.API.BaseURL,
		ChatPath:      cfg.API.ChatPath,
		Model:         cfg.API.Model,
		HeaderTimeout: cfg.HeaderTimeout(),
	})

	logger.Debug().
		Str("backend", opts.Backend).
		Str("endpoint", client.URL()).
		Msg("app opened")

	return &App{
		Config:      cfg,
		Logger:      logger,
		Backend:     backend,
		Store:       st,
		Client:      client,
		Session:     stream.NewSession(st, client, logger),
		Registry:    commands.NewRegistry(),
		Attachments: commands.NewAttachments(),
	}, nil
}

// storageOptions maps the storage section onto backend options.
func storageOptions(cfg *config.Config) (storage.Options, error) {
	opts := storage.Options{
		Backend:       cfg.Storage.Backend,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		S3Endpoint:    cfg.Storage.S3Endpoint,
		S3AccessKey:   cfg.Storage.S3AccessKey,
		S3SecretKey:   cfg.Storage.S3SecretKey,
		S3Bucket:      cfg.Storage.S3Bucket,
		S3UseSSL:      cfg.Storage.S3UseSSL,
	}
	if opts.Backend == storage.BackendFile || opts.Backend == storage.BackendSQLite {
		dir, err := cfg.DataDir()
		if err != nil {
			return storage.Options{}, fmt.Errorf("could not determine data directory: %w", err)
		}
		opts.Dir = dir
	}
	return opts, nil
}

// Env returns the slash-command environment for this app.
func (a *App) Env() *commands.Env {
	return &commands.Env{
		Store:       a.Store,
		Session:     a.Session,
		Attachments: a.Attachments,
		Config:      a.Config,
	}
}

// StartWatch follows writes made by other flurchat processes when the
// file backend is in use and storage.watch is on. It is a no-op otherwise.
func (a *App) StartWatch(ctx context.Context) {
	fs, ok := a.Backend.(*storage.FileStore)
	if !ok || !a.Config.Storage.Watch || a.stopWatch != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	a.stopWatch = cancel
	a.watchWG.Add(1)
	go func() {
		defer a.watchWG.Done()
		err := fs.Watch(ctx, storage.DefaultWatchDebounce, a.Logger, a.adopt)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Warn().Err(err).Str("path", fs.Path()).Msg("stopped watching saved state")
		}
	}()
}

// adopt applies a snapshot written by another process. Snapshots that
// arrive mid-stream are dropped; the stream's own writes supersede them.
func (a *App) adopt(snap *storage.Snapshot) {
	if err := a.Store.Replace(snap); err != nil {
		a.Logger.Debug().Err(err).Msg("ignored external state change")
		return
	}
	a.Logger.Info().Msg("state reloaded from another process")
}

// Close cancels any send in flight, stops watching and releases the
// backend.
func (a *App) Close() error {
	a.Session.Cancel()
	if a.stopWatch != nil {
		a.stopWatch()
		a.watchWG.Wait()
	}
	return a.Backend.Close()
}
