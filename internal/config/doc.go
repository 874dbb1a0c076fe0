// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for flurchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - APIConfig: Chat server location and request options
//   - StorageConfig: Snapshot backend selection and credentials
//   - ValidateErrors: Every field that failed validation
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (FLURCHAT_*, VITE_API_BASE), optionally from .env
//   - ~/.flurchat/config.toml
//   - ~/.flurchat/config.json
//   - Built-in defaults
//
// FLURCHAT_HOME moves the whole directory.
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Warn().Err(err).Msg("using default configuration")
//	}
//	base := cfg.API.BaseURL
package config
