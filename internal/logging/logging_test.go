// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)

	lvl, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestSetup_File(t *testing.T) {
	restoreGlobals(t)
	path := filepath.Join(t.TempDir(), "logs", "flurchat.log")

	logger, closer, err := Setup(Options{Level: "info", File: path})
	require.NoError(t, err)

	logger.Debug().Msg("hidden detail")
	logger.Info().Str("component", "store").Msg("conversation saved")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "conversation saved")
	assert.Contains(t, string(data), "component=store")
	assert.NotContains(t, string(data), "hidden detail")
}

func TestSetup_ConsoleAndGlobal(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer

	_, closer, err := Setup(Options{Level: "warn", Console: true, Stderr: &buf})
	require.NoError(t, err)
	defer closer.Close()

	log.Info().Msg("quiet")
	log.Warn().Msg("loud")

	assert.Contains(t, buf.String(), "loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestSetup_InvalidLevel(t *testing.T) {
	restoreGlobals(t)
	_, _, err := Setup(Options{Level: "chatty"})
	assert.Error(t, err)
}
