// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/flurchat/internal/config"
	"github.com/jeranaias/flurchat/internal/model"
	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/stream"
)

// =============================================================================
// HELPERS
// =============================================================================

// setupHome points the config directory at a temp dir and clears
// environment overrides from the host.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)
	for _, env := range []string{
		"FLURCHAT_API_BASE", "VITE_API_BASE", "FLURCHAT_MODEL", "FLURCHAT_STORAGE",
		"FLURCHAT_DATA_DIR", "FLURCHAT_LOG_LEVEL", "FLURCHAT_SYSTEM_PROMPT",
		"FLURCHAT_REDIS_PASSWORD",
	} {
		t.Setenv(env, "")
	}
	return home
}

// runCLI executes one invocation and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd, cleanup := NewRootCommand()
	defer cleanup()

	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func frame(token string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", token)
}

// chatServer streams tokens as SSE frames and ends with [DONE].
func chatServer(t *testing.T, tokens ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range tokens {
			fmt.Fprint(w, frame(tok))
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_StreamsReplyToStdout(t *testing.T) {
	setupHome(t)
	srv := chatServer(t, "Hi", " there")

	out, err := runCLI(t, "ask", "--api-base", srv.URL, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there\n", out)

	// The exchange was persisted into the unsaved conversation
	out, err = runCLI(t, "conversations", "show", "current")
	require.NoError(t, err)
	assert.Contains(t, out, "You:")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "Assistant:")
	assert.Contains(t, out, "Hi there")
}

func TestAsk_JSONOutput(t *testing.T) {
	setupHome(t)
	srv := chatServer(t, "4")

	out, err := runCLI(t, "ask", "--ephemeral", "--json", "--api-base", srv.URL, "2+2?")
	require.NoError(t, err)

	var resp struct {
		Success bool      `json:"success"`
		Command string    `json:"command"`
		Data    askResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ask", resp.Command)
	assert.Equal(t, "4", resp.Data.Reply)
	assert.Equal(t, 1, resp.Data.Tokens)
}

func TestAsk_NothingToSendIsUsageError(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "ask", "--ephemeral", "   ")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestAsk_MissingImageIsUsageError(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "ask", "--ephemeral", "--image", filepath.Join(t.TempDir(), "nope.png"), "look")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestAsk_ServerErrorRecordsFailure(t *testing.T) {
	setupHome(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := runCLI(t, "ask", "--api-base", srv.URL, "hello")
	require.Error(t, err)
	assert.Equal(t, ExitNetworkError, GetExitCode(err))

	var statusErr *stream.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Contains(t, out, stream.FailureText)
}

func TestAskText_ReadsStdinForDash(t *testing.T) {
	text, err := askText(strings.NewReader("  from stdin \n"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "from stdin", text)

	text, err = askText(nil, []string{"two", "words"})
	require.NoError(t, err)
	assert.Equal(t, "two words", text)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func TestConversations_Lifecycle(t *testing.T) {
	setupHome(t)
	srv := chatServer(t, "Sure")

	_, err := runCLI(t, "ask", "--api-base", srv.URL, "plan a trip")
	require.NoError(t, err)

	out, err := runCLI(t, "conversations", "new", "--title", "Trip")
	require.NoError(t, err)
	assert.Equal(t, "Saved \"Trip\". Started a new conversation.\n", out)

	out, err = runCLI(t, "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Trip")

	out, err = runCLI(t, "conversations", "rename", "1", "Summer", "trip")
	require.NoError(t, err)
	assert.Equal(t, "Renamed to \"Summer trip\".\n", out)

	out, err = runCLI(t, "conversations", "list", "--json")
	require.NoError(t, err)
	var resp struct {
		Success bool                  `json:"success"`
		Data    []conversationSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.True(t, resp.Data[0].Current)
	assert.True(t, resp.Data[0].Active)
	assert.Equal(t, "Summer trip", resp.Data[1].Title)
	assert.Equal(t, 2, resp.Data[1].Messages)

	out, err = runCLI(t, "conversations", "switch", "1")
	require.NoError(t, err)
	assert.Equal(t, "Switched to \"Summer trip\".\n", out)

	out, err = runCLI(t, "conversations", "delete", resp.Data[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Deleted \"Summer trip\".\n", out)

	_, err = runCLI(t, "conversations", "show", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConversationNotFound)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestConversations_ListFilterNoMatch(t *testing.T) {
	setupHome(t)

	out, err := runCLI(t, "conversations", "list", "--filter", "zebra")
	require.NoError(t, err)
	assert.Contains(t, out, `No conversations match "zebra".`)
}

func TestConversations_DeleteCurrentRefused(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "conversations", "delete", "current")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not saved")
}

func TestConversations_RenameNeedsTitle(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "conversations", "rename", "1")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConversations_Export(t *testing.T) {
	home := setupHome(t)
	srv := chatServer(t, "Paris.")

	_, err := runCLI(t, "ask", "--api-base", srv.URL, "Capital of France?")
	require.NoError(t, err)

	out, err := runCLI(t, "conversations", "export", "current", "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Capital of France?")
	assert.Contains(t, out, "### [Assistant]")

	_, err = runCLI(t, "conversations", "new", "--title", "Geography")
	require.NoError(t, err)

	target := filepath.Join(home, "out", "geo.json")
	out, err = runCLI(t, "conversations", "export", "1", "--format", "json", "--output", target)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "Geography"`)
	assert.Contains(t, string(data), "Paris.")

	_, err = runCLI(t, "conversations", "export", "1", "--format", "pdf")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "conversations", "list", "--bogus")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_SetThenGet(t *testing.T) {
	home := setupHome(t)

	out, err := runCLI(t, "config", "set", "api.model", "test-model")
	require.NoError(t, err)
	assert.Equal(t, "api.model = test-model\n", out)
	assert.FileExists(t, filepath.Join(home, "config.toml"))

	out, err = runCLI(t, "config", "get", "api.model")
	require.NoError(t, err)
	assert.Equal(t, "test-model\n", out)
}

func TestConfig_SetInvalidValueKeepsFile(t *testing.T) {
	home := setupHome(t)

	_, err := runCLI(t, "config", "set", "storage.backend", "floppy")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	assert.NoFileExists(t, filepath.Join(home, "config.toml"))
}

func TestConfig_GetUnknownKey(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "config", "get", "api.nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnknownKey)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

func TestConfig_ShowRedactsSecrets(t *testing.T) {
	setupHome(t)
	t.Setenv("FLURCHAT_REDIS_PASSWORD", "hunter2")

	out, err := runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, redactedValue)
	assert.Contains(t, out, "[api]")
}

func TestConfig_FlagsOverrideFile(t *testing.T) {
	setupHome(t)

	out, err := runCLI(t, "--api-base", "chat.example.com", "config", "get", "api.base_url")
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com\n", out)
}

func TestConfig_InitRefusesOverwrite(t *testing.T) {
	home := setupHome(t)

	out, err := runCLI(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(home, "config.toml"))

	_, err = runCLI(t, "config", "init")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, err = runCLI(t, "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfig_Path(t *testing.T) {
	home := setupHome(t)

	out, err := runCLI(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(home, "data"))
	assert.Contains(t, out, filepath.Join(home, "flurchat.log"))
}

func TestVersion(t *testing.T) {
	setupHome(t)

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "flurchat "+Version)
}

// =============================================================================
// REPL
// =============================================================================

// scriptedPrompt returns lines in order, then io.EOF.
func scriptedPrompt(lines ...string) func(string) (string, error) {
	return func(string) (string, error) {
		if len(lines) == 0 {
			return "", io.EOF
		}
		line := lines[0]
		lines = lines[1:]
		return line, nil
	}
}

func newTestApp(t *testing.T, baseURL string) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	cfg.API.BaseURL = baseURL

	app, err := OpenApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestREPL_SendsAndRunsCommands(t *testing.T) {
	srv := chatServer(t, "Hello", "!")
	app := newTestApp(t, srv.URL)

	var out bytes.Buffer
	err := newREPL(app, &out).run(context.Background(), scriptedPrompt(
		"hi",
		"",
		"/new Greeting",
		"/quit",
		"never read",
	))
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Hello!")
	assert.Contains(t, text, "2 tokens")
	assert.Contains(t, text, `Saved "Greeting".`)

	st := app.Store.State()
	require.Len(t, st.Conversations, 1)
	assert.Equal(t, "Greeting", st.Conversations[0].Title)
	assert.Empty(t, st.Messages)
}

func TestREPL_EndsOnEOFAndReportsCommandErrors(t *testing.T) {
	app := newTestApp(t, "http://127.0.0.1:1")

	var out bytes.Buffer
	err := newREPL(app, &out).run(context.Background(), scriptedPrompt("/switch 42"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Error:")
	assert.Contains(t, out.String(), "conversation not found")
}

func TestREPL_FailedSendIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()
	app := newTestApp(t, srv.URL)

	var out bytes.Buffer
	require.NoError(t, newREPL(app, &out).run(context.Background(), scriptedPrompt("hi")))
	assert.Contains(t, out.String(), "Send failed:")
	assert.Contains(t, out.String(), stream.FailureText)
}

// =============================================================================
// UNITS
// =============================================================================

func TestReplyPrinter_PrintsOnlyNewReply(t *testing.T) {
	st := store.New(store.Options{Logger: zerolog.Nop()})
	st.AddMessage(model.NewAssistantMessage("old reply"))

	var buf bytes.Buffer
	p := newReplyPrinter(&buf)
	p.arm(st.State())
	unsubscribe := st.Subscribe(p.observe)
	defer unsubscribe()

	assert.False(t, p.wrote())
	st.AddMessage(model.NewUserMessage("question", nil))
	st.AddMessage(model.NewAssistantMessage("Hel"))
	st.AppendToLastMessage("lo")

	assert.Equal(t, "Hello", buf.String())
	assert.True(t, p.wrote())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", &UsageError{Err: errors.New("bad flag")}, ExitUsageError},
		{"validation", fmt.Errorf("invalid: %w", config.ValidateErrors{{Field: "api.base_url", Message: "bad"}}), ExitConfigError},
		{"unknown key", fmt.Errorf("get: %w", config.ErrUnknownKey), ExitConfigError},
		{"not found", fmt.Errorf("%w: abc", store.ErrConversationNotFound), ExitNotFoundError},
		{"interrupted", errInterrupted, ExitCancelled},
		{"status", &stream.StatusError{StatusCode: 502, Status: "502 Bad Gateway"}, ExitNetworkError},
		{"send failed", fmt.Errorf("%w: %w", errSendFailed, io.ErrUnexpectedEOF), ExitNetworkError},
		{"other", errors.New("disk on fire"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{850 * time.Millisecond, "850ms"},
		{4200 * time.Millisecond, "4.2s"},
		{125 * time.Second, "2m05s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}

func TestActiveTitle(t *testing.T) {
	assert.Equal(t, "New conversation", activeTitle(store.State{}))
	assert.Equal(t, store.CurrentTitle, activeTitle(store.State{
		UnsavedMessages: []model.Message{{ID: "m1", Role: model.RoleUser}},
	}))
	assert.Equal(t, "Trip", activeTitle(store.State{
		ActiveConversationID: "c1",
		Conversations:        []model.Conversation{{ID: "c1", Title: "Trip"}},
	}))
}
