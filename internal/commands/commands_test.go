// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"io"
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

func newEnv(t *testing.T) *Env {
	t.Helper()
	return &Env{
		Store:       store.New(store.Options{DefaultSystemPrompt: "sys", Logger: zerolog.Nop()}),
		Attachments: NewAttachments(),
	}
}

// saveChat adds a user/assistant exchange and saves it under title.
func saveChat(t *testing.T, env *Env, title, text string) model.Conversation {
	t.Helper()
	env.Store.AddMessage(model.NewUserMessage(text, nil))
	env.Store.AddMessage(model.NewAssistantMessage("ok"))
	conv, ok := env.Store.NewConversation(title)
	require.True(t, ok)
	return conv
}

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"/help", true},
		{"/switch 2", true},
		{"  /help", true},
		{"hello", false},
		{"hello /help", false},
		{"", false},
		{"/", true},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, IsCommand(tc.input), tc.input)
	}
}

func TestExtractCommandName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/help", "/help"},
		{"/switch 2", "/switch"},
		{"  /title  My chat ", "/title"},
		{"hello", ""},
		{"/", "/"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ExtractCommandName(tc.input), tc.input)
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"one two", []string{"one", "two"}},
		{`"my photo.png" second`, []string{"my photo.png", "second"}},
		{`'single quoted' x`, []string{"single quoted", "x"}},
		{`"escaped \"quote\""`, []string{`escaped "quote"`}},
		{`""`, []string{""}},
		{"héllo   wörld", []string{"héllo", "wörld"}},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseArgs(tc.input), tc.input)
	}
}

func TestParser_Parse(t *testing.T) {
	r := NewRegistry()
	p := NewParser(r)

	res := p.Parse("  /SWITCH  2 ")
	assert.True(t, res.IsCommand)
	assert.Equal(t, "/switch", res.CommandName)
	assert.Equal(t, []string{"2"}, res.Args)
	assert.Equal(t, "2", res.RawArgs)
	require.NotNil(t, res.Command)
	assert.Equal(t, "/switch", res.Command.Name)

	res = p.Parse("/ls")
	require.NotNil(t, res.Command)
	assert.Equal(t, "/list", res.Command.Name)

	res = p.Parse("hello")
	assert.False(t, res.IsCommand)
	assert.Nil(t, res.Command)
}

func TestValidateArgs(t *testing.T) {
	cmd := &Command{
		Name: "/mode",
		Args: []ArgDef{
			{Name: "mode", Required: true, Type: ArgTypeEnum, Values: []string{"a", "b"}},
		},
	}

	var verr *ValidationError
	err := ValidateArgs(cmd, nil)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "required argument missing", verr.Message)

	err = ValidateArgs(cmd, []string{"c"})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), "got: c")

	assert.NoError(t, ValidateArgs(cmd, []string{"B"}))
	assert.NoError(t, ValidateArgs(nil, nil))
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{
		"/help", "/quit", "/new", "/list", "/switch", "/delete", "/title",
		"/clear", "/system", "/attach", "/detach", "/cancel",
	} {
		assert.NotNil(t, r.Get(name), name)
	}
	assert.Equal(t, r.Get("/quit"), r.Get("/exit"))
	assert.Nil(t, r.Get("/model"))
}

func TestExecute_Unknown(t *testing.T) {
	r := NewRegistry()
	out := r.Execute(newEnv(t), "/frobnicate")
	assert.ErrorIs(t, out.Err, ErrUnknownCommand)
}

func TestExecute_MissingArgument(t *testing.T) {
	r := NewRegistry()
	out := r.Execute(newEnv(t), "/switch")
	var verr *ValidationError
	assert.True(t, errors.As(out.Err, &verr))
}

func TestExecute_BusyGate(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)
	env.Store.SetLoading(true)

	assert.ErrorIs(t, r.Execute(env, "/clear").Err, ErrBusy)
	assert.ErrorIs(t, r.Execute(env, "/new").Err, ErrBusy)
	assert.NoError(t, r.Execute(env, "/list").Err)
	assert.NoError(t, r.Execute(env, "/help").Err)
}

func TestExecute_Help(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)

	out := r.Execute(env, "/help")
	require.NoError(t, out.Err)
	assert.Contains(t, out.Output, "/switch <number|id|current>")
	assert.Contains(t, out.Output, "Conversation")

	out = r.Execute(env, "/help attach")
	require.NoError(t, out.Err)
	assert.Contains(t, out.Output, "Aliases: /img, /image")

	assert.Error(t, r.Execute(env, "/help nope").Err)
}

func TestExecute_Quit(t *testing.T) {
	out := NewRegistry().Execute(newEnv(t), "/q")
	assert.True(t, out.Quit)
}

// =============================================================================
// CONVERSATION HANDLER TESTS
// =============================================================================

func TestHandleNew(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)

	out := r.Execute(env, "/new")
	assert.Equal(t, "Started a new conversation.", out.Output)
	assert.Empty(t, env.Store.State().Conversations)

	env.Store.AddMessage(model.NewUserMessage("plan a trip", nil))
	out = r.Execute(env, "/new Trip ideas")
	assert.Equal(t, `Saved "Trip ideas". Started a new conversation.`, out.Output)

	st := env.Store.State()
	require.Len(t, st.Conversations, 1)
	assert.Equal(t, "Trip ideas", st.Conversations[0].Title)
	assert.Empty(t, st.Messages)
}

func TestHandleList(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)
	saveChat(t, env, "Alpha", "first")
	saveChat(t, env, "Beta", "second")

	out := r.Execute(env, "/list")
	require.NoError(t, out.Err)
	lines := strings.Split(out.Output, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "No Conversation")
	assert.Contains(t, lines[1], "Alpha")
	assert.Contains(t, lines[2], "Beta")
	assert.True(t, strings.HasPrefix(lines[0], "*"), "unsaved chat is active")

	out = r.Execute(env, "/list bet")
	lines = strings.Split(out.Output, "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "  2  ", "numbered by position in the full list")

	out = r.Execute(env, "/list zzz")
	assert.Equal(t, `No conversations match "zzz".`, out.Output)
}

func TestResolveTarget(t *testing.T) {
	st := store.State{Conversations: []model.Conversation{
		{ID: "abc-111", Title: "one"},
		{ID: "abd-222", Title: "two"},
	}}

	tests := []struct {
		arg     string
		want    string
		wantErr error
	}{
		{"current", store.CurrentTarget, nil},
		{"CURRENT", store.CurrentTarget, nil},
		{"0", store.CurrentTarget, nil},
		{"2", "abd-222", nil},
		{"3", "3", nil},
		{"abc-111", "abc-111", nil},
		{"abc", "abc-111", nil},
		{"ab", "", ErrAmbiguous},
		{"zzz", "zzz", nil},
	}

	for _, tc := range tests {
		got, err := ResolveTarget(st, tc.arg)
		if tc.wantErr != nil {
			assert.ErrorIs(t, err, tc.wantErr, tc.arg)
			continue
		}
		require.NoError(t, err, tc.arg)
		assert.Equal(t, tc.want, got, tc.arg)
	}
}

func TestHandleSwitch(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)
	conv := saveChat(t, env, "Alpha", "first")
	env.Store.AddMessage(model.NewUserMessage("draft", nil))

	out := r.Execute(env, "/switch 1")
	require.NoError(t, out.Err)
	assert.Equal(t, `Switched to "Alpha".`, out.Output)
	st := env.Store.State()
	assert.Equal(t, conv.ID, st.ActiveConversationID)
	require.Len(t, st.UnsavedMessages, 1)

	out = r.Execute(env, "/switch current")
	require.NoError(t, out.Err)
	assert.Equal(t, "draft", env.Store.State().Messages[0].Text())

	out = r.Execute(env, "/switch 9")
	assert.ErrorIs(t, out.Err, store.ErrConversationNotFound)
}

func TestHandleDelete(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)
	saveChat(t, env, "Alpha", "first")

	assert.Error(t, r.Execute(env, "/delete current").Err)

	out := r.Execute(env, "/rm 1")
	require.NoError(t, out.Err)
	assert.Equal(t, `Deleted "Alpha".`, out.Output)
	assert.Empty(t, env.Store.State().Conversations)

	assert.ErrorIs(t, r.Execute(env, "/delete 1").Err, store.ErrConversationNotFound)
}

func TestHandleTitle(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)

	assert.Error(t, r.Execute(env, "/title Something").Err, "unsaved chat has no title")

	saveChat(t, env, "Alpha", "first")
	require.NoError(t, r.Execute(env, "/switch 1").Err)

	out := r.Execute(env, `/title "Quarterly plan" v2`)
	require.NoError(t, out.Err)
	assert.Equal(t, "Quarterly plan v2", env.Store.State().Conversations[0].Title)
}

func TestHandleExport(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	r := NewRegistry()
	env := newEnv(t)

	assert.Error(t, r.Execute(env, "/export").Err, "empty chat")

	env.Store.AddMessage(model.NewUserMessage("export me", nil))
	out := r.Execute(env, "/export json")
	require.NoError(t, out.Err)
	require.True(t, strings.HasPrefix(out.Output, "Exported to "))

	path := strings.TrimSuffix(strings.TrimPrefix(out.Output, "Exported to "), ".")
	assert.Equal(t, ".json", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "export me")

	assert.Error(t, r.Execute(env, "/export pdf").Err)
}

func TestOpenConversation(t *testing.T) {
	env := newEnv(t)

	_, ok := OpenConversation(env.Store.State())
	assert.False(t, ok)

	env.Store.AddMessage(model.NewUserMessage("draft", nil))
	conv, ok := OpenConversation(env.Store.State())
	require.True(t, ok)
	assert.Empty(t, conv.ID)
	assert.Equal(t, store.CurrentTitle, conv.Title)

	saved := saveChat(t, env, "Alpha", "first")
	require.NoError(t, env.Store.SwitchConversation(saved.ID))
	conv, ok = OpenConversation(env.Store.State())
	require.True(t, ok)
	assert.Equal(t, saved.ID, conv.ID)
	assert.Equal(t, "Alpha", conv.Title)
	assert.Len(t, conv.Messages, 3)
}

func TestHandleClear(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)
	saveChat(t, env, "Alpha", "first")
	env.Store.AddMessage(model.NewUserMessage("draft", nil))

	out := r.Execute(env, "/clear")
	require.NoError(t, out.Err)

	st := env.Store.State()
	assert.Empty(t, st.Messages)
	assert.Len(t, st.Conversations, 1)
}

func TestHandleSystem(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)
	env.Config = config.Default()
	env.Config.Chat.SystemPrompt = "configured"

	assert.Equal(t, "System prompt: sys", r.Execute(env, "/system").Output)

	require.NoError(t, r.Execute(env, "/system Answer in haiku.").Err)
	assert.Equal(t, "Answer in haiku.", env.Store.State().SystemPrompt)

	require.NoError(t, r.Execute(env, "/system reset").Err)
	assert.Equal(t, "configured", env.Store.State().SystemPrompt)
}

// =============================================================================
// ATTACHMENT TESTS
// =============================================================================

func TestAttachDetach(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)

	img := filepath.Join(t.TempDir(), "cat photo.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG"), 0600))

	out := r.Execute(env, `/attach "`+img+`"`)
	require.NoError(t, out.Err)
	assert.Equal(t, "Attached cat photo.png (1 pending).", out.Output)

	out = r.Execute(env, "/img https://example.com/pics/dog.jpg?size=large")
	require.NoError(t, out.Err)
	assert.Equal(t, []string{"cat photo.png", "dog.jpg"}, env.Attachments.Names())

	assert.Error(t, r.Execute(env, "/attach notes.txt").Err)

	out = r.Execute(env, "/detach")
	assert.Equal(t, "Removed 2 attachment(s).", out.Output)
	assert.Zero(t, env.Attachments.Len())
}

func TestAttachments_Take(t *testing.T) {
	a := NewAttachments()
	_, err := a.Add("https://example.com/a.png")
	require.NoError(t, err)
	_, err = a.Add("data:image/png;base64,AAAA")
	require.NoError(t, err)

	uris := a.Take()
	assert.Equal(t, []string{"https://example.com/a.png", "data:image/png;base64,AAAA"}, uris)
	assert.Nil(t, a.Take())
	assert.Equal(t, []string{}, a.Names())
}

func TestAttachments_Limit(t *testing.T) {
	a := NewAttachments()
	for i := 0; i < MaxAttachments; i++ {
		_, err := a.Add("https://example.com/a.png")
		require.NoError(t, err)
	}
	_, err := a.Add("https://example.com/b.png")
	assert.ErrorIs(t, err, ErrTooManyAttachments)
}

// =============================================================================
// CANCEL TEST
// =============================================================================

type blockingOpener struct{}

func (blockingOpener) Open(ctx context.Context, _ []model.APIMessage) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		pw.CloseWithError(ctx.Err())
	}()
	return pr, nil
}

func TestHandleCancel(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)
	env.Session = stream.NewSession(env.Store, blockingOpener{}, zerolog.Nop())

	assert.Equal(t, "Nothing to cancel.", r.Execute(env, "/cancel").Output)

	results := make(chan stream.Result, 1)
	go func() { results <- env.Session.Send(context.Background(), stream.Turn{Text: "hi"}) }()

	require.Eventually(t, func() bool {
		return env.Session.Phase() == stream.PhaseStreaming
	}, 2*time.Second, 5*time.Millisecond)

	out := r.Execute(env, "/stop")
	assert.Equal(t, "Cancelled.", out.Output)

	res := <-results
	assert.Equal(t, stream.PhaseCancelled, res.Phase)
	assert.False(t, env.Store.State().IsLoading)
}
