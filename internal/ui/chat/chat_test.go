// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/flurchat/internal/commands"
	"github.com/jeranaias/flurchat/internal/config"
	"github.com/jeranaias/flurchat/internal/model"
	"github.com/jeranaias/flurchat/internal/storage"
	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/stream"
	"github.com/jeranaias/flurchat/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func frame(token string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", token)
}

// scriptedOpener replies with the given frames and records every payload.
type scriptedOpener struct {
	mu       sync.Mutex
	body     string
	payloads [][]model.APIMessage
}

func (o *scriptedOpener) Open(_ context.Context, msgs []model.APIMessage) (io.ReadCloser, error) {
	o.mu.Lock()
	o.payloads = append(o.payloads, msgs)
	o.mu.Unlock()
	return io.NopCloser(strings.NewReader(o.body)), nil
}

func (o *scriptedOpener) last() []model.APIMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.payloads) == 0 {
		return nil
	}
	return o.payloads[len(o.payloads)-1]
}

// blockingOpener streams nothing until ctx is cancelled.
type blockingOpener struct{}

func (blockingOpener) Open(ctx context.Context, _ []model.APIMessage) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		pw.CloseWithError(ctx.Err())
	}()
	return pr, nil
}

func newTestModel(t *testing.T, opener stream.Opener) (Model, *store.Store) {
	t.Helper()

	st := store.New(store.Options{
		Backend:             storage.NewMemoryStore(),
		DefaultSystemPrompt: "sys",
		Logger:              zerolog.Nop(),
	})
	cfg := config.Default()
	cfg.UI.Markdown = false

	m := New(Options{
		Store:    st,
		Session:  stream.NewSession(st, opener, zerolog.Nop()),
		Registry: commands.NewRegistry(),
		Config:   cfg,
		Theme:    styles.NewTheme(styles.ModeDark),
		Logger:   zerolog.Nop(),
	})
	t.Cleanup(m.Close)

	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, st
}

// update applies msg and returns the next model, dropping the command.
func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := updateCmd(t, m, msg)
	return next
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func typeText(m Model, text string) Model {
	m.input.SetValue(text)
	return m
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyCtrlC = tea.KeyMsg{Type: tea.KeyCtrlC}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSubmit_StreamsReplyIntoStore(t *testing.T) {
	opener := &scriptedOpener{body: frame("Hi") + frame(" there") + "data: [DONE]\n\n"}
	m, st := newTestModel(t, opener)

	m = typeText(m, "  hello  ")
	m, cmd := updateCmd(t, m, keyEnter)
	require.NotNil(t, cmd)
	assert.True(t, m.sending)
	assert.Empty(t, m.input.Value())

	finished, ok := cmd().(SendFinishedMsg)
	require.True(t, ok)
	assert.Equal(t, stream.PhaseDone, finished.Result.Phase)

	m = update(t, m, finished)
	assert.False(t, m.sending)
	assert.Empty(t, m.notice)

	state := st.State()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "hello", state.Messages[0].Text())
	assert.Equal(t, "Hi there", state.Messages[1].Text())
	assert.False(t, state.IsLoading)

	payload := opener.last()
	require.Len(t, payload, 2)
	assert.Equal(t, model.RoleSystem, payload[0].Role)
	assert.Equal(t, "hello", payload[1].Content.Text())

	assert.Contains(t, m.View(), "Hi there")
}

func TestSubmit_EmptyInputDoesNothing(t *testing.T) {
	m, st := newTestModel(t, &scriptedOpener{})

	m = typeText(m, "   ")
	m, cmd := updateCmd(t, m, keyEnter)
	assert.Nil(t, cmd)
	assert.False(t, m.sending)
	assert.Empty(t, st.State().Messages)
}

func TestSubmit_RejectedWhileLoading(t *testing.T) {
	m, st := newTestModel(t, &scriptedOpener{})
	st.SetLoading(true)
	m = update(t, m, StateChangedMsg{})

	m = typeText(m, "hello")
	m, cmd := updateCmd(t, m, keyEnter)
	assert.Nil(t, cmd)
	assert.True(t, m.noticeErr)
	assert.Equal(t, commands.ErrBusy.Error(), m.notice)
	assert.Equal(t, "hello", m.input.Value())
	assert.Empty(t, st.State().Messages)
}

func TestSubmit_FailureShowsNotice(t *testing.T) {
	m, st := newTestModel(t, failingOpener{})

	m = typeText(m, "hello")
	m, cmd := updateCmd(t, m, keyEnter)
	require.NotNil(t, cmd)

	m = update(t, m, cmd())
	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "Send failed")

	last, ok := st.State().LastMessage()
	require.True(t, ok)
	assert.Equal(t, stream.FailureText, last.Text())
}

type failingOpener struct{}

func (failingOpener) Open(context.Context, []model.APIMessage) (io.ReadCloser, error) {
	return nil, io.ErrUnexpectedEOF
}

func TestSubmit_SendsPendingAttachments(t *testing.T) {
	opener := &scriptedOpener{body: frame("nice")}
	m, st := newTestModel(t, opener)

	img := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	m = typeText(m, "/attach "+img)
	m = update(t, m, keyEnter)
	assert.False(t, m.noticeErr, m.notice)
	assert.Contains(t, m.notice, "cat.png")
	assert.Contains(t, strings.Join(m.infoLines(), "\n"), "cat.png")

	m = typeText(m, "what is this?")
	m, cmd := updateCmd(t, m, keyEnter)
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, 0, m.attachments.Len())
	user := st.State().Messages[0]
	assert.Equal(t, 1, user.ImageCount())

	payload := opener.last()
	require.NotEmpty(t, payload)
	images := payload[len(payload)-1].Content.Images()
	require.Len(t, images, 1)
	assert.True(t, strings.HasPrefix(images[0], "data:image/png;base64,"))
}

// =============================================================================
// CANCEL AND QUIT TESTS
// =============================================================================

func TestCtrlC_CancelsInFlightSend(t *testing.T) {
	m, st := newTestModel(t, blockingOpener{})

	m = typeText(m, "hello")
	m, sendCmd := updateCmd(t, m, keyEnter)
	require.NotNil(t, sendCmd)

	results := make(chan tea.Msg, 1)
	go func() { results <- sendCmd() }()
	require.Eventually(t, m.session.InFlight, time.Second, 5*time.Millisecond)

	m, cmd := updateCmd(t, m, keyCtrlC)
	require.NotNil(t, cmd)
	assert.False(t, m.quitting)
	assert.IsType(t, CancelledMsg{}, cmd())

	select {
	case msg := <-results:
		finished := msg.(SendFinishedMsg)
		assert.Equal(t, stream.PhaseCancelled, finished.Result.Phase)
		m = update(t, m, finished)
	case <-time.After(time.Second):
		t.Fatal("send did not unwind")
	}

	assert.Equal(t, "Cancelled.", m.notice)
	assert.False(t, st.State().IsLoading)
	require.Len(t, st.State().Messages, 1)
}

func TestCtrlC_QuitsWhenIdle(t *testing.T) {
	m, _ := newTestModel(t, &scriptedOpener{})

	m, cmd := updateCmd(t, m, keyCtrlC)
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestQuitCommand(t *testing.T) {
	m, _ := newTestModel(t, &scriptedOpener{})

	m = typeText(m, "/quit")
	_, cmd := updateCmd(t, m, keyEnter)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestSlashCommand_ShowsNotice(t *testing.T) {
	m, st := newTestModel(t, &scriptedOpener{})
	st.AddMessage(model.NewUserMessage("plan the trip", nil))

	m = typeText(m, "/new Trip")
	m = update(t, m, keyEnter)

	assert.False(t, m.noticeErr)
	assert.Equal(t, `Saved "Trip". Started a new conversation.`, m.notice)
	assert.Empty(t, m.input.Value())
	require.Len(t, st.State().Conversations, 1)
	assert.Len(t, m.state.Conversations, 1)
}

func TestSlashCommand_ErrorNotice(t *testing.T) {
	m, _ := newTestModel(t, &scriptedOpener{})

	m = typeText(m, "/bogus")
	m = update(t, m, keyEnter)

	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "unknown command")
}

func TestSlashCommand_MultiLineOutputOpensPanel(t *testing.T) {
	m, _ := newTestModel(t, &scriptedOpener{})

	m = typeText(m, "/help")
	m = update(t, m, keyEnter)
	require.NotEmpty(t, m.panel)
	assert.Contains(t, m.View(), "/switch")

	m = update(t, m, keyEsc)
	assert.Empty(t, m.panel)
}

func TestCtrlN_StartsNewConversation(t *testing.T) {
	m, st := newTestModel(t, &scriptedOpener{})
	st.AddMessage(model.NewUserMessage("hello", nil))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Contains(t, m.notice, "Saved")
	assert.Empty(t, st.State().Messages)
	assert.Len(t, st.State().Conversations, 1)
}

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestTab_CompletesSingleCandidate(t *testing.T) {
	m, _ := newTestModel(t, &scriptedOpener{})

	m = typeText(m, "/swi")
	m = update(t, m, keyTab)
	assert.Equal(t, "/switch ", m.input.Value())
	assert.False(t, m.completion.Visible)
}

func TestTab_CyclesAndAccepts(t *testing.T) {
	m, _ := newTestModel(t, &scriptedOpener{})

	m = typeText(m, "/de")
	m = update(t, m, keyTab)
	require.True(t, m.completion.Visible)
	require.GreaterOrEqual(t, len(m.completion.Completions), 2)
	assert.NotEmpty(t, m.renderCompletions())

	m = update(t, m, keyTab)
	want := m.completion.Completions[1].Value

	m = update(t, m, keyEnter)
	assert.Equal(t, want+" ", m.input.Value())
	assert.False(t, m.completion.Visible)
}

func TestTab_MovesFocusToSidebar(t *testing.T) {
	m, _ := newTestModel(t, &scriptedOpener{})

	m = update(t, m, keyTab)
	assert.Equal(t, focusSidebar, m.focus)

	m = update(t, m, keyEsc)
	assert.Equal(t, focusInput, m.focus)
}

// =============================================================================
// SIDEBAR TESTS
// =============================================================================

func TestSidebar_OpenSwitchesConversation(t *testing.T) {
	m, st := newTestModel(t, &scriptedOpener{})
	st.AddMessage(model.NewUserMessage("first chat", nil))
	conv, ok := st.NewConversation("First")
	require.True(t, ok)
	m = update(t, m, StateChangedMsg{})

	assert.Contains(t, m.View(), "First")

	m = update(t, m, keyTab)
	m = update(t, m, keyDown)
	assert.Equal(t, 1, m.sidebar.selected)

	m = update(t, m, keyEnter)
	assert.Equal(t, focusInput, m.focus)
	assert.Equal(t, conv.ID, st.State().ActiveConversationID)
	assert.Equal(t, `Switched to "First".`, m.notice)
}

func TestSidebar_DeleteAndFilter(t *testing.T) {
	m, st := newTestModel(t, &scriptedOpener{})
	for _, title := range []string{"Alpha", "Beta"} {
		st.AddMessage(model.NewUserMessage(title, nil))
		_, ok := st.NewConversation(title)
		require.True(t, ok)
	}
	m = update(t, m, StateChangedMsg{})
	m = update(t, m, keyTab)

	m = update(t, m, runes("/"))
	require.True(t, m.sidebar.filtering)
	m = update(t, m, runes("bet"))
	assert.Equal(t, "bet", m.sidebar.filter)
	m = update(t, m, keyEnter)
	assert.False(t, m.sidebar.filtering)

	entries := m.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Beta", entries[0].Title)

	m = update(t, m, runes("d"))
	assert.Equal(t, `Deleted "Beta".`, m.notice)
	require.Len(t, st.State().Conversations, 1)
	assert.Equal(t, "Alpha", st.State().Conversations[0].Title)
}

func TestSidebar_DeleteCurrentRefused(t *testing.T) {
	m, _ := newTestModel(t, &scriptedOpener{})
	m = update(t, m, keyTab)

	m = update(t, m, runes("d"))
	assert.True(t, m.noticeErr)
}

func TestSidebar_HiddenWhenNarrow(t *testing.T) {
	m, _ := newTestModel(t, &scriptedOpener{})
	m = update(t, m, tea.WindowSizeMsg{Width: 50, Height: 30})

	assert.False(t, m.sidebarVisible())
	assert.NotContains(t, m.View(), "Conversations")

	m = update(t, m, keyTab)
	assert.Equal(t, focusInput, m.focus)
}

// =============================================================================
// CHANGE FEED TESTS
// =============================================================================

func TestChangeFeed_CoalescesSignals(t *testing.T) {
	feed := newChangeFeed(60)
	for i := 0; i < 5; i++ {
		feed.Notify()
	}

	assert.IsType(t, StateChangedMsg{}, feed.Wait()())
	assert.Empty(t, feed.ch)

	feed.Close()
	assert.Nil(t, feed.Wait()())
}

func TestChangeFeed_StoreMutationsNotify(t *testing.T) {
	m, st := newTestModel(t, &scriptedOpener{})

	st.AddMessage(model.NewUserMessage("hi", nil))
	msg := m.feed.Wait()()
	require.IsType(t, StateChangedMsg{}, msg)

	m = update(t, m, msg)
	require.Len(t, m.state.Messages, 1)
	assert.Contains(t, m.View(), "hi")
}

// =============================================================================
// RENDERING TESTS
// =============================================================================

func TestRenderCache(t *testing.T) {
	c := newRenderCache()

	_, ok := c.get("a", "hello")
	assert.False(t, ok)

	c.put("a", "hello", "HELLO")
	out, ok := c.get("a", "hello")
	assert.True(t, ok)
	assert.Equal(t, "HELLO", out)

	_, ok = c.get("a", "hello world")
	assert.False(t, ok)

	c.reset()
	_, ok = c.get("a", "hello")
	assert.False(t, ok)
}

func TestMarkdownRenderer_PlainFallback(t *testing.T) {
	r := newMarkdownRenderer(false, true, zerolog.Nop())
	r.setWidth(10)
	assert.Equal(t, "one two\nthree four", r.render("m1", "one two three four"))
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"breaks at space", "hello world", 8, "hello\nworld"},
		{"hard break", "abcdefghij", 4, "abcd\nefgh\nij"},
		{"keeps newlines", "a\nb", 10, "a\nb"},
		{"wide runes", "日本語テキスト", 6, "日本語\nテキス\nト"},
		{"zero width", "hello", 0, "hello"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, wrapText(tc.text, tc.width))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 0, 0, 0, time.Local)

	assert.Equal(t, "", formatTimestamp(time.Time{}, now))
	assert.Equal(t, "09:30", formatTimestamp(now.Add(-5*time.Hour-30*time.Minute), now))
	assert.Equal(t, "Wed 15:00", formatTimestamp(now.AddDate(0, 0, -2), now))
	assert.Equal(t, "Feb 1 15:00", formatTimestamp(time.Date(2025, 2, 1, 15, 0, 0, 0, time.Local), now))
}

func TestEsc_CancelsInFlightSend(t *testing.T) {
	m, _ := newTestModel(t, blockingOpener{})

	m = typeText(m, "hello")
	m, sendCmd := updateCmd(t, m, keyEnter)
	require.NotNil(t, sendCmd)

	results := make(chan tea.Msg, 1)
	go func() { results <- sendCmd() }()
	require.Eventually(t, m.session.InFlight, time.Second, 5*time.Millisecond)

	_, cmd := updateCmd(t, m, keyEsc)
	require.NotNil(t, cmd)
	assert.IsType(t, CancelledMsg{}, cmd())

	select {
	case msg := <-results:
		assert.Equal(t, stream.PhaseCancelled, msg.(SendFinishedMsg).Result.Phase)
	case <-time.After(time.Second):
		t.Fatal("send did not unwind")
	}
}
