// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/flurchat/internal/commands"
	"github.com/jeranaias/flurchat/internal/config"
	"github.com/jeranaias/flurchat/internal/store"
	"github.com/jeranaias/flurchat/internal/stream"
	"github.com/jeranaias/flurchat/internal/ui/styles"
)

// inputHeight is the number of text rows in the composer.
const inputHeight = 3

// =============================================================================
// FOCUS
// =============================================================================

// focusArea is the widget receiving keys.
type focusArea int

const (
	focusInput   focusArea = iota // Composer
	focusSidebar                  // Conversation list
)

// sidebarState is the selection and filter of the conversation list.
type sidebarState struct {
	selected  int
	filter    string
	filtering bool
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures a Model. Store, Session and Registry are required.
type Options struct {
	Store       *store.Store
	Session     *stream.Session
	Registry    *commands.Registry
	Attachments *commands.Attachments
	Config      *config.Config
	Theme       *styles.Theme
	Logger      zerolog.Logger
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Collaborators
	store       *store.Store
	session     *stream.Session
	registry    *commands.Registry
	completer   *commands.Completer
	completion  *commands.CompletionState
	attachments *commands.Attachments
	env         *commands.Env
	theme       *styles.Theme
	logger      zerolog.Logger

	// Change notifications from other goroutines
	feed        *changeFeed
	unsubscribe func()

	// Sends run under ctx; Close cancels it
	ctx    context.Context
	cancel context.CancelFunc

	// Last observed state
	state   store.State
	phase   stream.Phase
	sending bool

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	spinning bool
	markdown *markdownRenderer
	keys     KeyMap

	// Layout
	width       int
	height      int
	ready       bool
	focus       focusArea
	sidebar     sidebarState
	showSidebar bool

	// panel replaces the conversation with multi-line command output
	panel string

	// Status
	notice    string
	noticeErr bool
	quitting  bool
}

// New creates a chat model and subscribes it to the store and session.
// Call Close when the program exits.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(cfg.UI.Theme)
	}
	attachments := opts.Attachments
	if attachments == nil {
		attachments = commands.NewAttachments()
	}
	logger := opts.Logger.With().Str("component", "tui").Logger()

	ta := textarea.New()
	ta.Placeholder = "Send a message, or type /help"
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = styles.DotsSpinner.Bubble()
	sp.Style = theme.StatusBusy

	completer := commands.NewCompleter(opts.Registry)
	completer.ConversationsFn = func() []store.ChatEntry {
		return opts.Store.ChatEntries("")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		store:       opts.Store,
		session:     opts.Session,
		registry:    opts.Registry,
		completer:   completer,
		completion:  commands.NewCompletionState(),
		attachments: attachments,
		env: &commands.Env{
			Store:       opts.Store,
			Session:     opts.Session,
			Attachments: attachments,
			Config:      cfg,
		},
		theme:       theme,
		logger:      logger,
		feed:        newChangeFeed(defaultMaxFPS),
		ctx:         ctx,
		cancel:      cancel,
		viewport:    viewport.New(0, 0),
		input:       ta,
		spinner:     sp,
		markdown:    newMarkdownRenderer(cfg.UI.Markdown, theme.IsDark, logger),
		keys:        DefaultKeyMap(),
		showSidebar: cfg.UI.Sidebar,
	}

	feed := m.feed
	m.unsubscribe = opts.Store.Subscribe(func(store.State) { feed.Notify() })
	if opts.Session != nil {
		opts.Session.OnPhase(func(stream.Phase) { feed.Notify() })
	}
	m.syncState()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.feed.Wait(), textarea.Blink)
}

// Close detaches the model from the store and session and cancels any send
// still running.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.session != nil {
		m.session.OnPhase(nil)
	}
	m.feed.Close()
	m.cancel()
}

// =============================================================================
// STATE SYNC
// =============================================================================

// syncState re-reads the store and session and redraws the conversation.
func (m *Model) syncState() {
	m.state = m.store.State()
	if m.session != nil {
		m.phase = m.session.Phase()
	}
	m.clampSelection()
	m.refreshViewport()
}

// busy reports whether a send is pending or streaming.
func (m Model) busy() bool {
	return m.sending || m.state.IsLoading
}

// sidebarVisible reports whether the sidebar is drawn.
func (m Model) sidebarVisible() bool {
	return m.showSidebar && m.theme.ShowSidebar()
}

// =============================================================================
// LAYOUT
// =============================================================================

// layout sizes the widgets for the current window and info area.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	m.theme.SetSize(m.width, m.height)

	chatWidth := m.width
	if m.sidebarVisible() {
		chatWidth -= styles.SidebarWidth
	}
	if chatWidth < 10 {
		chatWidth = 10
	}

	// header + status bar + input border + input rows + info lines
	vpHeight := m.height - 2 - 1 - inputHeight - len(m.infoLines())
	if vpHeight < 1 {
		vpHeight = 1
	}

	atBottom := m.viewport.AtBottom()
	m.viewport.Width = chatWidth
	m.viewport.Height = vpHeight
	m.input.SetWidth(chatWidth)
	m.markdown.setWidth(chatWidth - 4)
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// refreshViewport redraws the conversation, following the tail when the
// view was already at the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	if m.panel != "" {
		m.viewport.SetContent(m.panel)
		return
	}
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() == 0
	m.viewport.SetContent(m.renderMessages())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// NOTICES
// =============================================================================

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) clearNotice() {
	m.notice = ""
	m.noticeErr = false
}

// showPanel replaces the conversation with text until dismissed.
func (m *Model) showPanel(text string) {
	m.panel = text
	m.viewport.SetContent(text)
	m.viewport.GotoTop()
}

func (m *Model) closePanel() {
	if m.panel == "" {
		return
	}
	m.panel = ""
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

// =============================================================================
// FOCUS
// =============================================================================

func (m *Model) focusInputArea() {
	m.focus = focusInput
	m.sidebar.filtering = false
	m.input.Focus()
}

func (m *Model) focusSidebarArea() {
	m.focus = focusSidebar
	m.input.Blur()
	m.completion.Clear()
}
