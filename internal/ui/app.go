package ui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shleen/threadline/internal/feed"
	"github.com/shleen/threadline/internal/prefs"
	"github.com/shleen/threadline/internal/recommend"
	"github.com/shleen/threadline/internal/state"
	"github.com/shleen/threadline/internal/wardrobe"
)

// View represents the current active view.
type View int

const (
	ViewOutfit View = iota
	ViewCloset
	ViewDeclutter
	ViewFeed
	ViewAnalytics
	ViewHistory
	ViewLogs
)

var viewOrder = []View{ViewOutfit, ViewCloset, ViewDeclutter, ViewFeed, ViewAnalytics, ViewHistory, ViewLogs}

func (v View) String() string {
	switch v {
	case ViewCloset:
		return "Closet"
	case ViewDeclutter:
		return "Declutter"
	case ViewFeed:
		return "Feed"
	case ViewAnalytics:
		return "Analytics"
	case ViewHistory:
		return "History"
	case ViewLogs:
		return "Logs"
	default:
		return "Outfit"
	}
}

// Backend is the part of the API the views call directly.
type Backend interface {
	FetchHistory(ctx context.Context, username string) ([]wardrobe.HistoryOutfit, error)
	PostDeclutter(ctx context.Context, ids []int64) error
	LogOutfit(ctx context.Context, username string, ids []int64) error
}

// Refresher is the background closet poller.
type Refresher interface {
	Trigger()
	SetUsername(name string)
}

// LocationCache forgets the resolved location so the next fetch looks it
// up again.
type LocationCache interface {
	Invalidate()
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Backend   Backend
	Session   *recommend.Session
	Pager     *feed.Pager
	Store     *state.Store
	Refresher Refresher
	Location  LocationCache
	Username  string
	MediaURL  string
	LogPath   string
	ThemeName string
	PrefsPath string
	PollTick  time.Duration
	Logger    *slog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	backend   Backend
	session   *recommend.Session
	pager     *feed.Pager
	store     *state.Store
	refresher Refresher
	location  LocationCache
	mediaURL  string
	logPath   string
	prefsPath string
	pollTick  time.Duration
	logger    *slog.Logger

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	username string
	setup    textinput.Model
	setupErr string

	snapshot    state.Snapshot
	lastUpdated time.Time

	outfit    outfitState
	closet    closetState
	declutter declutterState
	feed      feedState
	history   historyState
	logs      logState

	analyticsViewport viewport.Model

	status    string
	statusErr bool
}

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	theme := GetTheme(themeName)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Accent))

	input := textinput.New()
	input.Placeholder = "username"
	input.CharLimit = 64
	input.Prompt = "> "

	m := Model{
		ctx:         ctx,
		backend:     opts.Backend,
		session:     opts.Session,
		pager:       opts.Pager,
		store:       opts.Store,
		refresher:   opts.Refresher,
		location:    opts.Location,
		mediaURL:    opts.MediaURL,
		logPath:     opts.LogPath,
		prefsPath:   prefsPath,
		pollTick:    pollTick,
		logger:      logger,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     sp,
		theme:       theme,
		currentView: ViewOutfit,
		username:    strings.TrimSpace(opts.Username),
		setup:       input,
		logs:        logState{follow: true},
	}
	if m.needsSetup() {
		m.setup.Focus()
	}
	return m
}

func (m Model) needsSetup() bool {
	return m.username == ""
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
		m.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.needsSetup() {
		cmds = append(cmds, textinput.Blink)
	} else {
		cmds = append(cmds, m.fetchOutfitsCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if !m.ready {
			m.analyticsViewport = viewport.New(m.contentWidth(), m.contentHeight())
			m.history.viewport = viewport.New(m.contentWidth(), m.contentHeight())
			m.logs.viewport = viewport.New(m.contentWidth(), m.contentHeight())
		}
		m.ready = true
		m.resizeViewports()
		m.refreshViewports()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.clampCursors()
		m.refreshViewports()
		return m, nil

	case fetchDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, recommend.ErrStale) && !errors.Is(msg.err, context.Canceled) {
			m.logger.Debug("recommendation fetch finished with error", "error", msg.err)
		}
		m.outfit.cursor = 0
		return m, nil

	case confirmDoneMsg:
		return m.handleConfirmDone(msg)

	case feedDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, feed.ErrBusy) {
			m.setStatus("Feed: "+describeError(msg.err), true)
		}
		return m, nil

	case historyMsg:
		m.handleHistory(msg)
		return m, nil

	case declutterDoneMsg:
		return m.handleDeclutterDone(msg)

	case logOutfitDoneMsg:
		return m.handleLogOutfitDone(msg)

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case prefsSavedMsg:
		if msg.err != nil {
			m.logger.Warn("save prefs failed", "error", msg.err)
			m.setStatus("Could not save preferences: "+msg.err.Error(), true)
		}
		return m, nil
	}

	if m.needsSetup() {
		var cmd tea.Cmd
		m.setup, cmd = m.setup.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.needsSetup() {
		return m.renderSetup()
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.needsSetup() {
		return m.handleSetupKey(msg)
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.outfit.picker != nil {
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
		m.refreshViewports()
		return m, m.savePrefsCmd()
	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.offsetView(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.offsetView(-1))
	case key.Matches(msg, m.keys.ViewOutfit):
		return m.switchView(ViewOutfit)
	case key.Matches(msg, m.keys.ViewCloset):
		return m.switchView(ViewCloset)
	case key.Matches(msg, m.keys.ViewDeclutter):
		return m.switchView(ViewDeclutter)
	case key.Matches(msg, m.keys.ViewFeed):
		return m.switchView(ViewFeed)
	case key.Matches(msg, m.keys.ViewAnalytics):
		return m.switchView(ViewAnalytics)
	case key.Matches(msg, m.keys.ViewHistory):
		return m.switchView(ViewHistory)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)
	}

	switch m.currentView {
	case ViewOutfit:
		return m.handleOutfitKey(msg)
	case ViewCloset:
		return m.handleClosetKey(msg)
	case ViewDeclutter:
		return m.handleDeclutterKey(msg)
	case ViewFeed:
		return m.handleFeedKey(msg)
	case ViewAnalytics:
		return m.handleAnalyticsKey(msg)
	case ViewHistory:
		return m.handleHistoryKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) offsetView(delta int) View {
	n := len(viewOrder)
	return viewOrder[((int(m.currentView)+delta)%n+n)%n]
}

// switchView activates v and loads its data the first time it is shown.
// Leaving the outfit view abandons any recommendation fetch in flight.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	if m.currentView == ViewOutfit && v != ViewOutfit && m.session != nil {
		m.session.Cancel()
	}
	m.currentView = v
	m.status = ""
	switch v {
	case ViewFeed:
		if m.pager != nil {
			st := m.pager.State()
			if !st.Loaded && !st.Loading {
				return m, m.loadFeedCmd(true)
			}
		}
	case ViewHistory:
		if !m.history.loaded && !m.history.loading {
			m.history.loading = true
			return m, m.fetchHistoryCmd()
		}
	case ViewLogs:
		return m, m.readLogsCmd()
	}
	return m, nil
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logs.follow {
		cmds = append(cmds, m.readLogsCmd())
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// clampCursors keeps list cursors inside lists that shrank on refresh.
func (m *Model) clampCursors() {
	m.closet.cursor = clamp(m.closet.cursor, len(m.closetItems()))
	m.declutter.cursor = clamp(m.declutter.cursor, len(m.snapshot.Declutter))
}

func (m Model) contentWidth() int {
	return max(m.width-4, 10)
}

// contentHeight leaves room for header, tab bar, footer and panel border.
func (m Model) contentHeight() int {
	return max(m.height-6, 3)
}

func (m *Model) resizeViewports() {
	for _, vp := range []*viewport.Model{&m.analyticsViewport, &m.history.viewport, &m.logs.viewport} {
		vp.Width = m.contentWidth()
		vp.Height = m.contentHeight()
	}
}

func (m *Model) refreshViewports() {
	if !m.ready {
		return
	}
	m.analyticsViewport.SetContent(m.renderAnalyticsContent())
	m.history.viewport.SetContent(m.renderHistoryContent())
	m.updateLogViewport()
}

func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderContent() string {
	var body string
	switch m.currentView {
	case ViewOutfit:
		body = m.renderOutfit()
	case ViewCloset:
		body = m.renderCloset()
	case ViewDeclutter:
		body = m.renderDeclutter()
	case ViewFeed:
		body = m.renderFeed()
	case ViewAnalytics:
		body = m.analyticsViewport.View()
	case ViewHistory:
		body = m.history.viewport.View()
	case ViewLogs:
		body = m.logs.viewport.View()
	}
	return m.theme.Styles().FocusPanel.
		Width(m.contentWidth()).
		Height(m.contentHeight()).
		Render(body)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type fetchDoneMsg struct{ err error }

type confirmDoneMsg struct{ err error }

type feedDoneMsg struct{ err error }

type historyMsg struct {
	items []wardrobe.HistoryOutfit
	err   error
}

type declutterDoneMsg struct {
	ids []int64
	err error
}

type logOutfitDoneMsg struct {
	ids []int64
	err error
}

type logLinesMsg struct {
	lines []string
	err   error
}

type prefsSavedMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func (m Model) fetchOutfitsCmd() tea.Cmd {
	if m.session == nil {
		return nil
	}
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return fetchDoneMsg{err: session.Fetch(ctx)}
	}
}

func (m Model) savePrefsCmd() tea.Cmd {
	path := m.prefsPath
	p := prefs.Prefs{Theme: m.theme.Name, Username: m.username}
	return func() tea.Msg {
		return prefsSavedMsg{err: prefs.Save(path, p)}
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
