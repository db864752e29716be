package tui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/attacca/attacca/internal/config"
	"github.com/attacca/attacca/internal/domain"
	"github.com/attacca/attacca/internal/library"
	"github.com/attacca/attacca/internal/perform"
	"github.com/attacca/attacca/internal/search"
	"github.com/attacca/attacca/internal/tui/styles"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateSetlists
	StatePerforming
	StateHelp
	StateConfirmClear
)

const statusClearDelay = 4 * time.Second

// Model is the main Bubble Tea model for the application
type Model struct {
	State     ApplicationState
	PrevState ApplicationState
	Ready     bool

	// Services
	LibrarySvc *library.Service
	SearchSvc  *search.Service
	Session    *perform.Session
	Opener     *Opener

	// UI components
	SongList    list.Model
	SetlistList list.Model
	Viewport    viewport.Model
	Spinner     spinner.Model
	Help        help.Model

	// Data
	Songs    []*domain.ContentItem
	Setlists []*domain.Setlist

	// Performance state
	Setlist      *domain.Setlist
	PerformItems []*domain.ContentItem
	Snapshot     perform.Snapshot
	renderedBody string

	// Cache warm state
	Warming    bool
	WarmLoaded int
	WarmTotal  int
	cachedIDs  map[string]bool

	// Catalog sync state
	Syncing   bool
	SyncStage string
	FromCache bool

	// Rendering
	appearance config.Appearance
	renderer   *glamour.TermRenderer

	// StartSetlist enters performance mode for this setlist (name or ID)
	// once the first catalog sync completes
	StartSetlist string

	// UI state
	StatusMsg   string
	StatusIsErr bool
	Width       int
	Height      int

	logger *slog.Logger
}

// NewModel creates the application model
func NewModel(
	librarySvc *library.Service,
	searchSvc *search.Service,
	session *perform.Session,
	opener *Opener,
	appearance config.Appearance,
	logger *slog.Logger,
) Model {
	if logger == nil {
		logger = slog.Default()
	}

	songDelegate := list.NewDefaultDelegate()
	songDelegate.Styles.SelectedTitle = songDelegate.Styles.SelectedTitle.Foreground(styles.Amber).BorderForeground(styles.Amber)
	songDelegate.Styles.SelectedDesc = songDelegate.Styles.SelectedDesc.Foreground(styles.DimGray).BorderForeground(styles.Amber)

	songList := list.New(nil, songDelegate, 0, 0)
	songList.Title = "Songs"
	songList.SetShowHelp(false)
	songList.SetStatusBarItemName("song", "songs")
	songList.Filter = searchFilter(searchSvc)

	setlistList := list.New(nil, songDelegate, 0, 0)
	setlistList.Title = "Setlists"
	setlistList.SetShowHelp(false)
	setlistList.SetStatusBarItemName("setlist", "setlists")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{Frames: styles.SpinnerFrames, FPS: time.Second / 10}
	sp.Style = styles.AccentStyle

	return Model{
		State:       StateBrowsing,
		LibrarySvc:  librarySvc,
		SearchSvc:   searchSvc,
		Session:     session,
		Opener:      opener,
		SongList:    songList,
		SetlistList: setlistList,
		Spinner:     sp,
		Help:        help.New(),
		appearance:  appearance,
		cachedIDs:   make(map[string]bool),
		logger:      logger,
	}
}

// Init starts the catalog sync
func (m Model) Init() tea.Cmd {
	m.logger.Debug("tui starting")
	return tea.Batch(
		m.Spinner.Tick,
		SyncCatalogCmd(m.LibrarySvc, false),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		m.renderBody()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		if !m.Syncing && !m.Warming && m.Snapshot.Status != perform.StatusLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case CatalogSyncMsg:
		return m.handleCatalogSync(msg)

	case SongsLoadedMsg:
		m.Songs = msg.Songs
		m.SearchSvc.IndexItems(msg.Songs)
		m.refreshSongItems()
		return m, nil

	case SetlistsLoadedMsg:
		m.Setlists = msg.Setlists
		items := make([]list.Item, len(msg.Setlists))
		for i, sl := range msg.Setlists {
			items[i] = setlistItem{setlist: sl}
		}
		return m, m.SetlistList.SetItems(items)

	case PerformanceStartedMsg:
		return m.handlePerformanceStarted(msg)

	case WarmProgressMsg:
		return m.handleWarmProgress(msg)

	case SnapshotMsg:
		return m.applySnapshot(msg.Snapshot)

	case ProbeDoneMsg:
		snap, applied := m.Session.Complete(msg.Generation, msg.MediaType, msg.Err)
		if !applied {
			return m, nil
		}
		return m.applySnapshot(snap)

	case FileOpenedMsg:
		return m.setStatus(fmt.Sprintf("opened %q in viewer", msg.Title), false)

	case TextCopiedMsg:
		return m.setStatus(fmt.Sprintf("copied %q", msg.Title), false)

	case CacheClearedMsg:
		m.cachedIDs = make(map[string]bool)
		m.refreshSongItems()
		if m.State == StatePerforming {
			// Current view keeps its snapshot; the dots just downgrade
			m.renderBody()
		}
		return m.setStatus("cache cleared", false)

	case StatusMsg:
		return m.setStatus(msg.Message, msg.IsError)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil

	case ErrMsg:
		m.Syncing = false
		m.logger.Error("tui error", "context", msg.Context, "error", msg.Err)
		return m.setStatus(msg.Error(), true)
	}

	return m.updateFocusedComponent(msg)
}

func (m Model) handleCatalogSync(msg CatalogSyncMsg) (tea.Model, tea.Cmd) {
	p := msg.Progress

	if p.Error != nil {
		m.Syncing = false
		return m.setStatus("sync failed: "+p.Error.Error(), true)
	}

	if p.Done {
		m.Syncing = false
		m.FromCache = p.FromCache
		cmds := []tea.Cmd{
			LoadSongsCmd(m.LibrarySvc),
			LoadSetlistsCmd(m.LibrarySvc),
		}
		if p.FromCache {
			cmds = append(cmds, func() tea.Msg {
				return StatusMsg{Message: "offline, using local catalog"}
			})
		}
		if m.StartSetlist != "" {
			name := m.StartSetlist
			m.StartSetlist = ""
			cmds = append(cmds, PerformNamedCmd(m.LibrarySvc, m.Session, name))
		}
		return m, tea.Batch(cmds...)
	}

	m.Syncing = true
	m.SyncStage = p.Stage
	var cmds []tea.Cmd
	cmds = append(cmds, m.Spinner.Tick)
	if next, ok := msg.NextCmd.(tea.Cmd); ok {
		cmds = append(cmds, next)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handlePerformanceStarted(msg PerformanceStartedMsg) (tea.Model, tea.Cmd) {
	m.State = StatePerforming
	m.Setlist = msg.Setlist
	m.PerformItems = msg.Items
	m.Warming = true
	m.WarmLoaded = 0
	m.WarmTotal = len(msg.Items)

	cmds := []tea.Cmd{
		m.Spinner.Tick,
		WarmSetlistCmd(m.Session, msg.Items, false),
	}

	next, cmd := m.applySnapshot(msg.Snapshot)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	model := next.(Model)
	return model, tea.Batch(cmds...)
}

func (m Model) handleWarmProgress(msg WarmProgressMsg) (tea.Model, tea.Cmd) {
	if msg.Done {
		m.Warming = false
		m.refreshSongItems()
		return m, nil
	}

	p := msg.Progress
	m.WarmLoaded = p.Loaded
	m.WarmTotal = p.Total
	if p.Cached {
		m.cachedIDs[p.ItemID] = true
	}

	var cmds []tea.Cmd
	if next, ok := msg.NextCmd.(tea.Cmd); ok {
		cmds = append(cmds, next)
	}

	// A settled warm for the song on screen upgrades its remote reference
	// to the cached file
	if p.Cached && m.State == StatePerforming &&
		m.Snapshot.Item != nil && m.Snapshot.Item.ID == p.ItemID &&
		m.Snapshot.Ref.Kind == domain.RefRemote {
		snap := m.Session.JumpTo(m.Snapshot.Index)
		next, cmd := m.applySnapshot(snap)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return next.(Model), tea.Batch(cmds...)
	}

	return m, tea.Batch(cmds...)
}

// applySnapshot installs a navigation snapshot, kicking off a media-type
// probe when the snapshot is still loading
func (m Model) applySnapshot(snap perform.Snapshot) (tea.Model, tea.Cmd) {
	m.Snapshot = snap
	if snap.Item != nil && snap.Ref.Kind == domain.RefCached {
		m.cachedIDs[snap.Item.ID] = true
	}
	m.renderBody()

	if snap.Status == perform.StatusLoading {
		return m, tea.Batch(m.Spinner.Tick, ProbeCmd(m.Session, snap))
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Filtering in a list swallows everything except escape
	if m.State == StateBrowsing && m.SongList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.SongList, cmd = m.SongList.Update(msg)
		return m, cmd
	}
	if m.State == StateSetlists && m.SetlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.SetlistList, cmd = m.SetlistList.Update(msg)
		return m, cmd
	}

	switch m.State {
	case StateHelp:
		if key.Matches(msg, Keys.Escape, Keys.Help, Keys.Quit) {
			m.State = m.PrevState
		}
		return m, nil

	case StateConfirmClear:
		switch {
		case key.Matches(msg, Keys.Confirm):
			m.State = m.PrevState
			return m, ClearCacheCmd(m.Session)
		case key.Matches(msg, Keys.Deny):
			m.State = m.PrevState
		}
		return m, nil

	case StatePerforming:
		return m.handlePerformKey(msg)
	}

	// Browsing and setlists
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.PrevState = m.State
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Tab):
		if m.State == StateBrowsing {
			m.State = StateSetlists
		} else {
			m.State = StateBrowsing
		}
		return m, nil

	case key.Matches(msg, Keys.Refresh):
		m.LibrarySvc.Refresh()
		return m, SyncCatalogCmd(m.LibrarySvc, true)

	case key.Matches(msg, Keys.ClearCache):
		m.PrevState = m.State
		m.State = StateConfirmClear
		return m, nil

	case key.Matches(msg, Keys.Enter):
		if m.State == StateBrowsing {
			if sel, ok := m.SongList.SelectedItem().(songItem); ok {
				return m, PerformSingleCmd(m.Session, sel.item)
			}
		} else {
			if sel, ok := m.SetlistList.SelectedItem().(setlistItem); ok {
				return m, EnterPerformanceCmd(m.LibrarySvc, m.Session, sel.setlist)
			}
		}
		return m, nil
	}

	return m.updateFocusedComponent(msg)
}

func (m Model) handlePerformKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Escape, Keys.Back):
		return m.leavePerformance()

	case key.Matches(msg, Keys.Help):
		m.PrevState = m.State
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Next):
		return m.applySnapshot(m.Session.Next())

	case key.Matches(msg, Keys.Previous):
		return m.applySnapshot(m.Session.Previous())

	case key.Matches(msg, Keys.NextPage):
		return m.applySnapshot(m.Session.NextPage())

	case key.Matches(msg, Keys.PrevPage):
		return m.applySnapshot(m.Session.PreviousPage())

	case key.Matches(msg, Keys.First):
		return m.applySnapshot(m.Session.JumpTo(0))

	case key.Matches(msg, Keys.Last):
		return m.applySnapshot(m.Session.JumpTo(len(m.PerformItems) - 1))

	case key.Matches(msg, Keys.Open):
		return m, OpenFileCmd(m.Opener, m.Snapshot)

	case key.Matches(msg, Keys.Copy):
		return m, CopyTextCmd(m.Snapshot)

	case key.Matches(msg, Keys.ClearCache):
		m.PrevState = m.State
		m.State = StateConfirmClear
		return m, nil
	}

	// Remaining keys scroll the text viewport
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

func (m Model) leavePerformance() (tea.Model, tea.Cmd) {
	fromSetlist := m.Setlist != nil

	m.Session.Teardown()
	m.Setlist = nil
	m.PerformItems = nil
	m.Snapshot = perform.Snapshot{}
	m.renderedBody = ""
	m.refreshSongItems()

	if fromSetlist {
		m.State = StateSetlists
	} else {
		m.State = StateBrowsing
	}
	return m, nil
}

// updateFocusedComponent routes leftover messages to the active component
func (m Model) updateFocusedComponent(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.State {
	case StateBrowsing:
		m.SongList, cmd = m.SongList.Update(msg)
	case StateSetlists:
		m.SetlistList, cmd = m.SetlistList.Update(msg)
	case StatePerforming:
		m.Viewport, cmd = m.Viewport.Update(msg)
	}
	return m, cmd
}

func (m *Model) setStatusValue(message string, isErr bool) {
	m.StatusMsg = message
	m.StatusIsErr = isErr
}

func (m Model) setStatus(message string, isErr bool) (tea.Model, tea.Cmd) {
	m.setStatusValue(message, isErr)
	return m, ClearStatusCmd(statusClearDelay)
}

// refreshSongItems rebuilds the song list entries so cache dots stay current
func (m *Model) refreshSongItems() {
	items := make([]list.Item, len(m.Songs))
	for i, song := range m.Songs {
		items[i] = songItem{item: song, cached: m.cachedIDs[song.ID] || m.Session.IsCached(song.ID)}
	}
	m.SongList.SetItems(items)
}

func (m *Model) updateLayout() {
	listHeight := m.Height - 2
	if listHeight < 1 {
		listHeight = 1
	}
	m.SongList.SetSize(m.Width, listHeight)
	m.SetlistList.SetSize(m.Width, listHeight)

	bodyWidth := m.Width
	if max := int(m.appearance.MaxWidth); max > 0 && bodyWidth > max {
		bodyWidth = max
	}
	bodyHeight := m.Height - performChromeHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	m.Viewport.Width = bodyWidth
	m.Viewport.Height = bodyHeight
	m.Help.Width = m.Width

	m.renderer = nil // rebuilt lazily at the new width
}

// glamourRenderer returns the renderer for the current width, building it
// on first use after a resize
func (m *Model) glamourRenderer() *glamour.TermRenderer {
	if m.renderer != nil {
		return m.renderer
	}

	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(m.Viewport.Width),
	}
	if m.appearance.GlamourStyle != "" {
		opts = append(opts, glamour.WithStylePath(m.appearance.GlamourStyle))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		m.logger.Warn("glamour renderer init failed", "error", err)
		return nil
	}
	m.renderer = r
	return r
}

// renderBody re-renders the performance viewport content for the current
// snapshot
func (m *Model) renderBody() {
	if m.Snapshot.Item == nil {
		m.renderedBody = ""
		m.Viewport.SetContent("")
		return
	}

	body := performBodyContent(m, m.Snapshot)
	m.renderedBody = body
	m.Viewport.SetContent(body)
	m.Viewport.GotoTop()
}
