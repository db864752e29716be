package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/attacca/attacca/internal/cache"
	"github.com/attacca/attacca/internal/domain"
	"github.com/attacca/attacca/internal/library"
	"github.com/attacca/attacca/internal/perform"
)

// Command factories for async operations

// LoadSongsCmd loads the song catalog
func LoadSongsCmd(svc *library.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		songs, err := svc.Songs(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading songs"}
		}
		return SongsLoadedMsg{Songs: songs}
	}
}

// LoadSetlistsCmd loads all setlists
func LoadSetlistsCmd(svc *library.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		lists, err := svc.Setlists(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading setlists"}
		}
		return SetlistsLoadedMsg{Setlists: lists}
	}
}

// SyncCatalogCmd refreshes the catalog with streaming progress updates,
// using a continuation pattern to pump all progress messages to the UI
func SyncCatalogCmd(svc *library.Service, force bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)

		progressCh := make(chan domain.SyncProgress)

		go func() {
			defer cancel()
			svc.Sync(ctx, force, progressCh)
		}()

		return readSyncProgress(progressCh)
	}
}

// readSyncProgress reads one message from the channel and embeds the
// continuation command for the next one
func readSyncProgress(progressCh <-chan domain.SyncProgress) tea.Msg {
	progress, ok := <-progressCh
	if !ok {
		return CatalogSyncMsg{Progress: domain.SyncProgress{Done: true}}
	}

	msg := CatalogSyncMsg{Progress: progress}
	if !progress.Done && progress.Error == nil {
		msg.NextCmd = listenToSyncCmd(progressCh)
	}
	return msg
}

func listenToSyncCmd(progressCh <-chan domain.SyncProgress) tea.Cmd {
	return func() tea.Msg {
		return readSyncProgress(progressCh)
	}
}

// EnterPerformanceCmd resolves the setlist's songs, positions the navigator
// on the first one, and reports back so warming can start
func EnterPerformanceCmd(libSvc *library.Service, session *perform.Session, setlist *domain.Setlist) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		items, err := libSvc.SetlistItems(ctx, setlist.ID)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading setlist"}
		}
		if len(items) == 0 {
			return ErrMsg{Err: fmt.Errorf("setlist %q is empty", setlist.Name), Context: "entering performance mode"}
		}

		snap := session.Begin(items)
		return PerformanceStartedMsg{Setlist: setlist, Items: items, Snapshot: snap}
	}
}

// PerformNamedCmd enters performance mode for a setlist by name or ID,
// used for the --setlist startup flag
func PerformNamedCmd(libSvc *library.Service, session *perform.Session, nameOrID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		setlist, err := libSvc.FindSetlist(ctx, nameOrID)
		if err != nil {
			return ErrMsg{Err: err, Context: fmt.Sprintf("finding setlist %q", nameOrID)}
		}
		return EnterPerformanceCmd(libSvc, session, setlist)()
	}
}

// PerformSingleCmd enters performance mode for one song
func PerformSingleCmd(session *perform.Session, item *domain.ContentItem) tea.Cmd {
	return func() tea.Msg {
		items := []*domain.ContentItem{item}
		snap := session.Begin(items)
		return PerformanceStartedMsg{Items: items, Snapshot: snap}
	}
}

// WarmSetlistCmd starts cache population and pumps warm progress messages;
// population runs independently of navigation
func WarmSetlistCmd(session *perform.Session, items []*domain.ContentItem, force bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)

		progressCh := make(chan cache.WarmProgress)

		go func() {
			defer cancel()
			session.WarmSetlist(ctx, items, force, progressCh)
		}()

		return readWarmProgress(progressCh)
	}
}

func readWarmProgress(progressCh <-chan cache.WarmProgress) tea.Msg {
	progress, ok := <-progressCh
	if !ok {
		return WarmProgressMsg{Done: true}
	}

	msg := WarmProgressMsg{Progress: progress}
	msg.NextCmd = listenToWarmCmd(progressCh)
	return msg
}

func listenToWarmCmd(progressCh <-chan cache.WarmProgress) tea.Cmd {
	return func() tea.Msg {
		return readWarmProgress(progressCh)
	}
}

// ProbeCmd sniffs the media type of the snapshot's cached file. The
// navigator drops the result if the generation has moved on.
func ProbeCmd(session *perform.Session, snap perform.Snapshot) tea.Cmd {
	return func() tea.Msg {
		mediaType, err := session.ProbeMediaType(snap)
		return ProbeDoneMsg{Generation: snap.Generation, MediaType: mediaType, Err: err}
	}
}

// OpenFileCmd opens the current item's file in the platform viewer
func OpenFileCmd(opener *Opener, snap perform.Snapshot) tea.Cmd {
	return func() tea.Msg {
		var target string
		switch snap.Ref.Kind {
		case domain.RefCached:
			target = snap.Ref.Handle.Path()
		case domain.RefRemote:
			target = snap.Ref.URL
		default:
			return StatusMsg{Message: "nothing to open", IsError: true}
		}

		if err := opener.Open(target); err != nil {
			return ErrMsg{Err: err, Context: "opening file"}
		}

		title := ""
		if snap.Item != nil {
			title = snap.Item.Title
		}
		return FileOpenedMsg{Title: title}
	}
}

// CopyTextCmd copies the current song's text to the clipboard
func CopyTextCmd(snap perform.Snapshot) tea.Cmd {
	return func() tea.Msg {
		if snap.Ref.Kind != domain.RefText {
			return StatusMsg{Message: "no text to copy", IsError: true}
		}
		if err := clipboard.WriteAll(snap.Ref.Text); err != nil {
			return ErrMsg{Err: err, Context: "copying text"}
		}

		title := ""
		if snap.Item != nil {
			title = snap.Item.Title
		}
		return TextCopiedMsg{Title: title}
	}
}

// ClearCacheCmd wipes the performance file cache
func ClearCacheCmd(session *perform.Session) tea.Cmd {
	return func() tea.Msg {
		session.ClearCache()
		return CacheClearedMsg{}
	}
}

// ClearStatusCmd clears the status bar after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
