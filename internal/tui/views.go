package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"github.com/attacca/attacca/internal/domain"
	"github.com/attacca/attacca/internal/perform"
	"github.com/attacca/attacca/internal/tui/styles"
)

// Lines consumed by the performance header and status bar around the
// body viewport
const performChromeHeight = 4

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "loading..."
	}

	switch m.State {
	case StateHelp:
		return m.helpView()
	case StateConfirmClear:
		return m.confirmClearView()
	case StatePerforming:
		return m.performView()
	case StateSetlists:
		return m.SetlistList.View() + "\n" + m.statusBarView()
	default:
		return m.SongList.View() + "\n" + m.statusBarView()
	}
}

// performView lays out header, body, and status bar for the current song
func (m Model) performView() string {
	var b strings.Builder
	b.WriteString(m.performHeaderView())
	b.WriteString("\n")
	b.WriteString(styles.PerformBodyStyle.Render(m.Viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.statusBarView())
	return b.String()
}

func (m Model) performHeaderView() string {
	snap := m.Snapshot
	if snap.Item == nil {
		return styles.PerformHeaderStyle.Width(m.Width).Render(styles.ErrorStyle.Render("empty setlist"))
	}

	position := fmt.Sprintf("%d/%d", snap.Index+1, len(m.PerformItems))
	title := styles.TitleStyle.Render(snap.Item.Title)
	if snap.Item.Artist != "" {
		title += " " + styles.DimStyle.Render("· "+snap.Item.Artist)
	}

	var page string
	if snap.Item.PageCount() > 1 {
		page = styles.DimStyle.Render(fmt.Sprintf("  page %d/%d", snap.Page+1, snap.Item.PageCount()))
	}

	left := fmt.Sprintf("%s %s  %s%s", m.refDot(snap), styles.SubtitleStyle.Render(position), title, page)

	var right string
	switch {
	case snap.Status == perform.StatusLoading:
		right = m.Spinner.View() + " " + styles.DimStyle.Render("resolving")
	case m.Warming:
		right = m.Spinner.View() + " " + styles.DimStyle.Render(fmt.Sprintf("caching %d/%d", m.WarmLoaded, m.WarmTotal))
	}

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right

	return styles.PerformHeaderStyle.Width(m.Width).Render(truncate.StringWithTail(line, uint(m.Width), "…"))
}

// refDot picks the availability indicator for the snapshot's reference
func (m Model) refDot(snap perform.Snapshot) string {
	switch snap.Ref.Kind {
	case domain.RefText, domain.RefCached:
		return styles.CachedDot
	case domain.RefRemote:
		return styles.RemoteDot
	default:
		return styles.UnavailableDot
	}
}

// performBodyContent builds the viewport content for a snapshot
func performBodyContent(m *Model, snap perform.Snapshot) string {
	if snap.Status == perform.StatusError && snap.Err != nil {
		return styles.ErrorStyle.Render(snap.Err.Error())
	}

	switch snap.Ref.Kind {
	case domain.RefText:
		return m.renderText(snap.Ref.Text)

	case domain.RefCached:
		h := snap.Ref.Handle
		info := fmt.Sprintf("# %s\n\ncached file ready\n\n- path: `%s`\n- type: %s\n\npress **o** to open in the system viewer",
			snap.Item.Title, h.Path(), displayMediaType(snap))
		return m.renderText(info)

	case domain.RefRemote:
		info := fmt.Sprintf("# %s\n\nfile not cached yet — will stream from the server\n\n- url: `%s`\n\npress **o** to open in the system viewer",
			snap.Item.Title, snap.Ref.URL)
		return m.renderText(info)

	default:
		reason := snap.Ref.Reason
		if reason == "" {
			reason = "no file reference"
		}
		return styles.ErrorStyle.Render("unavailable: " + reason)
	}
}

func displayMediaType(snap perform.Snapshot) string {
	if snap.Ref.MediaType != "" {
		return snap.Ref.MediaType
	}
	if snap.Ref.Handle != nil && snap.Ref.Handle.MediaType() != "" {
		return snap.Ref.Handle.MediaType()
	}
	return "unknown"
}

// renderText runs song text through glamour when enabled, falling back to
// the raw text on renderer failure
func (m *Model) renderText(text string) string {
	if !m.appearance.GlamourEnabled {
		return text
	}
	r := m.glamourRenderer()
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		m.logger.Warn("glamour render failed", "error", err)
		return text
	}
	return out
}

func (m Model) statusBarView() string {
	var left string
	switch {
	case m.StatusMsg != "" && m.StatusIsErr:
		left = styles.ErrorStyle.Render(m.StatusMsg)
	case m.StatusMsg != "":
		left = styles.SuccessStyle.Render(m.StatusMsg)
	case m.Syncing:
		left = m.Spinner.View() + " " + styles.DimStyle.Render("syncing "+m.SyncStage)
	case m.FromCache:
		left = styles.AccentStyle.Render("offline")
	default:
		left = m.Help.ShortHelpView(m.shortHelpKeys())
	}

	count, bytes := m.Session.CacheStats()
	right := styles.DimStyle.Render(fmt.Sprintf("cache: %d files, %s  ·  ? help", count, humanize.Bytes(uint64(bytes))))

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right

	return styles.StatusBarStyle.Width(m.Width).Render(truncate.StringWithTail(line, uint(m.Width), "…"))
}

// shortHelpKeys picks the bindings worth showing in the status bar for the
// current state
func (m Model) shortHelpKeys() []key.Binding {
	if m.State == StatePerforming {
		return []key.Binding{Keys.Next, Keys.Previous, Keys.Open, Keys.Escape}
	}
	return []key.Binding{Keys.Enter, Keys.Filter, Keys.Tab, Keys.Refresh}
}

func (m Model) confirmClearView() string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Amber).
		Padding(1, 3).
		Render(styles.TitleStyle.Render("Clear cache?") + "\n\n" +
			"All cached files will be deleted.\n" +
			styles.DimStyle.Render("y confirm · n cancel"))

	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) helpView() string {
	section := func(title string, rows [][2]string) string {
		var b strings.Builder
		b.WriteString(styles.SubtitleStyle.Render(title) + "\n")
		for _, row := range rows {
			b.WriteString(fmt.Sprintf("  %s  %s\n",
				styles.HighlightStyle.Render(fmt.Sprintf("%-10s", row[0])),
				styles.DimStyle.Render(row[1])))
		}
		return b.String()
	}

	content := styles.TitleStyle.Render("attacca") + "\n\n" +
		section("Browsing", [][2]string{
			{"j/k", "move"},
			{"enter", "perform song / setlist"},
			{"tab", "songs / setlists"},
			{"/", "filter"},
			{"r", "refresh catalog"},
			{"X", "clear cache"},
		}) + "\n" +
		section("Performing", [][2]string{
			{"→/space", "next song"},
			{"←", "previous song"},
			{"PgDn/PgUp", "next / previous page"},
			{"g/G", "first / last song"},
			{"o", "open file in viewer"},
			{"y", "copy song text"},
			{"esc", "leave performance"},
		}) + "\n" +
		styles.DimStyle.Render("press esc or ? to close")

	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, content)
}
