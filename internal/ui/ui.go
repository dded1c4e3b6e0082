package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/plmirror/internal/formatter"
	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	ConfirmView
	ExportView
	ResultView
)

// Library is the part of the playlist engine the TUI drives.
type Library interface {
	ListPlaylists(ctx context.Context, userID int64) ([]models.PlaylistView, error)
	DeletePlaylist(ctx context.Context, userID int64, playlistID string) (bool, error)
	RemoveTrack(ctx context.Context, userID int64, playlistID, uid string) (bool, error)
	BulkExport(ctx context.Context, prog chan<- tasks.ProgressUpdate, userID int64, opts tasks.BulkExportOpts) (*formatter.BulkExportResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	library    Library
	userID     int64
	exportOpts tasks.BulkExportOpts
	width      int
	height     int

	playlistList list.Model
	playlists    []models.PlaylistView
	trackList    list.Model
	selected     *models.PlaylistView

	confirmPrompt string
	confirmCmd    tea.Cmd
	returnView    ViewState

	progressChan chan tasks.ProgressUpdate
	exportDone   chan exportComplete
	progress     tasks.ProgressUpdate
	exportResult *formatter.BulkExportResult

	summary string
	err     error
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model browsing the library of userID.
//
// exportOpts configures the library export started with the export key.
func NewModel(ctx context.Context, library Library, userID int64, exportOpts tasks.BulkExportOpts) *Model {
	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		library:      library,
		userID:       userID,
		exportOpts:   exportOpts,
		playlistList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		trackList:    list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by loading the library.
func (m *Model) Init() tea.Cmd {
	return m.loadPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.listSize()
		m.playlistList.SetSize(w, h)
		m.trackList.SetSize(w, h)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case ExportView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
		}
		return m, nil

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsLoaded:
		data := msg.data.(playlistsLoaded)
		if data.err != nil {
			m.err = data.err
			m.view = ResultView
			return m, nil
		}
		m.setPlaylists(data.playlists)
		return m, nil

	case MsgActionComplete:
		data := msg.data.(actionComplete)
		m.summary = data.summary
		m.err = data.err
		m.view = ResultView
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.progressChan, m.exportDone)

	case MsgExportComplete:
		data := msg.data.(exportComplete)
		m.exportResult = data.result
		m.err = data.err
		m.progressChan = nil
		m.exportDone = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// setPlaylists rebuilds the playlist list, and the track list when the selected playlist still exists.
func (m *Model) setPlaylists(playlists []models.PlaylistView) {
	m.playlists = playlists
	items := make([]list.Item, len(playlists))
	for i, pl := range playlists {
		items[i] = playlistItem{playlist: pl}
	}

	w, h := m.listSize()
	m.playlistList = list.New(items, list.NewDefaultDelegate(), w, h)
	m.playlistList.Title = fmt.Sprintf("Library (%d playlists)", len(playlists))

	if m.selected != nil {
		for i := range playlists {
			if playlists[i].ID == m.selected.ID {
				m.openPlaylist(playlists[i])
				return
			}
		}
		m.selected = nil
	}
	m.view = PlaylistListView
}

func (m *Model) openPlaylist(pl models.PlaylistView) {
	m.selected = &pl
	items := make([]list.Item, len(pl.Tracks))
	for i, t := range pl.Tracks {
		items[i] = trackItem{track: t}
	}

	w, h := m.listSize()
	m.trackList = list.New(items, list.NewDefaultDelegate(), w, h)
	m.trackList.Title = fmt.Sprintf("Tracks in '%s'", pl.Name)
	m.view = TrackListView
}

func (m *Model) listSize() (int, int) {
	return max(m.width-4, 20), max(m.height-8, 10)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case ExportView:
		return m.renderExport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.openPlaylist(pl.playlist)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.confirm(
				fmt.Sprintf("Delete '%s' and its %d tracks?", pl.playlist.Name, len(pl.playlist.Tracks)),
				m.deletePlaylist(pl.playlist),
			)
		}
		return m, nil
	case key.Matches(msg, m.keys.export):
		m.view = ExportView
		return m, m.startExport()
	case key.Matches(msg, m.keys.restart):
		return m, m.loadPlaylists()
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.selected = nil
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if t, ok := m.trackList.SelectedItem().(trackItem); ok && m.selected != nil {
			m.confirm(
				fmt.Sprintf("Remove '%s' from '%s'?", t.Title(), m.selected.Name),
				m.removeTrack(*m.selected, t),
			)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) confirm(prompt string, cmd tea.Cmd) {
	m.confirmPrompt = prompt
	m.confirmCmd = cmd
	m.returnView = m.view
	m.view = ConfirmView
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		cmd := m.confirmCmd
		m.confirmCmd = nil
		return m, cmd
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.confirmCmd = nil
		m.view = m.returnView
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart), key.Matches(msg, m.keys.back):
		m.summary = ""
		m.exportResult = nil
		m.err = nil
		return m, m.loadPlaylists()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadPlaylists() tea.Cmd {
	ctx, library, userID := m.ctx, m.library, m.userID
	return func() tea.Msg {
		playlists, err := library.ListPlaylists(ctx, userID)
		return playlistsLoadedMsg(playlists, err)
	}
}

func (m *Model) deletePlaylist(pl models.PlaylistView) tea.Cmd {
	ctx, library, userID := m.ctx, m.library, m.userID
	return func() tea.Msg {
		ok, err := library.DeletePlaylist(ctx, userID, pl.ID)
		if err == nil && !ok {
			err = fmt.Errorf("playlist '%s' was not deleted", pl.Name)
		}
		return actionCompleteMsg(fmt.Sprintf("Deleted '%s' (%d tracks)", pl.Name, len(pl.Tracks)), err)
	}
}

func (m *Model) removeTrack(pl models.PlaylistView, t trackItem) tea.Cmd {
	ctx, library, userID := m.ctx, m.library, m.userID
	return func() tea.Msg {
		ok, err := library.RemoveTrack(ctx, userID, pl.ID, t.uid())
		if err == nil && !ok {
			err = fmt.Errorf("track '%s' is no longer in '%s'", t.Title(), pl.Name)
		}
		return actionCompleteMsg(fmt.Sprintf("Removed '%s' from '%s'", t.Title(), pl.Name), err)
	}
}

func (m *Model) startExport() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan exportComplete, 1)
	m.progressChan = progress
	m.exportDone = done
	m.progress = tasks.ProgressUpdate{}

	ctx, library, userID, opts := m.ctx, m.library, m.userID, m.exportOpts
	go func() {
		result, err := library.BulkExport(ctx, progress, userID, opts)
		done <- exportComplete{result: result, err: err}
		close(progress)
	}()

	return waitForProgress(progress, done)
}

func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan exportComplete) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			res := <-done
			return exportCompleteMsg(res.result, res.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.remove, m.keys.export, m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.remove, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	header := ""
	if m.selected != nil {
		synced := m.selected.SyncedCount()
		header = styles.help.Render(fmt.Sprintf("%d synced • %d added by hand", synced, len(m.selected.Tracks)-synced)) + "\n"
	}
	return fmt.Sprintf("%s%s\n\n%s", header, m.trackList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.warn.Render(m.confirmPrompt)
	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", title, helpView)
}

func (m *Model) renderExport() string {
	title := styles.title.Render("Exporting Library")

	var phase string
	switch m.progress.Phase {
	case tasks.LoadPlaylists:
		phase = "Loading playlists..."
	case tasks.ExportPlaylist:
		phase = fmt.Sprintf("Exporting playlists (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Starting..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Error: %v", m.err)), helpView)
	}

	if m.exportResult != nil {
		return fmt.Sprintf("%s\n\n%s", m.renderExportResult(), helpView)
	}

	return fmt.Sprintf("%s\n\n%s", styles.ok.Render("✓ "+m.summary), helpView)
}

func (m *Model) renderExportResult() string {
	r := m.exportResult
	var b strings.Builder

	b.WriteString(styles.ok.Render("✓ Export Complete!"))
	fmt.Fprintf(&b, "\n\nExported %d/%d playlists to %s", r.SuccessfulExports, r.TotalPlaylists, r.OutputDirectory)
	if r.ManifestPath != "" {
		fmt.Fprintf(&b, "\nManifest: %s", r.ManifestPath)
	}

	if r.FailedExports > 0 {
		b.WriteString("\n\n")
		b.WriteString(styles.warn.Render(fmt.Sprintf("Failed to export %d playlists:", r.FailedExports)))
		for _, res := range r.Results {
			if !res.Success {
				fmt.Fprintf(&b, "\n  • %s: %v", res.PlaylistName, res.Error)
			}
		}
	}
	return b.String()
}
