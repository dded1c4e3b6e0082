package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/plmirror/internal/formatter"
	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsLoaded MsgKind = iota
	MsgActionComplete
	MsgProgressUpdate
	MsgExportComplete
)

type playlistsLoaded struct {
	playlists []models.PlaylistView
	err       error
}

type actionComplete struct {
	summary string
	err     error
}

type exportComplete struct {
	result *formatter.BulkExportResult
	err    error
}

// playlistsLoadedMsg is the constructor for [MsgPlaylistsLoaded]
func playlistsLoadedMsg(playlists []models.PlaylistView, err error) Msg {
	return Msg{kind: MsgPlaylistsLoaded, data: playlistsLoaded{playlists, err}}
}

// actionCompleteMsg is the constructor for [MsgActionComplete]
func actionCompleteMsg(summary string, err error) Msg {
	return Msg{kind: MsgActionComplete, data: actionComplete{summary, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// exportCompleteMsg is the constructor for [MsgExportComplete]
func exportCompleteMsg(result *formatter.BulkExportResult, err error) Msg {
	return Msg{kind: MsgExportComplete, data: exportComplete{result, err}}
}
