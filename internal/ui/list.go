package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/plmirror/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.PlaylistView] to implement [list.Item].
type playlistItem struct {
	playlist models.PlaylistView
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", len(i.playlist.Tracks))
	if i.playlist.IsSync {
		desc = fmt.Sprintf("%s • synced from %s", desc, i.playlist.Platform)
	} else {
		desc = fmt.Sprintf("%s • local", desc)
	}
	return desc
}

// trackItem wraps [models.TrackView] to implement [list.Item].
type trackItem struct {
	track models.TrackView
}

func (i trackItem) snapshot() models.Track { return models.Track(i.track) }

func (i trackItem) uid() string {
	uid, _ := i.track["uid"].(string)
	return uid
}

func (i trackItem) manual() bool {
	manual, _ := i.track["is_local_add"].(bool)
	return manual
}

func (i trackItem) FilterValue() string { return i.Title() }
func (i trackItem) Title() string {
	if title := i.snapshot().Title(); title != "" {
		return title
	}
	return i.snapshot().PlatformID()
}
func (i trackItem) Description() string {
	parts := []string{}
	if artist := i.snapshot().Artist(); artist != "" {
		parts = append(parts, artist)
	}
	if i.manual() {
		parts = append(parts, "added by hand")
	} else {
		parts = append(parts, "synced")
	}
	return strings.Join(parts, " • ")
}
