// package models defines the data model for the playlist mirror
package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/plmirror/internal/shared"
)

// LocalPlatform is the platform tag of playlists created inside the app.
const LocalPlatform = "local"

// PlaylistOrigin tells whether a playlist was created locally or mirrored from a platform.
type PlaylistOrigin string

const (
	PlaylistLocal  PlaylistOrigin = "local"
	PlaylistSynced PlaylistOrigin = "synced"
)

// TrackOrigin tells whether a membership row was added by hand or arrived via synchronization.
type TrackOrigin string

const (
	TrackManual TrackOrigin = "manual"
	TrackSynced TrackOrigin = "synced"
)

// Valid reports whether o is a known playlist origin.
func (o PlaylistOrigin) Valid() bool {
	return o == PlaylistLocal || o == PlaylistSynced
}

// Valid reports whether o is a known track origin.
func (o TrackOrigin) Valid() bool {
	return o == TrackManual || o == TrackSynced
}

// Playlist is a persisted playlist owned by one user.
//
// Synced playlists carry the platform tag and external identifier used to find them again.
type Playlist struct {
	ID                 string
	Sequence           int
	UserID             int64
	Name               string
	Origin             PlaylistOrigin
	Platform           string
	PlatformPlaylistID string
	Deletable          bool
	CreatedAt          time.Time
}

// NewLocalPlaylist returns an empty, deletable, locally created playlist.
func NewLocalPlaylist(userID int64, name string, now time.Time) *Playlist {
	return &Playlist{
		UserID:    userID,
		Name:      name,
		Origin:    PlaylistLocal,
		Platform:  LocalPlatform,
		Deletable: true,
		CreatedAt: now,
	}
}

// NewSyncedPlaylist returns a deletable playlist bound to its external identity.
func NewSyncedPlaylist(userID int64, platform, externalID, name string, now time.Time) *Playlist {
	return &Playlist{
		UserID:             userID,
		Name:               name,
		Origin:             PlaylistSynced,
		Platform:           platform,
		PlatformPlaylistID: externalID,
		Deletable:          true,
		CreatedAt:          now,
	}
}

// IsSynced reports whether the playlist mirrors a platform playlist.
func (p *Playlist) IsSynced() bool {
	return p.Origin == PlaylistSynced
}

// OwnedBy reports whether userID owns the playlist.
func (p *Playlist) OwnedBy(userID int64) bool {
	return p != nil && p.UserID == userID
}

// Validate checks the playlist before it is persisted.
func (p *Playlist) Validate() error {
	if p.UserID == 0 {
		return fmt.Errorf("%w: playlist user_id is required", shared.ErrValidation)
	}
	if !p.Origin.Valid() {
		return fmt.Errorf("%w: unknown playlist origin %q", shared.ErrValidation, p.Origin)
	}
	if p.IsSynced() && (p.Platform == "" || p.PlatformPlaylistID == "") {
		return fmt.Errorf("%w: synced playlist requires platform and external id", shared.ErrValidation)
	}
	return nil
}

// PlaylistTrack is one membership row: a sanitized track snapshot inside one playlist.
//
// ID is the membership identifier exposed to callers as "uid", distinct from the platform track id.
type PlaylistTrack struct {
	ID         string
	Sequence   int
	PlaylistID string
	Snapshot   Track
	Origin     TrackOrigin
	CreatedAt  time.Time
}

// ConnectedAccount records which external account a user last synced a platform with.
type ConnectedAccount struct {
	ID             string
	UserID         int64
	Platform       string
	ExternalUserID string
	LastSyncedAt   time.Time
}

// TrackView is a stored track as returned to callers: the snapshot plus membership fields.
type TrackView map[string]any

// PlaylistView is a playlist with its tracks in insertion order.
type PlaylistView struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	IsSync     bool        `json:"is_sync"`
	Platform   string      `json:"platform"`
	ExternalID string      `json:"external_id,omitempty"`
	CanDelete  bool        `json:"can_delete"`
	CreatedAt  time.Time   `json:"created_at"`
	Tracks     []TrackView `json:"tracks"`
}

// NewPlaylistView builds the caller-facing view of p and its membership rows.
//
// Each track gets "uid" (membership id) and "is_local_add" (manual origin) keys.
func NewPlaylistView(p *Playlist, tracks []*PlaylistTrack) PlaylistView {
	view := PlaylistView{
		ID:         p.ID,
		Name:       p.Name,
		IsSync:     p.IsSynced(),
		Platform:   p.Platform,
		ExternalID: p.PlatformPlaylistID,
		CanDelete:  p.Deletable,
		CreatedAt:  p.CreatedAt,
		Tracks:     make([]TrackView, 0, len(tracks)),
	}
	for _, t := range tracks {
		tv := TrackView(t.Snapshot.Clone())
		tv["uid"] = t.ID
		tv["is_local_add"] = t.Origin == TrackManual
		view.Tracks = append(view.Tracks, tv)
	}
	return view
}

// SyncedCount returns how many tracks in the view arrived via synchronization.
func (v PlaylistView) SyncedCount() int {
	n := 0
	for _, t := range v.Tracks {
		if manual, _ := t["is_local_add"].(bool); !manual {
			n++
		}
	}
	return n
}
