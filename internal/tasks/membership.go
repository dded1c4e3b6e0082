package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/repositories"
	"github.com/desertthunder/plmirror/internal/shared"
)

// AddTrack adds track to a playlist as a manual row, stored as given.
//
// A track whose platform id is already in the playlist is rejected with [shared.ErrDuplicateTrack].
// The returned row is nil when the ownership policy ignored the call.
func (e *PlaylistEngine) AddTrack(ctx context.Context, userID int64, playlistID string, track models.Track) (*models.PlaylistTrack, error) {
	if len(track) == 0 {
		return nil, fmt.Errorf("%w: track is required", shared.ErrValidation)
	}

	snapshot, err := models.EncodeTrack(track)
	if err != nil {
		return nil, err
	}

	var row *models.PlaylistTrack
	_, err = e.withPlaylist(ctx, userID, playlistID, func(g repositories.Gateway, p *models.Playlist) error {
		existing, err := storedIDs(ctx, g, p.ID)
		if err != nil {
			return err
		}
		if id := track.PlatformID(); id != "" && existing[id] {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateTrack, id)
		}

		row, err = g.InsertTrack(ctx, p.ID, snapshot, models.TrackManual)
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// AddTracks adds tracks as manual rows, skipping ones already present or repeated in the batch.
//
// It returns the number of rows added. Tracks that cannot be serialized are logged and skipped.
func (e *PlaylistEngine) AddTracks(ctx context.Context, userID int64, playlistID string, tracks []models.Track) (int, error) {
	if len(tracks) == 0 {
		return 0, nil
	}

	added := 0
	_, err := e.withPlaylist(ctx, userID, playlistID, func(g repositories.Gateway, p *models.Playlist) error {
		seen, err := storedIDs(ctx, g, p.ID)
		if err != nil {
			return err
		}

		for i, track := range tracks {
			id := track.PlatformID()
			if id != "" && seen[id] {
				continue
			}

			snapshot, err := models.EncodeTrack(track)
			if err != nil {
				e.logger.Warn("skipping track", "playlist", p.ID, "index", i, "err", err)
				continue
			}
			if _, err := g.InsertTrack(ctx, p.ID, snapshot, models.TrackManual); err != nil {
				return err
			}

			if id != "" {
				seen[id] = true
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// RemoveTrack removes one row by membership id and reports whether a row was removed.
func (e *PlaylistEngine) RemoveTrack(ctx context.Context, userID int64, playlistID, uid string) (bool, error) {
	n, err := e.RemoveTracks(ctx, userID, playlistID, []string{uid})
	return n > 0, err
}

// RemoveTracks removes rows by membership id, regardless of origin, and returns how many were removed.
func (e *PlaylistEngine) RemoveTracks(ctx context.Context, userID int64, playlistID string, uids []string) (int, error) {
	if len(uids) == 0 {
		return 0, nil
	}

	removed := 0
	_, err := e.withPlaylist(ctx, userID, playlistID, func(g repositories.Gateway, p *models.Playlist) error {
		for _, uid := range uids {
			ok, err := g.DeleteTrack(ctx, p.ID, uid)
			if err != nil {
				return err
			}
			if ok {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// storedIDs returns the platform ids of every track currently in a playlist.
func storedIDs(ctx context.Context, g repositories.Gateway, playlistID string) (map[string]bool, error) {
	tracks, err := g.ListTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		if id := t.Snapshot.PlatformID(); id != "" {
			ids[id] = true
		}
	}
	return ids, nil
}
