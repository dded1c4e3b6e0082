package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/shared"
)

// PlaylistTrackRepository persists track snapshots belonging to a playlist.
//
// Rows are ordered by sequence, which follows insertion order.
type PlaylistTrackRepository struct {
	q queryer
}

// NewPlaylistTrackRepository creates a new PlaylistTrackRepository on a database or transaction
func NewPlaylistTrackRepository(q queryer) *PlaylistTrackRepository {
	return &PlaylistTrackRepository{q: q}
}

// InsertTrack appends a serialized snapshot to a playlist and returns the stored row
func (r *PlaylistTrackRepository) InsertTrack(ctx context.Context, playlistID string, snapshot []byte, origin models.TrackOrigin) (*models.PlaylistTrack, error) {
	if !origin.Valid() {
		return nil, fmt.Errorf("%w: unknown track origin %q", shared.ErrValidation, origin)
	}

	track, err := models.DecodeTrack(snapshot)
	if err != nil {
		return nil, err
	}

	sequence, err := NextSequence(ctx, r.q, "playlist_tracks")
	if err != nil {
		return nil, storageErr("generate sequence", err)
	}

	row := &models.PlaylistTrack{
		ID:         shared.GenerateID(),
		Sequence:   sequence,
		PlaylistID: playlistID,
		Snapshot:   track,
		Origin:     origin,
		CreatedAt:  time.Now().UTC(),
	}

	query := `
		INSERT INTO playlist_tracks (id, sequence, playlist_id, snapshot, origin, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.q.ExecContext(ctx, query, row.ID, row.Sequence, playlistID, string(snapshot), string(origin), row.CreatedAt)
	if err != nil {
		return nil, storageErr("insert playlist track", err)
	}

	return row, nil
}

// ListTracks retrieves all track rows of a playlist in insertion order
func (r *PlaylistTrackRepository) ListTracks(ctx context.Context, playlistID string) ([]*models.PlaylistTrack, error) {
	query := `
		SELECT id, sequence, playlist_id, snapshot, origin, created_at
		FROM playlist_tracks
		WHERE playlist_id = ?
		ORDER BY sequence ASC
	`

	rows, err := r.q.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, storageErr("query playlist tracks", err)
	}
	defer rows.Close()

	tracks := []*models.PlaylistTrack{}
	for rows.Next() {
		track, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate playlist tracks", err)
	}

	return tracks, nil
}

// DeleteTrack removes one row by its membership id, reporting whether it existed
func (r *PlaylistTrackRepository) DeleteTrack(ctx context.Context, playlistID, uid string) (bool, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ? AND id = ?`, playlistID, uid)
	if err != nil {
		return false, storageErr("delete playlist track", err)
	}
	n, err := affected(result)
	return n > 0, err
}

// DeleteTracksByOrigin removes every row of the given origin from a playlist
func (r *PlaylistTrackRepository) DeleteTracksByOrigin(ctx context.Context, playlistID string, origin models.TrackOrigin) (int, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ? AND origin = ?`, playlistID, string(origin))
	if err != nil {
		return 0, storageErr("delete playlist tracks", err)
	}
	return affected(result)
}

// DeleteAllTracks removes every row from a playlist regardless of origin
func (r *PlaylistTrackRepository) DeleteAllTracks(ctx context.Context, playlistID string) (int, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, playlistID)
	if err != nil {
		return 0, storageErr("delete playlist tracks", err)
	}
	return affected(result)
}

func affected(result sql.Result) (int, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("get affected rows", err)
	}
	return int(n), nil
}

// scanRow scans a row from [sql.Rows] into a [models.PlaylistTrack]
func (r *PlaylistTrackRepository) scanRow(row scanner) (*models.PlaylistTrack, error) {
	var (
		t        models.PlaylistTrack
		snapshot string
		origin   string
	)

	if err := row.Scan(&t.ID, &t.Sequence, &t.PlaylistID, &snapshot, &origin, &t.CreatedAt); err != nil {
		return nil, storageErr("scan playlist track", err)
	}

	track, err := models.DecodeTrack([]byte(snapshot))
	if err != nil {
		return nil, err
	}

	t.Snapshot = track
	t.Origin = models.TrackOrigin(origin)
	return &t, nil
}
