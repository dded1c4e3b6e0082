package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/shared"
)

const playlistColumns = `id, sequence, user_id, name, origin, platform, external_id, deletable, created_at`

// PlaylistRepository persists [models.Playlist] rows.
type PlaylistRepository struct {
	q queryer
}

// NewPlaylistRepository creates a new PlaylistRepository on a database or transaction
func NewPlaylistRepository(q queryer) *PlaylistRepository {
	return &PlaylistRepository{q: q}
}

// CreatePlaylist inserts a new playlist, assigning its ID and sequence
func (r *PlaylistRepository) CreatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.q, "playlists")
	if err != nil {
		return storageErr("generate sequence", err)
	}

	id := shared.GenerateID()

	var externalID sql.NullString
	if playlist.PlatformPlaylistID != "" {
		externalID = sql.NullString{String: playlist.PlatformPlaylistID, Valid: true}
	}

	query := `
		INSERT INTO playlists (` + playlistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.q.ExecContext(ctx, query,
		id,
		sequence,
		playlist.UserID,
		playlist.Name,
		string(playlist.Origin),
		playlist.Platform,
		externalID,
		playlist.Deletable,
		playlist.CreatedAt,
	)
	if err != nil {
		return storageErr("insert playlist", err)
	}

	playlist.ID = id
	playlist.Sequence = sequence
	return nil
}

// GetPlaylist retrieves a playlist by ID
func (r *PlaylistRepository) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// FindPlaylist retrieves the synced playlist bound to an external identity
func (r *PlaylistRepository) FindPlaylist(ctx context.Context, userID int64, platform, externalID string) (*models.Playlist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE user_id = ? AND platform = ? AND external_id = ? AND origin = 'synced'
	`
	return r.scanOne(r.q.QueryRowContext(ctx, query, userID, platform, externalID))
}

// ListPlaylists retrieves a user's playlists, newest first
func (r *PlaylistRepository) ListPlaylists(ctx context.Context, userID int64) ([]*models.Playlist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE user_id = ?
		ORDER BY sequence DESC
	`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storageErr("query playlists", err)
	}
	defer rows.Close()

	playlists := []*models.Playlist{}
	for rows.Next() {
		playlist, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate playlists", err)
	}

	return playlists, nil
}

// RenamePlaylist sets a playlist's name
func (r *PlaylistRepository) RenamePlaylist(ctx context.Context, id, name string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE playlists SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return storageErr("rename playlist", err)
	}
	return expectAffected(result, id)
}

// DeletePlaylist removes a playlist; its track rows are removed by the foreign key cascade
func (r *PlaylistRepository) DeletePlaylist(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete playlist", err)
	}
	return expectAffected(result, id)
}

func expectAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("get affected rows", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return nil
}

// scanOne scans a single row into a [models.Playlist]
func (r *PlaylistRepository) scanOne(row *sql.Row) (*models.Playlist, error) {
	playlist, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPlaylistNotFound
	}
	return playlist, err
}

// scanRow scans a row from [sql.Rows] or [sql.Row] into a [models.Playlist]
func (r *PlaylistRepository) scanRow(row scanner) (*models.Playlist, error) {
	var (
		p          models.Playlist
		origin     string
		externalID sql.NullString
	)

	err := row.Scan(&p.ID, &p.Sequence, &p.UserID, &p.Name, &origin, &p.Platform, &externalID, &p.Deletable, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, storageErr("scan playlist", err)
	}

	p.Origin = models.PlaylistOrigin(origin)
	p.PlatformPlaylistID = externalID.String
	return &p, nil
}
