package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/shared"
)

// Gateway is the storage contract used by the reconciliation engine.
//
// Lookups of absent rows return errors wrapping [shared.ErrNotFound].
type Gateway interface {
	FindPlaylist(ctx context.Context, userID int64, platform, externalID string) (*models.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	ListPlaylists(ctx context.Context, userID int64) ([]*models.Playlist, error)
	CreatePlaylist(ctx context.Context, playlist *models.Playlist) error
	RenamePlaylist(ctx context.Context, id, name string) error
	DeletePlaylist(ctx context.Context, id string) error

	ListTracks(ctx context.Context, playlistID string) ([]*models.PlaylistTrack, error)
	InsertTrack(ctx context.Context, playlistID string, snapshot []byte, origin models.TrackOrigin) (*models.PlaylistTrack, error)
	DeleteTrack(ctx context.Context, playlistID, uid string) (bool, error)
	DeleteTracksByOrigin(ctx context.Context, playlistID string, origin models.TrackOrigin) (int, error)
	DeleteAllTracks(ctx context.Context, playlistID string) (int, error)

	UpsertConnectedAccount(ctx context.Context, userID int64, platform, externalUserID string, at time.Time) (*models.ConnectedAccount, error)
	GetConnectedAccount(ctx context.Context, userID int64, platform string) (*models.ConnectedAccount, error)
}

// Store is a [Gateway] that can run a unit of work atomically.
//
// The gateway passed to fn is bound to one transaction; returning an error rolls it back.
type Store interface {
	Gateway
	Atomic(ctx context.Context, fn func(Gateway) error) error
}

// queryer is satisfied by both [*sql.DB] and [*sql.Tx].
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements [Store] on a SQLite database.
type SQLiteStore struct {
	*PlaylistRepository
	*PlaylistTrackRepository
	*ConnectedAccountRepository

	db *sql.DB
	tx *sql.Tx
}

// NewSQLiteStore creates a store over an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return newStore(db, nil, db)
}

func newStore(db *sql.DB, tx *sql.Tx, q queryer) *SQLiteStore {
	return &SQLiteStore{
		PlaylistRepository:         NewPlaylistRepository(q),
		PlaylistTrackRepository:    NewPlaylistTrackRepository(q),
		ConnectedAccountRepository: NewConnectedAccountRepository(q),
		db:                         db,
		tx:                         tx,
	}
}

// Atomic runs fn inside a transaction, committing when fn returns nil.
//
// Nested calls reuse the enclosing transaction.
func (s *SQLiteStore) Atomic(ctx context.Context, fn func(Gateway) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}

	if err := fn(newStore(s.db, tx, tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

// NextSequence increments and returns the next sequence number for the given table.
//
// Sequence numbers provide stable insertion ordering for entities. They are NOT exposed to
// callers. The increment runs on q, so inside a transaction it rolls back with it.
func NextSequence(ctx context.Context, q queryer, table string) (int, error) {
	sequenceTable := table + "_sequence"

	_, err := q.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = q.QueryRowContext(ctx, fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	return sequence, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", shared.ErrStorage, op, err)
}

// scanner is satisfied by both [*sql.Row] and [*sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}
