package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plmirror/internal/locks"
	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/repositories"
	"github.com/desertthunder/plmirror/internal/sanitize"
	"github.com/desertthunder/plmirror/internal/shared"
)

// EngineOpts configures a [PlaylistEngine]. Zero values select the defaults.
type EngineOpts struct {
	Logger    *log.Logger      // Defaults to [log.Default]
	Locker    locks.Locker     // Defaults to an in-process [locks.KeyedMutex]
	Sanitize  *sanitize.Policy // Defaults to [sanitize.DefaultPolicy]
	Ownership OwnershipPolicy  // Defaults to [SilentOwnership]
	Clock     func() time.Time // Defaults to [time.Now] in UTC
}

// PlaylistEngine merges externally fetched playlists into stored state and applies manual edits.
type PlaylistEngine struct {
	store     repositories.Store
	logger    *log.Logger
	locker    locks.Locker
	sanitize  sanitize.Policy
	ownership OwnershipPolicy
	now       func() time.Time
}

// NewPlaylistEngine creates a new PlaylistEngine over store.
func NewPlaylistEngine(store repositories.Store, opts EngineOpts) *PlaylistEngine {
	e := &PlaylistEngine{
		store:     store,
		logger:    opts.Logger,
		locker:    opts.Locker,
		sanitize:  sanitize.DefaultPolicy(),
		ownership: opts.Ownership,
		now:       opts.Clock,
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	if e.locker == nil {
		e.locker = locks.NewKeyedMutex()
	}
	if opts.Sanitize != nil {
		e.sanitize = *opts.Sanitize
	}
	if e.ownership == nil {
		e.ownership = SilentOwnership{}
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// withPlaylist locks playlistID and runs fn in one transaction once the ownership policy allows it.
//
// It reports whether fn ran.
func (e *PlaylistEngine) withPlaylist(
	ctx context.Context,
	userID int64,
	playlistID string,
	fn func(g repositories.Gateway, p *models.Playlist) error,
) (bool, error) {
	unlock, err := locks.LockAll(ctx, e.locker, e.playlistLockKeys(ctx, playlistID))
	if err != nil {
		return false, err
	}
	defer unlock()

	ran := false
	err = e.store.Atomic(ctx, func(g repositories.Gateway) error {
		p, lookupErr := g.GetPlaylist(ctx, playlistID)
		proceed, err := e.ownership.Resolve(userID, p, lookupErr)
		if err != nil || !proceed {
			return err
		}
		ran = true
		return fn(g, p)
	})
	if err != nil {
		return false, err
	}
	if !ran {
		e.logger.Debug("ignored playlist mutation", "user", userID, "playlist", playlistID)
	}
	return ran, nil
}

// playlistLockKeys returns the keys a manual mutation of playlistID holds. A synced playlist
// also takes its external key, the one import and sync lock, so edits and syncs of it never
// interleave. Lookup errors are left to the lookup inside the transaction.
func (e *PlaylistEngine) playlistLockKeys(ctx context.Context, playlistID string) []string {
	keys := []string{locks.PlaylistKey(playlistID)}
	if p, err := e.store.GetPlaylist(ctx, playlistID); err == nil && p.IsSynced() {
		keys = append(keys, locks.ExternalKey(p.UserID, p.Platform, p.PlatformPlaylistID))
	}
	return keys
}

// CreatePlaylist creates an empty, deletable local playlist. Names are not deduplicated.
func (e *PlaylistEngine) CreatePlaylist(ctx context.Context, userID int64, name string) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrValidation)
	}

	p := models.NewLocalPlaylist(userID, name, e.now())
	if err := e.store.Atomic(ctx, func(g repositories.Gateway) error {
		return g.CreatePlaylist(ctx, p)
	}); err != nil {
		return nil, err
	}

	e.logger.Info("created playlist", "user", userID, "playlist", p.ID, "name", p.Name)
	return p, nil
}

// RenamePlaylist renames a playlist owned by userID and reports whether it was renamed.
func (e *PlaylistEngine) RenamePlaylist(ctx context.Context, userID int64, playlistID, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("%w: playlist name is required", shared.ErrValidation)
	}

	return e.withPlaylist(ctx, userID, playlistID, func(g repositories.Gateway, p *models.Playlist) error {
		return g.RenamePlaylist(ctx, p.ID, name)
	})
}

// DeletePlaylist deletes a playlist owned by userID together with all of its tracks.
func (e *PlaylistEngine) DeletePlaylist(ctx context.Context, userID int64, playlistID string) (bool, error) {
	return e.withPlaylist(ctx, userID, playlistID, func(g repositories.Gateway, p *models.Playlist) error {
		if !p.Deletable {
			return fmt.Errorf("%w: playlist %s is protected", shared.ErrForbidden, p.ID)
		}
		if _, err := g.DeleteAllTracks(ctx, p.ID); err != nil {
			return err
		}
		if err := g.DeletePlaylist(ctx, p.ID); err != nil {
			return err
		}
		e.logger.Info("deleted playlist", "user", userID, "playlist", p.ID)
		return nil
	})
}

// ListPlaylists returns the user's playlists newest first, each with its tracks in insertion order.
func (e *PlaylistEngine) ListPlaylists(ctx context.Context, userID int64) ([]models.PlaylistView, error) {
	views := []models.PlaylistView{}
	err := e.store.Atomic(ctx, func(g repositories.Gateway) error {
		playlists, err := g.ListPlaylists(ctx, userID)
		if err != nil {
			return err
		}
		for _, p := range playlists {
			tracks, err := g.ListTracks(ctx, p.ID)
			if err != nil {
				return err
			}
			views = append(views, models.NewPlaylistView(p, tracks))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// GetPlaylist returns one playlist with its tracks.
//
// A playlist the ownership policy hides is reported as [shared.ErrPlaylistNotFound].
func (e *PlaylistEngine) GetPlaylist(ctx context.Context, userID int64, playlistID string) (*models.PlaylistView, error) {
	var view *models.PlaylistView
	err := e.store.Atomic(ctx, func(g repositories.Gateway) error {
		p, lookupErr := g.GetPlaylist(ctx, playlistID)
		proceed, err := e.ownership.Resolve(userID, p, lookupErr)
		if err != nil {
			return err
		}
		if !proceed {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}

		tracks, err := g.ListTracks(ctx, p.ID)
		if err != nil {
			return err
		}
		v := models.NewPlaylistView(p, tracks)
		view = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ConnectedAccount returns the external account the user last synced platform with.
func (e *PlaylistEngine) ConnectedAccount(ctx context.Context, userID int64, platform string) (*models.ConnectedAccount, error) {
	account, err := e.store.GetConnectedAccount(ctx, userID, platform)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, platform)
	}
	return account, err
}
