package tasks

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plmirror/internal/locks"
	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/naming"
	"github.com/desertthunder/plmirror/internal/repositories"
	"github.com/desertthunder/plmirror/internal/sanitize"
	"github.com/desertthunder/plmirror/internal/shared"
)

// ImportBatch performs a full re-import of the playlists fetched from one platform account.
//
// It returns how many playlists had at least one track stored. See [PlaylistEngine.ImportBatchWithProgress].
func (e *PlaylistEngine) ImportBatch(ctx context.Context, userID int64, req models.ImportRequest) (int, error) {
	return e.ImportBatchWithProgress(ctx, nil, userID, req)
}

// ImportBatchWithProgress is [PlaylistEngine.ImportBatch] with progress reporting.
//
// New playlists are named with the platform prefix. A playlist that arrives with tracks has ALL of
// its stored tracks replaced, manual additions included; one that arrives empty keeps its tracks.
// Tracks that cannot be serialized are logged and skipped. The batch commits as one unit.
func (e *PlaylistEngine) ImportBatchWithProgress(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	userID int64,
	req models.ImportRequest,
) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(req.Playlists))
	for _, pl := range req.Playlists {
		keys = append(keys, locks.ExternalKey(userID, req.Platform, pl.ID))
	}

	unlock, err := locks.LockAll(ctx, e.locker, keys)
	if err != nil {
		return 0, err
	}
	defer unlock()

	logger := shared.WithLogger(e.logger, "user", userID, "platform", req.Platform)
	total := len(req.Playlists)
	imported := 0

	err = e.store.Atomic(ctx, func(g repositories.Gateway) error {
		imported = 0

		if _, err := g.UpsertConnectedAccount(ctx, userID, req.Platform, req.AccountID(), e.now()); err != nil {
			return err
		}

		for i, pl := range req.Playlists {
			if err := ctx.Err(); err != nil {
				return err
			}

			e.sendProgress(progress, resolvePlaylistUpdate(i+1, total, pl.Name))

			p, created, err := e.findOrCreate(ctx, g, userID, req.Platform, pl.ID, naming.Normalize(req.Platform, pl.Name))
			if err != nil {
				return err
			}

			if len(pl.Tracks) == 0 {
				logger.Debug("playlist has no tracks, keeping stored tracks", "playlist", p.ID)
				continue
			}

			if !created {
				removed, err := g.DeleteAllTracks(ctx, p.ID)
				if err != nil {
					return err
				}
				logger.Debug("cleared playlist for re-import", "playlist", p.ID, "removed", removed)
			}

			n, err := e.insertSynced(ctx, g, logger, p, pl.Tracks, sanitize.StageImport)
			if err != nil {
				return err
			}
			if n > 0 {
				imported++
			}

			e.sendProgress(progress, replaceTracksUpdate(i+1, total, p.Name, n))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("imported playlists", "playlists", total, "imported", imported)
	e.sendProgress(progress, importCompleteUpdate(total, imported))
	return imported, nil
}

// IncrementalSync refreshes the synced tracks of one playlist and returns how many were stored.
//
// The playlist is created with the name as given when unknown, and renamed when the name changed.
// Only synced tracks are replaced; manual additions keep their rows and identifiers.
func (e *PlaylistEngine) IncrementalSync(ctx context.Context, userID int64, req models.SyncRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	unlock, err := e.locker.Lock(ctx, locks.ExternalKey(userID, req.Platform, req.ExternalID))
	if err != nil {
		return 0, err
	}
	defer unlock()

	logger := shared.WithLogger(e.logger, "user", userID, "platform", req.Platform)
	count := 0

	err = e.store.Atomic(ctx, func(g repositories.Gateway) error {
		p, created, err := e.findOrCreate(ctx, g, userID, req.Platform, req.ExternalID, req.Name)
		if err != nil {
			return err
		}

		if !created && p.Name != req.Name {
			if err := g.RenamePlaylist(ctx, p.ID, req.Name); err != nil {
				return err
			}
			logger.Debug("renamed synced playlist", "playlist", p.ID, "from", p.Name, "to", req.Name)
			p.Name = req.Name
		}

		if _, err := g.DeleteTracksByOrigin(ctx, p.ID, models.TrackSynced); err != nil {
			return err
		}

		count, err = e.insertSynced(ctx, g, logger, p, req.Songs, sanitize.StageSync)
		return err
	})
	if err != nil {
		return 0, err
	}

	logger.Info("synced playlist", "external_id", req.ExternalID, "tracks", count)
	return count, nil
}

// findOrCreate resolves a synced playlist by external identity, creating it with name when absent.
func (e *PlaylistEngine) findOrCreate(
	ctx context.Context,
	g repositories.Gateway,
	userID int64,
	platform, externalID, name string,
) (*models.Playlist, bool, error) {
	p, err := g.FindPlaylist(ctx, userID, platform, externalID)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	p = models.NewSyncedPlaylist(userID, platform, externalID, name, e.now())
	if err := g.CreatePlaylist(ctx, p); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// insertSynced stores tracks as synced rows in order, skipping any that fail to serialize.
func (e *PlaylistEngine) insertSynced(
	ctx context.Context,
	g repositories.Gateway,
	logger *log.Logger,
	p *models.Playlist,
	tracks []models.Track,
	stage sanitize.Stage,
) (int, error) {
	n := 0
	for i, track := range tracks {
		snapshot, err := models.EncodeTrack(e.sanitize.Apply(stage, track))
		if err != nil {
			logger.Warn("skipping track", "playlist", p.ID, "index", i, "stage", stage, "err", err)
			continue
		}
		if _, err := g.InsertTrack(ctx, p.ID, snapshot, models.TrackSynced); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
