package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/tasks"
)

// SyncImport merges a batch of fetched playlists into the library.
func (r *Runner) SyncImport(ctx context.Context, cmd *cli.Command) error {
	var req models.ImportRequest
	if err := r.readJSON(cmd.String("file"), &req); err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	imported, err := r.engine.ImportBatchWithProgress(ctx, progress, cmd.Int64("user"), req)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	return r.writePlainln("✓ Imported %d of %d playlists from %s", imported, len(req.Playlists), req.Platform)
}

// SyncPlaylist refreshes one synced playlist, keeping manual additions.
func (r *Runner) SyncPlaylist(ctx context.Context, cmd *cli.Command) error {
	var req models.SyncRequest
	if err := r.readJSON(cmd.String("file"), &req); err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	count, err := r.engine.IncrementalSync(ctx, cmd.Int64("user"), req)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Synced %q: %d tracks from %s\n", req.Name, count, req.Platform)
}

// SyncStatus prints the external account last imported for a platform.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	platform, err := requireArg(cmd, "platform")
	if err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	account, err := r.engine.ConnectedAccount(ctx, cmd.Int64("user"), platform)
	if err != nil {
		return err
	}
	return r.writePlain("%s: %s (last synced %s)\n",
		account.Platform, account.ExternalUserID, account.LastSyncedAt.Local().Format(time.RFC3339))
}
