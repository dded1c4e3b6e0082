package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/shared"
	"github.com/desertthunder/plmirror/internal/tasks"
)

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.StringArg(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

func playlistKind(v models.PlaylistView) string {
	if v.IsSync {
		return v.Platform
	}
	return "local"
}

// ListPlaylists prints the user's library, newest first.
func (r *Runner) ListPlaylists(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	views, err := r.engine.ListPlaylists(ctx, cmd.Int64("user"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(views) == 0 {
		return r.writePlain("No playlists.\n")
	}
	for _, v := range views {
		r.writePlain("%s  %-8s  %3d tracks  %s\n", v.ID, playlistKind(v), len(v.Tracks), v.Name)
	}
	return nil
}

// ShowPlaylist prints one playlist with its tracks.
func (r *Runner) ShowPlaylist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	view, err := r.engine.GetPlaylist(ctx, cmd.Int64("user"), id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(view, cmd.Bool("pretty"))
	}

	r.writePlainHeader(view.Name)
	r.writePlain("Source: %s", playlistKind(*view))
	if view.IsSync {
		r.writePlain(" (%s)", view.ExternalID)
	}
	r.writePlain("\nTracks: %d (%d synced)\n\n", len(view.Tracks), view.SyncedCount())

	for i, t := range view.Tracks {
		snapshot := models.Track(t)
		marker := ""
		if manual, _ := t["is_local_add"].(bool); manual {
			marker = " [added]"
		}
		r.writePlain("%3d. %s - %s  (%v)%s\n", i+1, snapshot.Artist(), snapshot.Title(), t["uid"], marker)
	}
	return nil
}

// CreatePlaylist creates a local playlist and prints its id.
func (r *Runner) CreatePlaylist(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	p, err := r.engine.CreatePlaylist(ctx, cmd.Int64("user"), name)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created %q (%s)\n", p.Name, p.ID)
}

// RenamePlaylist renames a playlist.
func (r *Runner) RenamePlaylist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	ok, err := r.engine.RenamePlaylist(ctx, cmd.Int64("user"), id, name)
	if err != nil {
		return err
	}
	if !ok {
		return r.writePlain("Nothing renamed.\n")
	}
	return r.writePlain("✓ Renamed %s to %q\n", id, name)
}

// DeletePlaylist removes a playlist and its tracks.
func (r *Runner) DeletePlaylist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	ok, err := r.engine.DeletePlaylist(ctx, cmd.Int64("user"), id)
	if err != nil {
		return err
	}
	if !ok {
		return r.writePlain("Nothing deleted.\n")
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// ExportPlaylists writes the library to files, printing progress as playlists complete.
func (r *Runner) ExportPlaylists(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	opts := tasks.BulkExportOpts{
		Format:      cmd.String("format"),
		OutputDir:   cmd.String("output"),
		PlaylistIDs: cmd.StringSlice("id"),
		NumWorkers:  cmd.Int("workers"),
		RateLimit:   cmd.Float("rate"),
	}

	progress := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	result, err := r.engine.BulkExport(ctx, progress, cmd.Int64("user"), opts)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("✓ Exported %d/%d playlists to %s", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	if result.FailedExports > 0 {
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  ✗ %s: %v\n", res.PlaylistName, res.Error)
			}
		}
	}
	return r.writePlain("Manifest: %s\n", result.ManifestPath)
}
