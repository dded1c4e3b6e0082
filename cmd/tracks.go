package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/shared"
)

// trackList accepts either a single track object or an array of them.
type trackList []models.Track

func (l *trackList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var t models.Track
		if err := decodeNumbers(data, &t); err != nil {
			return err
		}
		*l = trackList{t}
		return nil
	}

	var tracks []models.Track
	if err := decodeNumbers(data, &tracks); err != nil {
		return err
	}
	*l = tracks
	return nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// AddTracks adds hand-picked tracks to a playlist. Tracks already present are skipped.
func (r *Runner) AddTracks(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}

	var tracks trackList
	if err := r.readJSON(cmd.String("file"), &tracks); err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("%w: no tracks in %s", shared.ErrInvalidInput, cmd.String("file"))
	}

	if err := r.open(ctx); err != nil {
		return err
	}

	added, err := r.engine.AddTracks(ctx, cmd.Int64("user"), playlistID, tracks)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Added %d of %d tracks\n", added, len(tracks))
}

// RemoveTracks removes tracks from a playlist by uid.
func (r *Runner) RemoveTracks(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	uids := cmd.StringSlice("uid")
	removed, err := r.engine.RemoveTracks(ctx, cmd.Int64("user"), playlistID, uids)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Removed %d of %d tracks\n", removed, len(uids))
}
