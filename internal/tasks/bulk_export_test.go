package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/desertthunder/plmirror/internal/formatter"
	"github.com/desertthunder/plmirror/internal/shared"
	tu "github.com/desertthunder/plmirror/internal/testing"
)

func TestBulkExport(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) *PlaylistEngine {
		t.Helper()
		e, _ := newEngine(t, EngineOpts{})
		if _, err := e.ImportBatch(ctx, 1, importReq("Favorites", "t1", "t2")); err != nil {
			t.Fatalf("ImportBatch() error = %v", err)
		}
		if _, err := e.CreatePlaylist(ctx, 1, "Mine"); err != nil {
			t.Fatalf("CreatePlaylist() error = %v", err)
		}
		if _, err := e.CreatePlaylist(ctx, 2, "Not Mine"); err != nil {
			t.Fatalf("CreatePlaylist() error = %v", err)
		}
		return e
	}

	t.Run("exports every playlist of the user", func(t *testing.T) {
		tc := []struct {
			format string
			files  int
		}{
			{format: formatter.FormatJSON, files: 1},
			{format: formatter.FormatCSV, files: 2},
			{format: formatter.FormatMarkdown, files: 1},
			{format: formatter.FormatText, files: 1},
		}

		for _, tt := range tc {
			t.Run(tt.format, func(t *testing.T) {
				e := seed(t)
				dir := t.TempDir()

				result, err := e.BulkExport(ctx, nil, 1, BulkExportOpts{Format: tt.format, OutputDir: dir, RateLimit: 1000})
				if err != nil {
					t.Fatalf("BulkExport() error = %v", err)
				}
				if result.TotalPlaylists != 2 || result.SuccessfulExports != 2 || result.FailedExports != 0 {
					t.Errorf("unexpected result: %+v", result)
				}
				for _, res := range result.Results {
					if len(res.Files) != tt.files {
						t.Errorf("%s: expected %d files, got %v", res.PlaylistName, tt.files, res.Files)
					}
					for _, f := range res.Files {
						tu.AssertFileExists(t, f)
					}
				}

				if result.ManifestPath != filepath.Join(dir, "export_manifest.json") {
					t.Errorf("unexpected manifest path %q", result.ManifestPath)
				}
				tu.AssertFileExists(t, result.ManifestPath)
			})
		}
	})

	t.Run("filters by playlist id", func(t *testing.T) {
		e := seed(t)
		views, _ := e.ListPlaylists(ctx, 1)

		result, err := e.BulkExport(ctx, nil, 1, BulkExportOpts{
			OutputDir:   t.TempDir(),
			PlaylistIDs: []string{views[0].ID},
			RateLimit:   1000,
		})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.TotalPlaylists != 1 || result.Results[0].PlaylistID != views[0].ID {
			t.Errorf("expected only %s to be exported, got %+v", views[0].ID, result.Results)
		}
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		e := seed(t)

		_, err := e.BulkExport(ctx, nil, 1, BulkExportOpts{Format: "xml", OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("reports progress", func(t *testing.T) {
		e := seed(t)
		progress := make(chan ProgressUpdate, 20)

		if _, err := e.BulkExport(ctx, progress, 1, BulkExportOpts{OutputDir: t.TempDir(), RateLimit: 1000}); err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		close(progress)

		counts := map[Phase]int{}
		for u := range progress {
			counts[u.Phase]++
		}
		if counts[LoadPlaylists] != 1 {
			t.Errorf("expected 1 load update, got %d", counts[LoadPlaylists])
		}
		if counts[ExportPlaylist] != 4 {
			t.Errorf("expected 4 export updates, got %d", counts[ExportPlaylist])
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		e := seed(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := e.BulkExport(cctx, nil, 1, BulkExportOpts{OutputDir: t.TempDir()}); err == nil {
			t.Error("expected an error for a cancelled context")
		}
	})
}
