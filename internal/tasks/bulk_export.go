package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/plmirror/internal/formatter"
	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/shared"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format      string   // Export format: json, csv, markdown, txt
	OutputDir   string   // Base output directory (default: plmirror_export_{epoch})
	PlaylistIDs []string // Playlists to export (default: the whole library)
	NumWorkers  int      // Concurrent workers (default: 5, max: 10)
	RateLimit   float64  // Playlists written per second (default: 20)
}

// BulkExport exports a user's stored playlists concurrently with rate limiting and progress tracking.
//
// This method implements a worker pool pattern over the user's library. It handles partial failures
// gracefully and generates a manifest file summarizing the export results.
func (e *PlaylistEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	userID int64,
	opts BulkExportOpts,
) (*formatter.BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if !formatter.ValidFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("plmirror_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20.0
	}

	views, err := e.ListPlaylists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlists: %w", err)
	}
	if len(opts.PlaylistIDs) > 0 {
		views = slices.DeleteFunc(views, func(v models.PlaylistView) bool {
			return !slices.Contains(opts.PlaylistIDs, v.ID)
		})
	}
	e.sendProgress(prog, loadPlaylistsUpdate(len(views)))

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &formatter.BulkExportResult{
		TotalPlaylists:  len(views),
		OutputDirectory: opts.OutputDir,
		Results:         make([]formatter.PlaylistExportResult, 0, len(views)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan *models.PlaylistView, len(views))
	results := make(chan formatter.PlaylistExportResult, len(views))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i := range views {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(views), views[i].Name))
			jobs <- &views[i]
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(views), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(views), res.PlaylistName, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("exported playlists", "user", userID, "format", opts.Format,
		"succeeded", result.SuccessfulExports, "failed", result.FailedExports)
	return result, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func (e *PlaylistEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan *models.PlaylistView,
	results chan<- formatter.PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for view := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res := formatter.PlaylistExportResult{
			PlaylistID:   view.ID,
			PlaylistName: view.Name,
			Files:        []string{},
		}

		files, err := formatter.Export(view, opts.Format, opts.OutputDir)
		if err != nil {
			res.Error = err
		} else {
			res.Files = files
			res.Success = true
		}
		results <- res
	}
}
