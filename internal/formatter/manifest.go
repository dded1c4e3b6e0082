package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/plmirror/internal/shared"
)

// PlaylistExportResult is the outcome of exporting one playlist
type PlaylistExportResult struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Success      bool     `json:"success"`
	Files        []string `json:"files,omitempty"`
	Error        error    `json:"-"`
}

// BulkExportResult summarizes a bulk export run
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult
}

type manifestEntry struct {
	PlaylistExportResult
	Error string `json:"error,omitempty"`
}

type manifest struct {
	ExportedAt time.Time       `json:"exported_at"`
	Format     string          `json:"format"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Playlists  []manifestEntry `json:"playlists"`
}

// WriteBulkExportManifest writes a JSON summary of a bulk export to path
func WriteBulkExportManifest(result *BulkExportResult, format, path string) error {
	m := manifest{
		ExportedAt: time.Now().UTC(),
		Format:     format,
		Total:      result.TotalPlaylists,
		Successful: result.SuccessfulExports,
		Failed:     result.FailedExports,
		Playlists:  make([]manifestEntry, 0, len(result.Results)),
	}

	for _, r := range result.Results {
		entry := manifestEntry{PlaylistExportResult: r}
		if r.Error != nil {
			entry.Error = r.Error.Error()
		}
		m.Playlists = append(m.Playlists, entry)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
