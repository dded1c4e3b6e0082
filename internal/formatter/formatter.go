// package formatter exports stored playlists to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/shared"
)

// Supported export formats
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// ValidFormat reports whether format is one of the supported export formats
func ValidFormat(format string) bool {
	switch format {
	case FormatJSON, FormatCSV, FormatMarkdown, FormatText:
		return true
	default:
		return false
	}
}

// originLabel is "manual" for hand-added tracks and "synced" otherwise
func originLabel(t models.TrackView) string {
	if manual, _ := t["is_local_add"].(bool); manual {
		return string(models.TrackManual)
	}
	return string(models.TrackSynced)
}

func field(t models.TrackView, key string) string {
	switch v := t[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return models.Track{"id": v}.PlatformID()
	}
}

// ExportToCSV converts a PlaylistView to CSV format with columns: UID, ID, Title, Artist, Album, Origin
func ExportToCSV(view *models.PlaylistView) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"UID", "ID", "Title", "Artist", "Album", "Origin"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range view.Tracks {
		snapshot := models.Track(track)
		record := []string{
			field(track, "uid"),
			snapshot.PlatformID(),
			snapshot.Title(),
			snapshot.Artist(),
			field(track, "album"),
			originLabel(track),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistView to Markdown format
func ExportToMarkdown(view *models.PlaylistView) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", view.Name)

	if view.IsSync {
		fmt.Fprintf(&buf, "**Source**: %s (%s)\n", view.Platform, view.ExternalID)
	} else {
		buf.WriteString("**Source**: local\n")
	}

	synced := view.SyncedCount()
	fmt.Fprintf(&buf, "**Tracks**: %d (%d synced, %d manual)\n\n", len(view.Tracks), synced, len(view.Tracks)-synced)

	buf.WriteString("## Tracks\n\n")
	for i, track := range view.Tracks {
		snapshot := models.Track(track)
		marker := ""
		if originLabel(track) == string(models.TrackManual) {
			marker = " *(added)*"
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s\n", i+1, snapshot.Artist(), snapshot.Title(), marker)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistView to plain text format
func ExportToText(view *models.PlaylistView) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", view.Name)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(view.Tracks))

	for i, track := range view.Tracks {
		snapshot := models.Track(track)
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, snapshot.Artist(), snapshot.Title())
	}

	return buf.Bytes(), nil
}

// PlaylistMetadata is the track-less header written next to CSV exports
type PlaylistMetadata struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsSync     bool   `json:"is_sync"`
	Platform   string `json:"platform"`
	ExternalID string `json:"external_id,omitempty"`
	TrackCount int    `json:"track_count"`
	Synced     int    `json:"synced_count"`
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(view *models.PlaylistView) ([]byte, error) {
	return shared.MarshalJSON(PlaylistMetadata{
		ID:         view.ID,
		Name:       view.Name,
		IsSync:     view.IsSync,
		Platform:   view.Platform,
		ExternalID: view.ExternalID,
		TrackCount: len(view.Tracks),
		Synced:     view.SyncedCount(),
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(view *models.PlaylistView, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = view.ID
	}

	csvData, err := ExportToCSV(view)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(view)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{TracksFile: tracksFile, MetadataFile: metadataFile}, nil
}

// WriteMarkdownExport exports a playlist to {dir}/README.md.
//
// Directory name defaults to the playlist ID.
func WriteMarkdownExport(view *models.PlaylistView, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = view.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(view)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(view *models.PlaylistView, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", view.ID)
	}

	textData, err := ExportToText(view)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the full playlist view, tracks included, as indented JSON
func WriteJSONExport(view *models.PlaylistView, path string) (string, error) {
	if path == "" {
		path = view.ID + ".json"
	}

	data, err := shared.MarshalJSON(view, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// Export writes view into dir using format and returns the files created
func Export(view *models.PlaylistView, format, dir string) ([]string, error) {
	switch format {
	case FormatCSV:
		res, err := WriteCSVExport(view, filepath.Join(dir, view.ID))
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.TracksFile, res.MetadataFile}, nil
	case FormatMarkdown:
		file, err := WriteMarkdownExport(view, filepath.Join(dir, view.ID))
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return []string{file}, nil
	case FormatText:
		file, err := WriteTextExport(view, filepath.Join(dir, view.ID+"_tracks.txt"))
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{file}, nil
	case FormatJSON, "":
		file, err := WriteJSONExport(view, filepath.Join(dir, view.ID+".json"))
		if err != nil {
			return nil, err
		}
		return []string{file}, nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}
