package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolvePlaylist Phase = iota
	ReplaceTracks
	ImportComplete
	LoadPlaylists
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case ResolvePlaylist:
		return "resolve_playlist"
	case ReplaceTracks:
		return "replace_tracks"
	case ImportComplete:
		return "import_complete"
	case LoadPlaylists:
		return "load_playlists"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func resolvePlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Resolving %s...", step, total, name),
	}
}

func replaceTracksUpdate(step, total int, name string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReplaceTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, name, tracks),
		Data:    tracks,
	}
}

func importCompleteUpdate(total, imported int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportComplete,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Imported %d of %d playlists", imported, total),
		Data:    imported,
	}
}

func loadPlaylistsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d playlists from the library", count),
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
