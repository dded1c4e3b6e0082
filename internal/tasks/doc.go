// Package tasks reconciles externally fetched playlists with the user's stored library.
//
// # Core Operations
//
// [PlaylistEngine] exposes four reconciliation operations:
//
//  1. [PlaylistEngine.CreatePlaylist] : creates an empty local playlist
//
//  2. [PlaylistEngine.ImportBatch] : full re-import of a platform account
//     - Upserts the connected account for the platform
//     - Finds or creates each playlist by external identity, naming new ones with the platform prefix
//     - Replaces ALL tracks of a playlist that arrives with tracks, manual additions included
//
//  3. [PlaylistEngine.IncrementalSync] : refresh of one synced playlist
//     - Finds or creates the playlist and renames it when the incoming name differs
//     - Replaces only the synced tracks, manual additions are never touched
//
//  4. [PlaylistEngine.RenamePlaylist] / [PlaylistEngine.DeletePlaylist] : owner-checked mutations
//
// Manual membership ([PlaylistEngine.AddTrack], [PlaylistEngine.RemoveTrack]) and library reads
// round out the surface used by the HTTP server, CLI and TUI.
//
// # Consistency
//
// Every operation runs in one [repositories.Store.Atomic] unit while holding a [locks.Locker] key
// for each playlist it touches, so readers never see a playlist mid-replacement and concurrent syncs
// of the same playlist are serialized (last writer wins).
//
// # Policies
//
// [sanitize.Policy] decides whether import and sync strip play urls and lyric links before storage.
// [OwnershipPolicy] decides whether acting on another user's playlist is a silent no-op
// ([SilentOwnership], the default) or an error ([StrictOwnership]).
//
// # Progress Reporting
//
// ImportBatch and [PlaylistEngine.BulkExport] accept an optional channel of [ProgressUpdate].
// Updates use select with default to prevent blocking.
package tasks
