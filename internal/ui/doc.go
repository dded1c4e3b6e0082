// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI browses the stored library of one user:
//  1. [PlaylistListView] : Browse playlists, local and synced
//  2. [TrackListView] : Inspect tracks, marked manual or synced
//  3. [ConfirmView] : Confirm deleting a playlist or removing a track
//  4. [ExportView] : Monitor real-time progress of a library export
//  5. [ResultView] : Display the outcome of the last action
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the PlaylistEngine, providing non-blocking status reporting during exports.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
