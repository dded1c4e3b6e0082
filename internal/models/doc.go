// Package models defines the domain entities and request payloads of the playlist mirror.
//
// The package contains two categories of types:
//
// 1. Persistent entities, stored through the repositories package
//   - [Playlist] : a user's playlist, either local or synced from a platform
//   - [PlaylistTrack] : one membership row holding a track snapshot and its origin
//   - [ConnectedAccount] : the external account a user last synced a platform with
//
// 2. Transport payloads, decoded from HTTP or CLI input
//   - [Track] : an opaque track record fetched from a platform
//   - [ImportRequest] / [ImportPlaylist] : a batch of playlists for full re-import
//   - [SyncRequest] : a single playlist refresh
//   - [PlaylistView] / [TrackView] : what callers read back
//
// Origins drive reconciliation: synced playlists are found again by their external identity
// (user, platform, platform playlist id), and synced tracks are replaced wholesale on every
// sync while manual tracks are left alone.
package models
