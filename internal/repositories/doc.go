// Package repositories implements the storage gateway for playlists, their track
// membership rows, and connected platform accounts.
//
// The [Gateway] interface is what the reconciliation engine talks to. [SQLiteStore] implements it
// with hand-written SQL against the schema in internal/shared/sql, and [SQLiteStore.Atomic] runs a
// function against a gateway bound to a single transaction so a whole import or sync commits or
// rolls back together.
//
// Key Implementations:
//   - [PlaylistRepository] : playlists, including find-by-external-identity for synced playlists
//   - [PlaylistTrackRepository] : track snapshots in insertion order, tagged manual or synced
//   - [ConnectedAccountRepository] : find-or-update of the external account per user and platform
//
// Sequence numbers provide stable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function increments per-table counters in dedicated sequence tables, on the
// caller's transaction.
package repositories
