// Package server exposes the playlist engine over a JSON HTTP API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] with method-qualified patterns
// ("GET /api/playlists/{id}").
//
// # Middleware
//
//   - [RequestLogger] logs method, path, status and duration for every request
//   - [Recoverer] turns handler panics into 500 responses
//   - [RateLimit] throttles each client address with a token bucket
//   - [RequireUser] extracts the numeric user id from "Authorization: Bearer <id>"
//
// CORS is applied around the whole router so preflight requests are answered before routing.
//
// # Routes
//
//	GET    /api/health
//	GET    /api/playlists
//	POST   /api/playlists
//	GET    /api/playlists/{id}
//	PUT    /api/playlists/{id}
//	DELETE /api/playlists/{id}
//	POST   /api/playlists/{id}/songs
//	DELETE /api/playlists/{id}/songs
//	DELETE /api/playlists/{id}/songs/batch
//	POST   /api/playlists/batch-songs
//	POST   /api/playlists/sync
//	POST   /api/sync/import
//	GET    /api/sync/accounts/{platform}
//
// Errors are written as {"error": message}. Sentinel errors from [shared] map to status codes:
// validation 400, identity 401, ownership 403, not found 404, duplicate track 409, storage 500.
//
// Mutations on a playlist the ownership policy silently ignores answer 200 with "success": false.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
