// package server contains middleware & handlers for the playlist mirror web service
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/handlers"

	"github.com/desertthunder/plmirror/internal/models"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the playlist mirror service.
// Implementations handle specific endpoints (health, playlist operations, sync).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the method-qualified patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Engine is the subset of the playlist engine the API serves.
type Engine interface {
	ListPlaylists(ctx context.Context, userID int64) ([]models.PlaylistView, error)
	GetPlaylist(ctx context.Context, userID int64, playlistID string) (*models.PlaylistView, error)
	CreatePlaylist(ctx context.Context, userID int64, name string) (*models.Playlist, error)
	RenamePlaylist(ctx context.Context, userID int64, playlistID, name string) (bool, error)
	DeletePlaylist(ctx context.Context, userID int64, playlistID string) (bool, error)
	AddTrack(ctx context.Context, userID int64, playlistID string, track models.Track) (*models.PlaylistTrack, error)
	AddTracks(ctx context.Context, userID int64, playlistID string, tracks []models.Track) (int, error)
	RemoveTrack(ctx context.Context, userID int64, playlistID, uid string) (bool, error)
	RemoveTracks(ctx context.Context, userID int64, playlistID string, uids []string) (int, error)
	IncrementalSync(ctx context.Context, userID int64, req models.SyncRequest) (int, error)
	ImportBatch(ctx context.Context, userID int64, req models.ImportRequest) (int, error)
	ConnectedAccount(ctx context.Context, userID int64, platform string) (*models.ConnectedAccount, error)
}

// Opts configures a [Server].
type Opts struct {
	Addr           string
	Logger         *log.Logger
	RateLimit      float64  // Requests per second per client; zero disables limiting
	RateBurst      int      // Bucket size, at least 1
	AllowedOrigins []string // Defaults to "*"
}

// Server serves the playlist API.
type Server struct {
	logger  *log.Logger
	router  *BasicRouter
	handler http.Handler
	http    *http.Server
}

// New creates a Server with every API route registered.
func New(engine Engine, opts Opts) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	router := NewBasicRouter()
	router.Use(RequestLogger(logger), Recoverer(logger))
	if opts.RateLimit > 0 {
		router.Use(RateLimit(opts.RateLimit, opts.RateBurst))
	}

	router.Handler(HealthHandler{})
	NewPlaylistAPI(engine, logger).Register(router)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	s := &Server{logger: logger, router: router, handler: cors(router)}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully,
// giving in-flight requests up to ten seconds to finish.
func (s *Server) ListenAndServe(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		err := s.http.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
