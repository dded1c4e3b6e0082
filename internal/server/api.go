package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/shared"
)

// PlaylistAPI serves the playlist and sync endpoints.
type PlaylistAPI struct {
	engine Engine
	logger *log.Logger
}

// NewPlaylistAPI creates a PlaylistAPI over engine.
func NewPlaylistAPI(engine Engine, logger *log.Logger) *PlaylistAPI {
	return &PlaylistAPI{engine: engine, logger: logger}
}

// authed is a handler that runs after [RequireUser] with the caller's user id.
type authed func(w http.ResponseWriter, r *http.Request, userID int64)

func (a *PlaylistAPI) wrap(h authed) http.Handler {
	return RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserID(r.Context())
		h(w, r, userID)
	}))
}

// Register adds every playlist and sync route to r.
func (a *PlaylistAPI) Register(r Router) {
	r.Handle(http.MethodGet, "/api/playlists", a.wrap(a.listPlaylists))
	r.Handle(http.MethodPost, "/api/playlists", a.wrap(a.createPlaylist))
	r.Handle(http.MethodGet, "/api/playlists/{id}", a.wrap(a.getPlaylist))
	r.Handle(http.MethodPut, "/api/playlists/{id}", a.wrap(a.renamePlaylist))
	r.Handle(http.MethodDelete, "/api/playlists/{id}", a.wrap(a.deletePlaylist))
	r.Handle(http.MethodPost, "/api/playlists/{id}/songs", a.wrap(a.addSong))
	r.Handle(http.MethodDelete, "/api/playlists/{id}/songs", a.wrap(a.removeSong))
	r.Handle(http.MethodDelete, "/api/playlists/{id}/songs/batch", a.wrap(a.removeSongs))
	r.Handle(http.MethodPost, "/api/playlists/batch-songs", a.wrap(a.addSongs))
	r.Handle(http.MethodPost, "/api/playlists/sync", a.wrap(a.syncPlaylist))
	r.Handle(http.MethodPost, "/api/sync/import", a.wrap(a.importPlaylists))
	r.Handle(http.MethodGet, "/api/sync/accounts/{platform}", a.wrap(a.connectedAccount))
}

type nameBody struct {
	Name string `json:"name"`
}

type uidBody struct {
	UID models.FlexID `json:"uid"`
}

type uidsBody struct {
	UIDs []models.FlexID `json:"uids"`
}

type batchSongsBody struct {
	PlaylistID models.FlexID         `json:"playlistId"`
	Songs      []models.Track `json:"songs"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type addSongResponse struct {
	Success bool   `json:"success"`
	UID     string `json:"uid,omitempty"`
}

type countResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

type importResponse struct {
	Success       bool `json:"success"`
	ImportedCount int  `json:"importedCount"`
}

type createdPlaylistResponse struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Tracks []models.TrackView `json:"tracks"`
}

func (a *PlaylistAPI) listPlaylists(w http.ResponseWriter, r *http.Request, userID int64) {
	views, err := a.engine.ListPlaylists(r.Context(), userID)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *PlaylistAPI) getPlaylist(w http.ResponseWriter, r *http.Request, userID int64) {
	view, err := a.engine.GetPlaylist(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *PlaylistAPI) createPlaylist(w http.ResponseWriter, r *http.Request, userID int64) {
	var body nameBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, r, err)
		return
	}

	p, err := a.engine.CreatePlaylist(r.Context(), userID, body.Name)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createdPlaylistResponse{ID: p.ID, Name: p.Name, Tracks: []models.TrackView{}})
}

func (a *PlaylistAPI) renamePlaylist(w http.ResponseWriter, r *http.Request, userID int64) {
	var body nameBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, r, err)
		return
	}

	ok, err := a.engine.RenamePlaylist(r.Context(), userID, r.PathValue("id"), body.Name)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: ok})
}

func (a *PlaylistAPI) deletePlaylist(w http.ResponseWriter, r *http.Request, userID int64) {
	ok, err := a.engine.DeletePlaylist(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: ok})
}

func (a *PlaylistAPI) addSong(w http.ResponseWriter, r *http.Request, userID int64) {
	var track models.Track
	if err := decodeJSON(w, r, &track); err != nil {
		writeError(w, a.logger, r, err)
		return
	}

	row, err := a.engine.AddTrack(r.Context(), userID, r.PathValue("id"), track)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	if row == nil {
		writeJSON(w, http.StatusOK, addSongResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, addSongResponse{Success: true, UID: row.ID})
}

func (a *PlaylistAPI) removeSong(w http.ResponseWriter, r *http.Request, userID int64) {
	var body uidBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	if strings.TrimSpace(string(body.UID)) == "" {
		writeError(w, a.logger, r, fmt.Errorf("%w: uid", shared.ErrMissingArgument))
		return
	}

	ok, err := a.engine.RemoveTrack(r.Context(), userID, r.PathValue("id"), string(body.UID))
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: ok})
}

func (a *PlaylistAPI) removeSongs(w http.ResponseWriter, r *http.Request, userID int64) {
	var body uidsBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, r, err)
		return
	}

	uids := make([]string, 0, len(body.UIDs))
	for _, uid := range body.UIDs {
		if uid != "" {
			uids = append(uids, string(uid))
		}
	}

	n, err := a.engine.RemoveTracks(r.Context(), userID, r.PathValue("id"), uids)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Success: true, Count: n})
}

func (a *PlaylistAPI) addSongs(w http.ResponseWriter, r *http.Request, userID int64) {
	var body batchSongsBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	if body.PlaylistID == "" {
		writeError(w, a.logger, r, fmt.Errorf("%w: playlistId", shared.ErrMissingArgument))
		return
	}

	n, err := a.engine.AddTracks(r.Context(), userID, string(body.PlaylistID), body.Songs)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Success: true, Count: n})
}

func (a *PlaylistAPI) syncPlaylist(w http.ResponseWriter, r *http.Request, userID int64) {
	var req models.SyncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, a.logger, r, err)
		return
	}

	n, err := a.engine.IncrementalSync(r.Context(), userID, req)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Success: true, Count: n})
}

func (a *PlaylistAPI) importPlaylists(w http.ResponseWriter, r *http.Request, userID int64) {
	var req models.ImportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, a.logger, r, err)
		return
	}

	n, err := a.engine.ImportBatch(r.Context(), userID, req)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Success: true, ImportedCount: n})
}

func (a *PlaylistAPI) connectedAccount(w http.ResponseWriter, r *http.Request, userID int64) {
	account, err := a.engine.ConnectedAccount(r.Context(), userID, r.PathValue("platform"))
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"platform":       account.Platform,
		"externalUserId": account.ExternalUserID,
		"lastSyncedAt":   account.LastSyncedAt,
	})
}
