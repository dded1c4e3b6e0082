package testing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/repositories"
	"github.com/desertthunder/plmirror/internal/shared"
)

// MemoryStore is an in-memory [repositories.Store].
//
// Atomic works on a copy of the state and only publishes it when the function succeeds, so
// failures roll back exactly like the SQLite store.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState

	// FailOn makes the named gateway method return the mapped error.
	FailOn map[string]error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{FailOn: map[string]error{}}
	s.state = newMemState(s.failure)
	return s
}

func (s *MemoryStore) failure(op string) error {
	if err, ok := s.FailOn[op]; ok {
		return err
	}
	return nil
}

// Atomic implements [repositories.Store].
func (s *MemoryStore) Atomic(ctx context.Context, fn func(repositories.Gateway) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	draft := s.state.clone()
	if err := fn(draft); err != nil {
		return err
	}
	s.state = draft
	return nil
}

func (s *MemoryStore) FindPlaylist(ctx context.Context, userID int64, platform, externalID string) (*models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FindPlaylist(ctx, userID, platform, externalID)
}

func (s *MemoryStore) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetPlaylist(ctx, id)
}

func (s *MemoryStore) ListPlaylists(ctx context.Context, userID int64) ([]*models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListPlaylists(ctx, userID)
}

func (s *MemoryStore) CreatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreatePlaylist(ctx, playlist)
}

func (s *MemoryStore) RenamePlaylist(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RenamePlaylist(ctx, id, name)
}

func (s *MemoryStore) DeletePlaylist(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeletePlaylist(ctx, id)
}

func (s *MemoryStore) ListTracks(ctx context.Context, playlistID string) ([]*models.PlaylistTrack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListTracks(ctx, playlistID)
}

func (s *MemoryStore) InsertTrack(ctx context.Context, playlistID string, snapshot []byte, origin models.TrackOrigin) (*models.PlaylistTrack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InsertTrack(ctx, playlistID, snapshot, origin)
}

func (s *MemoryStore) DeleteTrack(ctx context.Context, playlistID, uid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteTrack(ctx, playlistID, uid)
}

func (s *MemoryStore) DeleteTracksByOrigin(ctx context.Context, playlistID string, origin models.TrackOrigin) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteTracksByOrigin(ctx, playlistID, origin)
}

func (s *MemoryStore) DeleteAllTracks(ctx context.Context, playlistID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteAllTracks(ctx, playlistID)
}

func (s *MemoryStore) UpsertConnectedAccount(ctx context.Context, userID int64, platform, externalUserID string, at time.Time) (*models.ConnectedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpsertConnectedAccount(ctx, userID, platform, externalUserID, at)
}

func (s *MemoryStore) GetConnectedAccount(ctx context.Context, userID int64, platform string) (*models.ConnectedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetConnectedAccount(ctx, userID, platform)
}

// TrackCount returns the number of stored rows in a playlist, optionally filtered by origin.
func (s *MemoryStore) TrackCount(playlistID string, origin models.TrackOrigin) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.state.tracks {
		if t.PlaylistID == playlistID && (origin == "" || t.Origin == origin) {
			n++
		}
	}
	return n
}

// memState is the store contents. It implements [repositories.Gateway] without locking.
type memState struct {
	fail      func(op string) error
	seqs      map[string]int
	playlists []*models.Playlist
	tracks    []*models.PlaylistTrack
	accounts  []*models.ConnectedAccount
}

func newMemState(fail func(string) error) *memState {
	return &memState{fail: fail, seqs: map[string]int{}}
}

func (m *memState) clone() *memState {
	out := &memState{fail: m.fail, seqs: make(map[string]int, len(m.seqs))}
	for k, v := range m.seqs {
		out.seqs[k] = v
	}
	for _, p := range m.playlists {
		cp := *p
		out.playlists = append(out.playlists, &cp)
	}
	for _, t := range m.tracks {
		cp := *t
		out.tracks = append(out.tracks, &cp)
	}
	for _, a := range m.accounts {
		cp := *a
		out.accounts = append(out.accounts, &cp)
	}
	return out
}

// Atomic lets code holding a transaction gateway nest units of work.
func (m *memState) Atomic(ctx context.Context, fn func(repositories.Gateway) error) error {
	return fn(m)
}

func (m *memState) next(table string) int {
	m.seqs[table]++
	return m.seqs[table]
}

func (m *memState) FindPlaylist(ctx context.Context, userID int64, platform, externalID string) (*models.Playlist, error) {
	if err := m.fail("FindPlaylist"); err != nil {
		return nil, err
	}
	for _, p := range m.playlists {
		if p.IsSynced() && p.UserID == userID && p.Platform == platform && p.PlatformPlaylistID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, shared.ErrPlaylistNotFound
}

func (m *memState) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	if err := m.fail("GetPlaylist"); err != nil {
		return nil, err
	}
	if p := m.playlist(id); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, shared.ErrPlaylistNotFound
}

func (m *memState) playlist(id string) *models.Playlist {
	for _, p := range m.playlists {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *memState) ListPlaylists(ctx context.Context, userID int64) ([]*models.Playlist, error) {
	if err := m.fail("ListPlaylists"); err != nil {
		return nil, err
	}
	out := []*models.Playlist{}
	for _, p := range m.playlists {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Playlist) int { return b.Sequence - a.Sequence })
	return out, nil
}

func (m *memState) CreatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	if err := m.fail("CreatePlaylist"); err != nil {
		return err
	}
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if playlist.IsSynced() {
		if _, err := m.FindPlaylist(ctx, playlist.UserID, playlist.Platform, playlist.PlatformPlaylistID); err == nil {
			return fmt.Errorf("%w: duplicate external identity", shared.ErrStorage)
		}
	}

	playlist.ID = shared.GenerateID()
	playlist.Sequence = m.next("playlists")
	cp := *playlist
	m.playlists = append(m.playlists, &cp)
	return nil
}

func (m *memState) RenamePlaylist(ctx context.Context, id, name string) error {
	if err := m.fail("RenamePlaylist"); err != nil {
		return err
	}
	p := m.playlist(id)
	if p == nil {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	p.Name = name
	return nil
}

func (m *memState) DeletePlaylist(ctx context.Context, id string) error {
	if err := m.fail("DeletePlaylist"); err != nil {
		return err
	}
	if m.playlist(id) == nil {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	m.playlists = slices.DeleteFunc(m.playlists, func(p *models.Playlist) bool { return p.ID == id })
	m.tracks = slices.DeleteFunc(m.tracks, func(t *models.PlaylistTrack) bool { return t.PlaylistID == id })
	return nil
}

func (m *memState) ListTracks(ctx context.Context, playlistID string) ([]*models.PlaylistTrack, error) {
	if err := m.fail("ListTracks"); err != nil {
		return nil, err
	}
	out := []*models.PlaylistTrack{}
	for _, t := range m.tracks {
		if t.PlaylistID == playlistID {
			cp := *t
			cp.Snapshot = t.Snapshot.Clone()
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memState) InsertTrack(ctx context.Context, playlistID string, snapshot []byte, origin models.TrackOrigin) (*models.PlaylistTrack, error) {
	if err := m.fail("InsertTrack"); err != nil {
		return nil, err
	}
	if !origin.Valid() {
		return nil, fmt.Errorf("%w: unknown track origin %q", shared.ErrValidation, origin)
	}
	if m.playlist(playlistID) == nil {
		return nil, fmt.Errorf("%w: playlist %s does not exist", shared.ErrStorage, playlistID)
	}

	track, err := models.DecodeTrack(snapshot)
	if err != nil {
		return nil, err
	}

	row := &models.PlaylistTrack{
		ID:         shared.GenerateID(),
		Sequence:   m.next("playlist_tracks"),
		PlaylistID: playlistID,
		Snapshot:   track,
		Origin:     origin,
		CreatedAt:  time.Now().UTC(),
	}
	m.tracks = append(m.tracks, row)

	cp := *row
	cp.Snapshot = track.Clone()
	return &cp, nil
}

func (m *memState) DeleteTrack(ctx context.Context, playlistID, uid string) (bool, error) {
	if err := m.fail("DeleteTrack"); err != nil {
		return false, err
	}
	n := m.deleteTracks(func(t *models.PlaylistTrack) bool { return t.PlaylistID == playlistID && t.ID == uid })
	return n > 0, nil
}

func (m *memState) DeleteTracksByOrigin(ctx context.Context, playlistID string, origin models.TrackOrigin) (int, error) {
	if err := m.fail("DeleteTracksByOrigin"); err != nil {
		return 0, err
	}
	return m.deleteTracks(func(t *models.PlaylistTrack) bool { return t.PlaylistID == playlistID && t.Origin == origin }), nil
}

func (m *memState) DeleteAllTracks(ctx context.Context, playlistID string) (int, error) {
	if err := m.fail("DeleteAllTracks"); err != nil {
		return 0, err
	}
	return m.deleteTracks(func(t *models.PlaylistTrack) bool { return t.PlaylistID == playlistID }), nil
}

func (m *memState) deleteTracks(match func(*models.PlaylistTrack) bool) int {
	before := len(m.tracks)
	m.tracks = slices.DeleteFunc(m.tracks, match)
	return before - len(m.tracks)
}

func (m *memState) UpsertConnectedAccount(ctx context.Context, userID int64, platform, externalUserID string, at time.Time) (*models.ConnectedAccount, error) {
	if err := m.fail("UpsertConnectedAccount"); err != nil {
		return nil, err
	}
	for _, a := range m.accounts {
		if a.UserID == userID && a.Platform == platform {
			a.ExternalUserID = externalUserID
			a.LastSyncedAt = at
			cp := *a
			return &cp, nil
		}
	}
	a := &models.ConnectedAccount{
		ID:             shared.GenerateID(),
		UserID:         userID,
		Platform:       platform,
		ExternalUserID: externalUserID,
		LastSyncedAt:   at,
	}
	m.accounts = append(m.accounts, a)
	cp := *a
	return &cp, nil
}

func (m *memState) GetConnectedAccount(ctx context.Context, userID int64, platform string) (*models.ConnectedAccount, error) {
	if err := m.fail("GetConnectedAccount"); err != nil {
		return nil, err
	}
	for _, a := range m.accounts {
		if a.UserID == userID && a.Platform == platform {
			cp := *a
			return &cp, nil
		}
	}
	return nil, shared.ErrAccountNotFound
}

var (
	_ repositories.Store = (*MemoryStore)(nil)
	_ repositories.Store = (*memState)(nil)
)
