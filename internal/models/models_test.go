package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/desertthunder/plmirror/internal/shared"
)

func TestPlaylistValidate(t *testing.T) {
	now := time.Now()

	tt := []struct {
		name     string
		playlist *Playlist
		wantErr  bool
	}{
		{name: "local", playlist: NewLocalPlaylist(1, "Mine", now)},
		{name: "synced", playlist: NewSyncedPlaylist(1, "netease", "p1", "网易:Mine", now)},
		{name: "missing user", playlist: NewLocalPlaylist(0, "Mine", now), wantErr: true},
		{name: "synced without external id", playlist: NewSyncedPlaylist(1, "netease", "", "x", now), wantErr: true},
		{name: "unknown origin", playlist: &Playlist{UserID: 1, Origin: "imported"}, wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.playlist.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestPlaylistOwnership(t *testing.T) {
	p := NewLocalPlaylist(1, "Mine", time.Now())
	if !p.OwnedBy(1) {
		t.Error("expected user 1 to own the playlist")
	}
	if p.OwnedBy(2) {
		t.Error("expected user 2 not to own the playlist")
	}

	var missing *Playlist
	if missing.OwnedBy(1) {
		t.Error("nil playlist should not be owned by anyone")
	}
}

func TestTrack(t *testing.T) {
	t.Run("PlatformID", func(t *testing.T) {
		tc := []struct {
			name  string
			track Track
			want  string
		}{
			{name: "string id", track: Track{"id": "abc"}, want: "abc"},
			{name: "json number id", track: Track{"id": float64(12345)}, want: "12345"},
			{name: "missing id", track: Track{}, want: ""},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := tt.track.PlatformID(); got != tt.want {
					t.Errorf("PlatformID() = %q, want %q", got, tt.want)
				}
			})
		}
	})

	t.Run("Clone is independent", func(t *testing.T) {
		orig := Track{"id": "1", "url": "http://x"}
		clone := orig.Clone()
		delete(clone, "url")

		if _, ok := orig["url"]; !ok {
			t.Error("deleting from clone should not affect the original")
		}
	})

	t.Run("Encode and Decode", func(t *testing.T) {
		data, err := EncodeTrack(Track{"id": "1", "name": "Song"})
		if err != nil {
			t.Fatalf("EncodeTrack() error = %v", err)
		}

		track, err := DecodeTrack(data)
		if err != nil {
			t.Fatalf("DecodeTrack() error = %v", err)
		}
		if track.Title() != "Song" {
			t.Errorf("expected title Song, got %q", track.Title())
		}
	})

	t.Run("Decode keeps large numeric ids", func(t *testing.T) {
		track, err := DecodeTrack([]byte(`{"id": 9007199254740993}`))
		if err != nil {
			t.Fatalf("DecodeTrack() error = %v", err)
		}
		if got := track.PlatformID(); got != "9007199254740993" {
			t.Errorf("PlatformID() = %q, want 9007199254740993", got)
		}
	})

	t.Run("Encode unsupported value", func(t *testing.T) {
		_, err := EncodeTrack(Track{"id": "1", "score": math.Inf(1)})
		if !errors.Is(err, shared.ErrSerialization) {
			t.Errorf("expected ErrSerialization, got %v", err)
		}
	})

	t.Run("Decode garbage", func(t *testing.T) {
		_, err := DecodeTrack([]byte("{not json"))
		if !errors.Is(err, shared.ErrSerialization) {
			t.Errorf("expected ErrSerialization, got %v", err)
		}
	})
}

func TestNewPlaylistView(t *testing.T) {
	p := NewSyncedPlaylist(1, "qq", "p9", "QQ:Road", time.Now())
	p.ID = "pl-1"

	tracks := []*PlaylistTrack{
		{ID: "m1", Snapshot: Track{"id": "t1"}, Origin: TrackManual},
		{ID: "s1", Snapshot: Track{"id": "t2"}, Origin: TrackSynced},
		{ID: "s2", Snapshot: Track{"id": "t3"}, Origin: TrackSynced},
	}

	view := NewPlaylistView(p, tracks)

	if !view.IsSync || view.ExternalID != "p9" {
		t.Errorf("unexpected view header: %+v", view)
	}
	if len(view.Tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(view.Tracks))
	}
	if view.Tracks[0]["uid"] != "m1" || view.Tracks[0]["is_local_add"] != true {
		t.Errorf("unexpected manual track view: %v", view.Tracks[0])
	}
	if view.SyncedCount() != 2 {
		t.Errorf("expected 2 synced tracks, got %d", view.SyncedCount())
	}
	if _, ok := tracks[0].Snapshot["uid"]; ok {
		t.Error("building a view should not mutate the snapshot")
	}
}

func TestRequestValidation(t *testing.T) {
	t.Run("ImportRequest", func(t *testing.T) {
		tc := []struct {
			name    string
			req     ImportRequest
			wantErr bool
		}{
			{name: "valid", req: ImportRequest{Platform: "netease", ExternalUserID: "u1", Playlists: []ImportPlaylist{{ID: "p1"}}}},
			{name: "legacy id", req: ImportRequest{Platform: "netease", LegacyID: "u1", Playlists: []ImportPlaylist{}}},
			{name: "missing platform", req: ImportRequest{ExternalUserID: "u1", Playlists: []ImportPlaylist{}}, wantErr: true},
			{name: "missing account", req: ImportRequest{Platform: "qq", Playlists: []ImportPlaylist{}}, wantErr: true},
			{name: "missing playlists", req: ImportRequest{Platform: "qq", ExternalUserID: "u1"}, wantErr: true},
			{name: "playlist without id", req: ImportRequest{Platform: "qq", ExternalUserID: "u1", Playlists: []ImportPlaylist{{Name: "x"}}}, wantErr: true},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.req.Validate()
				if (err != nil) != tt.wantErr {
					t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
				if err != nil && !errors.Is(err, shared.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
			})
		}
	})

	t.Run("SyncRequest", func(t *testing.T) {
		tc := []struct {
			name    string
			req     SyncRequest
			wantErr bool
		}{
			{name: "valid", req: SyncRequest{Platform: "kuwo", ExternalID: "p1", Name: "Mix", Songs: []Track{}}},
			{name: "missing platform", req: SyncRequest{ExternalID: "p1", Name: "Mix", Songs: []Track{}}, wantErr: true},
			{name: "missing external id", req: SyncRequest{Platform: "kuwo", Name: "Mix", Songs: []Track{}}, wantErr: true},
			{name: "missing name", req: SyncRequest{Platform: "kuwo", ExternalID: "p1", Songs: []Track{}}, wantErr: true},
			{name: "missing songs", req: SyncRequest{Platform: "kuwo", ExternalID: "p1", Name: "Mix"}, wantErr: true},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.req.Validate()
				if (err != nil) != tt.wantErr {
					t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})
}

func TestFlexID(t *testing.T) {
	tc := []struct {
		name    string
		input   string
		want    FlexID
		wantErr bool
	}{
		{name: "string", input: `"p1"`, want: "p1"},
		{name: "integer", input: `12345`, want: "12345"},
		{name: "large integer", input: `9007199254740993`, want: "9007199254740993"},
		{name: "fraction", input: `1.5`, wantErr: true},
		{name: "object", input: `{}`, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			var got FlexID
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestDecoding(t *testing.T) {
	t.Run("ImportRequest with numeric ids", func(t *testing.T) {
		var req ImportRequest
		data := `{"platform": "netease", "id": 778899, "playlists": [
			{"id": 12345, "name": "Fav", "tracks": [{"id": 9007199254740993, "name": "A"}]}
		]}`
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}

		if req.Platform != "netease" || req.AccountID() != "778899" {
			t.Errorf("unexpected account: %+v", req)
		}
		if len(req.Playlists) != 1 || req.Playlists[0].ID != "12345" || req.Playlists[0].Name != "Fav" {
			t.Fatalf("unexpected playlists: %+v", req.Playlists)
		}
		if got := req.Playlists[0].Tracks[0].PlatformID(); got != "9007199254740993" {
			t.Errorf("track id = %s, want 9007199254740993", got)
		}
		if err := req.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("ImportRequest with string ids", func(t *testing.T) {
		var req ImportRequest
		data := `{"platform": "qq", "externalUserId": "u1", "playlists": [{"id": "p1", "tracks": []}]}`
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if req.ExternalUserID != "u1" || req.LegacyID != "" || req.Playlists[0].ID != "p1" {
			t.Errorf("unexpected request: %+v", req)
		}
	})

	t.Run("SyncRequest with numeric external id", func(t *testing.T) {
		var req SyncRequest
		data := `{"platform": "qq", "externalId": 7788, "name": "Mix", "songs": [{"id": 1}]}`
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if req.ExternalID != "7788" || req.Name != "Mix" || len(req.Songs) != 1 {
			t.Errorf("unexpected request: %+v", req)
		}
		if _, ok := req.Songs[0]["id"].(json.Number); !ok {
			t.Errorf("expected json.Number track id, got %T", req.Songs[0]["id"])
		}
	})

	t.Run("fractional playlist id", func(t *testing.T) {
		var req ImportRequest
		data := `{"platform": "qq", "id": "u1", "playlists": [{"id": 1.5}]}`
		if err := json.Unmarshal([]byte(data), &req); err == nil {
			t.Error("expected fractional id to be rejected")
		}
	})
}
