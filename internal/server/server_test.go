package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plmirror/internal/shared"
	"github.com/desertthunder/plmirror/internal/tasks"
	tu "github.com/desertthunder/plmirror/internal/testing"
)

func newTestServer(t *testing.T, opts Opts) (*Server, *tu.MemoryStore) {
	t.Helper()
	logger := log.New(io.Discard)
	store := tu.NewMemoryStore()
	engine := tasks.NewPlaylistEngine(store, tasks.EngineOpts{Logger: logger})
	opts.Logger = logger
	return New(engine, opts), store
}

func do(t *testing.T, h http.Handler, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %d", userID))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, Opts{})

	rec := do(t, s, http.MethodGet, "/api/health", 0, nil)
	expectStatus(t, rec, http.StatusOK)

	if got := decode[map[string]string](t, rec)["status"]; got != "ok" {
		t.Errorf("expected status ok, got %q", got)
	}
}

func TestPlaylistRoutes(t *testing.T) {
	t.Run("requires identity", func(t *testing.T) {
		s, _ := newTestServer(t, Opts{})

		for _, header := range []string{"", "Bearer", "Bearer abc", "Bearer -1", "Basic 1"} {
			req := httptest.NewRequest(http.MethodGet, "/api/playlists", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%q: expected 401, got %d", header, rec.Code)
			}
		}
	})

	t.Run("create, rename, list, delete", func(t *testing.T) {
		s, _ := newTestServer(t, Opts{})

		rec := do(t, s, http.MethodPost, "/api/playlists", 1, map[string]string{"name": "Mine"})
		expectStatus(t, rec, http.StatusOK)
		created := decode[map[string]any](t, rec)
		id, _ := created["id"].(string)
		if id == "" || created["name"] != "Mine" {
			t.Fatalf("unexpected create response: %v", created)
		}
		if tracks, ok := created["tracks"].([]any); !ok || len(tracks) != 0 {
			t.Errorf("expected empty tracks array, got %v", created["tracks"])
		}

		rec = do(t, s, http.MethodPut, "/api/playlists/"+id, 1, map[string]string{"name": "Renamed"})
		expectStatus(t, rec, http.StatusOK)
		if !decode[successResponse](t, rec).Success {
			t.Error("expected rename to succeed")
		}

		rec = do(t, s, http.MethodGet, "/api/playlists", 1, nil)
		expectStatus(t, rec, http.StatusOK)
		list := decode[[]map[string]any](t, rec)
		if len(list) != 1 || list[0]["name"] != "Renamed" || list[0]["is_sync"] != false || list[0]["can_delete"] != true {
			t.Fatalf("unexpected list: %v", list)
		}

		rec = do(t, s, http.MethodDelete, "/api/playlists/"+id, 1, nil)
		expectStatus(t, rec, http.StatusOK)

		rec = do(t, s, http.MethodGet, "/api/playlists/"+id, 1, nil)
		expectStatus(t, rec, http.StatusNotFound)
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		s, _ := newTestServer(t, Opts{})

		rec := do(t, s, http.MethodPost, "/api/playlists", 1, map[string]string{"name": "  "})
		expectStatus(t, rec, http.StatusBadRequest)
		if decode[errorResponse](t, rec).Error == "" {
			t.Error("expected an error message")
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		s, _ := newTestServer(t, Opts{})

		rec := do(t, s, http.MethodPost, "/api/playlists", 1, "{nope")
		expectStatus(t, rec, http.StatusBadRequest)

		rec = do(t, s, http.MethodPost, "/api/sync/import", 1, "")
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("foreign delete is ignored", func(t *testing.T) {
		s, store := newTestServer(t, Opts{})
		rec := do(t, s, http.MethodPost, "/api/playlists", 1, map[string]string{"name": "Mine"})
		id := decode[map[string]any](t, rec)["id"].(string)

		rec = do(t, s, http.MethodDelete, "/api/playlists/"+id, 2, nil)
		expectStatus(t, rec, http.StatusOK)
		if decode[successResponse](t, rec).Success {
			t.Error("expected success=false for an ignored delete")
		}

		if _, err := store.GetPlaylist(t.Context(), id); err != nil {
			t.Errorf("playlist should still exist: %v", err)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		s, _ := newTestServer(t, Opts{})

		rec := do(t, s, http.MethodPatch, "/api/playlists", 1, nil)
		expectStatus(t, rec, http.StatusMethodNotAllowed)
	})
}

func TestSongRoutes(t *testing.T) {
	s, _ := newTestServer(t, Opts{})

	rec := do(t, s, http.MethodPost, "/api/playlists", 1, map[string]string{"name": "Mine"})
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = do(t, s, http.MethodPost, "/api/playlists/"+id+"/songs", 1, `{"id": 9007199254740993, "name": "Big", "url": "http://x"}`)
	expectStatus(t, rec, http.StatusOK)
	added := decode[addSongResponse](t, rec)
	if !added.Success || added.UID == "" {
		t.Fatalf("unexpected add response: %+v", added)
	}

	t.Run("duplicate song", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/playlists/"+id+"/songs", 1, `{"id": 9007199254740993}`)
		expectStatus(t, rec, http.StatusConflict)
	})

	t.Run("manual add keeps numbers and fields", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/playlists/"+id, 1, nil)
		expectStatus(t, rec, http.StatusOK)

		if !strings.Contains(rec.Body.String(), "9007199254740993") {
			t.Errorf("expected numeric id to survive unchanged: %s", rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"is_local_add":true`) {
			t.Errorf("expected manual flag: %s", rec.Body.String())
		}
	})

	t.Run("batch add", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/playlists/batch-songs", 1, map[string]any{
			"playlistId": id,
			"songs":      []map[string]any{{"id": "a"}, {"id": "b"}, {"id": "a"}},
		})
		expectStatus(t, rec, http.StatusOK)
		if got := decode[countResponse](t, rec).Count; got != 2 {
			t.Errorf("expected 2 added, got %d", got)
		}
	})

	t.Run("remove one and batch", func(t *testing.T) {
		rec := do(t, s, http.MethodDelete, "/api/playlists/"+id+"/songs", 1, map[string]string{"uid": added.UID})
		expectStatus(t, rec, http.StatusOK)
		if !decode[successResponse](t, rec).Success {
			t.Error("expected removal to succeed")
		}

		rec = do(t, s, http.MethodGet, "/api/playlists/"+id, 1, nil)
		view := decode[map[string]any](t, rec)
		var uids []string
		for _, tr := range view["tracks"].([]any) {
			uids = append(uids, tr.(map[string]any)["uid"].(string))
		}

		rec = do(t, s, http.MethodDelete, "/api/playlists/"+id+"/songs/batch", 1, map[string]any{"uids": append(uids, "missing")})
		expectStatus(t, rec, http.StatusOK)
		if got := decode[countResponse](t, rec).Count; got != len(uids) {
			t.Errorf("expected %d removed, got %d", len(uids), got)
		}
	})

	t.Run("remove without uid", func(t *testing.T) {
		rec := do(t, s, http.MethodDelete, "/api/playlists/"+id+"/songs", 1, map[string]string{})
		expectStatus(t, rec, http.StatusBadRequest)
	})
}

func TestSyncRoutes(t *testing.T) {
	t.Run("import then sync", func(t *testing.T) {
		s, _ := newTestServer(t, Opts{})

		rec := do(t, s, http.MethodPost, "/api/sync/import", 1, map[string]any{
			"platform": "netease",
			"id":       "u1",
			"playlists": []map[string]any{
				{"id": "p1", "name": "Favorites", "tracks": []map[string]any{{"id": 1}, {"id": 2}}},
			},
		})
		expectStatus(t, rec, http.StatusOK)
		if got := decode[importResponse](t, rec); !got.Success || got.ImportedCount != 1 {
			t.Errorf("unexpected import response: %+v", got)
		}

		rec = do(t, s, http.MethodPost, "/api/playlists/sync", 1, map[string]any{
			"platform":   "netease",
			"externalId": "p1",
			"name":       "网易:Favorites",
			"songs":      []map[string]any{{"id": 3}},
		})
		expectStatus(t, rec, http.StatusOK)
		if got := decode[countResponse](t, rec).Count; got != 1 {
			t.Errorf("expected count 1, got %d", got)
		}

		rec = do(t, s, http.MethodGet, "/api/playlists", 1, nil)
		list := decode[[]map[string]any](t, rec)
		if len(list) != 1 || len(list[0]["tracks"].([]any)) != 1 {
			t.Errorf("expected one playlist with one track, got %v", list)
		}

		rec = do(t, s, http.MethodGet, "/api/sync/accounts/netease", 1, nil)
		expectStatus(t, rec, http.StatusOK)
		if got := decode[map[string]any](t, rec)["externalUserId"]; got != "u1" {
			t.Errorf("expected account u1, got %v", got)
		}
	})

	t.Run("numeric ids", func(t *testing.T) {
		s, _ := newTestServer(t, Opts{})

		rec := do(t, s, http.MethodPost, "/api/sync/import", 1, map[string]any{
			"platform": "netease",
			"id":       778899,
			"playlists": []map[string]any{
				{"id": 12345, "name": "Favorites", "tracks": []map[string]any{{"id": 1}}},
			},
		})
		expectStatus(t, rec, http.StatusOK)
		if got := decode[importResponse](t, rec); !got.Success || got.ImportedCount != 1 {
			t.Errorf("unexpected import response: %+v", got)
		}

		rec = do(t, s, http.MethodPost, "/api/playlists/sync", 1, map[string]any{
			"platform":   "netease",
			"externalId": 12345,
			"name":       "网易:Favorites",
			"songs":      []map[string]any{{"id": 2}, {"id": 3}},
		})
		expectStatus(t, rec, http.StatusOK)
		if got := decode[countResponse](t, rec).Count; got != 2 {
			t.Errorf("expected count 2, got %d", got)
		}

		rec = do(t, s, http.MethodGet, "/api/playlists", 1, nil)
		list := decode[[]map[string]any](t, rec)
		if len(list) != 1 || list[0]["external_id"] != "12345" {
			t.Errorf("expected the imported playlist to be synced in place, got %v", list)
		}

		rec = do(t, s, http.MethodGet, "/api/sync/accounts/netease", 1, nil)
		if got := decode[map[string]any](t, rec)["externalUserId"]; got != "778899" {
			t.Errorf("expected account 778899, got %v", got)
		}
	})

	t.Run("string and numeric uids", func(t *testing.T) {
		var body uidsBody
		if err := json.Unmarshal([]byte(`{"uids": ["a", 12, "13"]}`), &body); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if len(body.UIDs) != 3 || body.UIDs[1] != "12" {
			t.Errorf("unexpected uids: %v", body.UIDs)
		}
	})

	t.Run("invalid import", func(t *testing.T) {
		s, _ := newTestServer(t, Opts{})

		rec := do(t, s, http.MethodPost, "/api/sync/import", 1, map[string]any{"platform": "netease"})
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("unknown account", func(t *testing.T) {
		s, _ := newTestServer(t, Opts{})

		rec := do(t, s, http.MethodGet, "/api/sync/accounts/qq", 1, nil)
		expectStatus(t, rec, http.StatusNotFound)
	})

	t.Run("storage failure is hidden", func(t *testing.T) {
		s, store := newTestServer(t, Opts{})
		store.FailOn["FindPlaylist"] = fmt.Errorf("%w: disk on fire", shared.ErrStorage)

		rec := do(t, s, http.MethodPost, "/api/playlists/sync", 1, map[string]any{
			"platform": "qq", "externalId": "x", "name": "Mix", "songs": []any{},
		})
		expectStatus(t, rec, http.StatusInternalServerError)
		if strings.Contains(rec.Body.String(), "disk on fire") {
			t.Error("storage details should not leak to clients")
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		s, _ := newTestServer(t, Opts{RateLimit: 0.001, RateBurst: 2})

		for i := range 2 {
			rec := do(t, s, http.MethodGet, "/api/health", 0, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
			}
		}
		rec := do(t, s, http.MethodGet, "/api/health", 0, nil)
		expectStatus(t, rec, http.StatusTooManyRequests)
	})

	t.Run("cors preflight", func(t *testing.T) {
		s, _ := newTestServer(t, Opts{AllowedOrigins: []string{"http://app.example"}})

		req := httptest.NewRequest(http.MethodOptions, "/api/playlists", nil)
		req.Header.Set("Origin", "http://app.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.example" {
			t.Errorf("expected allowed origin header, got %q", got)
		}
	})

	t.Run("recoverer", func(t *testing.T) {
		r := NewBasicRouter()
		r.Use(Recoverer(log.New(io.Discard)))
		r.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		expectStatus(t, rec, http.StatusInternalServerError)
	})

	t.Run("request logger", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewBasicRouter()
		r.Use(RequestLogger(log.New(&buf)))
		r.Handle(http.MethodGet, "/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil))

		if !strings.Contains(buf.String(), "status=418") || !strings.Contains(buf.String(), "path=/teapot") {
			t.Errorf("unexpected log output: %s", buf.String())
		}
	})
}

func TestStatusFor(t *testing.T) {
	tc := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", shared.ErrValidation), http.StatusBadRequest},
		{shared.ErrMissingArgument, http.StatusBadRequest},
		{shared.ErrUnauthorized, http.StatusUnauthorized},
		{shared.ErrForbidden, http.StatusForbidden},
		{shared.ErrPlaylistNotFound, http.StatusNotFound},
		{shared.ErrDuplicateTrack, http.StatusConflict},
		{shared.ErrLockTimeout, http.StatusServiceUnavailable},
		{shared.ErrStorage, http.StatusInternalServerError},
		{errors.New("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tc {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
