package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/cache"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
)

type fakeVersionReader struct {
	latest db.LayoutVersion
	list   []db.LayoutVersion
	err    error
}

func (f *fakeVersionReader) LatestLayoutVersion(ctx context.Context) (db.LayoutVersion, error) {
	return f.latest, f.err
}

func (f *fakeVersionReader) ListLayoutVersions(ctx context.Context, limit int) ([]db.LayoutVersion, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.list) {
		return f.list[:limit], nil
	}
	return f.list, nil
}

func (f *fakeVersionReader) GetLayoutVersion(ctx context.Context, id uuid.UUID) (db.LayoutVersion, error) {
	if f.err != nil {
		return db.LayoutVersion{}, f.err
	}
	for _, v := range f.list {
		if v.ID == id {
			return v, nil
		}
	}
	return db.LayoutVersion{}, sql.ErrNoRows
}

func sampleVersion() db.LayoutVersion {
	return db.LayoutVersion{
		ID:         uuid.New(),
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		NodeCount:  1200,
		TickCount:  300,
		FinalAlpha: 0.00095,
		DurationMs: 4821,
	}
}

func TestGetCurrentVersion(t *testing.T) {
	v := sampleVersion()
	h := NewVersionHandler(&fakeVersionReader{latest: v}, cache.NewMockCache())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/layout/version", nil)
	h.GetCurrentVersion(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("expected X-Cache MISS on first request, got %q", got)
	}

	var resp LayoutVersionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != v.ID.String() {
		t.Errorf("expected id %s, got %s", v.ID, resp.ID)
	}
	if resp.NodeCount != 1200 || resp.TickCount != 300 {
		t.Errorf("unexpected counts: %+v", resp)
	}

	// Second request should hit the cache.
	rr2 := httptest.NewRecorder()
	h.GetCurrentVersion(rr2, httptest.NewRequest(http.MethodGet, "/api/layout/version", nil))
	if got := rr2.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("expected X-Cache HIT on second request, got %q", got)
	}
}

func TestGetCurrentVersion_NoVersions(t *testing.T) {
	h := NewVersionHandler(&fakeVersionReader{err: sql.ErrNoRows}, cache.NewMockCache())

	rr := httptest.NewRecorder()
	h.GetCurrentVersion(rr, httptest.NewRequest(http.MethodGet, "/api/layout/version", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestListVersions(t *testing.T) {
	list := []db.LayoutVersion{sampleVersion(), sampleVersion(), sampleVersion()}
	h := NewVersionHandler(&fakeVersionReader{list: list}, cache.NewMockCache())

	rr := httptest.NewRecorder()
	h.ListVersions(rr, httptest.NewRequest(http.MethodGet, "/api/layout/versions?limit=2", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp []LayoutVersionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("expected 2 versions, got %d", len(resp))
	}
}

func TestListVersions_InvalidLimit(t *testing.T) {
	h := NewVersionHandler(&fakeVersionReader{}, cache.NewMockCache())

	for _, limit := range []string{"0", "-5", "201", "abc"} {
		rr := httptest.NewRecorder()
		h.ListVersions(rr, httptest.NewRequest(http.MethodGet, "/api/layout/versions?limit="+limit, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", limit, rr.Code)
		}
	}
}

func TestGetVersion(t *testing.T) {
	v := sampleVersion()
	h := NewVersionHandler(&fakeVersionReader{list: []db.LayoutVersion{v}}, cache.NewMockCache())

	r := mux.NewRouter()
	r.HandleFunc("/api/layout/versions/{id}", h.GetVersion)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/layout/versions/"+v.ID.String(), nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	// Unknown but valid UUID
	rr2 := httptest.NewRecorder()
	r.ServeHTTP(rr2, httptest.NewRequest(http.MethodGet, "/api/layout/versions/"+uuid.NewString(), nil))
	if rr2.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown version, got %d", rr2.Code)
	}

	// Malformed UUID
	rr3 := httptest.NewRecorder()
	r.ServeHTTP(rr3, httptest.NewRequest(http.MethodGet, "/api/layout/versions/not-a-uuid", nil))
	if rr3.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed id, got %d", rr3.Code)
	}
}
