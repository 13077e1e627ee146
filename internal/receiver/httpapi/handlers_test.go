package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nakayama-software/ciren-sub000/internal/receiver/history"
	"github.com/nakayama-software/ciren-sub000/internal/receiver/normalizer"
)

type mockRepo struct {
	hubs    []history.HubSummary
	records []history.StoredRecord
	err     error

	gotHubID string
	gotLimit int
}

func (m *mockRepo) InsertRecord(*normalizer.HubRecord, time.Time) (int64, error) {
	return 0, errors.New("not used")
}

func (m *mockRepo) GetHubs() ([]history.HubSummary, error) {
	return m.hubs, m.err
}

func (m *mockRepo) GetLatestRecords(hubID string, limit int) ([]history.StoredRecord, error) {
	m.gotHubID = hubID
	m.gotLimit = limit
	return m.records, m.err
}

func newTestMux(repo history.Repository) *http.ServeMux {
	mux := http.NewServeMux()
	registerHubRoutes(mux, repo)
	return mux
}

func TestListHubs(t *testing.T) {
	repo := &mockRepo{hubs: []history.HubSummary{
		{HubID: "HUB-1", Records: 3, LastSeenAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
	}}
	rec := httptest.NewRecorder()
	newTestMux(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hubs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var body struct {
		Hubs []history.HubSummary `json:"hubs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Hubs) != 1 || body.Hubs[0].HubID != "HUB-1" {
		t.Errorf("body = %+v", body)
	}
}

func TestListHubs_EmptyIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestMux(&mockRepo{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hubs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body["hubs"]) != "[]" {
		t.Errorf("hubs = %s; want []", body["hubs"])
	}
}

func TestListHubs_RepoError(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestMux(&mockRepo{err: errors.New("boom")}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hubs", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want 500", rec.Code)
	}
}

func TestHubRecords_DefaultLimit(t *testing.T) {
	repo := &mockRepo{records: []history.StoredRecord{{ID: 1, HubID: "HUB-1"}}}
	rec := httptest.NewRecorder()
	newTestMux(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hubs/HUB-1/records", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if repo.gotHubID != "HUB-1" {
		t.Errorf("queried hub %q; want HUB-1", repo.gotHubID)
	}
	if repo.gotLimit != defaultRecordLimit {
		t.Errorf("limit = %d; want default %d", repo.gotLimit, defaultRecordLimit)
	}
}

func TestHubRecords_LimitParam(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		repo := &mockRepo{}
		rec := httptest.NewRecorder()
		newTestMux(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hubs/HUB-1/records?limit=5", nil))
		if rec.Code != http.StatusOK || repo.gotLimit != 5 {
			t.Errorf("status = %d, limit = %d; want 200, 5", rec.Code, repo.gotLimit)
		}
	})
	t.Run("capped", func(t *testing.T) {
		repo := &mockRepo{}
		rec := httptest.NewRecorder()
		newTestMux(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hubs/HUB-1/records?limit=9999", nil))
		if repo.gotLimit != maxRecordLimit {
			t.Errorf("limit = %d; want cap %d", repo.gotLimit, maxRecordLimit)
		}
	})
	t.Run("invalid", func(t *testing.T) {
		for _, limit := range []string{"0", "-3", "abc"} {
			rec := httptest.NewRecorder()
			newTestMux(&mockRepo{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hubs/HUB-1/records?limit="+limit, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("limit=%s: status = %d; want 400", limit, rec.Code)
			}
		}
	})
}

func TestHubRecords_EmptyIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestMux(&mockRepo{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hubs/HUB-9/records", nil))

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body["records"]) != "[]" {
		t.Errorf("records = %s; want []", body["records"])
	}
}
