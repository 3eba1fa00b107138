package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
)

// mockStore implements the run and point repositories for testing.
type mockStore struct {
	runs   []models.Run
	points map[string][]models.EnrichedPoint
}

func (m *mockStore) AddRun(ctx context.Context, r *models.Run) error {
	m.runs = append(m.runs, *r)
	return nil
}

func (m *mockStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	for _, r := range m.runs {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if limit > 0 && len(m.runs) > limit {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *mockStore) ReplacePoints(ctx context.Context, runID string, pts []models.EnrichedPoint) error {
	if m.points == nil {
		m.points = make(map[string][]models.EnrichedPoint)
	}
	m.points[runID] = pts
	return nil
}

func (m *mockStore) ListPoints(ctx context.Context, runID string) ([]models.EnrichedPoint, error) {
	return m.points[runID], nil
}

func testTransmitter() models.Transmitter {
	return models.Transmitter{
		ID: "tx-1", Longitude: -13.40694, Latitude: 9.345,
		AntennaHeight: 30, RxAntennaHeight: 10,
		FrequencyGHz: 0.7, Polarization: 2, TimePercent: 50,
	}
}

func testStore() *mockStore {
	return &mockStore{
		runs: []models.Run{
			{ID: "run-1", Transmitter: testTransmitter(), CreatedAt: time.Now()},
		},
		points: map[string][]models.EnrichedPoint{
			"run-1": {
				{
					ReceiverPoint: models.ReceiverPoint{ID: 0, DistanceKm: 0, AzimuthDeg: models.TransmitterAzimuth, Longitude: -13.40694, Latitude: 9.345},
					ElevationM:    100, LandCoverCode: 50, Category: 4, Roughness: 10, Zone: models.ZoneInland,
				},
				{
					ReceiverPoint: models.ReceiverPoint{ID: 1, DistanceKm: 0.5, AzimuthDeg: 0, Longitude: -13.40694, Latitude: 9.3495},
					ElevationM:    110, LandCoverCode: 10, Category: 3, Roughness: 15, Zone: models.ZoneInland,
				},
			},
		},
	}
}

func setupTestRouter(store *mockStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(store, store)
	handler.RegisterRoutes(router)
	return router
}

func TestGetRunPoints_ReturnsGeoJSON(t *testing.T) {
	router := setupTestRouter(testStore())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/runs/run-1/points", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/geo+json" {
		t.Errorf("expected content-type application/geo+json, got %s", contentType)
	}

	var fc FeatureCollection
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if fc.Type != "FeatureCollection" {
		t.Errorf("expected type FeatureCollection, got %s", fc.Type)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
	if fc.Features[0].Geometry.Coordinates[0] != -13.40694 {
		t.Errorf("unexpected longitude: %v", fc.Features[0].Geometry.Coordinates[0])
	}
	if fc.Features[1].Properties["zone_name"] != "inland" {
		t.Errorf("expected zone_name inland, got %v", fc.Features[1].Properties["zone_name"])
	}
}

func TestGetRunPoints_UnknownRun(t *testing.T) {
	router := setupTestRouter(testStore())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/runs/absent/points", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestGetRunProfiles(t *testing.T) {
	router := setupTestRouter(testStore())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/runs/run-1/profiles", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Profiles []struct {
			AzimuthDeg float64   `json:"AzimuthDeg"`
			Distances  []float64 `json:"Distances"`
			Heights    []int     `json:"Heights"`
		} `json:"profiles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(resp.Profiles))
	}
	if len(resp.Profiles[0].Distances) != 2 {
		t.Errorf("expected 2 samples (tx + receiver), got %d", len(resp.Profiles[0].Distances))
	}
}

func TestGetRunProfiles_AzimuthFilter(t *testing.T) {
	store := testStore()
	store.points["run-1"] = append(store.points["run-1"], models.EnrichedPoint{
		ReceiverPoint: models.ReceiverPoint{ID: 2, DistanceKm: 0.5, AzimuthDeg: 90, Longitude: -13.40239, Latitude: 9.345},
		ElevationM:    95, LandCoverCode: 30, Category: 2, Roughness: 0, Zone: models.ZoneInland,
	})
	router := setupTestRouter(store)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/runs/run-1/profiles?azimuth=90", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Profiles []struct {
			AzimuthDeg float64 `json:"AzimuthDeg"`
		} `json:"profiles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Profiles) != 1 {
		t.Fatalf("expected 1 profile for azimuth 90, got %d", len(resp.Profiles))
	}
	if resp.Profiles[0].AzimuthDeg != 90 {
		t.Errorf("profile azimuth = %v, want 90", resp.Profiles[0].AzimuthDeg)
	}
}

func TestGetRunProfiles_UsesRunTransmitter(t *testing.T) {
	// Two runs recorded with different radio parameters; each must be
	// served with the parameters it ran with.
	store := testStore()
	older := testTransmitter()
	older.FrequencyGHz = 3.5
	older.TimePercent = 10
	store.runs = append(store.runs, models.Run{
		ID: "run-0", Transmitter: older, CreatedAt: time.Now().Add(-time.Hour),
	})
	store.points["run-0"] = store.points["run-1"]
	router := setupTestRouter(store)

	for _, tc := range []struct {
		run      string
		wantFreq float64
		wantTime int
	}{
		{"run-0", 3.5, 10},
		{"run-1", 0.7, 50},
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/runs/"+tc.run+"/profiles", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", tc.run, w.Code)
		}

		var resp struct {
			Profiles []struct {
				FrequencyGHz float64 `json:"FrequencyGHz"`
				TimePercent  int     `json:"TimePercent"`
			} `json:"profiles"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: failed to parse response: %v", tc.run, err)
		}
		if len(resp.Profiles) == 0 {
			t.Fatalf("%s: no profiles returned", tc.run)
		}
		if got := resp.Profiles[0].FrequencyGHz; got != tc.wantFreq {
			t.Errorf("%s: frequency = %v, want %v", tc.run, got, tc.wantFreq)
		}
		if got := resp.Profiles[0].TimePercent; got != tc.wantTime {
			t.Errorf("%s: time percent = %d, want %d", tc.run, got, tc.wantTime)
		}
	}
}

func TestGetRunProfiles_NoReceivers(t *testing.T) {
	store := testStore()
	store.points["run-1"] = store.points["run-1"][:1] // transmitter only

	router := setupTestRouter(store)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/runs/run-1/profiles", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", w.Code)
	}
}

func TestGetRuns(t *testing.T) {
	router := setupTestRouter(testStore())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/runs", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Runs []map[string]any `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(resp.Runs))
	}
	if resp.Runs[0]["transmitter_id"] != "tx-1" {
		t.Errorf("expected transmitter tx-1, got %v", resp.Runs[0]["transmitter_id"])
	}
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(testStore())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(1))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		router.ServeHTTP(w, req)
		codes[w.Code]++
	}

	if codes[http.StatusTooManyRequests] == 0 {
		t.Error("expected at least one 429 from burst of 5 at 1 rps")
	}
	if codes[http.StatusOK] == 0 {
		t.Error("expected at least one request to pass")
	}
}
