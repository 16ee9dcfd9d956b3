package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/roadtrip-planner/internal/catalog"
	"github.com/i474232898/roadtrip-planner/internal/geodata"
	"github.com/i474232898/roadtrip-planner/internal/store"
	"github.com/i474232898/roadtrip-planner/internal/weather"
)

// stubProvider serves constant weather data so handler behaviour is
// deterministic.
type stubProvider struct{}

func (stubProvider) NearbyStation(ctx context.Context, lat, lng float64) (weather.Station, error) {
	return weather.Station{ID: "st-1"}, nil
}

func (stubProvider) Normals(ctx context.Context, stationID string) (map[time.Month]weather.MonthlyNormal, error) {
	return map[time.Month]weather.MonthlyNormal{
		time.January: {Tavg: 21.0, Prcp: 3.5},
		time.July:    {Tavg: 10.0, Prcp: 8.0},
	}, nil
}

func (stubProvider) HistoricalDay(ctx context.Context, stationID string, day int, month time.Month) (weather.DailyStats, error) {
	return weather.DailyStats{Tavg: 20.06, Tmin: 15, Tmax: 25, Prcp: 1.2, AvailableYears: 29}, nil
}

func (stubProvider) HistoricalMonth(ctx context.Context, stationID string, month time.Month) (weather.DailyStats, error) {
	return weather.DailyStats{AvailableYears: 29}, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	dir := t.TempDir()

	geoDir := filepath.Join(dir, "geodata")
	if err := os.Mkdir(geoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	csv := "city,lat,lng\nAlfa,0,0\nBravo,0,1\nCharlie,0,10\n"
	if err := os.WriteFile(filepath.Join(geoDir, "Testland.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	catalogPath := filepath.Join(dir, "cities.json")
	if err := os.WriteFile(catalogPath, []byte(`{"Testland":["Alfa","Bravo","Charlie"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	wsvc := weather.NewService(stubProvider{}, store.NewDailiesCache(time.Hour), "1991-2020")
	cat := catalog.NewService(catalogPath, geodata.NewSource(geoDir, ""), wsvc, store.NewNormalsCache())
	if err := cat.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Mirror the production error handler from cmd/roadtrip-planner so
	// error responses are JSON, as postJSON expects.
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
	RegisterRoutes(app, cat, wsvc)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	payload := make(map[string]interface{})
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("invalid JSON response %q: %v", data, err)
		}
	}
	return resp, payload
}

func TestRouteEndpointOrdersByDistance(t *testing.T) {
	app := newTestApp(t)

	resp, payload := postJSON(t, app, "/api/v1/route",
		`{"start_date":"2023-01-01","start_city":"Alfa"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	stops := payload["stops"].([]interface{})
	if len(stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(stops))
	}
	wantOrder := []string{"Alfa", "Bravo", "Charlie"}
	for i, raw := range stops {
		stop := raw.(map[string]interface{})
		if stop["city"] != wantOrder[i] {
			t.Errorf("stop %d = %v, want %s", i, stop["city"], wantOrder[i])
		}
	}

	first := stops[0].(map[string]interface{})
	if first["estimatedDistance"] != "111 km" {
		t.Errorf("first leg distance = %v, want 111 km", first["estimatedDistance"])
	}
	last := stops[2].(map[string]interface{})
	if last["estimatedDistance"] != "-" {
		t.Errorf("final stop distance = %v, want -", last["estimatedDistance"])
	}
}

func TestRouteEndpointRejectsUnknownStart(t *testing.T) {
	app := newTestApp(t)

	resp, _ := postJSON(t, app, "/api/v1/route",
		`{"start_date":"2023-01-01","start_city":"Xanadu"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRouteEndpointRejectsBadDate(t *testing.T) {
	app := newTestApp(t)

	resp, _ := postJSON(t, app, "/api/v1/route",
		`{"start_date":"01.01.2023","start_city":"Alfa"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFinalizeRecomputesDatesAndAnnotates(t *testing.T) {
	app := newTestApp(t)

	resp, payload := postJSON(t, app, "/api/v1/route/finalize",
		`{"start_date":"2023-01-01","start_city":"Alfa",
		  "edited_cells":{"0:2":"2","1:2":"3"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if payload["id"] == "" {
		t.Error("finalized route should carry an id")
	}

	stops := payload["stops"].([]interface{})
	wantDates := []string{"2023-01-01", "2023-01-03", "2023-01-06"}
	for i, raw := range stops {
		stop := raw.(map[string]interface{})
		if stop["arrivalDate"] != wantDates[i] {
			t.Errorf("stop %d arrival = %v, want %s", i, stop["arrivalDate"], wantDates[i])
		}

		windows := stop["weather"].(map[string]interface{})
		if got := windows["tavg"]; got != "(20.1) 20.1 (20.1)" {
			t.Errorf("stop %d tavg window = %v", i, got)
		}
	}
}

func TestFinalizeRejectsInvalidEdit(t *testing.T) {
	app := newTestApp(t)

	resp, _ := postJSON(t, app, "/api/v1/route/finalize",
		`{"start_date":"2023-01-01","start_city":"Alfa",
		  "edited_cells":{"0:2":"not-a-number"}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFinalizeDeletesRows(t *testing.T) {
	app := newTestApp(t)

	resp, payload := postJSON(t, app, "/api/v1/route/finalize",
		`{"start_date":"2023-01-01","start_city":"Alfa","deleted_rows":[1]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	stops := payload["stops"].([]interface{})
	if len(stops) != 2 {
		t.Fatalf("expected 2 stops after deletion, got %d", len(stops))
	}
	second := stops[1].(map[string]interface{})
	if second["city"] != "Charlie" {
		t.Fatalf("second stop = %v, want Charlie", second["city"])
	}
}

func TestNormalsEndpoint(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/normals?country=Testland&city=Bravo", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/normals?country=Testland&city=Xanadu", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMapEndpointValidation(t *testing.T) {
	app := newTestApp(t)

	// Unsupported target should return 400.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/map?month=1&target=wind", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	// Out-of-range month should also return 400.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/map?month=13&target=tavg", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMapEndpointReturnsPointsPerCity(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/map?month=1&target=tavg", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var payload struct {
		Points []struct {
			City  string  `json:"city"`
			Value float64 `json:"value"`
		} `json:"points"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Points) != 3 {
		t.Fatalf("expected 3 map points, got %d", len(payload.Points))
	}
	for _, p := range payload.Points {
		if p.Value != 21.0 {
			t.Errorf("%s january tavg = %f, want 21.0", p.City, p.Value)
		}
	}
}

func TestCatalogAddAndRemove(t *testing.T) {
	app := newTestApp(t)

	resp, _ := postJSON(t, app, "/api/v1/catalog/cities",
		`{"country":"Testland","city":"Bravo"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate add status = %d, want 409", resp.StatusCode)
	}

	resp, _ = postJSON(t, app, "/api/v1/catalog/cities",
		`{"country":"Testland","city":"Xanadu"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown city add status = %d, want 404", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/catalog/cities?country=Testland&city=Bravo", nil)
	rmResp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if rmResp.StatusCode != http.StatusOK {
		t.Fatalf("remove status = %d", rmResp.StatusCode)
	}

	// Bravo is gone from the routable set, so it cannot start a route.
	buildResp, _ := postJSON(t, app, "/api/v1/route",
		`{"start_date":"2023-01-01","start_city":"Bravo"}`)
	if buildResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("route from removed city status = %d, want 400", buildResp.StatusCode)
	}
}
