package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// newMeteostatServer serves canned Meteostat-style responses and counts
// requests per endpoint.
func newMeteostatServer(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()
	counts := &sync.Map{}

	mux := http.NewServeMux()
	mux.HandleFunc("/stations/nearby", func(w http.ResponseWriter, r *http.Request) {
		bump(counts, "nearby")
		fmt.Fprint(w, `{"data":[{"id":"10637","name":{"en":"Frankfurt"},"latitude":50.05,"longitude":8.6}]}`)
	})
	mux.HandleFunc("/climate/normals", func(w http.ResponseWriter, r *http.Request) {
		bump(counts, "normals")
		if r.URL.Query().Get("station") == "empty" {
			fmt.Fprint(w, `{"data":[]}`)
			return
		}
		fmt.Fprint(w, `{"data":[
			{"month":1,"tavg":1.2,"tmin":-1.5,"tmax":4.0,"prcp":44.0,"snow":null},
			{"month":7,"tavg":19.8,"tmin":14.6,"tmax":25.4,"prcp":66.1,"snow":null}
		]}`)
	})
	mux.HandleFunc("/stations/daily", func(w http.ResponseWriter, r *http.Request) {
		bump(counts, "daily")
		start := r.URL.Query().Get("start")
		fmt.Fprintf(w, `{"data":[{"date":"%s","tavg":10.0,"tmin":5.0,"tmax":15.0,"prcp":2.0,"snow":null}]}`, start)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, counts
}

func bump(counts *sync.Map, key string) {
	v, _ := counts.LoadOrStore(key, new(int))
	*(v.(*int))++
}

func count(counts *sync.Map, key string) int {
	v, ok := counts.Load(key)
	if !ok {
		return 0
	}
	return *(v.(*int))
}

func newTestProvider(t *testing.T) (*MeteostatProvider, *sync.Map) {
	t.Helper()
	srv, counts := newMeteostatServer(t)

	p := NewMeteostatProvider(srv.Client(), "test-key", 1991, 2020)
	p.baseURL = srv.URL
	return p, counts
}

func TestNearbyStation(t *testing.T) {
	p, _ := newTestProvider(t)

	station, err := p.NearbyStation(context.Background(), 50.0, 8.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if station.ID != "10637" || station.Name != "Frankfurt" {
		t.Fatalf("station = %+v", station)
	}
}

func TestNormalsParsesMonths(t *testing.T) {
	p, _ := newTestProvider(t)

	normals, err := p.Normals(context.Background(), "10637")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(normals) != 2 {
		t.Fatalf("expected 2 months, got %d", len(normals))
	}
	jan := normals[time.January]
	if jan.Tavg != 1.2 || jan.Tmin != -1.5 || jan.Snow != 0 {
		t.Fatalf("january = %+v", jan)
	}
}

func TestNormalsEmptyStation(t *testing.T) {
	p, _ := newTestProvider(t)

	normals, err := p.Normals(context.Background(), "empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(normals) != 0 {
		t.Fatalf("expected no normals, got %d", len(normals))
	}
}

func TestHistoricalDayQueriesEveryYear(t *testing.T) {
	p, counts := newTestProvider(t)

	stats, err := p.HistoricalDay(context.Background(), "10637", 4, time.July)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One request per year in [1991, 2020).
	if got := count(counts, "daily"); got != 29 {
		t.Fatalf("daily requests = %d, want 29", got)
	}
	if stats.AvailableYears != 29 {
		t.Fatalf("available years = %d, want 29", stats.AvailableYears)
	}
	if stats.Tavg != 10.0 || stats.Prcp != 2.0 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.MinYear != 1991 || stats.MaxYear != 2019 {
		t.Fatalf("year span = %d-%d", stats.MinYear, stats.MaxYear)
	}
}

func TestHistoricalDaySkipsMissingLeapDays(t *testing.T) {
	p, counts := newTestProvider(t)

	if _, err := p.HistoricalDay(context.Background(), "10637", 29, time.February); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only leap years in [1991, 2020) have a Feb 29.
	if got := count(counts, "daily"); got != 7 {
		t.Fatalf("daily requests = %d, want 7 leap years", got)
	}
}

func TestMeanDailiesSkipsNulls(t *testing.T) {
	ten := 10.0
	twenty := 20.0

	rows := []dailyRow{
		{Date: "2001-07-04", Tavg: &ten, Prcp: nil},
		{Date: "2002-07-04", Tavg: &twenty, Prcp: &ten},
	}

	stats := meanDailies(rows)
	if stats.Tavg != 15.0 {
		t.Errorf("tavg = %f, want 15.0", stats.Tavg)
	}
	// Prcp averages only the one non-null value.
	if stats.Prcp != 10.0 {
		t.Errorf("prcp = %f, want 10.0", stats.Prcp)
	}
	if stats.AvailableYears != 2 {
		t.Errorf("available years = %d, want 2", stats.AvailableYears)
	}
	if stats.MinYear != 2001 || stats.MaxYear != 2002 {
		t.Errorf("year span = %d-%d", stats.MinYear, stats.MaxYear)
	}
}

func TestMissingAPIKey(t *testing.T) {
	p := NewMeteostatProvider(http.DefaultClient, "", 1991, 2020)

	if _, err := p.NearbyStation(context.Background(), 0, 0); err == nil {
		t.Fatal("expected an error without an API key")
	}
}
