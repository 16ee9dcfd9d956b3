package store

import (
	"errors"
	"testing"
	"time"

	"github.com/i474232898/roadtrip-planner/internal/weather"
)

func TestNormalsCacheKeyedByCountryAndCity(t *testing.T) {
	cache := NewNormalsCache()

	cache.Put("Mexico", "Cordoba", weather.CityNormals{StationID: "mx"})
	cache.Put("Argentina", "Cordoba", weather.CityNormals{StationID: "ar"})

	mx, err := cache.Get("Mexico", "Cordoba")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ar, err := cache.Get("Argentina", "Cordoba")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mx.StationID == ar.StationID {
		t.Fatal("same-named cities in different countries must not collide")
	}
}

func TestNormalsCacheMissAndDelete(t *testing.T) {
	cache := NewNormalsCache()

	if _, err := cache.Get("Chile", "Santiago"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cache.Put("Chile", "Santiago", weather.CityNormals{StationID: "cl"})
	if cache.Len() != 1 {
		t.Fatalf("len = %d, want 1", cache.Len())
	}

	cache.Delete("Chile", "Santiago")
	if _, err := cache.Get("Chile", "Santiago"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDailiesCacheRoundTrip(t *testing.T) {
	cache := NewDailiesCache(time.Hour)

	stats := weather.DailyStats{Tavg: 18.5, AvailableYears: 25}
	cache.Put("st-1", 4, time.July, stats)

	got, err := cache.Get("st-1", 4, time.July)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tavg != 18.5 || got.AvailableYears != 25 {
		t.Fatalf("got %+v", got)
	}

	// Different day of the same station misses.
	if _, err := cache.Get("st-1", 5, time.July); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDailiesCacheEviction(t *testing.T) {
	cache := NewDailiesCache(time.Nanosecond)
	cache.Put("st-1", 4, time.July, weather.DailyStats{})

	time.Sleep(time.Millisecond)
	if _, err := cache.Get("st-1", 4, time.July); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected eviction, got %v", err)
	}
}
