package weather

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/roadtrip-planner/internal/geodata"
)

// lowConfidenceYears is the threshold below which historical averages are
// flagged as low-confidence.
const lowConfidenceYears = 10

// DailiesStore caches historical-day statistics between annotation passes.
// Any error from Get is treated as a cache miss.
type DailiesStore interface {
	Get(stationID string, day int, month time.Month) (DailyStats, error)
	Put(stationID string, day int, month time.Month, stats DailyStats)
}

// Service retrieves climate normals and historical dailies through a
// Provider, substituting missing normals from daily history and caching
// day-level results.
type Service struct {
	provider Provider
	dailies  DailiesStore
	timespan string
}

// NewService creates a Service. dailies may be nil to disable caching.
func NewService(provider Provider, dailies DailiesStore, timespan string) *Service {
	return &Service{
		provider: provider,
		dailies:  dailies,
		timespan: timespan,
	}
}

// NormalsForCity resolves the nearest station for a city and fetches its
// monthly normals. Stations without published normals get substitutes
// averaged from daily history; a station with no daily history either
// returns a record with Missing set and no months, which callers must treat
// as not routable. The warnings describe sparse or absent data and are
// advisory.
func (s *Service) NormalsForCity(ctx context.Context, rec geodata.CityCoordinate) (CityNormals, []string, error) {
	station, err := s.provider.NearbyStation(ctx, rec.Lat, rec.Lng)
	if err != nil {
		return CityNormals{}, nil, fmt.Errorf("nearest station for %s: %w", rec.City, err)
	}

	normals, err := s.provider.Normals(ctx, station.ID)
	if err != nil {
		return CityNormals{}, nil, fmt.Errorf("normals for station %s: %w", station.ID, err)
	}

	result := CityNormals{
		StationID: station.ID,
		Normals:   normals,
		Timespan:  s.timespan,
		Missing:   len(normals) == 0,
	}
	if !result.Missing {
		return result, nil, nil
	}

	log.Printf("INFO: no published normals for %s (station %s); substituting from daily history", rec.City, station.ID)
	substitutes, warnings := s.substituteNormals(ctx, rec.City, station.ID)
	result.Normals = substitutes
	return result, warnings, nil
}

// substituteNormals rebuilds a monthly-normals table by averaging daily
// observations per month across the climate period. Months with no daily
// data at all are omitted.
func (s *Service) substituteNormals(ctx context.Context, city, stationID string) (map[time.Month]MonthlyNormal, []string) {
	substitutes := make(map[time.Month]MonthlyNormal)
	minYears := -1

	for month := time.January; month <= time.December; month++ {
		stats, err := s.provider.HistoricalMonth(ctx, stationID, month)
		if err != nil {
			log.Printf("INFO: monthly substitute failed for station %s month %d: %v", stationID, month, err)
			continue
		}
		if minYears == -1 || stats.AvailableYears < minYears {
			minYears = stats.AvailableYears
		}
		if stats.AvailableYears == 0 {
			continue
		}
		substitutes[month] = MonthlyNormal{
			Tavg: Round1(stats.Tavg),
			Tmin: Round1(stats.Tmin),
			Tmax: Round1(stats.Tmax),
			Prcp: Round1(stats.Prcp),
			Snow: Round1(stats.Snow),
		}
	}

	var warnings []string
	switch {
	case len(substitutes) == 0 || minYears == 0:
		warnings = append(warnings, fmt.Sprintf("No weather data available for %s.", city))
	case minYears > 0 && minYears < lowConfidenceYears:
		warnings = append(warnings, fmt.Sprintf("Only %d years of weather data available for %s.", minYears, city))
	}
	if minYears == 0 {
		// A single empty month poisons the substitute table; the city stays
		// in the catalog but cannot be routed.
		return map[time.Month]MonthlyNormal{}, warnings
	}
	return substitutes, warnings
}

// HistoricalDay returns day statistics through the cache.
func (s *Service) HistoricalDay(ctx context.Context, stationID string, day int, month time.Month) (DailyStats, error) {
	if s.dailies != nil {
		if stats, err := s.dailies.Get(stationID, day, month); err == nil {
			return stats, nil
		}
	}

	stats, err := s.provider.HistoricalDay(ctx, stationID, day, month)
	if err != nil {
		return DailyStats{}, err
	}
	if s.dailies != nil {
		s.dailies.Put(stationID, day, month, stats)
	}
	return stats, nil
}
