package weather

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknownCity is returned when a routed city has no normals record.
	ErrUnknownCity = errors.New("no weather normals for city")

	// ErrDataUnavailable is returned when a collaborator has no data at all
	// for a station. Callers degrade (exclude the city, surface a warning)
	// rather than abort.
	ErrDataUnavailable = errors.New("no weather data available")
)

// StationLocator finds the observation station closest to a coordinate pair.
type StationLocator interface {
	NearbyStation(ctx context.Context, lat, lng float64) (Station, error)
}

// NormalsProvider fetches a station's published monthly normals over the
// climate period. An empty map (without error) means the station has no
// published normals; callers may substitute from daily history.
type NormalsProvider interface {
	Normals(ctx context.Context, stationID string) (map[time.Month]MonthlyNormal, error)
}

// DailiesProvider answers the two historical-dailies query shapes: one
// calendar day averaged across every year of the climate period, and one
// whole month likewise.
type DailiesProvider interface {
	HistoricalDay(ctx context.Context, stationID string, day int, month time.Month) (DailyStats, error)
	HistoricalMonth(ctx context.Context, stationID string, month time.Month) (DailyStats, error)
}

// Provider is the full collaborator surface the service needs.
type Provider interface {
	StationLocator
	NormalsProvider
	DailiesProvider
}
