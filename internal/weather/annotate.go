package weather

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/i474232898/roadtrip-planner/internal/route"
)

// NormalsSource resolves the normals record for a routed city. It is keyed
// by (country, city); two same-named cities in different countries never
// share a record.
type NormalsSource interface {
	Get(country, city string) (CityNormals, error)
}

// AnnotatedStop is a route stop with its arrival-date weather windows, one
// per climate variable.
type AnnotatedStop struct {
	route.Stop
	Windows map[Variable]Window `json:"windows"`
}

// windowDayOffset is how far before and after the arrival date the window
// reaches.
const windowDayOffset = 3

// Annotate attaches a weather window to every stop of a finalized route: the
// historical day averages 3 days before, on, and 3 days after the arrival
// date, per variable. Stops are annotated concurrently since their station
// queries are independent; results keep route order. A stop whose city has
// no normals record fails the whole pass with ErrUnknownCity. Sparse history
// (fewer than 10 years behind a query) only adds an advisory warning.
func (s *Service) Annotate(ctx context.Context, stops route.Route, normals NormalsSource) ([]AnnotatedStop, []string, error) {
	// Resolve every station up front so a missing normals record fails the
	// pass before any lookups start.
	stations := make([]string, len(stops))
	for i, stop := range stops {
		rec, err := normals.Get(stop.Country, stop.City)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s in %s", ErrUnknownCity, stop.City, stop.Country)
		}
		stations[i] = rec.StationID
	}

	annotated := make([]AnnotatedStop, len(stops))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		warnings []string
		seen     = make(map[string]struct{})
		firstErr error
	)

	for i, stop := range stops {
		wg.Add(1)
		go func(i int, stop route.Stop, stationID string) {
			defer wg.Done()

			windows, stopWarnings, err := s.stopWindows(ctx, stationID, stop.ArrivalDate)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("weather window for %s: %w", stop.City, err)
				}
				return
			}
			annotated[i] = AnnotatedStop{Stop: stop, Windows: windows}
			// Stops sharing a station repeat the same advisory; keep one.
			for _, w := range stopWarnings {
				if _, dup := seen[w]; dup {
					continue
				}
				seen[w] = struct{}{}
				warnings = append(warnings, w)
			}
		}(i, stop, stations[i])
	}

	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}
	return annotated, warnings, nil
}

// stopWindows builds the per-variable windows around one arrival date.
func (s *Service) stopWindows(ctx context.Context, stationID string, arrival time.Time) (map[Variable]Window, []string, error) {
	var warnings []string
	warned := false

	query := func(date time.Time) (DailyStats, error) {
		stats, err := s.HistoricalDay(ctx, stationID, date.Day(), date.Month())
		if err != nil {
			return DailyStats{}, err
		}
		if stats.AvailableYears < lowConfidenceYears {
			log.Printf("INFO: only %d years of daily history for station %s on %s", stats.AvailableYears, stationID, date.Format("01-02"))
			// One advisory per station, not one per window day.
			if !warned {
				warned = true
				warnings = append(warnings, fmt.Sprintf(
					"Less than %d years of weather data available for station %s.", lowConfidenceYears, stationID))
			}
		}
		return stats, nil
	}

	pre, err := query(arrival.AddDate(0, 0, -windowDayOffset))
	if err != nil {
		return nil, nil, err
	}
	on, err := query(arrival)
	if err != nil {
		return nil, nil, err
	}
	post, err := query(arrival.AddDate(0, 0, windowDayOffset))
	if err != nil {
		return nil, nil, err
	}

	windows := make(map[Variable]Window, len(Variables))
	for _, v := range Variables {
		windows[v] = Window{
			Pre:  Round1(pre.Value(v)),
			On:   Round1(on.Value(v)),
			Post: Round1(post.Value(v)),
		}
	}
	return windows, warnings, nil
}
