package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/roadtrip-planner/internal/weather"
)

// MeteostatProvider implements the weather provider interfaces against the
// Meteostat JSON API: nearest-station lookup, station climate normals, and
// daily historical records over the configured climate period.
type MeteostatProvider struct {
	name      string
	apiKey    string
	baseURL   string
	startYear int
	endYear   int
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

// NewMeteostatProvider creates a provider for the climate period
// [startYear, endYear].
func NewMeteostatProvider(client *http.Client, apiKey string, startYear, endYear int) *MeteostatProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "meteostat",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &MeteostatProvider{
		name:      "meteostat",
		apiKey:    apiKey,
		baseURL:   "https://meteostat.p.rapidapi.com",
		startYear: startYear,
		endYear:   endYear,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (p *MeteostatProvider) Name() string {
	return p.name
}

// Timespan returns the climate period label, e.g. "1991-2020".
func (p *MeteostatProvider) Timespan() string {
	return fmt.Sprintf("%d-%d", p.startYear, p.endYear)
}

func (p *MeteostatProvider) get(ctx context.Context, path string, values url.Values, out interface{}) error {
	if p.apiKey == "" {
		return fmt.Errorf("meteostat api key is not configured")
	}

	header := http.Header{}
	header.Set("x-rapidapi-key", p.apiKey)
	header.Set("x-rapidapi-host", "meteostat.p.rapidapi.com")

	u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
	resp, err := getWithResilience(ctx, p.httpCfg, p.circuit, u, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}

// NearbyStation returns the station closest to the given coordinates.
func (p *MeteostatProvider) NearbyStation(ctx context.Context, lat, lng float64) (weather.Station, error) {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", lat))
	values.Set("lon", fmt.Sprintf("%f", lng))
	values.Set("limit", "1")

	var payload struct {
		Data []struct {
			ID   string `json:"id"`
			Name struct {
				En string `json:"en"`
			} `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"data"`
	}
	if err := p.get(ctx, "/stations/nearby", values, &payload); err != nil {
		return weather.Station{}, err
	}
	if len(payload.Data) == 0 {
		return weather.Station{}, fmt.Errorf("%w: no station near %f,%f", weather.ErrDataUnavailable, lat, lng)
	}

	s := payload.Data[0]
	return weather.Station{
		ID:   s.ID,
		Name: s.Name.En,
		Lat:  s.Latitude,
		Lng:  s.Longitude,
	}, nil
}

// Normals fetches the station's published monthly normals for the climate
// period. An empty map without error means the station publishes none.
func (p *MeteostatProvider) Normals(ctx context.Context, stationID string) (map[time.Month]weather.MonthlyNormal, error) {
	values := url.Values{}
	values.Set("station", stationID)
	values.Set("start", fmt.Sprintf("%d", p.startYear))
	values.Set("end", fmt.Sprintf("%d", p.endYear))

	var payload struct {
		Data []struct {
			Month int      `json:"month"`
			Tavg  *float64 `json:"tavg"`
			Tmin  *float64 `json:"tmin"`
			Tmax  *float64 `json:"tmax"`
			Prcp  *float64 `json:"prcp"`
			Snow  *float64 `json:"snow"`
		} `json:"data"`
	}
	if err := p.get(ctx, "/climate/normals", values, &payload); err != nil {
		return nil, err
	}

	normals := make(map[time.Month]weather.MonthlyNormal, len(payload.Data))
	for _, row := range payload.Data {
		if row.Month < 1 || row.Month > 12 {
			continue
		}
		normals[time.Month(row.Month)] = weather.MonthlyNormal{
			Tavg: deref(row.Tavg),
			Tmin: deref(row.Tmin),
			Tmax: deref(row.Tmax),
			Prcp: deref(row.Prcp),
			Snow: deref(row.Snow),
		}
	}
	return normals, nil
}

// dailyRow is one daily record from the /stations/daily endpoint.
type dailyRow struct {
	Date string   `json:"date"`
	Tavg *float64 `json:"tavg"`
	Tmin *float64 `json:"tmin"`
	Tmax *float64 `json:"tmax"`
	Prcp *float64 `json:"prcp"`
	Snow *float64 `json:"snow"`
}

func (p *MeteostatProvider) fetchDailyRange(ctx context.Context, stationID string, start, end time.Time) ([]dailyRow, error) {
	values := url.Values{}
	values.Set("station", stationID)
	values.Set("start", start.Format("2006-01-02"))
	values.Set("end", end.Format("2006-01-02"))

	var payload struct {
		Data []dailyRow `json:"data"`
	}
	if err := p.get(ctx, "/stations/daily", values, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// HistoricalDay returns the mean of one calendar day's observations across
// every year of the climate period. Years where the date does not exist
// (Feb 29 outside leap years) are skipped.
func (p *MeteostatProvider) HistoricalDay(ctx context.Context, stationID string, day int, month time.Month) (weather.DailyStats, error) {
	var rows []dailyRow
	for year := p.startYear; year < p.endYear; year++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if date.Day() != day || date.Month() != month {
			continue
		}
		yearRows, err := p.fetchDailyRange(ctx, stationID, date, date)
		if err != nil {
			return weather.DailyStats{}, err
		}
		rows = append(rows, yearRows...)
	}
	return meanDailies(rows), nil
}

// HistoricalMonth returns the mean over every daily observation of one
// calendar month across all years of the climate period.
func (p *MeteostatProvider) HistoricalMonth(ctx context.Context, stationID string, month time.Month) (weather.DailyStats, error) {
	var rows []dailyRow
	for year := p.startYear; year < p.endYear; year++ {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		yearRows, err := p.fetchDailyRange(ctx, stationID, first, last)
		if err != nil {
			return weather.DailyStats{}, err
		}
		rows = append(rows, yearRows...)
	}

	stats := meanDailies(rows)
	stats.AvailableYears = distinctYears(rows)
	return stats, nil
}

// meanDailies averages the rows per variable, skipping missing values the
// way the source data does. AvailableYears is the row count, matching the
// one-row-per-year shape of single-day queries.
func meanDailies(rows []dailyRow) weather.DailyStats {
	var stats weather.DailyStats
	var sums [5]float64
	var counts [5]int

	for _, row := range rows {
		for i, v := range []*float64{row.Tavg, row.Tmin, row.Tmax, row.Prcp, row.Snow} {
			if v != nil {
				sums[i] += *v
				counts[i]++
			}
		}
		if year := rowYear(row); year > 0 {
			if stats.MinYear == 0 || year < stats.MinYear {
				stats.MinYear = year
			}
			if year > stats.MaxYear {
				stats.MaxYear = year
			}
		}
	}

	means := [5]float64{}
	for i := range sums {
		if counts[i] > 0 {
			means[i] = sums[i] / float64(counts[i])
		}
	}
	stats.Tavg, stats.Tmin, stats.Tmax, stats.Prcp, stats.Snow = means[0], means[1], means[2], means[3], means[4]
	stats.AvailableYears = len(rows)
	return stats
}

func distinctYears(rows []dailyRow) int {
	years := make(map[int]struct{})
	for _, row := range rows {
		if y := rowYear(row); y > 0 {
			years[y] = struct{}{}
		}
	}
	return len(years)
}

func rowYear(row dailyRow) int {
	t, err := time.Parse("2006-01-02", row.Date)
	if err != nil {
		return 0
	}
	return t.Year()
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
