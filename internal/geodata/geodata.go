package geodata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/roadtrip-planner/internal/geo"
)

var (
	// ErrNoGeodata is returned when a country has no CSV file in the
	// configured geodata directory.
	ErrNoGeodata = errors.New("no geodata for country")

	// ErrCityNotFound is returned when a city has no row in its country's
	// geodata and no online fallback produced coordinates.
	ErrCityNotFound = errors.New("city not found in geodata")
)

// stateSuffixCountry is the one country whose city names are ambiguous enough
// that the state code is folded into the city name (e.g. "Springfield,IL").
const stateSuffixCountry = "United States of America"

// CityCoordinate is one row of the routable coordinate table.
type CityCoordinate struct {
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Coordinates returns the record's position as a geo pair.
func (c CityCoordinate) Coordinates() geo.Coordinates {
	return geo.Coordinates{Lat: c.Lat, Lng: c.Lng}
}

// Source reads per-country city coordinates from CSV files named
// "<Country>.csv". When a city is missing from the CSV and a geocoder API key
// is configured, the source falls back to an online address lookup.
type Source struct {
	dir         string
	geocoderKey string
}

// NewSource creates a Source over the given directory. geocoderKey may be
// empty, in which case the online fallback is disabled.
func NewSource(dir, geocoderKey string) *Source {
	if geocoderKey != "" {
		geocoder.ApiKey = geocoderKey
	}
	return &Source{dir: dir, geocoderKey: geocoderKey}
}

// Countries lists the countries that have a geodata file, sorted by name.
func (s *Source) Countries() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read geodata dir: %w", err)
	}

	var countries []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		countries = append(countries, strings.TrimSuffix(e.Name(), ".csv"))
	}
	sort.Strings(countries)
	return countries, nil
}

// Load reads every city record for one country. City names are returned in
// sorted order so callers can present them directly.
func (s *Source) Load(country string) ([]CityCoordinate, error) {
	path := filepath.Join(s.dir, country+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoGeodata, country)
		}
		return nil, fmt.Errorf("open geodata for %s: %w", country, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read geodata header for %s: %w", country, err)
	}
	cols := columnIndex(header)
	for _, required := range []string{"city", "lat", "lng"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("geodata for %s is missing column %q", country, required)
		}
	}
	stateCol, hasState := cols["state_id"]

	// Ragged rows are possible with FieldsPerRecord disabled; anything too
	// short to index is skipped like any other malformed row.
	minFields := maxIndex(cols["city"], cols["lat"], cols["lng"]) + 1
	if hasState && stateCol >= minFields {
		minFields = stateCol + 1
	}

	var records []CityCoordinate
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		if len(row) < minFields {
			continue
		}
		lat, latErr := strconv.ParseFloat(row[cols["lat"]], 64)
		lng, lngErr := strconv.ParseFloat(row[cols["lng"]], 64)
		if latErr != nil || lngErr != nil {
			continue
		}

		city := row[cols["city"]]
		if country == stateSuffixCountry && hasState {
			city = city + "," + row[stateCol]
		}

		records = append(records, CityCoordinate{
			Country: country,
			City:    city,
			Lat:     lat,
			Lng:     lng,
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].City < records[j].City })
	return records, nil
}

// Lookup returns the coordinate record for one city, consulting the online
// geocoder when the CSV has no matching row.
func (s *Source) Lookup(country, city string) (CityCoordinate, error) {
	records, err := s.Load(country)
	if err != nil {
		return CityCoordinate{}, err
	}
	for _, rec := range records {
		if rec.City == city {
			return rec, nil
		}
	}

	if s.geocoderKey != "" {
		if rec, err := s.geocode(country, city); err == nil {
			return rec, nil
		}
	}

	return CityCoordinate{}, fmt.Errorf("%w: %s in %s", ErrCityNotFound, city, country)
}

func (s *Source) geocode(country, city string) (CityCoordinate, error) {
	addr := geocoder.Address{
		City:    strings.SplitN(city, ",", 2)[0],
		Country: country,
	}
	loc, err := geocoder.Geocoding(addr)
	if err != nil {
		return CityCoordinate{}, fmt.Errorf("geocode %s, %s: %w", city, country, err)
	}
	return CityCoordinate{
		Country: country,
		City:    city,
		Lat:     loc.Latitude,
		Lng:     loc.Longitude,
	}, nil
}

func maxIndex(indexes ...int) int {
	max := 0
	for _, i := range indexes {
		if i > max {
			max = i
		}
	}
	return max
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	return cols
}
