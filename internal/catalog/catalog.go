// Package catalog owns the session's shared state: the persisted city
// catalog, the routable coordinate table derived from it, and the per-city
// normals cache. All mutation goes through this service; readers get copies.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/i474232898/roadtrip-planner/internal/geodata"
	"github.com/i474232898/roadtrip-planner/internal/store"
	"github.com/i474232898/roadtrip-planner/internal/weather"
)

var (
	// ErrCityExists is returned when adding a city already in the catalog.
	ErrCityExists = errors.New("city already in catalog")

	// ErrCityNotInCatalog is returned when removing a city the catalog does
	// not contain.
	ErrCityNotInCatalog = errors.New("city not in catalog")
)

// Service maintains the catalog, coordinate table, and normals cache and
// keeps them mutually consistent. Single writer; concurrent readers.
type Service struct {
	mu sync.RWMutex

	path    string
	geodata *geodata.Source
	weather *weather.Service

	cities    map[string][]string // persisted catalog: country -> city names
	available map[string][]string // every city a country's geodata offers
	table     []geodata.CityCoordinate
	normals   *store.NormalsCache
	warnings  []string
}

// NewService creates a Service persisting the catalog at path. Call Load
// before serving reads.
func NewService(path string, src *geodata.Source, wsvc *weather.Service, normals *store.NormalsCache) *Service {
	return &Service{
		path:      path,
		geodata:   src,
		weather:   wsvc,
		cities:    make(map[string][]string),
		available: make(map[string][]string),
		normals:   normals,
	}
}

// Load reads the persisted catalog, matches every catalog city against its
// country's geodata, and fetches normals for each matched city. Cities whose
// station has no usable data are kept in the catalog but excluded from the
// coordinate table; every degradation becomes an advisory warning instead of
// a failure.
func (s *Service) Load(ctx context.Context) error {
	catalog, err := loadCatalogFile(s.path)
	if err != nil {
		return err
	}

	// A reload spends minutes on outbound normals fetches, so the whole
	// next generation of state is built into locals first and only swapped
	// in under the lock. Readers keep serving the previous generation.
	available := make(map[string][]string)
	var (
		table    []geodata.CityCoordinate
		entries  []store.NormalsEntry
		warnings []string
	)

	for _, country := range sortedKeys(catalog) {
		records, err := s.geodata.Load(country)
		if err != nil {
			log.Printf("INFO: skipping %s: %v", country, err)
			warnings = append(warnings, fmt.Sprintf("No geodata available for %s.", country))
			continue
		}

		byCity := make(map[string]geodata.CityCoordinate, len(records))
		names := make([]string, 0, len(records))
		for _, rec := range records {
			byCity[rec.City] = rec
			names = append(names, rec.City)
		}
		available[country] = names

		var unmatched []string
		for _, city := range catalog[country] {
			rec, ok := byCity[city]
			if !ok {
				unmatched = append(unmatched, city)
				continue
			}
			normals, cityWarnings, err := s.fetchCity(ctx, rec)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("No weather data available for %s in %s.", city, country))
				log.Printf("INFO: excluding %s, %s from routing: %v", city, country, err)
				continue
			}
			warnings = append(warnings, cityWarnings...)
			entries = append(entries, store.NormalsEntry{Country: rec.Country, City: rec.City, Normals: normals})
			table = append(table, rec)
		}

		matched := len(catalog[country]) - len(unmatched)
		if len(unmatched) > 0 {
			log.Printf("ERROR: %s - cities matched with geodata: %d/%d. Please review: %s",
				country, matched, len(catalog[country]), strings.Join(unmatched, ", "))
			warnings = append(warnings, fmt.Sprintf("%s: no geodata for %s.", country, strings.Join(unmatched, ", ")))
		} else {
			log.Printf("INFO: %s - cities matched with geodata: %d/%d", country, matched, len(catalog[country]))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cities = catalog
	s.available = available
	s.table = table
	s.warnings = warnings
	s.normals.ReplaceAll(entries)
	return nil
}

// fetchCity fetches the normals record for one city without touching service
// state. An empty record means the station has no usable data at all.
func (s *Service) fetchCity(ctx context.Context, rec geodata.CityCoordinate) (weather.CityNormals, []string, error) {
	normals, warnings, err := s.weather.NormalsForCity(ctx, rec)
	if err != nil {
		return weather.CityNormals{}, nil, err
	}
	if normals.Empty() {
		return weather.CityNormals{}, nil, fmt.Errorf("%w: station %s has no data for %s", weather.ErrDataUnavailable, normals.StationID, rec.City)
	}
	return normals, warnings, nil
}

// loadCityLocked wires one fetched city into the coordinate table and normals
// cache. Callers hold the write lock.
func (s *Service) loadCityLocked(ctx context.Context, rec geodata.CityCoordinate) error {
	normals, warnings, err := s.fetchCity(ctx, rec)
	if err != nil {
		return err
	}
	s.warnings = append(s.warnings, warnings...)
	s.normals.Put(rec.Country, rec.City, normals)
	s.table = append(s.table, rec)
	return nil
}

// AddCity appends a city to the persisted catalog and wires it into the
// coordinate table and normals cache. A city whose station has no weather
// data at all still enters the catalog but stays unroutable, with a warning.
// Hard failures (unknown city, persistence error) leave all state untouched.
func (s *Service) AddCity(ctx context.Context, country, city string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.cities[country] {
		if existing == city {
			return nil, fmt.Errorf("%w: %s in %s", ErrCityExists, city, country)
		}
	}

	rec, err := s.geodata.Lookup(country, city)
	if err != nil {
		return nil, err
	}

	updated := copyCatalog(s.cities)
	updated[country] = append(updated[country], city)
	if err := saveCatalogFile(s.path, updated); err != nil {
		return nil, err
	}
	s.cities = updated

	var warnings []string
	if err := s.loadCityLocked(ctx, rec); err != nil {
		warnings = append(warnings, fmt.Sprintf("No weather data available for %s in %s.", city, country))
		log.Printf("INFO: %s, %s added to catalog but excluded from routing: %v", city, country, err)
	}
	return warnings, nil
}

// RemoveCity drops a city from the persisted catalog, the coordinate table,
// and the normals cache.
func (s *Service) RemoveCity(ctx context.Context, country, city string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cities, ok := s.cities[country]
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrCityNotInCatalog, city, country)
	}
	idx := -1
	for i, existing := range cities {
		if existing == city {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s in %s", ErrCityNotInCatalog, city, country)
	}

	updated := copyCatalog(s.cities)
	updated[country] = append(append([]string{}, cities[:idx]...), cities[idx+1:]...)
	if err := saveCatalogFile(s.path, updated); err != nil {
		return err
	}
	s.cities = updated

	s.normals.Delete(country, city)
	for i, rec := range s.table {
		if rec.Country == country && rec.City == city {
			s.table = append(s.table[:i], s.table[i+1:]...)
			break
		}
	}
	return nil
}

// Countries lists catalog countries sorted by name.
func (s *Service) Countries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.cities)
}

// CitiesOf returns the catalog cities of one country, sorted.
func (s *Service) CitiesOf(country string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cities := append([]string{}, s.cities[country]...)
	sort.Strings(cities)
	return cities
}

// AvailableCities returns every city the country's geodata offers, for
// pick-lists when adding cities.
func (s *Service) AvailableCities(country string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.available[country]...)
}

// CoordinateTable returns the routable cities.
func (s *Service) CoordinateTable() []geodata.CityCoordinate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]geodata.CityCoordinate{}, s.table...)
}

// Normals exposes the normals cache for annotation lookups.
func (s *Service) Normals() *store.NormalsCache {
	return s.normals
}

// NormalsFor returns the cached normals record for one city.
func (s *Service) NormalsFor(country, city string) (weather.CityNormals, error) {
	return s.normals.Get(country, city)
}

// Warnings returns the advisory warnings collected since the last Load.
func (s *Service) Warnings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.warnings...)
}

func copyCatalog(src map[string][]string) map[string][]string {
	dst := make(map[string][]string, len(src))
	for country, cities := range src {
		dst[country] = append([]string{}, cities...)
	}
	return dst
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
