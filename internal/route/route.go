package route

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/i474232898/roadtrip-planner/internal/geo"
	"github.com/i474232898/roadtrip-planner/internal/geodata"
)

var (
	// ErrInvalidStart is returned when the requested starting city is not
	// part of the supplied coordinate table.
	ErrInvalidStart = errors.New("start city not in coordinate table")

	// ErrInvalidEdit is returned when a table edit references a row or
	// column that does not exist, or carries a value of the wrong type.
	ErrInvalidEdit = errors.New("invalid route table edit")
)

// Stop is one city's entry in the ordered travel sequence. DistanceToNextKM
// and TravelDaysToNext describe the outgoing leg; both are zero on the final
// stop.
type Stop struct {
	Country          string    `json:"country"`
	City             string    `json:"city"`
	Lat              float64   `json:"lat"`
	Lng              float64   `json:"lng"`
	DistanceToNextKM float64   `json:"distanceToNextKm"`
	TravelDaysToNext int       `json:"travelDaysToNext"`
	ArrivalDate      time.Time `json:"arrivalDate"`
}

// Route is an ordered sequence of stops; position is the visiting order.
type Route []Stop

// Cities returns the visiting order as city names.
func (r Route) Cities() []string {
	names := make([]string, len(r))
	for i, s := range r {
		names[i] = s.City
	}
	return names
}

// TotalDistanceKM sums the outgoing legs of all stops but the last.
func (r Route) TotalDistanceKM() float64 {
	var total float64
	for i := 0; i+1 < len(r); i++ {
		total += r[i].DistanceToNextKM
	}
	return total
}

// Build creates a route through all supplied cities starting at startCity,
// repeatedly choosing the nearest unvisited city by great-circle distance.
// Greedy nearest-neighbor only; there is no optimality guarantee. When two
// unvisited cities are equidistant the lexically smaller city name wins, so
// the tour is deterministic for a given input set.
func Build(startDate time.Time, startCity string, cities []geodata.CityCoordinate) (Route, error) {
	start := -1
	for i, c := range cities {
		if c.City == startCity {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStart, startCity)
	}

	unvisited := make(map[int]struct{}, len(cities))
	for i := range cities {
		unvisited[i] = struct{}{}
	}
	delete(unvisited, start)

	tour := make(Route, 0, len(cities))
	tour = append(tour, newStop(cities[start], startDate))
	current := start

	for len(unvisited) > 0 {
		next := -1
		best := math.Inf(1)
		for i := range unvisited {
			d := geo.DistanceKM(cities[current].Coordinates(), cities[i].Coordinates())
			if d < best || (d == best && next != -1 && cities[i].City < cities[next].City) {
				best = d
				next = i
			}
		}

		// The computed leg belongs to the stop we are leaving.
		tour[len(tour)-1].DistanceToNextKM = best
		tour = append(tour, newStop(cities[next], startDate))

		delete(unvisited, next)
		current = next
	}

	return tour, nil
}

func newStop(c geodata.CityCoordinate, arrival time.Time) Stop {
	return Stop{
		Country:     c.Country,
		City:        c.City,
		Lat:         c.Lat,
		Lng:         c.Lng,
		ArrivalDate: arrival,
	}
}
