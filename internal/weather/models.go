package weather

import (
	"time"
)

// Variable identifies one of the tracked climate variables.
type Variable string

const (
	VarTavg Variable = "tavg"
	VarTmin Variable = "tmin"
	VarTmax Variable = "tmax"
	VarPrcp Variable = "prcp"
	VarSnow Variable = "snow"
)

// Variables lists the tracked variables in display order.
var Variables = []Variable{VarTavg, VarTmin, VarTmax, VarPrcp, VarSnow}

// Station is a fixed weather observation point.
type Station struct {
	ID   string  `json:"id"`
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// MonthlyNormal holds the long-run averages of one calendar month.
type MonthlyNormal struct {
	Tavg float64 `json:"tavg"`
	Tmin float64 `json:"tmin"`
	Tmax float64 `json:"tmax"`
	Prcp float64 `json:"prcp"`
	Snow float64 `json:"snow"`
}

// Value returns the normal for one variable.
func (m MonthlyNormal) Value(v Variable) float64 {
	switch v {
	case VarTavg:
		return m.Tavg
	case VarTmin:
		return m.Tmin
	case VarTmax:
		return m.Tmax
	case VarPrcp:
		return m.Prcp
	case VarSnow:
		return m.Snow
	}
	return 0
}

// CityNormals is the per-city climate record: the nearest station and its
// monthly normals over the configured climate period. Missing is set when the
// station had no published normals; the Normals map then holds substituted
// averages, or nothing at all, in which case the city is not routable.
type CityNormals struct {
	StationID string                       `json:"stationId"`
	Normals   map[time.Month]MonthlyNormal `json:"normals"`
	Timespan  string                       `json:"timespan"`
	Missing   bool                         `json:"missing"`
}

// Empty reports whether no month has data at all.
func (c CityNormals) Empty() bool {
	return len(c.Normals) == 0
}

// DailyStats is the mean of one calendar day's observations across all years
// of the climate period, plus how many years actually had data.
type DailyStats struct {
	Tavg float64 `json:"tavg"`
	Tmin float64 `json:"tmin"`
	Tmax float64 `json:"tmax"`
	Prcp float64 `json:"prcp"`
	Snow float64 `json:"snow"`

	AvailableYears int `json:"availableYears"`
	MinYear        int `json:"minYear,omitempty"`
	MaxYear        int `json:"maxYear,omitempty"`
}

// Value returns the mean for one variable.
func (d DailyStats) Value(v Variable) float64 {
	switch v {
	case VarTavg:
		return d.Tavg
	case VarTmin:
		return d.Tmin
	case VarTmax:
		return d.Tmax
	case VarPrcp:
		return d.Prcp
	case VarSnow:
		return d.Snow
	}
	return 0
}
