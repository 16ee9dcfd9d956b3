package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/roadtrip-planner/internal/catalog"
	"github.com/i474232898/roadtrip-planner/internal/geodata"
	"github.com/i474232898/roadtrip-planner/internal/route"
	"github.com/i474232898/roadtrip-planner/internal/store"
	"github.com/i474232898/roadtrip-planner/internal/weather"
)

var validate = validator.New()

const dateLayout = "2006-01-02"

// annotateTimeout bounds the outbound weather lookups of one finalize call.
const annotateTimeout = 2 * time.Minute

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, cat *catalog.Service, wsvc *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/catalog", func(c *fiber.Ctx) error {
		type countryView struct {
			Country string   `json:"country"`
			Cities  []string `json:"cities"`
		}
		var countries []countryView
		for _, country := range cat.Countries() {
			countries = append(countries, countryView{
				Country: country,
				Cities:  cat.CitiesOf(country),
			})
		}
		return c.JSON(fiber.Map{
			"countries": countries,
			"warnings":  cat.Warnings(),
		})
	})

	v1.Post("/catalog/cities", func(c *fiber.Ctx) error {
		var req cityRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		warnings, err := cat.AddCity(c.UserContext(), req.Country, req.City)
		if err != nil {
			return mapCatalogError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"country":  req.Country,
			"city":     req.City,
			"warnings": warnings,
		})
	})

	v1.Delete("/catalog/cities", func(c *fiber.Ctx) error {
		req := cityRequest{
			Country: c.Query("country"),
			City:    c.Query("city"),
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := cat.RemoveCity(c.UserContext(), req.Country, req.City); err != nil {
			return mapCatalogError(err)
		}
		return c.JSON(fiber.Map{
			"country": req.Country,
			"city":    req.City,
			"removed": true,
		})
	})

	v1.Get("/cities", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"cities": cat.CoordinateTable()})
	})

	v1.Get("/normals", func(c *fiber.Ctx) error {
		req := cityRequest{
			Country: c.Query("country"),
			City:    c.Query("city"),
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		normals, err := cat.NormalsFor(req.Country, req.City)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather normals for requested city")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read normals")
		}
		return c.JSON(normals)
	})

	v1.Get("/map", func(c *fiber.Ctx) error {
		var req mapQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		type mapPoint struct {
			Country string  `json:"country"`
			City    string  `json:"city"`
			Lat     float64 `json:"lat"`
			Lng     float64 `json:"lng"`
			Value   float64 `json:"value"`
		}
		points := make([]mapPoint, 0)
		for _, rec := range cat.CoordinateTable() {
			normals, err := cat.NormalsFor(rec.Country, rec.City)
			if err != nil {
				continue
			}
			monthly, ok := normals.Normals[req.month()]
			if !ok {
				continue
			}
			points = append(points, mapPoint{
				Country: rec.Country,
				City:    rec.City,
				Lat:     rec.Lat,
				Lng:     rec.Lng,
				Value:   monthly.Value(req.variable()),
			})
		}
		return c.JSON(fiber.Map{
			"month":  req.Month,
			"target": req.Target,
			"points": points,
		})
	})

	v1.Post("/route", func(c *fiber.Ctx) error {
		var req routeRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		tour, err := route.Build(req.startDate, req.StartCity, cat.CoordinateTable())
		if err != nil {
			if errors.Is(err, route.ErrInvalidStart) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to build route")
		}

		return c.JSON(fiber.Map{
			"startDate": req.StartDate,
			"startCity": req.StartCity,
			"stops":     stopViews(tour),
		})
	})

	v1.Post("/route/finalize", func(c *fiber.Ctx) error {
		var req finalizeRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		base, err := route.Build(req.startDate, req.StartCity, cat.CoordinateTable())
		if err != nil {
			if errors.Is(err, route.ErrInvalidStart) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to build route")
		}

		final, err := route.ApplyEdits(base, req.edits())
		if err != nil {
			if errors.Is(err, route.ErrInvalidEdit) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to apply edits")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), annotateTimeout)
		defer cancel()

		annotated, warnings, err := wsvc.Annotate(ctx, final, cat.Normals())
		if err != nil {
			switch {
			case errors.Is(err, weather.ErrUnknownCity):
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			case errors.Is(err, weather.ErrDataUnavailable):
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "failed to annotate route")
			}
		}

		return c.JSON(fiber.Map{
			"id":       uuid.NewString(),
			"stops":    annotatedStopViews(annotated),
			"warnings": warnings,
		})
	})
}

// cityRequest identifies one catalog city.
type cityRequest struct {
	Country string `json:"country" validate:"required"`
	City    string `json:"city" validate:"required"`
}

// routeRequest holds the route-building inputs.
type routeRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	StartCity string `json:"start_city" validate:"required"`

	startDate time.Time
}

func (r *routeRequest) bind(c *fiber.Ctx) error {
	if err := c.BodyParser(r); err != nil {
		return err
	}
	if err := validate.Struct(r); err != nil {
		return err
	}
	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date; use YYYY-MM-DD")
	}
	r.startDate = start
	return nil
}

// finalizeRequest adds the pending table edits to the route inputs.
type finalizeRequest struct {
	routeRequest
	DeletedRows []int             `json:"deleted_rows"`
	EditedCells map[string]string `json:"edited_cells"`
}

func (r *finalizeRequest) bind(c *fiber.Ctx) error {
	if err := c.BodyParser(r); err != nil {
		return err
	}
	if err := validate.Struct(r.routeRequest); err != nil {
		return err
	}
	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date; use YYYY-MM-DD")
	}
	r.startDate = start
	return nil
}

func (r *finalizeRequest) edits() route.PendingEdits {
	return route.PendingEdits{
		DeletedRows: r.DeletedRows,
		EditedCells: r.EditedCells,
	}
}

// mapQuery selects one variable and month for the map layer.
type mapQuery struct {
	Month  int    `validate:"required,gte=1,lte=12"`
	Target string `validate:"required,oneof=tavg tmin tmax prcp"`
}

func (q *mapQuery) bind(c *fiber.Ctx) error {
	q.Month = c.QueryInt("month")
	q.Target = c.Query("target")
	return validate.Struct(q)
}

func (q mapQuery) month() time.Month          { return time.Month(q.Month) }
func (q mapQuery) variable() weather.Variable { return weather.Variable(q.Target) }

// stopView is one route-table row as presented to the client.
type stopView struct {
	City              string `json:"city"`
	Country           string `json:"country"`
	EstimatedDistance string `json:"estimatedDistance"`
	TravelDays        int    `json:"travelDays"`
	ArrivalDate       string `json:"arrivalDate"`
}

func stopViews(tour route.Route) []stopView {
	views := make([]stopView, len(tour))
	for i, stop := range tour {
		views[i] = stopView{
			City:              stop.City,
			Country:           stop.Country,
			EstimatedDistance: distanceDisplay(tour, i),
			TravelDays:        stop.TravelDaysToNext,
			ArrivalDate:       stop.ArrivalDate.Format(dateLayout),
		}
	}
	return views
}

// annotatedStopView adds the formatted weather-window strings.
type annotatedStopView struct {
	stopView
	Weather map[string]string `json:"weather"`
}

func annotatedStopViews(stops []weather.AnnotatedStop) []annotatedStopView {
	tour := make(route.Route, len(stops))
	for i, s := range stops {
		tour[i] = s.Stop
	}

	views := make([]annotatedStopView, len(stops))
	for i, s := range stops {
		windows := make(map[string]string, len(s.Windows))
		for v, w := range s.Windows {
			windows[string(v)] = w.Format()
		}
		views[i] = annotatedStopView{
			stopView: stopView{
				City:              s.City,
				Country:           s.Country,
				EstimatedDistance: distanceDisplay(tour, i),
				TravelDays:        s.TravelDaysToNext,
				ArrivalDate:       s.ArrivalDate.Format(dateLayout),
			},
			Weather: windows,
		}
	}
	return views
}

// distanceDisplay renders the outgoing leg as "<rounded> km"; the final stop
// has no outgoing leg.
func distanceDisplay(tour route.Route, i int) string {
	if i == len(tour)-1 {
		return "-"
	}
	return fmt.Sprintf("%.0f km", tour[i].DistanceToNextKM)
}

func mapCatalogError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrCityExists):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrCityNotInCatalog),
		errors.Is(err, geodata.ErrCityNotFound),
		errors.Is(err, geodata.ErrNoGeodata):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
