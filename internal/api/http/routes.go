package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/nws-weather/internal/common"
	"github.com/i474232898/nws-weather/internal/metrics"
	"github.com/i474232898/nws-weather/internal/output"
	"github.com/i474232898/nws-weather/internal/weather"
)

var validate = validator.New()

// LocationResolver turns a query into a Location.
type LocationResolver interface {
	Resolve(ctx context.Context, q weather.LocationQuery) (weather.Location, error)
}

// WeatherFetcher fetches current conditions for a Location.
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, loc weather.Location) (weather.WeatherResult, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, resolver LocationResolver, fetcher WeatherFetcher, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	v1 := app.Group("/api/v1")

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		q, opts, err := parseCurrentQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx := c.UserContext()

		loc, err := resolver.Resolve(ctx, q)
		if err != nil {
			metrics.Requests.WithLabelValues("api", "error").Inc()
			return err
		}

		result, err := fetcher.FetchWeather(ctx, loc)
		if err != nil {
			metrics.Requests.WithLabelValues("api", "error").Inc()
			logger.Warn("weather fetch failed", "location", loc.Key(), "error", err)
			return err
		}
		metrics.Requests.WithLabelValues("api", "ok").Inc()

		body, err := output.Render(loc, result, opts)
		if err != nil {
			return err
		}

		if opts.Format == output.FormatPlain {
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		} else {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		}
		return c.SendString(body)
	})
}

// currentQuery holds the raw query parameters of the current-weather endpoint.
type currentQuery struct {
	ZIP string `validate:"required_without_all=Lat Lon,excluded_with=Lat Lon"`
	Lat string `validate:"required_with=Lon,omitempty,numeric"`
	Lon string `validate:"required_with=Lat,omitempty,numeric"`
}

func parseCurrentQuery(c *fiber.Ctx) (weather.LocationQuery, output.Options, error) {
	raw := currentQuery{
		ZIP: c.Query("zip"),
		Lat: c.Query("lat"),
		Lon: c.Query("lon"),
	}
	if err := validate.Struct(raw); err != nil {
		return weather.LocationQuery{}, output.Options{}, errors.New("provide either zip or both lat and lon")
	}

	var q weather.LocationQuery
	if raw.ZIP != "" {
		q.ZIP = common.Ptr(raw.ZIP)
	} else {
		lat, err := strconv.ParseFloat(raw.Lat, 64)
		if err != nil {
			return q, output.Options{}, fmt.Errorf("invalid lat: %s", raw.Lat)
		}
		lon, err := strconv.ParseFloat(raw.Lon, 64)
		if err != nil {
			return q, output.Options{}, fmt.Errorf("invalid lon: %s", raw.Lon)
		}
		q.Latitude, q.Longitude = &lat, &lon
	}

	opts := output.Options{
		Unit:     output.Fahrenheit,
		Icons:    output.IconsNerdFont,
		Format:   output.FormatJSON,
		Detailed: c.QueryBool("detailed"),
	}

	var err error
	if s := c.Query("unit"); s != "" {
		if opts.Unit, err = output.ParseUnit(s); err != nil {
			return q, opts, err
		}
	}
	if s := c.Query("icons"); s != "" {
		if opts.Icons, err = output.ParseIconSet(s); err != nil {
			return q, opts, err
		}
	}
	if s := c.Query("format"); s != "" {
		if opts.Format, err = output.ParseFormat(s); err != nil {
			return q, opts, err
		}
	}

	return q, opts, nil
}

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, weather.ErrInvalidZIP), errors.Is(err, weather.ErrInvalidCoordinates):
		return fiber.StatusBadRequest
	case errors.Is(err, weather.ErrLocationNotFound), errors.Is(err, weather.ErrNoWeatherData):
		return fiber.StatusNotFound
	case errors.Is(err, weather.ErrCircuitOpen):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadGateway
	}
}
