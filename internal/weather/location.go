package weather

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Resolver turns user input into a validated Location.
type Resolver struct {
	geocoder Geocoder
	logger   *slog.Logger
}

// NewResolver creates a Resolver backed by the given geocoder.
func NewResolver(geocoder Geocoder, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		geocoder: geocoder,
		logger:   logger,
	}
}

// Resolve returns the Location for q. A ZIP code takes precedence over
// coordinates. Only the ZIP path touches the network.
func (r *Resolver) Resolve(ctx context.Context, q LocationQuery) (Location, error) {
	switch {
	case q.ZIP != nil:
		return r.resolveZIP(ctx, *q.ZIP)
	case q.Latitude != nil && q.Longitude != nil:
		lat, lon := *q.Latitude, *q.Longitude
		if err := validateCoordinates(lat, lon); err != nil {
			return Location{}, err
		}
		return Location{
			Latitude:  lat,
			Longitude: lon,
			Name:      fmt.Sprintf("Coordinates (%.2f, %.2f)", lat, lon),
		}, nil
	default:
		return Location{}, ErrLocationNotFound
	}
}

func (r *Resolver) resolveZIP(ctx context.Context, zip string) (Location, error) {
	if err := validate.Var(zip, "len=5,number"); err != nil {
		return Location{}, fmt.Errorf("%w: %s", ErrInvalidZIP, zip)
	}

	places, err := r.geocoder.LookupZIP(ctx, zip)
	if err != nil {
		return Location{}, err
	}
	if len(places) == 0 {
		return Location{}, ErrLocationNotFound
	}

	place := places[0]
	lat, err := strconv.ParseFloat(place.Latitude, 64)
	if err != nil {
		return Location{}, fmt.Errorf("%w: latitude %q: %v", ErrParse, place.Latitude, err)
	}
	lon, err := strconv.ParseFloat(place.Longitude, 64)
	if err != nil {
		return Location{}, fmt.Errorf("%w: longitude %q: %v", ErrParse, place.Longitude, err)
	}
	if err := validateCoordinates(lat, lon); err != nil {
		return Location{}, err
	}

	r.logger.Debug("resolved zip", "zip", zip, "place", place.Name, "lat", lat, "lon", lon)

	return Location{
		Latitude:  lat,
		Longitude: lon,
		Name:      place.Name,
	}, nil
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return ErrInvalidCoordinates
	}
	if err := validate.Struct(Location{Latitude: lat, Longitude: lon}); err != nil {
		return ErrInvalidCoordinates
	}
	return nil
}
