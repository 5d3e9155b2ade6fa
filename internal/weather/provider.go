package weather

import "context"

// Geocoder turns a ZIP code into candidate places (zippopotam.us).
type Geocoder interface {
	LookupZIP(ctx context.Context, zip string) ([]Place, error)
}

// Source abstracts the National Weather Service endpoints used by the
// four-stage fetch.
type Source interface {
	GridPoint(ctx context.Context, lat, lon float64) (GridReference, error)
	Forecast(ctx context.Context, grid GridReference) ([]ForecastSample, error)
	Stations(ctx context.Context, stationsURL string) ([]string, error)
	LatestObservation(ctx context.Context, stationID string) (ObservationSample, error)
}
