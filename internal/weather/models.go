package weather

import "fmt"

// Location is a resolved place we fetch weather for.
// Latitude/Longitude are validated on construction and never mutated.
type Location struct {
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`
	Name      string
}

// Key returns a canonical string key for log fields and metrics labels.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f,%.4f", l.Latitude, l.Longitude)
}

// LocationQuery holds the user supplied location inputs. Nil means not given.
type LocationQuery struct {
	ZIP       *string
	Latitude  *float64
	Longitude *float64
}

// Place is a single geocoder match, coordinates still in their wire form.
type Place struct {
	Name      string
	Latitude  string
	Longitude string
}

// GridReference addresses forecast data for one NWS grid cell.
type GridReference struct {
	OfficeID               string
	GridX                  int
	GridY                  int
	ObservationStationsURL string
}

// TemperatureUnit is the unit a forecast period reports in.
type TemperatureUnit string

const (
	Fahrenheit TemperatureUnit = "F"
	Celsius    TemperatureUnit = "C"
)

// ForecastSample is one forecast period. Only the first period is used.
type ForecastSample struct {
	Temperature     int
	TemperatureUnit TemperatureUnit
	ShortCondition  string
}

// ObservationSample is the latest station reading. Any field may be nil
// when the station did not report it.
type ObservationSample struct {
	TemperatureC     *float64
	HumidityPct      *float64
	WindSpeedMS      *float64
	WindDirectionDeg *float64
}

// WeatherResult is the merged view handed to output rendering.
// TemperatureC is always set; the optional fields are only populated from a
// successful observation.
type WeatherResult struct {
	TemperatureC     int
	Condition        string
	HumidityPct      *float64
	WindSpeedMS      *float64
	WindDirectionDeg *float64
}
