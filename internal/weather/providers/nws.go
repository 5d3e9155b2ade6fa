package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/nws-weather/internal/weather"
)

// API Docs: https://www.weather.gov/documentation/services-web-api
// Sample requests:
// - https://api.weather.gov/points/39.1154,-107.6584
// - https://api.weather.gov/gridpoints/GJT/98,117/forecast
// - https://api.weather.gov/stations/KASE/observations/latest
const DefaultNWSBaseURL = "https://api.weather.gov"

// NWSProvider implements weather.Source for the National Weather Service.
type NWSProvider struct {
	baseURL string
	client  *Client
}

func NewNWSProvider(client *Client, baseURL string) *NWSProvider {
	if baseURL == "" {
		baseURL = DefaultNWSBaseURL
	}
	return &NWSProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type pointResponse struct {
	Properties struct {
		GridID              string `json:"gridId" validate:"required"`
		GridX               *int   `json:"gridX" validate:"required"`
		GridY               *int   `json:"gridY" validate:"required"`
		ObservationStations string `json:"observationStations" validate:"required"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []struct {
			Temperature     *int    `json:"temperature" validate:"required"`
			TemperatureUnit string  `json:"temperatureUnit" validate:"required"`
			ShortForecast   *string `json:"shortForecast" validate:"required"`
		} `json:"periods" validate:"dive"`
	} `json:"properties"`
}

type stationsResponse struct {
	Features []struct {
		Properties struct {
			StationIdentifier string `json:"stationIdentifier" validate:"required"`
		} `json:"properties"`
	} `json:"features" validate:"dive"`
}

// quantitativeValue is the NWS {"unitCode": ..., "value": ...} wrapper.
// A null or missing value decodes to a nil pointer.
type quantitativeValue struct {
	Value *float64 `json:"value"`
}

type observationResponse struct {
	Properties struct {
		Temperature      *quantitativeValue `json:"temperature"`
		RelativeHumidity *quantitativeValue `json:"relativeHumidity"`
		WindSpeed        *quantitativeValue `json:"windSpeed"`
		WindDirection    *quantitativeValue `json:"windDirection"`
	} `json:"properties"`
}

// GridPoint resolves coordinates to a forecast grid cell.
func (p *NWSProvider) GridPoint(ctx context.Context, lat, lon float64) (weather.GridReference, error) {
	u := fmt.Sprintf("%s/points/%s,%s", p.baseURL, formatCoord(lat), formatCoord(lon))

	resp, err := FetchJSON[pointResponse](ctx, p.client, u)
	if err != nil {
		return weather.GridReference{}, err
	}

	props := resp.Properties
	return weather.GridReference{
		OfficeID:               props.GridID,
		GridX:                  *props.GridX,
		GridY:                  *props.GridY,
		ObservationStationsURL: props.ObservationStations,
	}, nil
}

// Forecast returns the forecast periods for grid in upstream order.
func (p *NWSProvider) Forecast(ctx context.Context, grid weather.GridReference) ([]weather.ForecastSample, error) {
	u := fmt.Sprintf("%s/gridpoints/%s/%d,%d/forecast",
		p.baseURL, url.PathEscape(grid.OfficeID), grid.GridX, grid.GridY)

	resp, err := FetchJSON[forecastResponse](ctx, p.client, u)
	if err != nil {
		return nil, err
	}

	samples := make([]weather.ForecastSample, 0, len(resp.Properties.Periods))
	for _, period := range resp.Properties.Periods {
		samples = append(samples, weather.ForecastSample{
			Temperature:     *period.Temperature,
			TemperatureUnit: weather.TemperatureUnit(period.TemperatureUnit),
			ShortCondition:  *period.ShortForecast,
		})
	}
	return samples, nil
}

// Stations lists observation station identifiers, nearest first.
func (p *NWSProvider) Stations(ctx context.Context, stationsURL string) ([]string, error) {
	resp, err := FetchJSON[stationsResponse](ctx, p.client, stationsURL)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Features))
	for _, f := range resp.Features {
		ids = append(ids, f.Properties.StationIdentifier)
	}
	return ids, nil
}

// LatestObservation fetches the most recent reading for stationID.
func (p *NWSProvider) LatestObservation(ctx context.Context, stationID string) (weather.ObservationSample, error) {
	u := fmt.Sprintf("%s/stations/%s/observations/latest", p.baseURL, url.PathEscape(stationID))

	resp, err := FetchJSON[observationResponse](ctx, p.client, u)
	if err != nil {
		return weather.ObservationSample{}, err
	}

	props := resp.Properties
	return weather.ObservationSample{
		TemperatureC:     props.Temperature.value(),
		HumidityPct:      props.RelativeHumidity.value(),
		WindSpeedMS:      props.WindSpeed.value(),
		WindDirectionDeg: props.WindDirection.value(),
	}, nil
}

func (q *quantitativeValue) value() *float64 {
	if q == nil {
		return nil
	}
	return q.Value
}

// formatCoord uses the shortest representation, e.g. 37.9 rather than 37.900000.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ weather.Source = (*NWSProvider)(nil)
