package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ObservationFallback is notified when the observation stage is skipped or
// fails and the result keeps the forecast baseline.
type ObservationFallback func(reason string)

// Service drives the grid -> forecast+stations -> observation chain.
type Service struct {
	source     Source
	logger     *slog.Logger
	onFallback ObservationFallback
}

// NewService creates a new Service.
func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source: source,
		logger: logger,
	}
}

// OnObservationFallback registers a hook used for metrics.
func (s *Service) OnObservationFallback(fn ObservationFallback) {
	s.onFallback = fn
}

// FetchWeather fetches current conditions for loc. Grid, forecast and station
// failures are fatal; the observation stage is best-effort.
func (s *Service) FetchWeather(ctx context.Context, loc Location) (WeatherResult, error) {
	grid, err := s.source.GridPoint(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return WeatherResult{}, fmt.Errorf("grid lookup: %w", err)
	}

	s.logger.Debug("grid resolved",
		"location", loc.Key(),
		"office", grid.OfficeID,
		"x", grid.GridX,
		"y", grid.GridY,
	)

	var (
		wg          sync.WaitGroup
		periods     []ForecastSample
		stations    []string
		forecastErr error
		stationsErr error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		periods, forecastErr = s.source.Forecast(ctx, grid)
		if forecastErr != nil {
			forecastErr = fmt.Errorf("forecast: %w", forecastErr)
		}
	}()

	go func() {
		defer wg.Done()
		stations, stationsErr = s.source.Stations(ctx, grid.ObservationStationsURL)
		if stationsErr != nil {
			stationsErr = fmt.Errorf("stations: %w", stationsErr)
		}
	}()

	wg.Wait()

	if err := errors.Join(forecastErr, stationsErr); err != nil {
		return WeatherResult{}, err
	}

	if len(periods) == 0 {
		return WeatherResult{}, ErrNoWeatherData
	}

	obs := s.latestObservation(ctx, loc, stations)
	return MergeReadings(periods[0], obs), nil
}

// latestObservation returns nil whenever the observation cannot be used.
func (s *Service) latestObservation(ctx context.Context, loc Location, stations []string) *ObservationSample {
	if len(stations) == 0 {
		s.fallback(loc, "no stations", nil)
		return nil
	}

	obs, err := s.source.LatestObservation(ctx, stations[0])
	if err != nil {
		s.fallback(loc, "observation failed", err)
		return nil
	}
	return &obs
}

func (s *Service) fallback(loc Location, reason string, err error) {
	s.logger.Debug("using forecast baseline", "location", loc.Key(), "reason", reason, "error", err)
	if s.onFallback != nil {
		s.onFallback(reason)
	}
}
