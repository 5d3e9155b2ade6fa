package cli

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/i474232898/nws-weather/internal/config"
	"github.com/i474232898/nws-weather/internal/metrics"
	"github.com/i474232898/nws-weather/internal/netcheck"
	"github.com/i474232898/nws-weather/internal/output"
	"github.com/i474232898/nws-weather/internal/weather"
	"github.com/i474232898/nws-weather/internal/weather/providers"
)

// app holds the wired components shared by the root and serve commands.
type app struct {
	cfg      *config.AppConfig
	logger   *slog.Logger
	resolver *weather.Resolver
	service  *weather.Service
	prober   *netcheck.Prober
}

func newApp(configPath string, debug bool, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := cfg.NewLogger(stderr, debug)

	// One client so the limiter and breakers cover both upstreams.
	client := providers.NewClient(cfg.ClientConfig(), logger)

	geocoder := providers.NewZippopotamProvider(client, cfg.Geocoder.BaseURL)
	nws := providers.NewNWSProvider(client, cfg.NWS.BaseURL)

	service := weather.NewService(nws, logger)
	service.OnObservationFallback(func(reason string) {
		metrics.ObservationFallbacks.WithLabelValues(reason).Inc()
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		resolver: weather.NewResolver(geocoder, logger),
		service:  service,
		prober:   netcheck.New(cfg.ProbeConfig(), nil, logger),
	}, nil
}

// awaitNetwork runs the prober when asked to, otherwise sleeps the fixed
// startup delay.
func (a *app) awaitNetwork(ctx context.Context, probe bool) error {
	if probe {
		return a.prober.AwaitConnectivity(ctx)
	}
	if a.cfg.StartupDelay <= 0 {
		return nil
	}

	t := time.NewTimer(a.cfg.StartupDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// current resolves q, fetches the weather and renders it.
func (a *app) current(ctx context.Context, q weather.LocationQuery, opts output.Options, source string) (string, error) {
	loc, err := a.resolver.Resolve(ctx, q)
	if err != nil {
		metrics.Requests.WithLabelValues(source, "error").Inc()
		return "", err
	}

	result, err := a.service.FetchWeather(ctx, loc)
	if err != nil {
		metrics.Requests.WithLabelValues(source, "error").Inc()
		return "", err
	}
	metrics.Requests.WithLabelValues(source, "ok").Inc()

	a.logger.Debug("weather fetched",
		"location", loc.Name,
		"temperature_c", result.TemperatureC,
		"condition", result.Condition,
	)

	return output.Render(loc, result, opts)
}
