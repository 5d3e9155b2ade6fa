// Package netcheck delays startup until outbound HTTPS works, e.g. right
// after the machine resumes from sleep.
package netcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrNoConnectivity is returned when no target answered in any round.
var ErrNoConnectivity = errors.New("network connectivity check failed")

// DefaultTargets mixes a hostname with IP literals so a DNS-only outage
// still lets the probe succeed.
var DefaultTargets = []string{
	"https://api.weather.gov",
	"https://8.8.8.8",
	"https://1.1.1.1",
}

// Config controls the probe loop.
type Config struct {
	Targets      []string
	Rounds       int
	ProbeTimeout time.Duration
	RoundDelay   time.Duration
	UserAgent    string
}

// DefaultConfig: 10 rounds, 3s per probe, 2s between rounds.
var DefaultConfig = Config{
	Targets:      DefaultTargets,
	Rounds:       10,
	ProbeTimeout: 3 * time.Second,
	RoundDelay:   2 * time.Second,
}

// Prober polls Targets until any of them responds.
type Prober struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Prober. A nil httpClient gets a client with cfg.ProbeTimeout
// that never follows redirects.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Targets) == 0 {
		cfg.Targets = DefaultTargets
	}
	if cfg.Rounds < 1 {
		cfg.Rounds = 1
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultConfig.ProbeTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.ProbeTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &Prober{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
	}
}

// AwaitConnectivity returns nil as soon as one target sends any response,
// whatever its status code.
func (p *Prober) AwaitConnectivity(ctx context.Context) error {
	for round := 1; round <= p.cfg.Rounds; round++ {
		for _, target := range p.cfg.Targets {
			if err := p.probe(ctx, target); err != nil {
				p.logger.Debug("probe failed", "target", target, "round", round, "error", err)
				continue
			}
			p.logger.Debug("network is up", "target", target, "round", round)
			return nil
		}

		if round == p.cfg.Rounds {
			break
		}

		timer := time.NewTimer(p.cfg.RoundDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d rounds", ErrNoConnectivity, p.cfg.Rounds)
}

func (p *Prober) probe(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return err
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}
