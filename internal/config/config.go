package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/viper"

	"github.com/i474232898/nws-weather/internal/netcheck"
	"github.com/i474232898/nws-weather/internal/weather/providers"
)

// EnvPrefix is prepended to every environment override, e.g.
// NWS_WEATHER_HTTP_MAX_ATTEMPTS=3.
const EnvPrefix = "NWS_WEATHER"

type AppConfig struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Geocoder EndpointConfig `mapstructure:"geocoder"`
	NWS      EndpointConfig `mapstructure:"nws"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`

	// StartupDelay is slept before the first fetch when --wait-for-network
	// is off, giving a resumed machine time to bring its link up.
	StartupDelay time.Duration `mapstructure:"startup_delay" validate:"gte=0"`
}

type HTTPConfig struct {
	UserAgent      string        `mapstructure:"user_agent"       validate:"required"`
	Timeout        time.Duration `mapstructure:"timeout"          validate:"gt=0"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"  validate:"gt=0"`
	MaxAttempts    int           `mapstructure:"max_attempts"     validate:"gte=1,lte=20"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"gte=0"`
	RateLimit      float64       `mapstructure:"rate_limit"       validate:"gte=0"` // requests/second, 0 = unlimited
	RateBurst      int           `mapstructure:"rate_burst"       validate:"gte=1"`
}

type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold" validate:"gte=1"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"      validate:"gt=0"`
}

type ProbeConfig struct {
	Targets    []string      `mapstructure:"targets"     validate:"min=1,dive,url"`
	Rounds     int           `mapstructure:"rounds"      validate:"gte=1"`
	Timeout    time.Duration `mapstructure:"timeout"     validate:"gt=0"`
	RoundDelay time.Duration `mapstructure:"round_delay" validate:"gte=0"`
}

type EndpointConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"gte=1,lte=65535"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

var validate = validator.New()

// Load reads configuration from defaults, an optional YAML file, .env and
// the environment, in increasing precedence. An empty path searches
// ./config.yaml and $HOME/.config/nws-weather/config.yaml; a missing file
// is fine in that case.
func Load(path string) (*AppConfig, error) {
	// .env is optional.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/nws-weather")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := providers.DefaultClientConfig
	v.SetDefault("http.user_agent", d.UserAgent)
	v.SetDefault("http.timeout", d.Timeout)
	v.SetDefault("http.connect_timeout", d.ConnectTimeout)
	v.SetDefault("http.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("http.retry_base_delay", d.Retry.BaseDelay)
	v.SetDefault("http.rate_limit", 0.0)
	v.SetDefault("http.rate_burst", 1)

	v.SetDefault("breaker.failure_threshold", d.Breaker.FailureThreshold)
	v.SetDefault("breaker.open_timeout", d.Breaker.OpenTimeout)

	p := netcheck.DefaultConfig
	v.SetDefault("probe.targets", p.Targets)
	v.SetDefault("probe.rounds", p.Rounds)
	v.SetDefault("probe.timeout", p.ProbeTimeout)
	v.SetDefault("probe.round_delay", p.RoundDelay)

	v.SetDefault("geocoder.base_url", providers.DefaultZippopotamBaseURL)
	v.SetDefault("nws.base_url", providers.DefaultNWSBaseURL)

	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("startup_delay", 3*time.Second)
}

// ClientConfig maps the http and breaker sections onto the retry client.
func (c *AppConfig) ClientConfig() providers.ClientConfig {
	return providers.ClientConfig{
		UserAgent:      c.HTTP.UserAgent,
		Timeout:        c.HTTP.Timeout,
		ConnectTimeout: c.HTTP.ConnectTimeout,
		Retry: providers.RetryConfig{
			MaxAttempts: c.HTTP.MaxAttempts,
			BaseDelay:   c.HTTP.RetryBaseDelay,
		},
		Breaker: providers.BreakerConfig{
			FailureThreshold: c.Breaker.FailureThreshold,
			OpenTimeout:      c.Breaker.OpenTimeout,
		},
		RateLimit: c.HTTP.RateLimit,
		RateBurst: c.HTTP.RateBurst,
	}
}

// ProbeConfig maps the probe section onto the readiness prober.
func (c *AppConfig) ProbeConfig() netcheck.Config {
	return netcheck.Config{
		Targets:      c.Probe.Targets,
		Rounds:       c.Probe.Rounds,
		ProbeTimeout: c.Probe.Timeout,
		RoundDelay:   c.Probe.RoundDelay,
		UserAgent:    c.HTTP.UserAgent,
	}
}

// GetServerAddr returns the server address in the format ":port".
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// NewLogger builds the application logger. Logs go to w (stderr in
// practice) because stdout carries the widget payload.
func (c *AppConfig) NewLogger(w io.Writer, debug bool) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	if debug {
		level = slog.LevelDebug
	}

	if strings.ToLower(c.Log.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
}
