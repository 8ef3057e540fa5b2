// Package config loads service configuration from defaults, an optional YAML
// file and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/crop-recommendation/config.yaml",
}

type AppConfig struct {
	Port    string `koanf:"port" validate:"required,numeric"`
	Country string `koanf:"country" validate:"required,len=2"`

	Weather     WeatherConfig `koanf:"weather"`
	OpenWeather APIKeyConfig  `koanf:"openweather"`
	WeatherAPI  APIKeyConfig  `koanf:"weatherapi"`
	Geocoder    APIKeyConfig  `koanf:"geocoder"`

	Classifier ClassifierConfig `koanf:"classifier"`
	Reference  ReferenceConfig  `koanf:"reference"`
	Market     MarketConfig     `koanf:"market"`
	NATS       NATSConfig       `koanf:"nats"`
	Log        LogConfig        `koanf:"log"`
}

type WeatherConfig struct {
	// Timeout bounds the whole weather fetch of a recommendation.
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	HTTPTimeout time.Duration `koanf:"http_timeout" validate:"gt=0"`
	// RatePerSecond throttles outbound provider calls; 0 disables throttling.
	RatePerSecond float64 `koanf:"rate_per_second" validate:"gte=0"`
	Burst         int     `koanf:"burst" validate:"gte=1"`
}

type APIKeyConfig struct {
	APIKey string `koanf:"api_key"`
}

type ClassifierConfig struct {
	// URL of the model service; empty runs the local nearest-neighbour classifier only.
	URL     string        `koanf:"url" validate:"omitempty,url"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type ReferenceConfig struct {
	// Path to a reference YAML; empty uses the embedded tables.
	Path string `koanf:"path"`
}

type MarketConfig struct {
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gte=1m"`
	History         int           `koanf:"history" validate:"gte=0"`
	MaxAge          time.Duration `koanf:"max_age" validate:"gte=0"`
	// Seed for simulated quotes; 0 seeds from the clock.
	Seed uint64 `koanf:"seed"`
}

type NATSConfig struct {
	// URL of the broker; empty disables event publishing.
	URL     string `koanf:"url" validate:"omitempty,url"`
	Subject string `koanf:"subject" validate:"required"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Port:    "8080",
		Country: "IN",
		Weather: WeatherConfig{
			Timeout:       8 * time.Second,
			HTTPTimeout:   5 * time.Second,
			RatePerSecond: 5,
			Burst:         5,
		},
		Classifier: ClassifierConfig{
			Timeout: 5 * time.Second,
		},
		Market: MarketConfig{
			RefreshInterval: 15 * time.Minute,
			History:         96, // roughly 24h at 15-minute refreshes
			MaxAge:          time.Hour,
		},
		NATS: NATSConfig{
			Subject: "crops.recommendations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var validate = validator.New()

// Load layers defaults, the config file and environment variables, then validates.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Country = strings.ToUpper(strings.TrimSpace(cfg.Country))
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings maps environment variable names (lower-cased) to config paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"port":                    "port",
	"country":                 "country",
	"weather_timeout":         "weather.timeout",
	"weather_http_timeout":    "weather.http_timeout",
	"weather_rate_per_second": "weather.rate_per_second",
	"weather_burst":           "weather.burst",
	"openweather_api_key":     "openweather.api_key",
	"weatherapi_api_key":      "weatherapi.api_key",
	"geocoder_api_key":        "geocoder.api_key",
	"classifier_url":          "classifier.url",
	"classifier_timeout":      "classifier.timeout",
	"reference_path":          "reference.path",
	"market_refresh_interval": "market.refresh_interval",
	"market_history":          "market.history",
	"market_max_age":          "market.max_age",
	"market_seed":             "market.seed",
	"nats_url":                "nats.url",
	"nats_subject":            "nats.subject",
	"log_level":               "log.level",
	"log_format":              "log.format",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
