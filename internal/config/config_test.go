package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the config search at an empty directory so a stray config.yaml
// in the working tree cannot leak into the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	prev := DefaultConfigPaths
	DefaultConfigPaths = nil
	t.Cleanup(func() { DefaultConfigPaths = prev })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Country != "IN" {
		t.Errorf("port/country = %q/%q", cfg.Port, cfg.Country)
	}
	if cfg.Weather.Timeout != 8*time.Second {
		t.Errorf("Weather.Timeout = %v, want 8s", cfg.Weather.Timeout)
	}
	if cfg.Market.RefreshInterval != 15*time.Minute {
		t.Errorf("Market.RefreshInterval = %v, want 15m", cfg.Market.RefreshInterval)
	}
	if cfg.Classifier.URL != "" || cfg.NATS.URL != "" {
		t.Errorf("optional integrations should be disabled by default: %+v %+v", cfg.Classifier, cfg.NATS)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9000")
	t.Setenv("WEATHER_TIMEOUT", "3s")
	t.Setenv("OPENWEATHER_API_KEY", "ow-key")
	t.Setenv("CLASSIFIER_URL", "http://model:5000")
	t.Setenv("MARKET_HISTORY", "12")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.Weather.Timeout != 3*time.Second {
		t.Errorf("Weather.Timeout = %v, want 3s", cfg.Weather.Timeout)
	}
	if cfg.OpenWeather.APIKey != "ow-key" {
		t.Errorf("OpenWeather.APIKey = %q", cfg.OpenWeather.APIKey)
	}
	if cfg.Classifier.URL != "http://model:5000" {
		t.Errorf("Classifier.URL = %q", cfg.Classifier.URL)
	}
	if cfg.Market.History != 12 {
		t.Errorf("Market.History = %d, want 12", cfg.Market.History)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadConfigFileAndEnvPrecedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
port: "7000"
country: in
market:
  refresh_interval: 30m
nats:
  url: nats://broker:4222
  subject: farm.recs
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("NATS_SUBJECT", "override.recs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7000" || cfg.Country != "IN" {
		t.Errorf("port/country = %q/%q", cfg.Port, cfg.Country)
	}
	if cfg.Market.RefreshInterval != 30*time.Minute {
		t.Errorf("Market.RefreshInterval = %v, want 30m", cfg.Market.RefreshInterval)
	}
	if cfg.NATS.URL != "nats://broker:4222" {
		t.Errorf("NATS.URL = %q", cfg.NATS.URL)
	}
	if cfg.NATS.Subject != "override.recs" {
		t.Errorf("NATS.Subject = %q, env should win over file", cfg.NATS.Subject)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string][2]string{
		"bad log level":      {"LOG_LEVEL", "loud"},
		"bad classifier url": {"CLASSIFIER_URL", "not a url"},
		"zero timeout":       {"WEATHER_TIMEOUT", "0s"},
		"fast refresh":       {"MARKET_REFRESH_INTERVAL", "10s"},
		"non-numeric port":   {"PORT", "http"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	cases := map[string]string{
		"PORT":                    "port",
		"WEATHERAPI_API_KEY":      "weatherapi.api_key",
		"MARKET_REFRESH_INTERVAL": "market.refresh_interval",
		"nats_url":                "nats.url",
		"HOME":                    "",
	}
	for in, want := range cases {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
