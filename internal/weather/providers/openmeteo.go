package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/crop-recommendation/internal/weather"
)

// Geocoder turns a city into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, loc weather.Location) (lat, lon float64, err error)
}

// geocoderKeyMu guards the geocoder package's global API key.
var geocoderKeyMu sync.Mutex

// GoogleGeocoder resolves cities through the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)

	mu    sync.Mutex
	cache map[string][2]float64
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		apiKey: apiKey,
		lookup: geocoder.Geocoding,
		cache:  make(map[string][2]float64),
	}
}

// Geocode returns when ctx is done even if the lookup hangs; the geocoder
// package's HTTP client has neither a context nor a timeout.
func (g *GoogleGeocoder) Geocode(ctx context.Context, loc weather.Location) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	g.mu.Lock()
	c, ok := g.cache[loc.Key()]
	g.mu.Unlock()
	if ok {
		return c[0], c[1], nil
	}

	type outcome struct {
		res geocoder.Location
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		geocoderKeyMu.Lock()
		geocoder.ApiKey = g.apiKey
		geocoderKeyMu.Unlock()

		res, err := g.lookup(geocoder.Address{City: loc.City, Country: loc.Country})
		done <- outcome{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("geocode %s: %w", loc.Key(), ctx.Err())
	case out := <-done:
		if out.err != nil {
			return 0, 0, fmt.Errorf("geocode %s: %w", loc.Key(), out.err)
		}
		g.mu.Lock()
		g.cache[loc.Key()] = [2]float64{out.res.Latitude, out.res.Longitude}
		g.mu.Unlock()
		return out.res.Latitude, out.res.Longitude, nil
	}
}

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// Open-Meteo is keyless but only accepts coordinates.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	geocoder Geocoder
}

func NewOpenMeteoProvider(cfg HTTPClientConfig, geo Geocoder) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  "https://api.open-meteo.com/v1/forecast",
		httpCfg:  cfg,
		circuit:  newBreaker("openmeteo"),
		geocoder: geo,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	if p.geocoder == nil {
		return weather.ProviderReading{}, fmt.Errorf("openmeteo requires a geocoder")
	}

	lat, lon, err := p.geocoder.Geocode(ctx, loc)
	if err != nil {
		return weather.ProviderReading{}, err
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("current", "temperature_2m,relative_humidity_2m,precipitation")
		values.Set("timezone", "UTC")

		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.ProviderReading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			Time          string   `json:"time"`
			Temperature   float64  `json:"temperature_2m"`
			Humidity      float64  `json:"relative_humidity_2m"`
			Precipitation *float64 `json:"precipitation"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.ProviderReading{}, fmt.Errorf("decode openmeteo response: %w", err)
	}

	ts, err := time.Parse("2006-01-02T15:04", payload.Current.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	var precip float64
	if payload.Current.Precipitation != nil {
		precip = *payload.Current.Precipitation
	}

	return weather.ProviderReading{
		ProviderName: p.name,
		Timestamp:    ts.UTC(),
		TemperatureC: payload.Current.Temperature,
		HumidityPct:  payload.Current.Humidity,
		PrecipMm:     precip,
	}, nil
}
