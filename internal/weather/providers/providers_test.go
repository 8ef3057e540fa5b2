package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/crop-recommendation/internal/weather"
)

func testConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Client: &http.Client{Timeout: 2 * time.Second},
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	}
}

var mumbai = weather.Location{City: "Mumbai", Country: "IN"}

func TestOpenWeatherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Mumbai,IN" || r.URL.Query().Get("appid") != "k" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"dt": 1780000000, "main": {"temp": 31.2, "humidity": 78}, "rain": {"3h": 6.5}}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testConfig(), "k")
	p.baseURL = srv.URL

	r, err := p.Fetch(context.Background(), mumbai)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TemperatureC != 31.2 || r.HumidityPct != 78 || r.PrecipMm != 6.5 {
		t.Fatalf("unexpected reading %+v", r)
	}
}

func TestOpenWeatherMissingRainIsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"dt": 1780000000, "main": {"temp": 20, "humidity": 40}}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testConfig(), "k")
	p.baseURL = srv.URL

	r, err := p.Fetch(context.Background(), mumbai)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.PrecipMm != 0 {
		t.Fatalf("expected zero rainfall, got %v", r.PrecipMm)
	}
}

func TestOpenWeatherRequiresKey(t *testing.T) {
	p := NewOpenWeatherProvider(testConfig(), "")
	if _, err := p.Fetch(context.Background(), mumbai); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestWeatherAPIFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current": {"last_updated_epoch": 1780000000, "temp_c": 29, "humidity": 70, "precip_mm": 1.5}}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(testConfig(), "k")
	p.baseURL = srv.URL

	r, err := p.Fetch(context.Background(), mumbai)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TemperatureC != 29 || r.HumidityPct != 70 || r.PrecipMm != 1.5 {
		t.Fatalf("unexpected reading %+v", r)
	}
}

type staticGeocoder struct{ lat, lon float64 }

func (g staticGeocoder) Geocode(context.Context, weather.Location) (float64, float64, error) {
	return g.lat, g.lon, nil
}

func TestGoogleGeocoderHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	g := NewGoogleGeocoder("key")
	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		<-release
		return geocoder.Location{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := g.Geocode(ctx, mumbai)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Geocode took %v with a 50ms deadline", elapsed)
	}

	// A hung lookup must not hold the cache lock.
	pune := weather.Location{City: "Pune", Country: "IN"}
	g.mu.Lock()
	g.cache[pune.Key()] = [2]float64{18.52, 73.85}
	g.mu.Unlock()
	lat, lon, err := g.Geocode(context.Background(), pune)
	if err != nil || lat != 18.52 || lon != 73.85 {
		t.Fatalf("cached lookup = %v, %v, %v", lat, lon, err)
	}
}

func TestGoogleGeocoderCachesResults(t *testing.T) {
	var calls atomic.Int32
	g := NewGoogleGeocoder("key")
	g.lookup = func(addr geocoder.Address) (geocoder.Location, error) {
		calls.Add(1)
		if addr.City != "Mumbai" || addr.Country != "IN" {
			t.Errorf("unexpected address %+v", addr)
		}
		return geocoder.Location{Latitude: 19.076, Longitude: 72.8777}, nil
	}

	for i := 0; i < 3; i++ {
		lat, lon, err := g.Geocode(context.Background(), mumbai)
		if err != nil || lat != 19.076 || lon != 72.8777 {
			t.Fatalf("Geocode = %v, %v, %v", lat, lon, err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream lookup, got %d", calls.Load())
	}
}

func TestOpenMeteoFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") != "19.076000" {
			t.Errorf("unexpected latitude %q", r.URL.Query().Get("latitude"))
		}
		w.Write([]byte(`{"current": {"time": "2026-06-01T12:00", "temperature_2m": 30.5, "relative_humidity_2m": 81}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(testConfig(), staticGeocoder{lat: 19.076, lon: 72.8777})
	p.baseURL = srv.URL

	r, err := p.Fetch(context.Background(), mumbai)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TemperatureC != 30.5 || r.HumidityPct != 81 || r.PrecipMm != 0 {
		t.Fatalf("unexpected reading %+v", r)
	}
	if !r.Timestamp.Equal(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", r.Timestamp)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"main": {"temp": 25, "humidity": 50}}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testConfig(), "k")
	p.baseURL = srv.URL

	if _, err := p.Fetch(context.Background(), mumbai); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testConfig(), "k")
	p.baseURL = srv.URL

	_, err := p.Fetch(context.Background(), mumbai)
	if !errors.Is(err, errClientError) {
		t.Fatalf("expected client error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}
