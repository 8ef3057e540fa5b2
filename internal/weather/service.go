package weather

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/i474232898/crop-recommendation/internal/metrics"
)

var (
	// ErrNoProviders is returned when the service has nothing to query.
	ErrNoProviders = errors.New("no weather providers configured")
	// ErrNoReadings is returned when every provider failed.
	ErrNoReadings = errors.New("no successful weather provider readings")
)

// Service fans a request out to every provider and averages what comes back.
type Service struct {
	country   string
	providers []Provider
	logger    zerolog.Logger
}

// NewService creates a Service querying cities within country.
func NewService(country string, providers []Provider, logger zerolog.Logger) *Service {
	return &Service{
		country:   country,
		providers: providers,
		logger:    logger.With().Str("component", "weather").Logger(),
	}
}

// Current fetches the present conditions for a city from all providers concurrently.
// Partial provider failure is tolerated; the call fails only when no provider succeeds.
// It returns as soon as ctx is done, even if a provider ignores ctx; providers
// still pending at that point count as failed.
func (s *Service) Current(ctx context.Context, city string) (Snapshot, error) {
	loc := Location{City: city, Country: s.country}
	if len(s.providers) == 0 {
		return Snapshot{}, ErrNoProviders
	}

	type result struct {
		name    string
		reading ProviderReading
		err     error
	}

	// Buffered so providers that outlive ctx never block on send.
	results := make(chan result, len(s.providers))
	for _, p := range s.providers {
		go func(p Provider) {
			r, err := p.Fetch(ctx, loc)
			results <- result{name: p.Name(), reading: r, err: err}
		}(p)
	}

	var (
		readings []ProviderReading
		errs     []error
	)

collect:
	for pending := len(s.providers); pending > 0; pending-- {
		select {
		case res := <-results:
			if res.err != nil {
				s.logger.Warn().Err(res.err).Str("provider", res.name).Str("location", loc.Key()).Msg("provider fetch failed")
				metrics.WeatherFetches.WithLabelValues(res.name, "error").Inc()
				errs = append(errs, fmt.Errorf("%s: %w", res.name, res.err))
				continue
			}
			metrics.WeatherFetches.WithLabelValues(res.name, "ok").Inc()
			if res.reading.ProviderName == "" {
				res.reading.ProviderName = res.name
			}
			readings = append(readings, res.reading)
		case <-ctx.Done():
			// Readings that arrive after the deadline are discarded.
			s.logger.Warn().Err(ctx.Err()).Int("pending", pending).Int("readings", len(readings)).Str("location", loc.Key()).Msg("weather deadline reached before all providers answered")
			if len(readings) == 0 {
				return Snapshot{}, fmt.Errorf("%w: %v", ErrNoReadings, ctx.Err())
			}
			break collect
		}
	}

	if len(readings) == 0 {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrNoReadings, errors.Join(errs...))
	}

	// Goroutines finish in arbitrary order; keep contribution lists stable.
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].ProviderName < readings[j].ProviderName
	})

	snapshot := AggregateReadings(loc, readings)
	s.logger.Debug().
		Str("location", loc.Key()).
		Int("providers", len(readings)).
		Float64("temperature", snapshot.Temperature).
		Float64("humidity", snapshot.Humidity).
		Float64("rainfall", snapshot.Rainfall).
		Msg("weather snapshot aggregated")

	return snapshot, nil
}
