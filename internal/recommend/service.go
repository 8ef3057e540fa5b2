// Package recommend turns a (city, month) request into a ranked list of crops.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/crop-recommendation/internal/classifier"
	"github.com/i474232898/crop-recommendation/internal/common"
	"github.com/i474232898/crop-recommendation/internal/events"
	"github.com/i474232898/crop-recommendation/internal/features"
	"github.com/i474232898/crop-recommendation/internal/metrics"
	"github.com/i474232898/crop-recommendation/internal/reference"
	"github.com/i474232898/crop-recommendation/internal/scoring"
	"github.com/i474232898/crop-recommendation/internal/trend"
	"github.com/i474232898/crop-recommendation/internal/weather"
)

const (
	DefaultWeatherTimeout = 8 * time.Second
	publishTimeout        = 2 * time.Second
)

var validate = validator.New()

// WeatherSource returns the current weather for a city.
type WeatherSource interface {
	Current(ctx context.Context, city string) (weather.Snapshot, error)
}

// TrendEstimator is satisfied by both trend providers.
type TrendEstimator interface {
	Estimate(ctx context.Context, crop string, region reference.Region) trend.Result[trend.Estimate]
}

// Deps are the collaborators of a Service. Publisher and Logger are optional.
type Deps struct {
	Tables     *reference.Tables
	Weather    WeatherSource
	Classifier classifier.Classifier
	Market     TrendEstimator
	Demand     TrendEstimator
	Scorer     *scoring.Engine
	Publisher  events.Publisher
	Logger     zerolog.Logger

	// WeatherTimeout bounds the weather fetch; zero means DefaultWeatherTimeout.
	WeatherTimeout time.Duration
}

// Service aggregates weather, classification, trends and scoring.
type Service struct {
	deps  Deps
	log   zerolog.Logger
	newID func() string
	now   func() time.Time
}

func NewService(deps Deps) *Service {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Scorer == nil {
		deps.Scorer = scoring.NewEngine(deps.Tables)
	}
	if deps.WeatherTimeout <= 0 {
		deps.WeatherTimeout = DefaultWeatherTimeout
	}
	return &Service{
		deps:  deps,
		log:   deps.Logger.With().Str("component", "recommend").Logger(),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Recommend validates the request, then fails only when weather or
// classification is unavailable. Every other failure degrades in place.
func (s *Service) Recommend(ctx context.Context, req Request) (rec *Recommendation, err error) {
	start := s.now()
	defer func() {
		metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
		metrics.RecommendationsTotal.WithLabelValues(outcome(err)).Inc()
	}()

	req.City = strings.TrimSpace(req.City)
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err)
	}

	rec = &Recommendation{
		RequestID: s.newID(),
		City:      req.City,
		Month:     req.Month,
		Notices:   []Notice{},
	}
	log := s.log.With().Str("request_id", rec.RequestID).Str("city", req.City).Int("month", req.Month).Logger()

	region, substituted := s.deps.Tables.ResolveOrDefault(req.City)
	if substituted {
		metrics.RegionSubstitutions.Inc()
		log.Info().Str("region", region.Name()).Msg("unknown city, substituting default region")
		rec.Notices = append(rec.Notices, Notice{
			Code:    NoticeRegionSubstituted,
			Message: fmt.Sprintf("city %q is not mapped to a region; using %s", req.City, region.Name()),
		})
	}
	rec.Region = region.Name()
	rec.RegionSubstituted = substituted
	rec.RegionDetails = RegionDetails{
		Name:         region.Name(),
		TypicalCrops: s.deps.Tables.TypicalCrops(region),
		Climate:      s.deps.Tables.ClimateDescription(region),
	}

	wctx, cancel := context.WithTimeout(ctx, s.deps.WeatherTimeout)
	snap, err := s.deps.Weather.Current(wctx, req.City)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("weather unavailable")
		return nil, unavailable(StepWeather, err)
	}
	rec.WeatherData = snap

	agg := s.deps.Demand.Estimate(ctx, reference.AggregateDemandKey, region)
	if agg.Degraded {
		rec.Notices = append(rec.Notices, providerNotice("demand", reference.AggregateDemandKey, agg.Reason))
	}
	rec.DemandTrend = agg.Value.Trend

	primary, err := s.deps.Classifier.Predict(ctx, features.Build(snap, req.Month, agg.Value.Trend))
	if err == nil && strings.TrimSpace(primary) == "" {
		err = classifier.ErrEmptyPrediction
	}
	if err != nil {
		log.Error().Err(err).Msg("classifier unavailable")
		return nil, unavailable(StepClassify, err)
	}
	rec.PrimaryCrop = strings.TrimSpace(primary)

	crops, notices := s.score(ctx, log, Candidates(rec.PrimaryCrop, rec.RegionDetails.TypicalCrops), snap, req.Month, region)
	rec.AllCrops = crops
	rec.Notices = append(rec.Notices, notices...)

	log.Info().
		Str("region", rec.Region).
		Str("primary_crop", rec.PrimaryCrop).
		Int("candidates", len(crops)).
		Int("notices", len(rec.Notices)).
		Msg("recommendation served")

	s.publish(ctx, rec, log)
	return rec, nil
}

// Candidates returns the primary crop followed by regional staples, deduplicated
// case-insensitively and capped at MaxCandidates. Order is preserved.
func Candidates(primary string, typical []string) []string {
	seen := make(map[string]struct{}, MaxCandidates)
	out := make([]string, 0, MaxCandidates)
	for _, name := range append([]string{primary}, typical...) {
		key := common.Normalize(name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(name))
		if len(out) == MaxCandidates {
			break
		}
	}
	return out
}

type trendPair struct {
	market trend.Result[trend.Estimate]
	demand trend.Result[trend.Estimate]
}

// score fetches both trends for every candidate concurrently, then scores and
// ranks them. Ties keep candidate order.
func (s *Service) score(ctx context.Context, log zerolog.Logger, names []string, snap weather.Snapshot, month int, region reference.Region) ([]CropRecommendation, []Notice) {
	pairs := make([]trendPair, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(2)
		go func() {
			defer wg.Done()
			pairs[i].market = s.deps.Market.Estimate(ctx, name, region)
		}()
		go func() {
			defer wg.Done()
			pairs[i].demand = s.deps.Demand.Estimate(ctx, name, region)
		}()
	}
	wg.Wait()

	var notices []Notice
	crops := make([]CropRecommendation, 0, len(names))
	for i, name := range names {
		p := pairs[i]
		if p.market.Degraded {
			notices = append(notices, providerNotice("market", name, p.market.Reason))
		}
		if p.demand.Degraded {
			notices = append(notices, providerNotice("demand", name, p.demand.Reason))
		}

		out := s.deps.Scorer.ScoreOrDefault(scoring.Input{
			Weather:     snap,
			Month:       month,
			MarketTrend: p.market.Value.Trend,
			DemandTrend: p.demand.Value.Trend,
			Crop:        name,
			Region:      region,
		})
		if out.Degraded {
			metrics.ScoringDegraded.Inc()
			log.Warn().Str("crop", name).Str("reason", out.Reason).Msg("scoring degraded to default")
			notices = append(notices, Notice{
				Code:    NoticeScoringDegraded,
				Crop:    name,
				Message: fmt.Sprintf("score could not be computed (%s); using %d", out.Reason, scoring.DefaultScore),
			})
		}

		crops = append(crops, CropRecommendation{
			Name:             name,
			Score:            out.Score,
			MarketPrice:      p.market.Value.Price,
			MarketTrend:      p.market.Value.Trend,
			DemandTrend:      p.demand.Value.Trend,
			MarketTrendLabel: trend.Label(p.market.Value.Trend),
			DemandTrendLabel: trend.Label(p.demand.Value.Trend),
			Degraded:         out.Degraded || p.market.Degraded || p.demand.Degraded,
		})
	}

	sort.SliceStable(crops, func(i, j int) bool { return crops[i].Score > crops[j].Score })
	return crops, notices
}

func (s *Service) publish(ctx context.Context, rec *Recommendation, log zerolog.Logger) {
	ev := events.RecommendationEvent{
		RequestID:         rec.RequestID,
		City:              rec.City,
		Month:             rec.Month,
		Region:            rec.Region,
		RegionSubstituted: rec.RegionSubstituted,
		PrimaryCrop:       rec.PrimaryCrop,
		Crops:             make([]events.RankedCrop, 0, len(rec.AllCrops)),
		At:                s.now().UTC(),
	}
	for _, c := range rec.AllCrops {
		ev.Crops = append(ev.Crops, events.RankedCrop{Name: c.Name, Score: c.Score, Degraded: c.Degraded})
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.deps.Publisher.PublishRecommendation(pctx, ev); err != nil {
		log.Warn().Err(err).Msg("failed to publish recommendation event")
	}
}

func providerNotice(provider, crop, reason string) Notice {
	return Notice{
		Code:    NoticeProviderDegraded,
		Crop:    crop,
		Message: fmt.Sprintf("%s trend unavailable (%s); using neutral default", provider, reason),
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "error"
	}
}
