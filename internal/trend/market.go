package trend

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/i474232898/crop-recommendation/internal/common"
	"github.com/i474232898/crop-recommendation/internal/metrics"
	"github.com/i474232898/crop-recommendation/internal/reference"
)

const (
	// MarketTrendCeiling caps the regionally adjusted market trend.
	MarketTrendCeiling = 0.95
	// DefaultMarketPrice accompanies the neutral trend for unknown or failed crops.
	DefaultMarketPrice = 2000.0
)

// MarketProvider estimates the market trend and price of a crop in a region.
type MarketProvider struct {
	tables *reference.Tables
	feed   Feed
	logger zerolog.Logger
}

func NewMarketProvider(tables *reference.Tables, feed Feed, logger zerolog.Logger) *MarketProvider {
	return &MarketProvider{
		tables: tables,
		feed:   feed,
		logger: logger.With().Str("component", "market_trend").Logger(),
	}
}

// Estimate applies the regional multiplier to the base trend (price is not
// adjusted) and clamps the trend to [0, MarketTrendCeiling].
func (p *MarketProvider) Estimate(ctx context.Context, crop string, region reference.Region) (res Result[Estimate]) {
	defer func() {
		if r := recover(); r != nil {
			res = p.degrade(crop, region, fmt.Sprintf("panic: %v", r))
		}
	}()

	if strings.TrimSpace(crop) == "" {
		return p.degrade(crop, region, "empty crop name")
	}

	q, err := p.feed.Quote(ctx, crop)
	if err != nil {
		return p.degrade(crop, region, err.Error())
	}
	if !common.IsFinite(q.Trend) || !common.IsFinite(q.Price) {
		return p.degrade(crop, region, "non-finite quote")
	}

	adjusted := q.Trend * p.tables.MarketMultiplier(region, crop)
	return Ok(Estimate{
		Trend: common.Clamp(adjusted, 0, MarketTrendCeiling),
		Price: q.Price,
	})
}

func (p *MarketProvider) degrade(crop string, region reference.Region, reason string) Result[Estimate] {
	metrics.ProviderDegraded.WithLabelValues("market").Inc()
	p.logger.Warn().Str("crop", crop).Str("region", region.Name()).Str("reason", reason).Msg("market trend degraded to neutral default")
	return Degrade(Estimate{Trend: NeutralTrend, Price: DefaultMarketPrice}, reason)
}
