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

// Demand is never modeled as zero; the floor is deliberate.
const (
	DemandFloor   = 0.1
	DemandCeiling = 0.95
	DemandNoise   = 0.1
)

// DemandProvider estimates the demand trend of a crop in a region.
type DemandProvider struct {
	tables *reference.Tables
	rnd    Source
	logger zerolog.Logger
}

func NewDemandProvider(tables *reference.Tables, rnd Source, logger zerolog.Logger) *DemandProvider {
	return &DemandProvider{
		tables: tables,
		rnd:    rnd,
		logger: logger.With().Str("component", "demand_trend").Logger(),
	}
}

// Estimate looks up the static demand score, adds noise in [-DemandNoise, +DemandNoise]
// and clamps to [DemandFloor, DemandCeiling].
func (p *DemandProvider) Estimate(ctx context.Context, crop string, region reference.Region) (res Result[Estimate]) {
	defer func() {
		if r := recover(); r != nil {
			res = p.degrade(crop, region, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return p.degrade(crop, region, err.Error())
	}
	if strings.TrimSpace(crop) == "" {
		return p.degrade(crop, region, "empty crop name")
	}

	base, _ := p.tables.Demand(crop, region)
	noise := (p.rnd.Float64()*2 - 1) * DemandNoise
	value := base + noise
	if !common.IsFinite(value) {
		return p.degrade(crop, region, "non-finite demand")
	}

	return Ok(Estimate{Trend: common.Clamp(value, DemandFloor, DemandCeiling)})
}

func (p *DemandProvider) degrade(crop string, region reference.Region, reason string) Result[Estimate] {
	metrics.ProviderDegraded.WithLabelValues("demand").Inc()
	p.logger.Warn().Str("crop", crop).Str("region", region.Name()).Str("reason", reason).Msg("demand trend degraded to neutral default")
	return Degrade(Estimate{Trend: NeutralTrend}, reason)
}
