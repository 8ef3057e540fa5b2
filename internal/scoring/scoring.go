// Package scoring computes the 0-100 composite suitability score of a crop.
//
// The score is a weighted sum of four components, each already in [0, 1]:
//
//	weather fit   0.35  deviation of observed weather from the crop optimum
//	seasonal fit  0.25  whether the month is one of the crop's suitable months
//	market trend  0.20  provided as-is
//	demand trend  0.20  provided as-is
//
// The engine is deterministic; all randomness lives in the trend providers.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/i474232898/crop-recommendation/internal/common"
	"github.com/i474232898/crop-recommendation/internal/reference"
	"github.com/i474232898/crop-recommendation/internal/weather"
)

const (
	WeatherWeight = 0.35
	SeasonWeight  = 0.25
	MarketWeight  = 0.20
	DemandWeight  = 0.20

	// Relative weights of temperature, humidity and rainfall deviation.
	tempDeviationWeight     = 0.4
	humidityDeviationWeight = 0.3
	rainDeviationWeight     = 0.3

	WeatherFitFloor   = 0.3
	WeatherFitCeiling = 0.9
	// UnknownWeatherFit is assumed for crops without optimal conditions.
	UnknownWeatherFit = 0.6

	InSeasonFit  = 0.9
	OffSeasonFit = 0.7

	MinScore = 0
	MaxScore = 100
	// DefaultScore is given to a candidate whose score could not be computed.
	DefaultScore = 50
)

// ErrMalformedInput is returned for non-finite or out-of-range inputs.
var ErrMalformedInput = errors.New("malformed scoring input")

// Input is everything needed to score one candidate.
type Input struct {
	Weather     weather.Snapshot
	Month       int
	MarketTrend float64
	DemandTrend float64
	Crop        string
	Region      reference.Region
}

// Breakdown exposes the individual components behind a score.
type Breakdown struct {
	WeatherFit float64 `json:"weatherFit"`
	SeasonFit  float64 `json:"seasonFit"`
	Market     float64 `json:"market"`
	Demand     float64 `json:"demand"`
	Score      int     `json:"score"`
}

// Outcome is a score that may have been substituted by DefaultScore.
type Outcome struct {
	Breakdown
	Degraded bool
	Reason   string
}

// Engine scores candidates against the crop reference tables.
type Engine struct {
	tables *reference.Tables
}

func NewEngine(tables *reference.Tables) *Engine {
	return &Engine{tables: tables}
}

// Score returns the composite score in [MinScore, MaxScore].
func (e *Engine) Score(in Input) (int, error) {
	b, err := e.Breakdown(in)
	if err != nil {
		return 0, err
	}
	return b.Score, nil
}

// Breakdown computes every component and the composite score.
func (e *Engine) Breakdown(in Input) (Breakdown, error) {
	if err := validate(in); err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		WeatherFit: e.weatherFit(in.Crop, in.Weather),
		SeasonFit:  e.seasonFit(in.Crop, in.Month),
		Market:     in.MarketTrend,
		Demand:     in.DemandTrend,
	}

	composite := WeatherWeight*b.WeatherFit +
		SeasonWeight*b.SeasonFit +
		MarketWeight*b.Market +
		DemandWeight*b.Demand

	b.Score = int(common.Clamp(math.Round(composite*100), MinScore, MaxScore))
	return b, nil
}

// ScoreOrDefault never fails: errors and panics produce DefaultScore with Degraded set.
func (e *Engine) ScoreOrDefault(in Input) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Breakdown: Breakdown{Score: DefaultScore}, Degraded: true, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	b, err := e.Breakdown(in)
	if err != nil {
		return Outcome{Breakdown: Breakdown{Score: DefaultScore}, Degraded: true, Reason: err.Error()}
	}
	return Outcome{Breakdown: b}
}

func (e *Engine) weatherFit(crop string, w weather.Snapshot) float64 {
	opt, ok := e.tables.Optimal(crop)
	if !ok {
		return UnknownWeatherFit
	}

	deviation := tempDeviationWeight*math.Abs(w.Temperature-opt.Temperature)/opt.Temperature +
		humidityDeviationWeight*math.Abs(w.Humidity-opt.Humidity)/opt.Humidity +
		rainDeviationWeight*math.Abs(w.Rainfall-opt.Rainfall)/(opt.Rainfall+1)

	return common.Clamp(1.0-deviation, WeatherFitFloor, WeatherFitCeiling)
}

// seasonFit does not distinguish an off-season known crop from an unknown crop.
func (e *Engine) seasonFit(crop string, month int) float64 {
	months, ok := e.tables.SuitableMonths(crop)
	if ok && slices.Contains(months, month) {
		return InSeasonFit
	}
	return OffSeasonFit
}

func validate(in Input) error {
	if in.Month < 1 || in.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrMalformedInput, in.Month)
	}
	trends := []struct {
		name string
		v    float64
	}{
		{"market trend", in.MarketTrend},
		{"demand trend", in.DemandTrend},
	}
	for _, tr := range trends {
		if !common.IsFinite(tr.v) || tr.v < 0 || tr.v > 1 {
			return fmt.Errorf("%w: %s %v", ErrMalformedInput, tr.name, tr.v)
		}
	}
	w := in.Weather
	if !common.IsFinite(w.Temperature) || !common.IsFinite(w.Humidity) || !common.IsFinite(w.Rainfall) {
		return fmt.Errorf("%w: non-finite weather", ErrMalformedInput)
	}
	return nil
}
