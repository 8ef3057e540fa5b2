package trend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/crop-recommendation/internal/reference"
	"github.com/i474232898/crop-recommendation/internal/store"
)

var tables = reference.MustDefault()

// fixedSource always returns the same draw.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

type failingFeed struct{ err error }

func (f failingFeed) Quote(context.Context, string) (Quote, error) { return Quote{}, f.err }

type panickingFeed struct{}

func (panickingFeed) Quote(context.Context, string) (Quote, error) { panic("feed exploded") }

type staticFeed Quote

func (s staticFeed) Quote(context.Context, string) (Quote, error) { return Quote(s), nil }

func TestMarketTrendAlwaysClamped(t *testing.T) {
	ctx := context.Background()
	src := NewSource(7)
	p := NewMarketProvider(tables, NewSimulatedFeed(tables, src), zerolog.Nop())

	crops := append(tables.Crops(), "dragonfruit", "Pulses")
	for i := 0; i < 50; i++ {
		for _, crop := range crops {
			for _, r := range append(reference.All, reference.Unknown) {
				res := p.Estimate(ctx, crop, r)
				if res.Degraded {
					t.Fatalf("unexpected degradation for %s/%v: %s", crop, r, res.Reason)
				}
				if res.Value.Trend < 0 || res.Value.Trend > MarketTrendCeiling {
					t.Fatalf("market trend %v out of bounds for %s/%v", res.Value.Trend, crop, r)
				}
			}
		}
	}
}

func TestMarketMultiplierAppliesToTrendOnly(t *testing.T) {
	feed := staticFeed{Crop: "cotton", Trend: 0.6, Price: 6000}
	p := NewMarketProvider(tables, feed, zerolog.Nop())

	res := p.Estimate(context.Background(), "Cotton", reference.West)
	if res.Degraded {
		t.Fatalf("unexpected degradation: %s", res.Reason)
	}
	if got, want := res.Value.Trend, 0.6*1.15; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("trend = %v, want %v", got, want)
	}
	if res.Value.Price != 6000 {
		t.Fatalf("price must not be regionally adjusted, got %v", res.Value.Price)
	}
}

func TestMarketTrendCeiling(t *testing.T) {
	p := NewMarketProvider(tables, staticFeed{Trend: 0.9, Price: 1000}, zerolog.Nop())
	res := p.Estimate(context.Background(), "onion", reference.West) // 0.9 * 1.2
	if res.Value.Trend != MarketTrendCeiling {
		t.Fatalf("expected trend capped at %v, got %v", MarketTrendCeiling, res.Value.Trend)
	}
}

func TestMarketUnknownCropUsesDefaultEntry(t *testing.T) {
	p := NewMarketProvider(tables, NewSimulatedFeed(tables, fixedSource(0.3)), zerolog.Nop())
	res := p.Estimate(context.Background(), "dragonfruit", reference.South)
	if res.Degraded || res.Value.Trend != 0.5 || res.Value.Price != 2000 {
		t.Fatalf("unexpected default estimate %+v", res)
	}
}

func TestMarketDegradesOnFeedFailure(t *testing.T) {
	p := NewMarketProvider(tables, failingFeed{err: errors.New("feed offline")}, zerolog.Nop())
	res := p.Estimate(context.Background(), "rice", reference.North)
	if !res.Degraded || res.Value.Trend != NeutralTrend || res.Value.Price != DefaultMarketPrice {
		t.Fatalf("expected neutral degraded estimate, got %+v", res)
	}
	if res.Reason != "feed offline" {
		t.Fatalf("unexpected reason %q", res.Reason)
	}
}

func TestMarketRecoversFromPanics(t *testing.T) {
	p := NewMarketProvider(tables, panickingFeed{}, zerolog.Nop())
	res := p.Estimate(context.Background(), "rice", reference.North)
	if !res.Degraded || res.Value.Trend != NeutralTrend {
		t.Fatalf("expected degraded result after panic, got %+v", res)
	}
}

func TestDemandTrendAlwaysClamped(t *testing.T) {
	ctx := context.Background()
	p := NewDemandProvider(tables, NewSource(11), zerolog.Nop())

	crops := append(tables.Crops(), reference.AggregateDemandKey, "dragonfruit")
	for i := 0; i < 50; i++ {
		for _, crop := range crops {
			for _, r := range reference.All {
				res := p.Estimate(ctx, crop, r)
				if res.Value.Trend < DemandFloor || res.Value.Trend > DemandCeiling {
					t.Fatalf("demand %v out of bounds for %s/%v", res.Value.Trend, crop, r)
				}
			}
		}
	}
}

func TestDemandNoiseBounds(t *testing.T) {
	ctx := context.Background()
	low := NewDemandProvider(tables, fixedSource(0), zerolog.Nop()).Estimate(ctx, "cotton", reference.West)
	high := NewDemandProvider(tables, fixedSource(0.999999), zerolog.Nop()).Estimate(ctx, "cotton", reference.West)

	if diff := low.Value.Trend - 0.75; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("expected 0.85-0.1, got %v", low.Value.Trend)
	}
	if high.Value.Trend < 0.9499 || high.Value.Trend > DemandCeiling {
		t.Fatalf("expected 0.85+~0.1 within the ceiling, got %v", high.Value.Trend)
	}
}

func TestDemandFloor(t *testing.T) {
	doc := []byte(`
demand:
  weed: {north: 0.05}
market_default: {trend_min: 0.5, trend_max: 0.5, price_min: 2000, price_max: 2000}
`)
	custom, err := reference.Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res := NewDemandProvider(custom, fixedSource(0), zerolog.Nop()).Estimate(context.Background(), "weed", reference.North)
	if res.Value.Trend != DemandFloor {
		t.Fatalf("expected floor %v, got %v", DemandFloor, res.Value.Trend)
	}
}

func TestDemandDegradesOnEmptyCrop(t *testing.T) {
	res := NewDemandProvider(tables, fixedSource(0.5), zerolog.Nop()).Estimate(context.Background(), " ", reference.North)
	if !res.Degraded || res.Value.Trend != NeutralTrend {
		t.Fatalf("expected neutral degraded demand, got %+v", res)
	}
}

func TestBoardFeedPrefersFreshQuotes(t *testing.T) {
	board := store.NewMemoryStore[Quote](4, time.Hour)
	board.Save("rice", Quote{Crop: "rice", Trend: 0.77, Price: 2100, At: time.Now()})

	feed := NewBoardFeed(board, staticFeed{Trend: 0.1, Price: 1})

	q, err := feed.Quote(context.Background(), "RICE")
	if err != nil || q.Trend != 0.77 {
		t.Fatalf("expected board quote, got %+v err=%v", q, err)
	}
	q, err = feed.Quote(context.Background(), "wheat")
	if err != nil || q.Trend != 0.1 {
		t.Fatalf("expected fallback quote, got %+v err=%v", q, err)
	}
}

func TestRefresherFillsBoard(t *testing.T) {
	board := store.NewMemoryStore[Quote](4, time.Hour)
	r := NewRefresher(tables, NewSimulatedFeed(tables, fixedSource(0.5)), board)

	n, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(tables.Crops()) || board.Keys() != n {
		t.Fatalf("expected %d crops refreshed, got %d (board %d)", len(tables.Crops()), n, board.Keys())
	}

	q, err := board.Latest("rice")
	if err != nil || q.Trend < 0.6999 || q.Trend > 0.7001 || q.Price != 2000 {
		t.Fatalf("unexpected refreshed rice quote %+v err=%v", q, err)
	}
}

func TestLabel(t *testing.T) {
	cases := map[float64]string{0.95: "High", 0.7: "High", 0.69: "Moderate", 0.4: "Moderate", 0.39: "Low", 0.1: "Low"}
	for v, want := range cases {
		if got := Label(v); got != want {
			t.Errorf("Label(%v) = %q, want %q", v, got, want)
		}
	}
}
