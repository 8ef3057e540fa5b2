package trend

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/crop-recommendation/internal/common"
	"github.com/i474232898/crop-recommendation/internal/reference"
	"github.com/i474232898/crop-recommendation/internal/store"
)

// Feed supplies the base market quote for a crop. A live market-data
// integration implements this interface.
type Feed interface {
	Quote(ctx context.Context, crop string) (Quote, error)
}

// SimulatedFeed draws quotes uniformly from each crop's configured range.
// Unknown crops use the default range.
type SimulatedFeed struct {
	tables *reference.Tables
	rnd    Source
	now    func() time.Time
}

func NewSimulatedFeed(tables *reference.Tables, rnd Source) *SimulatedFeed {
	return &SimulatedFeed{tables: tables, rnd: rnd, now: time.Now}
}

func (f *SimulatedFeed) Quote(_ context.Context, crop string) (Quote, error) {
	mr, _ := f.tables.MarketRange(crop)
	return Quote{
		Crop:  common.Normalize(crop),
		Trend: mr.TrendMin + f.rnd.Float64()*(mr.TrendMax-mr.TrendMin),
		Price: mr.PriceMin + f.rnd.Float64()*(mr.PriceMax-mr.PriceMin),
		At:    f.now().UTC(),
	}, nil
}

// BoardFeed serves the latest refreshed quote from the market board and falls
// back to another feed for crops the board has nothing fresh for.
type BoardFeed struct {
	board    *store.MemoryStore[Quote]
	fallback Feed
}

func NewBoardFeed(board *store.MemoryStore[Quote], fallback Feed) *BoardFeed {
	return &BoardFeed{board: board, fallback: fallback}
}

func (f *BoardFeed) Quote(ctx context.Context, crop string) (Quote, error) {
	q, err := f.board.Latest(common.Normalize(crop))
	if err == nil {
		return q, nil
	}
	if !errors.Is(err, store.ErrNotFound) || f.fallback == nil {
		return Quote{}, err
	}
	return f.fallback.Quote(ctx, crop)
}

// Refresher snapshots a quote for every known crop into the market board.
type Refresher struct {
	tables *reference.Tables
	source Feed
	board  *store.MemoryStore[Quote]
}

func NewRefresher(tables *reference.Tables, source Feed, board *store.MemoryStore[Quote]) *Refresher {
	return &Refresher{tables: tables, source: source, board: board}
}

// Refresh returns the number of crops updated. A failing crop does not stop the run.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	var (
		updated int
		errs    []error
	)
	for _, crop := range r.tables.Crops() {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		q, err := r.source.Quote(ctx, crop)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.board.Save(crop, q)
		updated++
	}
	return updated, errors.Join(errs...)
}
