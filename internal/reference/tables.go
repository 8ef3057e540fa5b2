package reference

import (
	"sort"

	"github.com/i474232898/crop-recommendation/internal/common"
)

const (
	fallbackClimate = "Varied climate conditions"
	// AggregateDemandKey is the pseudo-crop whose demand row feeds the classifier.
	AggregateDemandKey = "agriculture"
)

var fallbackCrops = []string{"Rice", "Wheat", "Maize"}

// RegionInfo is the static metadata of one region.
type RegionInfo struct {
	Region       Region   `json:"-"`
	Name         string   `json:"name"`
	Code         int      `json:"code"`
	Climate      string   `json:"climate"`
	TypicalCrops []string `json:"typical_crops"`
	MajorCities  []string `json:"major_cities"`
}

// Conditions is an optimal (temperature °C, humidity %, rainfall mm) triple for a crop.
type Conditions struct {
	Temperature float64
	Humidity    float64
	Rainfall    float64
}

// MarketRange bounds the simulated base trend and price of a crop.
type MarketRange struct {
	TrendMin float64
	TrendMax float64
	PriceMin float64
	PriceMax float64
}

// Sample is one labelled row of the classifier training set.
type Sample struct {
	Features []float64
	Label    string
}

// Tables is the immutable reference data loaded at startup. All lookups are
// safe for concurrent use and return copies of slices.
type Tables struct {
	regions       map[Region]RegionInfo
	cities        map[string]Region
	optima        map[string]Conditions
	months        map[string][]int
	market        map[string]MarketRange
	marketDefault MarketRange
	multipliers   map[Region]map[string]float64
	demand        map[string]map[Region]float64
	demandDefault float64
	samples       []Sample
}

// Resolve maps a free-text city name to its region, or Unknown.
func (t *Tables) Resolve(city string) Region {
	if r, ok := t.cities[common.Normalize(city)]; ok {
		return r
	}
	return Unknown
}

// ResolveOrDefault resolves city and substitutes DefaultRegion for unknown cities.
// substituted is true when the fallback was applied.
func (t *Tables) ResolveOrDefault(city string) (r Region, substituted bool) {
	r = t.Resolve(city)
	if r == Unknown {
		return DefaultRegion, true
	}
	return r, false
}

// TypicalCrops returns the region's staple crops in ranked order.
func (t *Tables) TypicalCrops(r Region) []string {
	if info, ok := t.regions[r]; ok && len(info.TypicalCrops) > 0 {
		return append([]string(nil), info.TypicalCrops...)
	}
	return append([]string(nil), fallbackCrops...)
}

// ClimateDescription returns the free-text climate summary of a region.
func (t *Tables) ClimateDescription(r Region) string {
	if info, ok := t.regions[r]; ok && info.Climate != "" {
		return info.Climate
	}
	return fallbackClimate
}

// Info returns the region metadata, filling gaps with the documented fallbacks.
func (t *Tables) Info(r Region) RegionInfo {
	info := RegionInfo{
		Region:       r,
		Name:         r.Name(),
		Code:         r.Code(),
		Climate:      t.ClimateDescription(r),
		TypicalCrops: t.TypicalCrops(r),
	}
	if known, ok := t.regions[r]; ok {
		info.MajorCities = append([]string(nil), known.MajorCities...)
	}
	return info
}

// Regions returns metadata for every known region in display order.
func (t *Tables) Regions() []RegionInfo {
	out := make([]RegionInfo, 0, len(All))
	for _, r := range All {
		out = append(out, t.Info(r))
	}
	return out
}

// Optimal returns the optimal growing conditions of a crop.
func (t *Tables) Optimal(crop string) (Conditions, bool) {
	c, ok := t.optima[common.Normalize(crop)]
	return c, ok
}

// SuitableMonths returns the months (1..12) a crop is in season.
func (t *Tables) SuitableMonths(crop string) ([]int, bool) {
	m, ok := t.months[common.Normalize(crop)]
	if !ok {
		return nil, false
	}
	return append([]int(nil), m...), true
}

// MarketRange returns the crop's simulated market range; unknown crops get the
// default entry and ok=false.
func (t *Tables) MarketRange(crop string) (MarketRange, bool) {
	if mr, ok := t.market[common.Normalize(crop)]; ok {
		return mr, true
	}
	return t.marketDefault, false
}

// MarketMultiplier returns the regional trend multiplier for a crop, 1.0 when absent.
func (t *Tables) MarketMultiplier(r Region, crop string) float64 {
	if byCrop, ok := t.multipliers[r]; ok {
		if m, ok := byCrop[common.Normalize(crop)]; ok {
			return m
		}
	}
	return 1.0
}

// Demand returns the static demand score of a crop in a region; ok=false when
// the default matrix value was used.
func (t *Tables) Demand(crop string, r Region) (float64, bool) {
	if byRegion, ok := t.demand[common.Normalize(crop)]; ok {
		if d, ok := byRegion[r]; ok {
			return d, true
		}
	}
	return t.demandDefault, false
}

// Crops lists every crop with a market range, sorted.
func (t *Tables) Crops() []string {
	out := make([]string, 0, len(t.market))
	for name := range t.market {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Samples returns the labelled classifier training rows.
func (t *Tables) Samples() []Sample {
	out := make([]Sample, len(t.samples))
	for i, s := range t.samples {
		out[i] = Sample{Features: append([]float64(nil), s.Features...), Label: s.Label}
	}
	return out
}
