package reference

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/i474232898/crop-recommendation/internal/common"
)

//go:embed data/reference.yaml
var embedded []byte

// ErrInvalidTables is returned when reference data fails validation.
var ErrInvalidTables = errors.New("invalid reference data")

type document struct {
	Regions           []regionDoc                   `koanf:"regions"`
	Crops             map[string]cropDoc            `koanf:"crops"`
	MarketDefault     marketDoc                     `koanf:"market_default"`
	MarketMultipliers map[string]map[string]float64 `koanf:"market_multipliers"`
	Demand            map[string]map[string]float64 `koanf:"demand"`
	DemandDefault     float64                       `koanf:"demand_default"`
	TrainingSamples   []sampleDoc                   `koanf:"training_samples"`
}

type regionDoc struct {
	Slug         string   `koanf:"slug"`
	Climate      string   `koanf:"climate"`
	TypicalCrops []string `koanf:"typical_crops"`
	Cities       []string `koanf:"cities"`
}

type cropDoc struct {
	Optimal *struct {
		Temperature float64 `koanf:"temperature"`
		Humidity    float64 `koanf:"humidity"`
		Rainfall    float64 `koanf:"rainfall"`
	} `koanf:"optimal"`
	Months []int      `koanf:"months"`
	Market *marketDoc `koanf:"market"`
}

type marketDoc struct {
	TrendMin float64 `koanf:"trend_min"`
	TrendMax float64 `koanf:"trend_max"`
	PriceMin float64 `koanf:"price_min"`
	PriceMax float64 `koanf:"price_max"`
}

type sampleDoc struct {
	Features []float64 `koanf:"features"`
	Label    string    `koanf:"label"`
}

// bytesProvider feeds an in-memory document to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("bytesProvider does not support Read")
}

// Default loads the reference tables compiled into the binary.
func Default() (*Tables, error) {
	return parse(bytesProvider(embedded))
}

// MustDefault is Default for tests and package-level fixtures.
func MustDefault() *Tables {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads reference tables from a YAML file; an empty path selects the embedded data.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default()
	}
	return parse(file.Provider(path))
}

// Parse builds tables from a YAML document held in memory.
func Parse(data []byte) (*Tables, error) {
	return parse(bytesProvider(data))
}

func parse(p koanf.Provider) (*Tables, error) {
	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read reference data: %w", err)
	}

	var doc document
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("decode reference data: %w", err)
	}

	return build(doc)
}

func build(doc document) (*Tables, error) {
	t := &Tables{
		regions:     make(map[Region]RegionInfo, len(doc.Regions)),
		cities:      make(map[string]Region),
		optima:      make(map[string]Conditions),
		months:      make(map[string][]int),
		market:      make(map[string]MarketRange),
		multipliers: make(map[Region]map[string]float64),
		demand:      make(map[string]map[Region]float64),
		samples:     make([]Sample, 0, len(doc.TrainingSamples)),
	}

	for _, rd := range doc.Regions {
		r := ParseRegion(rd.Slug)
		if r == Unknown {
			return nil, fmt.Errorf("%w: unknown region %q", ErrInvalidTables, rd.Slug)
		}
		if _, dup := t.regions[r]; dup {
			return nil, fmt.Errorf("%w: region %q listed twice", ErrInvalidTables, rd.Slug)
		}

		cities := make([]string, 0, len(rd.Cities))
		for _, c := range rd.Cities {
			key := common.Normalize(c)
			if prev, dup := t.cities[key]; dup && prev != r {
				return nil, fmt.Errorf("%w: city %q mapped to both %s and %s", ErrInvalidTables, c, prev, r)
			}
			t.cities[key] = r
			cities = append(cities, key)
		}

		t.regions[r] = RegionInfo{
			Region:       r,
			Name:         r.Name(),
			Code:         r.Code(),
			Climate:      rd.Climate,
			TypicalCrops: append([]string(nil), rd.TypicalCrops...),
			MajorCities:  cities,
		}
	}

	for name, cd := range doc.Crops {
		key := common.Normalize(name)
		if cd.Optimal != nil {
			if cd.Optimal.Temperature <= 0 || cd.Optimal.Humidity <= 0 || cd.Optimal.Rainfall < 0 {
				return nil, fmt.Errorf("%w: crop %q has non-positive optimal conditions", ErrInvalidTables, name)
			}
			t.optima[key] = Conditions{
				Temperature: cd.Optimal.Temperature,
				Humidity:    cd.Optimal.Humidity,
				Rainfall:    cd.Optimal.Rainfall,
			}
		}
		if len(cd.Months) > 0 {
			for _, m := range cd.Months {
				if m < 1 || m > 12 {
					return nil, fmt.Errorf("%w: crop %q has month %d", ErrInvalidTables, name, m)
				}
			}
			t.months[key] = append([]int(nil), cd.Months...)
		}
		if cd.Market != nil {
			mr, err := marketRange(*cd.Market)
			if err != nil {
				return nil, fmt.Errorf("%w: crop %q: %v", ErrInvalidTables, name, err)
			}
			t.market[key] = mr
		}
	}

	md, err := marketRange(doc.MarketDefault)
	if err != nil {
		return nil, fmt.Errorf("%w: market_default: %v", ErrInvalidTables, err)
	}
	t.marketDefault = md

	for slug, byCrop := range doc.MarketMultipliers {
		r := ParseRegion(slug)
		if r == Unknown {
			return nil, fmt.Errorf("%w: market multipliers for unknown region %q", ErrInvalidTables, slug)
		}
		m := make(map[string]float64, len(byCrop))
		for crop, mult := range byCrop {
			if mult <= 0 {
				return nil, fmt.Errorf("%w: multiplier for %s/%s must be positive", ErrInvalidTables, slug, crop)
			}
			m[common.Normalize(crop)] = mult
		}
		t.multipliers[r] = m
	}

	for crop, byRegion := range doc.Demand {
		m := make(map[Region]float64, len(byRegion))
		for slug, d := range byRegion {
			r := ParseRegion(slug)
			if r == Unknown {
				return nil, fmt.Errorf("%w: demand for %q in unknown region %q", ErrInvalidTables, crop, slug)
			}
			m[r] = d
		}
		t.demand[common.Normalize(crop)] = m
	}

	t.demandDefault = doc.DemandDefault
	if t.demandDefault == 0 {
		t.demandDefault = 0.5
	}

	for i, s := range doc.TrainingSamples {
		if s.Label == "" || len(s.Features) == 0 {
			return nil, fmt.Errorf("%w: training sample %d is incomplete", ErrInvalidTables, i)
		}
		t.samples = append(t.samples, Sample{
			Features: append([]float64(nil), s.Features...),
			Label:    s.Label,
		})
	}

	return t, nil
}

func marketRange(d marketDoc) (MarketRange, error) {
	if d.TrendMin > d.TrendMax || d.PriceMin > d.PriceMax {
		return MarketRange{}, errors.New("range minimum exceeds maximum")
	}
	return MarketRange{
		TrendMin: d.TrendMin,
		TrendMax: d.TrendMax,
		PriceMin: d.PriceMin,
		PriceMax: d.PriceMax,
	}, nil
}
