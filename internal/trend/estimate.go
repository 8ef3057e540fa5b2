package trend

import "time"

// Estimate is the output contract shared by both providers. Price is in rupees
// per quintal and is zero for demand estimates.
type Estimate struct {
	Trend float64 `json:"trend"`
	Price float64 `json:"price"`
}

// NeutralTrend is substituted whenever a provider cannot produce an estimate.
const NeutralTrend = 0.5

// Quote is one base market observation for a crop, before regional adjustment.
type Quote struct {
	Crop  string    `json:"crop"`
	Trend float64   `json:"trend"`
	Price float64   `json:"price"`
	At    time.Time `json:"at"`
}

// ObservedAt lets quotes live in a store.MemoryStore.
func (q Quote) ObservedAt() time.Time { return q.At }

// Label buckets a trend value the way it is presented to farmers.
func Label(trend float64) string {
	switch {
	case trend >= 0.7:
		return "High"
	case trend >= 0.4:
		return "Moderate"
	default:
		return "Low"
	}
}
