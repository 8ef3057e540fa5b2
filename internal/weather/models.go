package weather

import (
	"time"
)

// Location identifies the place a provider is queried for.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Key returns a canonical string key for logging and caching.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// Snapshot is the normalized weather view the recommendation engine consumes.
// Rainfall is the recent precipitation in mm and is 0 when no provider reports it.
type Snapshot struct {
	City        string    `json:"city,omitempty"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Rainfall    float64   `json:"rainfall"`
	Timestamp   time.Time `json:"timestamp"` // always UTC

	// Providers contributing to this snapshot.
	Providers []ProviderContribution `json:"providers,omitempty"`
}

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
}
