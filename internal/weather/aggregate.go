package weather

import "time"

// AggregateReadings averages multiple provider readings into a single Snapshot.
// The newest provider timestamp becomes the snapshot timestamp.
func AggregateReadings(loc Location, readings []ProviderReading) Snapshot {
	if len(readings) == 0 {
		return Snapshot{
			City:      loc.City,
			Timestamp: time.Now().UTC(),
		}
	}

	var sumTemp, sumHumidity, sumPrecip float64
	providers := make([]ProviderContribution, 0, len(readings))
	var newestTS time.Time

	for _, r := range readings {
		sumTemp += r.TemperatureC
		sumHumidity += r.HumidityPct
		sumPrecip += r.PrecipMm

		if r.Timestamp.After(newestTS) {
			newestTS = r.Timestamp
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.Timestamp,
		})
	}

	if newestTS.IsZero() {
		newestTS = time.Now().UTC()
	}

	n := float64(len(readings))
	return Snapshot{
		City:        loc.City,
		Temperature: sumTemp / n,
		Humidity:    sumHumidity / n,
		Rainfall:    sumPrecip / n,
		Timestamp:   newestTS,
		Providers:   providers,
	}
}
