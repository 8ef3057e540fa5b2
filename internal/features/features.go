// Package features assembles the classifier input vector.
package features

import "github.com/i474232898/crop-recommendation/internal/weather"

// Column positions. The classifier was trained on exactly this order.
const (
	Temperature = iota
	Humidity
	Rainfall
	Month
	PreviousSales
	MarketPrice
	DemandTrend

	Width
)

// Training-set column means injected for the two inputs the service has no
// per-request value for.
const (
	PreviousSalesDefault = 984.0
	MarketPriceDefault   = 40.0
)

// Names labels each column, in order.
var Names = [Width]string{
	"temperature",
	"humidity",
	"rainfall",
	"month",
	"previous_sales",
	"market_price",
	"demand_trend",
}

// Vector is the fixed-order classifier input.
type Vector [Width]float64

// Build assembles the vector. month must already be validated to 1..12.
func Build(w weather.Snapshot, month int, demandTrend float64) Vector {
	var v Vector
	v[Temperature] = w.Temperature
	v[Humidity] = w.Humidity
	v[Rainfall] = w.Rainfall
	v[Month] = float64(month)
	v[PreviousSales] = PreviousSalesDefault
	v[MarketPrice] = MarketPriceDefault
	v[DemandTrend] = demandTrend
	return v
}

// Slice returns the vector as a slice for transport encoders.
func (v Vector) Slice() []float64 {
	out := make([]float64, Width)
	copy(out, v[:])
	return out
}
