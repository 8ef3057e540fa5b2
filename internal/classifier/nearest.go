package classifier

import (
	"context"
	"fmt"
	"math"

	"github.com/i474232898/crop-recommendation/internal/features"
	"github.com/i474232898/crop-recommendation/internal/reference"
)

// NearestNeighbor labels a vector with the closest training sample after
// standardizing every column to zero mean and unit variance.
type NearestNeighbor struct {
	samples []features.Vector
	labels  []string
	mean    features.Vector
	std     features.Vector
}

// NewNearestNeighbor skips samples whose width does not match the feature vector.
func NewNearestNeighbor(samples []reference.Sample) (*NearestNeighbor, error) {
	nn := &NearestNeighbor{}
	for _, s := range samples {
		if len(s.Features) != features.Width || s.Label == "" {
			continue
		}
		var v features.Vector
		copy(v[:], s.Features)
		nn.samples = append(nn.samples, v)
		nn.labels = append(nn.labels, s.Label)
	}
	if len(nn.samples) == 0 {
		return nil, ErrNoSamples
	}

	n := float64(len(nn.samples))
	for _, v := range nn.samples {
		for i := range v {
			nn.mean[i] += v[i] / n
		}
	}
	for _, v := range nn.samples {
		for i := range v {
			d := v[i] - nn.mean[i]
			nn.std[i] += d * d / n
		}
	}
	for i := range nn.std {
		nn.std[i] = math.Sqrt(nn.std[i])
		// Constant columns carry no signal.
		if nn.std[i] == 0 {
			nn.std[i] = 1
		}
	}
	return nn, nil
}

func (nn *NearestNeighbor) Backend() string { return "nearest_neighbor" }

func (nn *NearestNeighbor) Predict(ctx context.Context, v features.Vector) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("feature %s is not finite", features.Names[i])
		}
	}

	best, bestDist := -1, math.Inf(1)
	for j, s := range nn.samples {
		var dist float64
		for i := range v {
			d := (v[i] - s[i]) / nn.std[i]
			dist += d * d
		}
		// Strict comparison keeps the earliest sample on ties.
		if dist < bestDist {
			best, bestDist = j, dist
		}
	}
	return nn.labels[best], nil
}
