// Package classifier predicts the primary crop for a feature vector.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/i474232898/crop-recommendation/internal/features"
	"github.com/i474232898/crop-recommendation/internal/metrics"
)

var (
	// ErrEmptyPrediction is returned when a backend answers without a crop name.
	ErrEmptyPrediction = errors.New("classifier returned no prediction")
	ErrNoSamples       = errors.New("no usable training samples")
)

// Classifier maps a feature vector to a crop name.
type Classifier interface {
	Predict(ctx context.Context, v features.Vector) (string, error)
}

// Named is implemented by classifiers that report a backend label for metrics.
type Named interface {
	Backend() string
}

// Fallback consults Secondary when Primary fails. Either may be nil.
type Fallback struct {
	Primary   Classifier
	Secondary Classifier
	Logger    zerolog.Logger
}

func (f *Fallback) Predict(ctx context.Context, v features.Vector) (string, error) {
	if f.Primary == nil && f.Secondary == nil {
		return "", fmt.Errorf("no classifier configured")
	}
	if f.Primary == nil {
		return observe(ctx, f.Secondary, v)
	}

	crop, err := observe(ctx, f.Primary, v)
	if err == nil {
		return crop, nil
	}
	if f.Secondary == nil || ctx.Err() != nil {
		return "", err
	}

	f.Logger.Warn().Err(err).
		Str("primary", backendName(f.Primary)).
		Str("secondary", backendName(f.Secondary)).
		Msg("primary classifier failed, using fallback")

	crop, fbErr := observe(ctx, f.Secondary, v)
	if fbErr != nil {
		return "", errors.Join(err, fbErr)
	}
	return crop, nil
}

func observe(ctx context.Context, c Classifier, v features.Vector) (string, error) {
	crop, err := c.Predict(ctx, v)
	if err == nil && crop == "" {
		err = ErrEmptyPrediction
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ClassifierRequests.WithLabelValues(backendName(c), status).Inc()
	return crop, err
}

func backendName(c Classifier) string {
	if n, ok := c.(Named); ok {
		return n.Backend()
	}
	return "custom"
}
