package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/i474232898/crop-recommendation/internal/features"
)

const defaultRemoteTimeout = 5 * time.Second

// Remote calls an external model service over HTTP.
//
// Request:  POST <baseURL>/predict {"features": [[t, h, r, month, sales, price, demand]]}
// Response: {"recommendations": ["rice", ...]} or {"error": "..."}
type Remote struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	circuit *gobreaker.CircuitBreaker
}

func NewRemote(baseURL string, client *http.Client, timeout time.Duration) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "classifier",
			MaxRequests: 3,
			Interval:    1 * time.Minute,
			Timeout:     30 * time.Second,
		}),
	}
}

func (r *Remote) Backend() string { return "remote" }

type predictRequest struct {
	Features [][]float64 `json:"features"`
}

type predictResponse struct {
	Recommendations []string `json:"recommendations"`
	Error           string   `json:"error"`
}

func (r *Remote) Predict(ctx context.Context, v features.Vector) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := json.Marshal(predictRequest{Features: [][]float64{v.Slice()}})
	if err != nil {
		return "", fmt.Errorf("encode classifier request: %w", err)
	}

	result, err := r.circuit.Execute(func() (interface{}, error) {
		return r.do(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("classifier circuit open: %w", err)
		}
		return "", err
	}

	crop, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result type from circuit breaker")
	}
	return crop, nil
}

func (r *Remote) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("classifier request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	var payload predictResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && payload.Error != "" {
			return "", fmt.Errorf("classifier status %d: %s", resp.StatusCode, payload.Error)
		}
		return "", fmt.Errorf("classifier status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode classifier response: %w", decodeErr)
	}
	if payload.Error != "" {
		return "", fmt.Errorf("classifier: %s", payload.Error)
	}
	if len(payload.Recommendations) == 0 || strings.TrimSpace(payload.Recommendations[0]) == "" {
		return "", ErrEmptyPrediction
	}
	return strings.TrimSpace(payload.Recommendations[0]), nil
}
