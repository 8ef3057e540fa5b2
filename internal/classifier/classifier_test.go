package classifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/i474232898/crop-recommendation/internal/features"
	"github.com/i474232898/crop-recommendation/internal/reference"
)

type stubClassifier struct {
	crop  string
	err   error
	calls int
}

func (s *stubClassifier) Predict(context.Context, features.Vector) (string, error) {
	s.calls++
	return s.crop, s.err
}

func vector(values ...float64) features.Vector {
	var v features.Vector
	copy(v[:], values)
	return v
}

func TestRemotePredict(t *testing.T) {
	var got predictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recommendations": ["rice", "maize"]}`))
	}))
	defer srv.Close()

	r := NewRemote(srv.URL+"/", srv.Client(), time.Second)
	v := vector(25, 80, 200, 6, features.PreviousSalesDefault, features.MarketPriceDefault, 0.6)

	crop, err := r.Predict(context.Background(), v)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if crop != "rice" {
		t.Errorf("crop = %q, want rice", crop)
	}
	if len(got.Features) != 1 || len(got.Features[0]) != features.Width {
		t.Fatalf("request features = %v, want one row of %d", got.Features, features.Width)
	}
	if got.Features[0][features.Month] != 6 || got.Features[0][features.PreviousSales] != 984 {
		t.Errorf("request row = %v", got.Features[0])
	}
}

func TestRemoteErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "expected 7 features"}`))
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, srv.Client(), time.Second).Predict(context.Background(), vector())
	if err == nil || !strings.Contains(err.Error(), "expected 7 features") {
		t.Fatalf("err = %v, want upstream message", err)
	}
}

func TestRemoteEmptyRecommendations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"recommendations": []}`))
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, srv.Client(), time.Second).Predict(context.Background(), vector())
	if !errors.Is(err, ErrEmptyPrediction) {
		t.Fatalf("err = %v, want ErrEmptyPrediction", err)
	}
}

func TestRemoteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, srv.Client(), 50*time.Millisecond).Predict(context.Background(), vector())
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestNearestNeighborMatchesTrainingRows(t *testing.T) {
	samples := reference.MustDefault().Samples()
	nn, err := NewNearestNeighbor(samples)
	if err != nil {
		t.Fatalf("NewNearestNeighbor: %v", err)
	}

	for _, s := range samples {
		crop, err := nn.Predict(context.Background(), vector(s.Features...))
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		if crop != s.Label {
			t.Errorf("Predict(%v) = %q, want %q", s.Features, crop, s.Label)
		}
	}
}

func TestNearestNeighborSkipsMalformedSamples(t *testing.T) {
	_, err := NewNearestNeighbor([]reference.Sample{{Features: []float64{1, 2}, Label: "rice"}})
	if !errors.Is(err, ErrNoSamples) {
		t.Fatalf("err = %v, want ErrNoSamples", err)
	}

	nn, err := NewNearestNeighbor([]reference.Sample{
		{Features: []float64{1, 2}, Label: "bad"},
		{Features: []float64{20, 50, 50, 11, 900, 40, 0.5}, Label: "wheat"},
		{Features: []float64{30, 85, 250, 7, 1100, 40, 0.8}, Label: "rice"},
	})
	if err != nil {
		t.Fatalf("NewNearestNeighbor: %v", err)
	}
	crop, err := nn.Predict(context.Background(), vector(29, 82, 230, 7, 1000, 40, 0.7))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if crop != "rice" {
		t.Errorf("crop = %q, want rice", crop)
	}
}

func TestFallbackUsesSecondaryOnFailure(t *testing.T) {
	primary := &stubClassifier{err: errors.New("connection refused")}
	secondary := &stubClassifier{crop: "wheat"}
	f := &Fallback{Primary: primary, Secondary: secondary, Logger: zerolog.Nop()}

	crop, err := f.Predict(context.Background(), vector())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if crop != "wheat" || primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("crop=%q primary=%d secondary=%d", crop, primary.calls, secondary.calls)
	}
}

func TestFallbackSkipsSecondaryOnSuccess(t *testing.T) {
	primary := &stubClassifier{crop: "rice"}
	secondary := &stubClassifier{crop: "wheat"}
	f := &Fallback{Primary: primary, Secondary: secondary, Logger: zerolog.Nop()}

	crop, err := f.Predict(context.Background(), vector())
	if err != nil || crop != "rice" {
		t.Fatalf("Predict = %q, %v", crop, err)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times", secondary.calls)
	}
}

func TestFallbackTreatsEmptyAsFailure(t *testing.T) {
	f := &Fallback{Primary: &stubClassifier{}, Secondary: &stubClassifier{crop: "maize"}, Logger: zerolog.Nop()}
	crop, err := f.Predict(context.Background(), vector())
	if err != nil || crop != "maize" {
		t.Fatalf("Predict = %q, %v", crop, err)
	}
}

func TestFallbackBothFail(t *testing.T) {
	f := &Fallback{
		Primary:   &stubClassifier{err: errors.New("down")},
		Secondary: &stubClassifier{err: errors.New("also down")},
		Logger:    zerolog.Nop(),
	}
	if _, err := f.Predict(context.Background(), vector()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFallbackSecondaryOnly(t *testing.T) {
	f := &Fallback{Secondary: &stubClassifier{crop: "cotton"}}
	crop, err := f.Predict(context.Background(), vector())
	if err != nil || crop != "cotton" {
		t.Fatalf("Predict = %q, %v", crop, err)
	}
}
