package common

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Delhi ":    "delhi",
		"NAVI Mumbai": "navi mumbai",
		"":            "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(1.2, 0, 0.95); got != 0.95 {
		t.Fatalf("expected upper bound, got %v", got)
	}
	if got := Clamp(-0.3, 0.1, 0.95); got != 0.1 {
		t.Fatalf("expected lower bound, got %v", got)
	}
	if got := Clamp(0.5, 0, 1); got != 0.5 {
		t.Fatalf("expected value unchanged, got %v", got)
	}
}

func TestIsFinite(t *testing.T) {
	if IsFinite(math.NaN()) || IsFinite(math.Inf(1)) {
		t.Fatal("NaN and Inf must not be finite")
	}
	if !IsFinite(0.7) {
		t.Fatal("0.7 is finite")
	}
}
