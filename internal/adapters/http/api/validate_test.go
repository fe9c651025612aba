package api

import (
	"math"
	"testing"
)

func TestValidDescriptor(t *testing.T) {
	cases := []struct {
		name string
		in   []float64
		ok   bool
	}{
		{"empty", nil, false},
		{"finite", []float64{0.1, -0.2, 0}, true},
		{"nan", []float64{0.1, math.NaN()}, false},
		{"inf", []float64{math.Inf(-1)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validDescriptor(tc.in); (err == nil) != tc.ok {
				t.Fatalf("validDescriptor(%v) = %v, want ok=%v", tc.in, err, tc.ok)
			}
		})
	}
}

func TestGetErrorType(t *testing.T) {
	cases := map[int]string{
		400: "client_error",
		404: "not_found",
		409: "conflict",
		429: "rate_limit",
		500: "server_error",
		503: "unavailable",
	}
	for code, want := range cases {
		if got := getErrorType(code); got != want {
			t.Errorf("getErrorType(%d) = %q, want %q", code, got, want)
		}
	}
}
