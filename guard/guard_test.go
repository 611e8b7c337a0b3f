package guard

import (
	"testing"
	"time"
)

func TestRefill(t *testing.T) {
	cases := []struct {
		name    string
		tokens  int64
		elapsed time.Duration
		want    int64
	}{
		{"no time passed", 5, 0, 5},
		{"partial interval earns nothing", 5, 30 * time.Minute, 5},
		{"one interval refills to capacity", 0, time.Hour, 10},
		{"refill never exceeds capacity", 9, 3 * time.Hour, 10},
		{"negative elapsed is a no-op", 5, -time.Minute, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := refill(tc.tokens, tc.elapsed)
			if got != tc.want {
				t.Fatalf("refill(%d, %s) = %d; want %d", tc.tokens, tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestResetIn(t *testing.T) {
	cases := []struct {
		name        string
		tokens      int64
		sinceRefill time.Duration
		want        time.Duration
	}{
		{"full bucket", 10, 0, 0},
		{"empty bucket fresh", 0, 0, time.Hour},
		{"empty bucket mid-interval", 0, 30 * time.Minute, 30 * time.Minute},
		{"half bucket still needs one interval", 5, 0, time.Hour},
		{"clamped at zero", 5, 2 * time.Hour, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resetIn(tc.tokens, tc.sinceRefill)
			if got != tc.want {
				t.Fatalf("resetIn(%d, %s) = %s; want %s", tc.tokens, tc.sinceRefill, got, tc.want)
			}
		})
	}
}
