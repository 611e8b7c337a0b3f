package config

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestResolveLogLevel(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want logrus.Level
	}{
		{"default is info", "", logrus.InfoLevel},
		{"debug", "debug", logrus.DebugLevel},
		{"warn", "warn", logrus.WarnLevel},
		{"error", "error", logrus.ErrorLevel},
		{"unparseable falls back to info", "loud", logrus.InfoLevel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveLogLevel(tc.raw); got != tc.want {
				t.Fatalf("resolveLogLevel(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}
