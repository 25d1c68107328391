package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
		ok   bool
	}{
		{"debug", zerolog.DebugLevel, true},
		{" WARNING ", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"", zerolog.InfoLevel, false},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, ok)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Out = &buf
	log := New("flm-test", cfg)

	log.Info().Msg("hidden")
	log.Error().Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Info message should be filtered")
	}
	if !strings.Contains(out, `"app":"flm-test"`) || !strings.Contains(out, "visible") {
		t.Errorf("Unexpected output: %s", out)
	}
}
