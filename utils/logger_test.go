package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want Level
	}{
		{"info", LevelInfo},
		{" WARN ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"debug", LevelDebug},
		{"", LevelDebug},
		{"verbose", LevelDebug},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.raw), "ParseLevel(%q)", tt.raw)
	}
}

func TestLoggerDropsBelowLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerTo(&out, &errOut, LevelWarn)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("shown %d", 3)
	l.Error("failed %d", 4)

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown 3")
	assert.Contains(t, errOut.String(), "failed 4")
}
