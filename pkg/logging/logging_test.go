package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, level := range []string{"", "debug", "INFO", "warn", "error"} {
		logger, err := New(level)
		if err != nil {
			t.Errorf("New(%q) failed: %v", level, err)
			continue
		}
		logger.Sync()
	}

	if _, err := New("loud"); err == nil {
		t.Error("New should reject an unknown level")
	}
}

func TestNewEnablesDebug(t *testing.T) {
	logger, err := New("debug")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ce := logger.Check(zapcore.DebugLevel, "x"); ce == nil {
		t.Error("debug logger should accept debug entries")
	}

	logger, err = New("warn")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ce := logger.Check(zapcore.InfoLevel, "x"); ce != nil {
		t.Error("warn logger should drop info entries")
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		configured     string
		debug, verbose bool
		want           string
	}{
		{"warn", false, false, "warn"},
		{"warn", true, false, "debug"},
		{"", false, true, "debug"},
	}
	for _, tt := range tests {
		if got := Level(tt.configured, tt.debug, tt.verbose); got != tt.want {
			t.Errorf("Level(%q, %v, %v) = %q, want %q", tt.configured, tt.debug, tt.verbose, got, tt.want)
		}
	}
}
