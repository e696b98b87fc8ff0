// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
)

func TestNew(t *testing.T) {
	tests := []struct {
		Level       string
		Development bool
		Enabled     zapcore.Level
		Disabled    zapcore.Level
	}{
		{"debug", true, zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"info", false, zapcore.InfoLevel, zapcore.DebugLevel},
		{"warn", false, zapcore.WarnLevel, zapcore.InfoLevel},
	}
	for i, test := range tests {
		logger, err := New(test.Level, test.Development)
		if err != nil {
			t.Fatalf("Test %d: New(%q): %v", i+1, test.Level, err)
		}
		if !logger.Core().Enabled(test.Enabled) {
			t.Errorf("Test %d: level %v should be enabled", i+1, test.Enabled)
		}
		if logger.Core().Enabled(test.Disabled) {
			t.Errorf("Test %d: level %v should be disabled", i+1, test.Disabled)
		}
	}

	if _, err := New("loud", false); !errors.Is(err, geoerr.ErrBadParameter) {
		t.Errorf("bad level: err = %v; want ErrBadParameter", err)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	OrNop(nil).Info("discarded")
}
