// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package geoerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesWrapKinds(t *testing.T) {
	tests := []struct {
		code error
		kind error
	}{
		{ErrInvalidPeriods, ErrValidation},
		{ErrUnassignedGeo, ErrValidation},
		{ErrInsufficientGeos, ErrInsufficientData},
		{ErrEmptyTestWindow, ErrInsufficientData},
		{ErrDegenerateRegression, ErrDegenerateModel},
		{ErrUndefinedRatio, ErrDegenerateModel},
		{ErrInvalidLevel, ErrInvalidParameter},
		{ErrQueryParameters, ErrInvalidParameter},
	}

	for i, test := range tests {
		wrapped := fmt.Errorf("geo %q: %w", "g1", test.code)
		if !errors.Is(wrapped, test.code) {
			t.Errorf("Test %d: errors.Is(wrapped, code) = false; want true", i+1)
		}
		if !errors.Is(wrapped, test.kind) {
			t.Errorf("Test %d: errors.Is(wrapped, %v) = false; want true", i+1, test.kind)
		}
	}

	if errors.Is(ErrZeroCost, ErrValidation) {
		t.Errorf("ErrZeroCost should not be a validation error")
	}
}
