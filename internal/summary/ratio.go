// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package summary

import (
	"fmt"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
)

// CheckDenominator fails with ErrUndefinedRatio when any draw is zero or the
// draws do not all share one sign.
func CheckDenominator(den []float64) error {
	if len(den) == 0 {
		return geoerr.ErrEmptyDrawSet
	}
	pos, neg := 0, 0
	for i, d := range den {
		switch {
		case d > 0:
			pos++
		case d < 0:
			neg++
		default:
			return fmt.Errorf("denominator draw %d is zero: %w", i, geoerr.ErrUndefinedRatio)
		}
	}
	if pos > 0 && neg > 0 {
		return fmt.Errorf("denominator changes sign (%d positive, %d negative draws): %w",
			pos, neg, geoerr.ErrUndefinedRatio)
	}
	return nil
}

// RatioDraws divides num by den draw by draw.
func RatioDraws(num, den []float64) ([]float64, error) {
	if len(num) != len(den) {
		return nil, fmt.Errorf("%d numerator draws, %d denominator draws: %w",
			len(num), len(den), geoerr.ErrBadParameter)
	}
	if err := CheckDenominator(den); err != nil {
		return nil, err
	}
	out := make([]float64, len(num))
	for i := range num {
		out[i] = num[i] / den[i]
	}
	return out, nil
}
