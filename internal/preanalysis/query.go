// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package preanalysis

import (
	"fmt"
	"math"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
	"GeoExperiment_Causality_Project/geox/internal/summary"
)

// Query asks for the spend achieving Precision, or for the precision achieved
// by spending Cost. Exactly one of the two must be set; zero means unset.
// A zero Level or a nil Interval reads the fit's own.
type Query struct {
	Level    float64
	Interval *summary.IntervalType

	Precision float64
	Cost      float64
}

// Answer is the result of a Query.
type Answer struct {
	Query Query
	// Level and interval type the answer was computed at
	Level    float64
	Interval summary.IntervalType

	// Median half-width of the effect interval across resamples; precision
	// times spend is constant and equal to Scale.
	Scale float64

	// Set when Query.Precision was given
	RequiredSpend float64
	// Set when Query.Cost was given
	Precision float64
}

// Scales returns precision times spend of every resample at the given level
// and interval type.
func (f *Fit) Scales(level float64, interval summary.IntervalType) []float64 {
	out := make([]float64, len(f.Resamples))
	for i, r := range f.Resamples {
		out[i] = r.Scale(level, interval)
	}
	return out
}

// Query inverts the precision law using the median scale over the resamples.
func (f *Fit) Query(q Query) (Answer, error) {
	level, interval := q.Level, f.Config.Interval
	if level == 0 {
		level = f.Config.Level
	}
	if q.Interval != nil {
		interval = *q.Interval
	}
	if !(level > 0 && level < 1) {
		return Answer{}, fmt.Errorf("level %v outside (0, 1): %w", level, geoerr.ErrInvalidLevel)
	}
	hasPrecision, hasCost := q.Precision != 0, q.Cost != 0
	if hasPrecision == hasCost {
		return Answer{}, fmt.Errorf("precision = %v, cost = %v: %w", q.Precision, q.Cost, geoerr.ErrQueryParameters)
	}
	if q.Precision < 0 || q.Cost < 0 || math.IsNaN(q.Precision) || math.IsNaN(q.Cost) {
		return Answer{}, fmt.Errorf("precision = %v, cost = %v must be positive: %w",
			q.Precision, q.Cost, geoerr.ErrBadParameter)
	}
	if len(f.Resamples) == 0 {
		return Answer{}, geoerr.ErrEmptyDrawSet
	}

	ans := Answer{
		Query:    q,
		Level:    level,
		Interval: interval,
		Scale:    summary.Median(f.Scales(level, interval)),
	}
	if hasPrecision {
		ans.RequiredSpend = ans.Scale / q.Precision
	} else {
		ans.Precision = ans.Scale / q.Cost
	}
	return ans, nil
}
