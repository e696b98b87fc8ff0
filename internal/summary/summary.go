// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

// Package summary turns a set of draws of an estimand into a point estimate,
// a credible interval and a threshold exceedance probability. It knows nothing
// about the estimator that produced the draws.
package summary

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
)

// IntervalType selects a one-sided (lower bound only) or two-sided interval.
type IntervalType int

const (
	OneSided IntervalType = iota
	TwoSided
)

func (t IntervalType) String() string {
	if t == TwoSided {
		return "two-sided"
	}
	return "one-sided"
}

// ParseIntervalType accepts "one-sided" or "two-sided".
func ParseIntervalType(s string) (IntervalType, error) {
	switch s {
	case "one-sided", "one", "":
		return OneSided, nil
	case "two-sided", "two":
		return TwoSided, nil
	}
	return OneSided, fmt.Errorf("interval type %q: %w", s, geoerr.ErrBadParameter)
}

// DefaultLevel is the credibility level used when none is configured.
const DefaultLevel = 0.90

// Options are the query parameters of a summary.
type Options struct {
	Level     float64
	Interval  IntervalType
	Threshold float64
}

// DefaultOptions returns level 0.90, one-sided, threshold 0.
func DefaultOptions() Options {
	return Options{Level: DefaultLevel, Interval: OneSided}
}

// Result is the summary of one draw set.
type Result struct {
	Estimate    float64
	Lower       float64
	Upper       float64
	ProbExceeds float64

	Level     float64
	Interval  IntervalType
	Threshold float64

	// Undefined is set when the draws are a ratio with an undefined
	// denominator; every number is then NaN.
	Undefined bool
}

// Summarize computes the median, the interval at opts.Level and the fraction of
// draws strictly above opts.Threshold. draws is not modified.
func Summarize(draws []float64, opts Options) (Result, error) {
	if !(opts.Level > 0 && opts.Level < 1) {
		return Result{}, fmt.Errorf("level %v outside (0, 1): %w", opts.Level, geoerr.ErrInvalidLevel)
	}
	n := len(draws)
	if n == 0 {
		return Result{}, geoerr.ErrEmptyDrawSet
	}

	sorted := make([]float64, n)
	copy(sorted, draws)
	sort.Float64s(sorted)

	res := Result{
		Estimate:  sortedQuantile(sorted, 0.5),
		Level:     opts.Level,
		Interval:  opts.Interval,
		Threshold: opts.Threshold,
	}

	switch opts.Interval {
	case TwoSided:
		res.Lower = sortedQuantile(sorted, (1-opts.Level)/2)
		res.Upper = sortedQuantile(sorted, (1+opts.Level)/2)
	default:
		// "at least Lower with probability Level"
		res.Lower = sortedQuantile(sorted, 1-opts.Level)
		res.Upper = math.Inf(1)
	}

	// first index strictly above threshold
	above := sort.Search(n, func(i int) bool { return sorted[i] > opts.Threshold })
	res.ProbExceeds = float64(n-above) / float64(n)

	return res, nil
}

// Quantile returns the empirical q-quantile of samples (0 <= q <= 1)
// using linear interpolation between order statistics.
func Quantile(samples []float64, q float64) float64 {
	n := len(samples)
	if n == 0 {
		return math.NaN()
	}

	tmp := make([]float64, n)
	copy(tmp, samples)
	sort.Float64s(tmp)
	return sortedQuantile(tmp, q)
}

// Median is Quantile(samples, 0.5).
func Median(samples []float64) float64 { return Quantile(samples, 0.5) }

func sortedQuantile(tmp []float64, q float64) float64 {
	n := len(tmp)
	if q <= 0 {
		return tmp[0]
	}
	if q >= 1 {
		return tmp[n-1]
	}

	pos := q * float64(n-1)
	idxBelow := int(math.Floor(pos))
	idxAbove := int(math.Ceil(pos))

	if idxAbove == idxBelow {
		return tmp[idxBelow]
	}

	weight := pos - float64(idxBelow)
	return tmp[idxBelow]*(1.0-weight) + tmp[idxAbove]*weight
}

// DrawSource is implemented by every fit: one draw set per index, where the
// index is a post-intervention date for time based fits and 0 otherwise.
type DrawSource interface {
	Len() int
	DrawSet(i int) ([]float64, error)
}

// SummarizeAt summarizes the draw set at index i.
func SummarizeAt(src DrawSource, i int, opts Options) (Result, error) {
	if i < 0 || i >= src.Len() {
		return Result{}, fmt.Errorf("index %d outside [0, %d): %w", i, src.Len(), geoerr.ErrBadParameter)
	}
	draws, err := src.DrawSet(i)
	if err != nil {
		return Result{}, err
	}
	return Summarize(draws, opts)
}

// SummarizeFit summarizes the last draw set, i.e. the whole test window.
func SummarizeFit(src DrawSource, opts Options) (Result, error) {
	return SummarizeAt(src, src.Len()-1, opts)
}

// SummarizeSeries summarizes every index. Undefined ratios are reported as
// Undefined results instead of failing the whole series.
func SummarizeSeries(src DrawSource, opts Options) ([]Result, error) {
	out := make([]Result, src.Len())
	for i := range out {
		res, err := SummarizeAt(src, i, opts)
		if errors.Is(err, geoerr.ErrUndefinedRatio) {
			out[i] = undefined(opts)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = res
	}
	return out, nil
}

func undefined(opts Options) Result {
	nan := math.NaN()
	return Result{
		Estimate:    nan,
		Lower:       nan,
		Upper:       nan,
		ProbExceeds: nan,
		Level:       opts.Level,
		Interval:    opts.Interval,
		Threshold:   opts.Threshold,
		Undefined:   true,
	}
}

// Draws is a fixed draw set usable as a DrawSource.
type Draws []float64

func (d Draws) Len() int { return 1 }

func (d Draws) DrawSet(int) ([]float64, error) { return d, nil }
