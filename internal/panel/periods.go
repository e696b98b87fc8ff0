// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package panel

import (
	"fmt"
	"sort"
	"time"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
)

// Period ids
const (
	PeriodNone         = -1
	PeriodPretest      = 0
	PeriodIntervention = 1
	PeriodCooldown     = 2
)

// Geo group ids
const (
	GroupControl   = 1
	GroupTreatment = 2
)

// ExperimentPeriods splits the calendar into contiguous periods.
// Period i covers [Boundaries[i], Boundaries[i+1]).
type ExperimentPeriods struct {
	Boundaries []time.Time
}

// NewPeriods checks that the boundaries are strictly increasing and that there
// are at least two of them.
func NewPeriods(boundaries ...time.Time) (ExperimentPeriods, error) {
	if len(boundaries) < 2 {
		return ExperimentPeriods{}, fmt.Errorf("need at least 2 boundaries, got %d: %w",
			len(boundaries), geoerr.ErrInvalidPeriods)
	}
	for i := 1; i < len(boundaries); i++ {
		if !boundaries[i].After(boundaries[i-1]) {
			return ExperimentPeriods{}, fmt.Errorf("boundary %d (%s) is not after boundary %d (%s): %w",
				i, boundaries[i].Format(DateLayout), i-1, boundaries[i-1].Format(DateLayout),
				geoerr.ErrInvalidPeriods)
		}
	}
	b := make([]time.Time, len(boundaries))
	copy(b, boundaries)
	return ExperimentPeriods{Boundaries: b}, nil
}

// PeriodsFromLengths builds daily periods of the given lengths starting at start.
func PeriodsFromLengths(start time.Time, lengths []int) (ExperimentPeriods, error) {
	b := []time.Time{start}
	cur := start
	for i, n := range lengths {
		if n <= 0 {
			return ExperimentPeriods{}, fmt.Errorf("period %d has length %d: %w",
				i, n, geoerr.ErrNonPositivePeriodLength)
		}
		cur = cur.AddDate(0, 0, n)
		b = append(b, cur)
	}
	return NewPeriods(b...)
}

// IsZero reports whether no periods are configured.
func (p ExperimentPeriods) IsZero() bool { return len(p.Boundaries) == 0 }

// NumPeriods returns the number of periods.
func (p ExperimentPeriods) NumPeriods() int {
	if len(p.Boundaries) < 2 {
		return 0
	}
	return len(p.Boundaries) - 1
}

// PeriodOf returns the period containing d, or PeriodNone.
func (p ExperimentPeriods) PeriodOf(d time.Time) int {
	if p.NumPeriods() == 0 {
		return PeriodNone
	}
	// first boundary strictly after d
	i := sort.Search(len(p.Boundaries), func(k int) bool { return p.Boundaries[k].After(d) })
	if i == 0 || i == len(p.Boundaries) {
		return PeriodNone
	}
	return i - 1
}

// GeoAssignment maps geo ids to group ids.
type GeoAssignment map[string]int

// Validate checks that every group id is positive.
func (a GeoAssignment) Validate() error {
	for geo, g := range a {
		if g <= 0 {
			return fmt.Errorf("geo %q has group %d: %w", geo, g, geoerr.ErrInvalidAssignment)
		}
	}
	return nil
}

// Groups returns the distinct group ids in ascending order.
func (a GeoAssignment) Groups() []int {
	seen := make(map[int]bool)
	var out []int
	for _, g := range a {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	sort.Ints(out)
	return out
}

// Geos returns the geos of group g in sorted order.
func (a GeoAssignment) Geos(g int) []string {
	var out []string
	for geo, gg := range a {
		if gg == g {
			out = append(out, geo)
		}
	}
	sort.Strings(out)
	return out
}
