// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

// Package panel holds the geo x date observation table every estimator reads.
package panel

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
)

// DateLayout is the date format used in files and messages.
const DateLayout = "2006-01-02"

// Observation is one (date, geo) row with its named metrics.
type Observation struct {
	Date    time.Time
	Geo     string
	Metrics map[string]float64
}

// Panel is a rectangular, immutable geo x date table. The period of each date
// and the group of each geo are derived once when the panel is built.
type Panel struct {
	// Sorted unique dates, rows of every metric matrix
	dates []time.Time
	// Sorted geo ids, columns of every metric matrix
	geos []string
	// metric name -> (dates x geos)
	metrics     map[string]*mat.Dense
	metricNames []string

	periods  ExperimentPeriods
	periodOf []int

	assignment GeoAssignment
	groupOf    []int
}

// New builds a panel from raw observations. Every geo must be present on every
// date, metrics must be finite and non-negative, and every geo must be assigned.
// periods may be the zero value, in which case every date is PeriodNone.
func New(obs []Observation, periods ExperimentPeriods, assignment GeoAssignment) (*Panel, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("no observations: %w", geoerr.ErrMissingObservation)
	}
	if err := assignment.Validate(); err != nil {
		return nil, err
	}

	// 1. Collect dates, geos and metric names
	dateSet := make(map[time.Time]bool)
	geoSet := make(map[string]bool)
	for _, o := range obs {
		dateSet[o.Date] = true
		geoSet[o.Geo] = true
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	geos := make([]string, 0, len(geoSet))
	for g := range geoSet {
		geos = append(geos, g)
	}
	sort.Strings(geos)

	names := make([]string, 0, len(obs[0].Metrics))
	for name := range obs[0].Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	dateIdx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		dateIdx[d] = i
	}
	geoIdx := make(map[string]int, len(geos))
	for j, g := range geos {
		geoIdx[g] = j
	}

	T, G := len(dates), len(geos)
	metrics := make(map[string]*mat.Dense, len(names))
	for _, name := range names {
		metrics[name] = mat.NewDense(T, G, nil)
	}

	// 2. Fill the matrices, rejecting duplicates and bad values
	seen := make([]bool, T*G)
	for _, o := range obs {
		i, j := dateIdx[o.Date], geoIdx[o.Geo]
		if seen[i*G+j] {
			return nil, fmt.Errorf("geo %q on %s: %w", o.Geo, o.Date.Format(DateLayout),
				geoerr.ErrDuplicateObservation)
		}
		seen[i*G+j] = true

		for _, name := range names {
			v, ok := o.Metrics[name]
			if !ok {
				return nil, fmt.Errorf("metric %q absent for geo %q on %s: %w",
					name, o.Geo, o.Date.Format(DateLayout), geoerr.ErrMissingMetric)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("metric %q = %v for geo %q on %s: %w",
					name, v, o.Geo, o.Date.Format(DateLayout), geoerr.ErrInvalidMetric)
			}
			metrics[name].Set(i, j, v)
		}
	}

	// 3. Rectangularity
	for i := 0; i < T; i++ {
		for j := 0; j < G; j++ {
			if !seen[i*G+j] {
				return nil, fmt.Errorf("geo %q on %s: %w", geos[j], dates[i].Format(DateLayout),
					geoerr.ErrMissingObservation)
			}
		}
	}

	// 4. No missing days inside the experiment periods
	if err := checkSpan(dates, periods); err != nil {
		return nil, err
	}

	p := &Panel{
		dates:       dates,
		geos:        geos,
		metrics:     metrics,
		metricNames: names,
	}
	if err := p.annotate(periods, assignment); err != nil {
		return nil, err
	}
	return p, nil
}

// checkSpan fails if a calendar day in [first boundary, last boundary) has no
// observations at all.
func checkSpan(dates []time.Time, periods ExperimentPeriods) error {
	if periods.NumPeriods() == 0 {
		return nil
	}
	have := make(map[string]bool, len(dates))
	for _, d := range dates {
		have[d.Format(DateLayout)] = true
	}
	b := periods.Boundaries
	for d := b[0]; d.Before(b[len(b)-1]); d = d.AddDate(0, 0, 1) {
		if !have[d.Format(DateLayout)] {
			return fmt.Errorf("no observations on %s inside the experiment periods: %w",
				d.Format(DateLayout), geoerr.ErrMissingObservation)
		}
	}
	return nil
}

// CheckDaily fails if two consecutive dates of the panel are not consecutive
// calendar days.
func (p *Panel) CheckDaily() error {
	for i := 1; i < len(p.dates); i++ {
		if want := p.dates[i-1].AddDate(0, 0, 1); p.dates[i].Format(DateLayout) != want.Format(DateLayout) {
			return fmt.Errorf("no observations on %s: %w", want.Format(DateLayout), geoerr.ErrMissingObservation)
		}
	}
	return nil
}

// annotate derives the period of each date and the group of each geo.
func (p *Panel) annotate(periods ExperimentPeriods, assignment GeoAssignment) error {
	periodOf := make([]int, len(p.dates))
	for i, d := range p.dates {
		periodOf[i] = periods.PeriodOf(d)
	}
	groupOf := make([]int, len(p.geos))
	for j, geo := range p.geos {
		g, ok := assignment[geo]
		if !ok {
			return fmt.Errorf("geo %q: %w", geo, geoerr.ErrUnassignedGeo)
		}
		groupOf[j] = g
	}
	p.periods = periods
	p.periodOf = periodOf
	p.assignment = assignment
	p.groupOf = groupOf
	return nil
}

// WithPeriods returns a copy of the panel annotated with other periods.
// Metric storage is shared; it is never written after construction.
func (p *Panel) WithPeriods(periods ExperimentPeriods) *Panel {
	q := *p
	q.periodOf = make([]int, len(p.dates))
	for i, d := range p.dates {
		q.periodOf[i] = periods.PeriodOf(d)
	}
	q.periods = periods
	return &q
}

// WithAssignment returns a copy of the panel with a different geo assignment.
func (p *Panel) WithAssignment(assignment GeoAssignment) (*Panel, error) {
	if err := assignment.Validate(); err != nil {
		return nil, err
	}
	q := *p
	if err := q.annotate(p.periods, assignment); err != nil {
		return nil, err
	}
	return &q, nil
}

// Window returns the rows [from, to) as a new panel with the same annotation.
func (p *Panel) Window(from, to int) (*Panel, error) {
	if from < 0 || to > len(p.dates) || from >= to {
		return nil, fmt.Errorf("window [%d, %d) outside %d dates: %w",
			from, to, len(p.dates), geoerr.ErrBadParameter)
	}
	q := *p
	q.dates = p.dates[from:to]
	q.metrics = make(map[string]*mat.Dense, len(p.metrics))
	for name, m := range p.metrics {
		q.metrics[name] = m.Slice(from, to, 0, len(p.geos)).(*mat.Dense)
	}
	q.periodOf = p.periodOf[from:to]
	return &q, nil
}

// NumDates returns the number of dates.
func (p *Panel) NumDates() int { return len(p.dates) }

// NumGeos returns the number of geos.
func (p *Panel) NumGeos() int { return len(p.geos) }

// Dates returns a copy of the sorted dates.
func (p *Panel) Dates() []time.Time {
	out := make([]time.Time, len(p.dates))
	copy(out, p.dates)
	return out
}

// Date returns date i.
func (p *Panel) Date(i int) time.Time { return p.dates[i] }

// Geos returns a copy of the sorted geo ids.
func (p *Panel) Geos() []string {
	out := make([]string, len(p.geos))
	copy(out, p.geos)
	return out
}

// MetricNames returns the metric names in sorted order.
func (p *Panel) MetricNames() []string {
	out := make([]string, len(p.metricNames))
	copy(out, p.metricNames)
	return out
}

// Metric returns a read-only view of a metric (dates x geos).
func (p *Panel) Metric(name string) (mat.Matrix, error) {
	m, ok := p.metrics[name]
	if !ok {
		return nil, fmt.Errorf("metric %q: %w", name, geoerr.ErrMissingMetric)
	}
	return m, nil
}

// Period returns the period of date i.
func (p *Panel) Period(i int) int { return p.periodOf[i] }

// Periods returns the period configuration.
func (p *Panel) Periods() ExperimentPeriods { return p.periods }

// Group returns the group of geo j.
func (p *Panel) Group(j int) int { return p.groupOf[j] }

// Assignment returns the geo assignment.
func (p *Panel) Assignment() GeoAssignment { return p.assignment }

// GeoIndices returns the column indices of the geos in group g.
func (p *Panel) GeoIndices(g int) []int {
	var out []int
	for j, gg := range p.groupOf {
		if gg == g {
			out = append(out, j)
		}
	}
	return out
}

// DateIndices returns the row indices of the dates in any of the given periods.
func (p *Panel) DateIndices(periods ...int) []int {
	var out []int
	for i, pi := range p.periodOf {
		if pi == PeriodNone {
			continue
		}
		for _, want := range periods {
			if pi == want {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// GeoTotals sums a metric over the dates of the given periods, one value per geo
// in column order.
func (p *Panel) GeoTotals(metric string, periods ...int) ([]float64, error) {
	m, err := p.Metric(metric)
	if err != nil {
		return nil, err
	}
	rows := p.DateIndices(periods...)
	out := make([]float64, len(p.geos))
	for _, i := range rows {
		for j := range p.geos {
			out[j] += m.At(i, j)
		}
	}
	return out, nil
}

// GroupSeries sums a metric over the geos of group g on each date in rows.
func (p *Panel) GroupSeries(metric string, g int, rows []int) ([]float64, error) {
	m, err := p.Metric(metric)
	if err != nil {
		return nil, err
	}
	cols := p.GeoIndices(g)
	out := make([]float64, len(rows))
	for k, i := range rows {
		for _, j := range cols {
			out[k] += m.At(i, j)
		}
	}
	return out, nil
}
