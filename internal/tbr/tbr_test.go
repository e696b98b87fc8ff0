// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package tbr

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
	"GeoExperiment_Causality_Project/geox/internal/panel"
	"GeoExperiment_Causality_Project/geox/internal/summary"
)

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

// almostEqual compares floats with tolerance
func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func day(i int) time.Time {
	return time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

var (
	exampleLevels     = map[string]float64{"c1": 10, "c2": 20, "t1": 15, "t2": 30}
	exampleAssignment = panel.GeoAssignment{"c1": 1, "c2": 1, "t1": 2, "t2": 2}
)

// metricFunc returns a metric value for geo on day i.
type metricFunc func(geo string, i int) float64

// build creates a panel of sales and cost over the given period lengths.
func build(t *testing.T, lengths []int, assignment panel.GeoAssignment, sales, cost metricFunc) *panel.Panel {
	t.Helper()
	total := 0
	for _, n := range lengths {
		total += n
	}
	var obs []panel.Observation
	for i := 0; i < total; i++ {
		for geo := range assignment {
			obs = append(obs, panel.Observation{
				Date:    day(i),
				Geo:     geo,
				Metrics: map[string]float64{"sales": sales(geo, i), "cost": cost(geo, i)},
			})
		}
	}
	periods, err := panel.PeriodsFromLengths(day(0), lengths)
	if err != nil {
		t.Fatalf("PeriodsFromLengths: %v", err)
	}
	p, err := panel.New(obs, periods, assignment)
	if err != nil {
		t.Fatalf("panel.New: %v", err)
	}
	return p
}

// exampleSales follows a seasonal level per geo with +2.5 per treatment geo
// and day from day pre onward, i.e. +5 per day on the treatment aggregate.
func exampleSales(pre int) metricFunc {
	return func(geo string, i int) float64 {
		v := exampleLevels[geo] * (1 + 0.1*float64(i%3))
		if exampleAssignment[geo] == panel.GroupTreatment && i >= pre {
			v += 2.5
		}
		return v
	}
}

// spendFrom returns a cost of 1 per treatment geo and day from day start on,
// and 0 everywhere else.
func spendFrom(start int) metricFunc {
	return func(geo string, i int) float64 {
		if exampleAssignment[geo] == panel.GroupTreatment && i >= start {
			return 1
		}
		return 0
	}
}

// noisySales returns control levels following a random walk and treatment
// following 3 + 0.8 * control plus noise, with no effect.
func noisySales(seed int64, days int) metricFunc {
	rng := rand.New(rand.NewSource(seed))
	base := make([]float64, days)
	level := 100.0
	for i := range base {
		level += rng.NormFloat64() * 4
		base[i] = level
	}
	noise := make(map[string][]float64)
	for geo := range exampleAssignment {
		noise[geo] = make([]float64, days)
		for i := range noise[geo] {
			noise[geo][i] = rng.NormFloat64()
		}
	}
	return func(geo string, i int) float64 {
		share := exampleLevels[geo] / 30
		if exampleAssignment[geo] == panel.GroupTreatment {
			share = exampleLevels[geo] / 45
			return share * (3 + 0.8*base[i] + noise[geo][i])
		}
		return share * (base[i] + noise[geo][i])
	}
}

// ============================================================================
// ESTIMATE TESTS
// ============================================================================

func TestEstimateExampleScenario(t *testing.T) {
	p := build(t, []int{10, 10}, exampleAssignment, exampleSales(10), spendFrom(10))

	cfg := DefaultConfig("sales", "")
	cfg.Draws = 2000
	cfg.Seed = 1
	fit, err := Estimate(p, cfg)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if fit.Len() != 10 {
		t.Fatalf("Len = %d; want 10 test dates", fit.Len())
	}
	if !fit.Dates()[0].Equal(day(10)) {
		t.Errorf("first test date = %v; want %v", fit.Dates()[0], day(10))
	}
	// treatment aggregate is exactly 1.5 x control aggregate in the pretest
	if !almostEqual(fit.Intercept, 0, 1e-6) || !almostEqual(fit.Slope, 1.5, 1e-9) {
		t.Errorf("Intercept, Slope = %v, %v; want 0, 1.5", fit.Intercept, fit.Slope)
	}

	points := fit.PointEffects()
	for i, got := range points {
		if want := 5 * float64(i+1); !almostEqual(got, want, 1e-6) {
			t.Errorf("Test %d: PointEffects = %v; want %v", i+1, got, want)
		}
	}

	res, err := summary.SummarizeFit(fit, summary.Options{Level: 0.9, Interval: summary.TwoSided})
	if err != nil {
		t.Fatalf("SummarizeFit: %v", err)
	}
	if !almostEqual(res.Estimate, 50, 0.5) {
		t.Errorf("final cumulative effect = %v; want ~50", res.Estimate)
	}
	if res.Upper-res.Lower > 0.01 {
		t.Errorf("interval [%v, %v] should have near-zero width", res.Lower, res.Upper)
	}

	daily, err := summary.SummarizeAt(fit.Daily(), 3, summary.DefaultOptions())
	if err != nil {
		t.Fatalf("daily SummarizeAt: %v", err)
	}
	if !almostEqual(daily.Estimate, 5, 0.01) {
		t.Errorf("daily effect = %v; want 5", daily.Estimate)
	}
}

func TestCumulativeAccountingIdentity(t *testing.T) {
	p := build(t, []int{20, 7, 3}, exampleAssignment, noisySales(4, 30), spendFrom(20))

	cfg := DefaultConfig("sales", "")
	cfg.Cooldown = panel.PeriodCooldown
	cfg.Draws = 400
	cfg.Seed = 8
	fit, err := Estimate(p, cfg)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if fit.Len() != 10 {
		t.Fatalf("Len = %d; want 10 with cooldown", fit.Len())
	}

	last, _ := fit.DrawSet(fit.Len() - 1)
	sums := make([]float64, len(last))
	for i := 0; i < fit.Daily().Len(); i++ {
		daily, err := fit.Daily().DrawSet(i)
		if err != nil {
			t.Fatalf("Daily().DrawSet(%d): %v", i, err)
		}
		for r, d := range daily {
			sums[r] += d
		}
	}
	for r := range last {
		if !almostEqual(last[r], sums[r], 1e-9*math.Max(1, math.Abs(sums[r]))) {
			t.Fatalf("draw %d: cumulative %v != sum of daily %v", r, last[r], sums[r])
		}
	}
}

func TestPredictiveStdErrMatchesDraws(t *testing.T) {
	p := build(t, []int{30, 10}, exampleAssignment, noisySales(12, 40), spendFrom(30))

	cfg := DefaultConfig("sales", "")
	cfg.Draws = 20000
	cfg.Seed = 3
	fit, err := Estimate(p, cfg)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if fit.DF != 28 {
		t.Errorf("DF = %d; want 28", fit.DF)
	}

	res, err := summary.SummarizeFit(fit, summary.Options{Level: 0.9, Interval: summary.TwoSided})
	if err != nil {
		t.Fatalf("SummarizeFit: %v", err)
	}
	q := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(fit.DF)}.Quantile(0.95)
	want := 2 * q * fit.PredictiveStdErr()
	got := res.Upper - res.Lower
	if math.Abs(got-want) > 0.1*want {
		t.Errorf("interval width = %v; want %v from PredictiveStdErr", got, want)
	}
}

func TestEstimateDeterministic(t *testing.T) {
	p := build(t, []int{15, 5}, exampleAssignment, noisySales(2, 20), spendFrom(15))
	cfg := DefaultConfig("sales", "")
	cfg.Draws = 100
	cfg.Seed = 99

	a, err := Estimate(p, cfg)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	b, _ := Estimate(p, cfg)
	da, _ := a.DrawSet(4)
	db, _ := b.DrawSet(4)
	for r := range da {
		if da[r] != db[r] {
			t.Fatalf("draw %d differs under the same seed: %v vs %v", r, da[r], db[r])
		}
	}
}

// ============================================================================
// ROAS TESTS
// ============================================================================

func TestFitROAS(t *testing.T) {
	p := build(t, []int{10, 10}, exampleAssignment, exampleSales(10), spendFrom(10))

	cfg := DefaultConfig("sales", "cost")
	cfg.Draws = 1000
	fit, err := FitROAS(p, cfg)
	if err != nil {
		t.Fatalf("FitROAS: %v", err)
	}
	if !fit.Cost().Constant {
		t.Errorf("zero pretest spend should use the constant cost model")
	}

	series, err := summary.SummarizeSeries(fit, summary.Options{Level: 0.9, Interval: summary.TwoSided})
	if err != nil {
		t.Fatalf("SummarizeSeries: %v", err)
	}
	// cumulative effect 5(i+1) over cumulative cost 2(i+1)
	for i, res := range series {
		if res.Undefined || !almostEqual(res.Estimate, 2.5, 0.01) {
			t.Errorf("Test %d: iROAS = %+v; want 2.5", i+1, res)
		}
	}
}

func TestFitROASFlagsUndefinedDates(t *testing.T) {
	// no spend on the first test day, so the cumulative cost is zero there
	p := build(t, []int{10, 10}, exampleAssignment, exampleSales(10), spendFrom(11))

	cfg := DefaultConfig("sales", "cost")
	cfg.Draws = 500
	fit, err := FitROAS(p, cfg)
	if err != nil {
		t.Fatalf("FitROAS: %v", err)
	}

	series, err := summary.SummarizeSeries(fit, summary.DefaultOptions())
	if err != nil {
		t.Fatalf("SummarizeSeries: %v", err)
	}
	if !series[0].Undefined || !math.IsNaN(series[0].Estimate) {
		t.Errorf("first date = %+v; want undefined", series[0])
	}
	last := series[len(series)-1]
	if last.Undefined || !almostEqual(last.Estimate, 50.0/18.0, 0.01) {
		t.Errorf("last date = %+v; want %v", last, 50.0/18.0)
	}
	if _, err := summary.SummarizeAt(fit, 0, summary.DefaultOptions()); !errors.Is(err, geoerr.ErrUndefinedRatio) {
		t.Errorf("SummarizeAt(0) err = %v; want ErrUndefinedRatio", err)
	}
}

// ============================================================================
// ERROR TESTS
// ============================================================================

func TestEstimateErrors(t *testing.T) {
	flat := func(geo string, i int) float64 {
		if exampleAssignment[geo] == panel.GroupControl {
			return 10
		}
		return 15 + float64(i%2)
	}
	sales := exampleSales(10)

	tests := []struct {
		Name    string
		Lengths []int
		Sales   metricFunc
		Config  func(Config) Config
		Want    error
	}{
		{"unknown model", []int{10, 10}, sales, func(c Config) Config { c.Model = "tbr2"; return c }, geoerr.ErrUnknownModel},
		{"no test window", []int{10}, sales, nil, geoerr.ErrEmptyTestWindow},
		{"short pretest", []int{2, 10}, exampleSales(2), nil, geoerr.ErrInsufficientPretest},
		{"constant control", []int{10, 10}, flat, nil, geoerr.ErrDegenerateRegression},
		{"same groups", []int{10, 10}, sales, func(c Config) Config { c.Treatment = c.Control; return c }, geoerr.ErrBadParameter},
		{"unknown metric", []int{10, 10}, sales, func(c Config) Config { c.Response = "clicks"; return c }, geoerr.ErrMissingMetric},
		{"missing group", []int{10, 10}, sales, func(c Config) Config { c.Treatment = 3; return c }, geoerr.ErrInsufficientGeos},
	}
	for i, test := range tests {
		cfg := DefaultConfig("sales", "")
		cfg.Draws = 10
		if test.Config != nil {
			cfg = test.Config(cfg)
		}
		p := build(t, test.Lengths, exampleAssignment, test.Sales, spendFrom(0))
		if _, err := Estimate(p, cfg); !errors.Is(err, test.Want) {
			t.Errorf("Test %d (%s): err = %v; want %v", i+1, test.Name, err, test.Want)
		}
	}
}

func TestFitROASErrors(t *testing.T) {
	p := build(t, []int{10, 10}, exampleAssignment, exampleSales(10), spendFrom(10))
	if _, err := FitROAS(p, DefaultConfig("sales", "")); !errors.Is(err, geoerr.ErrBadParameter) {
		t.Errorf("no cost metric: err = %v; want ErrBadParameter", err)
	}

	// constant control spend but varying treatment spend in the pretest
	varying := func(geo string, i int) float64 {
		if exampleAssignment[geo] == panel.GroupTreatment {
			return float64(i % 2)
		}
		return 1
	}
	p = build(t, []int{10, 10}, exampleAssignment, exampleSales(10), varying)
	if _, err := FitROAS(p, DefaultConfig("sales", "cost")); !errors.Is(err, geoerr.ErrDegenerateRegression) {
		t.Errorf("constant control cost: err = %v; want ErrDegenerateRegression", err)
	}
}
