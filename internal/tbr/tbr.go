// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

// Package tbr implements time-based regression. The treatment group aggregate
// is regressed on the control group aggregate over the pretest dates, and the
// fitted relationship predicts the treatment counterfactual on every test date.
package tbr

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
	"GeoExperiment_Causality_Project/geox/internal/panel"
	"GeoExperiment_Causality_Project/geox/internal/regress"
	"GeoExperiment_Causality_Project/geox/internal/summary"
)

// ModelTBR1 is the only supported model: normal linear regression with the
// posterior predictive of the counterfactual.
const ModelTBR1 = "tbr1"

// DefaultDraws is the number of posterior draws when Config.Draws is zero.
const DefaultDraws = 5000

// Minimum number of pretest dates to fit intercept, slope and variance.
const minPretest = 3

const (
	responseStream = 0x7462720000000001
	costStream     = 0x7462720000000002
)

// Config selects the data and options of a TBR fit.
type Config struct {
	Response string
	// Cost metric, used by FitROAS only.
	Cost  string
	Model string

	Pretest      int
	Intervention int
	// Cooldown is panel.PeriodNone when not included in the test window.
	Cooldown int

	Control   int
	Treatment int

	Draws int
	Seed  int64
}

// DefaultConfig returns a tbr1 config over the usual periods and groups.
func DefaultConfig(response, cost string) Config {
	return Config{
		Response:     response,
		Cost:         cost,
		Model:        ModelTBR1,
		Pretest:      panel.PeriodPretest,
		Intervention: panel.PeriodIntervention,
		Cooldown:     panel.PeriodNone,
		Control:      panel.GroupControl,
		Treatment:    panel.GroupTreatment,
		Draws:        DefaultDraws,
	}
}

func (c Config) testPeriods() []int {
	if c.Cooldown == panel.PeriodNone {
		return []int{c.Intervention}
	}
	return []int{c.Intervention, c.Cooldown}
}

func (c Config) validate() (Config, error) {
	if c.Model == "" {
		c.Model = ModelTBR1
	}
	if c.Model != ModelTBR1 {
		return c, fmt.Errorf("model %q: %w", c.Model, geoerr.ErrUnknownModel)
	}
	if c.Control == c.Treatment {
		return c, fmt.Errorf("control and treatment are both group %d: %w", c.Control, geoerr.ErrBadParameter)
	}
	if c.Draws <= 0 {
		c.Draws = DefaultDraws
	}
	return c, nil
}

// Fit is an immutable TBR result for one metric. The draw sets are cumulative
// effects, one per test date.
type Fit struct {
	Config Config
	Metric string

	// Pretest fit of treatment = Intercept + Slope * control
	Intercept, Slope float64
	// Residual standard deviation and degrees of freedom
	Sigma    float64
	DF       int
	NPretest int

	// Constant is set for a cost fit whose pretest aggregates are constant in
	// both groups; the counterfactual is then the treatment pretest mean.
	Constant bool

	dates     []time.Time
	control   []float64
	treatment []float64
	xtxInv    *mat.SymDense

	// dates x draws
	daily      *mat.Dense
	cumulative *mat.Dense
}

// Estimate fits the response metric.
func Estimate(p *panel.Panel, cfg Config) (*Fit, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	return fitMetric(p, cfg, cfg.Response, false, responseStream)
}

// series returns the aggregated control and treatment series of metric on the
// given rows.
func series(p *panel.Panel, cfg Config, metric string, rows []int) ([]float64, []float64, error) {
	c, err := p.GroupSeries(metric, cfg.Control, rows)
	if err != nil {
		return nil, nil, err
	}
	y, err := p.GroupSeries(metric, cfg.Treatment, rows)
	if err != nil {
		return nil, nil, err
	}
	return c, y, nil
}

func fitMetric(p *panel.Panel, cfg Config, metric string, allowConstant bool, stream uint64) (*Fit, error) {
	if n := len(p.GeoIndices(cfg.Control)); n == 0 {
		return nil, fmt.Errorf("control group %d has no geos: %w", cfg.Control, geoerr.ErrInsufficientGeos)
	}
	if n := len(p.GeoIndices(cfg.Treatment)); n == 0 {
		return nil, fmt.Errorf("treatment group %d has no geos: %w", cfg.Treatment, geoerr.ErrInsufficientGeos)
	}

	testRows := p.DateIndices(cfg.testPeriods()...)
	if len(testRows) == 0 {
		return nil, fmt.Errorf("periods %v have no dates: %w", cfg.testPeriods(), geoerr.ErrEmptyTestWindow)
	}
	preRows := p.DateIndices(cfg.Pretest)
	if len(preRows) < minPretest {
		return nil, fmt.Errorf("period %d has %d dates, need %d: %w",
			cfg.Pretest, len(preRows), minPretest, geoerr.ErrInsufficientPretest)
	}

	cPre, yPre, err := series(p, cfg, metric, preRows)
	if err != nil {
		return nil, err
	}
	cTest, yTest, err := series(p, cfg, metric, testRows)
	if err != nil {
		return nil, err
	}

	f := &Fit{
		Config:    cfg,
		Metric:    metric,
		NPretest:  len(preRows),
		dates:     make([]time.Time, len(testRows)),
		control:   cTest,
		treatment: yTest,
	}
	for k, i := range testRows {
		f.dates[k] = p.Date(i)
	}

	cConst, yConst := constant(cPre), constant(yPre)
	switch {
	case cConst && yConst && allowConstant:
		f.fitConstant(yPre)
		return f, nil
	case cConst:
		return nil, fmt.Errorf("metric %q: control aggregate is %v on every pretest date: %w",
			metric, cPre[0], geoerr.ErrDegenerateRegression)
	}

	// 1. Pretest regression
	reg, err := regress.Simple(cPre, yPre)
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", metric, err)
	}
	f.Intercept, f.Slope = reg.Coef(0, 0), reg.Coef(1, 0)
	f.Sigma = math.Sqrt(reg.SigmaU.At(0, 0))
	f.DF = reg.DF
	f.xtxInv = reg.XtXInv

	// 2. Posterior predictive draws
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), stream))
	sampler := regress.NewSampler([]float64{f.Intercept, f.Slope}, reg.XtXInv, reg.SigmaU.At(0, 0), reg.DF)

	T, R := len(testRows), cfg.Draws
	f.daily = mat.NewDense(T, R, nil)
	f.cumulative = mat.NewDense(T, R, nil)
	ab := make([]float64, 2)
	for r := 0; r < R; r++ {
		sigma := sampler.Draw(rng, ab)
		run := 0.0
		for t := 0; t < T; t++ {
			yhat := ab[0] + ab[1]*cTest[t] + sigma*rng.NormFloat64()
			d := yTest[t] - yhat
			run += d
			f.daily.Set(t, r, d)
			f.cumulative.Set(t, r, run)
		}
	}
	return f, nil
}

// fitConstant uses the treatment pretest mean as a counterfactual with no
// uncertainty.
func (f *Fit) fitConstant(yPre []float64) {
	mean := 0.0
	for _, v := range yPre {
		mean += v
	}
	mean /= float64(len(yPre))

	f.Constant = true
	f.Intercept = mean
	f.DF = len(yPre) - 1

	T, R := len(f.dates), f.Config.Draws
	f.daily = mat.NewDense(T, R, nil)
	f.cumulative = mat.NewDense(T, R, nil)
	run := 0.0
	for t := 0; t < T; t++ {
		d := f.treatment[t] - mean
		run += d
		for r := 0; r < R; r++ {
			f.daily.Set(t, r, d)
			f.cumulative.Set(t, r, run)
		}
	}
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

// Dates returns the test window dates, one per draw set.
func (f *Fit) Dates() []time.Time {
	out := make([]time.Time, len(f.dates))
	copy(out, f.dates)
	return out
}

// Len implements summary.DrawSource.
func (f *Fit) Len() int { return len(f.dates) }

// DrawSet returns the cumulative effect draws through test date i.
func (f *Fit) DrawSet(i int) ([]float64, error) {
	return row(f.cumulative, i)
}

// Daily returns a DrawSource over the daily (non-cumulative) effects.
func (f *Fit) Daily() summary.DrawSource { return dailySource{f} }

type dailySource struct{ f *Fit }

func (d dailySource) Len() int { return d.f.Len() }

func (d dailySource) DrawSet(i int) ([]float64, error) { return row(d.f.daily, i) }

func row(m *mat.Dense, i int) ([]float64, error) {
	r, _ := m.Dims()
	if i < 0 || i >= r {
		return nil, fmt.Errorf("date index %d outside [0, %d): %w", i, r, geoerr.ErrBadParameter)
	}
	return mat.Row(nil, i, m), nil
}

// PointEffects returns the cumulative effect through each test date under the
// point estimates of the coefficients.
func (f *Fit) PointEffects() []float64 {
	out := make([]float64, len(f.dates))
	run := 0.0
	for t := range f.dates {
		run += f.treatment[t] - f.Intercept - f.Slope*f.control[t]
		out[t] = run
	}
	return out
}

// PredictiveStdErr returns the standard error of the cumulative effect over the
// whole test window: sigma * sqrt(n + v'(X'X)^-1 v) with v = (n, sum of control).
// The cumulative effect posterior is Student-t with DF degrees of freedom and
// this scale.
func (f *Fit) PredictiveStdErr() float64 {
	if f.Constant {
		return 0
	}
	n := float64(len(f.dates))
	sc := 0.0
	for _, c := range f.control {
		sc += c
	}
	v := mat.NewVecDense(2, []float64{n, sc})
	q := mat.Inner(v, f.xtxInv, v)
	return f.Sigma * math.Sqrt(n+q)
}
