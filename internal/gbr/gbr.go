// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

// Package gbr implements geo-based regression: a cross-sectional regression of
// each geo's test window total on its pretest total plus a treatment indicator.
package gbr

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
	"GeoExperiment_Causality_Project/geox/internal/panel"
	"GeoExperiment_Causality_Project/geox/internal/regress"
	"GeoExperiment_Causality_Project/geox/internal/summary"
)

// CostMode selects how the incremental cost is estimated.
type CostMode int

const (
	// CostRaw: treatment test-window cost minus control test-window cost scaled
	// to the treatment group size. No sampling uncertainty.
	CostRaw CostMode = iota
	// CostRegression: the cost test totals are regressed on their pretest
	// totals and the treatment indicator, like the response.
	CostRegression
)

func (m CostMode) String() string {
	if m == CostRegression {
		return "regression"
	}
	return "raw"
}

// Weighting selects the regression weights.
type Weighting int

const (
	WeightNone Weighting = iota
	// WeightInversePretest weights each geo by 1 / pretest response, since
	// the variance of a geo total grows with its size.
	WeightInversePretest
)

// DefaultDraws is the number of posterior draws when Config.Draws is zero.
const DefaultDraws = 10000

// Config selects the data and options of a GBR fit.
type Config struct {
	Response string
	// Cost metric holding the spend change; empty for an effect-only fit.
	Cost string

	Pretest      int
	Intervention int
	// Cooldown is panel.PeriodNone when not included in the test window.
	Cooldown int

	Control   int
	Treatment int

	CostMode  CostMode
	Weighting Weighting

	Draws int
	Seed  int64
}

// DefaultConfig returns the usual Pretest / Intervention / Control / Treatment
// setup without cooldown.
func DefaultConfig(response, cost string) Config {
	return Config{
		Response:     response,
		Cost:         cost,
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

// Fit is an immutable GBR result.
type Fit struct {
	Config Config

	Geos       []string
	Pretest    []float64
	Test       []float64
	NControl   int
	NTreatment int

	// Per-geo coefficients of y = Alpha + Beta x + Delta T
	Alpha, Beta, Delta float64
	DeltaStdErr        float64
	DF                 int

	// Total incremental response over the treatment geos, NTreatment * Delta
	Effect       float64
	EffectStdErr float64

	// Point estimate of the total incremental cost; NaN without a cost metric
	DeltaCost float64

	effect []float64
	cost   []float64
}

// Estimate runs the regression and draws the posterior of the total effect and, if a
// cost metric is configured, of the total incremental cost.
func Estimate(p *panel.Panel, cfg Config) (*Fit, error) {
	if cfg.Draws <= 0 {
		cfg.Draws = DefaultDraws
	}
	if cfg.Control == cfg.Treatment {
		return nil, fmt.Errorf("control and treatment are both group %d: %w", cfg.Control, geoerr.ErrBadParameter)
	}

	// 1. Per-geo totals
	x, err := p.GeoTotals(cfg.Response, cfg.Pretest)
	if err != nil {
		return nil, err
	}
	y, err := p.GeoTotals(cfg.Response, cfg.testPeriods()...)
	if err != nil {
		return nil, err
	}
	if len(p.DateIndices(cfg.Pretest)) == 0 {
		return nil, fmt.Errorf("period %d has no dates: %w", cfg.Pretest, geoerr.ErrInsufficientPretest)
	}
	if len(p.DateIndices(cfg.testPeriods()...)) == 0 {
		return nil, fmt.Errorf("periods %v have no dates: %w", cfg.testPeriods(), geoerr.ErrEmptyTestWindow)
	}

	ctrl := p.GeoIndices(cfg.Control)
	trt := p.GeoIndices(cfg.Treatment)
	if len(ctrl) < 2 {
		return nil, fmt.Errorf("control group %d has %d geos: %w", cfg.Control, len(ctrl), geoerr.ErrInsufficientGeos)
	}
	if len(trt) < 2 {
		return nil, fmt.Errorf("treatment group %d has %d geos: %w", cfg.Treatment, len(trt), geoerr.ErrInsufficientGeos)
	}
	if err := checkVariation(p, x, ctrl, cfg.Control); err != nil {
		return nil, err
	}
	if err := checkVariation(p, x, trt, cfg.Treatment); err != nil {
		return nil, err
	}

	// 2. Design over the geos of both groups
	rows := append(append([]int(nil), ctrl...), trt...)
	n := len(rows)
	geos := p.Geos()
	fit := &Fit{
		Config:     cfg,
		Geos:       make([]string, n),
		Pretest:    make([]float64, n),
		Test:       make([]float64, n),
		NControl:   len(ctrl),
		NTreatment: len(trt),
		DeltaCost:  math.NaN(),
	}
	X := mat.NewDense(n, 3, nil)
	Y := mat.NewDense(n, 1, nil)
	for r, j := range rows {
		fit.Geos[r] = geos[j]
		fit.Pretest[r] = x[j]
		fit.Test[r] = y[j]
		X.Set(r, 0, 1)
		X.Set(r, 1, x[j])
		if r >= len(ctrl) {
			X.Set(r, 2, 1)
		}
		Y.Set(r, 0, y[j])
	}

	weights, err := fit.weights()
	if err != nil {
		return nil, err
	}

	resp, err := regress.Estimate(X, Y, weights)
	if err != nil {
		return nil, fmt.Errorf("response regression: %w", err)
	}
	fit.Alpha, fit.Beta, fit.Delta = resp.Coef(0, 0), resp.Coef(1, 0), resp.Coef(2, 0)
	fit.DeltaStdErr = resp.StdErr(2, 0)
	fit.DF = resp.DF
	nT := float64(len(trt))
	fit.Effect = nT * fit.Delta
	fit.EffectStdErr = nT * fit.DeltaStdErr

	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), 0x6762720000000000))

	// 3. Cost and joint draws
	if cfg.Cost == "" {
		fit.effect = drawEffectOnly(fit, rng)
		return fit, nil
	}

	switch cfg.CostMode {
	case CostRaw:
		err = fit.rawCost(p, ctrl, trt, rng)
	case CostRegression:
		err = fit.regressionCost(p, rows, len(ctrl), X, resp, weights, rng)
	default:
		err = fmt.Errorf("cost mode %d: %w", cfg.CostMode, geoerr.ErrBadParameter)
	}
	if err != nil {
		return nil, err
	}

	allZero := true
	for _, c := range fit.cost {
		if c != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, fmt.Errorf("metric %q: %w", cfg.Cost, geoerr.ErrZeroCost)
	}
	return fit, nil
}

func checkVariation(p *panel.Panel, x []float64, cols []int, group int) error {
	first := x[cols[0]]
	for _, j := range cols[1:] {
		if x[j] != first {
			return nil
		}
	}
	return fmt.Errorf("pretest response is %v for every geo of group %d (e.g. %q): %w",
		first, group, p.Geos()[cols[0]], geoerr.ErrDegenerateRegression)
}

func (f *Fit) weights() ([]float64, error) {
	if f.Config.Weighting != WeightInversePretest {
		return nil, nil
	}
	w := make([]float64, len(f.Pretest))
	for i, x := range f.Pretest {
		if x <= 0 {
			return nil, fmt.Errorf("geo %q has pretest response %v, inverse weight undefined: %w",
				f.Geos[i], x, geoerr.ErrDegenerateRegression)
		}
		w[i] = 1 / x
	}
	return w, nil
}

// drawEffectOnly draws the total effect from its Student-t posterior.
func drawEffectOnly(f *Fit, rng *rand.Rand) []float64 {
	out := make([]float64, f.Config.Draws)
	if f.EffectStdErr == 0 || math.IsNaN(f.EffectStdErr) {
		for i := range out {
			out[i] = f.Effect
		}
		return out
	}
	t := distuv.StudentsT{Mu: f.Effect, Sigma: f.EffectStdErr, Nu: float64(f.DF), Src: rng}
	for i := range out {
		out[i] = t.Rand()
	}
	return out
}

func (f *Fit) rawCost(p *panel.Panel, ctrl, trt []int, rng *rand.Rand) error {
	c, err := p.GeoTotals(f.Config.Cost, f.Config.testPeriods()...)
	if err != nil {
		return err
	}
	sumT, sumC := 0.0, 0.0
	for _, j := range trt {
		sumT += c[j]
	}
	for _, j := range ctrl {
		sumC += c[j]
	}
	f.DeltaCost = sumT - float64(len(trt))/float64(len(ctrl))*sumC

	f.effect = drawEffectOnly(f, rng)
	f.cost = make([]float64, len(f.effect))
	for i := range f.cost {
		f.cost[i] = f.DeltaCost
	}
	return nil
}

// regressionCost fits cost_test = a + b cost_pre + g T (b dropped when the
// pretest cost does not vary) and draws (delta, g) jointly. Their covariance is
// sigma_12 * [A1 X1'W X2 A2]_TT with A = (X'WX)^-1.
func (f *Fit) regressionCost(p *panel.Panel, rows []int, nCtrl int, X1 *mat.Dense,
	resp *regress.Fit, weights []float64, rng *rand.Rand) error {

	cPre, err := p.GeoTotals(f.Config.Cost, f.Config.Pretest)
	if err != nil {
		return err
	}
	cTest, err := p.GeoTotals(f.Config.Cost, f.Config.testPeriods()...)
	if err != nil {
		return err
	}

	n := len(rows)
	varies := false
	for _, j := range rows[1:] {
		if cPre[j] != cPre[rows[0]] {
			varies = true
			break
		}
	}
	cols := 2
	if varies {
		cols = 3
	}
	X2 := mat.NewDense(n, cols, nil)
	Y2 := mat.NewDense(n, 1, nil)
	for r, j := range rows {
		X2.Set(r, 0, 1)
		if varies {
			X2.Set(r, 1, cPre[j])
		}
		if r >= nCtrl {
			X2.Set(r, cols-1, 1)
		}
		Y2.Set(r, 0, cTest[j])
	}

	cost, err := regress.Estimate(X2, Y2, weights)
	if err != nil {
		return fmt.Errorf("cost regression: %w", err)
	}
	gIdx := cols - 1

	// residual cross covariance
	s12 := 0.0
	for i := 0; i < n; i++ {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		s12 += w * resp.U.At(i, 0) * cost.U.At(i, 0)
	}
	df := resp.DF
	if cost.DF < df {
		df = cost.DF
	}
	s12 /= float64(df)

	// A1 X1' W X2 A2
	X2w := mat.DenseCopyOf(X2)
	if weights != nil {
		for i, w := range weights {
			for j := 0; j < cols; j++ {
				X2w.Set(i, j, X2w.At(i, j)*w)
			}
		}
	}
	var cross, tmp, full mat.Dense
	cross.Mul(X1.T(), X2w)
	tmp.Mul(resp.XtXInv, &cross)
	full.Mul(&tmp, cost.XtXInv)

	nT := float64(f.NTreatment)
	v1 := nT * nT * resp.SigmaU.At(0, 0) * resp.XtXInv.At(2, 2)
	v2 := nT * nT * cost.SigmaU.At(0, 0) * cost.XtXInv.At(gIdx, gIdx)
	c12 := nT * nT * s12 * full.At(2, gIdx)

	f.DeltaCost = nT * cost.Coef(gIdx, 0)
	cov := mat.NewSymDense(2, []float64{v1, c12, c12, v2})
	sampler := regress.NewSampler([]float64{f.Effect, f.DeltaCost}, cov, 1, df)

	f.effect = make([]float64, f.Config.Draws)
	f.cost = make([]float64, f.Config.Draws)
	draw := make([]float64, 2)
	for i := range f.effect {
		sampler.Draw(rng, draw)
		f.effect[i], f.cost[i] = draw[0], draw[1]
	}
	return nil
}

// EffectDraws returns a copy of the total effect draws.
func (f *Fit) EffectDraws() summary.Draws { return append(summary.Draws(nil), f.effect...) }

// CostDraws returns a copy of the total incremental cost draws, nil without
// cost.
func (f *Fit) CostDraws() summary.Draws {
	if f.cost == nil {
		return nil
	}
	return append(summary.Draws(nil), f.cost...)
}

// ROASDraws returns effect / cost draw by draw. It fails with
// ErrUndefinedRatio when the cost draws are zero or change sign.
func (f *Fit) ROASDraws() (summary.Draws, error) {
	if f.cost == nil {
		return nil, fmt.Errorf("fit has no cost metric: %w", geoerr.ErrBadParameter)
	}
	return summary.RatioDraws(f.effect, f.cost)
}

// Len implements summary.DrawSource; a GBR fit has a single draw set.
func (f *Fit) Len() int { return 1 }

// DrawSet returns the iROAS draws when a cost metric is configured and the
// total effect draws otherwise.
func (f *Fit) DrawSet(int) ([]float64, error) {
	if f.cost == nil {
		return f.EffectDraws(), nil
	}
	return f.ROASDraws()
}

// EffectSource returns a DrawSource over the total effect only.
func (f *Fit) EffectSource() summary.DrawSource { return f.EffectDraws() }
