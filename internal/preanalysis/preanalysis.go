// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

// Package preanalysis predicts the precision of a planned geo experiment by
// running GBR or TBR on synthetic experiments cut out of the history, where
// nothing was changed. Precision is the half-width of the iROAS interval, so
// it scales with the inverse of the spend change.
package preanalysis

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"GeoExperiment_Causality_Project/geox/internal/gbr"
	"GeoExperiment_Causality_Project/geox/internal/geoerr"
	"GeoExperiment_Causality_Project/geox/internal/logging"
	"GeoExperiment_Causality_Project/geox/internal/metrics"
	"GeoExperiment_Causality_Project/geox/internal/panel"
	"GeoExperiment_Causality_Project/geox/internal/summary"
	"GeoExperiment_Causality_Project/geox/internal/tbr"
	"GeoExperiment_Causality_Project/geox/internal/tracing"
)

// Estimators run on each resample.
const (
	EstimatorGBR = "gbr"
	EstimatorTBR = "tbr"
)

// DefaultResamples is used when Config.Resamples is zero.
const DefaultResamples = 200

// Config describes the hypothesized experiment.
type Config struct {
	Response string
	// PropTo is the metric the spend change is proportional to.
	PropTo string
	// Assignment defaults to the panel's own assignment when nil.
	Assignment panel.GeoAssignment

	// Lengths of the synthetic pretest, intervention and optional cooldown,
	// in days. The cooldown is part of the test window.
	Lengths []int

	Resamples int
	Seed      int64
	Estimator string

	// Level and Interval of the precision stored per resample.
	Level    float64
	Interval summary.IntervalType

	// PermuteGroups shuffles the group labels across geos in every resample,
	// keeping the group sizes.
	PermuteGroups bool

	// Workers bounds the concurrent resamples; 0 uses runtime.NumCPU().
	Workers int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// DefaultConfig returns a GBR simulation of two-sided 90% precision.
func DefaultConfig(response, propTo string, lengths ...int) Config {
	return Config{
		Response:  response,
		PropTo:    propTo,
		Lengths:   lengths,
		Resamples: DefaultResamples,
		Estimator: EstimatorGBR,
		Level:     summary.DefaultLevel,
		Interval:  summary.TwoSided,
	}
}

func (c Config) windowLength() int {
	n := 0
	for _, l := range c.Lengths {
		n += l
	}
	return n
}

func (c Config) testPeriods() []int {
	if len(c.Lengths) == 3 {
		return []int{panel.PeriodIntervention, panel.PeriodCooldown}
	}
	return []int{panel.PeriodIntervention}
}

// Resample is the outcome of one synthetic experiment.
type Resample struct {
	Index int
	// First row of the window in the history
	Start int
	// Standard error and degrees of freedom of the total effect
	StdErr float64
	DF     int
	// Total PropTo over the treatment geos in the test window
	Spend float64
	// Precision at Config.Level and Config.Interval
	Precision float64
}

// Scale returns the half-width of the effect interval, i.e. precision times
// spend, at the given level and interval type.
func (r Resample) Scale(level float64, interval summary.IntervalType) float64 {
	return criticalValue(level, interval, r.DF) * r.StdErr
}

// Fit is an immutable preanalysis result.
type Fit struct {
	ID        uuid.UUID
	Config    Config
	Resamples []Resample
}

// DeriveSeed returns the seed of resample r, a splitmix64 step of the base
// seed and the index. It does not depend on the number of resamples.
func DeriveSeed(seed int64, r int) uint64 {
	z := uint64(seed) + uint64(r+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Run simulates cfg.Resamples synthetic experiments. Resamples run
// concurrently; a failure or a cancellation of ctx discards every result.
func Run(ctx context.Context, p *panel.Panel, cfg Config) (fit *Fit, err error) {
	cfg, err = validate(p, cfg)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	logger := logging.OrNop(cfg.Logger).With(zap.String("run", id.String()))
	ctx, span := tracing.Start(ctx, "preanalysis.Run",
		attribute.String("run", id.String()),
		attribute.String("estimator", cfg.Estimator),
		attribute.Int("resamples", cfg.Resamples))
	start := time.Now()
	defer func() {
		tracing.End(span, err)
		cfg.Metrics.ObserveFit("preanalysis", start, err)
	}()

	logger.Info("Starting preanalysis",
		zap.String("estimator", cfg.Estimator),
		zap.Ints("lengths", cfg.Lengths),
		zap.Int("resamples", cfg.Resamples),
		zap.Int("workers", cfg.Workers))

	// 1. Fan out, one slot per resample
	results := make([]Resample, cfg.Resamples)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for r := 0; r < cfg.Resamples; r++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				cfg.Metrics.ObserveResample("cancelled")
				return err
			}
			res, err := runResample(p, cfg, r)
			if err != nil {
				cfg.Metrics.ObserveResample("failed")
				return fmt.Errorf("resample %d: %w", r, err)
			}
			cfg.Metrics.ObserveResample("ok")
			logger.Debug("Resample done",
				zap.Int("resample", r),
				zap.Int("start", res.Start),
				zap.Float64("stdErr", res.StdErr),
				zap.Float64("spend", res.Spend))
			results[r] = res
			return nil
		})
	}

	// 2. Fan in
	if err := g.Wait(); err != nil {
		logger.Warn("Preanalysis aborted", zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fit = &Fit{ID: id, Config: cfg, Resamples: results}
	logger.Info("Preanalysis complete",
		zap.Float64("medianPrecision", summary.Median(fit.Precisions())),
		zap.Duration("duration", time.Since(start)))
	return fit, nil
}

func validate(p *panel.Panel, cfg Config) (Config, error) {
	if len(cfg.Lengths) < 2 || len(cfg.Lengths) > 3 {
		return cfg, fmt.Errorf("need 2 or 3 period lengths, got %v: %w", cfg.Lengths, geoerr.ErrBadParameter)
	}
	for i, l := range cfg.Lengths {
		if l <= 0 {
			return cfg, fmt.Errorf("period %d has length %d: %w", i, l, geoerr.ErrNonPositivePeriodLength)
		}
	}
	if cfg.Resamples == 0 {
		cfg.Resamples = DefaultResamples
	}
	if cfg.Resamples < 0 {
		return cfg, fmt.Errorf("resamples = %d: %w", cfg.Resamples, geoerr.ErrBadParameter)
	}
	if cfg.Estimator == "" {
		cfg.Estimator = EstimatorGBR
	}
	if cfg.Estimator != EstimatorGBR && cfg.Estimator != EstimatorTBR {
		return cfg, fmt.Errorf("estimator %q: %w", cfg.Estimator, geoerr.ErrUnknownModel)
	}
	if cfg.Level == 0 {
		cfg.Level = summary.DefaultLevel
	}
	if !(cfg.Level > 0 && cfg.Level < 1) {
		return cfg, fmt.Errorf("level %v outside (0, 1): %w", cfg.Level, geoerr.ErrInvalidLevel)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if n := cfg.windowLength(); p.NumDates() < n {
		return cfg, fmt.Errorf("history has %d dates, periods need %d: %w",
			p.NumDates(), n, geoerr.ErrInsufficientHistory)
	}
	// windows are cut by row and labelled by calendar day
	if err := p.CheckDaily(); err != nil {
		return cfg, fmt.Errorf("history: %w", err)
	}
	if cfg.Assignment == nil {
		cfg.Assignment = p.Assignment()
	}
	if err := cfg.Assignment.Validate(); err != nil {
		return cfg, err
	}

	// Spend scaling needs a metric that differs across geos
	m, err := p.Metric(cfg.PropTo)
	if err != nil {
		return cfg, err
	}
	totals := make([]float64, p.NumGeos())
	for j := range totals {
		totals[j] = floats.Sum(mat.Col(nil, j, m))
	}
	sum, varies := 0.0, false
	for _, v := range totals {
		sum += v
		if v != totals[0] {
			varies = true
		}
	}
	if !varies || sum == 0 {
		return cfg, fmt.Errorf("metric %q is constant across geos or sums to zero: %w",
			cfg.PropTo, geoerr.ErrNoVariation)
	}
	return cfg, nil
}

// runResample cuts a window out of the history, relabels it with synthetic
// periods and fits it.
func runResample(p *panel.Panel, cfg Config, r int) (Resample, error) {
	seed := DeriveSeed(cfg.Seed, r)
	rng := rand.New(rand.NewPCG(seed, seed^0x70726561))

	L := cfg.windowLength()
	start := rng.IntN(p.NumDates() - L + 1)
	win, err := p.Window(start, start+L)
	if err != nil {
		return Resample{}, err
	}
	periods, err := panel.PeriodsFromLengths(win.Date(0), cfg.Lengths)
	if err != nil {
		return Resample{}, err
	}
	win = win.WithPeriods(periods)

	assignment := cfg.Assignment
	if cfg.PermuteGroups {
		assignment = permute(assignment, rng)
	}
	if win, err = win.WithAssignment(assignment); err != nil {
		return Resample{}, err
	}

	res := Resample{Index: r, Start: start}
	switch cfg.Estimator {
	case EstimatorTBR:
		tcfg := tbr.DefaultConfig(cfg.Response, "")
		if len(cfg.Lengths) == 3 {
			tcfg.Cooldown = panel.PeriodCooldown
		}
		tcfg.Draws = 1
		fit, err := tbr.Estimate(win, tcfg)
		if err != nil {
			return Resample{}, err
		}
		res.StdErr, res.DF = fit.PredictiveStdErr(), fit.DF
	default:
		gcfg := gbr.DefaultConfig(cfg.Response, "")
		if len(cfg.Lengths) == 3 {
			gcfg.Cooldown = panel.PeriodCooldown
		}
		gcfg.Draws = 1
		fit, err := gbr.Estimate(win, gcfg)
		if err != nil {
			return Resample{}, err
		}
		res.StdErr, res.DF = fit.EffectStdErr, fit.DF
	}

	spend, err := treatmentSpend(win, cfg)
	if err != nil {
		return Resample{}, err
	}
	res.Spend = spend
	res.Precision = res.Scale(cfg.Level, cfg.Interval) / spend
	return res, nil
}

func treatmentSpend(win *panel.Panel, cfg Config) (float64, error) {
	totals, err := win.GeoTotals(cfg.PropTo, cfg.testPeriods()...)
	if err != nil {
		return 0, err
	}
	spend := 0.0
	for _, j := range win.GeoIndices(panel.GroupTreatment) {
		spend += totals[j]
	}
	if spend <= 0 {
		return 0, fmt.Errorf("metric %q sums to %v over the treatment test window: %w",
			cfg.PropTo, spend, geoerr.ErrNoVariation)
	}
	return spend, nil
}

// permute shuffles the group labels across the geos, ordered by group then id.
func permute(a panel.GeoAssignment, rng *rand.Rand) panel.GeoAssignment {
	var geos []string
	for _, g := range a.Groups() {
		geos = append(geos, a.Geos(g)...)
	}
	labels := make([]int, len(geos))
	for i, geo := range geos {
		labels[i] = a[geo]
	}
	rng.Shuffle(len(labels), func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })

	out := make(panel.GeoAssignment, len(geos))
	for i, geo := range geos {
		out[geo] = labels[i]
	}
	return out
}

// criticalValue is the Student-t quantile giving the interval half-width in
// standard errors.
func criticalValue(level float64, interval summary.IntervalType, df int) float64 {
	p := level
	if interval == summary.TwoSided {
		p = (1 + level) / 2
	}
	if df <= 0 {
		return math.NaN()
	}
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}.Quantile(p)
}

// Precisions returns the stored precision of every resample.
func (f *Fit) Precisions() []float64 {
	out := make([]float64, len(f.Resamples))
	for i, r := range f.Resamples {
		out[i] = r.Precision
	}
	return out
}

// Len implements summary.DrawSource; the precisions form one draw set.
func (f *Fit) Len() int { return 1 }

// DrawSet returns the precision draws.
func (f *Fit) DrawSet(int) ([]float64, error) {
	if len(f.Resamples) == 0 {
		return nil, geoerr.ErrEmptyDrawSet
	}
	return f.Precisions(), nil
}
