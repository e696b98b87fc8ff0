// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package tbr

import (
	"fmt"
	"time"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
	"GeoExperiment_Causality_Project/geox/internal/panel"
	"GeoExperiment_Causality_Project/geox/internal/summary"
)

// ROASFit pairs a response fit with a cost fit over the same dates. Its draw
// sets are cumulative incremental response over cumulative incremental cost.
type ROASFit struct {
	Config Config

	effect *Fit
	cost   *Fit
}

// FitROAS fits the response and the cost metric with the same model. A cost
// metric with constant pretest aggregates in both groups (e.g. zero spend
// before the test) is modeled by its pretest mean.
func FitROAS(p *panel.Panel, cfg Config) (*ROASFit, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	if cfg.Cost == "" {
		return nil, fmt.Errorf("no cost metric configured: %w", geoerr.ErrBadParameter)
	}

	effect, err := fitMetric(p, cfg, cfg.Response, false, responseStream)
	if err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}
	cost, err := fitMetric(p, cfg, cfg.Cost, true, costStream)
	if err != nil {
		return nil, fmt.Errorf("cost: %w", err)
	}
	return &ROASFit{Config: cfg, effect: effect, cost: cost}, nil
}

// Effect returns the response fit.
func (f *ROASFit) Effect() *Fit { return f.effect }

// Cost returns the cost fit.
func (f *ROASFit) Cost() *Fit { return f.cost }

// Dates returns the test window dates.
func (f *ROASFit) Dates() []time.Time { return f.effect.Dates() }

// Len implements summary.DrawSource.
func (f *ROASFit) Len() int { return f.effect.Len() }

// DrawSet returns the iROAS draws through test date i. It fails with
// ErrUndefinedRatio when the cumulative cost draws are zero or change sign;
// summary.SummarizeSeries reports such dates as undefined.
func (f *ROASFit) DrawSet(i int) ([]float64, error) {
	num, err := f.effect.DrawSet(i)
	if err != nil {
		return nil, err
	}
	den, err := f.cost.DrawSet(i)
	if err != nil {
		return nil, err
	}
	ratio, err := summary.RatioDraws(num, den)
	if err != nil {
		return nil, fmt.Errorf("date %s: %w", f.effect.dates[i].Format(panel.DateLayout), err)
	}
	return ratio, nil
}
