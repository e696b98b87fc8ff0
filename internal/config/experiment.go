// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

// Package config reads the experiment file (YAML) and the runtime settings
// (GEOX_* environment variables) and turns them into estimator configs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"GeoExperiment_Causality_Project/geox/internal/gbr"
	"GeoExperiment_Causality_Project/geox/internal/geoerr"
	"GeoExperiment_Causality_Project/geox/internal/panel"
	"GeoExperiment_Causality_Project/geox/internal/preanalysis"
	"GeoExperiment_Causality_Project/geox/internal/summary"
	"GeoExperiment_Causality_Project/geox/internal/tbr"
)

// Experiment is the experiment file.
type Experiment struct {
	Response string `yaml:"response"`
	Cost     string `yaml:"cost"`

	Data struct {
		// Panel CSV with date, geo and metric columns
		CSV string `yaml:"csv"`
		// Postgres query returning date, geo and metric columns
		Query      string `yaml:"query"`
		Assignment string `yaml:"assignment"`
	} `yaml:"data"`

	// Period boundaries (YYYY-MM-DD): pretest, intervention and optional
	// cooldown start, then the end of the last period.
	Periods  []string `yaml:"periods"`
	Cooldown bool     `yaml:"cooldown"`

	Groups struct {
		Control   int `yaml:"control"`
		Treatment int `yaml:"treatment"`
	} `yaml:"groups"`

	Draws int   `yaml:"draws"`
	Seed  int64 `yaml:"seed"`

	Summary struct {
		Level     float64 `yaml:"level"`
		Interval  string  `yaml:"interval"`
		Threshold float64 `yaml:"threshold"`
	} `yaml:"summary"`

	GBR struct {
		CostMode  string `yaml:"costMode"`
		Weighting string `yaml:"weighting"`
	} `yaml:"gbr"`

	TBR struct {
		Model string `yaml:"model"`
	} `yaml:"tbr"`

	Preanalysis struct {
		PropTo        string  `yaml:"propTo"`
		Lengths       []int   `yaml:"lengths"`
		Resamples     int     `yaml:"resamples"`
		Estimator     string  `yaml:"estimator"`
		Level         float64 `yaml:"level"`
		Interval      string  `yaml:"interval"`
		PermuteGroups bool    `yaml:"permuteGroups"`
	} `yaml:"preanalysis"`
}

// Load reads an experiment file.
func Load(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes an experiment file and fills in the group defaults.
func Parse(data []byte) (*Experiment, error) {
	var exp Experiment
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("experiment file: %v: %w", err, geoerr.ErrBadParameter)
	}
	if exp.Groups.Control == 0 {
		exp.Groups.Control = panel.GroupControl
	}
	if exp.Groups.Treatment == 0 {
		exp.Groups.Treatment = panel.GroupTreatment
	}
	return &exp, nil
}

// ApplyRuntime overrides the seed and number of draws with the non-zero
// runtime settings.
func (e *Experiment) ApplyRuntime(rt Runtime) {
	if rt.Seed != 0 {
		e.Seed = rt.Seed
	}
	if rt.Draws != 0 {
		e.Draws = rt.Draws
	}
}

// ExperimentPeriods parses the period boundaries. No boundaries yields the
// zero value, i.e. a history without periods.
func (e *Experiment) ExperimentPeriods() (panel.ExperimentPeriods, error) {
	if len(e.Periods) == 0 {
		return panel.ExperimentPeriods{}, nil
	}
	b := make([]time.Time, len(e.Periods))
	for i, s := range e.Periods {
		d, err := time.Parse(panel.DateLayout, s)
		if err != nil {
			return panel.ExperimentPeriods{}, fmt.Errorf("boundary %d %q: %w", i, s, geoerr.ErrInvalidPeriods)
		}
		b[i] = d
	}
	return panel.NewPeriods(b...)
}

// SummaryOptions returns the summary query of the file, default level 0.90,
// one-sided.
func (e *Experiment) SummaryOptions() (summary.Options, error) {
	opts := summary.DefaultOptions()
	if e.Summary.Level != 0 {
		opts.Level = e.Summary.Level
	}
	interval, err := summary.ParseIntervalType(e.Summary.Interval)
	if err != nil {
		return opts, err
	}
	opts.Interval = interval
	opts.Threshold = e.Summary.Threshold
	return opts, nil
}

func (e *Experiment) cooldown() int {
	if e.Cooldown {
		return panel.PeriodCooldown
	}
	return panel.PeriodNone
}

// GBRConfig returns the GBR fit settings.
func (e *Experiment) GBRConfig() (gbr.Config, error) {
	cfg := gbr.DefaultConfig(e.Response, e.Cost)
	cfg.Cooldown = e.cooldown()
	cfg.Control, cfg.Treatment = e.Groups.Control, e.Groups.Treatment
	cfg.Seed = e.Seed
	if e.Draws != 0 {
		cfg.Draws = e.Draws
	}

	switch e.GBR.CostMode {
	case "", "raw":
		cfg.CostMode = gbr.CostRaw
	case "regression":
		cfg.CostMode = gbr.CostRegression
	default:
		return cfg, fmt.Errorf("gbr cost mode %q: %w", e.GBR.CostMode, geoerr.ErrBadParameter)
	}
	switch e.GBR.Weighting {
	case "", "none":
		cfg.Weighting = gbr.WeightNone
	case "inverse-pretest":
		cfg.Weighting = gbr.WeightInversePretest
	default:
		return cfg, fmt.Errorf("gbr weighting %q: %w", e.GBR.Weighting, geoerr.ErrBadParameter)
	}
	return cfg, nil
}

// TBRConfig returns the TBR fit settings.
func (e *Experiment) TBRConfig() tbr.Config {
	cfg := tbr.DefaultConfig(e.Response, e.Cost)
	if e.TBR.Model != "" {
		cfg.Model = e.TBR.Model
	}
	cfg.Cooldown = e.cooldown()
	cfg.Control, cfg.Treatment = e.Groups.Control, e.Groups.Treatment
	cfg.Seed = e.Seed
	if e.Draws != 0 {
		cfg.Draws = e.Draws
	}
	return cfg
}

// PreanalysisConfig returns the simulation settings; the caller sets the
// logger, metrics, workers and assignment.
func (e *Experiment) PreanalysisConfig() (preanalysis.Config, error) {
	p := e.Preanalysis
	cfg := preanalysis.DefaultConfig(e.Response, p.PropTo, p.Lengths...)
	cfg.Seed = e.Seed
	cfg.PermuteGroups = p.PermuteGroups
	if p.Resamples != 0 {
		cfg.Resamples = p.Resamples
	}
	if p.Estimator != "" {
		cfg.Estimator = p.Estimator
	}
	if p.Level != 0 {
		cfg.Level = p.Level
	}
	if p.Interval != "" {
		interval, err := summary.ParseIntervalType(p.Interval)
		if err != nil {
			return cfg, err
		}
		cfg.Interval = interval
	}
	return cfg, nil
}
