// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"GeoExperiment_Causality_Project/geox/internal/report"
	"GeoExperiment_Causality_Project/geox/internal/summary"
	"GeoExperiment_Causality_Project/geox/internal/tbr"
	"GeoExperiment_Causality_Project/geox/internal/tracing"
)

var tbrDaily bool

var tbrCmd = &cobra.Command{
	Use:   "tbr",
	Short: "Fit a time-based regression",
	Long: `Regress the treatment aggregate on the control aggregate over the pretest
and report the cumulative incremental response on every test date and, when
the experiment file names a cost metric, the cumulative iROAS.`,
	Args: cobra.NoArgs,
	RunE: runTBR,
}

func init() {
	tbrCmd.Flags().BoolVar(&tbrDaily, "daily", false, "Also print the daily (non-cumulative) effects")
}

func runTBR(cmd *cobra.Command, args []string) (err error) {
	cfg := current.exp.TBRConfig()
	opts, err := current.exp.SummaryOptions()
	if err != nil {
		return err
	}
	p, err := loadPanel(cmd.Context())
	if err != nil {
		return err
	}

	id := uuid.New()
	logger := current.logger.With(zap.String("fit", id.String()))
	_, span := tracing.Start(cmd.Context(), "tbr.Estimate",
		attribute.String("fit", id.String()),
		attribute.String("response", cfg.Response),
		attribute.String("cost", cfg.Cost))
	start := time.Now()

	var (
		effect *tbr.Fit
		roas   *tbr.ROASFit
	)
	if cfg.Cost != "" {
		roas, err = tbr.FitROAS(p, cfg)
		if roas != nil {
			effect = roas.Effect()
		}
	} else {
		effect, err = tbr.Estimate(p, cfg)
	}
	tracing.End(span, err)
	current.metrics.ObserveFit("tbr", start, err)
	if err != nil {
		return err
	}
	logger.Info("TBR fit",
		zap.Float64("intercept", effect.Intercept),
		zap.Float64("slope", effect.Slope),
		zap.Float64("sigma", effect.Sigma),
		zap.Int("df", effect.DF),
		zap.Int("testDates", effect.Len()))

	series, err := summary.SummarizeSeries(effect, opts)
	if err != nil {
		return err
	}
	if err := writeRows("TBR cumulative "+cfg.Response, report.SeriesRows(effect.Dates(), series)); err != nil {
		return err
	}

	if tbrDaily {
		daily, err := summary.SummarizeSeries(effect.Daily(), opts)
		if err != nil {
			return err
		}
		if err := report.PrintSummary(cmd.OutOrStdout(), "TBR daily "+cfg.Response,
			report.SeriesRows(effect.Dates(), daily)); err != nil {
			return err
		}
	}

	if roas == nil {
		return nil
	}
	ratios, err := summary.SummarizeSeries(roas, opts)
	if err != nil {
		return err
	}
	if roas.Cost().Constant {
		logger.Info("Cost counterfactual is the pretest mean", zap.String("cost", cfg.Cost))
	}
	return report.PrintSummary(cmd.OutOrStdout(), "TBR cumulative iROAS", report.SeriesRows(roas.Dates(), ratios))
}
