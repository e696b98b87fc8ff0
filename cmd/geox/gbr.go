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

	"GeoExperiment_Causality_Project/geox/internal/gbr"
	"GeoExperiment_Causality_Project/geox/internal/report"
	"GeoExperiment_Causality_Project/geox/internal/summary"
	"GeoExperiment_Causality_Project/geox/internal/tracing"
)

var gbrCmd = &cobra.Command{
	Use:   "gbr",
	Short: "Fit a geo-based regression",
	Long: `Regress each geo's test window total on its pretest total and a treatment
indicator, and report the total incremental response and, when the experiment
file names a cost metric, the iROAS.`,
	Args: cobra.NoArgs,
	RunE: runGBR,
}

func runGBR(cmd *cobra.Command, args []string) (err error) {
	cfg, err := current.exp.GBRConfig()
	if err != nil {
		return err
	}
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
	_, span := tracing.Start(cmd.Context(), "gbr.Estimate",
		attribute.String("fit", id.String()),
		attribute.String("response", cfg.Response),
		attribute.String("costMode", cfg.CostMode.String()))
	start := time.Now()
	fit, err := gbr.Estimate(p, cfg)
	tracing.End(span, err)
	current.metrics.ObserveFit("gbr", start, err)
	if err != nil {
		return err
	}
	logger.Info("GBR fit",
		zap.Float64("delta", fit.Delta),
		zap.Float64("effect", fit.Effect),
		zap.Float64("effectStdErr", fit.EffectStdErr),
		zap.Int("df", fit.DF),
		zap.Int("control", fit.NControl),
		zap.Int("treatment", fit.NTreatment))

	effect, err := summary.SummarizeFit(fit.EffectSource(), opts)
	if err != nil {
		return err
	}
	rows := []report.Row{{Label: "effect", Result: effect}}
	if cfg.Cost != "" {
		// series mode reports an undefined iROAS instead of failing
		roas, err := summary.SummarizeSeries(fit, opts)
		if err != nil {
			return err
		}
		rows = append(rows, report.Row{Label: "iROAS", Result: roas[0]})
		logger.Info("GBR cost", zap.Float64("deltaCost", fit.DeltaCost), zap.Stringer("mode", cfg.CostMode))
	}
	return writeRows("GBR "+cfg.Response, rows)
}
