// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"GeoExperiment_Causality_Project/geox/internal/preanalysis"
	"GeoExperiment_Causality_Project/geox/internal/report"
)

// Flags
var (
	targetPrecision float64
	plannedCost     float64
)

var preanalysisCmd = &cobra.Command{
	Use:   "preanalysis",
	Short: "Predict the precision of a planned experiment",
	Long: `Cut synthetic experiments of the configured period lengths out of the
history, fit each one, and report the distribution of the iROAS precision.
With --precision, report the spend needed to reach it; with --cost, the
precision a spend change of that size achieves.

Examples:
  geox preanalysis -c experiment.yaml --cost 50000
  geox preanalysis -c experiment.yaml --precision 0.5`,
	Args: cobra.NoArgs,
	RunE: runPreanalysis,
}

func init() {
	preanalysisCmd.Flags().Float64Var(&targetPrecision, "precision", 0, "Target precision (interval half-width of the iROAS)")
	preanalysisCmd.Flags().Float64Var(&plannedCost, "cost", 0, "Planned total spend change")
}

func runPreanalysis(cmd *cobra.Command, args []string) error {
	cfg, err := current.exp.PreanalysisConfig()
	if err != nil {
		return err
	}
	p, err := loadPanel(cmd.Context())
	if err != nil {
		return err
	}
	cfg.Assignment = p.Assignment()
	cfg.Workers = current.rt.Workers
	cfg.Logger = current.logger
	cfg.Metrics = current.metrics

	// Ctrl-C stops between resamples
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fit, err := preanalysis.Run(ctx, p, cfg)
	if err != nil {
		return err
	}

	var answer *preanalysis.Answer
	if targetPrecision != 0 || plannedCost != 0 {
		ans, err := fit.Query(preanalysis.Query{
			Precision: targetPrecision,
			Cost:      plannedCost,
		})
		if err != nil {
			return err
		}
		answer = &ans
	}
	return report.PrintPreanalysis(cmd.OutOrStdout(), fit, answer)
}

