// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"GeoExperiment_Causality_Project/geox/internal/config"
	"GeoExperiment_Causality_Project/geox/internal/logging"
	"GeoExperiment_Causality_Project/geox/internal/metrics"
)

// Flags
var (
	configPath     string
	dataPath       string
	assignmentPath string
	outputPath     string
)

// session is what every subcommand needs, built once before it runs.
type session struct {
	exp     *config.Experiment
	rt      config.Runtime
	logger  *zap.Logger
	metrics *metrics.Metrics
}

var current session

var rootCmd = &cobra.Command{
	Use:   "geox",
	Short: "Geo experiment causal effect estimation and preanalysis",
	Long: `geox estimates the incremental effect and iROAS of a geo experiment with
geo-based regression (gbr) or time-based regression (tbr), and predicts the
precision of a planned experiment from history (preanalysis).

Runtime settings come from GEOX_* environment variables: GEOX_WORKERS,
GEOX_SEED, GEOX_DRAWS, GEOX_LOG_LEVEL, GEOX_LOG_DEVELOPMENT,
GEOX_METRICS_FILE and GEOX_DATABASE_URL.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "experiment.yaml", "Experiment file (YAML)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "Panel CSV, overrides data.csv of the experiment file")
	rootCmd.PersistentFlags().StringVar(&assignmentPath, "assignment", "", "Geo assignment CSV, overrides data.assignment")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Also write the summary table to this CSV file")

	rootCmd.AddCommand(gbrCmd)
	rootCmd.AddCommand(tbrCmd)
	rootCmd.AddCommand(preanalysisCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	rt, err := config.LoadRuntime()
	if err != nil {
		return err
	}
	logger, err := logging.New(rt.LogLevel, rt.LogDevelopment)
	if err != nil {
		return err
	}
	exp, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load experiment file: %w", err)
	}
	exp.ApplyRuntime(rt)

	current = session{
		exp:     exp,
		rt:      rt,
		logger:  logger.With(zap.String("command", cmd.Name())),
		metrics: metrics.New(),
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	defer current.logger.Sync()
	if current.rt.MetricsFile == "" {
		return nil
	}
	if err := current.metrics.WriteTextfile(current.rt.MetricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	current.logger.Debug("Wrote metrics", zap.String("path", current.rt.MetricsFile))
	return nil
}
