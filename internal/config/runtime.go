// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Runtime holds the GEOX_* environment settings.
type Runtime struct {
	Workers        int    `envconfig:"WORKERS" default:"0"`
	Seed           int64  `envconfig:"SEED"`
	Draws          int    `envconfig:"DRAWS"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`
	// Prometheus textfile written when the command finishes
	MetricsFile string `envconfig:"METRICS_FILE"`
	// Postgres DSN for experiment files with a data query
	DatabaseURL string `envconfig:"DATABASE_URL"`
}

// LoadRuntime reads the runtime settings from the environment.
func LoadRuntime() (Runtime, error) {
	var rt Runtime
	if err := envconfig.Process("GEOX", &rt); err != nil {
		return rt, fmt.Errorf("load runtime settings: %w", err)
	}
	return rt, nil
}
