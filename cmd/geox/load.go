// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
	"GeoExperiment_Causality_Project/geox/internal/panel"
	"GeoExperiment_Causality_Project/geox/internal/report"
)

// loadPanel builds the annotated panel from the CSV file or the Postgres
// query of the experiment file.
func loadPanel(ctx context.Context) (*panel.Panel, error) {
	exp := current.exp

	// 1. Assignment
	path := assignmentPath
	if path == "" {
		path = exp.Data.Assignment
	}
	if path == "" {
		return nil, fmt.Errorf("no geo assignment file: %w", geoerr.ErrUnassignedGeo)
	}
	assignment, err := panel.LoadAssignmentCSV(path)
	if err != nil {
		return nil, err
	}

	// 2. Observations
	var obs []panel.Observation
	csvPath := dataPath
	if csvPath == "" {
		csvPath = exp.Data.CSV
	}
	switch {
	case csvPath != "":
		obs, err = panel.LoadCSV(csvPath)
	case exp.Data.Query != "":
		obs, err = queryPanel(ctx, exp.Data.Query)
	default:
		return nil, fmt.Errorf("no panel source, set data.csv or data.query: %w", geoerr.ErrMissingObservation)
	}
	if err != nil {
		return nil, err
	}

	// 3. Periods
	periods, err := exp.ExperimentPeriods()
	if err != nil {
		return nil, err
	}
	p, err := panel.New(obs, periods, assignment)
	if err != nil {
		return nil, err
	}
	current.logger.Info("Loaded panel",
		zap.Int("dates", p.NumDates()),
		zap.Int("geos", p.NumGeos()),
		zap.Strings("metrics", p.MetricNames()))
	return p, nil
}

func queryPanel(ctx context.Context, query string) ([]panel.Observation, error) {
	if current.rt.DatabaseURL == "" {
		return nil, fmt.Errorf("data.query needs GEOX_DATABASE_URL: %w", geoerr.ErrBadParameter)
	}
	pool, err := pgxpool.New(ctx, current.rt.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	return panel.LoadPostgres(ctx, pool, query)
}

// writeRows prints rows and, with --output, writes them to CSV.
func writeRows(title string, rows []report.Row) error {
	if err := report.PrintSummary(rootCmd.OutOrStdout(), title, rows); err != nil {
		return err
	}
	if outputPath == "" {
		return nil
	}
	return report.OutputSummaryToCSV(outputPath, rows)
}
