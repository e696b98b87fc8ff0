// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

// Package report prints summaries as aligned text tables and writes them to CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"GeoExperiment_Causality_Project/geox/internal/panel"
	"GeoExperiment_Causality_Project/geox/internal/preanalysis"
	"GeoExperiment_Causality_Project/geox/internal/summary"
)

// Row is one labeled summary, e.g. a test date or an estimand name.
type Row struct {
	Label  string
	Result summary.Result
}

// SeriesRows labels a series of summaries with their dates.
func SeriesRows(dates []time.Time, results []summary.Result) []Row {
	rows := make([]Row, len(results))
	for i, res := range results {
		rows[i] = Row{Label: dates[i].Format(panel.DateLayout), Result: res}
	}
	return rows
}

func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "undefined"
	case math.IsInf(v, 1):
		return "Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// PrintSummary writes a titled table of rows.
func PrintSummary(w io.Writer, title string, rows []Row) error {
	if len(rows) > 0 {
		r := rows[0].Result
		fmt.Fprintf(w, "\n=== %s ===\n", title)
		fmt.Fprintf(w, "Level %.2f, %s, threshold %g\n\n", r.Level, r.Interval, r.Threshold)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tEstimate\tLower\tUpper\tP(>threshold)\t")
	for _, row := range rows {
		res := row.Result
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			row.Label,
			formatNumber(res.Estimate),
			formatNumber(res.Lower),
			formatNumber(res.Upper),
			formatNumber(res.ProbExceeds))
	}
	return tw.Flush()
}

// WriteSummaryCSV writes rows as CSV with a header.
func WriteSummaryCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)

	header := []string{"Label", "Estimate", "Lower", "Upper", "ProbExceeds", "Level", "Interval", "Threshold", "Undefined"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		res := row.Result
		record := []string{
			row.Label,
			fmt.Sprintf("%f", res.Estimate),
			fmt.Sprintf("%f", res.Lower),
			fmt.Sprintf("%f", res.Upper),
			fmt.Sprintf("%f", res.ProbExceeds),
			fmt.Sprintf("%g", res.Level),
			res.Interval.String(),
			fmt.Sprintf("%g", res.Threshold),
			strconv.FormatBool(res.Undefined),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// OutputSummaryToCSV writes rows to a CSV file at path.
func OutputSummaryToCSV(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteSummaryCSV(file, rows)
}

// PrintPreanalysis writes the resample table quantiles and, when given, the
// answer to a query.
func PrintPreanalysis(w io.Writer, fit *preanalysis.Fit, answer *preanalysis.Answer) error {
	cfg := fit.Config
	fmt.Fprintf(w, "\n=== Preanalysis %s ===\n", fit.ID)
	fmt.Fprintf(w, "Estimator %s, periods %v, %d resamples, precision at level %.2f %s\n\n",
		cfg.Estimator, cfg.Lengths, len(fit.Resamples), cfg.Level, cfg.Interval)

	precisions := fit.Precisions()
	spends := make([]float64, len(fit.Resamples))
	for i, r := range fit.Resamples {
		spends[i] = r.Spend
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Quantile\tPrecision\tSpend\t")
	for _, q := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
		fmt.Fprintf(tw, "%.2f\t%s\t%s\t\n", q,
			formatNumber(summary.Quantile(precisions, q)),
			formatNumber(summary.Quantile(spends, q)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if answer == nil {
		return nil
	}
	q := answer.Query
	fmt.Fprintf(w, "\nLevel %.2f %s, median half-width %s\n", answer.Level, answer.Interval, formatNumber(answer.Scale))
	if q.Precision != 0 {
		fmt.Fprintf(w, "Spend needed for precision %g: %s\n", q.Precision, formatNumber(answer.RequiredSpend))
	} else {
		fmt.Fprintf(w, "Precision predicted for spend %g: %s\n", q.Cost, formatNumber(answer.Precision))
	}
	return nil
}
