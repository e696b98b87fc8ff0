// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package report

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"GeoExperiment_Causality_Project/geox/internal/preanalysis"
	"GeoExperiment_Causality_Project/geox/internal/summary"
)

func sampleRows() []Row {
	dates := []time.Time{
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
	}
	nan := math.NaN()
	results := []summary.Result{
		{Estimate: nan, Lower: nan, Upper: nan, ProbExceeds: nan, Level: 0.9, Undefined: true},
		{Estimate: 2.5, Lower: 1.25, Upper: math.Inf(1), ProbExceeds: 0.97, Level: 0.9},
	}
	return SeriesRows(dates, results)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintSummary(&buf, "iROAS", sampleRows()); err != nil {
		t.Fatalf("PrintSummary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"=== iROAS ===", "one-sided", "2025-02-01", "undefined", "2.5000", "Inf"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("WriteSummaryCSV: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records; want header + 2", len(records))
	}
	if records[1][0] != "2025-02-01" || records[1][8] != "true" {
		t.Errorf("first row = %v", records[1])
	}
	if records[2][1] != "2.500000" || records[2][6] != "one-sided" {
		t.Errorf("second row = %v", records[2])
	}
}

func TestPrintPreanalysis(t *testing.T) {
	fit := &preanalysis.Fit{
		ID:     uuid.New(),
		Config: preanalysis.DefaultConfig("sales", "cost", 28, 14),
		Resamples: []preanalysis.Resample{
			{Index: 0, StdErr: 10, DF: 5, Spend: 100, Precision: 0.2},
			{Index: 1, StdErr: 12, DF: 5, Spend: 100, Precision: 0.24},
		},
	}
	answer := &preanalysis.Answer{
		Query:     preanalysis.Query{Cost: 400},
		Level:     0.9,
		Interval:  summary.TwoSided,
		Scale:     22,
		Precision: 0.055,
	}
	var buf bytes.Buffer
	if err := PrintPreanalysis(&buf, fit, answer); err != nil {
		t.Fatalf("PrintPreanalysis: %v", err)
	}
	out := buf.String()
	for _, want := range []string{fit.ID.String(), "two-sided", "Precision predicted for spend 400: 0.0550"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
