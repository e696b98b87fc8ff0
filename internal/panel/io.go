// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package panel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
)

// LoadCSV reads observations from a CSV file with header
// date,geo,<metric>,<metric>,...
func LoadCSV(path string) ([]Observation, error) {
	// 1. Open file
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	obs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return obs, nil
}

// ReadCSV parses observations from r. See LoadCSV for the layout.
func ReadCSV(r io.Reader) ([]Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	// 2. Header
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	dateCol, geoCol := -1, -1
	var metricCols []int
	for j, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			dateCol = j
		case "geo":
			geoCol = j
		default:
			metricCols = append(metricCols, j)
		}
	}
	if dateCol < 0 || geoCol < 0 {
		return nil, fmt.Errorf("header needs date and geo columns, got %v: %w", header, geoerr.ErrMissingMetric)
	}
	if len(metricCols) == 0 {
		return nil, fmt.Errorf("header has no metric columns: %w", geoerr.ErrMissingMetric)
	}

	// 3. Rows
	var obs []Observation
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+2, err) // +2 for header + 1-based
		}
		row++

		if len(record) == 1 && record[0] == "" {
			continue
		}

		d, err := time.Parse(DateLayout, strings.TrimSpace(record[dateCol]))
		if err != nil {
			return nil, fmt.Errorf("parse date at row %d (%q): %w", row+1, record[dateCol], err)
		}
		o := Observation{
			Date:    d,
			Geo:     strings.TrimSpace(record[geoCol]),
			Metrics: make(map[string]float64, len(metricCols)),
		}
		for _, j := range metricCols {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("parse float at row %d col %d (%q): %w", row+1, j+1, record[j], err)
			}
			o.Metrics[strings.TrimSpace(header[j])] = v
		}
		obs = append(obs, o)
	}

	if len(obs) == 0 {
		return nil, fmt.Errorf("no data rows: %w", geoerr.ErrMissingObservation)
	}
	return obs, nil
}

// LoadAssignmentCSV reads a geo,group file.
func LoadAssignmentCSV(path string) (GeoAssignment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s has no assignments: %w", path, geoerr.ErrInvalidAssignment)
	}

	out := make(GeoAssignment, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 2 {
			return nil, fmt.Errorf("row %d: expected geo,group: %w", i+2, geoerr.ErrInvalidAssignment)
		}
		g, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parse group %q: %w", i+2, rec[1], err)
		}
		geo := strings.TrimSpace(rec[0])
		if _, dup := out[geo]; dup {
			return nil, fmt.Errorf("geo %q assigned twice: %w", geo, geoerr.ErrInvalidAssignment)
		}
		out[geo] = g
	}
	return out, out.Validate()
}

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadPostgres reads observations from a query whose first two columns are the
// date and the geo; every other column is a metric named after the column.
func LoadPostgres(ctx context.Context, q Querier, sql string, args ...any) ([]Observation, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query panel: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	if len(fields) < 3 {
		return nil, fmt.Errorf("panel query returned %d columns, need date, geo and a metric: %w",
			len(fields), geoerr.ErrMissingMetric)
	}

	var obs []Observation
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(obs)+1, err)
		}
		d, ok := vals[0].(time.Time)
		if !ok {
			return nil, fmt.Errorf("row %d: date column is %T", len(obs)+1, vals[0])
		}
		o := Observation{
			Date:    time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
			Geo:     fmt.Sprint(vals[1]),
			Metrics: make(map[string]float64, len(fields)-2),
		}
		for k := 2; k < len(fields); k++ {
			v, err := toFloat(vals[k])
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", len(obs)+1, fields[k].Name, err)
			}
			o.Metrics[fields[k].Name] = v
		}
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate panel rows: %w", err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("panel query returned no rows: %w", geoerr.ErrMissingObservation)
	}
	return obs, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil {
			return 0, err
		}
		if !f.Valid {
			return 0, fmt.Errorf("null numeric: %w", geoerr.ErrInvalidMetric)
		}
		return f.Float64, nil
	case nil:
		return 0, fmt.Errorf("null value: %w", geoerr.ErrInvalidMetric)
	default:
		return strconv.ParseFloat(fmt.Sprint(x), 64)
	}
}
