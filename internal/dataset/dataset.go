// Package dataset handles table ingestion for the pipeline's callers: CSV
// decoding and a deterministic synthetic building profile for demos and
// tests. Encoding concerns stay out of the analysis core.
package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"time"

	"hvacsight/internal/models"
)

// ReadCSV decodes a table with a header row. Ragged rows are tolerated; the
// normalizer decides what is usable.
func ReadCSV(r io.Reader) (models.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return models.RawTable{}, fmt.Errorf("CSV input is empty")
	}
	return models.RawTable{Headers: records[0], Rows: records[1:]}, nil
}

// MarshalCSV renders a raw table back to CSV bytes.
func MarshalCSV(table models.RawTable) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.Headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(table.Rows); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// demoSeed fixes the synthetic dataset so demo runs are reproducible.
const demoSeed = 42

// Demo generates an hourly building profile ending at the current hour:
// sinusoidal ambient temperature and occupancy-driven load, energy responding
// linearly to both with noise, efficiency derived from energy over load.
func Demo(hours int) models.RawTable {
	return DemoAt(hours, time.Now().UTC().Truncate(time.Hour))
}

// DemoAt is Demo with a fixed end timestamp, for deterministic fixtures.
func DemoAt(hours int, end time.Time) models.RawTable {
	rng := rand.New(rand.NewSource(demoSeed))
	start := end.Add(-time.Duration(hours-1) * time.Hour)

	rows := make([][]string, 0, hours)
	for i := 0; i < hours; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)

		baseTemp := 30 + 4*math.Sin(float64(i)*2*math.Pi/24)
		load := 60 + 25*clampMin(math.Sin((float64(i)-7)*2*math.Pi/24), 0) + rng.NormFloat64()*4
		temp := baseTemp + rng.NormFloat64()*0.8
		energy := 250 + 3.4*load + 2.2*baseTemp + rng.NormFloat64()*3
		efficiency := energy / (clampMin(load, 1) * 0.85)

		rows = append(rows, []string{
			ts.Format("2006-01-02 15:04:05"),
			formatFloat(energy, 2),
			formatFloat(efficiency, 3),
			formatFloat(temp, 2),
			formatFloat(load, 2),
		})
	}

	return models.RawTable{
		// Vendor-style header variants on purpose: demo data exercises the
		// normalizer's alias folding the same way uploads do.
		Headers: []string{"timestamp", "kWh", "iKW-TR", "ambient_temp", "load_profile"},
		Rows:    rows,
	}
}

func clampMin(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	return v
}

func formatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
