package dataset

import (
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestReadCSV(t *testing.T) {
	input := "timestamp,kwh,load\n2026-01-01 00:00:00,420.5,55\n2026-01-01 01:00:00,431.2,58\n"
	raw, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if !reflect.DeepEqual(raw.Headers, []string{"timestamp", "kwh", "load"}) {
		t.Errorf("Headers = %v", raw.Headers)
	}
	if len(raw.Rows) != 2 {
		t.Fatalf("Rows = %d, want 2", len(raw.Rows))
	}
	if raw.Rows[1][1] != "431.2" {
		t.Errorf("Rows[1][1] = %q", raw.Rows[1][1])
	}
}

func TestReadCSVRaggedRows(t *testing.T) {
	input := "timestamp,kwh,load\n2026-01-01 00:00:00,420.5\n2026-01-01 01:00:00,431.2,58,extra\n"
	raw, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ragged rows should be tolerated, got: %v", err)
	}
	if len(raw.Rows) != 2 {
		t.Errorf("Rows = %d, want 2", len(raw.Rows))
	}
}

func TestReadCSVEmpty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Error("expected an error for empty input")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	raw := DemoAt(24, time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC))
	data, err := MarshalCSV(raw)
	if err != nil {
		t.Fatalf("MarshalCSV returned error: %v", err)
	}
	back, err := ReadCSV(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if !reflect.DeepEqual(raw, back) {
		t.Error("marshal then read changed the table")
	}
}

func TestDemoShape(t *testing.T) {
	end := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	raw := DemoAt(168, end)

	if got := len(raw.Rows); got != 168 {
		t.Fatalf("rows = %d, want 168", got)
	}
	if !reflect.DeepEqual(raw.Headers, []string{"timestamp", "kWh", "iKW-TR", "ambient_temp", "load_profile"}) {
		t.Errorf("Headers = %v", raw.Headers)
	}

	first, err := time.Parse("2006-01-02 15:04:05", raw.Rows[0][0])
	if err != nil {
		t.Fatalf("first timestamp unparsable: %v", err)
	}
	last, err := time.Parse("2006-01-02 15:04:05", raw.Rows[167][0])
	if err != nil {
		t.Fatalf("last timestamp unparsable: %v", err)
	}
	if !last.Equal(end) {
		t.Errorf("last timestamp = %v, want %v", last, end)
	}
	if want := end.Add(-167 * time.Hour); !first.Equal(want) {
		t.Errorf("first timestamp = %v, want %v", first, want)
	}
}

func TestDemoDeterministic(t *testing.T) {
	end := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	a := DemoAt(72, end)
	b := DemoAt(72, end)
	if !reflect.DeepEqual(a, b) {
		t.Error("two demo tables with the same end differ")
	}
}

func TestDemoValueBands(t *testing.T) {
	raw := DemoAt(168, time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC))
	for i, row := range raw.Rows {
		energy, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			t.Fatalf("row %d energy unparsable: %v", i, err)
		}
		if energy < 300 || energy > 750 {
			t.Errorf("row %d energy = %.1f, outside generator band", i, energy)
		}
		load, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			t.Fatalf("row %d load unparsable: %v", i, err)
		}
		if load < 30 || load > 110 {
			t.Errorf("row %d load = %.1f, outside generator band", i, load)
		}
	}
}
