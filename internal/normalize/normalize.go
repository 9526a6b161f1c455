// Package normalize maps arbitrary telemetry exports onto the canonical
// observation schema: one strictly increasing timestamp per row plus the
// numeric core parameters, with gaps repaired deterministically.
package normalize

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"hvacsight/internal/models"
)

// SchemaError reports an input table the pipeline cannot analyze. The message
// is surfaced to the caller verbatim.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset is missing required columns: %s (need timestamp plus at least 3 of: %s)",
		strings.Join(e.Missing, ", "), strings.Join(models.CoreColumns, ", "))
}

// aliasMap folds known header variants onto canonical column names. Folded
// headers not listed here pass through unchanged and are ignored downstream.
var aliasMap = map[string]string{
	"time":     models.ColTimestamp,
	"date":     models.ColTimestamp,
	"datetime": models.ColTimestamp,

	"kwh":                models.ColEnergy,
	"energy_kwh":         models.ColEnergy,
	"energy_consumption": models.ColEnergy,
	"kwh_consumption":    models.ColEnergy,
	"consumption":        models.ColEnergy,

	"ikwtr":      models.ColEfficiency,
	"ikw_tr":     models.ColEfficiency,
	"ikw_per_tr": models.ColEfficiency,
	"kw_per_tr":  models.ColEfficiency,
	"efficiency": models.ColEfficiency,

	"ambient_temperature": models.ColAmbient,
	"outdoor_temp":        models.ColAmbient,
	"outside_temp":        models.ColAmbient,
	"temperature":         models.ColAmbient,

	"occupancy":    models.ColLoad,
	"load_profile": models.ColLoad,
	"load_pct":     models.ColLoad,
}

// timestampFormats are tried in order when parsing the timestamp column.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"01/02/2006 15:04",
}

// Canonical folds a raw header (case, whitespace, separators) and resolves
// known aliases to the canonical column name.
func Canonical(header string) string {
	folded := strings.ToLower(strings.TrimSpace(header))
	for _, sep := range []string{" ", "-", "/", "."} {
		folded = strings.ReplaceAll(folded, sep, "_")
	}
	for strings.Contains(folded, "__") {
		folded = strings.ReplaceAll(folded, "__", "_")
	}
	folded = strings.Trim(folded, "_")
	if canonical, ok := aliasMap[folded]; ok {
		return canonical
	}
	return folded
}

// Normalize cleans a raw table into the canonical observation table. It fails
// with *SchemaError when no timestamp column exists or fewer than 3 of the 4
// core parameters survive coercion.
func Normalize(raw models.RawTable) (*models.Table, error) {
	tsIdx := -1
	coreIdx := make(map[string]int)
	for i, h := range raw.Headers {
		switch canonical := Canonical(h); canonical {
		case models.ColTimestamp:
			if tsIdx < 0 {
				tsIdx = i
			}
		case models.ColEnergy, models.ColEfficiency, models.ColAmbient, models.ColLoad:
			if _, seen := coreIdx[canonical]; !seen {
				coreIdx[canonical] = i
			}
		}
	}
	if tsIdx < 0 {
		return nil, &SchemaError{Missing: []string{models.ColTimestamp}}
	}

	type row struct {
		ts     time.Time
		values map[string]float64
	}
	rows := make([]row, 0, len(raw.Rows))
	for _, cells := range raw.Rows {
		if tsIdx >= len(cells) {
			continue
		}
		ts, ok := parseTimestamp(cells[tsIdx])
		if !ok {
			continue // invalid or missing timestamp drops the row
		}
		r := row{ts: ts, values: make(map[string]float64, len(coreIdx))}
		for col, idx := range coreIdx {
			v := math.NaN()
			if idx < len(cells) {
				v = parseNumber(cells[idx])
			}
			r.values[col] = v
		}
		rows = append(rows, r)
	}

	// Stable sort keeps input order among equal timestamps so that the first
	// occurrence wins when duplicates are dropped.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })
	deduped := rows[:0]
	for _, r := range rows {
		if len(deduped) > 0 && r.ts.Equal(deduped[len(deduped)-1].ts) {
			continue
		}
		deduped = append(deduped, r)
	}
	rows = deduped

	table := &models.Table{
		Timestamps: make([]time.Time, len(rows)),
		Columns:    make(map[string][]float64, len(coreIdx)),
	}
	for i, r := range rows {
		table.Timestamps[i] = r.ts
	}
	for col := range coreIdx {
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = r.values[col]
		}
		if !repairGaps(values) {
			continue // no finite value at all, treat the column as absent
		}
		table.Columns[col] = values
	}

	if missing := missingCore(table); len(missing) > 1 {
		return nil, &SchemaError{Missing: missing}
	}
	return table, nil
}

func missingCore(t *models.Table) []string {
	var missing []string
	for _, col := range models.CoreColumns {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

func parseTimestamp(cell string) (time.Time, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampFormats {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseNumber(cell string) float64 {
	s := strings.TrimSpace(cell)
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// repairGaps fills missing values in place: linear interpolation between the
// nearest finite neighbours first, then the column median for leading and
// trailing gaps interpolation cannot reach. Returns false when the column has
// no finite value at all.
func repairGaps(values []float64) bool {
	interpolate(values)

	// The median fallback runs over the interpolated series so repaired
	// interior points count toward it, leaving only edge gaps to fill.
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return false
	}

	sort.Float64s(finite)
	median := stat.Quantile(0.5, stat.LinInterp, finite, nil)
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = median
		}
	}
	return true
}

// interpolate fills interior NaN runs linearly between their finite
// neighbours. Leading and trailing runs are left for the median fallback.
func interpolate(values []float64) {
	prev := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (values[i] - values[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				values[j] = values[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
}
