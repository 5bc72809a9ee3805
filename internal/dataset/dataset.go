// Package dataset loads the historical incident records from a CSV file, an
// XLSX workbook, a SQLite table or a PostgreSQL table.
package dataset

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/config"
	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

// Column names every source must provide.
const (
	ColLatitude         = "latitude"
	ColLongitude        = "longitude"
	ColTimeOfDay        = "time_of_day"
	ColAreaType         = "area_type"
	ColStreetLighting   = "street_lighting"
	ColCCTVNearby       = "cctv_nearby"
	ColPoliceDistanceKM = "police_distance_km"
	ColSafetyLevel      = "safety_level"
)

// RequiredColumns lists the schema in canonical order.
var RequiredColumns = []string{
	ColLatitude,
	ColLongitude,
	ColTimeOfDay,
	ColAreaType,
	ColStreetLighting,
	ColCCTVNearby,
	ColPoliceDistanceKM,
	ColSafetyLevel,
}

// SchemaError reports required columns absent from a source.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset: %s is missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
}

// RowError reports a record that cannot be parsed. Row is 1-based and counts
// data rows only.
type RowError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("dataset: row %d: %s %q: %s", e.Row, e.Column, e.Value, e.Reason)
}

// checkColumns returns a SchemaError when header lacks any of required.
func checkColumns(source string, header, required []string) error {
	var missing []string
	for _, c := range required {
		if !slices.Contains(header, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Source: source, Missing: missing}
	}
	return nil
}

// normalizeHeader trims whitespace and a UTF-8 byte order mark.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}

// rawRecord is a row as text, before validation. CSV, XLSX and SQLite rows
// all pass through it so every source applies the same rules.
type rawRecord struct {
	Latitude         string `csv:"latitude"`
	Longitude        string `csv:"longitude"`
	TimeOfDay        string `csv:"time_of_day"`
	AreaType         string `csv:"area_type"`
	StreetLighting   string `csv:"street_lighting"`
	CCTVNearby       string `csv:"cctv_nearby"`
	PoliceDistanceKM string `csv:"police_distance_km"`
	SafetyLevel      string `csv:"safety_level"`
}

// rawFromCells maps a positional row onto the header.
func rawFromCells(header, cells []string) rawRecord {
	get := func(col string) string {
		i := slices.Index(header, col)
		if i < 0 || i >= len(cells) {
			return ""
		}
		return cells[i]
	}
	return rawRecord{
		Latitude:         get(ColLatitude),
		Longitude:        get(ColLongitude),
		TimeOfDay:        get(ColTimeOfDay),
		AreaType:         get(ColAreaType),
		StreetLighting:   get(ColStreetLighting),
		CCTVNearby:       get(ColCCTVNearby),
		PoliceDistanceKM: get(ColPoliceDistanceKM),
		SafetyLevel:      get(ColSafetyLevel),
	}
}

func (r rawRecord) parse(row int) (model.HistoricalRecord, error) {
	var rec model.HistoricalRecord
	var err error

	if rec.Latitude, err = parseFloat(row, ColLatitude, r.Latitude); err != nil {
		return rec, err
	}
	if rec.Longitude, err = parseFloat(row, ColLongitude, r.Longitude); err != nil {
		return rec, err
	}
	if err := geo.ValidateCoordinates(rec.Latitude, rec.Longitude); err != nil {
		return rec, eris.Wrapf(err, "dataset: row %d", row)
	}
	if rec.TimeOfDay, err = parseText(row, ColTimeOfDay, r.TimeOfDay); err != nil {
		return rec, err
	}
	if rec.AreaType, err = parseText(row, ColAreaType, r.AreaType); err != nil {
		return rec, err
	}
	if rec.StreetLighting, err = parseFlag(row, ColStreetLighting, r.StreetLighting); err != nil {
		return rec, err
	}
	if rec.CCTVNearby, err = parseFlag(row, ColCCTVNearby, r.CCTVNearby); err != nil {
		return rec, err
	}
	if rec.PoliceDistanceKM, err = parseFloat(row, ColPoliceDistanceKM, r.PoliceDistanceKM); err != nil {
		return rec, err
	}
	if rec.PoliceDistanceKM < 0 {
		return rec, &RowError{Row: row, Column: ColPoliceDistanceKM, Value: r.PoliceDistanceKM, Reason: "must be >= 0"}
	}
	if rec.SafetyLevel, err = parseText(row, ColSafetyLevel, r.SafetyLevel); err != nil {
		return rec, err
	}
	return rec, nil
}

func parseText(row int, col, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &RowError{Row: row, Column: col, Value: v, Reason: "value is required"}
	}
	return v, nil
}

func parseFloat(row int, col, v string) (float64, error) {
	s := strings.TrimSpace(v)
	if s == "" {
		return 0, &RowError{Row: row, Column: col, Value: v, Reason: "value is required"}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &RowError{Row: row, Column: col, Value: v, Reason: "not a finite number"}
	}
	return f, nil
}

// parseFlag accepts 0/1, including float renderings such as "1.0".
func parseFlag(row int, col, v string) (int, error) {
	f, err := parseFloat(row, col, v)
	if err != nil {
		return 0, err
	}
	if f != 0 && f != 1 {
		return 0, &RowError{Row: row, Column: col, Value: v, Reason: "must be 0 or 1"}
	}
	return int(f), nil
}

// Load reads every record from the configured source, in source order.
func Load(ctx context.Context, cfg config.DatasetConfig) ([]model.HistoricalRecord, error) {
	start := time.Now()
	src := cfg.ResolvedSource()

	var (
		records []model.HistoricalRecord
		err     error
	)
	switch src {
	case config.SourceCSV:
		records, err = LoadCSV(ctx, cfg.Path)
	case config.SourceXLSX:
		records, err = LoadXLSX(ctx, cfg.Path, cfg.Sheet)
	case config.SourceSQLite:
		records, err = LoadSQLite(ctx, cfg.Path, cfg.Table)
	case config.SourcePostgres:
		records, err = LoadPostgresURL(ctx, cfg.DatabaseURL, cfg.Table, cfg.GeomColumn)
	default:
		return nil, eris.Errorf("dataset: unsupported source %q", src)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, eris.Errorf("dataset: %s source has no records", src)
	}

	zap.L().Info("dataset: loaded",
		zap.String("source", src),
		zap.Int("records", len(records)),
		zap.Any("labels", LabelCounts(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}

// LabelCounts returns how many records carry each safety level.
func LabelCounts(records []model.HistoricalRecord) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.SafetyLevel]++
	}
	return counts
}
