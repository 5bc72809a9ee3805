package dataset

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/resilience"
)

// Querier is the subset of pgxpool.Pool the PostgreSQL source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const columnsQuery = `SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`

// LoadPostgresURL connects to databaseURL and reads records from table.
func LoadPostgresURL(ctx context.Context, databaseURL, table, geomColumn string) ([]model.HistoricalRecord, error) {
	pgxCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: parse postgres config")
	}
	pgxCfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: connect postgres")
	}
	defer pool.Close()

	// The database may still be starting when the service boots.
	_, err = resilience.Retry(ctx, resilience.DefaultBackoff(), "dataset: ping postgres", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, pool.Ping(ctx)
	})
	if err != nil {
		return nil, eris.Wrap(err, "dataset: ping postgres")
	}

	return LoadPostgres(ctx, pool, table, geomColumn)
}

// LoadPostgres reads records from table. When geomColumn is set the point is
// taken from that PostGIS column (decoded from EWKB) and the latitude and
// longitude columns are not required.
func LoadPostgres(ctx context.Context, q Querier, table, geomColumn string) ([]model.HistoricalRecord, error) {
	schema, name := "public", table
	if s, n, ok := strings.Cut(table, "."); ok {
		schema, name = s, n
	}

	rows, err := q.Query(ctx, columnsQuery, schema, name)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: list columns of %s", table)
	}
	columns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: list columns of %s", table)
	}

	required := RequiredColumns
	if geomColumn != "" {
		required = append([]string{geomColumn}, RequiredColumns[2:]...)
	}
	if err := checkColumns("table "+table, columns, required); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, selectQuery(sanitizeTable(table), geomColumn))
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: query %s", table)
	}
	defer rows.Close()

	var records []model.HistoricalRecord
	row := 0
	for rows.Next() {
		row++
		var raw rawRecord
		var err error
		if geomColumn != "" {
			var point []byte
			err = rows.Scan(&point, &raw.TimeOfDay, &raw.AreaType, &raw.StreetLighting,
				&raw.CCTVNearby, &raw.PoliceDistanceKM, &raw.SafetyLevel)
			if err == nil {
				raw.Latitude, raw.Longitude, err = decodePoint(row, geomColumn, point)
			}
		} else {
			err = rows.Scan(&raw.Latitude, &raw.Longitude, &raw.TimeOfDay, &raw.AreaType,
				&raw.StreetLighting, &raw.CCTVNearby, &raw.PoliceDistanceKM, &raw.SafetyLevel)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: scan row %d", row)
		}

		rec, err := raw.parse(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "dataset: iterate %s", table)
	}
	return records, nil
}

// selectQuery renders every column as text so NULLs surface as empty values
// and go through the same row validation as the file sources.
func selectQuery(ident, geomColumn string) string {
	text := func(col string) string {
		return "COALESCE(" + pgx.Identifier{col}.Sanitize() + "::text, '')"
	}
	flag := func(col string) string {
		return "COALESCE(" + pgx.Identifier{col}.Sanitize() + "::int::text, '')"
	}

	var cols []string
	if geomColumn != "" {
		cols = append(cols, "ST_AsEWKB("+pgx.Identifier{geomColumn}.Sanitize()+")")
	} else {
		cols = append(cols, text(ColLatitude), text(ColLongitude))
	}
	cols = append(cols,
		text(ColTimeOfDay),
		text(ColAreaType),
		flag(ColStreetLighting),
		flag(ColCCTVNearby),
		text(ColPoliceDistanceKM),
		text(ColSafetyLevel),
	)
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + ident
}

// decodePoint extracts latitude and longitude from an EWKB point.
func decodePoint(row int, col string, b []byte) (string, string, error) {
	if len(b) == 0 {
		return "", "", &RowError{Row: row, Column: col, Reason: "value is required"}
	}
	g, err := ewkb.Unmarshal(b)
	if err != nil {
		return "", "", eris.Wrapf(err, "dataset: row %d: decode %s", row, col)
	}
	p, ok := g.(*geom.Point)
	if !ok || p.Empty() {
		return "", "", &RowError{Row: row, Column: col, Value: strconv.Itoa(len(b)) + " bytes", Reason: "not a point"}
	}
	lat := strconv.FormatFloat(p.Y(), 'g', -1, 64)
	lon := strconv.FormatFloat(p.X(), 'g', -1, 64)
	return lat, lon, nil
}
