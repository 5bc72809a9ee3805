package dataset

import (
	"context"
	"database/sql"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/saferoute/internal/model"
)

// LoadSQLite reads records from table in the SQLite database at path. The
// connection is query-only.
func LoadSQLite(ctx context.Context, path, table string) ([]model.HistoricalRecord, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrap(err, "dataset: stat sqlite")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open sqlite")
	}
	defer db.Close() //nolint:errcheck
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA query_only=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, eris.Wrapf(err, "dataset: sqlite exec %s", pragma)
		}
	}

	return ReadSQL(ctx, db, table)
}

// ReadSQL reads records from table through a database/sql handle.
func ReadSQL(ctx context.Context, db *sql.DB, table string) ([]model.HistoricalRecord, error) {
	ident := sanitizeTable(table)

	probe, err := db.QueryContext(ctx, "SELECT * FROM "+ident+" LIMIT 0")
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: probe table %s", table)
	}
	header, err := probe.Columns()
	probe.Close() //nolint:errcheck
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: columns of %s", table)
	}
	if err := checkColumns("table "+table, normalizeHeader(header), RequiredColumns); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT "+quoteAndJoin(RequiredColumns)+" FROM "+ident)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: query %s", table)
	}
	defer rows.Close() //nolint:errcheck

	var records []model.HistoricalRecord
	row := 0
	for rows.Next() {
		row++
		var v [8]sql.NullString
		if err := rows.Scan(&v[0], &v[1], &v[2], &v[3], &v[4], &v[5], &v[6], &v[7]); err != nil {
			return nil, eris.Wrapf(err, "dataset: scan row %d", row)
		}
		raw := rawRecord{
			Latitude:         v[0].String,
			Longitude:        v[1].String,
			TimeOfDay:        v[2].String,
			AreaType:         v[3].String,
			StreetLighting:   v[4].String,
			CCTVNearby:       v[5].String,
			PoliceDistanceKM: v[6].String,
			SafetyLevel:      v[7].String,
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

// sanitizeTable quotes a table name that may be schema-qualified, e.g.
// "public.incidents".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
