package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/saferoute/internal/model"
)

// LoadCSV reads records from the CSV file at path.
func LoadCSV(ctx context.Context, path string) ([]model.HistoricalRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open csv")
	}
	defer f.Close() //nolint:errcheck

	return ReadCSV(ctx, f)
}

// ReadCSV decodes records from r. The first row is the header; columns
// beyond the required ones are ignored.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.HistoricalRecord, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Source: "csv", Missing: RequiredColumns}
	}
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read csv header")
	}
	header = normalizeHeader(header)
	if err := checkColumns("csv", header, RequiredColumns); err != nil {
		return nil, err
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: csv decoder")
	}

	var records []model.HistoricalRecord
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "dataset: csv read cancelled")
		}

		var raw rawRecord
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "dataset: decode csv row %d", row)
		}

		rec, err := raw.parse(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
