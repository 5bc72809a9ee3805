package dataset

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/saferoute/internal/model"
)

// LoadXLSX reads records from a workbook sheet. An empty sheet name selects
// the first sheet. The first row is the header; blank rows are skipped.
func LoadXLSX(ctx context.Context, path, sheetName string) ([]model.HistoricalRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open xlsx")
	}

	sheet, err := getSheet(f, sheetName)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, &SchemaError{Source: "xlsx", Missing: RequiredColumns}
	}

	header := normalizeHeader(rowToStrings(sheet.Rows[0]))
	if err := checkColumns("xlsx", header, RequiredColumns); err != nil {
		return nil, err
	}

	var records []model.HistoricalRecord
	row := 0
	for _, r := range sheet.Rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "dataset: xlsx read cancelled")
		}

		cells := rowToStrings(r)
		if blank(cells) {
			continue
		}
		row++

		rec, err := rawFromCells(header, cells).parse(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("dataset: xlsx sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("dataset: xlsx workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
