package render

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core/report"
)

// CSVRenderer writes the header, rows and footer as plain csv records.
// amounts are written as fixed 2-decimal numbers without grouping nor symbol, so spreadsheets can sum them.
type CSVRenderer struct{}

var _ Renderer = CSVRenderer{}

func (CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVRenderer) Ext() string         { return CSV }

func (CSVRenderer) Render(_ context.Context, w io.Writer, t report.Table) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		header = append(header, c.Title)
	}
	records := [][]string{header}
	for _, row := range t.Rows {
		records = append(records, csvRecord(row))
	}
	if len(t.Footer) > 0 {
		records = append(records, csvRecord(t.Footer))
	}
	return errors.Wrap(cw.WriteAll(records), "writing csv report")
}

func csvRecord(row []report.Cell) []string {
	rec := make([]string, 0, len(row))
	for _, c := range row {
		switch {
		case c.IsEmpty():
			rec = append(rec, "")
		case c.Kind == report.Amount, c.Kind == report.Percent:
			rec = append(rec, c.Decimal().StringFixed(2))
		case c.Kind == report.Int:
			rec = append(rec, strconv.Itoa(c.Int()))
		case c.Kind == report.Date:
			rec = append(rec, c.Time().Format(dateLayout))
		default:
			rec = append(rec, c.String())
		}
	}
	return rec
}
