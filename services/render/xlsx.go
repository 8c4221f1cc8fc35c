package render

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/vidyaverse/core/report"
)

const sheetName = "Report"

// XLSXRenderer writes a single-sheet workbook: title rows, a bold header, typed cells and a bold footer.
type XLSXRenderer struct{}

var _ Renderer = XLSXRenderer{}

func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSXRenderer) Ext() string { return XLSX }

func (XLSXRenderer) Render(_ context.Context, w io.Writer, t report.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(index)
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "deleting default sheet")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating style")
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return errors.Wrap(err, "creating style")
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return errors.Wrap(err, "creating style")
	}
	date, err := f.NewStyle(&excelize.Style{NumFmt: 14}) // mm-dd-yy, localized by excel
	if err != nil {
		return errors.Wrap(err, "creating style")
	}

	row := 1
	for _, line := range []string{t.Subtitle, t.Title} {
		if line == "" {
			continue
		}
		if err = setCell(f, 1, row, line, bold); err != nil {
			return err
		}
		row++
	}
	row++

	for i, c := range t.Columns {
		if err = setCell(f, i+1, row, c.Title, bold); err != nil {
			return err
		}
	}
	row++

	styles := map[report.CellKind]int{report.Amount: amount, report.Percent: percent, report.Date: date}
	for _, cells := range t.Rows {
		for i, c := range cells {
			if err = setCell(f, i+1, row, xlsxValue(c), styles[c.Kind]); err != nil {
				return err
			}
		}
		row++
	}
	for i, c := range t.Footer {
		if c.IsEmpty() {
			continue
		}
		if err = setCell(f, i+1, row, xlsxValue(c), bold); err != nil {
			return err
		}
	}

	return errors.Wrap(f.Write(w), "writing xlsx report")
}

func setCell(f *excelize.File, col, row int, value interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return errors.Wrap(err, "resolving cell name")
	}
	if err = f.SetCellValue(sheetName, cell, value); err != nil {
		return errors.Wrapf(err, "setting cell %s", cell)
	}
	if style != 0 {
		if err = f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return errors.Wrapf(err, "styling cell %s", cell)
		}
	}
	return nil
}

func xlsxValue(c report.Cell) interface{} {
	switch c.Kind {
	case report.Amount, report.Percent:
		v, _ := c.Decimal().Round(2).Float64()
		return v
	case report.Int:
		return c.Int()
	case report.Date:
		return c.Time()
	default:
		return c.String()
	}
}
