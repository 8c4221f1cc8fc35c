package render

import (
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/report"
)

const (
	pdfMargin      = 10.0 // mm
	pdfRowHeight   = 6.0
	pdfCellPadding = 1.5
	pdfFontSize    = 9.0
	pdfMinFontSize = 6.0
)

// PDFRenderer draws the table on A4 pages with the core helvetica font.
// the column header is repeated on every page and every page is numbered.
type PDFRenderer struct {
	money *core.MoneyFormatter
}

var _ Renderer = (*PDFRenderer)(nil)

func NewPDFRenderer(money *core.MoneyFormatter) *PDFRenderer {
	return &PDFRenderer{money: money}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }
func (r *PDFRenderer) Ext() string         { return PDF }

func (r *PDFRenderer) Render(_ context.Context, w io.Writer, t report.Table) error {
	orientation := "P"
	if t.Orientation == report.Landscape {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetTitle(t.Title, true)
	pdf.SetCreator("vidyaverse", false)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	for _, line := range []struct {
		text string
		size float64
	}{{t.Subtitle, 13}, {t.Title, 11}} {
		if line.text == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", line.size)
		pdf.CellFormat(0, 7, tr(line.text), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = tr(c.Title)
	}
	rows := make([][]string, len(t.Rows))
	for i, cells := range t.Rows {
		rows[i] = r.texts(cells, tr)
	}
	var footer []string
	if len(t.Footer) > 0 {
		footer = r.texts(t.Footer, tr)
	}

	pageWidth, pageHeight := pdf.GetPageSize()
	size, widths := columnWidths(pdf, pageWidth-2*pdfMargin, header, append(rows, footer))

	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", size)
		pdf.SetFillColor(230, 230, 230)
		for i, title := range header {
			pdf.CellFormat(widths[i], pdfRowHeight, title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	drawRow := func(texts []string, style string) {
		if pdf.GetY()+pdfRowHeight > pageHeight-2*pdfMargin {
			pdf.AddPage()
			drawHeader()
		}
		pdf.SetFont("Helvetica", style, size)
		for i, text := range texts {
			if i >= len(widths) {
				break
			}
			pdf.CellFormat(widths[i], pdfRowHeight, text, "1", 0, pdfAlign(t.Columns[i].Kind), false, 0, "")
		}
		pdf.Ln(-1)
	}

	drawHeader()
	for _, texts := range rows {
		drawRow(texts, "")
	}
	if footer != nil {
		drawRow(footer, "B")
	}
	if len(rows) == 0 {
		pdf.SetFont("Helvetica", "I", size)
		pdf.CellFormat(0, pdfRowHeight, "No records.", "", 1, "C", false, 0, "")
	}

	return errors.Wrap(pdf.Output(w), "writing pdf report")
}

// texts formats cells for the cp1252 core font: amounts are written without the currency symbol.
func (r *PDFRenderer) texts(cells []report.Cell, tr func(string) string) []string {
	texts := make([]string, len(cells))
	for i, c := range cells {
		if c.Kind == report.Amount && !c.IsEmpty() {
			d := c.Decimal()
			if texts[i] = r.money.Number(d.Abs()); d.IsNegative() {
				texts[i] = "-" + texts[i]
			}
			continue
		}
		texts[i] = tr(FormatCell(c, r.money))
	}
	return texts
}

// columnWidths sizes the columns after their widest text, then shrinks the font (down to pdfMinFontSize)
// and scales the widths so the table spans exactly the printable width.
func columnWidths(pdf *fpdf.Fpdf, printable float64, header []string, rows [][]string) (float64, []float64) {
	widths := make([]float64, len(header))
	measure := func(texts []string, style string) {
		pdf.SetFont("Helvetica", style, pdfFontSize)
		for i, text := range texts {
			if i >= len(widths) {
				break
			}
			if w := pdf.GetStringWidth(text) + 2*pdfCellPadding; w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(header, "B")
	for _, texts := range rows {
		measure(texts, "B")
	}

	var total float64
	for _, w := range widths {
		total += w
	}
	if total == 0 {
		return pdfFontSize, widths
	}
	size := pdfFontSize
	if total > printable {
		size = pdfFontSize * printable / total
		if size < pdfMinFontSize {
			size = pdfMinFontSize
		}
	}
	for i := range widths {
		widths[i] = widths[i] * printable / total
	}
	return size, widths
}

func pdfAlign(kind report.CellKind) string {
	switch kind {
	case report.Amount, report.Int, report.Percent:
		return "R"
	case report.Mark:
		return "C"
	}
	return "L"
}
