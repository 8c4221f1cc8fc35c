package render

import (
	"context"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/report"
)

type (
	htmlCell struct {
		Text  string
		Class string
	}

	htmlPage struct {
		Title       string
		Subtitle    string
		Orientation string
		Columns     []htmlCell
		Rows        [][]htmlCell
		Footer      []htmlCell
		GeneratedOn string
	}

	HTMLRenderer struct {
		tmpl    *template.Template
		money   *core.MoneyFormatter
		nowFunc func() time.Time
	}
)

var _ Renderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer parses templates/report/table.gohtml from fsys.
func NewHTMLRenderer(fsys fs.FS, money *core.MoneyFormatter) (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(fsys, "templates/report/table.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "parsing report template")
	}
	return &HTMLRenderer{tmpl: tmpl, money: money, nowFunc: time.Now}, nil
}

func (r *HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }
func (r *HTMLRenderer) Ext() string         { return HTML }

func (r *HTMLRenderer) Render(_ context.Context, w io.Writer, t report.Table) error {
	page := htmlPage{
		Title:       t.Title,
		Subtitle:    t.Subtitle,
		Orientation: t.Orientation,
		Columns:     make([]htmlCell, 0, len(t.Columns)),
		Rows:        make([][]htmlCell, 0, len(t.Rows)),
		GeneratedOn: r.nowFunc().Format(dateLayout + " 15:04"),
	}
	if page.Orientation == "" {
		page.Orientation = report.Portrait
	}
	for _, c := range t.Columns {
		page.Columns = append(page.Columns, htmlCell{Text: c.Title, Class: cssClass(c.Kind)})
	}
	for _, row := range t.Rows {
		page.Rows = append(page.Rows, r.cells(row))
	}
	if len(t.Footer) > 0 {
		page.Footer = r.cells(t.Footer)
	}
	return errors.Wrap(r.tmpl.Execute(w, page), "rendering html report")
}

func (r *HTMLRenderer) cells(row []report.Cell) []htmlCell {
	cells := make([]htmlCell, 0, len(row))
	for _, c := range row {
		cells = append(cells, htmlCell{Text: FormatCell(c, r.money), Class: cssClass(c.Kind)})
	}
	return cells
}
