// Package render turns report tables into files: html, csv, xlsx and pdf.
// every number and date formatting decision lives here; report tables only carry raw values.
package render

import (
	"context"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/report"
)

// Formats
const (
	JSON = "json"
	HTML = "html"
	CSV  = "csv"
	XLSX = "xlsx"
	PDF  = "pdf"
)

const dateLayout = "02-01-2006"

type Renderer interface {
	ContentType() string
	Ext() string
	Render(ctx context.Context, w io.Writer, t report.Table) error
}

// Registry resolves a renderer by format name.
type Registry struct {
	renderers map[string]Renderer
}

func NewRegistry(renderers ...Renderer) *Registry {
	reg := &Registry{renderers: make(map[string]Renderer, len(renderers))}
	for _, r := range renderers {
		reg.renderers[r.Ext()] = r
	}
	return reg
}

func (reg *Registry) Get(format string) (Renderer, error) {
	r, ok := reg.renderers[format]
	if !ok {
		return nil, core.NewValidationError(
			errors.Errorf("unsupported format %q", format),
			core.FieldError{Field: "format", Error: "unsupported format"},
		)
	}
	return r, nil
}

// Formats lists the registered format names.
func (reg *Registry) Formats() []string {
	formats := make([]string, 0, len(reg.renderers))
	for f := range reg.renderers {
		formats = append(formats, f)
	}
	return formats
}

// FormatCell formats c for humans: grouped amounts with currency symbol and dd-mm-yyyy dates.
func FormatCell(c report.Cell, money *core.MoneyFormatter) string {
	if c.IsEmpty() {
		return ""
	}
	switch c.Kind {
	case report.Amount:
		return money.Amount(c.Decimal())
	case report.Percent:
		return c.Decimal().StringFixed(2) + "%"
	case report.Int:
		return strconv.Itoa(c.Int())
	case report.Date:
		if t := c.Time(); !t.IsZero() {
			return t.Format(dateLayout)
		}
		return ""
	default:
		return c.String()
	}
}

func cssClass(kind report.CellKind) string {
	switch kind {
	case report.Amount, report.Int, report.Percent:
		return "num"
	case report.Mark:
		return "mark"
	}
	return ""
}
