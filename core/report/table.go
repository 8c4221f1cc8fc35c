// Package report turns ledger snapshots into tables: ordered columns, rows of raw typed cells and a footer.
// tables carry no markup nor formatted numbers; see services/render for the output formats.
package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report kinds
const (
	KindDueFees       = "due-fees"
	KindFeesStatus    = "fees-status"
	KindAttendance    = "attendance"
	KindMuster        = "muster"
	KindExpenses      = "expenses"
	KindDeadStock     = "dead-stock"
	KindBalanceSheet  = "balance-sheet"
	KindClassRegister = "class-register"
	KindMarksheet     = "marksheet"
)

var Kinds = []string{
	KindDueFees, KindFeesStatus, KindAttendance, KindMuster,
	KindExpenses, KindDeadStock, KindBalanceSheet, KindClassRegister,
}

// Kinds lists the report kinds built from a Filter; the marksheet is built from a MarksheetRequest.

// Orientations
const (
	Portrait  = "portrait"
	Landscape = "landscape"
)

type CellKind int

const (
	Text CellKind = iota
	Amount
	Int
	Date
	Mark // attendance mark: P, A or -
	Percent
)

// Attendance marks
const (
	MarkPresent = "P"
	MarkAbsent  = "A"
	MarkNone    = "-"
)

type (
	Cell struct {
		Kind  CellKind    `json:"kind"`
		Value interface{} `json:"value"` // string, decimal.Decimal (Amount, Percent), int or time.Time depending on Kind
	}

	Column struct {
		Title string   `json:"title"`
		Kind  CellKind `json:"kind"`
	}

	Table struct {
		Title       string   `json:"title"`
		Subtitle    string   `json:"subtitle,omitempty"`
		Orientation string   `json:"orientation"`
		Columns     []Column `json:"columns"`
		Rows        [][]Cell `json:"rows"`
		Footer      []Cell   `json:"footer,omitempty"`
	}
)

func TextCell(s string) Cell                 { return Cell{Kind: Text, Value: s} }
func AmountCell(d decimal.Decimal) Cell      { return Cell{Kind: Amount, Value: d} }
func IntCell(i int) Cell                     { return Cell{Kind: Int, Value: i} }
func DateCell(t time.Time) Cell              { return Cell{Kind: Date, Value: t} }
func MarkCell(m string) Cell                 { return Cell{Kind: Mark, Value: m} }
func PercentCell(d decimal.Decimal) Cell     { return Cell{Kind: Percent, Value: d} }
func emptyCells(n int) []Cell                { return make([]Cell, n) }
func col(title string, kind CellKind) Column { return Column{Title: title, Kind: kind} }

// String returns the Text/Mark value of c, or "".
func (c Cell) String() string {
	s, _ := c.Value.(string)
	return s
}

// Decimal returns the Amount or Percent value of c, or zero.
func (c Cell) Decimal() decimal.Decimal {
	d, _ := c.Value.(decimal.Decimal)
	return d
}

// Int returns the Int value of c, or 0.
func (c Cell) Int() int {
	i, _ := c.Value.(int)
	return i
}

// Time returns the Date value of c, or the zero time.
func (c Cell) Time() time.Time {
	t, _ := c.Value.(time.Time)
	return t
}

// IsEmpty reports whether c holds no value (used as footer padding).
func (c Cell) IsEmpty() bool { return c.Value == nil }

// ColumnIndex returns the position of the column titled title, or -1.
func (t Table) ColumnIndex(title string) int {
	for i, c := range t.Columns {
		if c.Title == title {
			return i
		}
	}
	return -1
}
