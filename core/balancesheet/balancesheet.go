// Package balancesheet computes the profit or loss of a period from fees, expenses and depreciated assets.
package balancesheet

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/aggregate"
	"github.com/trezcool/vidyaverse/core/school"
)

// Period modes
const (
	Yearly  = "yearly"
	Monthly = "monthly"
)

// Result labels
const (
	NetProfit = "Net Profit"
	NetLoss   = "Net Loss"
)

type (
	Period struct {
		Mode  string    `json:"mode"`
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}

	Sheet struct {
		Period        Period               `json:"period"`
		FeesCollected decimal.Decimal      `json:"fees_collected"`
		Expenses      decimal.Decimal      `json:"expenses"`
		Assets        aggregate.AssetValue `json:"assets"`
		NetResult     decimal.Decimal      `json:"net_result"` // signed
		Label         string               `json:"label"`
		Magnitude     decimal.Decimal      `json:"magnitude"` // |NetResult|
	}
)

// YearPeriod covers Jan 1 to Dec 31 of year.
func YearPeriod(year int) Period {
	return Period{
		Mode:  Yearly,
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// MonthPeriod covers the first to the last day of month.
func MonthPeriod(year int, month time.Month) Period {
	start, end := core.MonthRange(year, month)
	return Period{Mode: Monthly, Start: start, End: end}
}

// NewPeriod validates mode, year and month (ignored for yearly periods).
func NewPeriod(mode string, year, month int) (Period, error) {
	if year < 1900 || year > 9999 {
		return Period{}, core.NewValidationError(errors.New("invalid year"), core.FieldError{Field: "year", Error: "invalid year"})
	}
	switch mode {
	case Yearly, "":
		return YearPeriod(year), nil
	case Monthly:
		if month < 1 || month > 12 {
			return Period{}, core.NewValidationError(errors.New("invalid month"), core.FieldError{Field: "month", Error: "must be between 1 and 12"})
		}
		return MonthPeriod(year, time.Month(month)), nil
	default:
		return Period{}, core.NewValidationError(
			errors.Errorf("invalid period mode %q", mode),
			core.FieldError{Field: "mode", Error: "must be one of yearly, monthly"},
		)
	}
}

// Label is the human readable period: "Year: 2024" or "Month: March 2024".
func (p Period) Label() string {
	if p.Mode == Monthly {
		return fmt.Sprintf("Month: %s %d", p.Start.Month(), p.Start.Year())
	}
	if p.Mode == Yearly {
		return fmt.Sprintf("Year: %d", p.Start.Year())
	}
	return fmt.Sprintf("%s to %s", p.Start.Format(core.DateLayout), p.End.Format(core.DateLayout))
}

// Calculate builds the balance sheet of period. assets are valued as of the end of the period.
func Calculate(period Period, payments []school.FeePayment, expenses []school.Expense, deadStock []school.DeadStockItem) (Sheet, error) {
	sheet := Sheet{Period: period}

	var err error
	if sheet.FeesCollected, err = aggregate.FeesCollected(payments, period.Start, period.End); err != nil {
		return Sheet{}, errors.Wrap(err, "summing fees")
	}

	inPeriod, err := aggregate.ExpensesInPeriod(expenses, period.Start, period.End)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "filtering expenses")
	}
	for _, e := range inPeriod {
		sheet.Expenses = sheet.Expenses.Add(e.Amount)
	}

	if sheet.Assets, err = aggregate.DepreciatedAssetValue(deadStock, period.End); err != nil {
		return Sheet{}, errors.Wrap(err, "valuing dead stock")
	}

	sheet.NetResult = sheet.FeesCollected.Add(sheet.Assets.NetValue).Sub(sheet.Expenses)
	sheet.Label = NetProfit
	if sheet.NetResult.IsNegative() {
		sheet.Label = NetLoss
	}
	sheet.Magnitude = sheet.NetResult.Abs()
	return sheet, nil
}
