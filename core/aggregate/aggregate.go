// Package aggregate reduces ledger snapshots into summary figures.
// every function is pure: inputs are never mutated and the result only depends on the arguments.
package aggregate

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

// DepreciationRate is the straight-line yearly depreciation applied to dead stock.
var DepreciationRate = decimal.New(10, -2)

var daysPerYear = decimal.New(36525, -2)

// Fee statuses
const (
	FeePaid          = "Paid"
	FeePartiallyPaid = "Partially Paid"
	FeeUnpaid        = "Unpaid"
)

type (
	ClassFees struct {
		Collected decimal.Decimal `json:"collected"`
		Pending   decimal.Decimal `json:"pending"` // signed: overpaid students reduce it
	}

	AttendanceCounts struct {
		Present int `json:"present"`
		Absent  int `json:"absent"`
	}

	AssetValue struct {
		PurchaseValue decimal.Decimal `json:"purchase_value"`
		Depreciation  decimal.Decimal `json:"depreciation"`
		NetValue      decimal.Decimal `json:"net_value"`
	}
)

// FeesSummaryByClass groups active students by class and sums their collected and pending fees.
func FeesSummaryByClass(students []school.Student) map[string]ClassFees {
	summary := make(map[string]ClassFees)
	for _, st := range students {
		if !st.IsActive() {
			continue
		}
		cf := summary[st.Class]
		cf.Collected = cf.Collected.Add(st.FeesPaid)
		cf.Pending = cf.Pending.Add(st.Pending())
		summary[st.Class] = cf
	}
	return summary
}

// AttendanceSummary counts the records of date whose person is in activeIDs.
// duplicate records of a person are all counted: the store upserts on (person, date), so they only
// show up in data written before that constraint existed.
func AttendanceSummary(records []school.AttendanceRecord, activeIDs []string, date time.Time) AttendanceCounts {
	active := make(map[string]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = struct{}{}
	}
	day := core.Day(date)

	var counts AttendanceCounts
	for _, rec := range records {
		if !core.Day(rec.Date).Equal(day) {
			continue
		}
		if _, ok := active[rec.PersonID]; !ok {
			continue
		}
		switch rec.Status {
		case school.Present:
			counts.Present++
		case school.Absent:
			counts.Absent++
		}
	}
	return counts
}

// DueStudents returns the students with totalFees > feesPaid, in ledger order.
// classFilter restricts to one class; "" or school.AllClasses matches every class.
func DueStudents(students []school.Student, classFilter string) []school.Student {
	due := make([]school.Student, 0)
	for _, st := range students {
		if !matchesClass(st.Class, classFilter) {
			continue
		}
		if st.TotalFees.GreaterThan(st.FeesPaid) {
			due = append(due, st)
		}
	}
	return due
}

// ExpensesInPeriod returns the expenses dated in [start, end], ascending by date.
func ExpensesInPeriod(expenses []school.Expense, start, end time.Time) ([]school.Expense, error) {
	inPeriod := make([]school.Expense, 0)
	for _, exp := range expenses {
		if exp.Date.IsZero() {
			return nil, invalidDate("expense", exp.ID)
		}
		if core.InRange(exp.Date, start, end) {
			inPeriod = append(inPeriod, exp)
		}
	}
	sort.SliceStable(inPeriod, func(i, j int) bool { return inPeriod[i].Date.Before(inPeriod[j].Date) })
	return inPeriod, nil
}

// FeesCollected sums the payments dated in [start, end].
func FeesCollected(payments []school.FeePayment, start, end time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range payments {
		if p.Date.IsZero() {
			return decimal.Zero, invalidDate("fee payment", p.ID)
		}
		if core.InRange(p.Date, start, end) {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

// DepreciatedAssetValue values the dead stock purchased on or before asOf with straight-line depreciation.
// the depreciation of an item is not capped by its purchase value; only the net total is floored at zero.
func DepreciatedAssetValue(items []school.DeadStockItem, asOf time.Time) (AssetValue, error) {
	var val AssetValue
	for _, item := range items {
		if item.PurchaseDate.IsZero() {
			return AssetValue{}, invalidDate("dead stock item", item.ID)
		}
		if core.Day(item.PurchaseDate).After(core.Day(asOf)) {
			continue
		}
		purchase := item.TotalPrice()
		val.PurchaseValue = val.PurchaseValue.Add(purchase)

		if age := AgeInYears(item.PurchaseDate, asOf); age.IsPositive() {
			val.Depreciation = val.Depreciation.Add(purchase.Mul(DepreciationRate).Mul(age))
		}
	}
	val.NetValue = decimal.Max(decimal.Zero, val.PurchaseValue.Sub(val.Depreciation))
	return val, nil
}

// AgeInYears is (asOf - from) expressed in years of 365.25 days.
func AgeInYears(from, asOf time.Time) decimal.Decimal {
	days := decimal.NewFromInt(int64(asOf.Sub(from))).Div(decimal.NewFromInt(int64(24 * time.Hour)))
	return days.Div(daysPerYear)
}

// FeeStatus names the payment state of a student.
func FeeStatus(st school.Student) string {
	switch {
	case !st.Pending().IsPositive():
		return FeePaid
	case st.FeesPaid.IsPositive():
		return FeePartiallyPaid
	default:
		return FeeUnpaid
	}
}

// ParsePeriod parses an inclusive yyyy-mm-dd date range.
func ParsePeriod(start, end string) (time.Time, time.Time, error) {
	from, err := core.ParseDate("from", start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := core.ParseDate("to", end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, core.NewValidationError(
			errors.New("invalid period"), core.FieldError{Field: "to", Error: "must not be before from"},
		)
	}
	return from, to, nil
}

func matchesClass(class, filter string) bool {
	return filter == "" || filter == school.AllClasses || class == filter
}

func invalidDate(entity, id string) error {
	return core.NewValidationError(
		errors.Errorf("%s %s has no valid date", entity, id),
		core.FieldError{Field: id, Error: "invalid date"},
	)
}
