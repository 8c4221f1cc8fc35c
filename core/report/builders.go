package report

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/aggregate"
	"github.com/trezcool/vidyaverse/core/balancesheet"
	"github.com/trezcool/vidyaverse/core/school"
)

// DueFees lists the students with pending fees, in ledger order, with the total pending in the footer.
func DueFees(students []school.Student, classFilter string) Table {
	t := Table{
		Title:       "Due Fees Report - " + classTitle(classFilter),
		Orientation: Portrait,
		Columns: []Column{
			col("Adm. No", Text), col("Student Name", Text), col("Class", Text),
			col("Total Fees", Amount), col("Fees Paid", Amount), col("Pending", Amount),
		},
		Rows: make([][]Cell, 0),
	}

	var total decimal.Decimal
	for _, st := range aggregate.DueStudents(students, classFilter) {
		pending := st.Pending()
		total = total.Add(pending)
		t.Rows = append(t.Rows, []Cell{
			TextCell(st.AdmissionNo), TextCell(st.Name), TextCell(st.ClassLabel()),
			AmountCell(st.TotalFees), AmountCell(st.FeesPaid), AmountCell(pending),
		})
	}

	t.Footer = emptyCells(len(t.Columns))
	t.Footer[0] = TextCell("Total Pending")
	t.Footer[5] = AmountCell(total)
	return t
}

// FeesStatus lists every student (any status) sorted by class, section and roll.
// pending is shown clamped at zero, so overpaid students do not lower the footer total.
func FeesStatus(students []school.Student, classFilter string) Table {
	t := Table{
		Title:       "Fees Status Report - " + classTitle(classFilter),
		Orientation: Portrait,
		Columns: []Column{
			col("GR No", Text), col("Name", Text), col("Class", Text),
			col("Total", Amount), col("Paid", Amount), col("Pending", Amount), col("Status", Text),
		},
		Rows: make([][]Cell, 0),
	}

	var total, paid, pending decimal.Decimal
	for _, st := range sortByClassAndRoll(students) {
		if classFilter != "" && classFilter != school.AllClasses && st.Class != classFilter {
			continue
		}
		shown := decimal.Max(decimal.Zero, st.Pending())
		total = total.Add(st.TotalFees)
		paid = paid.Add(st.FeesPaid)
		pending = pending.Add(shown)
		t.Rows = append(t.Rows, []Cell{
			TextCell(st.AdmissionNo), TextCell(st.Name), TextCell(st.ClassLabel()),
			AmountCell(st.TotalFees), AmountCell(st.FeesPaid), AmountCell(shown),
			TextCell(aggregate.FeeStatus(st)),
		})
	}

	t.Footer = emptyCells(len(t.Columns))
	t.Footer[0] = TextCell("Grand Total")
	t.Footer[3] = AmountCell(total)
	t.Footer[4] = AmountCell(paid)
	t.Footer[5] = AmountCell(pending)
	return t
}

type gridRow struct {
	personID string
	fixed    []Cell
}

// attendanceGrid builds one row per person and one column per day of the month, followed by the totals.
// records not matching keep (e.g. another class) are ignored; the last record of a person and day wins.
func attendanceGrid(title string, fixedCols []Column, rows []gridRow, records []school.AttendanceRecord, year int, month time.Month, keep func(school.AttendanceRecord) bool) Table {
	days := core.DaysInMonth(year, month)

	t := Table{
		Title:       title,
		Orientation: Landscape,
		Columns:     append([]Column(nil), fixedCols...),
		Rows:        make([][]Cell, 0, len(rows)),
	}
	for d := 1; d <= days; d++ {
		t.Columns = append(t.Columns, col(strconv.Itoa(d), Mark))
	}
	t.Columns = append(t.Columns, col("Total P", Int), col("Total A", Int))

	// personID -> day -> status
	marks := make(map[string]map[int]string, len(rows))
	for _, rec := range records {
		if y, m, _ := rec.Date.Date(); y != year || m != month || !keep(rec) {
			continue
		}
		if marks[rec.PersonID] == nil {
			marks[rec.PersonID] = make(map[int]string)
		}
		marks[rec.PersonID][rec.Date.Day()] = rec.Status
	}

	for _, r := range rows {
		row := append(make([]Cell, 0, len(t.Columns)), r.fixed...)
		var present, absent int
		for d := 1; d <= days; d++ {
			switch marks[r.personID][d] {
			case school.Present:
				present++
				row = append(row, MarkCell(MarkPresent))
			case school.Absent:
				absent++
				row = append(row, MarkCell(MarkAbsent))
			default:
				row = append(row, MarkCell(MarkNone))
			}
		}
		row = append(row, IntCell(present), IntCell(absent))
		t.Rows = append(t.Rows, row)
	}
	return t
}

// AttendanceGrid is the monthly attendance register of the active students of a class section, sorted by roll.
func AttendanceGrid(students []school.Student, records []school.AttendanceRecord, class, section string, year int, month time.Month) Table {
	label := school.ClassLabel(class, section)

	var rows []gridRow
	for _, st := range sortByRoll(students) {
		if !st.IsActive() || st.Class != class || (section != "" && st.Section != section) {
			continue
		}
		rows = append(rows, gridRow{personID: st.ID, fixed: []Cell{TextCell(st.RollNo), TextCell(st.Name)}})
	}

	return attendanceGrid(
		fmt.Sprintf("Attendance Report - %s - %s %d", label, month, year),
		[]Column{col("Roll", Text), col("Name", Text)},
		rows, records, year, month,
		func(rec school.AttendanceRecord) bool {
			return rec.PersonKind != school.KindTeacher && (rec.ClassLabel == "" || rec.ClassLabel == label)
		},
	)
}

// MusterGrid is the monthly attendance register of the active teachers, in ledger order.
func MusterGrid(teachers []school.Teacher, records []school.AttendanceRecord, year int, month time.Month) Table {
	var rows []gridRow
	for _, tch := range teachers {
		if !tch.IsActive() {
			continue
		}
		rows = append(rows, gridRow{personID: tch.ID, fixed: []Cell{TextCell(tch.Name), TextCell(tch.Subject)}})
	}

	return attendanceGrid(
		fmt.Sprintf("Teacher Muster Roll - %s %d", month, year),
		[]Column{col("Teacher Name", Text), col("Subject", Text)},
		rows, records, year, month,
		func(rec school.AttendanceRecord) bool { return rec.PersonKind != school.KindStudent },
	)
}

// Expenses lists the expenses dated in [start, end] ascending by date, with their sum in the footer.
func Expenses(expenses []school.Expense, start, end time.Time) (Table, error) {
	inPeriod, err := aggregate.ExpensesInPeriod(expenses, start, end)
	if err != nil {
		return Table{}, errors.Wrap(err, "filtering expenses")
	}

	t := Table{
		Title:       fmt.Sprintf("Expense Report - %s to %s", start.Format("02-01-2006"), end.Format("02-01-2006")),
		Orientation: Portrait,
		Columns: []Column{
			col("Date", Date), col("Category", Text), col("Description", Text), col("Amount", Amount),
		},
		Rows: make([][]Cell, 0, len(inPeriod)),
	}

	var total decimal.Decimal
	for _, e := range inPeriod {
		total = total.Add(e.Amount)
		t.Rows = append(t.Rows, []Cell{DateCell(e.Date), TextCell(e.Category), TextCell(e.Description), AmountCell(e.Amount)})
	}

	t.Footer = emptyCells(len(t.Columns))
	t.Footer[0] = TextCell("Total Expenses")
	t.Footer[3] = AmountCell(total)
	return t, nil
}

// DeadStock lists the dead stock ascending by purchase date, with the grand total price in the footer.
func DeadStock(items []school.DeadStockItem) Table {
	sorted := append([]school.DeadStockItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PurchaseDate.Before(sorted[j].PurchaseDate) })

	t := Table{
		Title:       "Dead Stock Report",
		Orientation: Landscape,
		Columns: []Column{
			col("Item Name", Text), col("Quantity", Int), col("Purchase Date", Date), col("Description", Text),
			col("Unit Price", Amount), col("Total Price", Amount), col("Status", Text),
		},
		Rows: make([][]Cell, 0, len(sorted)),
	}

	var total decimal.Decimal
	for _, item := range sorted {
		price := item.TotalPrice()
		total = total.Add(price)
		t.Rows = append(t.Rows, []Cell{
			TextCell(item.Name), IntCell(item.Quantity), DateCell(item.PurchaseDate), TextCell(item.Description),
			AmountCell(item.UnitPrice), AmountCell(price), TextCell(item.Status),
		})
	}

	t.Footer = emptyCells(len(t.Columns))
	t.Footer[0] = TextCell("Grand Total")
	t.Footer[5] = AmountCell(total)
	return t
}

// BalanceSheet lays out a computed sheet as particulars and amounts; the footer holds the labelled result.
func BalanceSheet(sheet balancesheet.Sheet) Table {
	return Table{
		Title:       "Balance Sheet - " + sheet.Period.Label(),
		Orientation: Portrait,
		Columns:     []Column{col("Particulars", Text), col("Amount", Amount)},
		Rows: [][]Cell{
			{TextCell("Total Fees Collected"), AmountCell(sheet.FeesCollected)},
			{TextCell("Dead Stock Purchase Value"), AmountCell(sheet.Assets.PurchaseValue)},
			{TextCell("Less: Depreciation (10% p.a.)"), AmountCell(sheet.Assets.Depreciation)},
			{TextCell("Net Asset Value"), AmountCell(sheet.Assets.NetValue)},
			{TextCell("Total Expenses"), AmountCell(sheet.Expenses)},
		},
		Footer: []Cell{TextCell(sheet.Label), AmountCell(sheet.Magnitude)},
	}
}

// ClassRegister lists the active students of a class section sorted by roll.
func ClassRegister(students []school.Student, class, section string) Table {
	t := Table{
		Title:       "Class Register - " + school.ClassLabel(class, section),
		Orientation: Landscape,
		Columns: []Column{
			col("Roll No.", Text), col("GR No.", Text), col("Name", Text),
			col("Father's Name", Text), col("Mobile", Text), col("Address", Text),
		},
		Rows: make([][]Cell, 0),
	}

	for _, st := range sortByRoll(students) {
		if !st.IsActive() || st.Class != class || (section != "" && st.Section != section) {
			continue
		}
		roll := st.RollNo
		if roll == "" {
			roll = "N/A"
		}
		t.Rows = append(t.Rows, []Cell{
			TextCell(roll), TextCell(st.AdmissionNo), TextCell(st.Name),
			TextCell(st.FatherName), TextCell(st.Mobile), TextCell(st.Address),
		})
	}
	return t
}

func classTitle(class string) string {
	if class == "" || class == school.AllClasses {
		return "All Classes"
	}
	return "Class " + class
}
