package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/vidyaverse/core/aggregate"
	"github.com/trezcool/vidyaverse/core/balancesheet"
	"github.com/trezcool/vidyaverse/core/school"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func student(id, class, section, roll, total, paid string, status ...string) school.Student {
	st := school.Student{
		ID:          id,
		AdmissionNo: "GR" + id,
		Name:        "Student " + id,
		Class:       class,
		Section:     section,
		RollNo:      roll,
		TotalFees:   dec(total),
		FeesPaid:    dec(paid),
	}
	if len(status) > 0 {
		st.Status = status[0]
	}
	return st
}

func TestDueFees(t *testing.T) {
	students := []school.Student{
		student("1", "5", "A", "1", "1000", "400"),
		student("2", "5", "A", "2", "1000", "1000"),
		student("3", "6", "", "1", "500", "0", school.StatusLCIssued),
		student("4", "5", "B", "3", "800", "900"), // overpaid
	}

	tests := []struct {
		name      string
		class     string
		wantTitle string
		wantIDs   []string
		wantTotal string
	}{
		{name: "all classes", class: school.AllClasses, wantTitle: "Due Fees Report - All Classes", wantIDs: []string{"GR1", "GR3"}, wantTotal: "1100"},
		{name: "empty filter", class: "", wantTitle: "Due Fees Report - All Classes", wantIDs: []string{"GR1", "GR3"}, wantTotal: "1100"},
		{name: "one class", class: "5", wantTitle: "Due Fees Report - Class 5", wantIDs: []string{"GR1"}, wantTotal: "600"},
		{name: "unknown class", class: "9", wantTitle: "Due Fees Report - Class 9", wantIDs: nil, wantTotal: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueFees(students, tt.class)
			if got.Title != tt.wantTitle {
				t.Errorf("DueFees() title = %q, want %q", got.Title, tt.wantTitle)
			}
			var ids []string
			for _, row := range got.Rows {
				ids = append(ids, row[0].String())
			}
			assert.Equal(t, tt.wantIDs, ids)
			if got.Footer[0].String() != "Total Pending" {
				t.Errorf("DueFees() footer label = %q, want %q", got.Footer[0].String(), "Total Pending")
			}
			if total := got.Footer[5].Decimal(); !total.Equal(dec(tt.wantTotal)) {
				t.Errorf("DueFees() total = %v, want %v", total, tt.wantTotal)
			}
		})
	}
}

func TestFeesStatus(t *testing.T) {
	students := []school.Student{
		student("1", "10", "A", "2", "1000", "1000"),
		student("2", "2", "B", "1", "1000", "0"),
		student("3", "2", "A", "x", "500", "200", school.StatusLeft),
		student("4", "2", "A", "1", "800", "900"), // overpaid
	}
	got := FeesStatus(students, "")

	wantOrder := []string{"GR4", "GR3", "GR2", "GR1"}
	var order []string
	for _, row := range got.Rows {
		order = append(order, row[0].String())
	}
	assert.Equal(t, wantOrder, order)

	wantStatus := map[string]string{"GR1": "Paid", "GR2": "Unpaid", "GR3": "Partially Paid", "GR4": "Paid"}
	statusCol := got.ColumnIndex("Status")
	pendingCol := got.ColumnIndex("Pending")
	for _, row := range got.Rows {
		if st := row[statusCol].String(); st != wantStatus[row[0].String()] {
			t.Errorf("FeesStatus() status of %s = %q, want %q", row[0].String(), st, wantStatus[row[0].String()])
		}
		if row[pendingCol].Decimal().IsNegative() {
			t.Errorf("FeesStatus() pending of %s is negative", row[0].String())
		}
	}

	assert.True(t, got.Footer[3].Decimal().Equal(dec("3300")), "total")
	assert.True(t, got.Footer[4].Decimal().Equal(dec("2100")), "paid")
	assert.True(t, got.Footer[5].Decimal().Equal(dec("1300")), "pending")
}

func TestAttendanceGrid(t *testing.T) {
	students := []school.Student{
		student("c", "5", "A", "3", "0", "0"),
		student("a", "5", "A", "1", "0", "0"),
		student("b", "5", "A", "2", "0", "0"),
		student("d", "5", "B", "1", "0", "0"),
		student("e", "5", "A", "4", "0", "0", school.StatusLeft),
	}
	label := school.ClassLabel("5", "A")
	records := []school.AttendanceRecord{
		{PersonID: "a", PersonKind: school.KindStudent, Date: date(2024, time.April, 5), Status: school.Present, ClassLabel: label},
		{PersonID: "a", PersonKind: school.KindStudent, Date: date(2024, time.April, 10), Status: school.Absent, ClassLabel: label},
		{PersonID: "b", PersonKind: school.KindStudent, Date: date(2024, time.April, 10), Status: school.Present, ClassLabel: label},
		// last record of the day wins
		{PersonID: "b", PersonKind: school.KindStudent, Date: date(2024, time.April, 10), Status: school.Absent, ClassLabel: label},
		// other month
		{PersonID: "c", PersonKind: school.KindStudent, Date: date(2024, time.March, 31), Status: school.Present},
		// other class
		{PersonID: "c", PersonKind: school.KindStudent, Date: date(2024, time.April, 2), Status: school.Present, ClassLabel: "6 'A'"},
	}

	got := AttendanceGrid(students, records, "5", "A", 2024, time.April)

	if got.Title != "Attendance Report - 5 'A' - April 2024" {
		t.Errorf("AttendanceGrid() title = %q", got.Title)
	}
	if len(got.Columns) != 2+30+2 {
		t.Fatalf("AttendanceGrid() columns = %d, want %d", len(got.Columns), 34)
	}
	if len(got.Rows) != 3 {
		t.Fatalf("AttendanceGrid() rows = %d, want %d", len(got.Rows), 3)
	}

	tests := []struct {
		roll       string
		wantDay5   string
		wantDay10  string
		wantTotals [2]int
	}{
		{roll: "1", wantDay5: MarkPresent, wantDay10: MarkAbsent, wantTotals: [2]int{1, 1}},
		{roll: "2", wantDay5: MarkNone, wantDay10: MarkAbsent, wantTotals: [2]int{0, 1}},
		{roll: "3", wantDay5: MarkNone, wantDay10: MarkNone, wantTotals: [2]int{0, 0}},
	}
	for i, tt := range tests {
		t.Run("roll "+tt.roll, func(t *testing.T) {
			row := got.Rows[i]
			if row[0].String() != tt.roll {
				t.Fatalf("roll = %q, want %q", row[0].String(), tt.roll)
			}
			if m := row[got.ColumnIndex("5")].String(); m != tt.wantDay5 {
				t.Errorf("day 5 = %q, want %q", m, tt.wantDay5)
			}
			if m := row[got.ColumnIndex("10")].String(); m != tt.wantDay10 {
				t.Errorf("day 10 = %q, want %q", m, tt.wantDay10)
			}
			totals := [2]int{row[got.ColumnIndex("Total P")].Int(), row[got.ColumnIndex("Total A")].Int()}
			if totals != tt.wantTotals {
				t.Errorf("totals = %v, want %v", totals, tt.wantTotals)
			}
		})
	}
}

func TestAttendanceGrid_leapFebruary(t *testing.T) {
	got := AttendanceGrid(nil, nil, "1", "", 2024, time.February)
	if n := len(got.Columns) - 4; n != 29 {
		t.Errorf("AttendanceGrid() day columns = %d, want %d", n, 29)
	}
	if len(got.Rows) != 0 {
		t.Errorf("AttendanceGrid() rows = %d, want 0", len(got.Rows))
	}
}

func TestMusterGrid(t *testing.T) {
	teachers := []school.Teacher{
		{ID: "t1", Name: "Meena", Subject: "Maths"},
		{ID: "t2", Name: "Ravi", Subject: "Science", Status: school.TeacherInactive},
		{ID: "t3", Name: "Asha", Subject: "English", Status: school.TeacherActive},
	}
	records := []school.AttendanceRecord{
		{PersonID: "t1", PersonKind: school.KindTeacher, Date: date(2023, time.June, 1), Status: school.Present},
		{PersonID: "t3", PersonKind: school.KindTeacher, Date: date(2023, time.June, 30), Status: school.Absent},
		{PersonID: "t1", PersonKind: school.KindStudent, Date: date(2023, time.June, 2), Status: school.Present}, // not a teacher record
	}
	got := MusterGrid(teachers, records, 2023, time.June)

	assert.Equal(t, "Teacher Muster Roll - June 2023", got.Title)
	assert.Len(t, got.Rows, 2)
	assert.Equal(t, "Meena", got.Rows[0][0].String())
	assert.Equal(t, MarkPresent, got.Rows[0][got.ColumnIndex("1")].String())
	assert.Equal(t, MarkNone, got.Rows[0][got.ColumnIndex("2")].String())
	assert.Equal(t, MarkAbsent, got.Rows[1][got.ColumnIndex("30")].String())
	assert.Equal(t, 1, got.Rows[1][got.ColumnIndex("Total A")].Int())
}

func TestExpenses(t *testing.T) {
	expenses := []school.Expense{
		{ID: "1", Date: date(2024, time.March, 20), Category: "Electricity", Amount: dec("1500")},
		{ID: "2", Date: date(2024, time.March, 1), Category: "Stationery", Amount: dec("250.50")},
		{ID: "3", Date: date(2024, time.April, 1), Category: "Repairs", Amount: dec("9000")},
	}

	got, err := Expenses(expenses, date(2024, time.March, 1), date(2024, time.March, 31))
	if err != nil {
		t.Fatalf("Expenses() error = %v", err)
	}
	assert.Equal(t, "Expense Report - 01-03-2024 to 31-03-2024", got.Title)
	assert.Len(t, got.Rows, 2)
	assert.Equal(t, "Stationery", got.Rows[0][1].String())
	if total := got.Footer[3].Decimal(); !total.Equal(dec("1750.50")) {
		t.Errorf("Expenses() total = %v, want %v", total, "1750.50")
	}

	if _, err := Expenses(expenses, time.Time{}, date(2024, time.March, 31)); err == nil {
		t.Error("Expenses() with a zero start should fail")
	}
}

func TestDeadStock(t *testing.T) {
	items := []school.DeadStockItem{
		{Name: "Benches", Quantity: 10, UnitPrice: dec("1200"), PurchaseDate: date(2022, time.June, 1)},
		{Name: "Projector", Quantity: 1, UnitPrice: dec("30000"), PurchaseDate: date(2021, time.January, 15)},
	}
	got := DeadStock(items)

	assert.Equal(t, "Projector", got.Rows[0][0].String())
	assert.True(t, got.Rows[1][5].Decimal().Equal(dec("12000")))
	assert.True(t, got.Footer[5].Decimal().Equal(dec("42000")))
	assert.Equal(t, "Benches", items[0].Name, "input must not be reordered")
}

func TestBalanceSheet(t *testing.T) {
	sheet := balancesheet.Sheet{
		Period:        balancesheet.YearPeriod(2024),
		FeesCollected: dec("100000"),
		Expenses:      dec("20000"),
		Assets:        aggregate.AssetValue{PurchaseValue: dec("5000"), Depreciation: dec("500"), NetValue: dec("4500")},
		NetResult:     dec("80000"),
		Label:         balancesheet.NetProfit,
		Magnitude:     dec("80000"),
	}
	got := BalanceSheet(sheet)

	assert.Equal(t, "Balance Sheet - Year: 2024", got.Title)
	assert.Len(t, got.Rows, 5)
	assert.Equal(t, balancesheet.NetProfit, got.Footer[0].String())
	assert.True(t, got.Footer[1].Decimal().Equal(dec("80000")))
}

func TestClassRegister(t *testing.T) {
	students := []school.Student{
		student("1", "7", "A", "", "0", "0"),
		student("2", "7", "A", "2", "0", "0"),
		student("3", "7", "A", "10", "0", "0"),
		student("4", "7", "B", "1", "0", "0"),
	}
	got := ClassRegister(students, "7", "A")

	var rolls []string
	for _, row := range got.Rows {
		rolls = append(rolls, row[0].String())
	}
	assert.Equal(t, []string{"2", "10", "N/A"}, rolls)
	assert.Equal(t, "Class Register - 7 'A'", got.Title)
}

func TestLessByRoll(t *testing.T) {
	tests := []struct {
		name string
		a, b school.Student
		want bool
	}{
		{name: "numeric", a: school.Student{RollNo: "2"}, b: school.Student{RollNo: "10"}, want: true},
		{name: "numeric before text", a: school.Student{RollNo: "99"}, b: school.Student{RollNo: "A1"}, want: true},
		{name: "text after numeric", a: school.Student{RollNo: ""}, b: school.Student{RollNo: "1"}, want: false},
		{name: "same roll by name", a: school.Student{RollNo: "1", Name: "amit"}, b: school.Student{RollNo: "1", Name: "Bela"}, want: true},
		{name: "text by name", a: school.Student{RollNo: "x", Name: "Zoya"}, b: school.Student{RollNo: "y", Name: "anu"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lessByRoll(tt.a, tt.b); got != tt.want {
				t.Errorf("lessByRoll() = %v, want %v", got, tt.want)
			}
		})
	}
}
