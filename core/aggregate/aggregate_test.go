package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func student(id, class string, total, paid string, status ...string) school.Student {
	st := school.Student{ID: id, Name: "Student " + id, Class: class, TotalFees: dec(total), FeesPaid: dec(paid)}
	if len(status) > 0 {
		st.Status = status[0]
	}
	return st
}

func TestFeesSummaryByClass(t *testing.T) {
	students := []school.Student{
		student("1", "5", "1000", "400"),
		student("2", "5", "1000", "1000", school.StatusActive),
		student("3", "6", "500", "600"), // overpaid
		student("4", "6", "800", "0", school.StatusLCIssued),
	}
	got := FeesSummaryByClass(students)

	tests := []struct {
		class         string
		wantCollected string
		wantPending   string
	}{
		{class: "5", wantCollected: "1400", wantPending: "600"},
		{class: "6", wantCollected: "600", wantPending: "-100"},
	}
	if len(got) != len(tests) {
		t.Fatalf("FeesSummaryByClass() len = %d, want %d", len(got), len(tests))
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			cf := got[tt.class]
			if !cf.Collected.Equal(dec(tt.wantCollected)) {
				t.Errorf("collected = %v, want %v", cf.Collected, tt.wantCollected)
			}
			if !cf.Pending.Equal(dec(tt.wantPending)) {
				t.Errorf("pending = %v, want %v", cf.Pending, tt.wantPending)
			}
		})
	}

	// totals equal the sum over the active students: nobody dropped or double counted
	var collected, pending decimal.Decimal
	for _, st := range students {
		if st.IsActive() {
			collected = collected.Add(st.FeesPaid)
			pending = pending.Add(st.Pending())
		}
	}
	var gotCollected, gotPending decimal.Decimal
	for _, cf := range got {
		gotCollected = gotCollected.Add(cf.Collected)
		gotPending = gotPending.Add(cf.Pending)
	}
	if !gotCollected.Equal(collected) || !gotPending.Equal(pending) {
		t.Errorf("totals = (%v, %v), want (%v, %v)", gotCollected, gotPending, collected, pending)
	}
}

func TestAttendanceSummary(t *testing.T) {
	day := date(2024, time.March, 5)
	records := []school.AttendanceRecord{
		{PersonID: "a", Date: day, Status: school.Present},
		{PersonID: "b", Date: day.Add(10 * time.Hour), Status: school.Absent},
		// inactive
		{PersonID: "c", Date: day, Status: school.Present},
		// other day
		{PersonID: "a", Date: date(2024, time.March, 6), Status: school.Absent},
		// duplicate
		{PersonID: "b", Date: day, Status: school.Absent},
	}
	got := AttendanceSummary(records, []string{"a", "b"}, day)
	want := AttendanceCounts{Present: 1, Absent: 2}
	if got != want {
		t.Errorf("AttendanceSummary() = %+v, want %+v", got, want)
	}
}

func TestDueStudents(t *testing.T) {
	students := []school.Student{
		student("1", "5", "1000", "400"),
		student("2", "5", "1000", "1000"),
		student("3", "6", "500", "100", school.StatusLCIssued),
		student("4", "6", "500", "600"),
	}

	tests := []struct {
		name    string
		filter  string
		wantIDs []string
	}{
		{name: "wildcard", filter: school.AllClasses, wantIDs: []string{"1", "3"}},
		{name: "empty filter", filter: "", wantIDs: []string{"1", "3"}},
		{name: "one class", filter: "6", wantIDs: []string{"3"}},
		{name: "unknown class", filter: "9", wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueStudents(students, tt.filter)
			ids := make([]string, 0, len(got))
			for _, st := range got {
				ids = append(ids, st.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)

			// idempotent
			again := DueStudents(students, tt.filter)
			assert.Equal(t, got, again)
		})
	}
}

func TestExpensesInPeriod(t *testing.T) {
	expenses := []school.Expense{
		{ID: "3", Date: date(2024, time.March, 31), Amount: dec("30")},
		{ID: "1", Date: date(2024, time.March, 1), Amount: dec("10")},
		{ID: "0", Date: date(2024, time.February, 29), Amount: dec("5")},
		{ID: "2", Date: date(2024, time.March, 15), Amount: dec("20")},
		{ID: "4", Date: date(2024, time.April, 1), Amount: dec("40")},
	}
	got, err := ExpensesInPeriod(expenses, date(2024, time.March, 1), date(2024, time.March, 31))
	if err != nil {
		t.Fatalf("ExpensesInPeriod() unexpected error = %v", err)
	}
	var ids []string
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	_, err = ExpensesInPeriod([]school.Expense{{ID: "x"}}, date(2024, time.March, 1), date(2024, time.March, 31))
	if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("ExpensesInPeriod() error = %v, want *core.ValidationError", err)
	}
}

func TestFeesCollected(t *testing.T) {
	payments := []school.FeePayment{
		{ID: "p0", Amount: dec("5"), Date: date(2024, time.February, 29)},
		{ID: "p1", Amount: dec("10.50"), Date: date(2024, time.March, 1)},
		{ID: "p2", Amount: dec("20"), Date: date(2024, time.March, 31).Add(18 * time.Hour)},
		{ID: "p3", Amount: dec("40"), Date: date(2024, time.April, 1)},
	}
	got, err := FeesCollected(payments, date(2024, time.March, 1), date(2024, time.March, 31))
	if err != nil {
		t.Fatalf("FeesCollected() unexpected error = %v", err)
	}
	assert.Equal(t, "30.5", got.String())

	_, err = FeesCollected(append(payments, school.FeePayment{ID: "x", Amount: dec("1")}), date(2024, time.March, 1), date(2024, time.March, 31))
	if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("FeesCollected() error = %v, want *core.ValidationError", err)
	}
}

func TestDepreciatedAssetValue(t *testing.T) {
	asOf := date(2024, time.June, 30)
	yearAgo := asOf.Add(-8766 * time.Hour) // 365.25 days

	tests := []struct {
		name    string
		items   []school.DeadStockItem
		want    AssetValue
		wantErr bool
	}{
		{
			name:  "one year old",
			items: []school.DeadStockItem{{ID: "1", Quantity: 2, UnitPrice: dec("1000"), PurchaseDate: yearAgo}},
			want:  AssetValue{PurchaseValue: dec("2000"), Depreciation: dec("200"), NetValue: dec("1800")},
		},
		{
			name:  "bought today",
			items: []school.DeadStockItem{{ID: "1", Quantity: 1, UnitPrice: dec("500"), PurchaseDate: asOf}},
			want:  AssetValue{PurchaseValue: dec("500"), Depreciation: dec("0"), NetValue: dec("500")},
		},
		{
			name:  "bought after asOf",
			items: []school.DeadStockItem{{ID: "1", Quantity: 1, UnitPrice: dec("500"), PurchaseDate: asOf.AddDate(0, 0, 1)}},
			want:  AssetValue{PurchaseValue: dec("0"), Depreciation: dec("0"), NetValue: dec("0")},
		},
		{
			name: "older than ten years floors at zero",
			items: []school.DeadStockItem{
				{ID: "1", Quantity: 1, UnitPrice: dec("1000"), PurchaseDate: asOf.Add(-12 * 8766 * time.Hour)},
			},
			want: AssetValue{PurchaseValue: dec("1000"), Depreciation: dec("1200"), NetValue: dec("0")},
		},
		{
			name:    "missing purchase date",
			items:   []school.DeadStockItem{{ID: "1", Quantity: 1, UnitPrice: dec("1")}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DepreciatedAssetValue(tt.items, asOf)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DepreciatedAssetValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !got.PurchaseValue.Equal(tt.want.PurchaseValue) ||
				!got.Depreciation.Round(6).Equal(tt.want.Depreciation) ||
				!got.NetValue.Round(6).Equal(tt.want.NetValue) {
				t.Errorf("DepreciatedAssetValue() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDepreciatedAssetValue_monotonic(t *testing.T) {
	items := []school.DeadStockItem{
		{ID: "1", Quantity: 3, UnitPrice: dec("250.50"), PurchaseDate: date(2015, time.January, 10)},
		{ID: "2", Quantity: 1, UnitPrice: dec("9999"), PurchaseDate: date(2020, time.July, 1)},
	}
	prev, _ := DepreciatedAssetValue(items, date(2021, time.January, 1))
	for asOf := date(2021, time.February, 1); asOf.Year() < 2035; asOf = asOf.AddDate(0, 3, 0) {
		got, err := DepreciatedAssetValue(items, asOf)
		if err != nil {
			t.Fatalf("DepreciatedAssetValue() unexpected error = %v", err)
		}
		if got.NetValue.GreaterThan(prev.NetValue) {
			t.Errorf("net value increased at %v: %v > %v", asOf, got.NetValue, prev.NetValue)
		}
		if got.NetValue.IsNegative() {
			t.Errorf("net value negative at %v: %v", asOf, got.NetValue)
		}
		prev = got
	}
}

func TestFeeStatus(t *testing.T) {
	tests := []struct {
		name string
		st   school.Student
		want string
	}{
		{name: "paid", st: student("1", "5", "100", "100"), want: FeePaid},
		{name: "overpaid", st: student("1", "5", "100", "150"), want: FeePaid},
		{name: "partial", st: student("1", "5", "100", "10"), want: FeePartiallyPaid},
		{name: "unpaid", st: student("1", "5", "100", "0"), want: FeeUnpaid},
		{name: "no fees", st: student("1", "5", "0", "0"), want: FeePaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FeeStatus(tt.st); got != tt.want {
				t.Errorf("FeeStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantErr    bool
	}{
		{name: "valid", start: "2024-03-01", end: "2024-03-31"},
		{name: "single day", start: "2024-03-01", end: "2024-03-01"},
		{name: "malformed start", start: "03/01/2024", end: "2024-03-31", wantErr: true},
		{name: "malformed end", start: "2024-03-01", end: "lol", wantErr: true},
		{name: "reversed", start: "2024-03-31", end: "2024-03-01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParsePeriod(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePeriod() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if _, ok := err.(*core.ValidationError); !ok {
					t.Errorf("ParsePeriod() error type = %T, want *core.ValidationError", err)
				}
			}
		})
	}
}

func TestDashboard(t *testing.T) {
	today := date(2024, time.March, 5)
	snap := school.Snapshot{
		Students: []school.Student{
			student("1", "5", "1000", "400"),
			student("2", "5", "1000", "1000"),
			student("3", "6", "500", "0", school.StatusLCIssued),
		},
		Teachers: []school.Teacher{
			{ID: "t1", Name: "T1"},
			{ID: "t2", Name: "T2", Status: school.TeacherInactive},
		},
		Attendance: []school.AttendanceRecord{
			{PersonID: "1", Date: today, Status: school.Present},
			{PersonID: "2", Date: today, Status: school.Absent},
			{PersonID: "3", Date: today, Status: school.Present},
			{PersonID: "t1", Date: today, Status: school.Present},
		},
	}
	got := Dashboard(snap, today)

	if got.TotalStudents != 2 || got.TotalTeachers != 1 {
		t.Errorf("Dashboard() counts = (%d, %d), want (2, 1)", got.TotalStudents, got.TotalTeachers)
	}
	if !got.FeesCollected.Equal(dec("1400")) || !got.FeesPending.Equal(dec("1100")) {
		t.Errorf("Dashboard() fees = (%v, %v), want (1400, 1100)", got.FeesCollected, got.FeesPending)
	}
	if _, ok := got.ByClass["Class 6"]; ok {
		t.Errorf("Dashboard() ByClass has inactive-only class 6")
	}
	if cf := got.ByClass["Class 5"]; !cf.Pending.Equal(dec("600")) {
		t.Errorf("Dashboard() Class 5 pending = %v, want 600", cf.Pending)
	}
	if want := (AttendanceCounts{Present: 1, Absent: 1}); got.Attendance != want {
		t.Errorf("Dashboard() attendance = %+v, want %+v", got.Attendance, want)
	}
	if want := (AttendanceCounts{Present: 1}); got.TeacherAttendance != want {
		t.Errorf("Dashboard() teacher attendance = %+v, want %+v", got.TeacherAttendance, want)
	}
}
