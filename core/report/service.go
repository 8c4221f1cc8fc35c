package report

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/aggregate"
	"github.com/trezcool/vidyaverse/core/balancesheet"
	"github.com/trezcool/vidyaverse/core/school"
)

var errUnknownKind = errors.New("unknown report kind")

// Filter holds the parameters of every report kind; each kind only reads the fields it needs.
type Filter struct {
	Class   string `json:"class" query:"class"`
	Section string `json:"section" query:"section"`
	Year    int    `json:"year" query:"year" validate:"omitempty,min=1900,max=9999"`
	Month   int    `json:"month" query:"month" validate:"omitempty,min=1,max=12"`
	From    string `json:"from" query:"from"`
	To      string `json:"to" query:"to"`
	Mode    string `json:"mode" query:"mode" validate:"omitempty,oneof=yearly monthly"`

	// Orientation overrides the page orientation of the report kind when set.
	Orientation string `json:"orientation" query:"orientation" validate:"omitempty,oneof=portrait landscape"`
}

func (f *Filter) Clean() {
	f.Class = core.CleanString(f.Class)
	f.Section = core.CleanString(f.Section)
	f.From = core.CleanString(f.From)
	f.To = core.CleanString(f.To)
	f.Mode = core.CleanString(f.Mode, true /* lower */)
	f.Orientation = core.CleanString(f.Orientation, true /* lower */)
}

func (f *Filter) Validate(validate *validator.Validate) error {
	f.Clean()
	return validate.Struct(f)
}

// checkOrientation accepts "" (the report's own orientation), portrait and landscape.
func checkOrientation(orientation string) error {
	if orientation != "" && orientation != Portrait && orientation != Landscape {
		return core.NewValidationError(nil, core.FieldError{Field: "orientation", Error: "must be one of portrait, landscape"})
	}
	return nil
}

func requiredField(field string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: "this field is required"})
}

func (f Filter) month() (int, time.Month, error) {
	if f.Year == 0 {
		return 0, 0, requiredField("year")
	}
	if f.Month == 0 {
		return 0, 0, requiredField("month")
	}
	return f.Year, time.Month(f.Month), nil
}

// period resolves [From, To], falling back to the month of Year/Month.
func (f Filter) period() (time.Time, time.Time, error) {
	if f.From != "" || f.To != "" {
		return aggregate.ParsePeriod(f.From, f.To)
	}
	y, m, err := f.month()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := core.MonthRange(y, m)
	return start, end, nil
}

func IsKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Service loads a fresh snapshot of the ledgers for every report it builds.
type Service struct {
	repo    school.Repository
	nowFunc func() time.Time
}

func NewService(repo school.Repository) *Service {
	return &Service{repo: repo, nowFunc: time.Now}
}

// Build builds the report of kind for f.
func (svc *Service) Build(ctx context.Context, kind string, f Filter) (Table, error) {
	f.Clean()
	if !IsKind(kind) {
		return Table{}, core.NewValidationError(errUnknownKind, core.FieldError{Field: "kind", Error: errUnknownKind.Error()})
	}
	if err := checkOrientation(f.Orientation); err != nil {
		return Table{}, err
	}

	var from, to time.Time
	if kind == KindAttendance || kind == KindMuster {
		y, m, err := f.month()
		if err != nil {
			return Table{}, err
		}
		from, to = core.MonthRange(y, m)
	}
	if kind == KindAttendance || kind == KindClassRegister {
		if f.Class == "" || f.Class == school.AllClasses {
			return Table{}, requiredField("class")
		}
	}

	snap, err := school.LoadSnapshot(ctx, svc.repo, from, to)
	if err != nil {
		return Table{}, err
	}

	var t Table
	switch kind {
	case KindDueFees:
		t = DueFees(snap.Students, f.Class)
	case KindFeesStatus:
		t = FeesStatus(snap.Students, f.Class)
	case KindAttendance:
		t = AttendanceGrid(snap.Students, snap.Attendance, f.Class, f.Section, f.Year, time.Month(f.Month))
	case KindMuster:
		t = MusterGrid(snap.Teachers, snap.Attendance, f.Year, time.Month(f.Month))
	case KindExpenses:
		start, end, err := f.period()
		if err != nil {
			return Table{}, err
		}
		if t, err = Expenses(snap.Expenses, start, end); err != nil {
			return Table{}, err
		}
	case KindDeadStock:
		t = DeadStock(snap.DeadStock)
	case KindBalanceSheet:
		period, err := balancesheet.NewPeriod(f.Mode, f.Year, f.Month)
		if err != nil {
			return Table{}, err
		}
		sheet, err := balancesheet.Calculate(period, snap.Payments, snap.Expenses, snap.DeadStock)
		if err != nil {
			return Table{}, err
		}
		t = BalanceSheet(sheet)
	case KindClassRegister:
		t = ClassRegister(snap.Students, f.Class, f.Section)
	}
	t.Subtitle = snap.Profile.Name
	if f.Orientation != "" {
		t.Orientation = f.Orientation
	}
	return t, nil
}

// BalanceSheet computes the balance sheet of period from a fresh snapshot.
func (svc *Service) BalanceSheet(ctx context.Context, period balancesheet.Period) (balancesheet.Sheet, error) {
	snap, err := school.LoadSnapshot(ctx, svc.repo, time.Time{}, time.Time{})
	if err != nil {
		return balancesheet.Sheet{}, err
	}
	return balancesheet.Calculate(period, snap.Payments, snap.Expenses, snap.DeadStock)
}

// Dashboard summarizes the ledgers for today.
func (svc *Service) Dashboard(ctx context.Context) (aggregate.DashboardSummary, error) {
	today := core.Day(svc.nowFunc())
	snap, err := school.LoadSnapshot(ctx, svc.repo, today, today)
	if err != nil {
		return aggregate.DashboardSummary{}, err
	}
	return aggregate.Dashboard(snap, today), nil
}
