package school

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Snapshot is a read-only copy of the ledgers, passed explicitly to aggregations and report builders.
type Snapshot struct {
	Profile    SchoolProfile
	Students   []Student
	Teachers   []Teacher
	Classes    []SchoolClass
	Expenses   []Expense
	DeadStock  []DeadStockItem
	Payments   []FeePayment
	Attendance []AttendanceRecord
}

// LoadSnapshot reads every ledger from repo. attendance is only loaded when [from, to] is set.
// it fails as a whole when any read fails: callers never aggregate partial data.
func LoadSnapshot(ctx context.Context, repo Repository, from, to time.Time) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Profile, err = repo.GetSchoolProfile(ctx); err != nil {
		return Snapshot{}, errors.Wrap(err, "loading school profile")
	}
	if snap.Students, err = repo.ListStudents(ctx); err != nil {
		return Snapshot{}, errors.Wrap(err, "loading students")
	}
	if snap.Teachers, err = repo.ListTeachers(ctx); err != nil {
		return Snapshot{}, errors.Wrap(err, "loading teachers")
	}
	if snap.Classes, err = repo.ListClasses(ctx); err != nil {
		return Snapshot{}, errors.Wrap(err, "loading classes")
	}
	if snap.Expenses, err = repo.ListExpenses(ctx); err != nil {
		return Snapshot{}, errors.Wrap(err, "loading expenses")
	}
	if snap.DeadStock, err = repo.ListDeadStock(ctx); err != nil {
		return Snapshot{}, errors.Wrap(err, "loading dead stock")
	}
	if snap.Payments, err = repo.ListFeePayments(ctx); err != nil {
		return Snapshot{}, errors.Wrap(err, "loading fee payments")
	}
	if !from.IsZero() && !to.IsZero() {
		if snap.Attendance, err = repo.ListAttendance(ctx, from, to); err != nil {
			return Snapshot{}, errors.Wrap(err, "loading attendance")
		}
	}
	return snap, nil
}

// StudentsOf returns the active students of a class (and section, when set), in ledger order.
func (s Snapshot) StudentsOf(class, section string) []Student {
	var students []Student
	for _, st := range s.Students {
		if !st.IsActive() || st.Class != class {
			continue
		}
		if section != "" && st.Section != section {
			continue
		}
		students = append(students, st)
	}
	return students
}

// ActiveTeachers returns the active teachers, in ledger order.
func (s Snapshot) ActiveTeachers() []Teacher {
	var teachers []Teacher
	for _, t := range s.Teachers {
		if t.IsActive() {
			teachers = append(teachers, t)
		}
	}
	return teachers
}
