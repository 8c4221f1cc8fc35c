package school

import (
	"context"
	"errors"
	"time"
)

var (
	// errors
	ErrStudentNotFound = errors.New("student not found")
	ErrClassNotFound   = errors.New("class not found")
)

type (
	// Repository is the ledger store. every method may fail with a *core.UpstreamUnavailable
	// when the store cannot be reached; lists are never returned partially.
	Repository interface {
		ListStudents(ctx context.Context) ([]Student, error)
		ListTeachers(ctx context.Context) ([]Teacher, error)
		ListClasses(ctx context.Context) ([]SchoolClass, error)
		ListExpenses(ctx context.Context) ([]Expense, error)
		ListDeadStock(ctx context.Context) ([]DeadStockItem, error)
		ListFeePayments(ctx context.Context) ([]FeePayment, error)
		// ListAttendance returns the records dated in [from, to].
		ListAttendance(ctx context.Context, from, to time.Time) ([]AttendanceRecord, error)

		GetStudent(ctx context.Context, id string) (Student, error)
		GetSchoolProfile(ctx context.Context) (SchoolProfile, error)
		SaveSchoolProfile(ctx context.Context, profile SchoolProfile) error

		CreateStudent(ctx context.Context, student Student) (Student, error)
		CreateTeacher(ctx context.Context, teacher Teacher) (Teacher, error)
		CreateClass(ctx context.Context, class SchoolClass) (SchoolClass, error)
		CreateExpense(ctx context.Context, expense Expense) (Expense, error)
		CreateDeadStockItem(ctx context.Context, item DeadStockItem) (DeadStockItem, error)

		// UpdateStudent fails with a *core.ConflictError when student.Version is stale.
		UpdateStudent(ctx context.Context, student Student) (Student, error)
		// AppendFeePayment fails with a *core.ConflictError when the receipt number is taken.
		AppendFeePayment(ctx context.Context, payment FeePayment) (FeePayment, error)
		// UpsertAttendance replaces any record of the same person on the same date.
		UpsertAttendance(ctx context.Context, record AttendanceRecord) error

		// DeleteAll wipes every collection (master reset).
		DeleteAll(ctx context.Context) error
	}

	// Store is a Repository able to run several writes as one unit.
	Store interface {
		Repository

		// WithinTx runs fn against a transactional Repository; every write of fn is discarded when fn fails.
		WithinTx(ctx context.Context, fn func(repo Repository) error) error
	}
)
