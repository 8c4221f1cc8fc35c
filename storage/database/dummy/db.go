package dummydb

import (
	"sync"

	"github.com/trezcool/vidyaverse/core/school"
)

type (
	// DB is an in-memory ledger store; rows keep their insertion order.
	DB struct {
		tx sync.Mutex // serializes WithinTx

		hooksMu     sync.RWMutex
		failHook    func(op, id string) error
		unavailable bool

		profile    *profileTable
		student    *studentTable
		teacher    *teacherTable
		class      *classTable
		expense    *expenseTable
		deadStock  *deadStockTable
		payment    *paymentTable
		attendance *attendanceTable
	}

	profileTable struct {
		sync.RWMutex
		row school.SchoolProfile
	}

	studentTable struct {
		sync.RWMutex
		rows []school.Student
	}

	teacherTable struct {
		sync.RWMutex
		rows []school.Teacher
	}

	classTable struct {
		sync.RWMutex
		rows []school.SchoolClass
	}

	expenseTable struct {
		sync.RWMutex
		rows []school.Expense
	}

	deadStockTable struct {
		sync.RWMutex
		rows []school.DeadStockItem
	}

	paymentTable struct {
		sync.RWMutex
		rows []school.FeePayment
	}

	attendanceTable struct {
		sync.RWMutex
		rows []school.AttendanceRecord
	}
)

func Open() (*DB, error) {
	db := &DB{
		profile:    &profileTable{},
		student:    &studentTable{},
		teacher:    &teacherTable{},
		class:      &classTable{},
		expense:    &expenseTable{},
		deadStock:  &deadStockTable{},
		payment:    &paymentTable{},
		attendance: &attendanceTable{},
	}
	return db, nil
}

// SetFailHook makes every write call hook(op, id) first and fail with its error, if any.
// ops: "UpdateStudent", "AppendFeePayment", "UpsertAttendance", "Create*".
func (db *DB) SetFailHook(hook func(op, id string) error) {
	db.hooksMu.Lock()
	defer db.hooksMu.Unlock()
	db.failHook = hook
}

// SetUnavailable makes every call fail with a *core.UpstreamUnavailable.
func (db *DB) SetUnavailable(unavailable bool) {
	db.hooksMu.Lock()
	defer db.hooksMu.Unlock()
	db.unavailable = unavailable
}

// dump copies every table (used to roll back a failed transaction).
type dump struct {
	profile    school.SchoolProfile
	students   []school.Student
	teachers   []school.Teacher
	classes    []school.SchoolClass
	expenses   []school.Expense
	deadStock  []school.DeadStockItem
	payments   []school.FeePayment
	attendance []school.AttendanceRecord
}

func (db *DB) dump() dump {
	db.profile.RLock()
	defer db.profile.RUnlock()
	db.student.RLock()
	defer db.student.RUnlock()
	db.teacher.RLock()
	defer db.teacher.RUnlock()
	db.class.RLock()
	defer db.class.RUnlock()
	db.expense.RLock()
	defer db.expense.RUnlock()
	db.deadStock.RLock()
	defer db.deadStock.RUnlock()
	db.payment.RLock()
	defer db.payment.RUnlock()
	db.attendance.RLock()
	defer db.attendance.RUnlock()

	return dump{
		profile:    db.profile.row,
		students:   append([]school.Student(nil), db.student.rows...),
		teachers:   append([]school.Teacher(nil), db.teacher.rows...),
		classes:    append([]school.SchoolClass(nil), db.class.rows...),
		expenses:   append([]school.Expense(nil), db.expense.rows...),
		deadStock:  append([]school.DeadStockItem(nil), db.deadStock.rows...),
		payments:   append([]school.FeePayment(nil), db.payment.rows...),
		attendance: append([]school.AttendanceRecord(nil), db.attendance.rows...),
	}
}

func (db *DB) restore(d dump) {
	db.profile.Lock()
	defer db.profile.Unlock()
	db.student.Lock()
	defer db.student.Unlock()
	db.teacher.Lock()
	defer db.teacher.Unlock()
	db.class.Lock()
	defer db.class.Unlock()
	db.expense.Lock()
	defer db.expense.Unlock()
	db.deadStock.Lock()
	defer db.deadStock.Unlock()
	db.payment.Lock()
	defer db.payment.Unlock()
	db.attendance.Lock()
	defer db.attendance.Unlock()

	db.profile.row = d.profile
	db.student.rows = d.students
	db.teacher.rows = d.teachers
	db.class.rows = d.classes
	db.expense.rows = d.expenses
	db.deadStock.rows = d.deadStock
	db.payment.rows = d.payments
	db.attendance.rows = d.attendance
}
