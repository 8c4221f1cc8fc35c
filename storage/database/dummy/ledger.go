package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

var errUnavailable = errors.New("dummy store is down")

type ledgerRepository struct {
	db *DB
}

var _ school.Store = (*ledgerRepository)(nil) // interface compliance check

func NewLedgerRepository(db *DB) school.Store {
	return &ledgerRepository{db: db}
}

// check fails when the store was made unavailable, or when the fail hook rejects op on id.
func (repo *ledgerRepository) check(op, id string) error {
	repo.db.hooksMu.RLock()
	defer repo.db.hooksMu.RUnlock()
	if repo.db.unavailable {
		return core.NewUpstreamUnavailable(op, errUnavailable)
	}
	if repo.db.failHook != nil && id != "" {
		return repo.db.failHook(op, id)
	}
	return nil
}

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

func (repo *ledgerRepository) WithinTx(ctx context.Context, fn func(repo school.Repository) error) error {
	if err := repo.check("WithinTx", ""); err != nil {
		return err
	}
	repo.db.tx.Lock()
	defer repo.db.tx.Unlock()

	before := repo.db.dump()
	if err := fn(repo); err != nil {
		repo.db.restore(before)
		return err
	}
	return nil
}

func (repo *ledgerRepository) ListStudents(_ context.Context) ([]school.Student, error) {
	if err := repo.check("ListStudents", ""); err != nil {
		return nil, err
	}
	tbl := repo.db.student
	tbl.RLock()
	defer tbl.RUnlock()
	return append([]school.Student(nil), tbl.rows...), nil
}

func (repo *ledgerRepository) ListTeachers(_ context.Context) ([]school.Teacher, error) {
	if err := repo.check("ListTeachers", ""); err != nil {
		return nil, err
	}
	tbl := repo.db.teacher
	tbl.RLock()
	defer tbl.RUnlock()
	return append([]school.Teacher(nil), tbl.rows...), nil
}

func (repo *ledgerRepository) ListClasses(_ context.Context) ([]school.SchoolClass, error) {
	if err := repo.check("ListClasses", ""); err != nil {
		return nil, err
	}
	tbl := repo.db.class
	tbl.RLock()
	defer tbl.RUnlock()
	return append([]school.SchoolClass(nil), tbl.rows...), nil
}

func (repo *ledgerRepository) ListExpenses(_ context.Context) ([]school.Expense, error) {
	if err := repo.check("ListExpenses", ""); err != nil {
		return nil, err
	}
	tbl := repo.db.expense
	tbl.RLock()
	defer tbl.RUnlock()
	return append([]school.Expense(nil), tbl.rows...), nil
}

func (repo *ledgerRepository) ListDeadStock(_ context.Context) ([]school.DeadStockItem, error) {
	if err := repo.check("ListDeadStock", ""); err != nil {
		return nil, err
	}
	tbl := repo.db.deadStock
	tbl.RLock()
	defer tbl.RUnlock()
	return append([]school.DeadStockItem(nil), tbl.rows...), nil
}

func (repo *ledgerRepository) ListFeePayments(_ context.Context) ([]school.FeePayment, error) {
	if err := repo.check("ListFeePayments", ""); err != nil {
		return nil, err
	}
	tbl := repo.db.payment
	tbl.RLock()
	defer tbl.RUnlock()
	return append([]school.FeePayment(nil), tbl.rows...), nil
}

func (repo *ledgerRepository) ListAttendance(_ context.Context, from, to time.Time) ([]school.AttendanceRecord, error) {
	if err := repo.check("ListAttendance", ""); err != nil {
		return nil, err
	}
	tbl := repo.db.attendance
	tbl.RLock()
	defer tbl.RUnlock()

	var records []school.AttendanceRecord
	for _, rec := range tbl.rows {
		if core.InRange(rec.Date, from, to) {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (repo *ledgerRepository) GetStudent(_ context.Context, id string) (school.Student, error) {
	if err := repo.check("GetStudent", ""); err != nil {
		return school.Student{}, err
	}
	tbl := repo.db.student
	tbl.RLock()
	defer tbl.RUnlock()

	for _, st := range tbl.rows {
		if st.ID == id {
			return st, nil
		}
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *ledgerRepository) GetSchoolProfile(_ context.Context) (school.SchoolProfile, error) {
	if err := repo.check("GetSchoolProfile", ""); err != nil {
		return school.SchoolProfile{}, err
	}
	repo.db.profile.RLock()
	defer repo.db.profile.RUnlock()
	return repo.db.profile.row, nil
}

func (repo *ledgerRepository) SaveSchoolProfile(_ context.Context, profile school.SchoolProfile) error {
	if err := repo.check("SaveSchoolProfile", "profile"); err != nil {
		return err
	}
	repo.db.profile.Lock()
	defer repo.db.profile.Unlock()
	repo.db.profile.row = profile
	return nil
}

func (repo *ledgerRepository) CreateStudent(_ context.Context, st school.Student) (school.Student, error) {
	if err := repo.check("CreateStudent", st.AdmissionNo); err != nil {
		return school.Student{}, err
	}
	tbl := repo.db.student
	tbl.Lock()
	defer tbl.Unlock()

	for _, s := range tbl.rows {
		if s.AdmissionNo == st.AdmissionNo {
			return school.Student{}, core.NewConflictError("student", st.AdmissionNo, nil)
		}
	}
	st.ID = newID(st.ID)
	st.Version = 1
	if st.Status == "" {
		st.Status = school.StatusActive
	}
	tbl.rows = append(tbl.rows, st)
	return st, nil
}

func (repo *ledgerRepository) CreateTeacher(_ context.Context, t school.Teacher) (school.Teacher, error) {
	if err := repo.check("CreateTeacher", t.Name); err != nil {
		return school.Teacher{}, err
	}
	tbl := repo.db.teacher
	tbl.Lock()
	defer tbl.Unlock()

	t.ID = newID(t.ID)
	if t.Status == "" {
		t.Status = school.TeacherActive
	}
	tbl.rows = append(tbl.rows, t)
	return t, nil
}

func (repo *ledgerRepository) CreateClass(_ context.Context, c school.SchoolClass) (school.SchoolClass, error) {
	if err := repo.check("CreateClass", c.Name); err != nil {
		return school.SchoolClass{}, err
	}
	tbl := repo.db.class
	tbl.Lock()
	defer tbl.Unlock()

	for _, cls := range tbl.rows {
		if cls.Name == c.Name {
			return school.SchoolClass{}, core.NewConflictError("class", c.Name, nil)
		}
	}
	c.ID = newID(c.ID)
	tbl.rows = append(tbl.rows, c)
	return c, nil
}

func (repo *ledgerRepository) CreateExpense(_ context.Context, e school.Expense) (school.Expense, error) {
	if err := repo.check("CreateExpense", e.Category); err != nil {
		return school.Expense{}, err
	}
	tbl := repo.db.expense
	tbl.Lock()
	defer tbl.Unlock()

	e.ID = newID(e.ID)
	tbl.rows = append(tbl.rows, e)
	return e, nil
}

func (repo *ledgerRepository) CreateDeadStockItem(_ context.Context, item school.DeadStockItem) (school.DeadStockItem, error) {
	if err := repo.check("CreateDeadStockItem", item.Name); err != nil {
		return school.DeadStockItem{}, err
	}
	tbl := repo.db.deadStock
	tbl.Lock()
	defer tbl.Unlock()

	item.ID = newID(item.ID)
	if item.Status == "" {
		item.Status = school.StockInStock
	}
	tbl.rows = append(tbl.rows, item)
	return item, nil
}

func (repo *ledgerRepository) UpdateStudent(_ context.Context, st school.Student) (school.Student, error) {
	if err := repo.check("UpdateStudent", st.ID); err != nil {
		return school.Student{}, err
	}
	tbl := repo.db.student
	tbl.Lock()
	defer tbl.Unlock()

	for i, orig := range tbl.rows {
		if orig.ID != st.ID {
			continue
		}
		if orig.Version != st.Version {
			return school.Student{}, core.NewStaleVersionError("student", st.ID, errors.Errorf(
				"version %d is stale (current %d)", st.Version, orig.Version))
		}
		st.Version++
		tbl.rows[i] = st
		return st, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *ledgerRepository) AppendFeePayment(_ context.Context, p school.FeePayment) (school.FeePayment, error) {
	if err := repo.check("AppendFeePayment", p.StudentID); err != nil {
		return school.FeePayment{}, err
	}
	tbl := repo.db.payment
	tbl.Lock()
	defer tbl.Unlock()

	for _, pay := range tbl.rows {
		if pay.ReceiptNo == p.ReceiptNo {
			return school.FeePayment{}, core.NewConflictError("receipt", p.ReceiptNo, nil)
		}
	}
	p.ID = newID(p.ID)
	tbl.rows = append(tbl.rows, p)
	return p, nil
}

func (repo *ledgerRepository) UpsertAttendance(_ context.Context, rec school.AttendanceRecord) error {
	if err := repo.check("UpsertAttendance", rec.PersonID); err != nil {
		return err
	}
	tbl := repo.db.attendance
	tbl.Lock()
	defer tbl.Unlock()

	rec.Date = core.Day(rec.Date)
	for i, r := range tbl.rows {
		if r.PersonID == rec.PersonID && r.Date.Equal(rec.Date) {
			tbl.rows[i] = rec
			return nil
		}
	}
	tbl.rows = append(tbl.rows, rec)
	return nil
}

func (repo *ledgerRepository) DeleteAll(_ context.Context) error {
	if err := repo.check("DeleteAll", ""); err != nil {
		return err
	}
	repo.db.restore(dump{})
	return nil
}
