package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

const uniqueViolation = "23505"

var ledgerOrder = core.OrderBy(core.DBOrdering{Field: "created_at", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})

type ledgerRepository struct {
	db   *sqlx.DB
	exec core.DBExecutor
}

var _ school.Store = (*ledgerRepository)(nil) // interface compliance check

func NewLedgerRepository(db *sqlx.DB) school.Store {
	return &ledgerRepository{db: db, exec: db}
}

// mapError turns driver errors into the core error taxonomy.
func mapError(op string, err error, entity, key string) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		switch {
		case pqErr.Code == uniqueViolation:
			return core.NewConflictError(entity, key, pqErr)
		case strings.HasPrefix(string(pqErr.Code), "08"), strings.HasPrefix(string(pqErr.Code), "57P"):
			return core.NewUpstreamUnavailable(op, pqErr)
		}
		return errors.Wrap(err, op)
	}
	if isConnError(err) {
		return core.NewUpstreamUnavailable(op, err)
	}
	return errors.Wrap(err, op)
}

func isConnError(err error) bool {
	cause := errors.Cause(err)
	if cause == driver.ErrBadConn || cause == sql.ErrConnDone {
		return true
	}
	var netErr net.Error
	return errors.As(cause, &netErr)
}

func (repo *ledgerRepository) WithinTx(ctx context.Context, fn func(repo school.Repository) error) error {
	if repo.db == nil { // already in a transaction
		return fn(repo)
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError("WithinTx", err, "", "")
	}
	if err = fn(&ledgerRepository{exec: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return mapError("WithinTx", tx.Commit(), "", "")
}

func (repo *ledgerRepository) ListStudents(ctx context.Context) ([]school.Student, error) {
	var rows []studentRow
	if err := repo.exec.SelectContext(ctx, &rows, "SELECT "+studentColumns+" FROM student"+ledgerOrder); err != nil {
		return nil, mapError("ListStudents", err, "", "")
	}
	students := make([]school.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.model())
	}
	return students, nil
}

func (repo *ledgerRepository) ListTeachers(ctx context.Context) ([]school.Teacher, error) {
	var teachers []school.Teacher
	const q = "SELECT id, name, subject, mobile, status FROM teacher"
	if err := repo.exec.SelectContext(ctx, &teachers, q+ledgerOrder); err != nil {
		return nil, mapError("ListTeachers", err, "", "")
	}
	return teachers, nil
}

func (repo *ledgerRepository) ListClasses(ctx context.Context) ([]school.SchoolClass, error) {
	var rows []classRow
	if err := repo.exec.SelectContext(ctx, &rows, "SELECT id, name, sections FROM school_class"+ledgerOrder); err != nil {
		return nil, mapError("ListClasses", err, "", "")
	}
	classes := make([]school.SchoolClass, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.model())
	}
	return classes, nil
}

func (repo *ledgerRepository) ListExpenses(ctx context.Context) ([]school.Expense, error) {
	var rows []expenseRow
	const q = "SELECT id, spent_on, category, description, amount FROM expense"
	if err := repo.exec.SelectContext(ctx, &rows, q+ledgerOrder); err != nil {
		return nil, mapError("ListExpenses", err, "", "")
	}
	expenses := make([]school.Expense, 0, len(rows))
	for _, r := range rows {
		expenses = append(expenses, r.model())
	}
	return expenses, nil
}

func (repo *ledgerRepository) ListDeadStock(ctx context.Context) ([]school.DeadStockItem, error) {
	var rows []deadStockRow
	const q = "SELECT id, name, quantity, unit_price, purchased_on, status, description FROM dead_stock"
	if err := repo.exec.SelectContext(ctx, &rows, q+ledgerOrder); err != nil {
		return nil, mapError("ListDeadStock", err, "", "")
	}
	items := make([]school.DeadStockItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.model())
	}
	return items, nil
}

func (repo *ledgerRepository) ListFeePayments(ctx context.Context) ([]school.FeePayment, error) {
	var rows []paymentRow
	const q = "SELECT id, student_id, amount, paid_on, receipt_no, mode, remark FROM fee_payment"
	if err := repo.exec.SelectContext(ctx, &rows, q+ledgerOrder); err != nil {
		return nil, mapError("ListFeePayments", err, "", "")
	}
	payments := make([]school.FeePayment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.model())
	}
	return payments, nil
}

func (repo *ledgerRepository) ListAttendance(ctx context.Context, from, to time.Time) ([]school.AttendanceRecord, error) {
	var rows []attendanceRow
	q := `SELECT person_id, person_kind, day, status, class_label FROM attendance
	WHERE day BETWEEN $1 AND $2` + core.OrderBy(core.DBOrdering{Field: "day", Ascending: true})
	if err := repo.exec.SelectContext(ctx, &rows, q, core.Day(from), core.Day(to)); err != nil {
		return nil, mapError("ListAttendance", err, "", "")
	}
	records := make([]school.AttendanceRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.model())
	}
	return records, nil
}

const studentColumns = `id, admission_no, name, father_name, mother_name, class_name, section, roll_no,
	total_fees, fees_paid, status, mobile, email, address, admission_date, version`

func (repo *ledgerRepository) GetStudent(ctx context.Context, id string) (school.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Student{}, school.ErrStudentNotFound
	}
	var row studentRow
	err := repo.exec.GetContext(ctx, &row, "SELECT "+studentColumns+" FROM student WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return school.Student{}, school.ErrStudentNotFound
	}
	if err != nil {
		return school.Student{}, mapError("GetStudent", err, "", "")
	}
	return row.model(), nil
}

func (repo *ledgerRepository) GetSchoolProfile(ctx context.Context) (school.SchoolProfile, error) {
	var row profileRow
	const q = `SELECT name, address, principal_name, logo_url, affiliation, school_code, academic_year
	FROM school_profile WHERE id = 1`
	err := repo.exec.GetContext(ctx, &row, q)
	if err == sql.ErrNoRows {
		return school.SchoolProfile{}, nil
	}
	if err != nil {
		return school.SchoolProfile{}, mapError("GetSchoolProfile", err, "", "")
	}
	return school.SchoolProfile(row), nil
}

func (repo *ledgerRepository) SaveSchoolProfile(ctx context.Context, profile school.SchoolProfile) error {
	const q = `INSERT INTO school_profile (id, name, address, principal_name, logo_url, affiliation, school_code, academic_year)
	VALUES (1, :name, :address, :principal_name, :logo_url, :affiliation, :school_code, :academic_year)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name, address = EXCLUDED.address, principal_name = EXCLUDED.principal_name,
		logo_url = EXCLUDED.logo_url, affiliation = EXCLUDED.affiliation,
		school_code = EXCLUDED.school_code, academic_year = EXCLUDED.academic_year`
	_, err := repo.exec.NamedExecContext(ctx, q, profileRow(profile))
	return mapError("SaveSchoolProfile", err, "", "")
}

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

func (repo *ledgerRepository) CreateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	st.ID = newID(st.ID)
	st.Version = 1
	if st.Status == "" {
		st.Status = school.StatusActive
	}
	const q = `INSERT INTO student (
		id, admission_no, name, father_name, mother_name, class_name, section, roll_no,
		total_fees, fees_paid, status, mobile, email, address, admission_date, version
	) VALUES (
		:id, :admission_no, :name, :father_name, :mother_name, :class_name, :section, :roll_no,
		:total_fees, :fees_paid, :status, :mobile, :email, :address, :admission_date, :version
	)`
	if _, err := repo.exec.NamedExecContext(ctx, q, newStudentRow(st)); err != nil {
		return school.Student{}, mapError("CreateStudent", err, "student", st.AdmissionNo)
	}
	return st, nil
}

func (repo *ledgerRepository) CreateTeacher(ctx context.Context, t school.Teacher) (school.Teacher, error) {
	t.ID = newID(t.ID)
	if t.Status == "" {
		t.Status = school.TeacherActive
	}
	const q = "INSERT INTO teacher (id, name, subject, mobile, status) VALUES ($1, $2, $3, $4, $5)"
	if _, err := repo.exec.ExecContext(ctx, q, t.ID, t.Name, t.Subject, t.Mobile, t.Status); err != nil {
		return school.Teacher{}, mapError("CreateTeacher", err, "teacher", t.ID)
	}
	return t, nil
}

func (repo *ledgerRepository) CreateClass(ctx context.Context, c school.SchoolClass) (school.SchoolClass, error) {
	c.ID = newID(c.ID)
	const q = "INSERT INTO school_class (id, name, sections) VALUES ($1, $2, $3)"
	if _, err := repo.exec.ExecContext(ctx, q, c.ID, c.Name, pq.StringArray(c.Sections)); err != nil {
		return school.SchoolClass{}, mapError("CreateClass", err, "class", c.Name)
	}
	return c, nil
}

func (repo *ledgerRepository) CreateExpense(ctx context.Context, e school.Expense) (school.Expense, error) {
	e.ID = newID(e.ID)
	e.Date = core.Day(e.Date)
	const q = "INSERT INTO expense (id, spent_on, category, description, amount) VALUES ($1, $2, $3, $4, $5)"
	if _, err := repo.exec.ExecContext(ctx, q, e.ID, e.Date, e.Category, e.Description, e.Amount); err != nil {
		return school.Expense{}, mapError("CreateExpense", err, "expense", e.ID)
	}
	return e, nil
}

func (repo *ledgerRepository) CreateDeadStockItem(ctx context.Context, item school.DeadStockItem) (school.DeadStockItem, error) {
	item.ID = newID(item.ID)
	item.PurchaseDate = core.Day(item.PurchaseDate)
	if item.Status == "" {
		item.Status = school.StockInStock
	}
	const q = `INSERT INTO dead_stock (id, name, quantity, unit_price, purchased_on, status, description)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.exec.ExecContext(ctx, q,
		item.ID, item.Name, item.Quantity, item.UnitPrice, item.PurchaseDate, item.Status, item.Description)
	if err != nil {
		return school.DeadStockItem{}, mapError("CreateDeadStockItem", err, "dead stock item", item.ID)
	}
	return item, nil
}

func (repo *ledgerRepository) UpdateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	row := newStudentRow(st)
	q, args, err := sqlx.Named(`UPDATE student SET
		admission_no = :admission_no, name = :name, father_name = :father_name, mother_name = :mother_name,
		class_name = :class_name, section = :section, roll_no = :roll_no, total_fees = :total_fees,
		fees_paid = :fees_paid, status = :status, mobile = :mobile, email = :email, address = :address,
		admission_date = :admission_date, version = version + 1
	WHERE id = :id AND version = :version
	RETURNING version`, row)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "binding student")
	}

	var version int
	err = repo.exec.GetContext(ctx, &version, repo.exec.Rebind(q), args...)
	if err == sql.ErrNoRows {
		current, getErr := repo.GetStudent(ctx, st.ID)
		if getErr != nil {
			return school.Student{}, getErr
		}
		return school.Student{}, core.NewStaleVersionError("student", st.ID, errors.Errorf(
			"version %d is stale (current %d)", st.Version, current.Version))
	}
	if err != nil {
		return school.Student{}, mapError("UpdateStudent", err, "student", st.AdmissionNo)
	}
	st.Version = version
	return st, nil
}

func (repo *ledgerRepository) AppendFeePayment(ctx context.Context, p school.FeePayment) (school.FeePayment, error) {
	p.ID = newID(p.ID)
	p.Date = core.Day(p.Date)
	const q = `INSERT INTO fee_payment (id, student_id, amount, paid_on, receipt_no, mode, remark)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.exec.ExecContext(ctx, q, p.ID, p.StudentID, p.Amount, p.Date, p.ReceiptNo, p.Mode, p.Remark)
	if err != nil {
		return school.FeePayment{}, mapError("AppendFeePayment", err, "receipt", p.ReceiptNo)
	}
	return p, nil
}

func (repo *ledgerRepository) UpsertAttendance(ctx context.Context, rec school.AttendanceRecord) error {
	const q = `INSERT INTO attendance (person_id, person_kind, day, status, class_label)
	VALUES (:person_id, :person_kind, :day, :status, :class_label)
	ON CONFLICT (person_id, day) DO UPDATE SET
		person_kind = EXCLUDED.person_kind, status = EXCLUDED.status, class_label = EXCLUDED.class_label`
	_, err := repo.exec.NamedExecContext(ctx, q, newAttendanceRow(rec))
	return mapError("UpsertAttendance", err, "attendance", rec.PersonID)
}

func (repo *ledgerRepository) DeleteAll(ctx context.Context) error {
	const q = "TRUNCATE attendance, fee_payment, dead_stock, expense, teacher, student, school_class, school_profile"
	_, err := repo.exec.ExecContext(ctx, q)
	return mapError("DeleteAll", err, "", "")
}
