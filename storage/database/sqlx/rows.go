package sqlxrepos

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

type studentRow struct {
	ID            string          `db:"id"`
	AdmissionNo   string          `db:"admission_no"`
	Name          string          `db:"name"`
	FatherName    string          `db:"father_name"`
	MotherName    string          `db:"mother_name"`
	Class         string          `db:"class_name"`
	Section       string          `db:"section"`
	RollNo        string          `db:"roll_no"`
	TotalFees     decimal.Decimal `db:"total_fees"`
	FeesPaid      decimal.Decimal `db:"fees_paid"`
	Status        string          `db:"status"`
	Mobile        string          `db:"mobile"`
	Email         null.String     `db:"email"`
	Address       string          `db:"address"`
	AdmissionDate null.Time       `db:"admission_date"`
	Version       int             `db:"version"`
}

func newStudentRow(st school.Student) studentRow {
	row := studentRow{
		ID:          st.ID,
		AdmissionNo: st.AdmissionNo,
		Name:        st.Name,
		FatherName:  st.FatherName,
		MotherName:  st.MotherName,
		Class:       st.Class,
		Section:     st.Section,
		RollNo:      st.RollNo,
		TotalFees:   st.TotalFees,
		FeesPaid:    st.FeesPaid,
		Status:      st.Status,
		Mobile:      st.Mobile,
		Email:       null.NewString(st.Email, st.Email != ""),
		Address:     st.Address,
		Version:     st.Version,
	}
	if !st.AdmissionDate.IsZero() {
		row.AdmissionDate = null.TimeFrom(core.Day(st.AdmissionDate))
	}
	return row
}

func (r studentRow) model() school.Student {
	return school.Student{
		ID:            r.ID,
		AdmissionNo:   r.AdmissionNo,
		Name:          r.Name,
		FatherName:    r.FatherName,
		MotherName:    r.MotherName,
		Class:         r.Class,
		Section:       r.Section,
		RollNo:        r.RollNo,
		TotalFees:     r.TotalFees,
		FeesPaid:      r.FeesPaid,
		Status:        r.Status,
		Mobile:        r.Mobile,
		Email:         r.Email.String,
		Address:       r.Address,
		AdmissionDate: dayOrZero(r.AdmissionDate),
		Version:       r.Version,
	}
}

type classRow struct {
	ID       string         `db:"id"`
	Name     string         `db:"name"`
	Sections pq.StringArray `db:"sections"`
}

func (r classRow) model() school.SchoolClass {
	return school.SchoolClass{ID: r.ID, Name: r.Name, Sections: append([]string{}, r.Sections...)}
}

type expenseRow struct {
	ID          string          `db:"id"`
	Date        time.Time       `db:"spent_on"`
	Category    string          `db:"category"`
	Description string          `db:"description"`
	Amount      decimal.Decimal `db:"amount"`
}

func (r expenseRow) model() school.Expense {
	return school.Expense{
		ID:          r.ID,
		Date:        core.Day(r.Date),
		Category:    r.Category,
		Description: r.Description,
		Amount:      r.Amount,
	}
}

type deadStockRow struct {
	ID           string          `db:"id"`
	Name         string          `db:"name"`
	Quantity     int             `db:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price"`
	PurchaseDate time.Time       `db:"purchased_on"`
	Status       string          `db:"status"`
	Description  string          `db:"description"`
}

func (r deadStockRow) model() school.DeadStockItem {
	return school.DeadStockItem{
		ID:           r.ID,
		Name:         r.Name,
		Quantity:     r.Quantity,
		UnitPrice:    r.UnitPrice,
		PurchaseDate: core.Day(r.PurchaseDate),
		Status:       r.Status,
		Description:  r.Description,
	}
}

type paymentRow struct {
	ID        string          `db:"id"`
	StudentID string          `db:"student_id"`
	Amount    decimal.Decimal `db:"amount"`
	Date      time.Time       `db:"paid_on"`
	ReceiptNo string          `db:"receipt_no"`
	Mode      string          `db:"mode"`
	Remark    string          `db:"remark"`
}

func (r paymentRow) model() school.FeePayment {
	return school.FeePayment{
		ID:        r.ID,
		StudentID: r.StudentID,
		Amount:    r.Amount,
		Date:      core.Day(r.Date),
		ReceiptNo: r.ReceiptNo,
		Mode:      r.Mode,
		Remark:    r.Remark,
	}
}

type attendanceRow struct {
	PersonID   string      `db:"person_id"`
	PersonKind string      `db:"person_kind"`
	Date       time.Time   `db:"day"`
	Status     string      `db:"status"`
	ClassLabel null.String `db:"class_label"`
}

func newAttendanceRow(rec school.AttendanceRecord) attendanceRow {
	return attendanceRow{
		PersonID:   rec.PersonID,
		PersonKind: rec.PersonKind,
		Date:       core.Day(rec.Date),
		Status:     rec.Status,
		ClassLabel: null.NewString(rec.ClassLabel, rec.ClassLabel != ""),
	}
}

func (r attendanceRow) model() school.AttendanceRecord {
	return school.AttendanceRecord{
		PersonID:   r.PersonID,
		PersonKind: r.PersonKind,
		Date:       core.Day(r.Date),
		Status:     r.Status,
		ClassLabel: r.ClassLabel.String,
	}
}

type profileRow struct {
	Name          string `db:"name"`
	Address       string `db:"address"`
	PrincipalName string `db:"principal_name"`
	LogoURL       string `db:"logo_url"`
	Affiliation   string `db:"affiliation"`
	SchoolCode    string `db:"school_code"`
	AcademicYear  string `db:"academic_year"`
}

func dayOrZero(t null.Time) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return core.Day(t.Time)
}
