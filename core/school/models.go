package school

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Student statuses. an empty status is treated as Active.
const (
	StatusActive   = "Active"
	StatusLCIssued = "LC Issued"
	StatusLeft     = "Left"
)

// Teacher statuses. an empty status is treated as Active.
const (
	TeacherActive   = "Active"
	TeacherInactive = "Inactive"
)

// Attendance
const (
	Present = "present"
	Absent  = "absent"

	KindStudent = "student"
	KindTeacher = "teacher"
)

// Dead stock statuses
const (
	StockInStock    = "In Stock"
	StockDisposed   = "Disposed"
	StockSold       = "Sold"
	StockWrittenOff = "Written Off"
)

// Payment modes
const (
	ModeCash   = "Cash"
	ModeUPI    = "UPI"
	ModeCheque = "Cheque"
	ModeOnline = "Online"
)

// AllClasses is the class filter wildcard.
const AllClasses = "all"

type Student struct {
	ID            string          `json:"id"`
	AdmissionNo   string          `json:"admission_no"`
	Name          string          `json:"name"`
	FatherName    string          `json:"father_name"`
	MotherName    string          `json:"mother_name"`
	Class         string          `json:"class"`
	Section       string          `json:"section"`
	RollNo        string          `json:"roll_no"`
	TotalFees     decimal.Decimal `json:"total_fees"`
	FeesPaid      decimal.Decimal `json:"fees_paid"`
	Status        string          `json:"status"`
	Mobile        string          `json:"mobile"`
	Email         string          `json:"email,omitempty"`
	Address       string          `json:"address"`
	AdmissionDate time.Time       `json:"admission_date"`
	Version       int             `json:"version"` // bumped on every update
}

func (s Student) IsActive() bool {
	return s.Status == "" || s.Status == StatusActive
}

// Pending is the signed outstanding balance; negative when overpaid.
func (s Student) Pending() decimal.Decimal {
	return s.TotalFees.Sub(s.FeesPaid)
}

func (s Student) ClassLabel() string {
	return ClassLabel(s.Class, s.Section)
}

// ClassLabel formats a class and its section the way rosters and attendance records name them: 5 'A'.
func ClassLabel(class, section string) string {
	if section == "" {
		return class
	}
	return fmt.Sprintf("%s '%s'", class, section)
}

type Teacher struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Mobile  string `json:"mobile"`
	Status  string `json:"status"`
}

func (t Teacher) IsActive() bool {
	return t.Status == "" || t.Status == TeacherActive
}

type SchoolClass struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Sections []string `json:"sections"`
}

type Expense struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type DeadStockItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	PurchaseDate time.Time       `json:"purchase_date"`
	Status       string          `json:"status"`
	Description  string          `json:"description"`
}

func (i DeadStockItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// FeePayment is immutable once appended; corrections are new records.
type FeePayment struct {
	ID        string          `json:"id"`
	StudentID string          `json:"student_id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	ReceiptNo string          `json:"receipt_no"`
	Mode      string          `json:"mode"`
	Remark    string          `json:"remark,omitempty"`
}

// AttendanceRecord is unique per (PersonID, Date).
type AttendanceRecord struct {
	PersonID   string    `json:"person_id"`
	PersonKind string    `json:"person_kind"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	ClassLabel string    `json:"class_label,omitempty"`
}

type SchoolProfile struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	PrincipalName string `json:"principal_name"`
	LogoURL       string `json:"logo_url"`
	Affiliation   string `json:"affiliation"`
	SchoolCode    string `json:"school_code"`
	AcademicYear  string `json:"academic_year"`
}
