package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/vidyaverse/core/school"
	dummydb "github.com/trezcool/vidyaverse/storage/database/dummy"
)

// NewStore returns an empty in-memory ledger store and its underlying db (for failure injection).
func NewStore(t *testing.T) (school.Store, *dummydb.DB) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return dummydb.NewLedgerRepository(db), db
}

func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func CreateStudent(
	t *testing.T,
	repo school.Repository,
	admissionNo, name, class, section, rollNo string,
	totalFees, feesPaid string,
	status ...string,
) school.Student {
	st := school.Student{
		AdmissionNo: admissionNo,
		Name:        name,
		FatherName:  name + " Sr",
		Class:       class,
		Section:     section,
		RollNo:      rollNo,
		TotalFees:   Dec(totalFees),
		FeesPaid:    Dec(feesPaid),
		Mobile:      "9876543210",
	}
	if len(status) > 0 {
		st.Status = status[0]
	}
	st, err := repo.CreateStudent(context.Background(), st)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return st
}

func CreateTeacher(t *testing.T, repo school.Repository, name, subject string, status ...string) school.Teacher {
	tch := school.Teacher{Name: name, Subject: subject, Mobile: "9123456780"}
	if len(status) > 0 {
		tch.Status = status[0]
	}
	tch, err := repo.CreateTeacher(context.Background(), tch)
	if err != nil {
		t.Fatalf("createTeacher() failed: %v", err)
	}
	return tch
}

func CreateClass(t *testing.T, repo school.Repository, name string, sections ...string) school.SchoolClass {
	cls, err := repo.CreateClass(context.Background(), school.SchoolClass{Name: name, Sections: sections})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return cls
}

func CreateExpense(t *testing.T, repo school.Repository, date time.Time, category, amount string) school.Expense {
	exp, err := repo.CreateExpense(context.Background(), school.Expense{
		Date:        date,
		Category:    category,
		Description: category,
		Amount:      Dec(amount),
	})
	if err != nil {
		t.Fatalf("createExpense() failed: %v", err)
	}
	return exp
}

func CreateDeadStockItem(
	t *testing.T,
	repo school.Repository,
	name string,
	quantity int,
	unitPrice string,
	purchased time.Time,
) school.DeadStockItem {
	item, err := repo.CreateDeadStockItem(context.Background(), school.DeadStockItem{
		Name:         name,
		Quantity:     quantity,
		UnitPrice:    Dec(unitPrice),
		PurchaseDate: purchased,
	})
	if err != nil {
		t.Fatalf("createDeadStockItem() failed: %v", err)
	}
	return item
}
