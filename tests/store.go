package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

// RunStoreTests checks the behaviors every school.Store implementation must share.
// newStore must return an empty store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) school.Store) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	t.Run("ledger order", func(t *testing.T) {
		store := newStore(t)
		for _, name := range []string{"Zara", "Aarav", "Meera"} {
			CreateStudent(t, store, "GR-"+name, name, "5", "A", "", "1000", "0")
		}
		students, err := store.ListStudents(ctx)
		if err != nil {
			t.Fatalf("ListStudents() error = %v", err)
		}
		names := make([]string, 0, len(students))
		for _, st := range students {
			names = append(names, st.Name)
		}
		assert.Equal(t, []string{"Zara", "Aarav", "Meera"}, names)
	})

	t.Run("student not found", func(t *testing.T) {
		store := newStore(t)
		for _, id := range []string{"not-a-uuid", "3f1c7f4e-8d2b-4c55-9a51-0c6f3a9b2e10"} {
			if _, err := store.GetStudent(ctx, id); errors.Cause(err) != school.ErrStudentNotFound {
				t.Errorf("GetStudent(%q) error = %v, want %v", id, err, school.ErrStudentNotFound)
			}
		}
	})

	t.Run("duplicate admission number", func(t *testing.T) {
		store := newStore(t)
		CreateStudent(t, store, "GR1", "Aarav", "5", "A", "1", "1000", "0")
		_, err := store.CreateStudent(ctx, school.Student{AdmissionNo: "GR1", Name: "Diya", Class: "5"})
		checkConflict(t, err, core.ConflictDuplicate)
	})

	t.Run("optimistic update", func(t *testing.T) {
		store := newStore(t)
		st := CreateStudent(t, store, "GR1", "Aarav", "5", "A", "1", "1000", "0")

		first := st
		first.RollNo = "7"
		updated, err := store.UpdateStudent(ctx, first)
		if err != nil {
			t.Fatalf("UpdateStudent() error = %v", err)
		}
		if updated.Version != st.Version+1 {
			t.Errorf("UpdateStudent() version = %d, want %d", updated.Version, st.Version+1)
		}

		stale := st
		stale.RollNo = "9"
		_, err = store.UpdateStudent(ctx, stale)
		checkConflict(t, err, core.ConflictStale)

		got, err := store.GetStudent(ctx, st.ID)
		if err != nil {
			t.Fatalf("GetStudent() error = %v", err)
		}
		assert.Equal(t, "7", got.RollNo)
		assert.Equal(t, updated.Version, got.Version)
	})

	t.Run("duplicate receipt", func(t *testing.T) {
		store := newStore(t)
		st := CreateStudent(t, store, "GR1", "Aarav", "5", "A", "1", "1000", "0")
		pay := school.FeePayment{StudentID: st.ID, Amount: Dec("100"), Date: Date(2024, time.March, 5), ReceiptNo: "R-1", Mode: school.ModeCash}
		if _, err := store.AppendFeePayment(ctx, pay); err != nil {
			t.Fatalf("AppendFeePayment() error = %v", err)
		}
		_, err := store.AppendFeePayment(ctx, pay)
		checkConflict(t, err, core.ConflictDuplicate)
	})

	t.Run("transaction", func(t *testing.T) {
		tests := []struct {
			name         string
			fail         bool
			wantPayments int
			wantPaid     string
		}{
			{name: "committed", wantPayments: 1, wantPaid: "100"},
			{name: "rolled back", fail: true, wantPayments: 0, wantPaid: "0"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := newStore(t)
				st := CreateStudent(t, store, "GR1", "Aarav", "5", "A", "1", "1000", "0")

				err := store.WithinTx(ctx, func(repo school.Repository) error {
					pay := school.FeePayment{StudentID: st.ID, Amount: Dec("100"), Date: Date(2024, time.March, 5), ReceiptNo: "R-1", Mode: school.ModeCash}
					if _, err := repo.AppendFeePayment(ctx, pay); err != nil {
						return err
					}
					cur, err := repo.GetStudent(ctx, st.ID)
					if err != nil {
						return err
					}
					cur.FeesPaid = cur.FeesPaid.Add(pay.Amount)
					if _, err = repo.UpdateStudent(ctx, cur); err != nil {
						return err
					}
					if tt.fail {
						return errBoom
					}
					return nil
				})
				if tt.fail != (errors.Cause(err) == errBoom) {
					t.Fatalf("WithinTx() error = %v, want failure %v", err, tt.fail)
				}

				payments, err := store.ListFeePayments(ctx)
				if err != nil {
					t.Fatalf("ListFeePayments() error = %v", err)
				}
				assert.Len(t, payments, tt.wantPayments)
				got, err := store.GetStudent(ctx, st.ID)
				if err != nil {
					t.Fatalf("GetStudent() error = %v", err)
				}
				if !got.FeesPaid.Equal(Dec(tt.wantPaid)) {
					t.Errorf("feesPaid = %v, want %v", got.FeesPaid, tt.wantPaid)
				}
			})
		}
	})

	t.Run("attendance upsert", func(t *testing.T) {
		store := newStore(t)
		st := CreateStudent(t, store, "GR1", "Aarav", "5", "A", "1", "1000", "0")
		day := Date(2024, time.March, 5)

		for _, status := range []string{school.Present, school.Absent} {
			rec := school.AttendanceRecord{
				PersonID: st.ID, PersonKind: school.KindStudent, Date: day.Add(9 * time.Hour),
				Status: status, ClassLabel: st.ClassLabel(),
			}
			if err := store.UpsertAttendance(ctx, rec); err != nil {
				t.Fatalf("UpsertAttendance(%s) error = %v", status, err)
			}
		}

		records, err := store.ListAttendance(ctx, day, day)
		if err != nil {
			t.Fatalf("ListAttendance() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("ListAttendance() = %d records, want 1", len(records))
		}
		assert.Equal(t, school.Absent, records[0].Status)
		assert.True(t, records[0].Date.Equal(day), "record date = %v, want %v", records[0].Date, day)
	})

	t.Run("delete all", func(t *testing.T) {
		store := newStore(t)
		CreateStudent(t, store, "GR1", "Aarav", "5", "A", "1", "1000", "0")
		CreateExpense(t, store, Date(2024, time.March, 5), "Electricity", "1200")

		if err := store.DeleteAll(ctx); err != nil {
			t.Fatalf("DeleteAll() error = %v", err)
		}
		students, _ := store.ListStudents(ctx)
		expenses, _ := store.ListExpenses(ctx)
		assert.Empty(t, students)
		assert.Empty(t, expenses)
	})
}

func checkConflict(t *testing.T, err error, reason string) {
	t.Helper()
	cErr, ok := errors.Cause(err).(*core.ConflictError)
	if !ok {
		t.Fatalf("error = %v, want a *core.ConflictError", err)
	}
	if cErr.Reason != reason {
		t.Errorf("ConflictError.Reason = %q, want %q", cErr.Reason, reason)
	}
}
