package promotion

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/vidyaverse/core"
	logsvc "github.com/trezcool/vidyaverse/services/logger"
	testutil "github.com/trezcool/vidyaverse/tests"
)

func isValidationError(err error) bool {
	_, ok := errors.Cause(err).(*core.ValidationError)
	return ok
}

func TestService_Promote(t *testing.T) {
	ctx := context.Background()
	store, _ := testutil.NewStore(t)
	a := testutil.CreateStudent(t, store, "GR1", "Aarav", "5", "A", "1", "0", "0")
	b := testutil.CreateStudent(t, store, "GR2", "Diya", "5", "B", "1", "0", "0")
	other := testutil.CreateStudent(t, store, "GR3", "Kabir", "4", "A", "1", "0", "0")
	svc := NewService(store, logsvc.NewDiscardLogger())

	moved, err := svc.Promote(ctx, "5", "6")
	if err != nil {
		t.Fatalf("Promote() error = %v", err)
	}
	assert.Equal(t, []string{a.ID, b.ID}, moved)

	for _, id := range []string{a.ID, b.ID} {
		st, _ := store.GetStudent(ctx, id)
		if st.Class != "6" || st.Section != "" {
			t.Errorf("student %s = (%q, %q), want (%q, %q)", id, st.Class, st.Section, "6", "")
		}
	}
	st, _ := store.GetStudent(ctx, other.ID)
	assert.Equal(t, "4", st.Class)
}

func TestService_Promote_rejected(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to string
	}{
		{name: "same class", from: "5", to: "5"},
		{name: "same class after trim", from: " 5", to: "5 "},
		{name: "empty source", from: "9", to: "10"},
		{name: "missing destination", from: "5", to: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, db := testutil.NewStore(t)
			testutil.CreateStudent(t, store, "GR1", "Aarav", "5", "A", "1", "0", "0")
			var writes int
			db.SetFailHook(func(op, id string) error {
				writes++
				return nil
			})

			_, err := NewService(store, logsvc.NewDiscardLogger()).Promote(ctx, tt.from, tt.to)
			if !isValidationError(err) {
				t.Fatalf("Promote() error = %v, want *core.ValidationError", err)
			}
			if writes != 0 {
				t.Errorf("Promote() wrote %d records, want 0", writes)
			}
		})
	}
}

func TestService_Promote_partialFailure(t *testing.T) {
	ctx := context.Background()
	store, db := testutil.NewStore(t)
	a := testutil.CreateStudent(t, store, "GR1", "Aarav", "5", "A", "1", "0", "0")
	b := testutil.CreateStudent(t, store, "GR2", "Diya", "5", "A", "2", "0", "0")
	c := testutil.CreateStudent(t, store, "GR3", "Kabir", "5", "A", "3", "0", "0")
	db.SetFailHook(func(op, id string) error {
		if op == "UpdateStudent" && id == b.ID {
			return errors.New("write refused")
		}
		return nil
	})

	moved, err := NewService(store, logsvc.NewDiscardLogger()).Promote(ctx, "5", "6")
	batch, ok := errors.Cause(err).(*core.PartialBatchFailure)
	if !ok {
		t.Fatalf("Promote() error = %v, want *core.PartialBatchFailure", err)
	}
	assert.Equal(t, []string{a.ID, c.ID}, moved)
	assert.Equal(t, []string{b.ID}, batch.FailedIDs())

	// resuming with the failed record only
	db.SetFailHook(nil)
	moved, err = NewService(store, logsvc.NewDiscardLogger()).Promote(ctx, "5", "6")
	assert.NoError(t, err)
	assert.Equal(t, []string{b.ID}, moved)
}

func TestService_ReassignRolls(t *testing.T) {
	ctx := context.Background()
	store, _ := testutil.NewStore(t)
	a := testutil.CreateStudent(t, store, "GR1", "Zoya", "5", "A", "1", "0", "0")
	b := testutil.CreateStudent(t, store, "GR2", "aarav", "5", "A", "2", "0", "0")
	c := testutil.CreateStudent(t, store, "GR3", "Meera", "5", "A", "", "0", "0")
	svc := NewService(store, logsvc.NewDiscardLogger())

	students, _ := store.ListStudents(ctx)
	rolls := AlphabeticalRolls(students)
	assert.Equal(t, map[string]string{b.ID: "1", c.ID: "2", a.ID: "3"}, rolls)

	n, err := svc.ReassignRolls(ctx, "5", "A", rolls)
	if err != nil {
		t.Fatalf("ReassignRolls() error = %v", err)
	}
	if n != 3 {
		t.Errorf("ReassignRolls() = %d, want %d", n, 3)
	}

	// unchanged rolls are not written
	n, err = svc.ReassignRolls(ctx, "5", "A", rolls)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = svc.ReassignRolls(ctx, "5", "A", map[string]string{a.ID: "4", b.ID: " 4 "})
	if !isValidationError(err) {
		t.Errorf("ReassignRolls() with duplicate rolls error = %v, want *core.ValidationError", err)
	}
	_, err = svc.ReassignRolls(ctx, "8", "", rolls)
	if !isValidationError(err) {
		t.Errorf("ReassignRolls() on an empty class error = %v, want *core.ValidationError", err)
	}
}

func TestService_ReassignRollsAlphabetically(t *testing.T) {
	ctx := context.Background()
	store, _ := testutil.NewStore(t)
	a := testutil.CreateStudent(t, store, "GR1", "Zoya", "5", "A", "9", "0", "0")
	b := testutil.CreateStudent(t, store, "GR2", "Aarav", "5", "A", "8", "0", "0")
	other := testutil.CreateStudent(t, store, "GR3", "Meera", "5", "B", "7", "0", "0")
	svc := NewService(store, logsvc.NewDiscardLogger())

	n, err := svc.ReassignRollsAlphabetically(ctx, "5", "A")
	if err != nil {
		t.Fatalf("ReassignRollsAlphabetically() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ReassignRollsAlphabetically() = %d, want %d", n, 2)
	}

	for id, want := range map[string]string{b.ID: "1", a.ID: "2", other.ID: "7"} {
		st, _ := store.GetStudent(ctx, id)
		if st.RollNo != want {
			t.Errorf("student %s roll = %q, want %q", st.Name, st.RollNo, want)
		}
	}
}

func TestNormalizeSections(t *testing.T) {
	tests := []struct {
		raw     string
		want    []string
		wantErr bool
	}{
		{raw: "a, b ,,A", want: []string{"A", "B"}},
		{raw: "C", want: []string{"C"}},
		{raw: " , ,", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeSections(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeSections() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_CreateClass(t *testing.T) {
	ctx := context.Background()
	store, _ := testutil.NewStore(t)
	svc := NewService(store, logsvc.NewDiscardLogger())

	cls, err := svc.CreateClass(ctx, NewClass{Name: " 7 ", Sections: "b,a"})
	if err != nil {
		t.Fatalf("CreateClass() error = %v", err)
	}
	assert.Equal(t, "7", cls.Name)
	assert.Equal(t, []string{"B", "A"}, cls.Sections)

	_, err = svc.CreateClass(ctx, NewClass{Name: "7", Sections: "C"})
	if _, ok := errors.Cause(err).(*core.ConflictError); !ok {
		t.Errorf("CreateClass() duplicate error = %v, want *core.ConflictError", err)
	}
	_, err = svc.CreateClass(ctx, NewClass{Name: "8", Sections: ","})
	assert.True(t, isValidationError(err))

	classes, _ := store.ListClasses(ctx)
	assert.Len(t, classes, 1)
}

func TestRequest_Validate(t *testing.T) {
	validate, _ := core.NewValidator()

	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{name: "valid", req: Request{From: "5", To: "6"}},
		{name: "same", req: Request{From: "5", To: " 5"}, wantErr: true},
		{name: "blank", req: Request{From: " ", To: "6"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(validate); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
