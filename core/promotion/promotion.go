// Package promotion moves students between classes and maintains class sections and roll numbers.
// batch writes are best effort, one record at a time, in ledger order: failures never stop the batch
// and are reported as a *core.PartialBatchFailure so the operation can be resumed.
package promotion

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

type (
	Request struct {
		From string `json:"from" validate:"notblank"`
		To   string `json:"to" validate:"notblank,nefield=From"`
	}

	NewClass struct {
		Name     string `json:"name" validate:"notblank"`
		Sections string `json:"sections" validate:"notblank"` // comma separated: "A, B, C"
	}

	Service struct {
		repo   school.Repository
		logger core.Logger
	}
)

func (r *Request) Clean() {
	r.From = core.CleanString(r.From)
	r.To = core.CleanString(r.To)
}

func (r *Request) Validate(validate *validator.Validate) error {
	r.Clean()
	return validate.Struct(r)
}

func (c *NewClass) Validate(validate *validator.Validate) error {
	c.Name = core.CleanString(c.Name)
	return validate.Struct(c)
}

func NewService(repo school.Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Promote moves every student of class from (any status) to class to, clearing their section.
// it is rejected before any write when from == to or when from has no students.
func (svc *Service) Promote(ctx context.Context, from, to string) ([]string, error) {
	from, to = core.CleanString(from), core.CleanString(to)
	if from == "" || to == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "from", Error: "source and destination classes are required"})
	}
	if from == to {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "source and destination classes must be different"})
	}

	students, err := svc.repo.ListStudents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading students")
	}
	var movers []school.Student
	for _, st := range students {
		if st.Class == from {
			movers = append(movers, st)
		}
	}
	if len(movers) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "from", Error: fmt.Sprintf("no students found in class %s", from)})
	}

	batch := &core.PartialBatchFailure{Op: "promote " + from + " -> " + to}
	for _, st := range movers {
		st.Class = to
		st.Section = ""
		if _, err := svc.repo.UpdateStudent(ctx, st); err != nil {
			batch.Failed = append(batch.Failed, core.BatchItemError{ID: st.ID, Err: err})
			continue
		}
		batch.Succeeded = append(batch.Succeeded, st.ID)
	}
	return batch.Succeeded, svc.finish(batch)
}

// ReassignRolls sets the roll numbers of the active students of a class section from rolls (id -> roll).
// students missing from rolls keep theirs; only students whose roll changes are written.
func (svc *Service) ReassignRolls(ctx context.Context, class, section string, rolls map[string]string) (int, error) {
	seen := make(map[string]string, len(rolls))
	ids := make([]string, 0, len(rolls))
	for id := range rolls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		roll := core.CleanString(rolls[id])
		if roll == "" {
			continue
		}
		if other, ok := seen[roll]; ok {
			return 0, core.NewValidationError(
				errors.Errorf("roll %s assigned to both %s and %s", roll, other, id),
				core.FieldError{Field: "rolls", Error: "duplicate roll number " + roll},
			)
		}
		seen[roll] = id
	}

	students, err := svc.repo.ListStudents(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "loading students")
	}
	snap := school.Snapshot{Students: students}
	members := snap.StudentsOf(class, section)
	if len(members) == 0 {
		return 0, core.NewValidationError(nil, core.FieldError{
			Field: "class", Error: "no active students in " + school.ClassLabel(class, section),
		})
	}

	batch := &core.PartialBatchFailure{Op: "reassign rolls of " + school.ClassLabel(class, section)}
	for _, st := range members {
		roll, ok := rolls[st.ID]
		if !ok || core.CleanString(roll) == st.RollNo {
			continue
		}
		st.RollNo = core.CleanString(roll)
		if _, err := svc.repo.UpdateStudent(ctx, st); err != nil {
			batch.Failed = append(batch.Failed, core.BatchItemError{ID: st.ID, Err: err})
			continue
		}
		batch.Succeeded = append(batch.Succeeded, st.ID)
	}
	return len(batch.Succeeded), svc.finish(batch)
}

// AlphabeticalRolls numbers students 1..n by name (case-insensitive).
func AlphabeticalRolls(students []school.Student) map[string]string {
	sorted := append([]school.Student(nil), students...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})
	rolls := make(map[string]string, len(sorted))
	for i, st := range sorted {
		rolls[st.ID] = strconv.Itoa(i + 1)
	}
	return rolls
}

// ReassignRollsAlphabetically numbers the active students of a class section 1..n by name.
func (svc *Service) ReassignRollsAlphabetically(ctx context.Context, class, section string) (int, error) {
	students, err := svc.repo.ListStudents(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "loading students")
	}
	snap := school.Snapshot{Students: students}
	return svc.ReassignRolls(ctx, class, section, AlphabeticalRolls(snap.StudentsOf(class, section)))
}

// NormalizeSections parses a comma separated list of sections: trimmed, upper-cased, deduplicated, in input order.
func NormalizeSections(raw string) ([]string, error) {
	var sections []string
	seen := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "sections", Error: "at least one section is required"})
	}
	return sections, nil
}

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (school.SchoolClass, error) {
	name := core.CleanString(nc.Name)
	if name == "" {
		return school.SchoolClass{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}
	sections, err := NormalizeSections(nc.Sections)
	if err != nil {
		return school.SchoolClass{}, err
	}
	cls, err := svc.repo.CreateClass(ctx, school.SchoolClass{Name: name, Sections: sections})
	if err != nil {
		return school.SchoolClass{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (svc *Service) finish(batch *core.PartialBatchFailure) error {
	if len(batch.Failed) > 0 {
		svc.logger.Warn(batch.Error(), batch)
		return batch
	}
	svc.logger.Info(fmt.Sprintf("%s: %d records updated", batch.Op, len(batch.Succeeded)))
	return nil
}
