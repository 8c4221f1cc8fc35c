// Package attendance records daily attendance of a class section or of the teaching staff.
package attendance

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/aggregate"
	"github.com/trezcool/vidyaverse/core/school"
)

type (
	SaveRequest struct {
		Date    string            `json:"date" validate:"required"`
		Kind    string            `json:"kind" validate:"oneof=student teacher"`
		Class   string            `json:"class" validate:"required_if=Kind student"`
		Section string            `json:"section"`
		Marks   map[string]string `json:"marks" validate:"dive,oneof=present absent"` // person id -> status
	}

	// Person is a member of an attendance roster.
	Person struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		RollNo     string `json:"roll_no,omitempty"`
		ClassLabel string `json:"class_label,omitempty"`
	}

	Service struct {
		repo   school.Repository
		logger core.Logger
	}
)

func (r *SaveRequest) Clean() {
	r.Date = core.CleanString(r.Date)
	r.Kind = core.CleanString(r.Kind, true /* lower */)
	r.Class = core.CleanString(r.Class)
	r.Section = core.CleanString(r.Section)
}

func (r *SaveRequest) Validate(validate *validator.Validate) error {
	r.Clean()
	return validate.Struct(r)
}

// MarkAll marks every member of roster with status, overriding previous marks.
func (r *SaveRequest) MarkAll(roster []Person, status string) {
	r.Marks = make(map[string]string, len(roster))
	for _, p := range roster {
		r.Marks[p.ID] = status
	}
}

func NewService(repo school.Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Roster lists who must be marked: the active students of a class section, or the active teachers.
func (svc *Service) Roster(ctx context.Context, kind, class, section string) ([]Person, error) {
	var roster []Person
	switch kind {
	case school.KindStudent:
		if class == "" || class == school.AllClasses {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "class", Error: "this field is required"})
		}
		students, err := svc.repo.ListStudents(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "loading students")
		}
		for _, st := range (school.Snapshot{Students: students}).StudentsOf(class, section) {
			roster = append(roster, Person{ID: st.ID, Name: st.Name, RollNo: st.RollNo, ClassLabel: st.ClassLabel()})
		}
	case school.KindTeacher:
		teachers, err := svc.repo.ListTeachers(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "loading teachers")
		}
		for _, t := range (school.Snapshot{Teachers: teachers}).ActiveTeachers() {
			roster = append(roster, Person{ID: t.ID, Name: t.Name})
		}
	default:
		return nil, core.NewValidationError(nil, core.FieldError{Field: "kind", Error: "must be one of student, teacher"})
	}
	return roster, nil
}

// Save upserts one record per roster member for the day; a second save of the same day replaces the first.
// every member must be marked, and only members may be.
func (svc *Service) Save(ctx context.Context, req SaveRequest) (aggregate.AttendanceCounts, error) {
	req.Clean()
	date, err := core.ParseDate("date", req.Date)
	if err != nil {
		return aggregate.AttendanceCounts{}, err
	}
	roster, err := svc.Roster(ctx, req.Kind, req.Class, req.Section)
	if err != nil {
		return aggregate.AttendanceCounts{}, err
	}
	if err := checkMarks(roster, req.Marks); err != nil {
		return aggregate.AttendanceCounts{}, err
	}

	var counts aggregate.AttendanceCounts
	batch := &core.PartialBatchFailure{Op: fmt.Sprintf("save %s attendance of %s", req.Kind, date.Format(core.DateLayout))}
	for _, p := range roster {
		rec := school.AttendanceRecord{
			PersonID:   p.ID,
			PersonKind: req.Kind,
			Date:       date,
			Status:     req.Marks[p.ID],
			ClassLabel: p.ClassLabel,
		}
		if err := svc.repo.UpsertAttendance(ctx, rec); err != nil {
			batch.Failed = append(batch.Failed, core.BatchItemError{ID: p.ID, Err: err})
			continue
		}
		batch.Succeeded = append(batch.Succeeded, p.ID)
		if rec.Status == school.Present {
			counts.Present++
		} else {
			counts.Absent++
		}
	}

	if len(batch.Failed) > 0 {
		svc.logger.Warn(batch.Error(), batch)
		return counts, batch
	}
	svc.logger.Info(fmt.Sprintf("%s: %d present, %d absent", batch.Op, counts.Present, counts.Absent))
	return counts, nil
}

func checkMarks(roster []Person, marks map[string]string) error {
	members := make(map[string]bool, len(roster))
	var remaining int
	for _, p := range roster {
		members[p.ID] = true
		switch marks[p.ID] {
		case school.Present, school.Absent:
		case "":
			remaining++
		default:
			return core.NewValidationError(nil, core.FieldError{
				Field: "marks", Error: fmt.Sprintf("invalid status %q for %s", marks[p.ID], p.Name),
			})
		}
	}
	for id := range marks {
		if !members[id] {
			return core.NewValidationError(nil, core.FieldError{Field: "marks", Error: "unknown person " + id})
		}
	}
	if remaining > 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "marks", Error: fmt.Sprintf("please mark attendance for all. %d remaining", remaining),
		})
	}
	return nil
}
