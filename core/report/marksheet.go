package report

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

var errInvalidMarks = errors.New("invalid marks")

type (
	// SubjectMarks are the marks of one subject; a subject without practical exam leaves PracticalMax at 0.
	SubjectMarks struct {
		Subject           string `json:"subject" validate:"required"`
		TheoryMax         int    `json:"theory_max" validate:"min=0"`
		TheoryObtained    int    `json:"theory_obtained" validate:"min=0"`
		PracticalMax      int    `json:"practical_max" validate:"min=0"`
		PracticalObtained int    `json:"practical_obtained" validate:"min=0"`
	}

	MarksheetRequest struct {
		StudentID   string         `json:"student_id" validate:"required"`
		Exam        string         `json:"exam" validate:"required"`
		Subjects    []SubjectMarks `json:"subjects" validate:"required,min=1,dive"`
		Orientation string         `json:"orientation" validate:"omitempty,oneof=portrait landscape"`
	}
)

func (sm SubjectMarks) max() int      { return sm.TheoryMax + sm.PracticalMax }
func (sm SubjectMarks) obtained() int { return sm.TheoryObtained + sm.PracticalObtained }

func (req *MarksheetRequest) Clean() {
	req.StudentID = core.CleanString(req.StudentID)
	req.Exam = core.CleanString(req.Exam)
	req.Orientation = core.CleanString(req.Orientation, true /* lower */)
	for i := range req.Subjects {
		req.Subjects[i].Subject = core.CleanString(req.Subjects[i].Subject)
	}
}

func (req *MarksheetRequest) Validate(validate *validator.Validate) error {
	req.Clean()
	return validate.Struct(req)
}

// checkMarks reports every subject whose obtained marks exceed its maximum, or that can not be scored.
func checkMarks(subjects []SubjectMarks) error {
	if len(subjects) == 0 {
		return core.NewValidationError(errInvalidMarks, core.FieldError{Field: "subjects", Error: "at least one subject is required"})
	}

	var fields []core.FieldError
	for i, sm := range subjects {
		field := func(name string) string { return fmt.Sprintf("subjects[%d].%s", i, name) }
		switch {
		case sm.Subject == "":
			fields = append(fields, core.FieldError{Field: field("subject"), Error: "this field is required"})
		case sm.TheoryMax < 0 || sm.PracticalMax < 0 || sm.TheoryObtained < 0 || sm.PracticalObtained < 0:
			fields = append(fields, core.FieldError{Field: field("marks"), Error: "marks must not be negative"})
		case sm.max() == 0:
			fields = append(fields, core.FieldError{Field: field("theory_max"), Error: "maximum marks must be greater than 0"})
		}
		if sm.TheoryObtained > sm.TheoryMax {
			fields = append(fields, core.FieldError{Field: field("theory_obtained"), Error: "must not exceed the theory maximum"})
		}
		if sm.PracticalObtained > sm.PracticalMax {
			fields = append(fields, core.FieldError{Field: field("practical_obtained"), Error: "must not exceed the practical maximum"})
		}
	}
	if len(fields) > 0 {
		return core.NewValidationError(errInvalidMarks, fields...)
	}
	return nil
}

func percentage(obtained, outOf int) decimal.Decimal {
	if outOf == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(obtained)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(outOf))).Round(2)
}

// Marksheet lists the theory, practical and total marks of every subject in input order,
// with the grand total and the overall percentage in the footer.
func Marksheet(st school.Student, exam string, subjects []SubjectMarks) (Table, error) {
	if err := checkMarks(subjects); err != nil {
		return Table{}, err
	}

	title := fmt.Sprintf("Marksheet - %s - %s (%s", exam, st.Name, st.ClassLabel())
	if st.RollNo != "" {
		title += ", Roll " + st.RollNo
	}
	t := Table{
		Title:       title + ")",
		Orientation: Portrait,
		Columns: []Column{
			col("Subject", Text),
			col("Theory Max", Int), col("Theory Obtained", Int),
			col("Practical Max", Int), col("Practical Obtained", Int),
			col("Total Max", Int), col("Total Obtained", Int), col("Percentage", Percent),
		},
		Rows: make([][]Cell, 0, len(subjects)),
	}

	var sum SubjectMarks
	for _, sm := range subjects {
		sum.TheoryMax += sm.TheoryMax
		sum.TheoryObtained += sm.TheoryObtained
		sum.PracticalMax += sm.PracticalMax
		sum.PracticalObtained += sm.PracticalObtained
		t.Rows = append(t.Rows, marksRow(TextCell(sm.Subject), sm))
	}
	t.Footer = marksRow(TextCell("Grand Total"), sum)
	return t, nil
}

func marksRow(label Cell, sm SubjectMarks) []Cell {
	return []Cell{
		label,
		IntCell(sm.TheoryMax), IntCell(sm.TheoryObtained),
		IntCell(sm.PracticalMax), IntCell(sm.PracticalObtained),
		IntCell(sm.max()), IntCell(sm.obtained()), PercentCell(percentage(sm.obtained(), sm.max())),
	}
}

// Marksheet builds the marksheet of req.StudentID; it fails with school.ErrStudentNotFound for an unknown student.
func (svc *Service) Marksheet(ctx context.Context, req MarksheetRequest) (Table, error) {
	req.Clean()
	if req.Exam == "" {
		return Table{}, requiredField("exam")
	}
	if err := checkOrientation(req.Orientation); err != nil {
		return Table{}, err
	}
	if err := checkMarks(req.Subjects); err != nil {
		return Table{}, err
	}

	st, err := svc.repo.GetStudent(ctx, req.StudentID)
	if err != nil {
		return Table{}, errors.Wrap(err, "loading student")
	}
	profile, err := svc.repo.GetSchoolProfile(ctx)
	if err != nil {
		return Table{}, errors.Wrap(err, "loading school profile")
	}

	t, err := Marksheet(st, req.Exam, req.Subjects)
	if err != nil {
		return Table{}, err
	}
	t.Subtitle = profile.Name
	if req.Orientation != "" {
		t.Orientation = req.Orientation
	}
	return t, nil
}
