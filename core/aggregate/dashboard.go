package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/vidyaverse/core/school"
)

type DashboardSummary struct {
	TotalStudents     int                  `json:"total_students"`
	TotalTeachers     int                  `json:"total_teachers"`
	FeesCollected     decimal.Decimal      `json:"fees_collected"`
	FeesPending       decimal.Decimal      `json:"fees_pending"`
	ByClass           map[string]ClassFees `json:"by_class"`
	Attendance        AttendanceCounts     `json:"attendance"`
	TeacherAttendance AttendanceCounts     `json:"teacher_attendance"`
}

// Dashboard summarizes snap for the given day.
// fee totals run over every student; class breakdown, head counts and attendance over active people only.
func Dashboard(snap school.Snapshot, today time.Time) DashboardSummary {
	sum := DashboardSummary{ByClass: make(map[string]ClassFees)}

	var studentIDs, teacherIDs []string
	for _, st := range snap.Students {
		sum.FeesCollected = sum.FeesCollected.Add(st.FeesPaid)
		sum.FeesPending = sum.FeesPending.Add(st.Pending())
		if st.IsActive() {
			sum.TotalStudents++
			studentIDs = append(studentIDs, st.ID)
		}
	}
	for _, t := range snap.ActiveTeachers() {
		sum.TotalTeachers++
		teacherIDs = append(teacherIDs, t.ID)
	}
	for class, cf := range FeesSummaryByClass(snap.Students) {
		sum.ByClass["Class "+class] = cf
	}
	sum.Attendance = AttendanceSummary(snap.Attendance, studentIDs, today)
	sum.TeacherAttendance = AttendanceSummary(snap.Attendance, teacherIDs, today)
	return sum
}
