package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/user"
)

type reportRepository struct {
	exec core.DBExecutor
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(exec core.DBExecutor) *reportRepository {
	return &reportRepository{exec: exec}
}

var adminCountsQuery = `
SELECT (SELECT COUNT(*) FROM students WHERE status = 'active')                          AS total_students,
       (SELECT COUNT(*) FROM users WHERE ? = ANY (roles) AND deleted_at IS NULL)        AS total_teachers,
       (SELECT COUNT(*) FROM classes WHERE is_active)                                   AS total_classes,
       (SELECT COUNT(*) FROM subjects WHERE is_active)                                  AS total_subjects`

var classStatsQuery = `
SELECT c.id,
       c.name,
       c.grade,
       c.academic_year,
       c.max_students,
       (SELECT COUNT(*) FROM students s WHERE s.class_id = c.id AND s.status = 'active') AS student_count
FROM classes c
WHERE c.is_active
ORDER BY c.grade, c.name`

func (repo reportRepository) AdminDashboard(ctx context.Context) (report.AdminDashboard, error) {
	ex := repo.exec

	var counts struct {
		TotalStudents int `db:"total_students"`
		TotalTeachers int `db:"total_teachers"`
		TotalClasses  int `db:"total_classes"`
		TotalSubjects int `db:"total_subjects"`
	}
	if err := sqlx.GetContext(ctx, ex, &counts, ex.Rebind(adminCountsQuery), user.RoleTeacher); err != nil {
		return report.AdminDashboard{}, errors.Wrap(err, "counting school totals")
	}

	var stats []struct {
		ID           string `db:"id"`
		Name         string `db:"name"`
		Grade        int    `db:"grade"`
		AcademicYear string `db:"academic_year"`
		MaxStudents  int    `db:"max_students"`
		StudentCount int    `db:"student_count"`
	}
	if err := sqlx.SelectContext(ctx, ex, &stats, classStatsQuery); err != nil {
		return report.AdminDashboard{}, errors.Wrap(err, "counting class enrollments")
	}

	dash := report.AdminDashboard{
		TotalStudents: counts.TotalStudents,
		TotalTeachers: counts.TotalTeachers,
		TotalClasses:  counts.TotalClasses,
		TotalSubjects: counts.TotalSubjects,
		Classes:       make([]report.ClassStat, 0, len(stats)),
	}
	for _, st := range stats {
		dash.Classes = append(dash.Classes, report.ClassStat{
			ID:           st.ID,
			Name:         st.Name,
			Grade:        st.Grade,
			AcademicYear: st.AcademicYear,
			StudentCount: st.StudentCount,
			MaxStudents:  st.MaxStudents,
		})
	}
	return dash, nil
}

var teacherDashQuery = `
SELECT (SELECT COUNT(DISTINCT class_id) FROM schedules WHERE teacher_id = ? AND is_active)  AS class_count,
       (SELECT COUNT(*)
        FROM students
        WHERE status = 'active'
          AND class_id IN (SELECT DISTINCT class_id FROM schedules WHERE teacher_id = ? AND is_active)) AS student_count,
       (SELECT COUNT(*) FROM grades WHERE teacher_id = ?)                                   AS grades_given,
       (SELECT COALESCE(AVG(final_grade), 0) FROM grades WHERE teacher_id = ?)              AS average_grade`

func (repo reportRepository) TeacherDashboard(ctx context.Context, teacherUserID string) (report.TeacherDashboard, error) {
	ex := repo.exec

	var row struct {
		ClassCount   int     `db:"class_count"`
		StudentCount int     `db:"student_count"`
		GradesGiven  int     `db:"grades_given"`
		AverageGrade float64 `db:"average_grade"`
	}
	err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(teacherDashQuery),
		teacherUserID, teacherUserID, teacherUserID, teacherUserID)
	if err != nil {
		return report.TeacherDashboard{}, errors.Wrap(err, "summing teacher footprint")
	}
	return report.TeacherDashboard{
		ClassCount:   row.ClassCount,
		StudentCount: row.StudentCount,
		GradesGiven:  row.GradesGiven,
		AverageGrade: core.Round2(row.AverageGrade),
	}, nil
}

var studentDashQuery = `
SELECT (SELECT COUNT(*) FROM grades WHERE student_id = ?)                                   AS grade_count,
       (SELECT COALESCE(AVG(final_grade), 0) FROM grades WHERE student_id = ?)              AS grade_average,
       (SELECT COUNT(*) FROM attendances WHERE student_id = ?)                              AS attendance_total,
       (SELECT COUNT(*) FROM attendances WHERE student_id = ? AND status = 'present')       AS attendance_present`

func (repo reportRepository) StudentDashboard(ctx context.Context, studentID string) (report.StudentDashboard, error) {
	ex := repo.exec

	var row struct {
		GradeCount        int     `db:"grade_count"`
		GradeAverage      float64 `db:"grade_average"`
		AttendanceTotal   int     `db:"attendance_total"`
		AttendancePresent int     `db:"attendance_present"`
	}
	err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(studentDashQuery),
		studentID, studentID, studentID, studentID)
	if err != nil {
		return report.StudentDashboard{}, errors.Wrap(err, "summing student record")
	}

	dash := report.StudentDashboard{
		GradeCount:        row.GradeCount,
		GradeAverage:      core.Round2(row.GradeAverage),
		AttendanceTotal:   row.AttendanceTotal,
		AttendancePresent: row.AttendancePresent,
	}
	if dash.AttendanceTotal > 0 {
		dash.AttendancePercentage = core.Round2(100 * float64(dash.AttendancePresent) / float64(dash.AttendanceTotal))
	}
	return dash, nil
}
