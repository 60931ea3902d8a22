// Package report serves the derived, read-only dashboard numbers.
package report

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound = errors.New("report subject not found")
)

type (
	// AdminDashboard is the school-wide overview.
	AdminDashboard struct {
		TotalStudents int         `json:"total_students"`
		TotalTeachers int         `json:"total_teachers"`
		TotalClasses  int         `json:"total_classes"`
		TotalSubjects int         `json:"total_subjects"`
		Classes       []ClassStat `json:"classes"`
	}

	ClassStat struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Grade        int    `json:"grade"`
		AcademicYear string `json:"academic_year"`
		StudentCount int    `json:"student_count"`
		MaxStudents  int    `json:"max_students"`
	}

	// TeacherDashboard sums up a teacher's footprint.
	TeacherDashboard struct {
		ClassCount   int     `json:"class_count"` // classes the teacher appears on a schedule of
		StudentCount int     `json:"student_count"`
		GradesGiven  int     `json:"grades_given"`
		AverageGrade float64 `json:"average_grade"`
	}

	// StudentDashboard sums up a student's own record.
	StudentDashboard struct {
		GradeCount           int     `json:"grade_count"`
		GradeAverage         float64 `json:"grade_average"`
		AttendanceTotal      int     `json:"attendance_total"`
		AttendancePresent    int     `json:"attendance_present"`
		AttendancePercentage float64 `json:"attendance_percentage"`
	}

	Repository interface {
		AdminDashboard(ctx context.Context) (AdminDashboard, error)
		TeacherDashboard(ctx context.Context, teacherUserID string) (TeacherDashboard, error)
		StudentDashboard(ctx context.Context, studentID string) (StudentDashboard, error)
	}

	Service interface {
		AdminDashboard(ctx context.Context) (AdminDashboard, error)
		TeacherDashboard(ctx context.Context, teacherUserID string) (TeacherDashboard, error)
		StudentDashboard(ctx context.Context, studentID string) (StudentDashboard, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) AdminDashboard(ctx context.Context) (AdminDashboard, error) {
	return svc.repo.AdminDashboard(ctx)
}

func (svc *service) TeacherDashboard(ctx context.Context, teacherUserID string) (TeacherDashboard, error) {
	return svc.repo.TeacherDashboard(ctx, teacherUserID)
}

func (svc *service) StudentDashboard(ctx context.Context, studentID string) (StudentDashboard, error) {
	return svc.repo.StudentDashboard(ctx, studentID)
}
