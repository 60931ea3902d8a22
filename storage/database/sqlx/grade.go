package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grade"
)

type gradeRepository struct {
	exec core.DBExecutor
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(exec core.DBExecutor) *gradeRepository {
	return &gradeRepository{exec: exec}
}

func (repo gradeRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type gradeRow struct {
	ID           string       `db:"id"`
	StudentID    string       `db:"student_id"`
	SubjectID    string       `db:"subject_id"`
	TeacherID    string       `db:"teacher_id"`
	Semester     int          `db:"semester"`
	AcademicYear string       `db:"academic_year"`
	DailyScore   null.Float64 `db:"daily_score"`
	MidtermScore null.Float64 `db:"midterm_score"`
	FinalScore   null.Float64 `db:"final_score"`
	FinalGrade   float64      `db:"final_grade"`
	GradeLetter  string       `db:"grade_letter"`
	Notes        null.String  `db:"notes"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (repo gradeRepository) toRow(g grade.Grade) gradeRow {
	return gradeRow{
		ID:           g.ID,
		StudentID:    g.StudentID,
		SubjectID:    g.SubjectID,
		TeacherID:    g.TeacherID,
		Semester:     g.Semester,
		AcademicYear: g.AcademicYear,
		DailyScore:   g.DailyScore,
		MidtermScore: g.MidtermScore,
		FinalScore:   g.FinalScore,
		FinalGrade:   g.FinalGrade,
		GradeLetter:  g.GradeLetter,
		Notes:        g.Notes,
		CreatedAt:    g.CreatedAt.UTC(),
		UpdatedAt:    g.UpdatedAt.UTC(),
	}
}

func (repo gradeRepository) fromRow(row gradeRow) grade.Grade {
	return grade.Grade{
		ID:           row.ID,
		StudentID:    row.StudentID,
		SubjectID:    row.SubjectID,
		TeacherID:    row.TeacherID,
		Semester:     row.Semester,
		AcademicYear: row.AcademicYear,
		DailyScore:   row.DailyScore,
		MidtermScore: row.MidtermScore,
		FinalScore:   row.FinalScore,
		FinalGrade:   row.FinalGrade,
		GradeLetter:  row.GradeLetter,
		Notes:        row.Notes,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to grade.ErrNotFound
func (repo gradeRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return grade.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

var gradeInsertQuery = `
INSERT INTO grades (id, student_id, subject_id, teacher_id, semester, academic_year, daily_score, midterm_score, final_score, final_grade, grade_letter, notes, created_at, updated_at)
VALUES (:id, :student_id, :subject_id, :teacher_id, :semester, :academic_year, :daily_score, :midterm_score, :final_score, :final_grade, :grade_letter, :notes, :created_at, :updated_at)`

func (repo gradeRepository) CreateGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), gradeInsertQuery, repo.toRow(g)); err != nil {
		return grade.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return g, nil
}

func (repo gradeRepository) GetGrade(ctx context.Context, filter grade.GetFilter, exec ...core.DBExecutor) (grade.Grade, error) {
	ex := repo.getExec(exec)
	if filter.ID == "" {
		return grade.Grade{}, grade.ErrNotFound
	}

	var row gradeRow
	query := `SELECT * FROM grades WHERE id = ?`
	if err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(query), filter.ID); err != nil {
		return grade.Grade{}, repo.trapNoRowsErr(err, "finding grade")
	}
	return repo.fromRow(row), nil
}

// gradeFilterConds renders the WHERE conditions shared by FilterGrades and AverageFinalGrade.
// The class filter goes through the students table; grades do not carry a class.
func gradeFilterConds(filter grade.QueryFilter) ([]string, []interface{}) {
	conds := []string{"TRUE"}
	var args []interface{}
	if filter.StudentID != "" {
		conds = append(conds, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		conds = append(conds, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.TeacherID != "" {
		conds = append(conds, "teacher_id = ?")
		args = append(args, filter.TeacherID)
	}
	if filter.ClassID != "" {
		conds = append(conds, "student_id IN (SELECT id FROM students WHERE class_id = ?)")
		args = append(args, filter.ClassID)
	}
	if filter.Semester != 0 {
		conds = append(conds, "semester = ?")
		args = append(args, filter.Semester)
	}
	if filter.AcademicYear != "" {
		conds = append(conds, "academic_year = ?")
		args = append(args, filter.AcademicYear)
	}
	return conds, args
}

var gradeOrderColumns = map[string]string{
	"semester":      "semester",
	"academic_year": "academic_year",
	"final_grade":   "final_grade",
	"grade_letter":  "grade_letter",
	"created_at":    "created_at",
	"updated_at":    "updated_at",
}

func (repo gradeRepository) FilterGrades(ctx context.Context, filter grade.QueryFilter, orderings ...core.DBOrdering) ([]grade.Grade, error) {
	ex := repo.exec

	conds, args := gradeFilterConds(filter)
	query := fmt.Sprintf(`SELECT * FROM grades WHERE %s ORDER BY %s`, strings.Join(conds, " AND "), orderBy(orderings, gradeOrderColumns, "created_at DESC"))

	var rows []gradeRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering grades")
	}
	grades := make([]grade.Grade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, repo.fromRow(row))
	}
	return grades, nil
}

var gradeUpdateQuery = `
UPDATE grades
SET semester      = :semester,
    academic_year = :academic_year,
    daily_score   = :daily_score,
    midterm_score = :midterm_score,
    final_score   = :final_score,
    final_grade   = :final_grade,
    grade_letter  = :grade_letter,
    notes         = :notes,
    updated_at    = :updated_at
WHERE id = :id`

func (repo gradeRepository) UpdateGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), gradeUpdateQuery, repo.toRow(g))
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "updating grade")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return grade.Grade{}, grade.ErrNotFound
	}
	return g, nil
}

func (repo gradeRepository) DeleteGradesByID(ctx context.Context, exec core.DBExecutor, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM grades WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting grades")
	}
	if _, err = exec.ExecContext(ctx, exec.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting grades")
	}
	return nil
}

func (repo gradeRepository) AverageFinalGrade(ctx context.Context, filter grade.QueryFilter, exec ...core.DBExecutor) (float64, error) {
	ex := repo.getExec(exec)

	conds, args := gradeFilterConds(filter)
	query := fmt.Sprintf(`SELECT COALESCE(AVG(final_grade), 0) FROM grades WHERE %s`, strings.Join(conds, " AND "))

	var avg float64
	if err := sqlx.GetContext(ctx, ex, &avg, ex.Rebind(query), args...); err != nil {
		return 0, errors.Wrap(err, "averaging grades")
	}
	return avg, nil
}
