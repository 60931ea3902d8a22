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
	"github.com/trezcool/shule/core/classroom"
)

type classRoomRepository struct {
	exec core.DBExecutor
}

var _ classroom.Repository = (*classRoomRepository)(nil) // interface compliance check

func NewClassRoomRepository(exec core.DBExecutor) *classRoomRepository {
	return &classRoomRepository{exec: exec}
}

func (repo classRoomRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type classRoomRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Grade        int         `db:"grade"`
	TeacherID    null.String `db:"teacher_id"`
	MaxStudents  int         `db:"max_students"`
	AcademicYear string      `db:"academic_year"`
	IsActive     bool        `db:"is_active"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (repo classRoomRepository) toRow(cls classroom.ClassRoom) classRoomRow {
	return classRoomRow{
		ID:           cls.ID,
		Name:         cls.Name,
		Grade:        cls.Grade,
		TeacherID:    cls.TeacherID,
		MaxStudents:  cls.MaxStudents,
		AcademicYear: cls.AcademicYear,
		IsActive:     cls.IsActive,
		CreatedAt:    cls.CreatedAt.UTC(),
		UpdatedAt:    cls.UpdatedAt.UTC(),
	}
}

func (repo classRoomRepository) fromRow(row classRoomRow) classroom.ClassRoom {
	return classroom.ClassRoom{
		ID:           row.ID,
		Name:         row.Name,
		Grade:        row.Grade,
		TeacherID:    row.TeacherID,
		MaxStudents:  row.MaxStudents,
		AcademicYear: row.AcademicYear,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to classroom.ErrNotFound
func (repo classRoomRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return classroom.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

var classRoomInsertQuery = `
INSERT INTO classes (id, name, grade, teacher_id, max_students, academic_year, is_active, created_at, updated_at)
VALUES (:id, :name, :grade, :teacher_id, :max_students, :academic_year, :is_active, :created_at, :updated_at)`

func (repo classRoomRepository) CreateClassRoom(ctx context.Context, cls classroom.ClassRoom, exec ...core.DBExecutor) (classroom.ClassRoom, error) {
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), classRoomInsertQuery, repo.toRow(cls)); err != nil {
		return classroom.ClassRoom{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo classRoomRepository) GetClassRoom(ctx context.Context, filter classroom.GetFilter, exec ...core.DBExecutor) (classroom.ClassRoom, error) {
	ex := repo.getExec(exec)
	if filter.ID == "" {
		return classroom.ClassRoom{}, classroom.ErrNotFound
	}

	var row classRoomRow
	query := `SELECT * FROM classes WHERE id = ?`
	if err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(query), filter.ID); err != nil {
		return classroom.ClassRoom{}, repo.trapNoRowsErr(err, "finding class")
	}
	return repo.fromRow(row), nil
}

var classRoomOrderColumns = map[string]string{
	"name":          "name",
	"grade":         "grade",
	"academic_year": "academic_year",
	"max_students":  "max_students",
	"is_active":     "is_active",
	"created_at":    "created_at",
}

func (repo classRoomRepository) FilterClassRooms(ctx context.Context, filter classroom.QueryFilter, orderings ...core.DBOrdering) ([]classroom.ClassRoom, error) {
	ex := repo.exec

	conds := []string{"TRUE"}
	var args []interface{}
	if filter.Search != "" {
		conds = append(conds, "name ILIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Grade != 0 {
		conds = append(conds, "grade = ?")
		args = append(args, filter.Grade)
	}
	if filter.TeacherID != "" {
		conds = append(conds, "teacher_id = ?")
		args = append(args, filter.TeacherID)
	}
	if filter.AcademicYear != "" {
		conds = append(conds, "academic_year = ?")
		args = append(args, filter.AcademicYear)
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	query := fmt.Sprintf(`SELECT * FROM classes WHERE %s ORDER BY %s`, strings.Join(conds, " AND "), orderBy(orderings, classRoomOrderColumns, "grade, name"))

	var rows []classRoomRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering classes")
	}
	classes := make([]classroom.ClassRoom, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, repo.fromRow(row))
	}
	return classes, nil
}

var classRoomUpdateQuery = `
UPDATE classes
SET name          = :name,
    grade         = :grade,
    teacher_id    = :teacher_id,
    max_students  = :max_students,
    academic_year = :academic_year,
    is_active     = :is_active,
    updated_at    = :updated_at
WHERE id = :id`

func (repo classRoomRepository) UpdateClassRoom(ctx context.Context, cls classroom.ClassRoom, exec ...core.DBExecutor) (classroom.ClassRoom, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), classRoomUpdateQuery, repo.toRow(cls))
	if err != nil {
		return classroom.ClassRoom{}, errors.Wrap(err, "updating class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classroom.ClassRoom{}, classroom.ErrNotFound
	}
	return cls, nil
}

func (repo classRoomRepository) DeleteClassRoomsByID(ctx context.Context, exec core.DBExecutor, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM classes WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting classes")
	}
	if _, err = exec.ExecContext(ctx, exec.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting classes")
	}
	return nil
}

func (repo classRoomRepository) HasActiveHomeroom(ctx context.Context, teacherID string, grade int, academicYear, excludedClassID string, exec ...core.DBExecutor) (bool, error) {
	ex := repo.getExec(exec)
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM classes WHERE teacher_id = ? AND grade = ? AND academic_year = ? AND is_active AND id <> ?)`
	if err := sqlx.GetContext(ctx, ex, &exists, ex.Rebind(query), teacherID, grade, academicYear, excludedClassID); err != nil {
		return false, errors.Wrap(err, "checking homeroom assignment")
	}
	return exists, nil
}
