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
	"github.com/trezcool/shule/core/subject"
)

type subjectRepository struct {
	exec core.DBExecutor
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(exec core.DBExecutor) *subjectRepository {
	return &subjectRepository{exec: exec}
}

func (repo subjectRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type subjectRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Code        string      `db:"code"`
	Description null.String `db:"description"`
	GradeLevel  int         `db:"grade_level"`
	IsActive    bool        `db:"is_active"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (repo subjectRepository) toRow(sub subject.Subject) subjectRow {
	return subjectRow{
		ID:          sub.ID,
		Name:        sub.Name,
		Code:        sub.Code,
		Description: sub.Description,
		GradeLevel:  sub.GradeLevel,
		IsActive:    sub.IsActive,
		CreatedAt:   sub.CreatedAt.UTC(),
		UpdatedAt:   sub.UpdatedAt.UTC(),
	}
}

func (repo subjectRepository) fromRow(row subjectRow) subject.Subject {
	return subject.Subject{
		ID:          row.ID,
		Name:        row.Name,
		Code:        row.Code,
		Description: row.Description,
		GradeLevel:  row.GradeLevel,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to subject.ErrNotFound
func (repo subjectRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return subject.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo subjectRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedSubjects []subject.Subject, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)

	query := `SELECT EXISTS(SELECT 1 FROM subjects WHERE code = ?)`
	args := []interface{}{code}
	if len(excludedSubjects) > 0 {
		ids := make([]string, 0, len(excludedSubjects))
		for _, sub := range excludedSubjects {
			ids = append(ids, sub.ID)
		}
		q, inArgs, err := sqlx.In(`SELECT EXISTS(SELECT 1 FROM subjects WHERE code = ? AND id NOT IN (?))`, code, ids)
		if err != nil {
			return errors.Wrap(err, "checking subject uniqueness")
		}
		query, args = q, inArgs
	}

	var exists bool
	if err := sqlx.GetContext(ctx, ex, &exists, ex.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking subject uniqueness")
	}
	if exists {
		return subject.ErrCodeExists
	}
	return nil
}

var subjectInsertQuery = `
INSERT INTO subjects (id, name, code, description, grade_level, is_active, created_at, updated_at)
VALUES (:id, :name, :code, :description, :grade_level, :is_active, :created_at, :updated_at)`

func (repo subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject, exec ...core.DBExecutor) (subject.Subject, error) {
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), subjectInsertQuery, repo.toRow(sub)); err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo subjectRepository) GetSubject(ctx context.Context, filter subject.GetFilter, exec ...core.DBExecutor) (subject.Subject, error) {
	ex := repo.getExec(exec)

	var cond string
	var arg interface{}
	switch {
	case filter.ID != "":
		cond, arg = "id = ?", filter.ID
	case filter.Code != "":
		cond, arg = "code = ?", filter.Code
	default:
		return subject.Subject{}, subject.ErrNotFound
	}

	var row subjectRow
	query := fmt.Sprintf(`SELECT * FROM subjects WHERE %s`, cond)
	if err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(query), arg); err != nil {
		return subject.Subject{}, repo.trapNoRowsErr(err, "finding subject")
	}
	return repo.fromRow(row), nil
}

var subjectOrderColumns = map[string]string{
	"name":        "name",
	"code":        "code",
	"grade_level": "grade_level",
	"is_active":   "is_active",
	"created_at":  "created_at",
}

func (repo subjectRepository) FilterSubjects(ctx context.Context, filter subject.QueryFilter, orderings ...core.DBOrdering) ([]subject.Subject, error) {
	ex := repo.exec

	conds := []string{"TRUE"}
	var args []interface{}
	if filter.Search != "" {
		conds = append(conds, "(name ILIKE ? OR code ILIKE ?)")
		search := "%" + filter.Search + "%"
		args = append(args, search, search)
	}
	if filter.GradeLevel != 0 {
		conds = append(conds, "grade_level = ?")
		args = append(args, filter.GradeLevel)
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	query := fmt.Sprintf(`SELECT * FROM subjects WHERE %s ORDER BY %s`, strings.Join(conds, " AND "), orderBy(orderings, subjectOrderColumns, "grade_level, name"))

	var rows []subjectRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering subjects")
	}
	subjects := make([]subject.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, repo.fromRow(row))
	}
	return subjects, nil
}

var subjectUpdateQuery = `
UPDATE subjects
SET name        = :name,
    code        = :code,
    description = :description,
    grade_level = :grade_level,
    is_active   = :is_active,
    updated_at  = :updated_at
WHERE id = :id`

func (repo subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject, exec ...core.DBExecutor) (subject.Subject, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), subjectUpdateQuery, repo.toRow(sub))
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}
	return sub, nil
}

func (repo subjectRepository) DeleteSubjectsByID(ctx context.Context, exec core.DBExecutor, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM subjects WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting subjects")
	}
	if _, err = exec.ExecContext(ctx, exec.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting subjects")
	}
	return nil
}

func (repo subjectRepository) HasGrades(ctx context.Context, subjectID string, exec ...core.DBExecutor) (bool, error) {
	ex := repo.getExec(exec)
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM grades WHERE subject_id = ?)`
	if err := sqlx.GetContext(ctx, ex, &exists, ex.Rebind(query), subjectID); err != nil {
		return false, errors.Wrap(err, "checking subject grades")
	}
	return exists, nil
}
