package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

type attendanceRepository struct {
	exec core.DBExecutor
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{exec: exec}
}

func (repo attendanceRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type attendanceRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	SubjectID string      `db:"subject_id"`
	TeacherID string      `db:"teacher_id"`
	Date      time.Time   `db:"date"`
	Status    string      `db:"status"`
	Notes     null.String `db:"notes"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (repo attendanceRepository) toRow(att attendance.Attendance) attendanceRow {
	return attendanceRow{
		ID:        att.ID,
		StudentID: att.StudentID,
		SubjectID: att.SubjectID,
		TeacherID: att.TeacherID,
		Date:      att.Date,
		Status:    att.Status,
		Notes:     att.Notes,
		CreatedAt: att.CreatedAt.UTC(),
		UpdatedAt: att.UpdatedAt.UTC(),
	}
}

func (repo attendanceRepository) fromRow(row attendanceRow) attendance.Attendance {
	return attendance.Attendance{
		ID:        row.ID,
		StudentID: row.StudentID,
		SubjectID: row.SubjectID,
		TeacherID: row.TeacherID,
		Date:      row.Date,
		Status:    row.Status,
		Notes:     row.Notes,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to attendance.ErrNotFound
func (repo attendanceRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return attendance.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

var attendanceInsertQuery = `
INSERT INTO attendances (id, student_id, subject_id, teacher_id, date, status, notes, created_at, updated_at)
VALUES (:id, :student_id, :subject_id, :teacher_id, :date, :status, :notes, :created_at, :updated_at)`

func (repo attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), attendanceInsertQuery, repo.toRow(att)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return attendance.Attendance{}, attendance.ErrAlreadyRecorded
		}
		return attendance.Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	return att, nil
}

func (repo attendanceRepository) GetAttendance(ctx context.Context, filter attendance.GetFilter, exec ...core.DBExecutor) (attendance.Attendance, error) {
	ex := repo.getExec(exec)
	if filter.ID == "" {
		return attendance.Attendance{}, attendance.ErrNotFound
	}

	var row attendanceRow
	query := `SELECT * FROM attendances WHERE id = ?`
	if err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(query), filter.ID); err != nil {
		return attendance.Attendance{}, repo.trapNoRowsErr(err, "finding attendance")
	}
	return repo.fromRow(row), nil
}

var attendanceOrderColumns = map[string]string{
	"date":       "date",
	"status":     "status",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (repo attendanceRepository) FilterAttendances(ctx context.Context, filter attendance.QueryFilter, orderings ...core.DBOrdering) ([]attendance.Attendance, error) {
	ex := repo.exec

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
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Month != 0 && filter.Year != 0 {
		conds = append(conds, "EXTRACT(MONTH FROM date) = ? AND EXTRACT(YEAR FROM date) = ?")
		args = append(args, filter.Month, filter.Year)
	} else if filter.Year != 0 {
		conds = append(conds, "EXTRACT(YEAR FROM date) = ?")
		args = append(args, filter.Year)
	}
	if filter.DateFrom != "" {
		conds = append(conds, "date >= ?")
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conds = append(conds, "date <= ?")
		args = append(args, filter.DateTo)
	}

	query := fmt.Sprintf(`SELECT * FROM attendances WHERE %s ORDER BY %s`, strings.Join(conds, " AND "), orderBy(orderings, attendanceOrderColumns, "date DESC"))

	var rows []attendanceRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering attendances")
	}
	records := make([]attendance.Attendance, 0, len(rows))
	for _, row := range rows {
		records = append(records, repo.fromRow(row))
	}
	return records, nil
}

var attendanceUpdateQuery = `
UPDATE attendances
SET status     = :status,
    notes      = :notes,
    updated_at = :updated_at
WHERE id = :id`

func (repo attendanceRepository) UpdateAttendance(ctx context.Context, att attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), attendanceUpdateQuery, repo.toRow(att))
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "updating attendance")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	return att, nil
}

func (repo attendanceRepository) DeleteAttendancesByID(ctx context.Context, exec core.DBExecutor, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM attendances WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting attendances")
	}
	if _, err = exec.ExecContext(ctx, exec.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting attendances")
	}
	return nil
}
