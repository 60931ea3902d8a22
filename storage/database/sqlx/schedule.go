package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/schedule"
)

type scheduleRepository struct {
	exec core.DBExecutor
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(exec core.DBExecutor) *scheduleRepository {
	return &scheduleRepository{exec: exec}
}

func (repo scheduleRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type scheduleRow struct {
	ID           string    `db:"id"`
	ClassID      string    `db:"class_id"`
	SubjectID    string    `db:"subject_id"`
	TeacherID    string    `db:"teacher_id"`
	Day          string    `db:"day"`
	StartTime    string    `db:"start_time"`
	EndTime      string    `db:"end_time"`
	AcademicYear string    `db:"academic_year"`
	Semester     int       `db:"semester"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (repo scheduleRepository) toRow(sched schedule.Schedule) scheduleRow {
	return scheduleRow{
		ID:           sched.ID,
		ClassID:      sched.ClassID,
		SubjectID:    sched.SubjectID,
		TeacherID:    sched.TeacherID,
		Day:          sched.Day,
		StartTime:    sched.StartTime,
		EndTime:      sched.EndTime,
		AcademicYear: sched.AcademicYear,
		Semester:     sched.Semester,
		IsActive:     sched.IsActive,
		CreatedAt:    sched.CreatedAt.UTC(),
		UpdatedAt:    sched.UpdatedAt.UTC(),
	}
}

func (repo scheduleRepository) fromRow(row scheduleRow) schedule.Schedule {
	return schedule.Schedule{
		ID:           row.ID,
		ClassID:      row.ClassID,
		SubjectID:    row.SubjectID,
		TeacherID:    row.TeacherID,
		Day:          row.Day,
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
		AcademicYear: row.AcademicYear,
		Semester:     row.Semester,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo scheduleRepository) fromRows(rows []scheduleRow) []schedule.Schedule {
	schedules := make([]schedule.Schedule, 0, len(rows))
	for _, row := range rows {
		schedules = append(schedules, repo.fromRow(row))
	}
	return schedules
}

// trapNoRowsErr maps psql "no rows" err to schedule.ErrNotFound
func (repo scheduleRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return schedule.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

var scheduleInsertQuery = `
INSERT INTO schedules (id, class_id, subject_id, teacher_id, day, start_time, end_time, academic_year, semester, is_active, created_at, updated_at)
VALUES (:id, :class_id, :subject_id, :teacher_id, :day, :start_time, :end_time, :academic_year, :semester, :is_active, :created_at, :updated_at)`

func (repo scheduleRepository) CreateSchedule(ctx context.Context, sched schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), scheduleInsertQuery, repo.toRow(sched)); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return sched, nil
}

func (repo scheduleRepository) GetSchedule(ctx context.Context, filter schedule.GetFilter, exec ...core.DBExecutor) (schedule.Schedule, error) {
	ex := repo.getExec(exec)
	if filter.ID == "" {
		return schedule.Schedule{}, schedule.ErrNotFound
	}

	var row scheduleRow
	query := `SELECT * FROM schedules WHERE id = ?`
	if err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(query), filter.ID); err != nil {
		return schedule.Schedule{}, repo.trapNoRowsErr(err, "finding schedule")
	}
	return repo.fromRow(row), nil
}

var scheduleOrderColumns = map[string]string{
	"day":           "day",
	"start_time":    "start_time",
	"end_time":      "end_time",
	"academic_year": "academic_year",
	"semester":      "semester",
	"is_active":     "is_active",
	"created_at":    "created_at",
}

func (repo scheduleRepository) FilterSchedules(ctx context.Context, filter schedule.QueryFilter, orderings ...core.DBOrdering) ([]schedule.Schedule, error) {
	ex := repo.exec

	conds := []string{"TRUE"}
	var args []interface{}
	if filter.ClassID != "" {
		conds = append(conds, "class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID != "" {
		conds = append(conds, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.TeacherID != "" {
		conds = append(conds, "teacher_id = ?")
		args = append(args, filter.TeacherID)
	}
	if filter.Day != "" {
		conds = append(conds, "day = ?")
		args = append(args, filter.Day)
	}
	if filter.AcademicYear != "" {
		conds = append(conds, "academic_year = ?")
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester != 0 {
		conds = append(conds, "semester = ?")
		args = append(args, filter.Semester)
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	query := fmt.Sprintf(`SELECT * FROM schedules WHERE %s ORDER BY %s`, strings.Join(conds, " AND "), orderBy(orderings, scheduleOrderColumns, "day, start_time"))

	var rows []scheduleRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering schedules")
	}
	return repo.fromRows(rows), nil
}

var scheduleUpdateQuery = `
UPDATE schedules
SET class_id      = :class_id,
    subject_id    = :subject_id,
    teacher_id    = :teacher_id,
    day           = :day,
    start_time    = :start_time,
    end_time      = :end_time,
    academic_year = :academic_year,
    semester      = :semester,
    is_active     = :is_active,
    updated_at    = :updated_at
WHERE id = :id`

func (repo scheduleRepository) UpdateSchedule(ctx context.Context, sched schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), scheduleUpdateQuery, repo.toRow(sched))
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "updating schedule")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return sched, nil
}

func (repo scheduleRepository) DeleteSchedulesByID(ctx context.Context, exec core.DBExecutor, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM schedules WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting schedules")
	}
	if _, err = exec.ExecContext(ctx, exec.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting schedules")
	}
	return nil
}

func (repo scheduleRepository) ConflictCandidates(ctx context.Context, sched schedule.Schedule, exec ...core.DBExecutor) ([]schedule.Schedule, error) {
	ex := repo.getExec(exec)

	query := `
SELECT * FROM schedules
WHERE day = ? AND academic_year = ? AND semester = ? AND is_active
  AND (class_id = ? OR teacher_id = ?)
  AND id <> ?`

	var rows []scheduleRow
	err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query),
		sched.Day, sched.AcademicYear, sched.Semester, sched.ClassID, sched.TeacherID, sched.ID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching conflict candidates")
	}
	return repo.fromRows(rows), nil
}
