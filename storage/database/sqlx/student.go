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
	"github.com/trezcool/shule/core/student"
)

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo studentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type studentRow struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	StudentID     string      `db:"student_id"`
	NISN          null.String `db:"nisn"`
	ClassID       string      `db:"class_id"`
	ParentName    string      `db:"parent_name"`
	ParentPhone   string      `db:"parent_phone"`
	ParentEmail   null.String `db:"parent_email"`
	ParentAddress null.String `db:"parent_address"`
	EntryDate     time.Time   `db:"entry_date"`
	Status        string      `db:"status"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`

	User userRow `db:"user"`
}

func (repo studentRepository) toRow(std student.Student) studentRow {
	return studentRow{
		ID:            std.ID,
		UserID:        std.UserID,
		StudentID:     std.StudentID,
		NISN:          std.NISN,
		ClassID:       std.ClassID,
		ParentName:    std.ParentName,
		ParentPhone:   std.ParentPhone,
		ParentEmail:   std.ParentEmail,
		ParentAddress: std.ParentAddress,
		EntryDate:     std.EntryDate,
		Status:        std.Status,
		CreatedAt:     std.CreatedAt.UTC(),
		UpdatedAt:     std.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) fromRow(row studentRow) student.Student {
	std := student.Student{
		ID:            row.ID,
		UserID:        row.UserID,
		StudentID:     row.StudentID,
		NISN:          row.NISN,
		ClassID:       row.ClassID,
		ParentName:    row.ParentName,
		ParentPhone:   row.ParentPhone,
		ParentEmail:   row.ParentEmail,
		ParentAddress: row.ParentAddress,
		EntryDate:     row.EntryDate,
		Status:        row.Status,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.User.ID != "" {
		usr := userRepository{}.fromRow(row.User)
		std.User = &usr
	}
	return std
}

func (repo studentRepository) fromRows(rows []studentRow) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.fromRow(row))
	}
	return students
}

// trapNoRowsErr maps psql "no rows" err to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// studentSelectQuery joins the paired user account so Student.User comes back populated.
var studentSelectQuery = `
SELECT s.*,
       u.id            AS "user.id",
       u.name          AS "user.name",
       u.username      AS "user.username",
       u.email         AS "user.email",
       u.phone         AS "user.phone",
       u.address       AS "user.address",
       u.gender        AS "user.gender",
       u.birth_date    AS "user.birth_date",
       u.is_active     AS "user.is_active",
       u.roles         AS "user.roles",
       u.password_hash AS "user.password_hash",
       u.last_login    AS "user.last_login",
       u.created_at    AS "user.created_at",
       u.updated_at    AS "user.updated_at",
       u.deleted_at    AS "user.deleted_at"
FROM students s
         INNER JOIN users u ON u.id = s.user_id`

func (repo studentRepository) CheckStudentUniqueness(ctx context.Context, studentID, nisn string, excludedStudents []student.Student, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)

	query := `SELECT s.id, s.user_id, s.student_id, s.nisn, s.class_id, s.parent_name, s.parent_phone, s.parent_email, s.parent_address, s.entry_date, s.status, s.created_at, s.updated_at FROM students s WHERE (s.student_id = ? OR s.nisn = ?)`
	args := []interface{}{studentID, nisn}
	if len(excludedStudents) > 0 {
		ids := make([]string, 0, len(excludedStudents))
		for _, std := range excludedStudents {
			ids = append(ids, std.ID)
		}
		q, inArgs, err := sqlx.In(query+` AND s.id NOT IN (?)`, studentID, nisn, ids)
		if err != nil {
			return errors.Wrap(err, "checking student uniqueness")
		}
		query, args = q, inArgs
	}

	var rows []studentRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking student uniqueness")
	}
	for _, row := range rows {
		if studentID != "" && row.StudentID == studentID {
			return student.ErrStudentIDExists
		}
		if nisn != "" && row.NISN.String == nisn {
			return student.ErrNISNExists
		}
	}
	return nil
}

var studentInsertQuery = `
INSERT INTO students (id, user_id, student_id, nisn, class_id, parent_name, parent_phone, parent_email, parent_address, entry_date, status, created_at, updated_at)
VALUES (:id, :user_id, :student_id, :nisn, :class_id, :parent_name, :parent_phone, :parent_email, :parent_address, :entry_date, :status, :created_at, :updated_at)`

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), studentInsertQuery, repo.toRow(std)); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	ex := repo.getExec(exec)

	var cond string
	var arg interface{}
	switch {
	case filter.ID != "":
		cond, arg = "s.id = ?", filter.ID
	case filter.UserID != "":
		cond, arg = "s.user_id = ?", filter.UserID
	case filter.StudentID != "":
		cond, arg = "s.student_id = ?", filter.StudentID
	default:
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	query := fmt.Sprintf(`%s WHERE %s`, studentSelectQuery, cond)
	if err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(query), arg); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "finding student")
	}
	return repo.fromRow(row), nil
}

var studentOrderColumns = map[string]string{
	"name":       "u.name",
	"username":   "u.username",
	"student_id": "s.student_id",
	"entry_date": "s.entry_date",
	"status":     "s.status",
	"created_at": "s.created_at",
}

func (repo studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter, orderings ...core.DBOrdering) ([]student.Student, error) {
	ex := repo.exec

	conds := []string{"TRUE"}
	var args []interface{}
	if filter.Search != "" {
		conds = append(conds, "(u.name ILIKE ? OR s.student_id ILIKE ? OR s.nisn ILIKE ?)")
		search := "%" + filter.Search + "%"
		args = append(args, search, search, search)
	}
	if filter.ClassID != "" {
		conds = append(conds, "s.class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conds = append(conds, "s.status = ?")
		args = append(args, filter.Status)
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s`, studentSelectQuery, strings.Join(conds, " AND "), orderBy(orderings, studentOrderColumns, "u.name"))

	var rows []studentRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	return repo.fromRows(rows), nil
}

var studentUpdateQuery = `
UPDATE students
SET student_id     = :student_id,
    nisn           = :nisn,
    class_id       = :class_id,
    parent_name    = :parent_name,
    parent_phone   = :parent_phone,
    parent_email   = :parent_email,
    parent_address = :parent_address,
    entry_date     = :entry_date,
    status         = :status,
    updated_at     = :updated_at
WHERE id = :id`

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), studentUpdateQuery, repo.toRow(std))
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

func (repo studentRepository) MoveStudents(ctx context.Context, exec core.DBExecutor, classID string, studentIDs ...string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE students SET class_id = ?, updated_at = ? WHERE id IN (?)`, classID, time.Now().UTC(), studentIDs)
	if err != nil {
		return errors.Wrap(err, "moving students")
	}
	if _, err = exec.ExecContext(ctx, exec.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "moving students")
	}
	return nil
}

func (repo studentRepository) CountActiveStudentsByClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int, error) {
	ex := repo.getExec(exec)
	var count int
	query := `SELECT COUNT(*) FROM students WHERE class_id = ? AND status = 'active'`
	if err := sqlx.GetContext(ctx, ex, &count, ex.Rebind(query), classID); err != nil {
		return 0, errors.Wrap(err, "counting class students")
	}
	return count, nil
}
