package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	Phone        null.String    `db:"phone"`
	Address      null.String    `db:"address"`
	Gender       null.String    `db:"gender"`
	BirthDate    null.Time      `db:"birth_date"`
	IsActive     null.Bool      `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	LastLogin    null.Time      `db:"last_login"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	DeletedAt    null.Time      `db:"deleted_at"`
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		Phone:        usr.Phone,
		Address:      usr.Address,
		Gender:       usr.Gender,
		BirthDate:    usr.BirthDate,
		IsActive:     null.BoolFromPtr(usr.IsActive),
		Roles:        usr.Roles,
		PasswordHash: usr.PasswordHash,
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		DeletedAt:    usr.DeletedAt,
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		Phone:        row.Phone,
		Address:      row.Address,
		Gender:       row.Gender,
		BirthDate:    row.BirthDate,
		IsActive:     row.IsActive.Ptr(),
		Roles:        row.Roles,
		PasswordHash: row.PasswordHash,
		LastLogin:    row.LastLogin.Time,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		DeletedAt:    row.DeletedAt,
	}
}

func (repo userRepository) fromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)

	query := `SELECT username, email FROM users WHERE (username = ? OR email = ?) AND deleted_at IS NULL`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q, inArgs, err := sqlx.In(`SELECT username, email FROM users WHERE (username = ? OR email = ?) AND deleted_at IS NULL AND id NOT IN (?)`, username, email, ids)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		query, args = q, inArgs
	}

	var rows []userRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

var userInsertQuery = `
INSERT INTO users (id, name, username, email, phone, address, gender, birth_date, is_active, roles, password_hash, last_login, created_at, updated_at, deleted_at)
VALUES (:id, :name, :username, :email, :phone, :address, :gender, :birth_date, :is_active, :roles, :password_hash, :last_login, :created_at, :updated_at, :deleted_at)`

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), userInsertQuery, repo.toRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	ex := repo.getExec(exec)

	var query string
	var args []interface{}
	switch {
	case filter.ID != "":
		query = `SELECT * FROM users WHERE id = ? AND deleted_at IS NULL`
		args = []interface{}{filter.ID}
	case filter.Email != "":
		query = `SELECT * FROM users WHERE email = ? AND deleted_at IS NULL`
		args = []interface{}{filter.Email}
	case len(filter.UsernameOrEmail) > 0:
		var err error
		query, args, err = sqlx.In(
			`SELECT * FROM users WHERE (username IN (?) OR email IN (?)) AND deleted_at IS NULL`,
			filter.UsernameOrEmail, filter.UsernameOrEmail,
		)
		if err != nil {
			return user.User{}, errors.Wrap(err, "finding user")
		}
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := sqlx.GetContext(ctx, ex, &row, ex.Rebind(query), args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return repo.fromRow(row), nil
}

var userOrderColumns = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"is_active":  "is_active",
	"last_login": "last_login",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	ex := repo.exec

	conds := []string{"deleted_at IS NULL"}
	var args []interface{}
	if filter.Search != "" {
		conds = append(conds, "(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)")
		search := "%" + filter.Search + "%"
		args = append(args, search, search, search)
	}
	if len(filter.Roles) > 0 {
		conds = append(conds, "roles && ?")
		args = append(args, pq.StringArray(filter.Roles))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, filter.CreatedTo)
	}

	query := fmt.Sprintf(`SELECT * FROM users WHERE %s ORDER BY %s`, strings.Join(conds, " AND "), orderBy(orderings, userOrderColumns, "created_at DESC"))

	var rows []userRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return repo.fromRows(rows), nil
}

var userUpdateQuery = `
UPDATE users
SET name          = :name,
    username      = :username,
    email         = :email,
    phone         = :phone,
    address       = :address,
    gender        = :gender,
    birth_date    = :birth_date,
    is_active     = :is_active,
    roles         = :roles,
    password_hash = :password_hash,
    last_login    = :last_login,
    updated_at    = :updated_at
WHERE id = :id AND deleted_at IS NULL`

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), userUpdateQuery, repo.toRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	now := time.Now().UTC()
	usr.UpdatedAt = now
	if usr.ID == "" {
		usr.ID = uuid.New().String()
		usr.CreatedAt = now
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, exec core.DBExecutor, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE users SET deleted_at = ?, is_active = FALSE WHERE id IN (?)`, time.Now().UTC(), ids)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	if _, err = exec.ExecContext(ctx, exec.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func (repo userRepository) HasActiveHomeroom(ctx context.Context, userID string, exec ...core.DBExecutor) (bool, error) {
	ex := repo.getExec(exec)
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM classes WHERE teacher_id = ? AND is_active)`
	if err := sqlx.GetContext(ctx, ex, &exists, ex.Rebind(query), userID); err != nil {
		return false, errors.Wrap(err, "checking homeroom assignment")
	}
	return exists, nil
}
