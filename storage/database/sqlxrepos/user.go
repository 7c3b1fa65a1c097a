package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/user"
)

const userColumns = `id, name, COALESCE(username, '') AS username, COALESCE(email, '') AS email, is_active, roles,
	password_hash, created_at, updated_at, last_login`

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{baseRepository{exec: exec}}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	if username == "" && email == "" {
		return nil
	}
	exe := repo.getExec(exec)

	query := "SELECT COUNT(*) FROM users WHERE (username = ? OR email = ?)"
	args := []interface{}{nullString(username), nullString(email)}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		var (
			inQuery string
			inArgs  []interface{}
			err     error
		)
		inQuery, inArgs, err = sqlx.In(" AND id NOT IN (?)", ids)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		query += inQuery
		args = append(args, inArgs...)
	}

	var count int
	if err := exe.GetContext(ctx, &count, exe.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if count > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	usr.ID = uuid.New().String()
	if usr.Roles == nil {
		usr.Roles = core.StringList{}
	}

	query := `INSERT INTO users (id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exe.ExecContext(ctx, exe.Rebind(query),
		usr.ID, usr.Name, nullString(usr.Username), nullString(usr.Email), usr.IsActive, usr.Roles,
		usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), usr.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)

	var (
		where string
		args  []interface{}
	)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		where, args = "id = ?", []interface{}{filter.ID}
	case filter.Username != "":
		where, args = "username = ?", []interface{}{filter.Username}
	case filter.Email != "":
		where, args = "email = ?", []interface{}{filter.Email}
	case len(filter.UsernameOrEmail) > 0:
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		where, args = "username = ? OR email = ?", []interface{}{uname, email}
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	query := "SELECT " + userColumns + " FROM users WHERE " + where + " LIMIT 1"
	if err := exe.GetContext(ctx, &usr, exe.Rebind(query), args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	if usr.Roles == nil {
		usr.Roles = core.StringList{}
	}

	query := `UPDATE users SET name = ?, username = ?, email = ?, is_active = ?, roles = ?, password_hash = ?,
		updated_at = ?, last_login = ? WHERE id = ?`
	res, err := exe.ExecContext(ctx, exe.Rebind(query),
		usr.Name, nullString(usr.Username), nullString(usr.Email), usr.IsActive, usr.Roles, usr.PasswordHash,
		usr.UpdatedAt.UTC(), usr.LastLogin, usr.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

// isUniqueViolation matches the postgres and sqlite unique constraint errors.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
