package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/user"
)

const userColumns = "id, name, email, is_active, password_hash, created_at, updated_at, last_login"

type userRow struct {
	ID           int       `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

func lastLogin(usr user.User) null.Time {
	return null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero())
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{baseRepository{db: db}}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error {
	qb := psql.Select("COUNT(*)").From("users").Where(sq.Eq{"email": email})

	var count int
	if err := repo.get(ctx, exec, &count, qb); err != nil {
		return core.NewStoreError("checking email uniqueness", err)
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	qb := psql.Insert("users").
		Columns("name", "email", "is_active", "password_hash", "created_at", "updated_at", "last_login").
		Values(usr.Name, usr.Email, usr.IsActive, usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), lastLogin(usr)).
		Suffix("RETURNING " + userColumns)

	var row userRow
	if err := repo.get(ctx, exec, &row, qb); err != nil {
		return user.User{}, core.NewStoreError("inserting user", err)
	}
	return row.user(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	if err := repo.get(ctx, exec, &row, psql.Select(userColumns).From("users").Where(sq.Eq{"id": id})); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return row.user(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	if err := repo.get(ctx, exec, &row, psql.Select(userColumns).From("users").Where(sq.Eq{"email": email})); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by email")
	}
	return row.user(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	qb := psql.Update("users").
		SetMap(map[string]interface{}{
			"name":          usr.Name,
			"email":         usr.Email,
			"is_active":     usr.IsActive,
			"password_hash": usr.PasswordHash,
			"updated_at":    usr.UpdatedAt.UTC(),
			"last_login":    lastLogin(usr),
		}).
		Where(sq.Eq{"id": usr.ID}).
		Suffix("RETURNING " + userColumns)

	var row userRow
	if err := repo.get(ctx, exec, &row, qb); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return row.user(), nil
}
