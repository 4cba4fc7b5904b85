package inmemdb

import (
	"context"
	"errors"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// findByEmail must be called with the lock held.
func (repo *userRepository) findByEmail(email string) (user.User, bool) {
	for _, usr := range repo.db.users {
		if usr.Email == email {
			return usr, true
		}
	}
	return user.User{}, false
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, _ ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, found := repo.findByEmail(email); found {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lockWrites(exec)()

	if _, found := repo.findByEmail(usr.Email); found {
		return user.User{}, core.NewStoreError("inserting user", errors.New("duplicate email"))
	}
	usr.ID = repo.db.nextID("users")
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, found := repo.findByEmail(email); found {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lockWrites(exec)()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	// only save set fields
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	orig.Name = usr.Name
	orig.Email = usr.Email
	orig.IsActive = usr.IsActive
	orig.UpdatedAt = usr.UpdatedAt
	orig.LastLogin = usr.LastLogin

	repo.db.users[usr.ID] = orig
	return orig, nil
}
