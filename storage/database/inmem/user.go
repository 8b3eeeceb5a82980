package inmemdb

import (
	"context"

	"github.com/ssriya/grader/core/user"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// find returns the index of the user matching fn, or -1.
func (repo *userRepository) find(fn func(usr user.User) bool) int {
	for i, usr := range repo.db.users {
		if fn(usr) {
			return i
		}
	}
	return -1
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email && !isExcluded(usr, excludedUsers) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.find(func(u user.User) bool { return u.Email == usr.Email }) >= 0 {
		return user.User{}, user.ErrEmailExists
	}
	repo.db.users = append(repo.db.users, copyUser(usr))
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if i := repo.find(func(u user.User) bool { return u.ID == id }); i >= 0 {
		return copyUser(repo.db.users[i]), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if i := repo.find(func(u user.User) bool { return u.Email == email }); i >= 0 {
		return copyUser(repo.db.users[i]), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsersByIDs(_ context.Context, ids ...string) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	users := make([]user.User, 0, len(ids))
	for _, usr := range repo.db.users {
		if wanted[usr.ID] {
			users = append(users, copyUser(usr))
		}
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	i := repo.find(func(u user.User) bool { return u.ID == usr.ID })
	if i < 0 {
		return user.User{}, user.ErrNotFound
	}
	// only save set fields
	orig := repo.db.users[i]
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	orig.Name = usr.Name
	orig.Email = usr.Email
	orig.UpdatedAt = usr.UpdatedAt

	repo.db.users[i] = copyUser(orig)
	return copyUser(orig), nil
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return true
		}
	}
	return false
}

// copyUser keeps callers from mutating stored slices.
func copyUser(usr user.User) user.User {
	usr.Roles = append([]string(nil), usr.Roles...)
	usr.PasswordHash = append([]byte(nil), usr.PasswordHash...)
	return usr
}
