package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ssriya/grader/core/user"
)

const userColumns = "id, name, email, roles, password_hash, created_at, updated_at"

type (
	userRepository struct {
		db *sqlx.DB
	}

	userRow struct {
		ID           string    `db:"id"`
		Name         string    `db:"name"`
		Email        string    `db:"email"`
		Roles        string    `db:"roles"`
		PasswordHash string    `db:"password_hash"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
	}
)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		Roles:        user.SplitRoles(row.Roles),
		PasswordHash: []byte(row.PasswordHash),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (repo *userRepository) getUser(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var row userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + where)
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	q := "SELECT COUNT(*) FROM users WHERE email = ?"
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		var err error
		if q, args, err = sqlx.In(q+" AND id NOT IN (?)", email, ids); err != nil {
			return errors.Wrap(err, "building query")
		}
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "counting users")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := exec(ctx, repo.db,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		usr.ID, usr.Name, usr.Email, user.JoinRoles(usr.Roles), string(usr.PasswordHash), usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "id = ?", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email = ?", email)
}

func (repo *userRepository) QueryUsersByIDs(ctx context.Context, ids ...string) ([]user.User, error) {
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	q, args, err := sqlx.In("SELECT "+userColumns+" FROM users WHERE id IN (?) ORDER BY created_at", ids)
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []userRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := withTx(ctx, repo.db, nil, func(tx *sqlx.Tx) error {
		// only save set fields
		n, err := exec(ctx, tx,
			"UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?",
			usr.Name, usr.Email, usr.UpdatedAt, usr.ID,
		)
		if err != nil {
			return errors.Wrap(err, "updating user")
		}
		if n == 0 {
			return user.ErrNotFound
		}
		if usr.Roles != nil {
			if _, err = exec(ctx, tx, "UPDATE users SET roles = ? WHERE id = ?", user.JoinRoles(usr.Roles), usr.ID); err != nil {
				return errors.Wrap(err, "updating roles")
			}
		}
		if usr.PasswordHash != nil {
			if _, err = exec(ctx, tx, "UPDATE users SET password_hash = ? WHERE id = ?", string(usr.PasswordHash), usr.ID); err != nil {
				return errors.Wrap(err, "updating password")
			}
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return repo.GetUserByID(ctx, usr.ID)
}
