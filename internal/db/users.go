package db

import (
	"context"

	"github.com/georgysavva/scany/pgxscan"
)

const userColumns = `
	id,
	email,
	name,
	password_hash,
	date_of_birth,
	created_at`

const userNotFound = "user not found"

func (db *DB) CreateUser(ctx context.Context, u User) (User, error) {
	const fn = "DB:CreateUser"
	var created User
	err := pgxscan.Get(ctx, db.pool, &created, `
		INSERT INTO users (
			id,
			email,
			name,
			password_hash,
			date_of_birth
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		u.ID, u.Email, u.Name, u.PasswordHash, u.DateOfBirth)
	if err != nil {
		return User{}, wrap(fn, ErrInsertFailed, userNotFound, err)
	}
	return created, nil
}

func (db *DB) GetUser(ctx context.Context, id string) (User, error) {
	const fn = "DB:GetUser"
	var u User
	err := pgxscan.Get(ctx, db.pool, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return User{}, wrap(fn, ErrSelectFailed, userNotFound, err)
	}
	return u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const fn = "DB:GetUserByEmail"
	var u User
	err := pgxscan.Get(ctx, db.pool, &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return User{}, wrap(fn, ErrSelectFailed, userNotFound, err)
	}
	return u, nil
}

func (db *DB) ListUsers(ctx context.Context) ([]User, error) {
	const fn = "DB:ListUsers"
	users := []User{}
	err := pgxscan.Select(ctx, db.pool, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, wrap(fn, ErrSelectFailed, userNotFound, err)
	}
	return users, nil
}

func (db *DB) UpdateUser(ctx context.Context, id, name, email string) (User, error) {
	const fn = "DB:UpdateUser"
	var u User
	err := pgxscan.Get(ctx, db.pool, &u, `
		UPDATE users
		SET name = $2, email = $3
		WHERE id = $1
		RETURNING `+userColumns,
		id, name, email)
	if err != nil {
		return User{}, wrap(fn, ErrUpdateFailed, userNotFound, err)
	}
	return u, nil
}

func (db *DB) DeleteUser(ctx context.Context, id string) error {
	const fn = "DB:DeleteUser"
	var deleted string
	err := db.pool.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	if err != nil {
		return wrap(fn, ErrDeleteFailed, userNotFound, err)
	}
	return nil
}
