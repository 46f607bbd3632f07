package user

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"tulisbareng/pkg/apperr"
	"tulisbareng/pkg/logger"
)

type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// Create inserts a new user. A duplicate email surfaces as Conflict.
func (r *Repository) Create(u *User) error {
	_, err := r.DB.Exec(
		`INSERT INTO users (id, name, email, password_hash, avatar, created_at) VALUES ($1, $2, $3, $4, $5, NOW())`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Avatar,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperr.Wrap(apperr.ErrConflict, "email %s already registered", u.Email)
		}
		logger.Sugar.Errorf("Failed to create user: %v", err)
		return apperr.Wrap(apperr.ErrUnavailable, "create user: %v", err)
	}
	return nil
}

func (r *Repository) GetByID(id string) (*User, error) {
	return r.getOne(`SELECT id, name, email, password_hash, avatar, created_at FROM users WHERE id = $1`, id)
}

func (r *Repository) GetByEmail(email string) (*User, error) {
	return r.getOne(`SELECT id, name, email, password_hash, avatar, created_at FROM users WHERE email = $1`, email)
}

func (r *Repository) getOne(query, arg string) (*User, error) {
	var u User
	err := r.DB.QueryRow(query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.Wrap(apperr.ErrNotFound, "user not found")
	} else if err != nil {
		logger.Sugar.Errorf("Failed to fetch user: %v", err)
		return nil, apperr.Wrap(apperr.ErrUnavailable, "fetch user: %v", err)
	}
	return &u, nil
}

// UpdateProfile overwrites the mutable profile fields.
func (r *Repository) UpdateProfile(u *User) error {
	_, err := r.DB.Exec(
		`UPDATE users SET name = $1, password_hash = $2, avatar = $3 WHERE id = $4`,
		u.Name, u.PasswordHash, u.Avatar, u.ID,
	)
	if err != nil {
		logger.Sugar.Errorf("Failed to update profile for user %s: %v", u.ID, err)
		return apperr.Wrap(apperr.ErrUnavailable, "update profile: %v", err)
	}
	return nil
}
