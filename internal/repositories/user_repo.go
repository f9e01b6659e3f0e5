package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	intconfig "busyatri/internal/config"
	"busyatri/internal/domain"
	"busyatri/internal/domain/models"
)

type UserRepo struct {
	DB *sql.DB
}

func (r UserRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r UserRepo) Create(ctx context.Context, u models.User) error {
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		if isDuplicateEntry(err) {
			return domain.ValidationError{Field: "email", Msg: "user already exists"}
		}
		return mapMySQLError("create user", err)
	}
	return nil
}

func (r UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := r.db().QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE email = ?
		LIMIT 1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user"}
		}
		return models.User{}, mapMySQLError("get user", err)
	}
	return u, nil
}
