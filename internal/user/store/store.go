package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bytebank/backend/internal/user"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, u *user.User, passwordHash []byte) error {
	query := `
		INSERT INTO users (email, name, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, u.Email, u.Name, passwordHash).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.ErrEmailTaken
		}

		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `SELECT id, email, name, created_at FROM users WHERE id = $1`

	var u user.User

	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrNotFound
		}

		return nil, fmt.Errorf("getting user: %w", err)
	}

	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, []byte, error) {
	query := `SELECT id, email, name, password_hash, created_at FROM users WHERE email = $1`

	var (
		u    user.User
		hash []byte
	)

	err := s.db.QueryRowContext(ctx, query, email).
		Scan(&u.ID, &u.Email, &u.Name, &hash, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, user.ErrNotFound
		}

		return nil, nil, fmt.Errorf("getting user by email: %w", err)
	}

	return &u, hash, nil
}
