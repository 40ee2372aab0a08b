package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// pgExecutor is the subset of *pgxpool.Pool used by the repository.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// postgresRepository expects a users table with user_id text primary key and the
// email, first_name, last_name, full_name, image_url, created_at, updated_at columns.
type postgresRepository struct {
	db pgExecutor
}

var _ Repository = (*postgresRepository)(nil)

// NewPostgresRepository builds a Repository on a pgx pool or connection.
func NewPostgresRepository(db pgExecutor) Repository {
	return &postgresRepository{db: db}
}

const (
	selectUserSQL = `SELECT user_id, email, first_name, last_name, full_name, image_url, created_at, updated_at
FROM users WHERE user_id = $1`
	insertUserSQL = `INSERT INTO users (user_id, email, first_name, last_name, full_name, image_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	updateUserSQL = `UPDATE users SET email = $2, full_name = $3, first_name = $4, last_name = $5, image_url = $6, updated_at = $7
WHERE user_id = $1`
	deleteUserSQL = `DELETE FROM users WHERE user_id = $1`
)

func (r *postgresRepository) Get(ctx context.Context, userID string) (Record, error) {
	var (
		record   Record
		fullName *string
		imageURL *string
	)
	err := r.db.QueryRow(ctx, selectUserSQL, userID).Scan(
		&record.UserID, &record.Email, &record.FirstName, &record.LastName,
		&fullName, &imageURL, &record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get user: %w", err)
	}
	if fullName != nil {
		record.FullName = *fullName
	}
	if imageURL != nil {
		record.ImageURL = *imageURL
	}
	return record, nil
}

func (r *postgresRepository) Insert(ctx context.Context, record Record) error {
	_, err := r.db.Exec(ctx, insertUserSQL,
		record.UserID, record.Email, record.FirstName, record.LastName,
		nullableString(record.FullName), record.ImageURL, record.CreatedAt, record.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, userID string, input UpdateInput) error {
	tag, err := r.db.Exec(ctx, updateUserSQL,
		userID, input.Email, input.FullName, input.FirstName, input.LastName, input.ImageURL, input.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx, deleteUserSQL, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
