package user

import (
	"context"
	"errors"
	"time"
)

// Record is the local projection of a Clerk user.
type Record struct {
	UserID    string    `json:"user_id" firestore:"user_id"`
	Email     string    `json:"email" firestore:"email"`
	FirstName *string   `json:"first_name" firestore:"first_name"`
	LastName  *string   `json:"last_name" firestore:"last_name"`
	FullName  string    `json:"full_name" firestore:"full_name"`
	ImageURL  string    `json:"image_url" firestore:"image_url"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}

// UpdateInput holds the fields overwritten by a user.updated event.
type UpdateInput struct {
	Email     string
	FullName  string
	FirstName *string
	LastName  *string
	ImageURL  string
	UpdatedAt time.Time
}

// apply overwrites the mutable fields of r with the input.
func (in UpdateInput) apply(r Record) Record {
	r.Email = in.Email
	r.FullName = in.FullName
	r.FirstName = in.FirstName
	r.LastName = in.LastName
	r.ImageURL = in.ImageURL
	r.UpdatedAt = in.UpdatedAt
	return r
}

// Repository persists user records keyed by the Clerk user id.
type Repository interface {
	Get(ctx context.Context, userID string) (Record, error)
	// Insert fails with ErrConflict when the id is already stored.
	Insert(ctx context.Context, record Record) error
	// Update fails with ErrNotFound when no record has the id.
	Update(ctx context.Context, userID string, input UpdateInput) error
	// Delete fails with ErrNotFound when no record has the id.
	Delete(ctx context.Context, userID string) error
}

// Service applies user lifecycle changes to the store.
type Service interface {
	Create(ctx context.Context, record Record) error
	Update(ctx context.Context, userID string, input UpdateInput) error
	Delete(ctx context.Context, userID string) error
}

var (
	// ErrNotFound indicates no record has the requested user id.
	ErrNotFound = errors.New("user not found")
	// ErrConflict indicates a record with the same user id already exists.
	ErrConflict = errors.New("user already exists")
	// ErrMissingUserID indicates a required user id was absent.
	ErrMissingUserID = errors.New("user id is required")
)
