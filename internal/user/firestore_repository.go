package user

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type firestoreRepository struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreRepository stores one document per user, keyed by the Clerk user id.
func NewFirestoreRepository(client *firestore.Client, collection string) Repository {
	return &firestoreRepository{client: client, collection: collection}
}

func (r *firestoreRepository) doc(userID string) *firestore.DocumentRef {
	return r.client.Collection(r.collection).Doc(userID)
}

func (r *firestoreRepository) Get(ctx context.Context, userID string) (Record, error) {
	snap, err := r.doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get user: %w", err)
	}

	var record Record
	if err := snap.DataTo(&record); err != nil {
		return Record{}, fmt.Errorf("unmarshal user: %w", err)
	}
	record.UserID = userID
	return record, nil
}

func (r *firestoreRepository) Insert(ctx context.Context, record Record) error {
	_, err := r.doc(record.UserID).Create(ctx, record)
	if status.Code(err) == codes.AlreadyExists {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *firestoreRepository) Update(ctx context.Context, userID string, input UpdateInput) error {
	_, err := r.doc(userID).Update(ctx, []firestore.Update{
		{Path: "email", Value: input.Email},
		{Path: "full_name", Value: input.FullName},
		{Path: "first_name", Value: input.FirstName},
		{Path: "last_name", Value: input.LastName},
		{Path: "image_url", Value: input.ImageURL},
		{Path: "updated_at", Value: input.UpdatedAt},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *firestoreRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.doc(userID).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
