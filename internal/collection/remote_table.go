package collection

import (
	"context"

	"github.com/google/uuid"

	"mindspend/internal/backend/store"
)

// RemoteTable adapts one relational-store table to the Table
// interface, scoped to a single user.
type RemoteTable[T any] struct {
	client      *store.Client
	name        string
	userID      uuid.UUID
	stamp       func(draft T, userID uuid.UUID) T
	imageColumn string
}

// NewRemoteTable constructs a user-scoped table adapter. stamp sets
// the owning user on outbound drafts. imageColumn may be "" for types
// without an image field.
func NewRemoteTable[T any](client *store.Client, name string, userID uuid.UUID, stamp func(T, uuid.UUID) T, imageColumn string) *RemoteTable[T] {
	return &RemoteTable[T]{
		client:      client,
		name:        name,
		userID:      userID,
		stamp:       stamp,
		imageColumn: imageColumn,
	}
}

// List returns the user's rows, newest first.
func (t *RemoteTable[T]) List(ctx context.Context) ([]T, error) {
	var rows []T
	err := t.client.Table(t.name).
		Eq("user_id", t.userID.String()).
		Order("created_at", true).
		Select(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert persists a draft stamped with the owning user and returns
// the server's representation.
func (t *RemoteTable[T]) Insert(ctx context.Context, draft T) (T, error) {
	var out T
	err := t.client.Table(t.name).Insert(ctx, t.stamp(draft, t.userID), &out)
	if err != nil {
		return out, err
	}
	return out, nil
}

// Delete removes the row with the given server identifier.
func (t *RemoteTable[T]) Delete(ctx context.Context, serverID string) error {
	return t.client.Table(t.name).
		Eq("id", serverID).
		Eq("user_id", t.userID.String()).
		Delete(ctx)
}

// UpdateImage patches the row's image column.
func (t *RemoteTable[T]) UpdateImage(ctx context.Context, serverID, imageURL string) (T, error) {
	var out T
	err := t.client.Table(t.name).
		Eq("id", serverID).
		Update(ctx, map[string]string{t.imageColumn: imageURL}, &out)
	if err != nil {
		return out, err
	}
	return out, nil
}
