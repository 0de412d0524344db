package profile

import (
	"context"

	"github.com/google/uuid"

	"mindspend/internal/backend/store"
)

const profilesTable = "profiles"

// RemoteStore reads and writes profile rows through the remote
// relational store.
type RemoteStore struct {
	client *store.Client
}

// NewRemoteStore constructs a store over the given client.
func NewRemoteStore(client *store.Client) *RemoteStore {
	return &RemoteStore{client: client}
}

// ProfileByID fetches the profile row for userID.
// Error Contract: returns a CodeNotFound domain error when no row
// exists; any other error means the query itself failed.
func (s *RemoteStore) ProfileByID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := s.client.Table(profilesTable).Eq("id", userID.String()).Single(ctx, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile patches the profile row and returns the updated
// record.
func (s *RemoteStore) UpdateProfile(ctx context.Context, userID uuid.UUID, patch Patch) (*Profile, error) {
	var p Profile
	err := s.client.Table(profilesTable).Eq("id", userID.String()).Update(ctx, patch, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
