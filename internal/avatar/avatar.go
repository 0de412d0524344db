// Package avatar uploads profile images to object storage and keeps
// the profile's avatar_url in step.
package avatar

import (
	"context"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	"mindspend/internal/backend/storage"
	"mindspend/internal/profile"
	dErrors "mindspend/pkg/domain-errors"
)

// Service coordinates avatar upload, profile patch, and cleanup of the
// previous image.
type Service struct {
	storage *storage.Client
	loader  *profile.Loader
	logger  *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs the avatar service.
func New(store *storage.Client, loader *profile.Loader, opts ...Option) *Service {
	s := &Service{storage: store, loader: loader}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Update uploads a new avatar, patches the profile, and removes the
// previous object best-effort. Returns the updated profile.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, filename string, data []byte) (*profile.Profile, error) {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "avatar filename has no extension")
	}
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	current, err := s.loader.FetchOnce(ctx, userID)
	if err != nil {
		return nil, err
	}

	objectPath := userID.String() + "/" + uuid.NewString() + ext
	if err := s.storage.Upload(ctx, objectPath, data, contentType); err != nil {
		return nil, err
	}

	publicURL := s.storage.PublicURL(objectPath)
	updated, err := s.loader.Update(ctx, userID, profile.Patch{AvatarURL: &publicURL})
	if err != nil {
		// The orphaned upload is cleaned up so a failed patch leaves
		// storage as it was.
		if rmErr := s.storage.Remove(ctx, []string{objectPath}); rmErr != nil {
			s.logger.WarnContext(ctx, "orphaned avatar not cleaned up", "path", objectPath, "error", rmErr)
		}
		return nil, err
	}

	if current != nil && current.AvatarURL != "" {
		if old, ok := s.objectPath(current.AvatarURL); ok {
			if err := s.storage.Remove(ctx, []string{old}); err != nil {
				s.logger.WarnContext(ctx, "previous avatar not removed", "path", old, "error", err)
			}
		}
	}
	return updated, nil
}

// objectPath recovers the bucket-relative path from a public URL
// minted by PublicURL.
func (s *Service) objectPath(publicURL string) (string, bool) {
	const marker = "/object/public/avatars/"
	i := strings.Index(publicURL, marker)
	if i < 0 {
		return "", false
	}
	return publicURL[i+len(marker):], true
}
