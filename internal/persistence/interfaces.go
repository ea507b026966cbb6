// Package persistence stores gallery images in PostgreSQL.
package persistence

import (
	"context"
	"errors"

	"github.com/faisworld/fais-web-sub000/internal/core"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// GalleryRepository handles gallery image persistence operations
type GalleryRepository interface {
	// InsertImage adds a row for an uploaded image
	InsertImage(ctx context.Context, img core.GalleryImage) error

	// Get retrieves an image by ID
	Get(ctx context.Context, id string) (*core.GalleryImage, error)

	// ListByFolder retrieves a folder's images, newest first
	ListByFolder(ctx context.Context, folder string, opts ListOptions) ([]core.GalleryImage, error)
}

// Database is the top-level handle for the gallery database.
type Database interface {
	Gallery() GalleryRepository
	Migrate(ctx context.Context) (MigrationStatus, error)
	Ping(ctx context.Context) error
	Close() error
}

// ListOptions provides pagination for list queries
type ListOptions struct {
	Limit  int
	Offset int
}
