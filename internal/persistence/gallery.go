package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/faisworld/fais-web-sub000/internal/core"
)

const defaultListLimit = 100

const imageColumns = `id, url, title, alt_tag, folder, description, width, height, size, format, uploaded_at`

// postgresGalleryRepo implements GalleryRepository for PostgreSQL
type postgresGalleryRepo struct {
	db *sql.DB
}

func (r *postgresGalleryRepo) InsertImage(ctx context.Context, img core.GalleryImage) error {
	if img.URL == "" {
		return errors.New("image url is required")
	}
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO images (` + imageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		img.ID, img.URL, img.Title, img.AltTag, img.Folder, img.Description,
		img.Width, img.Height, img.Size, img.Format, img.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert image %s: %w", img.ID, err)
	}
	return nil
}

func (r *postgresGalleryRepo) Get(ctx context.Context, id string) (*core.GalleryImage, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`
	img, err := scanImage(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	return img, err
}

func (r *postgresGalleryRepo) ListByFolder(ctx context.Context, folder string, opts ListOptions) ([]core.GalleryImage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `SELECT ` + imageColumns + ` FROM images WHERE folder = $1 ORDER BY uploaded_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, folder, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var images []core.GalleryImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*core.GalleryImage, error) {
	var img core.GalleryImage
	err := row.Scan(
		&img.ID, &img.URL, &img.Title, &img.AltTag, &img.Folder, &img.Description,
		&img.Width, &img.Height, &img.Size, &img.Format, &img.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &img, nil
}
