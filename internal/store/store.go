package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/faisworld/fais-web-sub000/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// Index is the newest-first list of published article records. The blog
// pages read from it; the publisher is its only writer.
type Index interface {
	// ExistsBySlug reports whether a record with this slug is already indexed.
	ExistsBySlug(ctx context.Context, slug string) (bool, error)

	// Titles returns the titles of every indexed record.
	Titles(ctx context.Context) ([]string, error)

	// InsertFront adds a record ahead of every existing record.
	InsertFront(ctx context.Context, record core.ArticleRecord) error

	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]core.ArticleRecord, error)
}

// SQLiteIndex is the embedded structured store for the blog index.
type SQLiteIndex struct {
	db   *sql.DB
	path string
}

// NewSQLiteIndex opens (or creates) the SQLite index at dbPath.
func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	idx := &SQLiteIndex{
		db:   db,
		path: dbPath,
	}

	if err := idx.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return idx, nil
}

// initialize creates the necessary tables
func (s *SQLiteIndex) initialize() error {
	postsTable := `
	CREATE TABLE IF NOT EXISTS blog_posts (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		excerpt TEXT,
		display_date TEXT,
		published_at DATETIME NOT NULL,
		read_time TEXT,
		category TEXT,
		cover_image TEXT,
		featured INTEGER NOT NULL DEFAULT 0,
		author TEXT,
		author_image TEXT
	);`

	publishedIndex := `CREATE INDEX IF NOT EXISTS idx_blog_posts_published_at ON blog_posts (published_at DESC);`

	for _, stmt := range []string{postsTable, publishedIndex} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// ExistsBySlug implements Index.
func (s *SQLiteIndex) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM blog_posts WHERE slug = ?`, slug).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up slug %q: %w", slug, err)
	}
	return true, nil
}

// Titles implements Index.
func (s *SQLiteIndex) Titles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM blog_posts ORDER BY published_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// InsertFront implements Index. Ordering is by published_at, then insertion
// order, so a new record always sorts first.
func (s *SQLiteIndex) InsertFront(ctx context.Context, r core.ArticleRecord) error {
	query := `
	INSERT INTO blog_posts
	(id, slug, title, excerpt, display_date, published_at, read_time, category, cover_image, featured, author, author_image)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	featured := 0
	if r.Featured {
		featured = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.Slug,
		r.Title,
		r.Excerpt,
		r.Date,
		r.PublishedAt.UTC(),
		r.ReadTime,
		string(r.Category),
		r.CoverImage,
		featured,
		r.Author,
		r.AuthorImage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert blog post %q: %w", r.Slug, err)
	}
	return nil
}

// List implements Index.
func (s *SQLiteIndex) List(ctx context.Context, limit int) ([]core.ArticleRecord, error) {
	query := `
	SELECT id, slug, title, excerpt, display_date, published_at, read_time, category, cover_image, featured, author, author_image
	FROM blog_posts
	ORDER BY published_at DESC, seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}
	defer rows.Close()

	var records []core.ArticleRecord
	for rows.Next() {
		var (
			r           core.ArticleRecord
			category    string
			featured    int
			publishedAt time.Time
		)
		if err := rows.Scan(
			&r.ID,
			&r.Slug,
			&r.Title,
			&r.Excerpt,
			&r.Date,
			&publishedAt,
			&r.ReadTime,
			&category,
			&r.CoverImage,
			&featured,
			&r.Author,
			&r.AuthorImage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan blog post: %w", err)
		}
		r.Category = core.Category(category)
		r.Featured = featured == 1
		r.PublishedAt = publishedAt
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of indexed posts.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blog_posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count blog posts: %w", err)
	}
	return n, nil
}
