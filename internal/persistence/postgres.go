package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
	"github.com/rs/zerolog"

	"github.com/faisworld/fais-web-sub000/internal/logger"
)

// PostgresDB implements Database for PostgreSQL
type PostgresDB struct {
	db      *sql.DB
	gallery GalleryRepository
	log     zerolog.Logger
}

// NewPostgresDB opens and verifies a PostgreSQL connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return wrap(db), nil
}

func wrap(db *sql.DB) *PostgresDB {
	return &PostgresDB{
		db:      db,
		gallery: &postgresGalleryRepo{db: db},
		log:     logger.Component("database"),
	}
}

func (p *PostgresDB) Gallery() GalleryRepository { return p.gallery }

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDB) Close() error {
	return p.db.Close()
}
