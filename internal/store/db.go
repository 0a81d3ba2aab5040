package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrNotFound          = errors.New("record not found")
	ErrPostExists        = errors.New("post already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidTrend      = errors.New("invalid trend")
)

// Store persists posts, reports, settings and trends over SQL
type Store struct {
	db      *sqlx.DB
	driver  string
	builder sq.StatementBuilderType
}

// Open connects to postgres or sqlite
func Open(driver, dsn string) (*Store, error) {
	var sqlDriver string
	var placeholder sq.PlaceholderFormat
	switch driver {
	case "postgres":
		sqlDriver, placeholder = "postgres", sq.Dollar
	case "sqlite":
		sqlDriver, placeholder = "sqlite", sq.Question
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		// A single connection keeps in-memory databases shared and serializes writes
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}, nil
}

// Migrate applies the embedded schema migrations
func (s *Store) Migrate() error {
	dialect := "postgres"
	if s.driver == "sqlite" {
		dialect = "sqlite3"
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(logrus.StandardLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(s.db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the storage timestamp: UTC, whole seconds
func now() time.Time {
	return normalizeTime(time.Now())
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
