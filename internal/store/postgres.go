package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// NewDB opens a PostgreSQL connection pool and verifies it is reachable
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// PostgresBackend keeps each key as one row of the reference_store table
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend creates a new PostgresBackend
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// EnsureSchema creates the backing table if it does not exist
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS reference_store (
			storage_key TEXT PRIMARY KEY,
			payload     TEXT NOT NULL,
			checksum    TEXT NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := b.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create reference_store table: %w", err)
	}

	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) (Blob, error) {
	query := `
		SELECT payload, checksum
		FROM reference_store
		WHERE storage_key = $1
	`

	var payload, checksum string
	err := b.db.QueryRowContext(ctx, query, key).Scan(&payload, &checksum)
	if err == sql.ErrNoRows {
		return Blob{}, ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return Blob{Data: []byte(payload), Version: checksum}, nil
}

func (b *PostgresBackend) Put(ctx context.Context, key string, data []byte, expected string) (string, error) {
	checksum := Checksum(data)
	now := time.Now().UTC()

	var (
		result sql.Result
		err    error
	)

	switch expected {
	case VersionAny:
		query := `
			INSERT INTO reference_store (storage_key, payload, checksum, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (storage_key) DO UPDATE SET
				payload = EXCLUDED.payload,
				checksum = EXCLUDED.checksum,
				updated_at = EXCLUDED.updated_at
		`
		result, err = b.db.ExecContext(ctx, query, key, string(data), checksum, now)
	case VersionAbsent:
		query := `
			INSERT INTO reference_store (storage_key, payload, checksum, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (storage_key) DO NOTHING
		`
		result, err = b.db.ExecContext(ctx, query, key, string(data), checksum, now)
	default:
		query := `
			UPDATE reference_store
			SET payload = $2, checksum = $3, updated_at = $4
			WHERE storage_key = $1 AND checksum = $5
		`
		result, err = b.db.ExecContext(ctx, query, key, string(data), checksum, now, expected)
	}
	if err != nil {
		return "", fmt.Errorf("failed to put %s: %w", key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to read affected rows for %s: %w", key, err)
	}
	if affected == 0 {
		return "", ErrVersionConflict
	}

	return checksum, nil
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
