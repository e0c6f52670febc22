package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"
)

// Predefined errors for store operations
var (
	ErrPreferenceNotFound = errors.New("store: preference not found")
	ErrInvalidValue       = errors.New("store: preference value is not valid JSON")
)

// PostgresStore implements PreferenceStorer using PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE viewer.preferences (
//		profile    TEXT NOT NULL,
//		key        TEXT NOT NULL,
//		value      JSONB NOT NULL,
//		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
//		PRIMARY KEY (profile, key)
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetPreference(ctx context.Context, profile, key string) ([]byte, error) {
	query := `
		SELECT value
		FROM viewer.preferences
		WHERE profile = $1 AND key = $2;
	`
	var value []byte
	err := s.db.QueryRowContext(ctx, query, profile, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("store: GetPreference failed to scan row: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) PutPreference(ctx context.Context, profile, key string, value []byte) error {
	query := `
		INSERT INTO viewer.preferences (profile, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP;
	`
	_, err := s.db.ExecContext(ctx, query, profile, key, value)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "22P02" { // invalid_text_representation
			return ErrInvalidValue
		}
		return fmt.Errorf("store: PutPreference failed to execute upsert: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePreference(ctx context.Context, profile, key string) error {
	query := `DELETE FROM viewer.preferences WHERE profile = $1 AND key = $2;`
	result, err := s.db.ExecContext(ctx, query, profile, key)
	if err != nil {
		return fmt.Errorf("store: DeletePreference failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeletePreference failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPreferenceNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		log.Println("INFO: Closing database connection pool...")
		err := s.db.Close()
		if err != nil {
			log.Printf("ERROR: Failed to close database connection pool: %v", err)
			return err
		}
		log.Println("INFO: Database connection pool closed successfully.")
		return nil
	}
	return nil
}
