package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/oauthflow/pkg/token"
)

// PostgresStore persists tokens in a single oauth_tokens table, one row per
// (profile, subject), token payload as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an established pgx pool. Call Migrate once at
// startup to ensure the backing table exists.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the oauth_tokens table if it does not exist yet.
// Idempotent, safe to run on every startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS oauth_tokens (
			profile    TEXT        NOT NULL,
			subject    TEXT        NOT NULL,
			token      JSONB       NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (profile, subject)
		)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create oauth_tokens table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Set(ctx context.Context, profileName, subject string, tok token.AccessToken) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	const query = `
		INSERT INTO oauth_tokens (profile, subject, token, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (profile, subject)
		DO UPDATE SET token = EXCLUDED.token, updated_at = now()`
	if _, err := s.pool.Exec(ctx, query, profileName, subject, data); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, profileName, subject string) (token.AccessToken, error) {
	const query = `SELECT token FROM oauth_tokens WHERE profile = $1 AND subject = $2`

	var data []byte
	err := s.pool.QueryRow(ctx, query, profileName, subject).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return token.AccessToken{}, ErrTokenNotFound
	}
	if err != nil {
		return token.AccessToken{}, fmt.Errorf("failed to load token: %w", err)
	}

	var tok token.AccessToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return token.AccessToken{}, fmt.Errorf("failed to decode token: %w", err)
	}
	return tok, nil
}

func (s *PostgresStore) Delete(ctx context.Context, profileName, subject string) error {
	const query = `DELETE FROM oauth_tokens WHERE profile = $1 AND subject = $2`
	if _, err := s.pool.Exec(ctx, query, profileName, subject); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
