// Package repository implements Canvas token persistence.
//
// Provides PostgreSQL and MySQL implementations with transaction support via database.GetTx().
// Rows are unique per (user_id, environment_id); writes to an existing pair are upserts.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/canvas-oauth/internal/database"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
)

// PostgreSQLTokenRepository implements Token persistence for PostgreSQL.
type PostgreSQLTokenRepository struct {
	db *sql.DB
}

// Upsert inserts the token or replaces the credential fields of the existing
// row for the same (user, environment). ID and CreatedAt are set from the stored row.
func (p *PostgreSQLTokenRepository) Upsert(ctx context.Context, token *oauthDomain.Token) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO canvas_tokens
				(id, user_id, environment_id, access_token, refresh_token, expires_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (user_id, environment_id) DO UPDATE
			  SET access_token = EXCLUDED.access_token,
				  refresh_token = EXCLUDED.refresh_token,
				  expires_at = EXCLUDED.expires_at,
				  updated_at = EXCLUDED.updated_at
			  RETURNING id, created_at`

	err := querier.QueryRowContext(
		ctx,
		query,
		token.ID,
		token.UserID,
		token.EnvironmentID,
		token.AccessToken,
		token.RefreshToken,
		nullTime(token.ExpiresAt),
		token.CreatedAt,
		token.UpdatedAt,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert token")
	}
	return nil
}

// Update replaces the credential fields of the token identified by ID.
func (p *PostgreSQLTokenRepository) Update(ctx context.Context, token *oauthDomain.Token) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE canvas_tokens
			  SET access_token = $1,
				  refresh_token = $2,
				  expires_at = $3,
				  updated_at = $4
			  WHERE id = $5`

	result, err := querier.ExecContext(
		ctx,
		query,
		token.AccessToken,
		token.RefreshToken,
		nullTime(token.ExpiresAt),
		token.UpdatedAt,
		token.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update token")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return oauthDomain.ErrTokenNotFound
	}
	return nil
}

// Get retrieves the token of a user in an environment.
func (p *PostgreSQLTokenRepository) Get(
	ctx context.Context,
	userID string,
	environmentID uuid.UUID,
) (*oauthDomain.Token, error) {
	return p.get(ctx, userID, environmentID, "")
}

// GetForUpdate retrieves the token and locks its row until the surrounding
// transaction ends. Must be called inside TxManager.WithTx.
func (p *PostgreSQLTokenRepository) GetForUpdate(
	ctx context.Context,
	userID string,
	environmentID uuid.UUID,
) (*oauthDomain.Token, error) {
	return p.get(ctx, userID, environmentID, " FOR UPDATE")
}

func (p *PostgreSQLTokenRepository) get(
	ctx context.Context,
	userID string,
	environmentID uuid.UUID,
	lock string,
) (*oauthDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, environment_id, access_token, refresh_token, expires_at, created_at, updated_at
			  FROM canvas_tokens
			  WHERE user_id = $1 AND environment_id = $2` + lock

	var token oauthDomain.Token
	var expiresAt sql.NullTime
	err := querier.QueryRowContext(ctx, query, userID, environmentID).Scan(
		&token.ID,
		&token.UserID,
		&token.EnvironmentID,
		&token.AccessToken,
		&token.RefreshToken,
		&expiresAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token")
	}
	if expiresAt.Valid {
		token.ExpiresAt = expiresAt.Time.UTC()
	}

	return &token, nil
}

// Delete removes the token of a user in an environment. Deleting a missing token is not an error.
func (p *PostgreSQLTokenRepository) Delete(ctx context.Context, userID string, environmentID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM canvas_tokens WHERE user_id = $1 AND environment_id = $2`

	if _, err := querier.ExecContext(ctx, query, userID, environmentID); err != nil {
		return apperrors.Wrap(err, "failed to delete token")
	}
	return nil
}

// DeleteByEnvironment removes every token of an environment and returns the number removed.
func (p *PostgreSQLTokenRepository) DeleteByEnvironment(ctx context.Context, environmentID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM canvas_tokens WHERE environment_id = $1`, environmentID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete environment tokens")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

// nullTime stores a zero expiry as NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// NewPostgreSQLTokenRepository creates a new PostgreSQL Token repository.
func NewPostgreSQLTokenRepository(db *sql.DB) *PostgreSQLTokenRepository {
	return &PostgreSQLTokenRepository{db: db}
}
