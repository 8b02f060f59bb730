package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/canvas-oauth/internal/database"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
)

// MySQLTokenRepository implements Token persistence for MySQL.
// Uses BINARY(16) for UUID storage.
type MySQLTokenRepository struct {
	db *sql.DB
}

// Upsert inserts the token or replaces the credential fields of the existing
// row for the same (user, environment). ID and CreatedAt are set from the stored row.
func (m *MySQLTokenRepository) Upsert(ctx context.Context, token *oauthDomain.Token) error {
	querier := database.GetTx(ctx, m.db)

	id, err := token.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token id")
	}
	environmentID, err := token.EnvironmentID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal environment id")
	}

	query := `INSERT INTO canvas_tokens
				(id, user_id, environment_id, access_token, refresh_token, expires_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				access_token = VALUES(access_token),
				refresh_token = VALUES(refresh_token),
				expires_at = VALUES(expires_at),
				updated_at = VALUES(updated_at)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		token.UserID,
		environmentID,
		token.AccessToken,
		token.RefreshToken,
		nullTime(token.ExpiresAt),
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert token")
	}

	var storedID []byte
	err = querier.QueryRowContext(
		ctx,
		`SELECT id, created_at FROM canvas_tokens WHERE user_id = ? AND environment_id = ?`,
		token.UserID,
		environmentID,
	).Scan(&storedID, &token.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to read upserted token")
	}
	if err := token.ID.UnmarshalBinary(storedID); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal token id")
	}
	return nil
}

// Update replaces the credential fields of the token identified by ID.
func (m *MySQLTokenRepository) Update(ctx context.Context, token *oauthDomain.Token) error {
	querier := database.GetTx(ctx, m.db)

	id, err := token.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token id")
	}

	query := `UPDATE canvas_tokens
			  SET access_token = ?,
				  refresh_token = ?,
				  expires_at = ?,
				  updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		token.AccessToken,
		token.RefreshToken,
		nullTime(token.ExpiresAt),
		token.UpdatedAt,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update token")
	}

	// updated_at always changes, so zero affected rows means the row is gone.
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
func (m *MySQLTokenRepository) Get(
	ctx context.Context,
	userID string,
	environmentID uuid.UUID,
) (*oauthDomain.Token, error) {
	return m.get(ctx, userID, environmentID, "")
}

// GetForUpdate retrieves the token and locks its row until the surrounding
// transaction ends. Must be called inside TxManager.WithTx.
func (m *MySQLTokenRepository) GetForUpdate(
	ctx context.Context,
	userID string,
	environmentID uuid.UUID,
) (*oauthDomain.Token, error) {
	return m.get(ctx, userID, environmentID, " FOR UPDATE")
}

func (m *MySQLTokenRepository) get(
	ctx context.Context,
	userID string,
	environmentID uuid.UUID,
	lock string,
) (*oauthDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	envID, err := environmentID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal environment id")
	}

	query := `SELECT id, user_id, environment_id, access_token, refresh_token, expires_at, created_at, updated_at
			  FROM canvas_tokens
			  WHERE user_id = ? AND environment_id = ?` + lock

	var token oauthDomain.Token
	var idBytes, envIDBytes []byte
	var expiresAt sql.NullTime
	err = querier.QueryRowContext(ctx, query, userID, envID).Scan(
		&idBytes,
		&token.UserID,
		&envIDBytes,
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

	if err := token.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal token id")
	}
	if err := token.EnvironmentID.UnmarshalBinary(envIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal environment id")
	}
	if expiresAt.Valid {
		token.ExpiresAt = expiresAt.Time.UTC()
	}

	return &token, nil
}

// Delete removes the token of a user in an environment. Deleting a missing token is not an error.
func (m *MySQLTokenRepository) Delete(ctx context.Context, userID string, environmentID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	envID, err := environmentID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal environment id")
	}

	query := `DELETE FROM canvas_tokens WHERE user_id = ? AND environment_id = ?`

	if _, err := querier.ExecContext(ctx, query, userID, envID); err != nil {
		return apperrors.Wrap(err, "failed to delete token")
	}
	return nil
}

// DeleteByEnvironment removes every token of an environment and returns the number removed.
func (m *MySQLTokenRepository) DeleteByEnvironment(ctx context.Context, environmentID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	envID, err := environmentID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal environment id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM canvas_tokens WHERE environment_id = ?`, envID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete environment tokens")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

// NewMySQLTokenRepository creates a new MySQL Token repository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{db: db}
}
