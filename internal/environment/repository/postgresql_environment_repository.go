// Package repository implements Environment persistence.
//
// Provides PostgreSQL and MySQL implementations with transaction support via database.GetTx().
// PostgreSQL uses native UUID types, MySQL uses BINARY(16) types.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/allisson/canvas-oauth/internal/database"
	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
)

// PostgreSQLEnvironmentRepository implements Environment persistence for PostgreSQL.
type PostgreSQLEnvironmentRepository struct {
	db *sql.DB
}

// Create inserts a new Environment. A duplicate name or domain returns ErrEnvironmentAlreadyExists.
func (p *PostgreSQLEnvironmentRepository) Create(ctx context.Context, env *envDomain.Environment) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO environments (id, name, domain, is_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		env.ID,
		env.Name,
		env.Domain,
		env.IsActive,
		env.CreatedAt,
		env.UpdatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return envDomain.ErrEnvironmentAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create environment")
	}
	return nil
}

// Update modifies name, domain and active flag of an existing Environment.
func (p *PostgreSQLEnvironmentRepository) Update(ctx context.Context, env *envDomain.Environment) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE environments
			  SET name = $1,
				  domain = $2,
				  is_active = $3,
				  updated_at = $4
			  WHERE id = $5`

	result, err := querier.ExecContext(ctx, query, env.Name, env.Domain, env.IsActive, env.UpdatedAt, env.ID)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return envDomain.ErrEnvironmentAlreadyExists
		}
		return apperrors.Wrap(err, "failed to update environment")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return envDomain.ErrEnvironmentNotFound
	}
	return nil
}

// GetByDomain retrieves an Environment by domain regardless of its active flag.
func (p *PostgreSQLEnvironmentRepository) GetByDomain(ctx context.Context, domain string) (*envDomain.Environment, error) {
	return p.getBy(ctx, "domain", domain)
}

// GetByName retrieves an Environment by its operator label.
func (p *PostgreSQLEnvironmentRepository) GetByName(ctx context.Context, name string) (*envDomain.Environment, error) {
	return p.getBy(ctx, "name", name)
}

func (p *PostgreSQLEnvironmentRepository) getBy(
	ctx context.Context,
	column, value string,
) (*envDomain.Environment, error) {
	querier := database.GetTx(ctx, p.db)

	// column is one of the fixed identifiers above, never caller input.
	query := `SELECT id, name, domain, is_active, created_at, updated_at
			  FROM environments WHERE ` + column + ` = $1`

	var env envDomain.Environment
	err := querier.QueryRowContext(ctx, query, value).Scan(
		&env.ID,
		&env.Name,
		&env.Domain,
		&env.IsActive,
		&env.CreatedAt,
		&env.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, envDomain.ErrEnvironmentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get environment")
	}

	return &env, nil
}

// List retrieves environments ordered by name with pagination.
func (p *PostgreSQLEnvironmentRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*envDomain.Environment, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, name, domain, is_active, created_at, updated_at
			  FROM environments
			  ORDER BY name ASC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list environments")
	}
	defer func() {
		_ = rows.Close()
	}()

	environments := make([]*envDomain.Environment, 0)
	for rows.Next() {
		var env envDomain.Environment
		if err := rows.Scan(
			&env.ID,
			&env.Name,
			&env.Domain,
			&env.IsActive,
			&env.CreatedAt,
			&env.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan environment row")
		}
		environments = append(environments, &env)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating environment rows")
	}

	return environments, nil
}

// isPostgreSQLUniqueViolation reports whether err is a unique constraint violation (SQLSTATE 23505).
func isPostgreSQLUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// NewPostgreSQLEnvironmentRepository creates a new PostgreSQL Environment repository.
func NewPostgreSQLEnvironmentRepository(db *sql.DB) *PostgreSQLEnvironmentRepository {
	return &PostgreSQLEnvironmentRepository{db: db}
}
