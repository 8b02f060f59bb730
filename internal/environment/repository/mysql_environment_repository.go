package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/allisson/canvas-oauth/internal/database"
	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
)

// MySQLEnvironmentRepository implements Environment persistence for MySQL.
// Uses BINARY(16) for UUID storage.
type MySQLEnvironmentRepository struct {
	db *sql.DB
}

// Create inserts a new Environment. A duplicate name or domain returns ErrEnvironmentAlreadyExists.
func (m *MySQLEnvironmentRepository) Create(ctx context.Context, env *envDomain.Environment) error {
	querier := database.GetTx(ctx, m.db)

	id, err := env.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal environment id")
	}

	query := `INSERT INTO environments (id, name, domain, is_active, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, id, env.Name, env.Domain, env.IsActive, env.CreatedAt, env.UpdatedAt)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return envDomain.ErrEnvironmentAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create environment")
	}
	return nil
}

// Update modifies name, domain and active flag of an existing Environment.
func (m *MySQLEnvironmentRepository) Update(ctx context.Context, env *envDomain.Environment) error {
	querier := database.GetTx(ctx, m.db)

	id, err := env.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal environment id")
	}

	query := `UPDATE environments
			  SET name = ?,
				  domain = ?,
				  is_active = ?,
				  updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, env.Name, env.Domain, env.IsActive, env.UpdatedAt, id)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return envDomain.ErrEnvironmentAlreadyExists
		}
		return apperrors.Wrap(err, "failed to update environment")
	}

	// MySQL reports matched rows as affected only when a value changed, so a
	// zero count is confirmed with a lookup.
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		var exists int
		err := querier.QueryRowContext(ctx, `SELECT 1 FROM environments WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return envDomain.ErrEnvironmentNotFound
		}
		if err != nil {
			return apperrors.Wrap(err, "failed to check environment")
		}
	}
	return nil
}

// GetByDomain retrieves an Environment by domain regardless of its active flag.
func (m *MySQLEnvironmentRepository) GetByDomain(ctx context.Context, domain string) (*envDomain.Environment, error) {
	return m.getBy(ctx, "domain", domain)
}

// GetByName retrieves an Environment by its operator label.
func (m *MySQLEnvironmentRepository) GetByName(ctx context.Context, name string) (*envDomain.Environment, error) {
	return m.getBy(ctx, "name", name)
}

func (m *MySQLEnvironmentRepository) getBy(
	ctx context.Context,
	column, value string,
) (*envDomain.Environment, error) {
	querier := database.GetTx(ctx, m.db)

	// column is one of the fixed identifiers above, never caller input.
	query := `SELECT id, name, domain, is_active, created_at, updated_at
			  FROM environments WHERE ` + column + ` = ?`

	env, err := scanMySQLEnvironment(querier.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, envDomain.ErrEnvironmentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get environment")
	}
	return env, nil
}

// List retrieves environments ordered by name with pagination.
func (m *MySQLEnvironmentRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*envDomain.Environment, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, name, domain, is_active, created_at, updated_at
			  FROM environments
			  ORDER BY name ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list environments")
	}
	defer func() {
		_ = rows.Close()
	}()

	environments := make([]*envDomain.Environment, 0)
	for rows.Next() {
		env, err := scanMySQLEnvironment(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan environment row")
		}
		environments = append(environments, env)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating environment rows")
	}

	return environments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMySQLEnvironment(row rowScanner) (*envDomain.Environment, error) {
	var env envDomain.Environment
	var idBytes []byte

	if err := row.Scan(
		&idBytes,
		&env.Name,
		&env.Domain,
		&env.IsActive,
		&env.CreatedAt,
		&env.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := env.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal environment id")
	}
	return &env, nil
}

// isMySQLUniqueViolation reports whether err is a duplicate entry error (MySQL error number 1062).
func isMySQLUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// NewMySQLEnvironmentRepository creates a new MySQL Environment repository.
func NewMySQLEnvironmentRepository(db *sql.DB) *MySQLEnvironmentRepository {
	return &MySQLEnvironmentRepository{db: db}
}
