package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, sqlMock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, sqlMock
}

func TestSQLTxManager_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Commit", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec("UPDATE canvas_tokens").WillReturnResult(sqlmock.NewResult(0, 1))
		sqlMock.ExpectCommit()

		err := NewTxManager(db).WithTx(ctx, func(ctx context.Context) error {
			querier := GetTx(ctx, db)
			assert.IsType(t, &sql.Tx{}, querier)
			_, err := querier.ExecContext(ctx, "UPDATE canvas_tokens SET access_token = $1", "AT2")
			return err
		})

		assert.NoError(t, err)
	})

	t.Run("Error_RollbackOnCallbackError", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		sqlMock.ExpectBegin()
		sqlMock.ExpectRollback()

		refreshErr := errors.New("canvas refused refresh")
		err := NewTxManager(db).WithTx(ctx, func(context.Context) error {
			return refreshErr
		})

		assert.Equal(t, refreshErr, err)
	})

	t.Run("Error_RollbackFailureKeepsCause", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		sqlMock.ExpectBegin()
		sqlMock.ExpectRollback().WillReturnError(sql.ErrConnDone)

		refreshErr := errors.New("canvas refused refresh")
		err := NewTxManager(db).WithTx(ctx, func(context.Context) error {
			return refreshErr
		})

		assert.ErrorIs(t, err, refreshErr)
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})

	t.Run("Error_Commit", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		sqlMock.ExpectBegin()
		sqlMock.ExpectCommit().WillReturnError(sql.ErrConnDone)

		err := NewTxManager(db).WithTx(ctx, func(context.Context) error { return nil })

		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.Contains(t, err.Error(), "failed to commit")
	})

	t.Run("Error_Begin", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		sqlMock.ExpectBegin().WillReturnError(sql.ErrConnDone)

		called := false
		err := NewTxManager(db).WithTx(ctx, func(context.Context) error {
			called = true
			return nil
		})

		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.False(t, called)
	})

	t.Run("Success_NestedCallJoinsOuterTransaction", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		sqlMock.ExpectBegin()
		sqlMock.ExpectCommit()

		txManager := NewTxManager(db)
		err := txManager.WithTx(ctx, func(outer context.Context) error {
			return txManager.WithTx(outer, func(inner context.Context) error {
				assert.Same(t, GetTx(outer, db), GetTx(inner, db))
				return nil
			})
		})

		assert.NoError(t, err)
	})
}

func TestGetTx_WithoutTransaction(t *testing.T) {
	db, _ := newMockDB(t)

	assert.Equal(t, db, GetTx(context.Background(), db))
}
