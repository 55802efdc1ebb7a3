package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransactionManager(t *testing.T) (*TransactionManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tm := NewTransactionManager(&DB{DB: db}, 5*time.Second)
	return tm, mock
}

func TestTransactionManager_WithTransaction(t *testing.T) {
	t.Run("正常系: 関数が成功したらコミット", func(t *testing.T) {
		tm, mock := newTestTransactionManager(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE accounts`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := tm.WithTransaction(context.Background(), func(ctx context.Context) error {
			_, err := tm.db.conn(ctx).ExecContext(ctx, "UPDATE accounts SET current_balance = 0")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("異常系: 関数がエラーを返したらロールバック", func(t *testing.T) {
		tm, mock := newTestTransactionManager(t)

		mock.ExpectBegin()
		mock.ExpectRollback()

		wantErr := errors.New("insufficient balance")
		err := tm.WithTransaction(context.Background(), func(ctx context.Context) error {
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("異常系: トランザクション開始に失敗", func(t *testing.T) {
		tm, mock := newTestTransactionManager(t)

		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		called := false
		err := tm.WithTransaction(context.Background(), func(ctx context.Context) error {
			called = true
			return nil
		})
		assert.Error(t, err)
		assert.False(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("異常系: パニック時はロールバックして再パニック", func(t *testing.T) {
		tm, mock := newTestTransactionManager(t)

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = tm.WithTransaction(context.Background(), func(ctx context.Context) error {
				panic("boom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
