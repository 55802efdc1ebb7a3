package mysql

import (
	"context"
	"database/sql"
	"time"
)

// TransactionManager トランザクション管理を提供
// 1つの論理操作に属する全ての残高更新と台帳追記を
// 直列化可能分離レベルの単一トランザクションに束ねる
type TransactionManager struct {
	db      *DB
	timeout time.Duration
}

// NewTransactionManager 新しいトランザクションマネージャーを作成
func NewTransactionManager(db *DB, timeout time.Duration) *TransactionManager {
	return &TransactionManager{db: db, timeout: timeout}
}

// WithTransaction トランザクション内で関数を実行
// fnに渡されるコンテキスト経由のリポジトリ操作は同一トランザクションに参加する
// タイムアウトはロック待ちの上限であり、超過時の結果は「不明」として
// 呼び出し側が同一の冪等性トークンで再確認する
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if tm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tm.timeout)
		defer cancel()
	}

	var tx *sql.Tx
	tx, err = tm.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(contextWithTx(ctx, tx))
	return err
}
