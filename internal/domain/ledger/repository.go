package ledger

import (
	"context"
)

// LedgerRepository 台帳リポジトリインターフェース
// 追記専用: Appendのみが書き込み操作であり、更新・削除は存在しない
type LedgerRepository interface {
	// Append レコードを追記する
	// 冪等性トークンの一意性はストレージ層の一意インデックスで保証され、
	// 重複時はErrDuplicateIdempotencyTokenを返す
	Append(ctx context.Context, record *Record) error

	// FindByRecordID レコードIDでレコードを取得
	FindByRecordID(ctx context.Context, recordID string) (*Record, error)

	// FindByIdempotencyToken 冪等性トークンでレコードを取得
	FindByIdempotencyToken(ctx context.Context, token string) (*Record, error)

	// FindByUserID ユーザーIDでレコード一覧を取得（ページネーション対応）
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*Record, error)
}

// TransactionManager トランザクション管理インターフェース
// 1つの論理操作に属する残高更新と台帳追記を単一のDBトランザクションに束ねる
type TransactionManager interface {
	// WithTransaction トランザクション内で関数を実行
	// fnに渡されるコンテキストを経由したリポジトリ操作は同一トランザクションに参加する
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
