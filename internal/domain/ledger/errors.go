package ledger

import "errors"

var (
	// ErrRecordNotFound レコードが見つからないエラー
	ErrRecordNotFound = errors.New("ledger record not found")
	// ErrDuplicateIdempotencyToken 冪等性トークン重複エラー
	// 同一の論理操作が既に適用済みであることを意味し、呼び出し側は既存レコードを再取得する
	ErrDuplicateIdempotencyToken = errors.New("duplicate idempotency token")
)
