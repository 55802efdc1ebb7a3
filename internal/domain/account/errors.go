package account

import "errors"

var (
	// ErrInsufficientBalance 残高不足エラー
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount 無効な金額エラー
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAccountNotFound アカウントが見つからないエラー
	ErrAccountNotFound = errors.New("account not found")
	// ErrVersionConflict 楽観的ロックの競合エラー
	ErrVersionConflict = errors.New("account version conflict")
)
