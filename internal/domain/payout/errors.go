package payout

import "errors"

var (
	// ErrPayoutNotFound 換金申請が見つからないエラー
	ErrPayoutNotFound = errors.New("payout request not found")
	// ErrInvalidTransition 不正なステータス遷移エラー
	ErrInvalidTransition = errors.New("invalid payout status transition")
	// ErrInvalidStatus ステータスが無効
	ErrInvalidStatus = errors.New("invalid payout status")
	// ErrBelowMinimum 申請額が最低額未満エラー
	ErrBelowMinimum = errors.New("payout amount below minimum")
)
