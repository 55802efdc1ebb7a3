package rateadmin

import "time"

// GetRateRequest レート取得リクエスト
type GetRateRequest struct {
	Scope string
}

// PushRateRequest レート更新リクエスト
type PushRateRequest struct {
	Scope     string
	XPPerUnit int64
	Currency  string
}

// RateView 換算レートの表示用ビュー
type RateView struct {
	Scope     string
	XPPerUnit int64
	Currency  string
	Version   int64
	UpdatedAt time.Time
}
