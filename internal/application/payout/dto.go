package payout

import "time"

// RequestPayoutRequest 換金申請リクエスト
type RequestPayoutRequest struct {
	CreatorUserID    string
	Amount           int64
	IdempotencyToken string
}

// RequestPayoutResponse 換金申請レスポンス
type RequestPayoutResponse struct {
	PayoutID       string
	Amount         int64
	Fee            int64
	NetAmountMinor int64
	Currency       string
	RateXPPerUnit  int64
	RateVersion    int64
	Status         string
}

// TransitionRequest ステータス遷移リクエスト
type TransitionRequest struct {
	PayoutID string
	Reason   string // MarkFailedでのみ使用
}

// CancelRequest 換金申請キャンセルリクエスト
type CancelRequest struct {
	PayoutID      string
	CreatorUserID string
}

// PayoutView 換金申請の表示用ビュー
type PayoutView struct {
	PayoutID       string
	CreatorUserID  string
	Amount         int64
	Fee            int64
	NetAmountMinor int64
	Currency       string
	RateXPPerUnit  int64
	RateVersion    int64
	FailureReason  string
	Status         string
	RequestedAt    time.Time
	ProcessedAt    *time.Time
}

// TransitionResponse ステータス遷移レスポンス
type TransitionResponse struct {
	PayoutID string
	Status   string
}

// GetPayoutRequest 換金申請取得リクエスト
type GetPayoutRequest struct {
	PayoutID string
}

// GetPayoutResponse 換金申請取得レスポンス
type GetPayoutResponse struct {
	Payout PayoutView
}

// ListPayoutsRequest クリエイターの換金申請一覧リクエスト
type ListPayoutsRequest struct {
	CreatorUserID string
	Limit         int
	Offset        int
}

// ListPayoutsResponse クリエイターの換金申請一覧レスポンス
type ListPayoutsResponse struct {
	Payouts []PayoutView
	Limit   int
	Offset  int
}
