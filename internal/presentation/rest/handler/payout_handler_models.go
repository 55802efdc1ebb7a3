package handler

import "time"

// RequestPayoutRequest 換金申請リクエスト
// @Description 換金申請リクエスト
type RequestPayoutRequest struct {
	Amount           string `json:"amount" example:"1500"`
	IdempotencyToken string `json:"idempotency_token" example:"payout-alice-20260831-001"`
}

// PayoutModel 換金申請モデル
// @Description 換金申請
type PayoutModel struct {
	PayoutID       string     `json:"payout_id" example:"pay_77d1"`
	CreatorUserID  string     `json:"creator_user_id" example:"alice"`
	Amount         string     `json:"amount" example:"1500"`
	Fee            string     `json:"fee" example:"30"`
	NetAmountMinor string     `json:"net_amount_minor" example:"1470"`
	Currency       string     `json:"currency" example:"USD"`
	RateXPPerUnit  string     `json:"rate_xp_per_unit" example:"100"`
	RateVersion    int64      `json:"rate_version" example:"3"`
	FailureReason  string     `json:"failure_reason,omitempty"`
	Status         string     `json:"status" example:"pending"`
	RequestedAt    time.Time  `json:"requested_at"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
}

// RequestPayoutResponse 換金申請レスポンス
// @Description 換金申請レスポンス
type RequestPayoutResponse struct {
	PayoutID       string `json:"payout_id" example:"pay_77d1"`
	Amount         string `json:"amount" example:"1500"`
	Fee            string `json:"fee" example:"30"`
	NetAmountMinor string `json:"net_amount_minor" example:"1470"`
	Currency       string `json:"currency" example:"USD"`
	RateXPPerUnit  string `json:"rate_xp_per_unit" example:"100"`
	RateVersion    int64  `json:"rate_version" example:"3"`
	Status         string `json:"status" example:"pending"`
}

// PayoutTransitionRequest ステータス遷移リクエスト（管理API用）
// @Description ステータス遷移リクエスト
type PayoutTransitionRequest struct {
	Reason string `json:"reason,omitempty" example:"口座情報の不備"`
}

// PayoutTransitionResponse ステータス遷移レスポンス
// @Description ステータス遷移レスポンス
type PayoutTransitionResponse struct {
	PayoutID string `json:"payout_id" example:"pay_77d1"`
	Status   string `json:"status" example:"processing"`
}

// ListPayoutsResponse 換金申請一覧レスポンス
// @Description 換金申請一覧レスポンス
type ListPayoutsResponse struct {
	Payouts []PayoutModel `json:"payouts"`
	Limit   int           `json:"limit" example:"20"`
	Offset  int           `json:"offset" example:"0"`
}
