package handler

import "time"

// PushRateRequest レート更新リクエスト（管理API用）
// @Description レート更新リクエスト
type PushRateRequest struct {
	Scope     string `json:"scope" example:"creator:alice"`
	XPPerUnit string `json:"xp_per_unit" example:"100"`
	Currency  string `json:"currency" example:"USD"`
}

// RateResponse 換算レートレスポンス
// @Description 換算レートレスポンス
type RateResponse struct {
	Scope     string    `json:"scope" example:"creator:alice"`
	XPPerUnit string    `json:"xp_per_unit" example:"100"`
	Currency  string    `json:"currency" example:"USD"`
	Version   int64     `json:"version" example:"3"`
	UpdatedAt time.Time `json:"updated_at"`
}
