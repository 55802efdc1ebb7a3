package handler

// LegModel レッグモデル
// @Description 台帳レッグ
type LegModel struct {
	UserID string `json:"user_id" example:"user123"`
	Scope  string `json:"scope" example:"creator:alice"`
	Delta  string `json:"delta" example:"-500"`
}

// EarnRequest XP発行リクエスト
// @Description XP発行リクエスト（管理API用）
type EarnRequest struct {
	Scope            string                 `json:"scope" example:"creator:alice"`
	Amount           string                 `json:"amount" example:"100"`
	IdempotencyToken string                 `json:"idempotency_token" example:"earn-user123-20260831-001"`
	Reason           string                 `json:"reason" example:"配信視聴報酬"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// SpendRequest XP消費リクエスト
// @Description XP消費リクエスト
type SpendRequest struct {
	Scope            string                 `json:"scope" example:"creator:alice"`
	Amount           string                 `json:"amount" example:"50"`
	IdempotencyToken string                 `json:"idempotency_token" example:"spend-user123-20260831-001"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// GiftRequest ギフト送付リクエスト
// @Description ギフト送付リクエスト
type GiftRequest struct {
	RecipientUserID  string                 `json:"recipient_user_id" example:"creator_alice"`
	Scope            string                 `json:"scope" example:"creator:alice"`
	Amount           string                 `json:"amount" example:"1000"`
	IdempotencyToken string                 `json:"idempotency_token" example:"gift-user123-20260831-001"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// ExecuteTransferRequest 任意振替リクエスト（管理API用）
// @Description 任意のレッグ構成による振替リクエスト
type ExecuteTransferRequest struct {
	Kind             string                 `json:"kind" example:"transfer"`
	Legs             []LegModel             `json:"legs"`
	IdempotencyToken string                 `json:"idempotency_token" example:"tx-20260831-001"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// TransferResponse 振替レスポンス
// @Description 振替レスポンス
type TransferResponse struct {
	RecordID string     `json:"record_id" example:"rec_9f1c"`
	Kind     string     `json:"kind" example:"gift"`
	Legs     []LegModel `json:"legs"`
	Gross    string     `json:"gross" example:"1000"`
	Fee      string     `json:"fee" example:"50"`
	Share    string     `json:"share" example:"950"`
	Status   string     `json:"status" example:"completed"`
}
