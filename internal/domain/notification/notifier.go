package notification

import (
	"context"
	"time"
)

// Event 通知イベント
type Event struct {
	Type       string                 `json:"type"` // "ledger_record", "marketplace_sale", "payout_status"
	UserID     string                 `json:"user_id"`
	RecordID   string                 `json:"record_id,omitempty"`
	PayoutID   string                 `json:"payout_id,omitempty"`
	ListingID  string                 `json:"listing_id,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Notifier 通知コラボレーターインターフェース
// ベストエフォートのファイアアンドフォーゲットであり、
// 通知の失敗が台帳の結果に影響することはない
type Notifier interface {
	// Notify イベントを通知する（非ブロッキング）
	Notify(ctx context.Context, event Event)
}
