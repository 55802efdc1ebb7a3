package settlement

import (
	"context"
)

// Disbursement 外部送金の指示内容
// 換金申請の完了時点で凍結済みの値のみを渡す
type Disbursement struct {
	PayoutID       string `json:"payout_id"`
	CreatorUserID  string `json:"creator_user_id"`
	NetAmountMinor int64  `json:"net_amount_minor"` // 通貨の最小単位
	Currency       string `json:"currency"`
}

// Gateway 外部送金コラボレーターインターフェース
// PayoutProcessorのmarkCompletedでのみ呼び出される（申請ごとに高々1回）
type Gateway interface {
	// Disburse 送金を指示する
	Disburse(ctx context.Context, d Disbursement) error
}
