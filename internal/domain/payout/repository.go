package payout

import (
	"context"
)

// PayoutRepository 換金申請リポジトリインターフェース
// ステータス遷移はPayoutProcessor（application/payout）のみが行う
type PayoutRepository interface {
	// Create 新しい換金申請を作成
	Create(ctx context.Context, request *PayoutRequest) error

	// FindByPayoutID 換金申請IDで換金申請を取得
	FindByPayoutID(ctx context.Context, payoutID string) (*PayoutRequest, error)

	// FindByCreator クリエイターの換金申請一覧を取得（ページネーション対応）
	FindByCreator(ctx context.Context, creatorUserID string, limit, offset int) ([]*PayoutRequest, error)

	// UpdateStatus 期待する現在ステータスを条件にCASでステータスを更新する
	// 条件が一致しない場合はErrInvalidTransitionを返す
	UpdateStatus(ctx context.Context, request *PayoutRequest, expected Status) error
}
