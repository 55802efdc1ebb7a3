package listing

import (
	"context"
)

// ListingRepository リスティングリポジトリインターフェース
// ステータス遷移はMarketplaceExchange（application/marketplace）のみが行う
type ListingRepository interface {
	// Create 新しいリスティングを作成
	Create(ctx context.Context, listing *Listing) error

	// FindByListingID リスティングIDでリスティングを取得
	FindByListingID(ctx context.Context, listingID string) (*Listing, error)

	// FindActive 出品中のリスティング一覧を取得（ページネーション対応）
	FindActive(ctx context.Context, limit, offset int) ([]*Listing, error)

	// MarkSold activeからsoldへCASで遷移させる
	// 現在のバージョンスタンプが一致しない、またはactiveでない場合はErrListingUnavailableを返す
	MarkSold(ctx context.Context, listingID string, version int) error

	// Reactivate soldからactiveへ戻す（購入の補償処理用、スタンプは新しくなる）
	Reactivate(ctx context.Context, listingID string) error

	// MarkCancelled activeからcancelledへCASで遷移させる
	MarkCancelled(ctx context.Context, listingID string, version int) error
}
