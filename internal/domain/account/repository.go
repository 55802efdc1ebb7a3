package account

import (
	"context"
)

// AccountRepository アカウントリポジトリインターフェース
// 書き込みはTransferEngine（application/transfer）のみが行う
type AccountRepository interface {
	// FindByUserIDAndScope ユーザーIDと通貨スコープでアカウントを取得
	FindByUserIDAndScope(ctx context.Context, userID string, scope Scope) (*Account, error)

	// Save アカウントを保存（更新、楽観的ロック対応）
	// バージョンが一致しない場合はErrVersionConflictを返す
	Save(ctx context.Context, account *Account) error

	// Create 新しいアカウントを作成
	Create(ctx context.Context, account *Account) error
}
