package transfer

// LegInput 振替レッグの入力
type LegInput struct {
	UserID string
	Scope  string // "platform" または "creator:<id>"
	Delta  int64  // 符号付き（正=入金、負=出金）
}

// LegResult 確定したレッグ（手数料分割後）
type LegResult struct {
	UserID string
	Scope  string
	Delta  int64
}

// ExecuteRequest 振替実行リクエスト
type ExecuteRequest struct {
	IdempotencyToken string
	Kind             string // "earn", "spend", "transfer", "marketplace_sale", "gift", "payout", "refund"
	Legs             []LegInput
	Metadata         map[string]interface{}
}

// ExecuteResponse 振替実行レスポンス
type ExecuteResponse struct {
	RecordID string
	Kind     string
	Legs     []LegResult
	Gross    int64
	Fee      int64
	Share    int64
	Status   string // "completed" または "already_applied"
}

// SpendRequest 消費リクエスト
// ユーザーのXPをプラットフォーム口座へ振り替える
type SpendRequest struct {
	UserID           string
	Scope            string
	Amount           int64
	IdempotencyToken string
	Metadata         map[string]interface{}
}

// GetBalanceRequest 残高取得リクエスト
type GetBalanceRequest struct {
	UserID string
	Scope  string // 空の場合はプラットフォームスコープ
}

// GetBalanceResponse 残高取得レスポンス
type GetBalanceResponse struct {
	UserID  string
	Scope   string
	Current int64
	Earned  int64
	Spent   int64
}

// GetSpendableRequest エコシステム内の消費可能残高取得リクエスト
type GetSpendableRequest struct {
	UserID       string
	CreatorScope string
}

// GetSpendableResponse エコシステム内の消費可能残高取得レスポンス
type GetSpendableResponse struct {
	UserID    string
	Spendable int64
}
