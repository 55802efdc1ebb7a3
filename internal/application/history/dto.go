package history

import "time"

// GetLedgerHistoryRequest 台帳履歴取得リクエスト
type GetLedgerHistoryRequest struct {
	UserID string
	Kind   string // 空の場合は全種別
	Limit  int
	Offset int
}

// RecordLegView レッグの表示用ビュー
type RecordLegView struct {
	UserID string `json:"user_id"`
	Scope  string `json:"scope"`
	Delta  int64  `json:"delta"`
}

// RecordView 台帳レコードの表示用ビュー
type RecordView struct {
	RecordID  string                 `json:"record_id"`
	Kind      string                 `json:"kind"`
	Legs      []RecordLegView        `json:"legs"`
	Gross     int64                  `json:"gross"`
	Fee       int64                  `json:"fee"`
	Share     int64                  `json:"share"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// GetLedgerHistoryResponse 台帳履歴取得レスポンス
type GetLedgerHistoryResponse struct {
	Records []RecordView
	Total   int
	Limit   int
	Offset  int
}

// GetRecordRequest 台帳レコード取得リクエスト
type GetRecordRequest struct {
	RecordID string
}

// GetRecordResponse 台帳レコード取得レスポンス
type GetRecordResponse struct {
	Record RecordView
}
