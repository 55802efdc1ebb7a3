package handler

import (
	"strconv"
	"time"

	historyapp "xp-server/internal/application/history"
)

// RecordLegModel 台帳レッグモデル
// @Description 台帳レコードのレッグ
type RecordLegModel struct {
	UserID string `json:"user_id" example:"alice"`
	Scope  string `json:"scope" example:"creator:bob"`
	Delta  string `json:"delta" example:"-500"`
}

// RecordModel 台帳レコードモデル
// @Description 台帳レコード
type RecordModel struct {
	RecordID  string                 `json:"record_id" example:"rec_8f3a"`
	Kind      string                 `json:"kind" example:"transfer"`
	Legs      []RecordLegModel       `json:"legs"`
	Gross     string                 `json:"gross" example:"500"`
	Fee       string                 `json:"fee" example:"10"`
	Share     string                 `json:"share" example:"490"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// HistoryResponse 台帳履歴レスポンス
// @Description 台帳履歴レスポンス
type HistoryResponse struct {
	Records []RecordModel `json:"records"`
	Limit   int           `json:"limit" example:"50"`
	Offset  int           `json:"offset" example:"0"`
}

func toRecordModel(v historyapp.RecordView) RecordModel {
	legs := make([]RecordLegModel, 0, len(v.Legs))
	for _, leg := range v.Legs {
		legs = append(legs, RecordLegModel{
			UserID: leg.UserID,
			Scope:  leg.Scope,
			Delta:  strconv.FormatInt(leg.Delta, 10),
		})
	}
	return RecordModel{
		RecordID:  v.RecordID,
		Kind:      v.Kind,
		Legs:      legs,
		Gross:     strconv.FormatInt(v.Gross, 10),
		Fee:       strconv.FormatInt(v.Fee, 10),
		Share:     strconv.FormatInt(v.Share, 10),
		Metadata:  v.Metadata,
		CreatedAt: v.CreatedAt,
	}
}
