package payout

import (
	"fmt"
)

// Status 換金申請のステータスを表す値オブジェクト
// 遷移は一方向: pending → processing → completed、または pending → failed / cancelled
type Status string

const (
	StatusPending    Status = "pending"    // 申請済み
	StatusProcessing Status = "processing" // 処理中
	StatusCompleted  Status = "completed"  // 完了
	StatusFailed     Status = "failed"     // 失敗
	StatusCancelled  Status = "cancelled"  // キャンセル
)

// NewStatus 新しいStatusを作成
func NewStatus(s string) (Status, error) {
	switch s {
	case "pending", "processing", "completed", "failed", "cancelled":
		return Status(s), nil
	default:
		return "", fmt.Errorf("invalid payout status: %s", s)
	}
}

// String 文字列表現を返す
func (s Status) String() string {
	return string(s)
}

// Valid 有効なステータスかどうかを返す
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal 終端状態かどうかを返す
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo 指定のステータスへ遷移可能かどうかを返す
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed || next == StatusCancelled
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}
