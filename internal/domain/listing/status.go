package listing

import (
	"fmt"
)

// Status リスティングのステータスを表す値オブジェクト
type Status string

const (
	StatusActive    Status = "active"    // 出品中
	StatusSold      Status = "sold"      // 売約済み
	StatusCancelled Status = "cancelled" // キャンセル
)

// NewStatus 新しいStatusを作成
func NewStatus(s string) (Status, error) {
	switch s {
	case "active", "sold", "cancelled":
		return Status(s), nil
	default:
		return "", fmt.Errorf("invalid listing status: %s", s)
	}
}

// String 文字列表現を返す
func (s Status) String() string {
	return string(s)
}

// Valid 有効なステータスかどうかを返す
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSold, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive 出品中かどうかを返す
func (s Status) IsActive() bool {
	return s == StatusActive
}

// IsSold 売約済みかどうかを返す
func (s Status) IsSold() bool {
	return s == StatusSold
}
