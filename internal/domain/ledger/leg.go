package ledger

import (
	"xp-server/internal/domain/account"
)

// Leg 1つのアカウントに対する符号付きデルタ
// 正のデルタは加算、負のデルタは減算を意味する
type Leg struct {
	UserID string        `json:"user_id"`
	Scope  account.Scope `json:"scope"`
	Delta  int64         `json:"delta"`
}

// NewLeg 新しいLegを作成
func NewLeg(userID string, scope account.Scope, delta int64) Leg {
	return Leg{
		UserID: userID,
		Scope:  scope,
		Delta:  delta,
	}
}

// IsCredit 加算レッグかどうかを返す
func (l Leg) IsCredit() bool {
	return l.Delta > 0
}

// IsDebit 減算レッグかどうかを返す
func (l Leg) IsDebit() bool {
	return l.Delta < 0
}

// SameAccount 同じアカウントに対するレッグかどうかを返す
func (l Leg) SameAccount(other Leg) bool {
	return l.UserID == other.UserID && l.Scope == other.Scope
}
