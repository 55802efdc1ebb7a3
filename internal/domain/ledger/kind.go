package ledger

import (
	"fmt"
)

// Kind 台帳レコードの種別を表す値オブジェクト
type Kind string

const (
	KindEarn            Kind = "earn"             // 獲得（発行）
	KindSpend           Kind = "spend"            // 消費
	KindTransfer        Kind = "transfer"         // 送付
	KindMarketplaceSale Kind = "marketplace_sale" // マーケットプレイス売買
	KindGift            Kind = "gift"             // ギフト
	KindPayout          Kind = "payout"           // 換金申請
	KindRefund          Kind = "refund"           // 返金
)

// NewKind 新しいKindを作成
func NewKind(s string) (Kind, error) {
	switch s {
	case "earn", "spend", "transfer", "marketplace_sale", "gift", "payout", "refund":
		return Kind(s), nil
	default:
		return "", fmt.Errorf("invalid ledger kind: %s", s)
	}
}

// String 文字列表現を返す
func (k Kind) String() string {
	return string(k)
}

// Valid 有効な種別かどうかを返す
func (k Kind) Valid() bool {
	switch k {
	case KindEarn, KindSpend, KindTransfer, KindMarketplaceSale, KindGift, KindPayout, KindRefund:
		return true
	default:
		return false
	}
}

// IsMinting 通貨を発行する種別かどうかを返す
// earnのみが発行種別であり、レッグ合計ゼロの保存則が適用されない唯一の種別
func (k Kind) IsMinting() bool {
	return k == KindEarn
}
