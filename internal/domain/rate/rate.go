package rate

import (
	"context"
	"errors"
	"time"

	"xp-server/internal/domain/account"
)

var (
	// ErrRateNotFound レートが見つからないエラー
	ErrRateNotFound = errors.New("conversion rate not found")
	// ErrInvalidRate レートが無効
	ErrInvalidRate = errors.New("invalid conversion rate")
)

// Rate XPから通貨への換算レートを表す値オブジェクト
// バージョン付きで管理され、処理中の換金申請は申請時点のレートを保持し続ける
type Rate struct {
	Scope     account.Scope `json:"scope"`
	XPPerUnit int64         `json:"xp_per_unit"` // 通貨1単位あたりのXP数（例: 100 XP = 1ドル）
	Currency  string        `json:"currency"`    // 通貨コード（例: "USD", "JPY"）
	Version   int64         `json:"version"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewRate 新しいRateを作成
func NewRate(scope account.Scope, xpPerUnit int64, currency string, version int64) (Rate, error) {
	if !scope.Valid() {
		return Rate{}, account.ErrInvalidScope
	}
	if xpPerUnit <= 0 {
		return Rate{}, ErrInvalidRate
	}
	if currency == "" {
		return Rate{}, ErrInvalidRate
	}
	return Rate{
		Scope:     scope,
		XPPerUnit: xpPerUnit,
		Currency:  currency,
		Version:   version,
		UpdatedAt: time.Now(),
	}, nil
}

// zeroDecimalCurrencies 最小単位が通貨単位そのものであるISO 4217通貨コード
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

// MinorUnitsPerUnit 通貨1単位あたりの最小単位数を返す（JPYは1、USDは100）
func (r Rate) MinorUnitsPerUnit() int64 {
	if zeroDecimalCurrencies[r.Currency] {
		return 1
	}
	return 100
}

// MoneyMinorUnits XP額を通貨の最小単位（セント、円等）に換算する（切り捨て）
func (r Rate) MoneyMinorUnits(xp int64) int64 {
	if xp <= 0 {
		return 0
	}
	return xp * r.MinorUnitsPerUnit() / r.XPPerUnit
}

// Valid 有効なレートかどうかを返す
func (r Rate) Valid() bool {
	return r.Scope.Valid() && r.XPPerUnit > 0 && r.Currency != ""
}

// Provider 換算レートプロバイダーインターフェース
// レートの更新は外部の管理コラボレーターからPush経由で行われる
type Provider interface {
	// CurrentRate 指定スコープの現在レートを取得
	CurrentRate(ctx context.Context, scope account.Scope) (Rate, error)

	// Push 新しいレートを設定（バージョンは単調増加する）
	Push(ctx context.Context, scope account.Scope, xpPerUnit int64, currency string) (Rate, error)
}
