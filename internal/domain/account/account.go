package account

import (
	"errors"
	"regexp"
)

var (
	// ErrInvalidUserID ユーザーIDが無効
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrInvalidScope 通貨スコープが無効
	ErrInvalidScope = errors.New("invalid currency scope")
	// ErrBalanceOutOfRange 残高が範囲外
	ErrBalanceOutOfRange = errors.New("balance out of range")
	// ErrAmountTooLarge 金額が大きすぎる
	ErrAmountTooLarge = errors.New("amount too large")
	// ErrCountersInconsistent 累計カウンターと現在残高が一致しない
	ErrCountersInconsistent = errors.New("balance counters inconsistent")
)

// MaxAmount 最大金額 (10兆)
const MaxAmount = 10_000_000_000_000

var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\@]{1,255}$`)

// Account アカウントエンティティ
// (ユーザーID, 通貨スコープ) の組ごとに残高を保持する
// 不変条件: current >= 0 かつ current == earned - spent
type Account struct {
	userID  string
	scope   Scope
	current int64 // 現在残高（整数値、小数点なし）
	earned  int64 // 獲得累計（単調増加）
	spent   int64 // 消費累計（単調増加）
	version int   // 楽観的ロック用
}

// NewAccount 新しいAccountエンティティを作成
func NewAccount(userID string, scope Scope, current, earned, spent int64, version int) (*Account, error) {
	if !userIDRegex.MatchString(userID) {
		return nil, ErrInvalidUserID
	}
	if !scope.Valid() {
		return nil, ErrInvalidScope
	}
	if current < 0 || current > MaxAmount {
		return nil, ErrBalanceOutOfRange
	}
	if earned < 0 || spent < 0 {
		return nil, ErrBalanceOutOfRange
	}
	if current != earned-spent {
		return nil, ErrCountersInconsistent
	}
	return &Account{
		userID:  userID,
		scope:   scope,
		current: current,
		earned:  earned,
		spent:   spent,
		version: version,
	}, nil
}

// NewZeroAccount 残高ゼロの新しいAccountエンティティを作成
func NewZeroAccount(userID string, scope Scope) (*Account, error) {
	return NewAccount(userID, scope, 0, 0, 0, 0)
}

// UserID ユーザーIDを返す
func (a *Account) UserID() string {
	return a.userID
}

// Scope 通貨スコープを返す
func (a *Account) Scope() Scope {
	return a.scope
}

// Current 現在残高を返す
func (a *Account) Current() int64 {
	return a.current
}

// Earned 獲得累計を返す
func (a *Account) Earned() int64 {
	return a.earned
}

// Spent 消費累計を返す
func (a *Account) Spent() int64 {
	return a.spent
}

// Version バージョンを返す（楽観的ロック用）
// バージョンの加算は永続化層のCAS更新で行われ、エンティティ側では変更しない
func (a *Account) Version() int {
	return a.version
}

// Credit 通貨を加算する（獲得累計も加算）
func (a *Account) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxAmount {
		return ErrAmountTooLarge
	}
	// オーバーフローチェック
	if a.current > MaxAmount-amount {
		return ErrBalanceOutOfRange
	}
	a.current += amount
	a.earned += amount
	return nil
}

// Debit 通貨を減算する（消費累計も加算）
// 残高不足の場合はErrInsufficientBalanceを返し、状態は変化しない
func (a *Account) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxAmount {
		return ErrAmountTooLarge
	}
	if a.current < amount {
		return ErrInsufficientBalance
	}
	a.current -= amount
	a.spent += amount
	return nil
}

// Apply 符号付きデルタを適用する（正なら加算、負なら減算）
func (a *Account) Apply(delta int64) error {
	if delta >= 0 {
		return a.Credit(delta)
	}
	return a.Debit(-delta)
}

// MustNewAccount テスト用ヘルパー: NewAccountを呼び出し、エラーが発生した場合はpanicする
func MustNewAccount(userID string, scope Scope, current, earned, spent int64, version int) *Account {
	a, err := NewAccount(userID, scope, current, earned, spent, version)
	if err != nil {
		panic(err)
	}
	return a
}
