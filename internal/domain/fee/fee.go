package fee

import (
	"errors"

	"xp-server/internal/domain/ledger"
)

var (
	// ErrInvalidAmount 無効な金額エラー
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidRule 手数料ルールが無効
	ErrInvalidRule = errors.New("invalid fee rule")
)

// Rule 種別ごとの手数料ルール
// 料率はベーシスポイント（1bps = 0.01%）、最低手数料は最小通貨単位
type Rule struct {
	Kind   ledger.Kind
	Bps    int64
	MinFee int64
}

// Valid 有効なルールかどうかを返す
func (r Rule) Valid() bool {
	return r.Kind.Valid() && r.Bps >= 0 && r.Bps <= 10000 && r.MinFee >= 0
}

// Split 手数料分割の結果
// Fee + Share == Gross が常に成立する
type Split struct {
	Fee   int64
	Share int64
}

// Table 種別から手数料ルールへのテーブル
// 設定から読み込まれ、変更は変更後に作成されるレコードにのみ反映される
type Table struct {
	rules map[ledger.Kind]Rule
}

// NewTable 新しいTableを作成
func NewTable(rules []Rule) (*Table, error) {
	m := make(map[ledger.Kind]Rule, len(rules))
	for _, r := range rules {
		if !r.Valid() {
			return nil, ErrInvalidRule
		}
		m[r.Kind] = r
	}
	return &Table{rules: m}, nil
}

// HasFee 種別に手数料ルールが存在するかどうかを返す
func (t *Table) HasFee(kind ledger.Kind) bool {
	r, ok := t.rules[kind]
	return ok && (r.Bps > 0 || r.MinFee > 0)
}

// Split 総額を手数料と相手方取り分に分割する
// 手数料 = max(最低手数料, 総額 * bps / 10000) を切り捨てで計算し、
// 端数は常に相手方取り分に残す（丸めで手数料が増えることはない）
// 手数料が総額を超える場合は総額に丸める
func (t *Table) Split(kind ledger.Kind, gross int64) (Split, error) {
	if gross <= 0 {
		return Split{}, ErrInvalidAmount
	}
	r, ok := t.rules[kind]
	if !ok {
		return Split{Fee: 0, Share: gross}, nil
	}
	f := gross * r.Bps / 10000
	if f < r.MinFee {
		f = r.MinFee
	}
	if f > gross {
		f = gross
	}
	return Split{Fee: f, Share: gross - f}, nil
}

// MustNewTable テスト用ヘルパー: NewTableを呼び出し、エラーが発生した場合はpanicする
func MustNewTable(rules []Rule) *Table {
	t, err := NewTable(rules)
	if err != nil {
		panic(err)
	}
	return t
}
