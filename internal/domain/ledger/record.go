package ledger

import (
	"errors"
	"regexp"
	"time"

	"xp-server/internal/domain/account"
)

var (
	// ErrInvalidRecordID レコードIDが無効
	ErrInvalidRecordID = errors.New("invalid record id")
	// ErrInvalidIdempotencyToken 冪等性トークンが無効
	ErrInvalidIdempotencyToken = errors.New("invalid idempotency token")
	// ErrInvalidKind 種別が無効
	ErrInvalidKind = errors.New("invalid ledger kind")
	// ErrNoLegs レッグが空
	ErrNoLegs = errors.New("record has no legs")
	// ErrInvalidLegDelta レッグのデルタが無効
	ErrInvalidLegDelta = errors.New("invalid leg delta")
	// ErrUnbalancedLegs レッグ合計がゼロでない（保存則違反）
	ErrUnbalancedLegs = errors.New("legs do not sum to zero")
	// ErrInvalidMintLegs 発行種別のレッグ構成が無効
	ErrInvalidMintLegs = errors.New("minting record must have exactly one credit leg")
	// ErrInvalidFeeSplit 手数料分割が総額と一致しない
	ErrInvalidFeeSplit = errors.New("fee and share do not sum to gross")
)

var (
	idRegex    = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\@]{1,255}$`)
	tokenRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\@:]{1,255}$`)
)

// Record 台帳レコードエンティティ
// 残高に影響する全ての事象の不変な記録。作成後は変更も削除もされない
type Record struct {
	recordID         string
	idempotencyToken string
	kind             Kind
	legs             []Leg
	gross            int64 // 総額（整数値、小数点なし）
	fee              int64 // プラットフォーム手数料
	share            int64 // 相手方取り分
	metadata         map[string]interface{}
	createdAt        time.Time
}

// NewRecord 新しいRecordエンティティを作成
// 発行種別（earn）以外はレッグ合計がゼロであることを検証する
func NewRecord(
	recordID string,
	idempotencyToken string,
	kind Kind,
	legs []Leg,
	gross int64,
	fee int64,
	share int64,
	metadata map[string]interface{},
) (*Record, error) {
	if !idRegex.MatchString(recordID) {
		return nil, ErrInvalidRecordID
	}
	if !tokenRegex.MatchString(idempotencyToken) {
		return nil, ErrInvalidIdempotencyToken
	}
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if len(legs) == 0 {
		return nil, ErrNoLegs
	}
	var sum int64
	for _, leg := range legs {
		if leg.Delta == 0 || leg.Delta > account.MaxAmount || leg.Delta < -account.MaxAmount {
			return nil, ErrInvalidLegDelta
		}
		sum += leg.Delta
	}
	if kind.IsMinting() {
		if len(legs) != 1 || !legs[0].IsCredit() {
			return nil, ErrInvalidMintLegs
		}
	} else if sum != 0 {
		return nil, ErrUnbalancedLegs
	}
	if gross < 0 || fee < 0 || share < 0 {
		return nil, ErrInvalidLegDelta
	}
	if fee+share != gross {
		return nil, ErrInvalidFeeSplit
	}

	return &Record{
		recordID:         recordID,
		idempotencyToken: idempotencyToken,
		kind:             kind,
		legs:             legs,
		gross:            gross,
		fee:              fee,
		share:            share,
		metadata:         metadata,
		createdAt:        time.Now(),
	}, nil
}

// RecordID レコードIDを返す
func (r *Record) RecordID() string {
	return r.recordID
}

// IdempotencyToken 冪等性トークンを返す
func (r *Record) IdempotencyToken() string {
	return r.idempotencyToken
}

// Kind 種別を返す
func (r *Record) Kind() Kind {
	return r.kind
}

// Legs レッグ一覧を返す
func (r *Record) Legs() []Leg {
	return r.legs
}

// Gross 総額を返す
func (r *Record) Gross() int64 {
	return r.gross
}

// Fee プラットフォーム手数料を返す
func (r *Record) Fee() int64 {
	return r.fee
}

// Share 相手方取り分を返す
func (r *Record) Share() int64 {
	return r.share
}

// Metadata メタデータを返す
func (r *Record) Metadata() map[string]interface{} {
	return r.metadata
}

// CreatedAt 作成日時を返す
func (r *Record) CreatedAt() time.Time {
	return r.createdAt
}

// Reconstruct 永続化層からRecordエンティティを復元する
func Reconstruct(
	recordID string,
	idempotencyToken string,
	kind Kind,
	legs []Leg,
	gross int64,
	fee int64,
	share int64,
	metadata map[string]interface{},
	createdAt time.Time,
) (*Record, error) {
	r, err := NewRecord(recordID, idempotencyToken, kind, legs, gross, fee, share, metadata)
	if err != nil {
		return nil, err
	}
	r.createdAt = createdAt
	return r, nil
}

// MustNewRecord テスト用ヘルパー: NewRecordを呼び出し、エラーが発生した場合はpanicする
func MustNewRecord(
	recordID string,
	idempotencyToken string,
	kind Kind,
	legs []Leg,
	gross int64,
	fee int64,
	share int64,
	metadata map[string]interface{},
) *Record {
	r, err := NewRecord(recordID, idempotencyToken, kind, legs, gross, fee, share, metadata)
	if err != nil {
		panic(err)
	}
	return r
}
