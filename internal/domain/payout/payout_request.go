package payout

import (
	"errors"
	"regexp"
	"time"

	"xp-server/internal/domain/account"
	"xp-server/internal/domain/rate"
)

var (
	// ErrInvalidPayoutID 換金申請IDが無効
	ErrInvalidPayoutID = errors.New("invalid payout request id")
	// ErrInvalidCreatorID クリエイターIDが無効
	ErrInvalidCreatorID = errors.New("invalid creator id")
	// ErrInvalidAmount 金額が無効
	ErrInvalidAmount = errors.New("invalid amount")
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\@]{1,255}$`)

// PayoutRequest 換金申請エンティティ
// 申請時点でXPはクリエイター残高から控除済みであり、レートと手数料は申請時点で凍結される
type PayoutRequest struct {
	payoutID      string
	creatorUserID string
	creatorScope  account.Scope
	amount        int64     // 申請XP額（総額）
	rate          rate.Rate // 凍結された換算レート
	fee           int64     // 凍結された手数料（XP建て）
	netAmount     int64     // 支払額（通貨の最小単位）
	failureReason string
	status        Status
	requestedAt   time.Time
	processedAt   *time.Time
}

// NewPayoutRequest 新しいPayoutRequestエンティティを作成（申請時はpending）
func NewPayoutRequest(
	payoutID string,
	creatorUserID string,
	creatorScope account.Scope,
	amount int64,
	frozenRate rate.Rate,
	fee int64,
	netAmount int64,
) (*PayoutRequest, error) {
	if !idRegex.MatchString(payoutID) {
		return nil, ErrInvalidPayoutID
	}
	if !idRegex.MatchString(creatorUserID) {
		return nil, ErrInvalidCreatorID
	}
	if !creatorScope.Valid() {
		return nil, account.ErrInvalidScope
	}
	if amount <= 0 || amount > account.MaxAmount {
		return nil, ErrInvalidAmount
	}
	if fee < 0 || fee > amount || netAmount < 0 {
		return nil, ErrInvalidAmount
	}
	return &PayoutRequest{
		payoutID:      payoutID,
		creatorUserID: creatorUserID,
		creatorScope:  creatorScope,
		amount:        amount,
		rate:          frozenRate,
		fee:           fee,
		netAmount:     netAmount,
		status:        StatusPending,
		requestedAt:   time.Now(),
	}, nil
}

// PayoutID 換金申請IDを返す
func (p *PayoutRequest) PayoutID() string {
	return p.payoutID
}

// CreatorUserID クリエイターのユーザーIDを返す
func (p *PayoutRequest) CreatorUserID() string {
	return p.creatorUserID
}

// CreatorScope クリエイターの通貨スコープを返す
func (p *PayoutRequest) CreatorScope() account.Scope {
	return p.creatorScope
}

// Amount 申請XP額を返す
func (p *PayoutRequest) Amount() int64 {
	return p.amount
}

// Rate 凍結された換算レートを返す
func (p *PayoutRequest) Rate() rate.Rate {
	return p.rate
}

// Fee 凍結された手数料を返す
func (p *PayoutRequest) Fee() int64 {
	return p.fee
}

// Share 手数料控除後のXP取り分を返す
func (p *PayoutRequest) Share() int64 {
	return p.amount - p.fee
}

// NetAmount 支払額（通貨の最小単位）を返す
func (p *PayoutRequest) NetAmount() int64 {
	return p.netAmount
}

// FailureReason 失敗理由を返す
func (p *PayoutRequest) FailureReason() string {
	return p.failureReason
}

// Status ステータスを返す
func (p *PayoutRequest) Status() Status {
	return p.status
}

// RequestedAt 申請日時を返す
func (p *PayoutRequest) RequestedAt() time.Time {
	return p.requestedAt
}

// ProcessedAt 処理日時を返す（終端状態に達していない場合はnil）
func (p *PayoutRequest) ProcessedAt() *time.Time {
	return p.processedAt
}

// MarkProcessing 処理中状態へ遷移する
func (p *PayoutRequest) MarkProcessing() error {
	return p.transition(StatusProcessing)
}

// MarkCompleted 完了状態へ遷移する
func (p *PayoutRequest) MarkCompleted() error {
	return p.transition(StatusCompleted)
}

// MarkFailed 失敗状態へ遷移する
func (p *PayoutRequest) MarkFailed(reason string) error {
	if err := p.transition(StatusFailed); err != nil {
		return err
	}
	p.failureReason = reason
	return nil
}

// Cancel キャンセル状態へ遷移する（pendingの間のみ有効）
func (p *PayoutRequest) Cancel() error {
	if p.status != StatusPending {
		return ErrInvalidTransition
	}
	return p.transition(StatusCancelled)
}

// transition ステータス遷移の共通処理
func (p *PayoutRequest) transition(next Status) error {
	if !p.status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	p.status = next
	if next.IsTerminal() {
		now := time.Now()
		p.processedAt = &now
	}
	return nil
}

// Reconstruct 永続化層からPayoutRequestエンティティを復元する
func Reconstruct(
	payoutID string,
	creatorUserID string,
	creatorScope account.Scope,
	amount int64,
	frozenRate rate.Rate,
	fee int64,
	netAmount int64,
	failureReason string,
	status Status,
	requestedAt time.Time,
	processedAt *time.Time,
) (*PayoutRequest, error) {
	p, err := NewPayoutRequest(payoutID, creatorUserID, creatorScope, amount, frozenRate, fee, netAmount)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	p.failureReason = failureReason
	p.status = status
	p.requestedAt = requestedAt
	p.processedAt = processedAt
	return p, nil
}

// MustNewPayoutRequest テスト用ヘルパー: NewPayoutRequestを呼び出し、エラーが発生した場合はpanicする
func MustNewPayoutRequest(
	payoutID string,
	creatorUserID string,
	creatorScope account.Scope,
	amount int64,
	frozenRate rate.Rate,
	fee int64,
	netAmount int64,
) *PayoutRequest {
	p, err := NewPayoutRequest(payoutID, creatorUserID, creatorScope, amount, frozenRate, fee, netAmount)
	if err != nil {
		panic(err)
	}
	return p
}
