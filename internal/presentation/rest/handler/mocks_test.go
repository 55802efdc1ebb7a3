package handler

import (
	"context"

	"xp-server/internal/domain/account"
	"xp-server/internal/domain/ledger"
	"xp-server/internal/domain/listing"
	"xp-server/internal/domain/notification"
	"xp-server/internal/domain/payout"
	"xp-server/internal/domain/rate"
	"xp-server/internal/domain/settlement"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository モックアカウントリポジトリ
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByUserIDAndScope(ctx context.Context, userID string, scope account.Scope) (*account.Account, error) {
	args := m.Called(ctx, userID, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepository) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

// MockLedgerRepository モック台帳リポジトリ
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, record *ledger.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindByRecordID(ctx context.Context, recordID string) (*ledger.Record, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Record), args.Error(1)
}

func (m *MockLedgerRepository) FindByIdempotencyToken(ctx context.Context, token string) (*ledger.Record, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Record), args.Error(1)
}

func (m *MockLedgerRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*ledger.Record, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Record), args.Error(1)
}

// MockListingRepository モックリスティングリポジトリ
type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockListingRepository) FindByListingID(ctx context.Context, listingID string) (*listing.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) FindActive(ctx context.Context, limit, offset int) ([]*listing.Listing, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) MarkSold(ctx context.Context, listingID string, version int) error {
	args := m.Called(ctx, listingID, version)
	return args.Error(0)
}

func (m *MockListingRepository) Reactivate(ctx context.Context, listingID string) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

func (m *MockListingRepository) MarkCancelled(ctx context.Context, listingID string, version int) error {
	args := m.Called(ctx, listingID, version)
	return args.Error(0)
}

// MockPayoutRepository モック換金申請リポジトリ
type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) Create(ctx context.Context, request *payout.PayoutRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockPayoutRepository) FindByPayoutID(ctx context.Context, payoutID string) (*payout.PayoutRequest, error) {
	args := m.Called(ctx, payoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.PayoutRequest), args.Error(1)
}

func (m *MockPayoutRepository) FindByCreator(ctx context.Context, creatorUserID string, limit, offset int) ([]*payout.PayoutRequest, error) {
	args := m.Called(ctx, creatorUserID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payout.PayoutRequest), args.Error(1)
}

func (m *MockPayoutRepository) UpdateStatus(ctx context.Context, request *payout.PayoutRequest, expected payout.Status) error {
	args := m.Called(ctx, request, expected)
	return args.Error(0)
}

// MockTransactionManager モックトランザクションマネージャー
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if fn != nil {
		return fn(ctx)
	}
	return args.Error(0)
}

// MockRateProvider モック換算レートプロバイダー
type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) CurrentRate(ctx context.Context, scope account.Scope) (rate.Rate, error) {
	args := m.Called(ctx, scope)
	return args.Get(0).(rate.Rate), args.Error(1)
}

func (m *MockRateProvider) Push(ctx context.Context, scope account.Scope, xpPerUnit int64, currency string) (rate.Rate, error) {
	args := m.Called(ctx, scope, xpPerUnit, currency)
	return args.Get(0).(rate.Rate), args.Error(1)
}

// MockNotifier モック通知コラボレーター
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event notification.Event) {
	m.Called(ctx, event)
}

// MockSettlementGateway モック外部送金ゲートウェイ
type MockSettlementGateway struct {
	mock.Mock
}

func (m *MockSettlementGateway) Disburse(ctx context.Context, d settlement.Disbursement) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}
