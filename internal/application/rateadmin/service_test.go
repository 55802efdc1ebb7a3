package rateadmin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"xp-server/internal/domain/account"
	"xp-server/internal/domain/rate"
	otelinfra "xp-server/internal/infrastructure/observability/otel"
)

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

func newTestRateService(provider *MockRateProvider) *RateApplicationService {
	tracer := otel.Tracer("test")
	return NewRateApplicationService(provider, otelinfra.NewLogger(tracer))
}

func TestRateApplicationService_GetRate(t *testing.T) {
	creatorScope := account.MustNewScope("creator:alice")

	t.Run("正常系: 現在レートを取得", func(t *testing.T) {
		mockProvider := new(MockRateProvider)
		current, err := rate.NewRate(creatorScope, 100, "USD", 3)
		require.NoError(t, err)
		mockProvider.On("CurrentRate", mock.Anything, creatorScope).Return(current, nil)

		svc := newTestRateService(mockProvider)
		got, err := svc.GetRate(context.Background(), &GetRateRequest{Scope: "creator:alice"})

		require.NoError(t, err)
		assert.Equal(t, "creator:alice", got.Scope)
		assert.Equal(t, int64(100), got.XPPerUnit)
		assert.Equal(t, "USD", got.Currency)
		assert.Equal(t, int64(3), got.Version)
		mockProvider.AssertExpectations(t)
	})

	t.Run("異常系: 不正なスコープ", func(t *testing.T) {
		svc := newTestRateService(new(MockRateProvider))

		got, err := svc.GetRate(context.Background(), &GetRateRequest{Scope: "creator:"})

		assert.ErrorIs(t, err, account.ErrInvalidScope)
		assert.Nil(t, got)
	})

	t.Run("異常系: プロバイダーエラー", func(t *testing.T) {
		mockProvider := new(MockRateProvider)
		mockProvider.On("CurrentRate", mock.Anything, creatorScope).Return(rate.Rate{}, errors.New("provider unavailable"))

		svc := newTestRateService(mockProvider)
		got, err := svc.GetRate(context.Background(), &GetRateRequest{Scope: "creator:alice"})

		assert.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestRateApplicationService_PushRate(t *testing.T) {
	creatorScope := account.MustNewScope("creator:alice")

	t.Run("正常系: レートを設定しバージョンが進む", func(t *testing.T) {
		mockProvider := new(MockRateProvider)
		pushed, err := rate.NewRate(creatorScope, 120, "USD", 4)
		require.NoError(t, err)
		mockProvider.On("Push", mock.Anything, creatorScope, int64(120), "USD").Return(pushed, nil)

		svc := newTestRateService(mockProvider)
		got, err := svc.PushRate(context.Background(), &PushRateRequest{
			Scope:     "creator:alice",
			XPPerUnit: 120,
			Currency:  "USD",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(120), got.XPPerUnit)
		assert.Equal(t, int64(4), got.Version)
		mockProvider.AssertExpectations(t)
	})

	t.Run("異常系: 不正なレートは拒否される", func(t *testing.T) {
		mockProvider := new(MockRateProvider)
		mockProvider.On("Push", mock.Anything, creatorScope, int64(0), "USD").Return(rate.Rate{}, rate.ErrInvalidRate)

		svc := newTestRateService(mockProvider)
		got, err := svc.PushRate(context.Background(), &PushRateRequest{
			Scope:     "creator:alice",
			XPPerUnit: 0,
			Currency:  "USD",
		})

		assert.ErrorIs(t, err, rate.ErrInvalidRate)
		assert.Nil(t, got)
	})
}
