package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	payoutapp "xp-server/internal/application/payout"
	"xp-server/internal/domain/account"
	"xp-server/internal/domain/fee"
	"xp-server/internal/domain/ledger"
	"xp-server/internal/domain/payout"
	"xp-server/internal/domain/rate"
	otelinfra "xp-server/internal/infrastructure/observability/otel"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type payoutHandlerMocks struct {
	accountRepo  *MockAccountRepository
	ledgerRepo   *MockLedgerRepository
	payoutRepo   *MockPayoutRepository
	txManager    *MockTransactionManager
	rateProvider *MockRateProvider
	gateway      *MockSettlementGateway
	notifier     *MockNotifier
}

func newPayoutHandlerMocks() *payoutHandlerMocks {
	m := &payoutHandlerMocks{
		accountRepo:  new(MockAccountRepository),
		ledgerRepo:   new(MockLedgerRepository),
		payoutRepo:   new(MockPayoutRepository),
		txManager:    new(MockTransactionManager),
		rateProvider: new(MockRateProvider),
		gateway:      new(MockSettlementGateway),
		notifier:     new(MockNotifier),
	}
	m.notifier.On("Notify", mock.Anything, mock.Anything).Maybe()
	return m
}

func newTestPayoutHandler(mocks *payoutHandlerMocks) *PayoutHandler {
	tracer := noop.NewTracerProvider().Tracer("test")
	logger := otelinfra.NewLogger(tracer)
	metrics, _ := otelinfra.NewMetrics("test")

	feeTable, err := fee.NewTable([]fee.Rule{
		{Kind: ledger.KindPayout, Bps: 500},
	})
	if err != nil {
		panic(err)
	}

	transferService := newTestTransferApplicationService(mocks.accountRepo, mocks.ledgerRepo, mocks.txManager, mocks.notifier)
	payoutService := payoutapp.NewPayoutApplicationService(
		mocks.payoutRepo,
		transferService,
		mocks.rateProvider,
		feeTable,
		mocks.gateway,
		mocks.notifier,
		100,
		"payout_holding",
		"platform_treasury",
		logger,
		metrics,
	)
	return NewPayoutHandler(payoutService)
}

func handlerTestRate(t *testing.T) rate.Rate {
	t.Helper()
	r, err := rate.NewRate(account.MustNewScope("creator:alice"), 100, "USD", 3)
	require.NoError(t, err)
	return r
}

func pendingHandlerPayout(t *testing.T) *payout.PayoutRequest {
	t.Helper()
	return payout.MustNewPayoutRequest(
		"pay_001",
		"alice",
		account.MustNewScope("creator:alice"),
		1000,
		handlerTestRate(t),
		50,
		950,
	)
}

func TestPayoutHandler_RequestPayout(t *testing.T) {
	tests := []struct {
		name           string
		tokenUserID    string
		body           string
		setupMock      func(*testing.T, *payoutHandlerMocks)
		expectedStatus int
		checkResponse  func(*testing.T, map[string]interface{})
	}{
		{
			name:        "正常系: 換金申請成功",
			tokenUserID: "alice",
			body:        `{"amount":"1000","idempotency_token":"payout-001"}`,
			setupMock: func(t *testing.T, m *payoutHandlerMocks) {
				creatorScope := account.MustNewScope("creator:alice")
				m.rateProvider.On("CurrentRate", mock.Anything, creatorScope).Return(handlerTestRate(t), nil)

				creator := account.MustNewAccount("alice", creatorScope, 5000, 5000, 0, 1)
				holding := account.MustNewAccount("payout_holding", account.ScopePlatform, 0, 0, 0, 1)
				treasury := account.MustNewAccount("platform_treasury", account.ScopePlatform, 0, 0, 0, 1)
				m.txManager.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
				m.accountRepo.On("FindByUserIDAndScope", mock.Anything, "alice", creatorScope).Return(creator, nil)
				m.accountRepo.On("FindByUserIDAndScope", mock.Anything, "payout_holding", account.ScopePlatform).Return(holding, nil)
				m.accountRepo.On("FindByUserIDAndScope", mock.Anything, "platform_treasury", account.ScopePlatform).Return(treasury, nil)
				m.accountRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
				m.ledgerRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
				m.payoutRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				// 1000 XPの申請に対し500bpsの手数料、レートは100 XP = 1ドル
				assert.Equal(t, "1000", response["amount"])
				assert.Equal(t, "50", response["fee"])
				assert.Equal(t, "950", response["net_amount_minor"])
				assert.Equal(t, "USD", response["currency"])
				assert.Equal(t, "100", response["rate_xp_per_unit"])
				assert.Equal(t, "pending", response["status"])
			},
		},
		{
			name:           "異常系: 最低額未満",
			tokenUserID:    "alice",
			body:           `{"amount":"50","idempotency_token":"payout-002"}`,
			setupMock:      func(t *testing.T, m *payoutHandlerMocks) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "異常系: user_idがトークンにない",
			tokenUserID:    "",
			body:           `{"amount":"1000","idempotency_token":"payout-003"}`,
			setupMock:      func(t *testing.T, m *payoutHandlerMocks) {},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			mocks := newPayoutHandlerMocks()
			tt.setupMock(t, mocks)
			handler := newTestPayoutHandler(mocks)

			req := httptest.NewRequest(http.MethodPost, "/me/payouts", bytes.NewBufferString(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.tokenUserID != "" {
				c.Set("user_id", tt.tokenUserID)
			}

			runHandler(e, c, handler.RequestPayout)
			assert.Equal(t, tt.expectedStatus, rec.Code)

			if tt.checkResponse != nil {
				var response map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
				tt.checkResponse(t, response)
			}
		})
	}
}

func TestPayoutHandler_GetPayout(t *testing.T) {
	tests := []struct {
		name           string
		tokenUserID    string
		setupMock      func(*testing.T, *payoutHandlerMocks)
		expectedStatus int
	}{
		{
			name:        "正常系: 自分の申請を取得",
			tokenUserID: "alice",
			setupMock: func(t *testing.T, m *payoutHandlerMocks) {
				m.payoutRepo.On("FindByPayoutID", mock.Anything, "pay_001").Return(pendingHandlerPayout(t), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:        "異常系: 他人の申請は404",
			tokenUserID: "mallory",
			setupMock: func(t *testing.T, m *payoutHandlerMocks) {
				m.payoutRepo.On("FindByPayoutID", mock.Anything, "pay_001").Return(pendingHandlerPayout(t), nil)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:        "異常系: 申請が存在しない",
			tokenUserID: "alice",
			setupMock: func(t *testing.T, m *payoutHandlerMocks) {
				m.payoutRepo.On("FindByPayoutID", mock.Anything, "pay_001").Return(nil, payout.ErrPayoutNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			mocks := newPayoutHandlerMocks()
			tt.setupMock(t, mocks)
			handler := newTestPayoutHandler(mocks)

			req := httptest.NewRequest(http.MethodGet, "/me/payouts/pay_001", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("payout_id")
			c.SetParamValues("pay_001")
			c.Set("user_id", tt.tokenUserID)

			runHandler(e, c, handler.GetPayout)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestPayoutHandler_ListPayouts(t *testing.T) {
	e := echo.New()
	mocks := newPayoutHandlerMocks()

	payouts := []*payout.PayoutRequest{pendingHandlerPayout(t)}
	mocks.payoutRepo.On("FindByCreator", mock.Anything, "alice", 20, 0).Return(payouts, nil)

	handler := newTestPayoutHandler(mocks)

	req := httptest.NewRequest(http.MethodGet, "/me/payouts", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "alice")

	runHandler(e, c, handler.ListPayouts)
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Len(t, response["payouts"], 1)
}

func TestPayoutHandler_CancelPayout(t *testing.T) {
	tests := []struct {
		name           string
		tokenUserID    string
		setupMock      func(*testing.T, *payoutHandlerMocks)
		expectedStatus int
	}{
		{
			name:        "正常系: キャンセルと返金成功",
			tokenUserID: "alice",
			setupMock: func(t *testing.T, m *payoutHandlerMocks) {
				creatorScope := account.MustNewScope("creator:alice")
				m.payoutRepo.On("FindByPayoutID", mock.Anything, "pay_001").Return(pendingHandlerPayout(t), nil)
				m.payoutRepo.On("UpdateStatus", mock.Anything, mock.Anything, payout.StatusPending).Return(nil)

				creator := account.MustNewAccount("alice", creatorScope, 4000, 5000, 1000, 2)
				holding := account.MustNewAccount("payout_holding", account.ScopePlatform, 950, 950, 0, 2)
				treasury := account.MustNewAccount("platform_treasury", account.ScopePlatform, 50, 50, 0, 2)
				m.txManager.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
				m.accountRepo.On("FindByUserIDAndScope", mock.Anything, "alice", creatorScope).Return(creator, nil)
				m.accountRepo.On("FindByUserIDAndScope", mock.Anything, "payout_holding", account.ScopePlatform).Return(holding, nil)
				m.accountRepo.On("FindByUserIDAndScope", mock.Anything, "platform_treasury", account.ScopePlatform).Return(treasury, nil)
				m.accountRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
				m.ledgerRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:        "異常系: 他人の申請は404",
			tokenUserID: "mallory",
			setupMock: func(t *testing.T, m *payoutHandlerMocks) {
				m.payoutRepo.On("FindByPayoutID", mock.Anything, "pay_001").Return(pendingHandlerPayout(t), nil)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			mocks := newPayoutHandlerMocks()
			tt.setupMock(t, mocks)
			handler := newTestPayoutHandler(mocks)

			req := httptest.NewRequest(http.MethodDelete, "/me/payouts/pay_001", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("payout_id")
			c.SetParamValues("pay_001")
			c.Set("user_id", tt.tokenUserID)

			runHandler(e, c, handler.CancelPayout)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestPayoutHandler_MarkCompleted(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*testing.T, *payoutHandlerMocks)
		expectedStatus int
	}{
		{
			name: "正常系: 完了遷移と送金指示",
			setupMock: func(t *testing.T, m *payoutHandlerMocks) {
				processing, err := payout.Reconstruct(
					"pay_001", "alice", account.MustNewScope("creator:alice"),
					1000, handlerTestRate(t), 50, 950,
					"", payout.StatusProcessing, time.Now(), nil,
				)
				require.NoError(t, err)
				m.payoutRepo.On("FindByPayoutID", mock.Anything, "pay_001").Return(processing, nil)
				m.payoutRepo.On("UpdateStatus", mock.Anything, mock.Anything, payout.StatusProcessing).Return(nil)
				m.gateway.On("Disburse", mock.Anything, mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "異常系: 保留中からの完了遷移は不可",
			setupMock: func(t *testing.T, m *payoutHandlerMocks) {
				m.payoutRepo.On("FindByPayoutID", mock.Anything, "pay_001").Return(pendingHandlerPayout(t), nil)
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			mocks := newPayoutHandlerMocks()
			tt.setupMock(t, mocks)
			handler := newTestPayoutHandler(mocks)

			req := httptest.NewRequest(http.MethodPost, "/admin/payouts/pay_001/complete", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("payout_id")
			c.SetParamValues("pay_001")

			runHandler(e, c, handler.MarkCompleted)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestPayoutHandler_MarkProcessing(t *testing.T) {
	e := echo.New()
	mocks := newPayoutHandlerMocks()

	mocks.payoutRepo.On("FindByPayoutID", mock.Anything, "pay_001").Return(pendingHandlerPayout(t), nil)
	mocks.payoutRepo.On("UpdateStatus", mock.Anything, mock.Anything, payout.StatusPending).Return(nil)

	handler := newTestPayoutHandler(mocks)

	req := httptest.NewRequest(http.MethodPost, "/admin/payouts/pay_001/processing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("payout_id")
	c.SetParamValues("pay_001")

	runHandler(e, c, handler.MarkProcessing)
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "processing", response["status"])
}
