package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xp-server/internal/domain/account"
	"xp-server/internal/domain/rate"
)

func testRate(t *testing.T) rate.Rate {
	t.Helper()
	r, err := rate.NewRate(account.MustNewScope("creator:alice"), 100, "USD", 3)
	require.NoError(t, err)
	return r
}

func TestNewPayoutRequest(t *testing.T) {
	creatorAlice := account.MustNewScope("creator:alice")

	tests := []struct {
		name      string
		payoutID  string
		creatorID string
		amount    int64
		fee       int64
		netAmount int64
		wantError error
	}{
		{
			name:      "正常系: 換金申請の作成（初期ステータスはpending）",
			payoutID:  "pay_001",
			creatorID: "alice",
			amount:    1500,
			fee:       30,
			netAmount: 1470,
		},
		{
			name:      "異常系: 無効な換金申請ID",
			payoutID:  "",
			creatorID: "alice",
			amount:    1500,
			wantError: ErrInvalidPayoutID,
		},
		{
			name:      "異常系: 無効なクリエイターID",
			payoutID:  "pay_002",
			creatorID: "",
			amount:    1500,
			wantError: ErrInvalidCreatorID,
		},
		{
			name:      "異常系: ゼロ金額",
			payoutID:  "pay_003",
			creatorID: "alice",
			amount:    0,
			wantError: ErrInvalidAmount,
		},
		{
			name:      "異常系: 手数料が申請額を超える",
			payoutID:  "pay_004",
			creatorID: "alice",
			amount:    100,
			fee:       200,
			wantError: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPayoutRequest(tt.payoutID, tt.creatorID, creatorAlice, tt.amount, testRate(t), tt.fee, tt.netAmount)

			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.payoutID, got.PayoutID())
			assert.Equal(t, tt.creatorID, got.CreatorUserID())
			assert.Equal(t, tt.amount, got.Amount())
			assert.Equal(t, tt.fee, got.Fee())
			assert.Equal(t, tt.amount-tt.fee, got.Share())
			assert.Equal(t, tt.netAmount, got.NetAmount())
			assert.Equal(t, StatusPending, got.Status())
			assert.Nil(t, got.ProcessedAt())
			// レートは申請時点で凍結される
			assert.Equal(t, int64(3), got.Rate().Version)
		})
	}
}

func TestPayoutRequest_Transitions(t *testing.T) {
	newRequest := func(t *testing.T) *PayoutRequest {
		return MustNewPayoutRequest("pay_001", "alice", account.MustNewScope("creator:alice"), 1500, testRate(t), 30, 1470)
	}

	t.Run("正常系: pending → processing → completed", func(t *testing.T) {
		p := newRequest(t)
		require.NoError(t, p.MarkProcessing())
		assert.Equal(t, StatusProcessing, p.Status())
		assert.Nil(t, p.ProcessedAt())

		require.NoError(t, p.MarkCompleted())
		assert.Equal(t, StatusCompleted, p.Status())
		assert.NotNil(t, p.ProcessedAt())
	})

	t.Run("正常系: pending → failed（理由付き）", func(t *testing.T) {
		p := newRequest(t)
		require.NoError(t, p.MarkFailed("口座情報の不備"))
		assert.Equal(t, StatusFailed, p.Status())
		assert.Equal(t, "口座情報の不備", p.FailureReason())
		assert.NotNil(t, p.ProcessedAt())
	})

	t.Run("正常系: processing → failed", func(t *testing.T) {
		p := newRequest(t)
		require.NoError(t, p.MarkProcessing())
		require.NoError(t, p.MarkFailed("送金エラー"))
		assert.Equal(t, StatusFailed, p.Status())
	})

	t.Run("正常系: pending → cancelled", func(t *testing.T) {
		p := newRequest(t)
		require.NoError(t, p.Cancel())
		assert.Equal(t, StatusCancelled, p.Status())
		assert.NotNil(t, p.ProcessedAt())
	})

	t.Run("異常系: pendingから直接completedへは遷移できない", func(t *testing.T) {
		p := newRequest(t)
		assert.ErrorIs(t, p.MarkCompleted(), ErrInvalidTransition)
	})

	t.Run("異常系: processingのキャンセルは不可", func(t *testing.T) {
		p := newRequest(t)
		require.NoError(t, p.MarkProcessing())
		assert.ErrorIs(t, p.Cancel(), ErrInvalidTransition)
	})

	t.Run("異常系: 終端状態からは遷移できない", func(t *testing.T) {
		p := newRequest(t)
		require.NoError(t, p.MarkProcessing())
		require.NoError(t, p.MarkCompleted())
		assert.ErrorIs(t, p.MarkProcessing(), ErrInvalidTransition)
		assert.ErrorIs(t, p.MarkFailed("late"), ErrInvalidTransition)
	})
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{name: "pending → processing", from: StatusPending, to: StatusProcessing, want: true},
		{name: "pending → failed", from: StatusPending, to: StatusFailed, want: true},
		{name: "pending → cancelled", from: StatusPending, to: StatusCancelled, want: true},
		{name: "pending → completed は不可", from: StatusPending, to: StatusCompleted, want: false},
		{name: "processing → completed", from: StatusProcessing, to: StatusCompleted, want: true},
		{name: "processing → failed", from: StatusProcessing, to: StatusFailed, want: true},
		{name: "processing → cancelled は不可", from: StatusProcessing, to: StatusCancelled, want: false},
		{name: "completed からは遷移不可", from: StatusCompleted, to: StatusFailed, want: false},
		{name: "failed からは遷移不可", from: StatusFailed, to: StatusProcessing, want: false},
		{name: "cancelled からは遷移不可", from: StatusCancelled, to: StatusProcessing, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}
