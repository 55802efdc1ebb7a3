package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	tests := []struct {
		name      string
		userID    string
		scope     Scope
		current   int64
		earned    int64
		spent     int64
		version   int
		wantError error
	}{
		{
			name:    "正常系: プラットフォームスコープのアカウント作成",
			userID:  "user123",
			scope:   ScopePlatform,
			current: 1000,
			earned:  1500,
			spent:   500,
			version: 1,
		},
		{
			name:    "正常系: クリエイタースコープのアカウント作成",
			userID:  "user456",
			scope:   MustNewScope("creator:alice"),
			current: 0,
			earned:  0,
			spent:   0,
			version: 0,
		},
		{
			name:      "異常系: 負の残高",
			userID:    "user123",
			scope:     ScopePlatform,
			current:   -100,
			earned:    0,
			spent:     100,
			wantError: ErrBalanceOutOfRange,
		},
		{
			name:      "異常系: 残高上限超過",
			userID:    "user123",
			scope:     ScopePlatform,
			current:   MaxAmount + 1,
			earned:    MaxAmount + 1,
			spent:     0,
			wantError: ErrBalanceOutOfRange,
		},
		{
			name:      "異常系: 累計カウンターと現在残高の不整合",
			userID:    "user123",
			scope:     ScopePlatform,
			current:   1000,
			earned:    1500,
			spent:     400,
			wantError: ErrCountersInconsistent,
		},
		{
			name:      "異常系: 空のユーザーID",
			userID:    "",
			scope:     ScopePlatform,
			wantError: ErrInvalidUserID,
		},
		{
			name:      "異常系: 無効なスコープ",
			userID:    "user123",
			scope:     Scope("invalid"),
			wantError: ErrInvalidScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAccount(tt.userID, tt.scope, tt.current, tt.earned, tt.spent, tt.version)

			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.userID, got.UserID())
			assert.Equal(t, tt.scope, got.Scope())
			assert.Equal(t, tt.current, got.Current())
			assert.Equal(t, tt.earned, got.Earned())
			assert.Equal(t, tt.spent, got.Spent())
			assert.Equal(t, tt.version, got.Version())
		})
	}
}

func TestAccount_Credit(t *testing.T) {
	tests := []struct {
		name        string
		account     *Account
		amount      int64
		wantCurrent int64
		wantEarned  int64
		wantError   error
	}{
		{
			name:        "正常系: 残高への加算",
			account:     MustNewAccount("user123", ScopePlatform, 1000, 1000, 0, 1),
			amount:      500,
			wantCurrent: 1500,
			wantEarned:  1500,
		},
		{
			name:        "正常系: ゼロ残高への加算",
			account:     MustNewAccount("user123", ScopePlatform, 0, 0, 0, 0),
			amount:      100,
			wantCurrent: 100,
			wantEarned:  100,
		},
		{
			name:      "異常系: ゼロ金額",
			account:   MustNewAccount("user123", ScopePlatform, 1000, 1000, 0, 1),
			amount:    0,
			wantError: ErrInvalidAmount,
		},
		{
			name:      "異常系: 負の金額",
			account:   MustNewAccount("user123", ScopePlatform, 1000, 1000, 0, 1),
			amount:    -100,
			wantError: ErrInvalidAmount,
		},
		{
			name:      "異常系: 上限超過",
			account:   MustNewAccount("user123", ScopePlatform, MaxAmount-100, MaxAmount-100, 0, 1),
			amount:    200,
			wantError: ErrBalanceOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Credit(tt.amount)

			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCurrent, tt.account.Current())
			assert.Equal(t, tt.wantEarned, tt.account.Earned())
		})
	}
}

func TestAccount_Debit(t *testing.T) {
	tests := []struct {
		name        string
		account     *Account
		amount      int64
		wantCurrent int64
		wantSpent   int64
		wantError   error
	}{
		{
			name:        "正常系: 残高からの減算",
			account:     MustNewAccount("user123", ScopePlatform, 1000, 1000, 0, 1),
			amount:      300,
			wantCurrent: 700,
			wantSpent:   300,
		},
		{
			name:        "正常系: 全額消費",
			account:     MustNewAccount("user123", ScopePlatform, 1000, 1000, 0, 1),
			amount:      1000,
			wantCurrent: 0,
			wantSpent:   1000,
		},
		{
			name:      "異常系: 残高不足",
			account:   MustNewAccount("user123", ScopePlatform, 100, 100, 0, 1),
			amount:    200,
			wantError: ErrInsufficientBalance,
		},
		{
			name:      "異常系: ゼロ金額",
			account:   MustNewAccount("user123", ScopePlatform, 1000, 1000, 0, 1),
			amount:    0,
			wantError: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.account.Current()
			err := tt.account.Debit(tt.amount)

			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				// 失敗時は状態が変化しない
				assert.Equal(t, before, tt.account.Current())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCurrent, tt.account.Current())
			assert.Equal(t, tt.wantSpent, tt.account.Spent())
		})
	}
}

func TestAccount_Apply(t *testing.T) {
	t.Run("正常系: 正のデルタは加算として適用", func(t *testing.T) {
		a := MustNewAccount("user123", ScopePlatform, 100, 100, 0, 1)
		require.NoError(t, a.Apply(50))
		assert.Equal(t, int64(150), a.Current())
		assert.Equal(t, int64(150), a.Earned())
	})

	t.Run("正常系: 負のデルタは減算として適用", func(t *testing.T) {
		a := MustNewAccount("user123", ScopePlatform, 100, 100, 0, 1)
		require.NoError(t, a.Apply(-40))
		assert.Equal(t, int64(60), a.Current())
		assert.Equal(t, int64(40), a.Spent())
	})

	t.Run("正常系: current == earned - spent が常に成立", func(t *testing.T) {
		a := MustNewAccount("user123", ScopePlatform, 0, 0, 0, 0)
		require.NoError(t, a.Apply(1000))
		require.NoError(t, a.Apply(-300))
		require.NoError(t, a.Apply(500))
		assert.Equal(t, a.Earned()-a.Spent(), a.Current())
	})

	t.Run("異常系: 残高不足のデルタ", func(t *testing.T) {
		a := MustNewAccount("user123", ScopePlatform, 100, 100, 0, 1)
		err := a.Apply(-200)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})
}

func TestNewZeroAccount(t *testing.T) {
	a, err := NewZeroAccount("user123", MustNewScope("creator:alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Current())
	assert.Equal(t, int64(0), a.Earned())
	assert.Equal(t, int64(0), a.Spent())
	assert.Equal(t, 0, a.Version())
}
