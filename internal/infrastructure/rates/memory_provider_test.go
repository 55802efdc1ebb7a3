package rates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xp-server/internal/domain/account"
)

func TestMemoryProvider_CurrentRate(t *testing.T) {
	t.Run("正常系: 未設定スコープはデフォルトレート（バージョン0）", func(t *testing.T) {
		provider := NewMemoryProvider(100, "USD")
		scope := account.MustNewScope("creator:alice")

		got, err := provider.CurrentRate(context.Background(), scope)
		require.NoError(t, err)
		assert.Equal(t, int64(100), got.XPPerUnit)
		assert.Equal(t, "USD", got.Currency)
		assert.Equal(t, int64(0), got.Version)
		assert.Equal(t, scope, got.Scope)
	})

	t.Run("正常系: Push済みスコープは最新レートを返す", func(t *testing.T) {
		provider := NewMemoryProvider(100, "USD")
		scope := account.MustNewScope("creator:alice")

		_, err := provider.Push(context.Background(), scope, 120, "USD")
		require.NoError(t, err)

		got, err := provider.CurrentRate(context.Background(), scope)
		require.NoError(t, err)
		assert.Equal(t, int64(120), got.XPPerUnit)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("異常系: デフォルトレートが不正", func(t *testing.T) {
		provider := NewMemoryProvider(0, "USD")
		scope := account.MustNewScope("creator:alice")

		_, err := provider.CurrentRate(context.Background(), scope)
		assert.Error(t, err)
	})
}

func TestMemoryProvider_Push(t *testing.T) {
	t.Run("正常系: バージョンは1から単調増加", func(t *testing.T) {
		provider := NewMemoryProvider(100, "USD")
		scope := account.MustNewScope("creator:alice")

		first, err := provider.Push(context.Background(), scope, 110, "USD")
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.Version)

		second, err := provider.Push(context.Background(), scope, 130, "USD")
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.Version)
		assert.Equal(t, int64(130), second.XPPerUnit)
	})

	t.Run("正常系: スコープごとにバージョンは独立", func(t *testing.T) {
		provider := NewMemoryProvider(100, "USD")
		alice := account.MustNewScope("creator:alice")
		bob := account.MustNewScope("creator:bob")

		_, err := provider.Push(context.Background(), alice, 110, "USD")
		require.NoError(t, err)
		_, err = provider.Push(context.Background(), alice, 120, "USD")
		require.NoError(t, err)

		got, err := provider.Push(context.Background(), bob, 90, "EUR")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
		assert.Equal(t, "EUR", got.Currency)
	})

	t.Run("異常系: 不正なレートは保存されない", func(t *testing.T) {
		provider := NewMemoryProvider(100, "USD")
		scope := account.MustNewScope("creator:alice")

		_, err := provider.Push(context.Background(), scope, -1, "USD")
		assert.Error(t, err)

		got, err := provider.CurrentRate(context.Background(), scope)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Version)
	})
}
