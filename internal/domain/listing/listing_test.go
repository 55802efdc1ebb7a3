package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xp-server/internal/domain/account"
)

func TestNewListing(t *testing.T) {
	creatorAlice := account.MustNewScope("creator:alice")

	tests := []struct {
		name         string
		listingID    string
		sellerUserID string
		sellerScope  account.Scope
		price        int64
		wantError    error
	}{
		{
			name:         "正常系: 出品（初期ステータスはactive）",
			listingID:    "lst_001",
			sellerUserID: "alice",
			sellerScope:  creatorAlice,
			price:        1500,
		},
		{
			name:         "異常系: 無効なリスティングID",
			listingID:    "",
			sellerUserID: "alice",
			sellerScope:  creatorAlice,
			price:        1500,
			wantError:    ErrInvalidListingID,
		},
		{
			name:         "異常系: 無効な出品者ID",
			listingID:    "lst_002",
			sellerUserID: "",
			sellerScope:  creatorAlice,
			price:        1500,
			wantError:    ErrInvalidSellerID,
		},
		{
			name:         "異常系: 無効なスコープ",
			listingID:    "lst_003",
			sellerUserID: "alice",
			sellerScope:  account.Scope("invalid"),
			price:        1500,
			wantError:    account.ErrInvalidScope,
		},
		{
			name:         "異常系: ゼロ価格",
			listingID:    "lst_004",
			sellerUserID: "alice",
			sellerScope:  creatorAlice,
			price:        0,
			wantError:    ErrInvalidPrice,
		},
		{
			name:         "異常系: 負の価格",
			listingID:    "lst_005",
			sellerUserID: "alice",
			sellerScope:  creatorAlice,
			price:        -100,
			wantError:    ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewListing(tt.listingID, tt.sellerUserID, tt.sellerScope, tt.price)

			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.listingID, got.ListingID())
			assert.Equal(t, tt.sellerUserID, got.SellerUserID())
			assert.Equal(t, tt.sellerScope, got.SellerScope())
			assert.Equal(t, tt.price, got.Price())
			assert.Equal(t, StatusActive, got.Status())
			assert.Equal(t, 0, got.Version())
		})
	}
}

func TestReconstruct(t *testing.T) {
	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	updatedAt := createdAt.Add(time.Hour)

	t.Run("正常系: 売約済みリスティングの復元", func(t *testing.T) {
		got, err := Reconstruct("lst_001", "alice", account.MustNewScope("creator:alice"), 1500, StatusSold, 3, createdAt, updatedAt)
		require.NoError(t, err)
		assert.Equal(t, StatusSold, got.Status())
		assert.Equal(t, 3, got.Version())
		assert.Equal(t, createdAt, got.CreatedAt())
		assert.Equal(t, updatedAt, got.UpdatedAt())
	})

	t.Run("異常系: 無効なステータス", func(t *testing.T) {
		_, err := Reconstruct("lst_001", "alice", account.MustNewScope("creator:alice"), 1500, Status("pending"), 0, createdAt, updatedAt)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestNewStatus(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Status
		wantError bool
	}{
		{name: "正常系: active", input: "active", want: StatusActive},
		{name: "正常系: sold", input: "sold", want: StatusSold},
		{name: "正常系: cancelled", input: "cancelled", want: StatusCancelled},
		{name: "異常系: 未知のステータス", input: "pending", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewStatus(tt.input)

			if tt.wantError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_IsActive(t *testing.T) {
	assert.True(t, StatusActive.IsActive())
	assert.False(t, StatusSold.IsActive())
	assert.False(t, StatusCancelled.IsActive())
}
