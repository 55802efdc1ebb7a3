package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"xp-server/internal/domain/account"
	"xp-server/internal/domain/payout"
	"xp-server/internal/domain/rate"
)

func newTestPayoutRequestRepository(t *testing.T) (*PayoutRequestRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := &PayoutRequestRepository{
		db:     &DB{DB: db},
		tracer: otel.Tracer("test"),
	}
	return repo, mock
}

func testPayoutRequest(t *testing.T) *payout.PayoutRequest {
	t.Helper()
	scope := account.MustNewScope("creator:alice")
	frozenRate, err := rate.NewRate(scope, 100, "USD", 3)
	require.NoError(t, err)
	return payout.MustNewPayoutRequest("pay_001", "alice", scope, 1000, frozenRate, 50, 950)
}

func TestPayoutRequestRepository_Create(t *testing.T) {
	t.Run("正常系: 換金申請を作成", func(t *testing.T) {
		repo, mock := newTestPayoutRequestRepository(t)
		request := testPayoutRequest(t)

		mock.ExpectExec(`INSERT INTO payout_requests`).
			WithArgs(
				"pay_001", "alice", "creator:alice", int64(1000),
				int64(100), "USD", int64(3),
				int64(50), int64(950), "", "pending",
				sqlmock.AnyArg(), nil,
			).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, repo.Create(context.Background(), request))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("異常系: DBエラー", func(t *testing.T) {
		repo, mock := newTestPayoutRequestRepository(t)
		request := testPayoutRequest(t)

		mock.ExpectExec(`INSERT INTO payout_requests`).
			WillReturnError(errors.New("database error"))

		err := repo.Create(context.Background(), request)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create payout request")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPayoutRequestRepository_FindByPayoutID(t *testing.T) {
	requestedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{
		"payout_id", "creator_user_id", "creator_scope", "amount",
		"rate_xp_per_unit", "rate_currency", "rate_version",
		"fee", "net_amount", "failure_reason", "status", "requested_at", "processed_at",
	}

	t.Run("正常系: 換金申請が見つかる", func(t *testing.T) {
		repo, mock := newTestPayoutRequestRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow("pay_001", "alice", "creator:alice", int64(1000),
				int64(100), "USD", int64(3),
				int64(50), int64(950), nil, "pending", requestedAt, nil)
		mock.ExpectQuery(`SELECT payout_id, creator_user_id, creator_scope, amount`).
			WithArgs("pay_001").
			WillReturnRows(rows)

		got, err := repo.FindByPayoutID(context.Background(), "pay_001")
		require.NoError(t, err)
		assert.Equal(t, "pay_001", got.PayoutID())
		assert.Equal(t, "alice", got.CreatorUserID())
		assert.Equal(t, int64(1000), got.Amount())
		assert.Equal(t, int64(50), got.Fee())
		assert.Equal(t, int64(950), got.NetAmount())
		assert.Equal(t, int64(100), got.Rate().XPPerUnit)
		assert.Equal(t, int64(3), got.Rate().Version)
		assert.Equal(t, payout.StatusPending, got.Status())
		assert.Nil(t, got.ProcessedAt())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("正常系: 処理済みの申請（processed_atあり）", func(t *testing.T) {
		repo, mock := newTestPayoutRequestRepository(t)
		processedAt := requestedAt.Add(time.Hour)

		rows := sqlmock.NewRows(columns).
			AddRow("pay_002", "alice", "creator:alice", int64(2000),
				int64(100), "USD", int64(3),
				int64(100), int64(1900), "gateway timeout", "failed", requestedAt, processedAt)
		mock.ExpectQuery(`SELECT payout_id, creator_user_id, creator_scope, amount`).
			WithArgs("pay_002").
			WillReturnRows(rows)

		got, err := repo.FindByPayoutID(context.Background(), "pay_002")
		require.NoError(t, err)
		assert.Equal(t, payout.StatusFailed, got.Status())
		assert.Equal(t, "gateway timeout", got.FailureReason())
		require.NotNil(t, got.ProcessedAt())
		assert.Equal(t, processedAt, *got.ProcessedAt())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("異常系: 換金申請が見つからない", func(t *testing.T) {
		repo, mock := newTestPayoutRequestRepository(t)

		mock.ExpectQuery(`SELECT payout_id, creator_user_id, creator_scope, amount`).
			WithArgs("pay_999").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.FindByPayoutID(context.Background(), "pay_999")
		assert.ErrorIs(t, err, payout.ErrPayoutNotFound)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPayoutRequestRepository_FindByCreator(t *testing.T) {
	requestedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{
		"payout_id", "creator_user_id", "creator_scope", "amount",
		"rate_xp_per_unit", "rate_currency", "rate_version",
		"fee", "net_amount", "failure_reason", "status", "requested_at", "processed_at",
	}

	t.Run("正常系: クリエイターの申請一覧を取得", func(t *testing.T) {
		repo, mock := newTestPayoutRequestRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow("pay_002", "alice", "creator:alice", int64(2000),
				int64(100), "USD", int64(4),
				int64(100), int64(1900), nil, "pending", requestedAt, nil).
			AddRow("pay_001", "alice", "creator:alice", int64(1000),
				int64(100), "USD", int64(3),
				int64(50), int64(950), nil, "completed", requestedAt.Add(-time.Hour), requestedAt)
		mock.ExpectQuery(`SELECT payout_id, creator_user_id, creator_scope, amount`).
			WithArgs("alice", 20, 0).
			WillReturnRows(rows)

		got, err := repo.FindByCreator(context.Background(), "alice", 20, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "pay_002", got[0].PayoutID())
		assert.Equal(t, "pay_001", got[1].PayoutID())
		assert.Equal(t, payout.StatusCompleted, got[1].Status())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("正常系: 申請が存在しない", func(t *testing.T) {
		repo, mock := newTestPayoutRequestRepository(t)

		mock.ExpectQuery(`SELECT payout_id, creator_user_id, creator_scope, amount`).
			WithArgs("bob", 20, 0).
			WillReturnRows(sqlmock.NewRows(columns))

		got, err := repo.FindByCreator(context.Background(), "bob", 20, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPayoutRequestRepository_UpdateStatus(t *testing.T) {
	t.Run("正常系: pendingからprocessingへCAS更新", func(t *testing.T) {
		repo, mock := newTestPayoutRequestRepository(t)
		request := testPayoutRequest(t)
		require.NoError(t, request.MarkProcessing())

		mock.ExpectExec(`UPDATE payout_requests`).
			WithArgs("processing", "", nil, "pay_001", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateStatus(context.Background(), request, payout.StatusPending))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("正常系: 失敗遷移はfailure_reasonとprocessed_atを記録", func(t *testing.T) {
		repo, mock := newTestPayoutRequestRepository(t)
		request := testPayoutRequest(t)
		require.NoError(t, request.MarkFailed("gateway timeout"))

		mock.ExpectExec(`UPDATE payout_requests`).
			WithArgs("failed", "gateway timeout", sqlmock.AnyArg(), "pay_001", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateStatus(context.Background(), request, payout.StatusPending))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("異常系: CAS競合（更新行数ゼロ）", func(t *testing.T) {
		repo, mock := newTestPayoutRequestRepository(t)
		request := testPayoutRequest(t)
		require.NoError(t, request.Cancel())

		mock.ExpectExec(`UPDATE payout_requests`).
			WithArgs("cancelled", "", sqlmock.AnyArg(), "pay_001", "pending").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), request, payout.StatusPending)
		assert.ErrorIs(t, err, payout.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
