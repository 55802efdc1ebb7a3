package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xp-server/internal/domain/account"
	"xp-server/internal/domain/payout"
	"xp-server/internal/domain/rate"
)

// PayoutRequestRepository MySQL実装のPayoutRepository
type PayoutRequestRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewPayoutRequestRepository 新しいPayoutRequestRepositoryを作成
func NewPayoutRequestRepository(db *DB) *PayoutRequestRepository {
	return &PayoutRequestRepository{
		db:     db,
		tracer: otel.Tracer("payout-request-repository"),
	}
}

// Create 新しい換金申請を作成
func (r *PayoutRequestRepository) Create(ctx context.Context, request *payout.PayoutRequest) error {
	ctx, span := r.tracer.Start(ctx, "PayoutRequestRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.payout_id", request.PayoutID()),
		attribute.String("db.creator_user_id", request.CreatorUserID()),
		attribute.Int64("db.amount", request.Amount()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "payout_requests"),
	)

	query := `
		INSERT INTO payout_requests (
			payout_id, creator_user_id, creator_scope, amount,
			rate_xp_per_unit, rate_currency, rate_version,
			fee, net_amount, failure_reason, status, requested_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	frozenRate := request.Rate()
	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		request.PayoutID(),
		request.CreatorUserID(),
		request.CreatorScope().String(),
		request.Amount(),
		frozenRate.XPPerUnit,
		frozenRate.Currency,
		frozenRate.Version,
		request.Fee(),
		request.NetAmount(),
		request.FailureReason(),
		request.Status().String(),
		request.RequestedAt(),
		request.ProcessedAt(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to create payout request: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "payout request created")
	return nil
}

// FindByPayoutID 換金申請IDで換金申請を取得
func (r *PayoutRequestRepository) FindByPayoutID(ctx context.Context, payoutID string) (*payout.PayoutRequest, error) {
	ctx, span := r.tracer.Start(ctx, "PayoutRequestRepository.FindByPayoutID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.payout_id", payoutID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "payout_requests"),
	)

	query := `
		SELECT payout_id, creator_user_id, creator_scope, amount,
			rate_xp_per_unit, rate_currency, rate_version,
			fee, net_amount, failure_reason, status, requested_at, processed_at
		FROM payout_requests
		WHERE payout_id = ?
	`

	request, err := r.scanPayoutRequest(r.db.conn(ctx).QueryRowContext(ctx, query, payoutID))
	if err == sql.ErrNoRows {
		span.SetStatus(otelcodes.Ok, "payout request not found")
		return nil, payout.ErrPayoutNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(otelcodes.Ok, "payout request found")
	return request, nil
}

// FindByCreator クリエイターの換金申請一覧を新しい順に取得
func (r *PayoutRequestRepository) FindByCreator(ctx context.Context, creatorUserID string, limit, offset int) ([]*payout.PayoutRequest, error) {
	ctx, span := r.tracer.Start(ctx, "PayoutRequestRepository.FindByCreator")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.creator_user_id", creatorUserID),
		attribute.Int("db.limit", limit),
		attribute.Int("db.offset", offset),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "payout_requests"),
	)

	query := `
		SELECT payout_id, creator_user_id, creator_scope, amount,
			rate_xp_per_unit, rate_currency, rate_version,
			fee, net_amount, failure_reason, status, requested_at, processed_at
		FROM payout_requests
		WHERE creator_user_id = ?
		ORDER BY requested_at DESC, payout_id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, creatorUserID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query payout requests: %w", err)
	}
	defer rows.Close()

	var requests []*payout.PayoutRequest
	for rows.Next() {
		request, err := r.scanPayoutRequest(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate payout requests: %w", err)
	}

	span.SetAttributes(attribute.Int("db.request_count", len(requests)))
	span.SetStatus(otelcodes.Ok, "payout requests found")
	return requests, nil
}

// UpdateStatus 期待する現在ステータスを条件にCASでステータスを更新する
// 条件が一致しない（他の処理に先を越された）場合はErrInvalidTransitionを返す
func (r *PayoutRequestRepository) UpdateStatus(ctx context.Context, request *payout.PayoutRequest, expected payout.Status) error {
	ctx, span := r.tracer.Start(ctx, "PayoutRequestRepository.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.payout_id", request.PayoutID()),
		attribute.String("db.status_from", expected.String()),
		attribute.String("db.status_to", request.Status().String()),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "payout_requests"),
	)

	query := `
		UPDATE payout_requests
		SET status = ?, failure_reason = ?, processed_at = ?
		WHERE payout_id = ? AND status = ?
	`

	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		request.Status().String(),
		request.FailureReason(),
		request.ProcessedAt(),
		request.PayoutID(),
		expected.String(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to update payout status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		span.SetStatus(otelcodes.Ok, "payout status conflict")
		return payout.ErrInvalidTransition
	}

	span.SetStatus(otelcodes.Ok, "payout status updated")
	return nil
}

func (r *PayoutRequestRepository) scanPayoutRequest(row rowScanner) (*payout.PayoutRequest, error) {
	var payoutID, creatorUserID, creatorScope, statusStr string
	var amount, xpPerUnit, rateVersion, fee, netAmount int64
	var rateCurrency string
	var failureReason sql.NullString
	var requestedAt time.Time
	var processedAt sql.NullTime

	err := row.Scan(
		&payoutID,
		&creatorUserID,
		&creatorScope,
		&amount,
		&xpPerUnit,
		&rateCurrency,
		&rateVersion,
		&fee,
		&netAmount,
		&failureReason,
		&statusStr,
		&requestedAt,
		&processedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payout request: %w", err)
	}

	scope, err := account.NewScope(creatorScope)
	if err != nil {
		return nil, fmt.Errorf("invalid creator scope: %w", err)
	}

	frozenRate, err := rate.NewRate(scope, xpPerUnit, rateCurrency, rateVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid frozen rate: %w", err)
	}

	status, err := payout.NewStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("invalid payout status: %w", err)
	}

	var processed *time.Time
	if processedAt.Valid {
		processed = &processedAt.Time
	}

	request, err := payout.Reconstruct(
		payoutID,
		creatorUserID,
		scope,
		amount,
		frozenRate,
		fee,
		netAmount,
		failureReason.String,
		status,
		requestedAt,
		processed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct payout request entity: %w", err)
	}

	return request, nil
}
