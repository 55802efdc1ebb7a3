package payout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xp-server/internal/application/transfer"
	"xp-server/internal/domain/account"
	"xp-server/internal/domain/fee"
	"xp-server/internal/domain/ledger"
	"xp-server/internal/domain/notification"
	"xp-server/internal/domain/payout"
	"xp-server/internal/domain/rate"
	"xp-server/internal/domain/settlement"
	otelinfra "xp-server/internal/infrastructure/observability/otel"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// PayoutApplicationService 換金申請アプリケーションサービス
// 申請時点でXPを控除・レートと手数料を凍結し、失敗・キャンセル時は
// 新しい返金レコードで往復させる（申請レコードの取り消しはしない）
type PayoutApplicationService struct {
	payoutRepo        payout.PayoutRepository
	transferService   *transfer.TransferApplicationService
	rateProvider      rate.Provider
	feeTable          *fee.Table
	gateway           settlement.Gateway
	notifier          notification.Notifier
	minimumAmount     int64
	holdingAccountID  string
	platformAccountID string
	logger            *otelinfra.Logger
	metrics           *otelinfra.Metrics
	tracer            trace.Tracer
}

// NewPayoutApplicationService 新しいPayoutApplicationServiceを作成
func NewPayoutApplicationService(
	payoutRepo payout.PayoutRepository,
	transferService *transfer.TransferApplicationService,
	rateProvider rate.Provider,
	feeTable *fee.Table,
	gateway settlement.Gateway,
	notifier notification.Notifier,
	minimumAmount int64,
	holdingAccountID string,
	platformAccountID string,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *PayoutApplicationService {
	return &PayoutApplicationService{
		payoutRepo:        payoutRepo,
		transferService:   transferService,
		rateProvider:      rateProvider,
		feeTable:          feeTable,
		gateway:           gateway,
		notifier:          notifier,
		minimumAmount:     minimumAmount,
		holdingAccountID:  holdingAccountID,
		platformAccountID: platformAccountID,
		logger:            logger,
		metrics:           metrics,
		tracer:            otel.Tracer("payout-service"),
	}
}

// Request 換金申請を作成
// 申請額をクリエイター残高から控除し、申請時点のレートと手数料を凍結する
func (s *PayoutApplicationService) Request(ctx context.Context, req *RequestPayoutRequest) (*RequestPayoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "PayoutApplicationService.Request")
	defer span.End()

	span.SetAttributes(
		attribute.String("creator_user_id", req.CreatorUserID),
		attribute.Int64("amount", req.Amount),
	)

	s.logger.Info(ctx, "Requesting payout", map[string]interface{}{
		"creator_user_id": req.CreatorUserID,
		"amount":          req.Amount,
	})

	if req.Amount < s.minimumAmount {
		err := payout.ErrBelowMinimum
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	creatorScope, err := account.CreatorScope(req.CreatorUserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	// 申請時点のレートを凍結する。処理中のレート変更はこの申請に影響しない
	frozenRate, err := s.rateProvider.CurrentRate(ctx, creatorScope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to resolve conversion rate: %w", err)
	}

	split, err := s.feeTable.Split(ledger.KindPayout, req.Amount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	netAmount := frozenRate.MoneyMinorUnits(split.Share)

	payoutID := s.generatePayoutID()
	request, err := payout.NewPayoutRequest(
		payoutID,
		req.CreatorUserID,
		creatorScope,
		req.Amount,
		frozenRate,
		split.Fee,
		netAmount,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	// 申請時点でXPを控除する。手数料レッグへの展開は振替サービスが行う
	result, err := s.transferService.Execute(ctx, &transfer.ExecuteRequest{
		IdempotencyToken: req.IdempotencyToken,
		Kind:             ledger.KindPayout.String(),
		Legs: []transfer.LegInput{
			{UserID: req.CreatorUserID, Scope: creatorScope.String(), Delta: -req.Amount},
			{UserID: s.holdingAccountID, Scope: account.ScopePlatform.String(), Delta: req.Amount},
		},
		Metadata: map[string]interface{}{
			"payout_id":        payoutID,
			"rate_xp_per_unit": frozenRate.XPPerUnit,
			"rate_version":     frozenRate.Version,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to debit payout amount", err, map[string]interface{}{
			"creator_user_id": req.CreatorUserID,
			"amount":          req.Amount,
		})
		return nil, err
	}

	// 同一トークンの再実行: 控除済みの既存申請を返す
	if result.Status == "already_applied" {
		existing, ok := s.findRequestedPayout(ctx, result.RecordID)
		if !ok {
			// 先行申請は永続化に失敗して返金済み。同じトークンで
			// 新しい申請を作ると控除の裏付けがなくなるため拒否する
			err := fmt.Errorf("payout for idempotency token was rolled back: %w", ledger.ErrDuplicateIdempotencyToken)
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			s.logger.Error(ctx, "Replayed payout token has no live request", err, map[string]interface{}{
				"record_id": result.RecordID,
			})
			return nil, err
		}
		return existing, nil
	}

	if err := s.payoutRepo.Create(ctx, request); err != nil {
		// 申請の永続化に失敗した場合は控除を返金して巻き戻す
		s.refund(ctx, request)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to persist payout request", err, map[string]interface{}{
			"payout_id": payoutID,
		})
		return nil, fmt.Errorf("failed to persist payout request: %w", err)
	}

	s.metrics.RecordPayoutTransition(ctx, "", payout.StatusPending.String())

	s.logger.Info(ctx, "Payout requested", map[string]interface{}{
		"payout_id":        payoutID,
		"amount":           req.Amount,
		"fee":              split.Fee,
		"net_amount_minor": netAmount,
		"rate_version":     frozenRate.Version,
	})

	s.notifyStatus(ctx, request)

	return &RequestPayoutResponse{
		PayoutID:       payoutID,
		Amount:         req.Amount,
		Fee:            split.Fee,
		NetAmountMinor: netAmount,
		Currency:       frozenRate.Currency,
		RateXPPerUnit:  frozenRate.XPPerUnit,
		RateVersion:    frozenRate.Version,
		Status:         payout.StatusPending.String(),
	}, nil
}

// findRequestedPayout 冪等な再実行時に、控除レコードに紐づく既存申請を探す
func (s *PayoutApplicationService) findRequestedPayout(ctx context.Context, recordID string) (*RequestPayoutResponse, bool) {
	// 控除レコードのメタデータに申請IDが入っている
	record, err := s.transferService.GetRecordByID(ctx, recordID)
	if err != nil {
		return nil, false
	}
	payoutID, ok := record.Metadata()["payout_id"].(string)
	if !ok {
		return nil, false
	}
	existing, err := s.payoutRepo.FindByPayoutID(ctx, payoutID)
	if err != nil {
		return nil, false
	}
	frozenRate := existing.Rate()
	return &RequestPayoutResponse{
		PayoutID:       existing.PayoutID(),
		Amount:         existing.Amount(),
		Fee:            existing.Fee(),
		NetAmountMinor: existing.NetAmount(),
		Currency:       frozenRate.Currency,
		RateXPPerUnit:  frozenRate.XPPerUnit,
		RateVersion:    frozenRate.Version,
		Status:         existing.Status().String(),
	}, true
}

// MarkProcessing 換金申請を処理中へ遷移させる
func (s *PayoutApplicationService) MarkProcessing(ctx context.Context, req *TransitionRequest) (*TransitionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "PayoutApplicationService.MarkProcessing")
	defer span.End()

	span.SetAttributes(attribute.String("payout_id", req.PayoutID))

	request, err := s.payoutRepo.FindByPayoutID(ctx, req.PayoutID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	previous := request.Status()
	if err := request.MarkProcessing(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	if err := s.payoutRepo.UpdateStatus(ctx, request, previous); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	s.metrics.RecordPayoutTransition(ctx, previous.String(), request.Status().String())
	s.notifyStatus(ctx, request)

	return &TransitionResponse{
		PayoutID: request.PayoutID(),
		Status:   request.Status().String(),
	}, nil
}

// MarkCompleted 換金申請を完了へ遷移させ、外部送金を指示する
// 送金指示は遷移が確定した後に申請ごとに高々1回だけ行われる
func (s *PayoutApplicationService) MarkCompleted(ctx context.Context, req *TransitionRequest) (*TransitionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "PayoutApplicationService.MarkCompleted")
	defer span.End()

	span.SetAttributes(attribute.String("payout_id", req.PayoutID))

	request, err := s.payoutRepo.FindByPayoutID(ctx, req.PayoutID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	previous := request.Status()
	if err := request.MarkCompleted(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	// CASが成立した場合のみ送金指示に進むため、並行する完了処理が
	// 同じ申請を2回送金することはない
	if err := s.payoutRepo.UpdateStatus(ctx, request, previous); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	s.metrics.RecordPayoutTransition(ctx, previous.String(), request.Status().String())

	frozenRate := request.Rate()
	if err := s.gateway.Disburse(ctx, settlement.Disbursement{
		PayoutID:       request.PayoutID(),
		CreatorUserID:  request.CreatorUserID(),
		NetAmountMinor: request.NetAmount(),
		Currency:       frozenRate.Currency,
	}); err != nil {
		// 遷移は確定済み。送金指示の失敗は運用で追跡する
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to instruct disbursement", err, map[string]interface{}{
			"payout_id":        request.PayoutID(),
			"net_amount_minor": request.NetAmount(),
		})
		s.metrics.RecordError(ctx, "disbursement_failed")
		return nil, fmt.Errorf("failed to instruct disbursement: %w", err)
	}

	s.logger.Info(ctx, "Payout completed", map[string]interface{}{
		"payout_id":        request.PayoutID(),
		"net_amount_minor": request.NetAmount(),
	})

	s.notifyStatus(ctx, request)

	return &TransitionResponse{
		PayoutID: request.PayoutID(),
		Status:   request.Status().String(),
	}, nil
}

// MarkFailed 換金申請を失敗へ遷移させ、控除済みXPを返金する
func (s *PayoutApplicationService) MarkFailed(ctx context.Context, req *TransitionRequest) (*TransitionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "PayoutApplicationService.MarkFailed")
	defer span.End()

	span.SetAttributes(
		attribute.String("payout_id", req.PayoutID),
		attribute.String("reason", req.Reason),
	)

	request, err := s.payoutRepo.FindByPayoutID(ctx, req.PayoutID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	// 既に失敗済みの申請は遷移せず返金のみを再駆動する。
	// 遷移確定後に返金が失敗しても、同じ操作の再実行で返金を完了できる
	previous := request.Status()
	if previous != payout.StatusFailed {
		if err := request.MarkFailed(req.Reason); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}

		if err := s.payoutRepo.UpdateStatus(ctx, request, previous); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}

		s.metrics.RecordPayoutTransition(ctx, previous.String(), request.Status().String())
	}

	if err := s.refund(ctx, request); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	s.logger.Info(ctx, "Payout failed and refunded", map[string]interface{}{
		"payout_id": request.PayoutID(),
		"reason":    req.Reason,
	})

	s.notifyStatus(ctx, request)

	return &TransitionResponse{
		PayoutID: request.PayoutID(),
		Status:   request.Status().String(),
	}, nil
}

// Cancel 換金申請をキャンセルし、控除済みXPを返金する（pendingの間のみ有効）
func (s *PayoutApplicationService) Cancel(ctx context.Context, req *CancelRequest) (*TransitionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "PayoutApplicationService.Cancel")
	defer span.End()

	span.SetAttributes(
		attribute.String("payout_id", req.PayoutID),
		attribute.String("creator_user_id", req.CreatorUserID),
	)

	request, err := s.payoutRepo.FindByPayoutID(ctx, req.PayoutID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	if request.CreatorUserID() != req.CreatorUserID {
		err := payout.ErrPayoutNotFound
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	// 既にキャンセル済みの申請は遷移せず返金のみを再駆動する。
	// 遷移確定後に返金が失敗しても、同じ操作の再実行で返金を完了できる
	previous := request.Status()
	if previous != payout.StatusCancelled {
		if err := request.Cancel(); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}

		if err := s.payoutRepo.UpdateStatus(ctx, request, previous); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}

		s.metrics.RecordPayoutTransition(ctx, previous.String(), request.Status().String())
	}

	if err := s.refund(ctx, request); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	s.logger.Info(ctx, "Payout cancelled and refunded", map[string]interface{}{
		"payout_id": request.PayoutID(),
	})

	s.notifyStatus(ctx, request)

	return &TransitionResponse{
		PayoutID: request.PayoutID(),
		Status:   request.Status().String(),
	}, nil
}

// refund 申請時に控除したXPを新しい返金レコードで往復させる
// トークンは申請IDから決定的に導出されるため、返金が二重に適用されることはない
func (s *PayoutApplicationService) refund(ctx context.Context, request *payout.PayoutRequest) error {
	// 手数料ゼロの申請では控除先レッグが1本になる。デルタゼロのレッグは作らない
	legs := make([]transfer.LegInput, 0, 3)
	if share := request.Share(); share > 0 {
		legs = append(legs, transfer.LegInput{UserID: s.holdingAccountID, Scope: account.ScopePlatform.String(), Delta: -share})
	}
	if feeAmount := request.Fee(); feeAmount > 0 {
		legs = append(legs, transfer.LegInput{UserID: s.platformAccountID, Scope: account.ScopePlatform.String(), Delta: -feeAmount})
	}
	legs = append(legs, transfer.LegInput{UserID: request.CreatorUserID(), Scope: request.CreatorScope().String(), Delta: request.Amount()})

	_, err := s.transferService.Execute(ctx, &transfer.ExecuteRequest{
		IdempotencyToken: fmt.Sprintf("refund:%s", request.PayoutID()),
		Kind:             ledger.KindRefund.String(),
		Legs:             legs,
		Metadata: map[string]interface{}{
			"payout_id": request.PayoutID(),
		},
	})
	if err != nil {
		s.logger.Error(ctx, "Failed to refund payout", err, map[string]interface{}{
			"payout_id": request.PayoutID(),
			"amount":    request.Amount(),
		})
		return fmt.Errorf("failed to refund payout: %w", err)
	}
	return nil
}

// GetPayout 換金申請を取得
func (s *PayoutApplicationService) GetPayout(ctx context.Context, req *GetPayoutRequest) (*GetPayoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "PayoutApplicationService.GetPayout")
	defer span.End()

	span.SetAttributes(attribute.String("payout_id", req.PayoutID))

	request, err := s.payoutRepo.FindByPayoutID(ctx, req.PayoutID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	return &GetPayoutResponse{Payout: toPayoutView(request)}, nil
}

// ListPayouts クリエイターの換金申請一覧を取得
func (s *PayoutApplicationService) ListPayouts(ctx context.Context, req *ListPayoutsRequest) (*ListPayoutsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "PayoutApplicationService.ListPayouts")
	defer span.End()

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	span.SetAttributes(
		attribute.String("creator_user_id", req.CreatorUserID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	requests, err := s.payoutRepo.FindByCreator(ctx, req.CreatorUserID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}

	views := make([]PayoutView, 0, len(requests))
	for _, request := range requests {
		views = append(views, toPayoutView(request))
	}

	return &ListPayoutsResponse{
		Payouts: views,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

// notifyStatus 申請者へステータス変更のベストエフォート通知を送る
func (s *PayoutApplicationService) notifyStatus(ctx context.Context, request *payout.PayoutRequest) {
	s.notifier.Notify(ctx, notification.Event{
		Type:     "payout_status",
		UserID:   request.CreatorUserID(),
		PayoutID: request.PayoutID(),
		Attributes: map[string]interface{}{
			"status":           request.Status().String(),
			"amount":           request.Amount(),
			"net_amount_minor": request.NetAmount(),
		},
		OccurredAt: request.RequestedAt(),
	})
}

func toPayoutView(request *payout.PayoutRequest) PayoutView {
	frozenRate := request.Rate()
	return PayoutView{
		PayoutID:       request.PayoutID(),
		CreatorUserID:  request.CreatorUserID(),
		Amount:         request.Amount(),
		Fee:            request.Fee(),
		NetAmountMinor: request.NetAmount(),
		Currency:       frozenRate.Currency,
		RateXPPerUnit:  frozenRate.XPPerUnit,
		RateVersion:    frozenRate.Version,
		FailureReason:  request.FailureReason(),
		Status:         request.Status().String(),
		RequestedAt:    request.RequestedAt(),
		ProcessedAt:    request.ProcessedAt(),
	}
}

// generatePayoutID 換金申請IDを生成
func (s *PayoutApplicationService) generatePayoutID() string {
	return fmt.Sprintf("pay_%s", uuid.NewString())
}
