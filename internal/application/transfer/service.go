package transfer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xp-server/internal/domain/account"
	"xp-server/internal/domain/fee"
	"xp-server/internal/domain/ledger"
	"xp-server/internal/domain/notification"
	"xp-server/internal/domain/service"
	otelinfra "xp-server/internal/infrastructure/observability/otel"
)

var (
	// ErrNoCreditLeg 手数料対象の振替にクレジットレッグが存在しない
	ErrNoCreditLeg = errors.New("fee-bearing record requires a credit leg")
	// ErrAmbiguousCounterparty 手数料対象の振替のクレジットレッグが一意でない
	ErrAmbiguousCounterparty = errors.New("fee-bearing record must have exactly one credit leg")
)

// TransferApplicationService 振替アプリケーションサービス
// 残高更新と台帳追記の唯一の書き込み経路であり、
// 全ての振替は単一のDBトランザクションで完全に成功するか完全に失敗する
type TransferApplicationService struct {
	accountRepo       account.AccountRepository
	ledgerRepo        ledger.LedgerRepository
	txManager         ledger.TransactionManager
	balanceService    *service.BalanceService
	feeTable          *fee.Table
	notifier          notification.Notifier
	platformAccountID string
	logger            *otelinfra.Logger
	metrics           *otelinfra.Metrics
	tracer            trace.Tracer
	maxRetries        int
}

// NewTransferApplicationService 新しいTransferApplicationServiceを作成
func NewTransferApplicationService(
	accountRepo account.AccountRepository,
	ledgerRepo ledger.LedgerRepository,
	txManager ledger.TransactionManager,
	balanceService *service.BalanceService,
	feeTable *fee.Table,
	notifier notification.Notifier,
	platformAccountID string,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *TransferApplicationService {
	return &TransferApplicationService{
		accountRepo:       accountRepo,
		ledgerRepo:        ledgerRepo,
		txManager:         txManager,
		balanceService:    balanceService,
		feeTable:          feeTable,
		notifier:          notifier,
		platformAccountID: platformAccountID,
		logger:            logger,
		metrics:           metrics,
		tracer:            otel.Tracer("transfer-service"),
		maxRetries:        3,
	}
}

// GetBalance 残高を取得
// アカウントが存在しない場合はゼロ残高として扱う
func (s *TransferApplicationService) GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TransferApplicationService.GetBalance")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("scope", req.Scope),
	)

	scope := account.ScopePlatform
	if req.Scope != "" {
		var err error
		scope, err = account.NewScope(req.Scope)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}
	}

	acc, err := s.accountRepo.FindByUserIDAndScope(ctx, req.UserID, scope)
	if err != nil && err != account.ErrAccountNotFound {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to find account", err, map[string]interface{}{
			"user_id": req.UserID,
			"scope":   scope.String(),
		})
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	resp := &GetBalanceResponse{
		UserID: req.UserID,
		Scope:  scope.String(),
	}
	if acc != nil {
		resp.Current = acc.Current()
		resp.Earned = acc.Earned()
		resp.Spent = acc.Spent()
		s.metrics.RecordAccountBalance(ctx, req.UserID, scope.String(), acc.Current())
	}

	return resp, nil
}

// GetSpendable クリエイターのエコシステム内で消費可能な合計残高を取得
func (s *TransferApplicationService) GetSpendable(ctx context.Context, req *GetSpendableRequest) (*GetSpendableResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TransferApplicationService.GetSpendable")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("creator_scope", req.CreatorScope),
	)

	scope, err := account.NewScope(req.CreatorScope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	total, err := s.balanceService.SpendableInEcosystem(ctx, req.UserID, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to compute spendable balance: %w", err)
	}

	return &GetSpendableResponse{
		UserID:    req.UserID,
		Spendable: total,
	}, nil
}

// GetRecordByID 台帳レコードをIDで取得
func (s *TransferApplicationService) GetRecordByID(ctx context.Context, recordID string) (*ledger.Record, error) {
	ctx, span := s.tracer.Start(ctx, "TransferApplicationService.GetRecordByID")
	defer span.End()

	span.SetAttributes(attribute.String("record_id", recordID))

	record, err := s.ledgerRepo.FindByRecordID(ctx, recordID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	return record, nil
}

// Execute 振替を実行
// 手数料対象の種別では呼び出し元の総額レッグを手数料レッグと取り分レッグに展開し、
// 全レッグの残高更新と台帳追記を1つのトランザクションで確定する
// 同一の冪等性トークンによる再実行は既存レコードを返す
func (s *TransferApplicationService) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TransferApplicationService.Execute")
	defer span.End()

	span.SetAttributes(
		attribute.String("idempotency_token", req.IdempotencyToken),
		attribute.String("kind", req.Kind),
		attribute.Int("leg_count", len(req.Legs)),
	)

	s.logger.Info(ctx, "Executing transfer", map[string]interface{}{
		"idempotency_token": req.IdempotencyToken,
		"kind":              req.Kind,
		"leg_count":         len(req.Legs),
	})

	kind, err := ledger.NewKind(req.Kind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	legs, gross, split, err := s.expandLegs(kind, req.Legs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	record, err := ledger.NewRecord(
		s.generateRecordID(),
		req.IdempotencyToken,
		kind,
		legs,
		gross,
		split.Fee,
		split.Share,
		req.Metadata,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	// 楽観的ロックの競合時はトランザクション全体をリトライ
	var txErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 10 * time.Millisecond
			time.Sleep(backoff)
		}

		txErr = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
			if err := s.applyLegs(ctx, kind, record.Legs()); err != nil {
				return err
			}
			return s.ledgerRepo.Append(ctx, record)
		})

		if errors.Is(txErr, account.ErrVersionConflict) {
			continue
		}
		break
	}

	if errors.Is(txErr, ledger.ErrDuplicateIdempotencyToken) {
		// 同一トークンの先行リクエストが確定済み。既存レコードを返す
		existing, err := s.ledgerRepo.FindByIdempotencyToken(ctx, req.IdempotencyToken)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, fmt.Errorf("failed to find existing record: %w", err)
		}
		s.logger.Info(ctx, "Transfer already applied", map[string]interface{}{
			"idempotency_token": req.IdempotencyToken,
			"record_id":         existing.RecordID(),
		})
		return s.toResponse(existing, "already_applied"), nil
	}

	if txErr != nil {
		span.RecordError(txErr)
		span.SetStatus(otelcodes.Error, txErr.Error())
		s.logger.Error(ctx, "Failed to execute transfer", txErr, map[string]interface{}{
			"idempotency_token": req.IdempotencyToken,
			"kind":              req.Kind,
		})
		if errors.Is(txErr, account.ErrInsufficientBalance) {
			s.metrics.RecordInsufficientBalance(ctx, kind.String())
		} else {
			s.metrics.RecordError(ctx, "transfer_failed")
		}
		return nil, txErr
	}

	s.metrics.RecordLedgerRecord(ctx, kind.String())

	s.logger.Info(ctx, "Transfer executed successfully", map[string]interface{}{
		"record_id": record.RecordID(),
		"kind":      kind.String(),
		"gross":     record.Gross(),
		"fee":       record.Fee(),
	})

	s.notifyLegs(ctx, record)

	return s.toResponse(record, "completed"), nil
}

// Spend XPを消費する
// 消費されたXPは消滅せず、プラットフォーム口座へ振り替えられる（保存則の維持）
func (s *TransferApplicationService) Spend(ctx context.Context, req *SpendRequest) (*ExecuteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TransferApplicationService.Spend")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.Int64("amount", req.Amount),
	)

	return s.Execute(ctx, &ExecuteRequest{
		IdempotencyToken: req.IdempotencyToken,
		Kind:             ledger.KindSpend.String(),
		Legs: []LegInput{
			{UserID: req.UserID, Scope: req.Scope, Delta: -req.Amount},
			{UserID: s.platformAccountID, Scope: account.ScopePlatform.String(), Delta: req.Amount},
		},
		Metadata: req.Metadata,
	})
}

// expandLegs 入力レッグをドメインレッグに変換し、手数料対象の種別では
// 唯一のクレジットレッグを取り分レッグとプラットフォーム手数料レッグに展開する
func (s *TransferApplicationService) expandLegs(kind ledger.Kind, inputs []LegInput) ([]ledger.Leg, int64, fee.Split, error) {
	legs := make([]ledger.Leg, 0, len(inputs)+1)
	for _, in := range inputs {
		scope, err := account.NewScope(in.Scope)
		if err != nil {
			return nil, 0, fee.Split{}, err
		}
		legs = append(legs, ledger.NewLeg(in.UserID, scope, in.Delta))
	}

	var gross int64
	for _, leg := range legs {
		if leg.IsCredit() {
			gross += leg.Delta
		}
	}

	if kind.IsMinting() || !s.feeTable.HasFee(kind) {
		return legs, gross, fee.Split{Fee: 0, Share: gross}, nil
	}

	creditIdx := -1
	for i, leg := range legs {
		if leg.IsCredit() {
			if creditIdx >= 0 {
				return nil, 0, fee.Split{}, ErrAmbiguousCounterparty
			}
			creditIdx = i
		}
	}
	if creditIdx < 0 {
		return nil, 0, fee.Split{}, ErrNoCreditLeg
	}

	counterparty := legs[creditIdx]
	split, err := s.feeTable.Split(kind, counterparty.Delta)
	if err != nil {
		return nil, 0, fee.Split{}, err
	}
	gross = counterparty.Delta

	// 相手方がプラットフォーム口座そのものの場合、レッグの分割は不要
	if split.Fee == 0 || (counterparty.UserID == s.platformAccountID && counterparty.Scope.IsPlatform()) {
		return legs, gross, split, nil
	}

	// 最低手数料が総額に達した場合、取り分レッグはゼロになるため
	// クレジットレッグ全体が手数料レッグに置き換わる
	if split.Share == 0 {
		legs[creditIdx] = ledger.NewLeg(s.platformAccountID, account.ScopePlatform, split.Fee)
		return legs, gross, split, nil
	}

	legs[creditIdx] = ledger.NewLeg(counterparty.UserID, counterparty.Scope, split.Share)
	legs = append(legs, ledger.NewLeg(s.platformAccountID, account.ScopePlatform, split.Fee))
	return legs, gross, split, nil
}

// applyLegs アカウントごとにレッグを集約し、残高へ適用する
// いずれかのアカウントで残高不足が発生した場合は全体を失敗させる
func (s *TransferApplicationService) applyLegs(ctx context.Context, kind ledger.Kind, legs []ledger.Leg) error {
	type accountKey struct {
		userID string
		scope  account.Scope
	}

	deltas := make(map[accountKey]int64)
	order := make([]accountKey, 0, len(legs))
	for _, leg := range legs {
		key := accountKey{userID: leg.UserID, scope: leg.Scope}
		if _, ok := deltas[key]; !ok {
			order = append(order, key)
		}
		deltas[key] += leg.Delta
	}

	for _, key := range order {
		delta := deltas[key]
		if delta == 0 {
			continue
		}

		acc, err := s.accountRepo.FindByUserIDAndScope(ctx, key.userID, key.scope)
		if err != nil && err != account.ErrAccountNotFound {
			return fmt.Errorf("failed to find account: %w", err)
		}

		if acc == nil {
			if delta < 0 {
				return fmt.Errorf("account %s/%s: %w", key.userID, key.scope, account.ErrInsufficientBalance)
			}
			acc, err = account.NewZeroAccount(key.userID, key.scope)
			if err != nil {
				return fmt.Errorf("failed to build account: %w", err)
			}
			if err := s.accountRepo.Create(ctx, acc); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
		}

		if err := acc.Apply(delta); err != nil {
			if errors.Is(err, account.ErrInsufficientBalance) {
				return fmt.Errorf("account %s/%s: %w", key.userID, key.scope, err)
			}
			return err
		}

		if err := s.accountRepo.Save(ctx, acc); err != nil {
			return err
		}

		s.metrics.RecordAccountBalance(ctx, key.userID, key.scope.String(), acc.Current())
	}

	return nil
}

// notifyLegs 確定したレコードの関係者へベストエフォート通知を送る
func (s *TransferApplicationService) notifyLegs(ctx context.Context, record *ledger.Record) {
	notified := make(map[string]bool)
	for _, leg := range record.Legs() {
		if leg.UserID == s.platformAccountID || notified[leg.UserID] {
			continue
		}
		notified[leg.UserID] = true
		s.notifier.Notify(ctx, notification.Event{
			Type:     "ledger_record",
			UserID:   leg.UserID,
			RecordID: record.RecordID(),
			Attributes: map[string]interface{}{
				"kind":  record.Kind().String(),
				"delta": leg.Delta,
				"scope": leg.Scope.String(),
			},
			OccurredAt: record.CreatedAt(),
		})
	}
}

func (s *TransferApplicationService) toResponse(record *ledger.Record, status string) *ExecuteResponse {
	legs := make([]LegResult, 0, len(record.Legs()))
	for _, leg := range record.Legs() {
		legs = append(legs, LegResult{
			UserID: leg.UserID,
			Scope:  leg.Scope.String(),
			Delta:  leg.Delta,
		})
	}
	return &ExecuteResponse{
		RecordID: record.RecordID(),
		Kind:     record.Kind().String(),
		Legs:     legs,
		Gross:    record.Gross(),
		Fee:      record.Fee(),
		Share:    record.Share(),
		Status:   status,
	}
}

// generateRecordID 台帳レコードIDを生成
func (s *TransferApplicationService) generateRecordID() string {
	return fmt.Sprintf("rec_%s", uuid.NewString())
}
