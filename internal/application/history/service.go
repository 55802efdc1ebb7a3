package history

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xp-server/internal/domain/ledger"
	otelinfra "xp-server/internal/infrastructure/observability/otel"
)

// HistoryApplicationService 台帳履歴アプリケーションサービス
type HistoryApplicationService struct {
	ledgerRepo ledger.LedgerRepository
	logger     *otelinfra.Logger
	metrics    *otelinfra.Metrics
	tracer     trace.Tracer
}

// NewHistoryApplicationService 新しいHistoryApplicationServiceを作成
func NewHistoryApplicationService(
	ledgerRepo ledger.LedgerRepository,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *HistoryApplicationService {
	return &HistoryApplicationService{
		ledgerRepo: ledgerRepo,
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer("history-service"),
	}
}

// GetLedgerHistory ユーザーが関与する台帳レコードの履歴を取得
func (s *HistoryApplicationService) GetLedgerHistory(ctx context.Context, req *GetLedgerHistoryRequest) (*GetLedgerHistoryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryApplicationService.GetLedgerHistory")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.Int("limit", req.Limit),
		attribute.Int("offset", req.Offset),
	)

	s.logger.Info(ctx, "Getting ledger history", map[string]interface{}{
		"user_id": req.UserID,
		"limit":   req.Limit,
		"offset":  req.Offset,
		"kind":    req.Kind,
	})

	// バリデーション
	if req.Limit <= 0 {
		req.Limit = 50 // デフォルト値
	}
	if req.Limit > 100 {
		req.Limit = 100 // 最大値
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	records, err := s.ledgerRepo.FindByUserID(ctx, req.UserID, req.Limit, req.Offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to get ledger history", err, map[string]interface{}{
			"user_id": req.UserID,
		})
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}

	// 種別フィルタ
	views := make([]RecordView, 0, len(records))
	for _, record := range records {
		if req.Kind != "" {
			kind, err := ledger.NewKind(req.Kind)
			if err == nil && record.Kind() != kind {
				continue
			}
		}
		views = append(views, toRecordView(record))
	}

	return &GetLedgerHistoryResponse{
		Records: views,
		Total:   len(views),
		Limit:   req.Limit,
		Offset:  req.Offset,
	}, nil
}

// GetRecord 台帳レコードを取得
func (s *HistoryApplicationService) GetRecord(ctx context.Context, req *GetRecordRequest) (*GetRecordResponse, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryApplicationService.GetRecord")
	defer span.End()

	span.SetAttributes(attribute.String("record_id", req.RecordID))

	record, err := s.ledgerRepo.FindByRecordID(ctx, req.RecordID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	return &GetRecordResponse{Record: toRecordView(record)}, nil
}

func toRecordView(record *ledger.Record) RecordView {
	legs := make([]RecordLegView, 0, len(record.Legs()))
	for _, leg := range record.Legs() {
		legs = append(legs, RecordLegView{
			UserID: leg.UserID,
			Scope:  leg.Scope.String(),
			Delta:  leg.Delta,
		})
	}
	return RecordView{
		RecordID:  record.RecordID(),
		Kind:      record.Kind().String(),
		Legs:      legs,
		Gross:     record.Gross(),
		Fee:       record.Fee(),
		Share:     record.Share(),
		Metadata:  record.Metadata(),
		CreatedAt: record.CreatedAt(),
	}
}
