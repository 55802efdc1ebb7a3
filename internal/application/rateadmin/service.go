package rateadmin

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xp-server/internal/domain/account"
	"xp-server/internal/domain/rate"
	otelinfra "xp-server/internal/infrastructure/observability/otel"
)

// RateApplicationService 換算レート管理アプリケーションサービス
type RateApplicationService struct {
	rateProvider rate.Provider
	logger       *otelinfra.Logger
	tracer       trace.Tracer
}

// NewRateApplicationService 新しいRateApplicationServiceを作成
func NewRateApplicationService(
	rateProvider rate.Provider,
	logger *otelinfra.Logger,
) *RateApplicationService {
	return &RateApplicationService{
		rateProvider: rateProvider,
		logger:       logger,
		tracer:       otel.Tracer("rate-service"),
	}
}

// GetRate 指定スコープの現在レートを取得
func (s *RateApplicationService) GetRate(ctx context.Context, req *GetRateRequest) (*RateView, error) {
	ctx, span := s.tracer.Start(ctx, "RateApplicationService.GetRate")
	defer span.End()

	span.SetAttributes(attribute.String("scope", req.Scope))

	scope, err := account.NewScope(req.Scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	current, err := s.rateProvider.CurrentRate(ctx, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to get current rate: %w", err)
	}

	return toRateView(current), nil
}

// PushRate 新しいレートを設定（バージョンは単調増加する）
func (s *RateApplicationService) PushRate(ctx context.Context, req *PushRateRequest) (*RateView, error) {
	ctx, span := s.tracer.Start(ctx, "RateApplicationService.PushRate")
	defer span.End()

	span.SetAttributes(
		attribute.String("scope", req.Scope),
		attribute.Int64("xp_per_unit", req.XPPerUnit),
		attribute.String("currency", req.Currency),
	)

	scope, err := account.NewScope(req.Scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	pushed, err := s.rateProvider.Push(ctx, scope, req.XPPerUnit, req.Currency)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to push rate: %w", err)
	}

	s.logger.Info(ctx, "Conversion rate updated", map[string]interface{}{
		"scope":       pushed.Scope.String(),
		"xp_per_unit": pushed.XPPerUnit,
		"currency":    pushed.Currency,
		"version":     pushed.Version,
	})

	return toRateView(pushed), nil
}

func toRateView(r rate.Rate) *RateView {
	return &RateView{
		Scope:     r.Scope.String(),
		XPPerUnit: r.XPPerUnit,
		Currency:  r.Currency,
		Version:   r.Version,
		UpdatedAt: r.UpdatedAt,
	}
}
