// Package rates 換算レートプロバイダーの実装を提供する
package rates

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"xp-server/internal/domain/account"
	"xp-server/internal/domain/rate"
)

// MemoryProvider メモリ上でレートを管理するProvider実装
// スコープごとのレートを保持し、Pushのたびにバージョンを単調増加させる
type MemoryProvider struct {
	mu     sync.RWMutex
	rates  map[account.Scope]rate.Rate
	tracer trace.Tracer

	defaultXPPerUnit int64
	defaultCurrency  string
}

// NewMemoryProvider 新しいMemoryProviderを作成
// defaultXPPerUnitとdefaultCurrencyは未設定スコープへのフォールバックとして使う
func NewMemoryProvider(defaultXPPerUnit int64, defaultCurrency string) *MemoryProvider {
	return &MemoryProvider{
		rates:            make(map[account.Scope]rate.Rate),
		tracer:           otel.Tracer("memory-rate-provider"),
		defaultXPPerUnit: defaultXPPerUnit,
		defaultCurrency:  defaultCurrency,
	}
}

// CurrentRate 指定スコープの現在レートを取得
// スコープ固有のレートがPushされていない場合はデフォルトレート（バージョン0）を返す
func (p *MemoryProvider) CurrentRate(ctx context.Context, scope account.Scope) (rate.Rate, error) {
	_, span := p.tracer.Start(ctx, "MemoryProvider.CurrentRate")
	defer span.End()

	span.SetAttributes(attribute.String("rate.scope", scope.String()))

	p.mu.RLock()
	r, ok := p.rates[scope]
	p.mu.RUnlock()

	if ok {
		span.SetAttributes(
			attribute.Int64("rate.xp_per_unit", r.XPPerUnit),
			attribute.Int64("rate.version", r.Version),
		)
		return r, nil
	}

	fallback, err := rate.NewRate(scope, p.defaultXPPerUnit, p.defaultCurrency, 0)
	if err != nil {
		span.RecordError(err)
		return rate.Rate{}, err
	}

	span.SetAttributes(
		attribute.Int64("rate.xp_per_unit", fallback.XPPerUnit),
		attribute.Bool("rate.default", true),
	)
	return fallback, nil
}

// Push 新しいレートを設定する
// バージョンは現在のレートから1ずつ単調増加する
func (p *MemoryProvider) Push(ctx context.Context, scope account.Scope, xpPerUnit int64, currency string) (rate.Rate, error) {
	_, span := p.tracer.Start(ctx, "MemoryProvider.Push")
	defer span.End()

	span.SetAttributes(
		attribute.String("rate.scope", scope.String()),
		attribute.Int64("rate.xp_per_unit", xpPerUnit),
		attribute.String("rate.currency", currency),
	)

	p.mu.Lock()
	defer p.mu.Unlock()

	var nextVersion int64 = 1
	if current, ok := p.rates[scope]; ok {
		nextVersion = current.Version + 1
	}

	r, err := rate.NewRate(scope, xpPerUnit, currency, nextVersion)
	if err != nil {
		span.RecordError(err)
		return rate.Rate{}, err
	}

	p.rates[scope] = r
	span.SetAttributes(attribute.Int64("rate.version", r.Version))
	return r, nil
}
