package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics メトリクス定義
type Metrics struct {
	// 台帳レコード数
	LedgerRecordCount metric.Int64Counter

	// アカウント残高の分布
	AccountBalance metric.Int64Gauge

	// 残高不足による拒否件数
	InsufficientBalanceCount metric.Int64Counter

	// マーケットプレイス売買件数
	MarketplaceSaleCount metric.Int64Counter

	// 換金申請のステータス遷移件数
	PayoutTransitionCount metric.Int64Counter

	// リクエスト数
	RequestCount metric.Int64Counter

	// レスポンス時間
	ResponseTime metric.Float64Histogram

	// エラー率
	ErrorCount metric.Int64Counter
}

// NewMetrics 新しいMetricsを作成
func NewMetrics(meterName string) (*Metrics, error) {
	meter := otel.Meter(meterName)

	ledgerRecordCount, err := meter.Int64Counter(
		"ledger_records_total",
		metric.WithDescription("Total number of ledger records appended"),
	)
	if err != nil {
		return nil, err
	}

	accountBalance, err := meter.Int64Gauge(
		"account_balance",
		metric.WithDescription("Account balance"),
	)
	if err != nil {
		return nil, err
	}

	insufficientBalanceCount, err := meter.Int64Counter(
		"insufficient_balance_total",
		metric.WithDescription("Total number of operations rejected for insufficient balance"),
	)
	if err != nil {
		return nil, err
	}

	marketplaceSaleCount, err := meter.Int64Counter(
		"marketplace_sales_total",
		metric.WithDescription("Total number of marketplace sales"),
	)
	if err != nil {
		return nil, err
	}

	payoutTransitionCount, err := meter.Int64Counter(
		"payout_transitions_total",
		metric.WithDescription("Total number of payout status transitions"),
	)
	if err != nil {
		return nil, err
	}

	requestCount, err := meter.Int64Counter(
		"requests_total",
		metric.WithDescription("Total number of requests"),
	)
	if err != nil {
		return nil, err
	}

	responseTime, err := meter.Float64Histogram(
		"response_time_seconds",
		metric.WithDescription("Response time in seconds"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"errors_total",
		metric.WithDescription("Total number of errors"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		LedgerRecordCount:        ledgerRecordCount,
		AccountBalance:           accountBalance,
		InsufficientBalanceCount: insufficientBalanceCount,
		MarketplaceSaleCount:     marketplaceSaleCount,
		PayoutTransitionCount:    payoutTransitionCount,
		RequestCount:             requestCount,
		ResponseTime:             responseTime,
		ErrorCount:               errorCount,
	}, nil
}

// RecordLedgerRecord 台帳レコードの追記を記録
func (m *Metrics) RecordLedgerRecord(ctx context.Context, kind string) {
	m.LedgerRecordCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
		),
	)
}

// RecordAccountBalance アカウント残高を記録
func (m *Metrics) RecordAccountBalance(ctx context.Context, userID, scope string, balance int64) {
	m.AccountBalance.Record(ctx, balance,
		metric.WithAttributes(
			attribute.String("user_id", userID),
			attribute.String("scope", scope),
		),
	)
}

// RecordInsufficientBalance 残高不足による拒否を記録
func (m *Metrics) RecordInsufficientBalance(ctx context.Context, kind string) {
	m.InsufficientBalanceCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
		),
	)
}

// RecordMarketplaceSale マーケットプレイス売買を記録
func (m *Metrics) RecordMarketplaceSale(ctx context.Context, outcome string) {
	m.MarketplaceSaleCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
		),
	)
}

// RecordPayoutTransition 換金申請のステータス遷移を記録
func (m *Metrics) RecordPayoutTransition(ctx context.Context, from, to string) {
	m.PayoutTransitionCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordRequest リクエストを記録
func (m *Metrics) RecordRequest(ctx context.Context, method, path string) {
	m.RequestCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordResponseTime レスポンス時間を記録
func (m *Metrics) RecordResponseTime(ctx context.Context, method, path string, duration float64) {
	m.ResponseTime.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordError エラーを記録
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	m.ErrorCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error_type", errorType),
		),
	)
}
