package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xp-server/internal/domain/settlement"
)

// SettlementClient 外部送金サービスへのHTTPクライアント
type SettlementClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	tracer   trace.Tracer
}

// NewSettlementClient 新しいSettlementClientを作成
func NewSettlementClient(endpoint, apiKey string, client *http.Client) *SettlementClient {
	return &SettlementClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
		tracer:   otel.Tracer("settlement-client"),
	}
}

// Disburse 送金を指示する
// 外部サービスがエラーを返した場合はエラーとして返し、換金申請は失敗として扱われる
func (c *SettlementClient) Disburse(ctx context.Context, d settlement.Disbursement) error {
	ctx, span := c.tracer.Start(ctx, "SettlementClient.Disburse")
	defer span.End()

	span.SetAttributes(
		attribute.String("settlement.payout_id", d.PayoutID),
		attribute.Int64("settlement.net_amount_minor", d.NetAmountMinor),
		attribute.String("settlement.currency", d.Currency),
	)

	body, err := json.Marshal(d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to marshal disbursement: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/disbursements", bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to build disbursement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	// 外部サービス側でも送金指示を冪等に処理できるようにする
	req.Header.Set("Idempotency-Key", d.PayoutID)

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to call settlement service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		err := fmt.Errorf("settlement service returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}

	span.SetStatus(otelcodes.Ok, "disbursement accepted")
	return nil
}

// NopGateway 何もしないGateway実装（外部送金が未設定の場合に使う）
type NopGateway struct{}

// NewNopGateway 新しいNopGatewayを作成
func NewNopGateway() *NopGateway {
	return &NopGateway{}
}

// Disburse 常に成功する
func (g *NopGateway) Disburse(ctx context.Context, d settlement.Disbursement) error {
	return nil
}
