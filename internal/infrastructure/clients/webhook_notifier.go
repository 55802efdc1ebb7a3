// Package clients 外部コラボレーターへのHTTPクライアント実装を提供する
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	obs "xp-server/internal/infrastructure/observability/otel"

	"xp-server/internal/domain/notification"
)

// WebhookNotifier Webhook経由でイベントを通知するNotifier実装
// 通知はベストエフォートであり、送信失敗はログに残すだけで呼び出し元には伝播しない
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
	logger     *obs.Logger
	tracer     trace.Tracer
}

// NewWebhookNotifier 新しいWebhookNotifierを作成
func NewWebhookNotifier(webhookURL string, client *http.Client, logger *obs.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: webhookURL,
		client:     client,
		logger:     logger,
		tracer:     otel.Tracer("webhook-notifier"),
	}
}

// Notify イベントを通知する
// 呼び出し元のリクエスト処理をブロックしないよう、送信は別ゴルーチンで行う
func (n *WebhookNotifier) Notify(ctx context.Context, event notification.Event) {
	// 呼び出し元のコンテキストはリクエスト完了時にキャンセルされるため、
	// 送信用には切り離したコンテキストを使う
	sendCtx := context.WithoutCancel(ctx)

	go func() {
		ctx, span := n.tracer.Start(sendCtx, "WebhookNotifier.Notify")
		defer span.End()

		body, err := json.Marshal(event)
		if err != nil {
			n.logger.Error(ctx, "failed to marshal notification event", err, map[string]interface{}{
				"event_type": event.Type,
				"user_id":    event.UserID,
			})
			return
		}

		ctx, cancel := context.WithTimeout(ctx, n.client.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
		if err != nil {
			n.logger.Error(ctx, "failed to build notification request", err, map[string]interface{}{
				"event_type": event.Type,
			})
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			n.logger.Warn(ctx, "failed to deliver notification", map[string]interface{}{
				"event_type": event.Type,
				"user_id":    event.UserID,
				"error":      err.Error(),
			})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			n.logger.Warn(ctx, "notification endpoint returned error status", map[string]interface{}{
				"event_type":  event.Type,
				"user_id":     event.UserID,
				"status_code": resp.StatusCode,
			})
		}
	}()
}

// NopNotifier 何もしないNotifier実装（通知が無効な場合に使う）
type NopNotifier struct{}

// NewNopNotifier 新しいNopNotifierを作成
func NewNopNotifier() *NopNotifier {
	return &NopNotifier{}
}

// Notify 何もしない
func (n *NopNotifier) Notify(ctx context.Context, event notification.Event) {}
