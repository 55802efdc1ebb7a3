package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"xp-server/internal/application/transfer"
	"xp-server/internal/domain/account"
	"xp-server/internal/domain/fee"
	"xp-server/internal/domain/ledger"
	"xp-server/internal/domain/listing"
	"xp-server/internal/domain/payout"
	"xp-server/internal/domain/rate"
	otelinfra "xp-server/internal/infrastructure/observability/otel"
)

// ErrorResponse エラーレスポンス
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// domainErrorMapping ドメインエラーとHTTPレスポンスの対応
type domainErrorMapping struct {
	target error
	status int
	code   string
}

// 残高不足・売約済み・ステータス競合は409（リクエスト自体は正しいが状態が許さない）
var domainErrorMappings = []domainErrorMapping{
	{account.ErrInsufficientBalance, http.StatusConflict, "insufficient_balance"},
	{account.ErrVersionConflict, http.StatusConflict, "version_conflict"},
	{account.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{account.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{account.ErrInvalidScope, http.StatusBadRequest, "invalid_scope"},
	{ledger.ErrRecordNotFound, http.StatusNotFound, "record_not_found"},
	{ledger.ErrDuplicateIdempotencyToken, http.StatusConflict, "duplicate_idempotency_token"},
	{ledger.ErrUnbalancedLegs, http.StatusBadRequest, "unbalanced_legs"},
	{ledger.ErrInvalidMintLegs, http.StatusBadRequest, "invalid_mint_legs"},
	{ledger.ErrInvalidKind, http.StatusBadRequest, "invalid_kind"},
	{ledger.ErrInvalidIdempotencyToken, http.StatusBadRequest, "invalid_idempotency_token"},
	{ledger.ErrInvalidLegDelta, http.StatusBadRequest, "invalid_leg_delta"},
	{ledger.ErrNoLegs, http.StatusBadRequest, "no_legs"},
	{transfer.ErrNoCreditLeg, http.StatusBadRequest, "no_credit_leg"},
	{transfer.ErrAmbiguousCounterparty, http.StatusBadRequest, "ambiguous_counterparty"},
	{fee.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{listing.ErrListingNotFound, http.StatusNotFound, "listing_not_found"},
	{listing.ErrListingUnavailable, http.StatusConflict, "listing_unavailable"},
	{listing.ErrSelfPurchase, http.StatusBadRequest, "self_purchase"},
	{listing.ErrNotSeller, http.StatusForbidden, "not_seller"},
	{listing.ErrInvalidPrice, http.StatusBadRequest, "invalid_price"},
	{payout.ErrPayoutNotFound, http.StatusNotFound, "payout_not_found"},
	{payout.ErrBelowMinimum, http.StatusBadRequest, "below_minimum"},
	{payout.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{payout.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{rate.ErrRateNotFound, http.StatusNotFound, "rate_not_found"},
	{rate.ErrInvalidRate, http.StatusBadRequest, "invalid_rate"},
}

// ErrorHandlerMiddleware エラーハンドリングミドルウェア
func ErrorHandlerMiddleware(logger *otelinfra.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			return handleError(c, err, logger)
		}
	}
}

// handleError エラーを処理して適切なHTTPレスポンスを返す
func handleError(c echo.Context, err error, logger *otelinfra.Logger) error {
	ctx := c.Request().Context()

	for _, m := range domainErrorMappings {
		if errors.Is(err, m.target) {
			logger.Warn(ctx, "Domain error", map[string]interface{}{
				"error": err.Error(),
				"code":  m.code,
			})
			return c.JSON(m.status, ErrorResponse{
				Error:   m.code,
				Message: err.Error(),
			})
		}
	}

	// EchoのHTTPエラー
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		logger.Warn(ctx, "HTTP error", map[string]interface{}{
			"status_code": httpErr.Code,
			"message":     httpErr.Message,
		})
		message := ""
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(httpErr.Code)
		}
		return c.JSON(httpErr.Code, ErrorResponse{
			Error:   http.StatusText(httpErr.Code),
			Message: message,
		})
	}

	// 予期しないエラー
	logger.Error(ctx, "Internal server error", err, map[string]interface{}{
		"path": c.Request().URL.Path,
	})
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_server_error",
		Message: "An unexpected error occurred",
	})
}
