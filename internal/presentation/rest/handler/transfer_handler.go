package handler

import (
	"net/http"
	"strconv"

	transferapp "xp-server/internal/application/transfer"
	"xp-server/internal/domain/ledger"

	"github.com/labstack/echo/v4"
)

// TransferHandler 振替関連ハンドラー
type TransferHandler struct {
	transferService *transferapp.TransferApplicationService
}

// NewTransferHandler 新しいTransferHandlerを作成
func NewTransferHandler(transferService *transferapp.TransferApplicationService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

// Earn XP発行ハンドラー（管理API用）
// @Summary XPを発行（管理API）
// @Description 指定されたユーザーにXPを発行します。発行は信頼された内部呼び出し元のみが行えます
// @Tags admin
// @Accept json
// @Produce json
// @Param user_id path string true "ユーザーID" example(user123)
// @Param X-API-Key header string true "APIキー"
// @Param request body EarnRequest true "XP発行リクエスト"
// @Success 200 {object} TransferResponse "発行成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /admin/users/{user_id}/earn [post]
func (h *TransferHandler) Earn(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	var reqBody EarnRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	amount, err := strconv.ParseInt(reqBody.Amount, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount format")
	}

	token := resolveIdempotencyToken(c, reqBody.IdempotencyToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "idempotency_token is required")
	}

	metadata := reqBody.Metadata
	if reqBody.Reason != "" {
		if metadata == nil {
			metadata = make(map[string]interface{})
		}
		metadata["reason"] = reqBody.Reason
	}

	resp, err := h.transferService.Execute(c.Request().Context(), &transferapp.ExecuteRequest{
		IdempotencyToken: token,
		Kind:             ledger.KindEarn.String(),
		Legs: []transferapp.LegInput{
			{UserID: userID, Scope: reqBody.Scope, Delta: amount},
		},
		Metadata: metadata,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toTransferResponse(resp))
}

// Spend XP消費ハンドラー（ユーザーAPI用）
// @Summary XPを消費
// @Description 自分のXPを消費します。消費分はプラットフォーム口座へ振り替えられます
// @Tags transfer
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body SpendRequest true "XP消費リクエスト"
// @Success 200 {object} TransferResponse "消費成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Failure 409 {object} ErrorResponse "残高不足"
// @Router /me/spend [post]
func (h *TransferHandler) Spend(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	var reqBody SpendRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	amount, err := strconv.ParseInt(reqBody.Amount, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount format")
	}

	token := resolveIdempotencyToken(c, reqBody.IdempotencyToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "idempotency_token is required")
	}

	resp, err := h.transferService.Spend(c.Request().Context(), &transferapp.SpendRequest{
		UserID:           userID,
		Scope:            reqBody.Scope,
		Amount:           amount,
		IdempotencyToken: token,
		Metadata:         reqBody.Metadata,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toTransferResponse(resp))
}

// Gift ギフト送付ハンドラー（ユーザーAPI用）
// @Summary ギフトを送付
// @Description 他のユーザーへXPを送付します。手数料はプラットフォームが受け取ります
// @Tags transfer
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body GiftRequest true "ギフト送付リクエスト"
// @Success 200 {object} TransferResponse "送付成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Failure 409 {object} ErrorResponse "残高不足"
// @Router /me/gifts [post]
func (h *TransferHandler) Gift(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	var reqBody GiftRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	amount, err := strconv.ParseInt(reqBody.Amount, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount format")
	}

	if reqBody.RecipientUserID == userID {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot gift to yourself")
	}

	token := resolveIdempotencyToken(c, reqBody.IdempotencyToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "idempotency_token is required")
	}

	resp, err := h.transferService.Execute(c.Request().Context(), &transferapp.ExecuteRequest{
		IdempotencyToken: token,
		Kind:             ledger.KindGift.String(),
		Legs: []transferapp.LegInput{
			{UserID: userID, Scope: reqBody.Scope, Delta: -amount},
			{UserID: reqBody.RecipientUserID, Scope: reqBody.Scope, Delta: amount},
		},
		Metadata: reqBody.Metadata,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toTransferResponse(resp))
}

// ExecuteTransfer 任意振替ハンドラー（管理API用）
// @Summary 任意のレッグ構成で振替を実行（管理API）
// @Description レッグを直接指定して振替を実行します。発行種別以外はレッグ合計がゼロである必要があります
// @Tags admin
// @Accept json
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param request body ExecuteTransferRequest true "振替リクエスト"
// @Success 200 {object} TransferResponse "振替成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Failure 409 {object} ErrorResponse "残高不足"
// @Router /admin/transfers [post]
func (h *TransferHandler) ExecuteTransfer(c echo.Context) error {
	var reqBody ExecuteTransferRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	token := resolveIdempotencyToken(c, reqBody.IdempotencyToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "idempotency_token is required")
	}

	legs := make([]transferapp.LegInput, 0, len(reqBody.Legs))
	for _, leg := range reqBody.Legs {
		delta, err := strconv.ParseInt(leg.Delta, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid delta format")
		}
		legs = append(legs, transferapp.LegInput{
			UserID: leg.UserID,
			Scope:  leg.Scope,
			Delta:  delta,
		})
	}

	resp, err := h.transferService.Execute(c.Request().Context(), &transferapp.ExecuteRequest{
		IdempotencyToken: token,
		Kind:             reqBody.Kind,
		Legs:             legs,
		Metadata:         reqBody.Metadata,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toTransferResponse(resp))
}

// resolveIdempotencyToken ボディのトークンを優先し、なければIdempotency-Keyヘッダーを使う
func resolveIdempotencyToken(c echo.Context, bodyToken string) string {
	if bodyToken != "" {
		return bodyToken
	}
	return c.Request().Header.Get("Idempotency-Key")
}

func toTransferResponse(resp *transferapp.ExecuteResponse) TransferResponse {
	legs := make([]LegModel, 0, len(resp.Legs))
	for _, leg := range resp.Legs {
		legs = append(legs, LegModel{
			UserID: leg.UserID,
			Scope:  leg.Scope,
			Delta:  strconv.FormatInt(leg.Delta, 10),
		})
	}
	return TransferResponse{
		RecordID: resp.RecordID,
		Kind:     resp.Kind,
		Legs:     legs,
		Gross:    strconv.FormatInt(resp.Gross, 10),
		Fee:      strconv.FormatInt(resp.Fee, 10),
		Share:    strconv.FormatInt(resp.Share, 10),
		Status:   resp.Status,
	}
}
