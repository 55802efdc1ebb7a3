package handler

import (
	"net/http"
	"strconv"

	transferapp "xp-server/internal/application/transfer"

	"github.com/labstack/echo/v4"
)

// BalanceHandler 残高関連ハンドラー
type BalanceHandler struct {
	transferService *transferapp.TransferApplicationService
}

// NewBalanceHandler 新しいBalanceHandlerを作成
func NewBalanceHandler(transferService *transferapp.TransferApplicationService) *BalanceHandler {
	return &BalanceHandler{
		transferService: transferService,
	}
}

// GetBalance 残高取得ハンドラー（ユーザーAPI用）
// @Summary 残高を取得
// @Description 自分のXP残高を取得します
// @Tags balance
// @Accept json
// @Produce json
// @Security Bearer
// @Param scope query string false "通貨スコープ" example(creator:alice)
// @Success 200 {object} BalanceResponse "残高取得成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /me/balance [get]
func (h *BalanceHandler) GetBalance(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	req := &transferapp.GetBalanceRequest{
		UserID: userID,
		Scope:  c.QueryParam("scope"),
	}

	resp, err := h.transferService.GetBalance(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toBalanceResponse(resp))
}

// GetSpendable エコシステム内の消費可能残高取得ハンドラー
// @Summary クリエイターエコシステム内で消費可能な残高を取得
// @Description クリエイタースコープ残高とプラットフォーム残高の合計を返します
// @Tags balance
// @Accept json
// @Produce json
// @Security Bearer
// @Param creator_scope query string true "クリエイタースコープ" example(creator:alice)
// @Success 200 {object} SpendableResponse "取得成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /me/spendable [get]
func (h *BalanceHandler) GetSpendable(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	creatorScope := c.QueryParam("creator_scope")
	if creatorScope == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "creator_scope is required")
	}

	resp, err := h.transferService.GetSpendable(c.Request().Context(), &transferapp.GetSpendableRequest{
		UserID:       userID,
		CreatorScope: creatorScope,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, SpendableResponse{
		UserID:    resp.UserID,
		Spendable: strconv.FormatInt(resp.Spendable, 10),
	})
}

// GetBalanceAdmin 残高取得ハンドラー（管理API用）
// @Summary 残高を取得（管理API）
// @Description 指定されたユーザーのXP残高を取得します
// @Tags admin
// @Accept json
// @Produce json
// @Param user_id path string true "ユーザーID" example(user123)
// @Param scope query string false "通貨スコープ" example(creator:alice)
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} BalanceResponse "残高取得成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /admin/users/{user_id}/balance [get]
func (h *BalanceHandler) GetBalanceAdmin(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	req := &transferapp.GetBalanceRequest{
		UserID: userID,
		Scope:  c.QueryParam("scope"),
	}

	resp, err := h.transferService.GetBalance(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toBalanceResponse(resp))
}

func toBalanceResponse(resp *transferapp.GetBalanceResponse) BalanceResponse {
	return BalanceResponse{
		UserID:  resp.UserID,
		Scope:   resp.Scope,
		Current: strconv.FormatInt(resp.Current, 10),
		Earned:  strconv.FormatInt(resp.Earned, 10),
		Spent:   strconv.FormatInt(resp.Spent, 10),
	}
}
