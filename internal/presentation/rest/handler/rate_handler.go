package handler

import (
	"net/http"
	"strconv"

	rateapp "xp-server/internal/application/rateadmin"

	"github.com/labstack/echo/v4"
)

// RateHandler 換算レート関連ハンドラー
type RateHandler struct {
	rateService *rateapp.RateApplicationService
}

// NewRateHandler 新しいRateHandlerを作成
func NewRateHandler(rateService *rateapp.RateApplicationService) *RateHandler {
	return &RateHandler{
		rateService: rateService,
	}
}

// GetRate 現在レート取得ハンドラー
// @Summary 指定スコープの現在の換算レートを取得
// @Tags rate
// @Accept json
// @Produce json
// @Security Bearer
// @Param scope query string true "スコープ" example(creator:alice)
// @Success 200 {object} RateResponse "取得成功"
// @Failure 400 {object} ErrorResponse "不正なスコープ"
// @Failure 404 {object} ErrorResponse "レートが存在しない"
// @Router /rates [get]
func (h *RateHandler) GetRate(c echo.Context) error {
	scope := c.QueryParam("scope")
	if scope == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "scope is required")
	}

	view, err := h.rateService.GetRate(c.Request().Context(), &rateapp.GetRateRequest{
		Scope: scope,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toRateResponse(view))
}

// PushRate レート更新ハンドラー（管理API用）
// @Summary 換算レートを更新（管理API）
// @Description 指定スコープの換算レートを更新します。バージョンは単調増加します
// @Tags admin
// @Accept json
// @Produce json
// @Param X-API-Key header string true "APIキー"
// @Param request body PushRateRequest true "レート更新リクエスト"
// @Success 200 {object} RateResponse "更新成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 403 {object} ErrorResponse "権限エラー"
// @Router /admin/rates [post]
func (h *RateHandler) PushRate(c echo.Context) error {
	var reqBody PushRateRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	xpPerUnit, err := strconv.ParseInt(reqBody.XPPerUnit, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid xp_per_unit format")
	}

	view, err := h.rateService.PushRate(c.Request().Context(), &rateapp.PushRateRequest{
		Scope:     reqBody.Scope,
		XPPerUnit: xpPerUnit,
		Currency:  reqBody.Currency,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toRateResponse(view))
}

func toRateResponse(view *rateapp.RateView) RateResponse {
	return RateResponse{
		Scope:     view.Scope,
		XPPerUnit: strconv.FormatInt(view.XPPerUnit, 10),
		Currency:  view.Currency,
		Version:   view.Version,
		UpdatedAt: view.UpdatedAt,
	}
}
