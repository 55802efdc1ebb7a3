package handler

import (
	"net/http"
	"strconv"

	payoutapp "xp-server/internal/application/payout"

	"github.com/labstack/echo/v4"
)

// PayoutHandler 換金申請関連ハンドラー
type PayoutHandler struct {
	payoutService *payoutapp.PayoutApplicationService
}

// NewPayoutHandler 新しいPayoutHandlerを作成
func NewPayoutHandler(payoutService *payoutapp.PayoutApplicationService) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
	}
}

// RequestPayout 換金申請ハンドラー
// @Summary 換金を申請
// @Description クリエイタースコープのXPを通貨へ換金申請します。申請時点でXPが控除され、レートと手数料が凍結されます
// @Tags payout
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body RequestPayoutRequest true "換金申請リクエスト"
// @Success 201 {object} RequestPayoutResponse "申請成功"
// @Failure 400 {object} ErrorResponse "最低額未満など不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Failure 409 {object} ErrorResponse "残高不足"
// @Router /me/payouts [post]
func (h *PayoutHandler) RequestPayout(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	var reqBody RequestPayoutRequest
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

	resp, err := h.payoutService.Request(c.Request().Context(), &payoutapp.RequestPayoutRequest{
		CreatorUserID:    userID,
		Amount:           amount,
		IdempotencyToken: token,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, RequestPayoutResponse{
		PayoutID:       resp.PayoutID,
		Amount:         strconv.FormatInt(resp.Amount, 10),
		Fee:            strconv.FormatInt(resp.Fee, 10),
		NetAmountMinor: strconv.FormatInt(resp.NetAmountMinor, 10),
		Currency:       resp.Currency,
		RateXPPerUnit:  strconv.FormatInt(resp.RateXPPerUnit, 10),
		RateVersion:    resp.RateVersion,
		Status:         resp.Status,
	})
}

// ListPayouts 換金申請一覧ハンドラー
// @Summary 自分の換金申請一覧を取得
// @Tags payout
// @Accept json
// @Produce json
// @Security Bearer
// @Param limit query int false "取得件数" example(20)
// @Param offset query int false "オフセット" example(0)
// @Success 200 {object} ListPayoutsResponse "取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /me/payouts [get]
func (h *PayoutHandler) ListPayouts(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	resp, err := h.payoutService.ListPayouts(c.Request().Context(), &payoutapp.ListPayoutsRequest{
		CreatorUserID: userID,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return err
	}

	payouts := make([]PayoutModel, 0, len(resp.Payouts))
	for _, p := range resp.Payouts {
		payouts = append(payouts, toPayoutModel(p))
	}

	return c.JSON(http.StatusOK, ListPayoutsResponse{
		Payouts: payouts,
		Limit:   resp.Limit,
		Offset:  resp.Offset,
	})
}

// GetPayout 換金申請取得ハンドラー
// @Summary 換金申請を取得
// @Tags payout
// @Accept json
// @Produce json
// @Security Bearer
// @Param payout_id path string true "換金申請ID" example(pay_77d1)
// @Success 200 {object} PayoutModel "取得成功"
// @Failure 404 {object} ErrorResponse "申請が存在しない"
// @Router /me/payouts/{payout_id} [get]
func (h *PayoutHandler) GetPayout(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	payoutID := c.Param("payout_id")
	if payoutID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payout_id is required")
	}

	resp, err := h.payoutService.GetPayout(c.Request().Context(), &payoutapp.GetPayoutRequest{
		PayoutID: payoutID,
	})
	if err != nil {
		return err
	}

	// 自分の申請のみ参照できる
	if resp.Payout.CreatorUserID != userID {
		return echo.NewHTTPError(http.StatusNotFound, "payout not found")
	}

	return c.JSON(http.StatusOK, toPayoutModel(resp.Payout))
}

// CancelPayout 換金申請キャンセルハンドラー
// @Summary 換金申請をキャンセル
// @Description 保留中の換金申請をキャンセルし、控除済みXPの返金を受けます
// @Tags payout
// @Accept json
// @Produce json
// @Security Bearer
// @Param payout_id path string true "換金申請ID" example(pay_77d1)
// @Success 200 {object} PayoutTransitionResponse "キャンセル成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Failure 404 {object} ErrorResponse "申請が存在しない"
// @Failure 409 {object} ErrorResponse "保留中でない"
// @Router /me/payouts/{payout_id} [delete]
func (h *PayoutHandler) CancelPayout(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	payoutID := c.Param("payout_id")
	if payoutID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payout_id is required")
	}

	resp, err := h.payoutService.Cancel(c.Request().Context(), &payoutapp.CancelRequest{
		PayoutID:      payoutID,
		CreatorUserID: userID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PayoutTransitionResponse{
		PayoutID: resp.PayoutID,
		Status:   resp.Status,
	})
}

// MarkProcessing 処理開始ハンドラー（管理API用）
// @Summary 換金申請を処理中へ遷移（管理API）
// @Tags admin
// @Accept json
// @Produce json
// @Param payout_id path string true "換金申請ID" example(pay_77d1)
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} PayoutTransitionResponse "遷移成功"
// @Failure 404 {object} ErrorResponse "申請が存在しない"
// @Failure 409 {object} ErrorResponse "不正な遷移"
// @Router /admin/payouts/{payout_id}/processing [post]
func (h *PayoutHandler) MarkProcessing(c echo.Context) error {
	payoutID := c.Param("payout_id")
	if payoutID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payout_id is required")
	}

	resp, err := h.payoutService.MarkProcessing(c.Request().Context(), &payoutapp.TransitionRequest{
		PayoutID: payoutID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PayoutTransitionResponse{
		PayoutID: resp.PayoutID,
		Status:   resp.Status,
	})
}

// MarkCompleted 完了ハンドラー（管理API用）
// @Summary 換金申請を完了へ遷移し、送金を指示（管理API）
// @Tags admin
// @Accept json
// @Produce json
// @Param payout_id path string true "換金申請ID" example(pay_77d1)
// @Param X-API-Key header string true "APIキー"
// @Success 200 {object} PayoutTransitionResponse "遷移成功"
// @Failure 404 {object} ErrorResponse "申請が存在しない"
// @Failure 409 {object} ErrorResponse "不正な遷移"
// @Router /admin/payouts/{payout_id}/complete [post]
func (h *PayoutHandler) MarkCompleted(c echo.Context) error {
	payoutID := c.Param("payout_id")
	if payoutID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payout_id is required")
	}

	resp, err := h.payoutService.MarkCompleted(c.Request().Context(), &payoutapp.TransitionRequest{
		PayoutID: payoutID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PayoutTransitionResponse{
		PayoutID: resp.PayoutID,
		Status:   resp.Status,
	})
}

// MarkFailed 失敗ハンドラー（管理API用）
// @Summary 換金申請を失敗へ遷移し、控除済みXPを返金（管理API）
// @Tags admin
// @Accept json
// @Produce json
// @Param payout_id path string true "換金申請ID" example(pay_77d1)
// @Param X-API-Key header string true "APIキー"
// @Param request body PayoutTransitionRequest false "失敗理由"
// @Success 200 {object} PayoutTransitionResponse "遷移成功"
// @Failure 404 {object} ErrorResponse "申請が存在しない"
// @Failure 409 {object} ErrorResponse "不正な遷移"
// @Router /admin/payouts/{payout_id}/fail [post]
func (h *PayoutHandler) MarkFailed(c echo.Context) error {
	payoutID := c.Param("payout_id")
	if payoutID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payout_id is required")
	}

	var reqBody PayoutTransitionRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.payoutService.MarkFailed(c.Request().Context(), &payoutapp.TransitionRequest{
		PayoutID: payoutID,
		Reason:   reqBody.Reason,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PayoutTransitionResponse{
		PayoutID: resp.PayoutID,
		Status:   resp.Status,
	})
}

func toPayoutModel(p payoutapp.PayoutView) PayoutModel {
	return PayoutModel{
		PayoutID:       p.PayoutID,
		CreatorUserID:  p.CreatorUserID,
		Amount:         strconv.FormatInt(p.Amount, 10),
		Fee:            strconv.FormatInt(p.Fee, 10),
		NetAmountMinor: strconv.FormatInt(p.NetAmountMinor, 10),
		Currency:       p.Currency,
		RateXPPerUnit:  strconv.FormatInt(p.RateXPPerUnit, 10),
		RateVersion:    p.RateVersion,
		FailureReason:  p.FailureReason,
		Status:         p.Status,
		RequestedAt:    p.RequestedAt,
		ProcessedAt:    p.ProcessedAt,
	}
}
