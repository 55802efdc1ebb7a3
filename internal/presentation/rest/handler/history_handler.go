package handler

import (
	"net/http"
	"strconv"

	historyapp "xp-server/internal/application/history"

	"github.com/labstack/echo/v4"
)

// HistoryHandler 台帳履歴関連ハンドラー
type HistoryHandler struct {
	historyService *historyapp.HistoryApplicationService
}

// NewHistoryHandler 新しいHistoryHandlerを作成
func NewHistoryHandler(historyService *historyapp.HistoryApplicationService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
	}
}

// GetHistory 台帳履歴取得ハンドラー
// @Summary 自分の台帳履歴を取得
// @Description 自分が関与する台帳レコードを新しい順に取得します
// @Tags history
// @Accept json
// @Produce json
// @Security Bearer
// @Param kind query string false "種別フィルター" example(transfer)
// @Param limit query int false "取得件数" example(50)
// @Param offset query int false "オフセット" example(0)
// @Success 200 {object} HistoryResponse "取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /me/history [get]
func (h *HistoryHandler) GetHistory(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	return h.respondHistory(c, userID)
}

// GetRecord 台帳レコード取得ハンドラー
// @Summary 台帳レコードを取得
// @Tags history
// @Accept json
// @Produce json
// @Security Bearer
// @Param record_id path string true "台帳レコードID" example(rec_8f3a)
// @Success 200 {object} RecordModel "取得成功"
// @Failure 404 {object} ErrorResponse "レコードが存在しない"
// @Router /me/records/{record_id} [get]
func (h *HistoryHandler) GetRecord(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	recordID := c.Param("record_id")
	if recordID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "record_id is required")
	}

	resp, err := h.historyService.GetRecord(c.Request().Context(), &historyapp.GetRecordRequest{
		RecordID: recordID,
	})
	if err != nil {
		return err
	}

	// 自分がレッグに含まれるレコードのみ参照できる
	if !recordInvolvesUser(resp.Record, userID) {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}

	return c.JSON(http.StatusOK, toRecordModel(resp.Record))
}

// GetHistoryAdmin 台帳履歴取得ハンドラー（管理API用）
// @Summary 任意ユーザーの台帳履歴を取得（管理API）
// @Tags admin
// @Accept json
// @Produce json
// @Param user_id path string true "ユーザーID" example(alice)
// @Param X-API-Key header string true "APIキー"
// @Param kind query string false "種別フィルター" example(payout)
// @Param limit query int false "取得件数" example(50)
// @Param offset query int false "オフセット" example(0)
// @Success 200 {object} HistoryResponse "取得成功"
// @Failure 403 {object} ErrorResponse "権限エラー"
// @Router /admin/users/{user_id}/history [get]
func (h *HistoryHandler) GetHistoryAdmin(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	return h.respondHistory(c, userID)
}

func (h *HistoryHandler) respondHistory(c echo.Context, userID string) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	resp, err := h.historyService.GetLedgerHistory(c.Request().Context(), &historyapp.GetLedgerHistoryRequest{
		UserID: userID,
		Kind:   c.QueryParam("kind"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}

	records := make([]RecordModel, 0, len(resp.Records))
	for _, r := range resp.Records {
		records = append(records, toRecordModel(r))
	}

	return c.JSON(http.StatusOK, HistoryResponse{
		Records: records,
		Limit:   resp.Limit,
		Offset:  resp.Offset,
	})
}

func recordInvolvesUser(record historyapp.RecordView, userID string) bool {
	for _, leg := range record.Legs {
		if leg.UserID == userID {
			return true
		}
	}
	return false
}
