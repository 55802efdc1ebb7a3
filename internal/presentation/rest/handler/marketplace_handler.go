package handler

import (
	"net/http"
	"strconv"

	marketplaceapp "xp-server/internal/application/marketplace"

	"github.com/labstack/echo/v4"
)

// MarketplaceHandler マーケットプレイス関連ハンドラー
type MarketplaceHandler struct {
	marketplaceService *marketplaceapp.MarketplaceApplicationService
}

// NewMarketplaceHandler 新しいMarketplaceHandlerを作成
func NewMarketplaceHandler(marketplaceService *marketplaceapp.MarketplaceApplicationService) *MarketplaceHandler {
	return &MarketplaceHandler{
		marketplaceService: marketplaceService,
	}
}

// CreateListing 出品ハンドラー
// @Summary リスティングを出品
// @Description XP建て価格でリスティングを出品します
// @Tags marketplace
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CreateListingRequest true "出品リクエスト"
// @Success 201 {object} CreateListingResponse "出品成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /marketplace/listings [post]
func (h *MarketplaceHandler) CreateListing(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	var reqBody CreateListingRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	price, err := strconv.ParseInt(reqBody.Price, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid price format")
	}

	resp, err := h.marketplaceService.CreateListing(c.Request().Context(), &marketplaceapp.CreateListingRequest{
		SellerUserID: userID,
		SellerScope:  reqBody.Scope,
		Price:        price,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, CreateListingResponse{
		ListingID: resp.ListingID,
		Status:    resp.Status,
	})
}

// ListListings 出品中リスティング一覧ハンドラー
// @Summary 出品中のリスティング一覧を取得
// @Tags marketplace
// @Accept json
// @Produce json
// @Security Bearer
// @Param limit query int false "取得件数" example(20)
// @Param offset query int false "オフセット" example(0)
// @Success 200 {object} ListListingsResponse "取得成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Router /marketplace/listings [get]
func (h *MarketplaceHandler) ListListings(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	resp, err := h.marketplaceService.ListActive(c.Request().Context(), &marketplaceapp.ListActiveRequest{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}

	listings := make([]ListingModel, 0, len(resp.Listings))
	for _, l := range resp.Listings {
		listings = append(listings, toListingModel(l))
	}

	return c.JSON(http.StatusOK, ListListingsResponse{
		Listings: listings,
		Limit:    resp.Limit,
		Offset:   resp.Offset,
	})
}

// GetListing リスティング取得ハンドラー
// @Summary リスティングを取得
// @Tags marketplace
// @Accept json
// @Produce json
// @Security Bearer
// @Param listing_id path string true "リスティングID" example(lst_3ab2)
// @Success 200 {object} ListingModel "取得成功"
// @Failure 404 {object} ErrorResponse "リスティングが存在しない"
// @Router /marketplace/listings/{listing_id} [get]
func (h *MarketplaceHandler) GetListing(c echo.Context) error {
	listingID := c.Param("listing_id")
	if listingID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "listing_id is required")
	}

	resp, err := h.marketplaceService.GetListing(c.Request().Context(), &marketplaceapp.GetListingRequest{
		ListingID: listingID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toListingModel(resp.Listing))
}

// Purchase 購入ハンドラー
// @Summary リスティングを購入
// @Description 出品中のリスティングを購入します。同じリスティングが2回売れることはありません
// @Tags marketplace
// @Accept json
// @Produce json
// @Security Bearer
// @Param listing_id path string true "リスティングID" example(lst_3ab2)
// @Param request body PurchaseRequest true "購入リクエスト"
// @Success 200 {object} PurchaseResponse "購入成功"
// @Failure 400 {object} ErrorResponse "不正なリクエスト"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Failure 409 {object} ErrorResponse "売約済みまたは残高不足"
// @Router /marketplace/listings/{listing_id}/purchase [post]
func (h *MarketplaceHandler) Purchase(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	listingID := c.Param("listing_id")
	if listingID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "listing_id is required")
	}

	var reqBody PurchaseRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	token := resolveIdempotencyToken(c, reqBody.IdempotencyToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "idempotency_token is required")
	}

	resp, err := h.marketplaceService.Purchase(c.Request().Context(), &marketplaceapp.PurchaseRequest{
		BuyerUserID:      userID,
		ListingID:        listingID,
		IdempotencyToken: token,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PurchaseResponse{
		ListingID:   resp.ListingID,
		RecordID:    resp.RecordID,
		Price:       strconv.FormatInt(resp.Price, 10),
		Fee:         strconv.FormatInt(resp.Fee, 10),
		SellerShare: strconv.FormatInt(resp.SellerShare, 10),
		Status:      resp.Status,
	})
}

// CancelListing 出品キャンセルハンドラー
// @Summary 出品をキャンセル
// @Description 自分の出品中リスティングをキャンセルします
// @Tags marketplace
// @Accept json
// @Produce json
// @Security Bearer
// @Param listing_id path string true "リスティングID" example(lst_3ab2)
// @Success 200 {object} CancelListingResponse "キャンセル成功"
// @Failure 401 {object} ErrorResponse "認証エラー"
// @Failure 403 {object} ErrorResponse "出品者以外による操作"
// @Failure 409 {object} ErrorResponse "出品中でない"
// @Router /marketplace/listings/{listing_id} [delete]
func (h *MarketplaceHandler) CancelListing(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}

	listingID := c.Param("listing_id")
	if listingID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "listing_id is required")
	}

	resp, err := h.marketplaceService.CancelListing(c.Request().Context(), &marketplaceapp.CancelListingRequest{
		ListingID:    listingID,
		SellerUserID: userID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, CancelListingResponse{
		ListingID: resp.ListingID,
		Status:    resp.Status,
	})
}

func toListingModel(l marketplaceapp.ListingView) ListingModel {
	return ListingModel{
		ListingID:    l.ListingID,
		SellerUserID: l.SellerUserID,
		Scope:        l.SellerScope,
		Price:        strconv.FormatInt(l.Price, 10),
		Status:       l.Status,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}
