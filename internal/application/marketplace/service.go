package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xp-server/internal/application/transfer"
	"xp-server/internal/domain/account"
	"xp-server/internal/domain/ledger"
	"xp-server/internal/domain/listing"
	"xp-server/internal/domain/notification"
	otelinfra "xp-server/internal/infrastructure/observability/otel"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// MarketplaceApplicationService マーケットプレイスアプリケーションサービス
// リスティングのCAS遷移で売却の単一性を保証し、資金の移動は振替サービスに委譲する
type MarketplaceApplicationService struct {
	listingRepo     listing.ListingRepository
	ledgerRepo      ledger.LedgerRepository
	transferService *transfer.TransferApplicationService
	notifier        notification.Notifier
	logger          *otelinfra.Logger
	metrics         *otelinfra.Metrics
	tracer          trace.Tracer
}

// NewMarketplaceApplicationService 新しいMarketplaceApplicationServiceを作成
func NewMarketplaceApplicationService(
	listingRepo listing.ListingRepository,
	ledgerRepo ledger.LedgerRepository,
	transferService *transfer.TransferApplicationService,
	notifier notification.Notifier,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *MarketplaceApplicationService {
	return &MarketplaceApplicationService{
		listingRepo:     listingRepo,
		ledgerRepo:      ledgerRepo,
		transferService: transferService,
		notifier:        notifier,
		logger:          logger,
		metrics:         metrics,
		tracer:          otel.Tracer("marketplace-service"),
	}
}

// CreateListing 新しいリスティングを出品
func (s *MarketplaceApplicationService) CreateListing(ctx context.Context, req *CreateListingRequest) (*CreateListingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "MarketplaceApplicationService.CreateListing")
	defer span.End()

	span.SetAttributes(
		attribute.String("seller_user_id", req.SellerUserID),
		attribute.Int64("price", req.Price),
	)

	s.logger.Info(ctx, "Creating listing", map[string]interface{}{
		"seller_user_id": req.SellerUserID,
		"price":          req.Price,
	})

	scope, err := account.NewScope(req.SellerScope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	l, err := listing.NewListing(s.generateListingID(), req.SellerUserID, scope, req.Price)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	if err := s.listingRepo.Create(ctx, l); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to create listing", err, map[string]interface{}{
			"seller_user_id": req.SellerUserID,
		})
		return nil, err
	}

	return &CreateListingResponse{
		ListingID: l.ListingID(),
		Status:    l.Status().String(),
	}, nil
}

// Purchase リスティングを購入
// activeからsoldへのCAS遷移が資金移動に先行し、同じリスティングが
// 2回売れることはない。振替が失敗した場合はリスティングを再出品に戻す
func (s *MarketplaceApplicationService) Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error) {
	ctx, span := s.tracer.Start(ctx, "MarketplaceApplicationService.Purchase")
	defer span.End()

	span.SetAttributes(
		attribute.String("buyer_user_id", req.BuyerUserID),
		attribute.String("listing_id", req.ListingID),
	)

	s.logger.Info(ctx, "Processing purchase", map[string]interface{}{
		"buyer_user_id": req.BuyerUserID,
		"listing_id":    req.ListingID,
	})

	l, err := s.listingRepo.FindByListingID(ctx, req.ListingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	if l.SellerUserID() == req.BuyerUserID {
		err := listing.ErrSelfPurchase
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	if !l.Status().IsActive() {
		// 売約済みでも、同一トークンの先行購入が確定済みなら冪等に成功を返す
		if resp, ok := s.findCompletedPurchase(ctx, req.IdempotencyToken, l); ok {
			return resp, nil
		}
		err := listing.ErrListingUnavailable
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	// 資金が動く前にCASで売約済みへ遷移させる
	if err := s.listingRepo.MarkSold(ctx, l.ListingID(), l.Version()); err != nil {
		if errors.Is(err, listing.ErrListingUnavailable) {
			if resp, ok := s.findCompletedPurchase(ctx, req.IdempotencyToken, l); ok {
				return resp, nil
			}
			s.metrics.RecordMarketplaceSale(ctx, "lost_race")
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	result, err := s.transferService.Execute(ctx, &transfer.ExecuteRequest{
		IdempotencyToken: req.IdempotencyToken,
		Kind:             ledger.KindMarketplaceSale.String(),
		Legs: []transfer.LegInput{
			{UserID: req.BuyerUserID, Scope: l.SellerScope().String(), Delta: -l.Price()},
			{UserID: l.SellerUserID(), Scope: l.SellerScope().String(), Delta: l.Price()},
		},
		Metadata: map[string]interface{}{
			"listing_id": l.ListingID(),
		},
	})

	if err != nil {
		// 補償処理: リスティングを新しいスタンプで再出品に戻す
		if reactivateErr := s.listingRepo.Reactivate(ctx, l.ListingID()); reactivateErr != nil {
			s.logger.Error(ctx, "Failed to reactivate listing after transfer failure", reactivateErr, map[string]interface{}{
				"listing_id": l.ListingID(),
			})
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to execute purchase transfer", err, map[string]interface{}{
			"buyer_user_id": req.BuyerUserID,
			"listing_id":    l.ListingID(),
		})
		s.metrics.RecordMarketplaceSale(ctx, "failed")
		return nil, err
	}

	s.metrics.RecordMarketplaceSale(ctx, "completed")

	s.logger.Info(ctx, "Purchase completed", map[string]interface{}{
		"listing_id": l.ListingID(),
		"record_id":  result.RecordID,
		"price":      l.Price(),
		"fee":        result.Fee,
	})

	s.notifier.Notify(ctx, notification.Event{
		Type:      "marketplace_sale",
		UserID:    l.SellerUserID(),
		RecordID:  result.RecordID,
		ListingID: l.ListingID(),
		Attributes: map[string]interface{}{
			"price":        l.Price(),
			"seller_share": result.Share,
		},
		OccurredAt: l.UpdatedAt(),
	})

	return &PurchaseResponse{
		ListingID:   l.ListingID(),
		RecordID:    result.RecordID,
		Price:       l.Price(),
		Fee:         result.Fee,
		SellerShare: result.Share,
		Status:      result.Status,
	}, nil
}

// findCompletedPurchase 同一トークンで確定済みの購入レコードを探す
// 見つかった場合は冪等な成功レスポンスを返す
func (s *MarketplaceApplicationService) findCompletedPurchase(ctx context.Context, token string, l *listing.Listing) (*PurchaseResponse, bool) {
	record, err := s.ledgerRepo.FindByIdempotencyToken(ctx, token)
	if err != nil || record.Kind() != ledger.KindMarketplaceSale {
		return nil, false
	}
	return &PurchaseResponse{
		ListingID:   l.ListingID(),
		RecordID:    record.RecordID(),
		Price:       record.Gross(),
		Fee:         record.Fee(),
		SellerShare: record.Share(),
		Status:      "already_applied",
	}, true
}

// CancelListing 出品をキャンセル（出品中のみ有効）
func (s *MarketplaceApplicationService) CancelListing(ctx context.Context, req *CancelListingRequest) (*CancelListingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "MarketplaceApplicationService.CancelListing")
	defer span.End()

	span.SetAttributes(
		attribute.String("listing_id", req.ListingID),
		attribute.String("seller_user_id", req.SellerUserID),
	)

	l, err := s.listingRepo.FindByListingID(ctx, req.ListingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	if l.SellerUserID() != req.SellerUserID {
		err := listing.ErrNotSeller
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	if err := s.listingRepo.MarkCancelled(ctx, l.ListingID(), l.Version()); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	s.logger.Info(ctx, "Listing cancelled", map[string]interface{}{
		"listing_id": l.ListingID(),
	})

	return &CancelListingResponse{
		ListingID: l.ListingID(),
		Status:    listing.StatusCancelled.String(),
	}, nil
}

// GetListing リスティングを取得
func (s *MarketplaceApplicationService) GetListing(ctx context.Context, req *GetListingRequest) (*GetListingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "MarketplaceApplicationService.GetListing")
	defer span.End()

	span.SetAttributes(attribute.String("listing_id", req.ListingID))

	l, err := s.listingRepo.FindByListingID(ctx, req.ListingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	return &GetListingResponse{Listing: toListingView(l)}, nil
}

// ListActive 出品中のリスティング一覧を取得
func (s *MarketplaceApplicationService) ListActive(ctx context.Context, req *ListActiveRequest) (*ListActiveResponse, error) {
	ctx, span := s.tracer.Start(ctx, "MarketplaceApplicationService.ListActive")
	defer span.End()

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	listings, err := s.listingRepo.FindActive(ctx, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to list active listings: %w", err)
	}

	views := make([]ListingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, toListingView(l))
	}

	return &ListActiveResponse{
		Listings: views,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

func toListingView(l *listing.Listing) ListingView {
	return ListingView{
		ListingID:    l.ListingID(),
		SellerUserID: l.SellerUserID(),
		SellerScope:  l.SellerScope().String(),
		Price:        l.Price(),
		Status:       l.Status().String(),
		CreatedAt:    l.CreatedAt(),
		UpdatedAt:    l.UpdatedAt(),
	}
}

// generateListingID リスティングIDを生成
func (s *MarketplaceApplicationService) generateListingID() string {
	return fmt.Sprintf("lst_%s", uuid.NewString())
}
