package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"xp-server/internal/domain/account"
	"xp-server/internal/domain/listing"
)

// ListingRepository MySQL実装のListingRepository
type ListingRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewListingRepository 新しいListingRepositoryを作成
func NewListingRepository(db *DB) *ListingRepository {
	return &ListingRepository{
		db:     db,
		tracer: otel.Tracer("listing-repository"),
	}
}

// Create 新しいリスティングを作成
func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	ctx, span := r.tracer.Start(ctx, "ListingRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.listing_id", l.ListingID()),
		attribute.String("db.seller_user_id", l.SellerUserID()),
		attribute.Int64("db.price", l.Price()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "listings"),
	)

	query := `
		INSERT INTO listings (listing_id, seller_user_id, seller_scope, price, status, version)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		l.ListingID(),
		l.SellerUserID(),
		l.SellerScope().String(),
		l.Price(),
		l.Status().String(),
		l.Version(),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to create listing: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "listing created")
	return nil
}

// FindByListingID リスティングIDでリスティングを取得
func (r *ListingRepository) FindByListingID(ctx context.Context, listingID string) (*listing.Listing, error) {
	ctx, span := r.tracer.Start(ctx, "ListingRepository.FindByListingID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.listing_id", listingID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "listings"),
	)

	query := `
		SELECT listing_id, seller_user_id, seller_scope, price, status, version, created_at, updated_at
		FROM listings
		WHERE listing_id = ?
	`

	l, err := r.scanListing(r.db.conn(ctx).QueryRowContext(ctx, query, listingID))
	if err == sql.ErrNoRows {
		span.SetStatus(otelcodes.Ok, "listing not found")
		return nil, listing.ErrListingNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(otelcodes.Ok, "listing found")
	return l, nil
}

// FindActive 出品中のリスティング一覧を新しい順に取得
func (r *ListingRepository) FindActive(ctx context.Context, limit, offset int) ([]*listing.Listing, error) {
	ctx, span := r.tracer.Start(ctx, "ListingRepository.FindActive")
	defer span.End()

	span.SetAttributes(
		attribute.Int("db.limit", limit),
		attribute.Int("db.offset", offset),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "listings"),
	)

	query := `
		SELECT listing_id, seller_user_id, seller_scope, price, status, version, created_at, updated_at
		FROM listings
		WHERE status = ?
		ORDER BY created_at DESC, listing_id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, listing.StatusActive.String(), limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []*listing.Listing
	for rows.Next() {
		l, err := r.scanListing(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}
		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}

	span.SetAttributes(attribute.Int("db.listing_count", len(listings)))
	span.SetStatus(otelcodes.Ok, "listings found")
	return listings, nil
}

// MarkSold activeからsoldへCASで遷移させる
// バージョン不一致またはactive以外の場合は行が更新されず、ErrListingUnavailableを返す
func (r *ListingRepository) MarkSold(ctx context.Context, listingID string, version int) error {
	return r.transition(ctx, "ListingRepository.MarkSold", listingID, version, listing.StatusActive, listing.StatusSold)
}

// MarkCancelled activeからcancelledへCASで遷移させる
func (r *ListingRepository) MarkCancelled(ctx context.Context, listingID string, version int) error {
	return r.transition(ctx, "ListingRepository.MarkCancelled", listingID, version, listing.StatusActive, listing.StatusCancelled)
}

func (r *ListingRepository) transition(ctx context.Context, spanName, listingID string, version int, from, to listing.Status) error {
	ctx, span := r.tracer.Start(ctx, spanName)
	defer span.End()

	span.SetAttributes(
		attribute.String("db.listing_id", listingID),
		attribute.Int("db.version", version),
		attribute.String("db.status_from", from.String()),
		attribute.String("db.status_to", to.String()),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "listings"),
	)

	query := `
		UPDATE listings
		SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE listing_id = ? AND status = ? AND version = ?
	`

	result, err := r.db.conn(ctx).ExecContext(ctx, query, to.String(), listingID, from.String(), version)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to update listing status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		span.SetStatus(otelcodes.Ok, "listing unavailable")
		return listing.ErrListingUnavailable
	}

	span.SetStatus(otelcodes.Ok, "listing status updated")
	return nil
}

// Reactivate soldからactiveへ戻す（購入失敗時の補償処理用）
// バージョンスタンプは新しくなるため、以前のスタンプでの売却は成立しない
func (r *ListingRepository) Reactivate(ctx context.Context, listingID string) error {
	ctx, span := r.tracer.Start(ctx, "ListingRepository.Reactivate")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.listing_id", listingID),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "listings"),
	)

	query := `
		UPDATE listings
		SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE listing_id = ? AND status = ?
	`

	result, err := r.db.conn(ctx).ExecContext(ctx, query, listing.StatusActive.String(), listingID, listing.StatusSold.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to reactivate listing: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		span.SetStatus(otelcodes.Ok, "listing not found")
		return listing.ErrListingNotFound
	}

	span.SetStatus(otelcodes.Ok, "listing reactivated")
	return nil
}

func (r *ListingRepository) scanListing(row rowScanner) (*listing.Listing, error) {
	var listingID, sellerUserID, sellerScope, statusStr string
	var price int64
	var version int
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&listingID,
		&sellerUserID,
		&sellerScope,
		&price,
		&statusStr,
		&version,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan listing: %w", err)
	}

	scope, err := account.NewScope(sellerScope)
	if err != nil {
		return nil, fmt.Errorf("invalid seller scope: %w", err)
	}

	status, err := listing.NewStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("invalid listing status: %w", err)
	}

	l, err := listing.Reconstruct(listingID, sellerUserID, scope, price, status, version, createdAt, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct listing entity: %w", err)
	}

	return l, nil
}
