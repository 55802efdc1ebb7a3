package listing

import (
	"errors"
	"regexp"
	"time"

	"xp-server/internal/domain/account"
)

var (
	// ErrInvalidListingID リスティングIDが無効
	ErrInvalidListingID = errors.New("invalid listing id")
	// ErrInvalidSellerID 出品者IDが無効
	ErrInvalidSellerID = errors.New("invalid seller id")
	// ErrInvalidPrice 価格が無効
	ErrInvalidPrice = errors.New("invalid price")
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\@]{1,255}$`)

// Listing マーケットプレイスのリスティングエンティティ
// activeからsoldへの遷移は高々1回であり、バージョンスタンプによるCASで保護される
type Listing struct {
	listingID    string
	sellerUserID string
	sellerScope  account.Scope
	price        int64 // XP建て価格（整数値、小数点なし）
	status       Status
	version      int // 楽観的ロック用スタンプ
	createdAt    time.Time
	updatedAt    time.Time
}

// NewListing 新しいListingエンティティを作成（出品時はactive）
func NewListing(listingID, sellerUserID string, sellerScope account.Scope, price int64) (*Listing, error) {
	if !idRegex.MatchString(listingID) {
		return nil, ErrInvalidListingID
	}
	if !idRegex.MatchString(sellerUserID) {
		return nil, ErrInvalidSellerID
	}
	if !sellerScope.Valid() {
		return nil, account.ErrInvalidScope
	}
	if price <= 0 || price > account.MaxAmount {
		return nil, ErrInvalidPrice
	}
	now := time.Now()
	return &Listing{
		listingID:    listingID,
		sellerUserID: sellerUserID,
		sellerScope:  sellerScope,
		price:        price,
		status:       StatusActive,
		version:      0,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ListingID リスティングIDを返す
func (l *Listing) ListingID() string {
	return l.listingID
}

// SellerUserID 出品者のユーザーIDを返す
func (l *Listing) SellerUserID() string {
	return l.sellerUserID
}

// SellerScope 出品者の通貨スコープを返す
func (l *Listing) SellerScope() account.Scope {
	return l.sellerScope
}

// Price 価格を返す
func (l *Listing) Price() int64 {
	return l.price
}

// Status ステータスを返す
func (l *Listing) Status() Status {
	return l.status
}

// Version バージョンスタンプを返す
func (l *Listing) Version() int {
	return l.version
}

// CreatedAt 作成日時を返す
func (l *Listing) CreatedAt() time.Time {
	return l.createdAt
}

// UpdatedAt 更新日時を返す
func (l *Listing) UpdatedAt() time.Time {
	return l.updatedAt
}

// Reconstruct 永続化層からListingエンティティを復元する
func Reconstruct(listingID, sellerUserID string, sellerScope account.Scope, price int64, status Status, version int, createdAt, updatedAt time.Time) (*Listing, error) {
	l, err := NewListing(listingID, sellerUserID, sellerScope, price)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	l.status = status
	l.version = version
	l.createdAt = createdAt
	l.updatedAt = updatedAt
	return l, nil
}

// MustNewListing テスト用ヘルパー: NewListingを呼び出し、エラーが発生した場合はpanicする
func MustNewListing(listingID, sellerUserID string, sellerScope account.Scope, price int64) *Listing {
	l, err := NewListing(listingID, sellerUserID, sellerScope, price)
	if err != nil {
		panic(err)
	}
	return l
}
