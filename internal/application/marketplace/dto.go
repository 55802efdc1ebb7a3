package marketplace

import "time"

// CreateListingRequest 出品リクエスト
type CreateListingRequest struct {
	SellerUserID string
	SellerScope  string // "platform" または "creator:<id>"
	Price        int64
}

// CreateListingResponse 出品レスポンス
type CreateListingResponse struct {
	ListingID string
	Status    string
}

// PurchaseRequest 購入リクエスト
type PurchaseRequest struct {
	BuyerUserID      string
	ListingID        string
	IdempotencyToken string
}

// PurchaseResponse 購入レスポンス
type PurchaseResponse struct {
	ListingID   string
	RecordID    string
	Price       int64
	Fee         int64
	SellerShare int64
	Status      string // "completed" または "already_applied"
}

// CancelListingRequest 出品キャンセルリクエスト
type CancelListingRequest struct {
	ListingID    string
	SellerUserID string
}

// CancelListingResponse 出品キャンセルレスポンス
type CancelListingResponse struct {
	ListingID string
	Status    string
}

// GetListingRequest リスティング取得リクエスト
type GetListingRequest struct {
	ListingID string
}

// ListingView リスティングの表示用ビュー
type ListingView struct {
	ListingID    string
	SellerUserID string
	SellerScope  string
	Price        int64
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetListingResponse リスティング取得レスポンス
type GetListingResponse struct {
	Listing ListingView
}

// ListActiveRequest 出品中リスティング一覧リクエスト
type ListActiveRequest struct {
	Limit  int
	Offset int
}

// ListActiveResponse 出品中リスティング一覧レスポンス
type ListActiveResponse struct {
	Listings []ListingView
	Limit    int
	Offset   int
}
