package handler

import "time"

// CreateListingRequest 出品リクエスト
// @Description 出品リクエスト
type CreateListingRequest struct {
	Scope string `json:"scope" example:"creator:alice"`
	Price string `json:"price" example:"1500"`
}

// ListingModel リスティングモデル
// @Description リスティング
type ListingModel struct {
	ListingID    string    `json:"listing_id" example:"lst_3ab2"`
	SellerUserID string    `json:"seller_user_id" example:"user456"`
	Scope        string    `json:"scope" example:"creator:alice"`
	Price        string    `json:"price" example:"1500"`
	Status       string    `json:"status" example:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateListingResponse 出品レスポンス
// @Description 出品レスポンス
type CreateListingResponse struct {
	ListingID string `json:"listing_id" example:"lst_3ab2"`
	Status    string `json:"status" example:"active"`
}

// PurchaseRequest 購入リクエスト
// @Description 購入リクエスト
type PurchaseRequest struct {
	IdempotencyToken string `json:"idempotency_token" example:"purchase-user123-lst_3ab2"`
}

// PurchaseResponse 購入レスポンス
// @Description 購入レスポンス
type PurchaseResponse struct {
	ListingID   string `json:"listing_id" example:"lst_3ab2"`
	RecordID    string `json:"record_id" example:"rec_9f1c"`
	Price       string `json:"price" example:"1500"`
	Fee         string `json:"fee" example:"30"`
	SellerShare string `json:"seller_share" example:"1470"`
	Status      string `json:"status" example:"completed"`
}

// CancelListingResponse 出品キャンセルレスポンス
// @Description 出品キャンセルレスポンス
type CancelListingResponse struct {
	ListingID string `json:"listing_id" example:"lst_3ab2"`
	Status    string `json:"status" example:"cancelled"`
}

// ListListingsResponse 出品中リスティング一覧レスポンス
// @Description 出品中リスティング一覧レスポンス
type ListListingsResponse struct {
	Listings []ListingModel `json:"listings"`
	Limit    int            `json:"limit" example:"20"`
	Offset   int            `json:"offset" example:"0"`
}
