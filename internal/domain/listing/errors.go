package listing

import "errors"

var (
	// ErrListingNotFound リスティングが見つからないエラー
	ErrListingNotFound = errors.New("listing not found")
	// ErrListingUnavailable リスティングが購入不可能（他の購入者が先に購入した等）
	ErrListingUnavailable = errors.New("listing unavailable")
	// ErrInvalidStatus ステータスが無効
	ErrInvalidStatus = errors.New("invalid listing status")
	// ErrSelfPurchase 自己購入エラー
	ErrSelfPurchase = errors.New("cannot purchase own listing")
	// ErrNotSeller 出品者以外による操作エラー
	ErrNotSeller = errors.New("listing does not belong to user")
)
