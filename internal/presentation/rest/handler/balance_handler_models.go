package handler

// ErrorResponse エラーレスポンス
// @Description エラーレスポンス
type ErrorResponse struct {
	Error   string `json:"error" example:"insufficient_balance"`
	Message string `json:"message" example:"insufficient balance"`
}

// BalanceResponse 残高レスポンス
// @Description 残高レスポンス
type BalanceResponse struct {
	UserID  string `json:"user_id" example:"user123"`
	Scope   string `json:"scope" example:"creator:alice"`
	Current string `json:"current" example:"1500"`
	Earned  string `json:"earned" example:"2000"`
	Spent   string `json:"spent" example:"500"`
}

// SpendableResponse エコシステム内の消費可能残高レスポンス
// @Description エコシステム内の消費可能残高レスポンス
type SpendableResponse struct {
	UserID    string `json:"user_id" example:"user123"`
	Spendable string `json:"spendable" example:"2500"`
}
