package rest

import (
	authapp "xp-server/internal/application/auth"
	historyapp "xp-server/internal/application/history"
	marketplaceapp "xp-server/internal/application/marketplace"
	payoutapp "xp-server/internal/application/payout"
	rateapp "xp-server/internal/application/rateadmin"
	transferapp "xp-server/internal/application/transfer"
	"xp-server/internal/infrastructure/config"
	otelinfra "xp-server/internal/infrastructure/observability/otel"
	"xp-server/internal/presentation/rest/handler"
	restmiddleware "xp-server/internal/presentation/rest/middleware"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Router REST APIルーター
type Router struct {
	echo               *echo.Echo
	authHandler        *handler.AuthHandler
	balanceHandler     *handler.BalanceHandler
	transferHandler    *handler.TransferHandler
	marketplaceHandler *handler.MarketplaceHandler
	payoutHandler      *handler.PayoutHandler
	historyHandler     *handler.HistoryHandler
	rateHandler        *handler.RateHandler
}

// HealthChecker 依存リソースの疎通確認インターフェース
type HealthChecker interface {
	HealthCheck() error
}

// NewRouter 新しいRouterを作成
func NewRouter(
	cfg *config.Config,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
	healthChecker HealthChecker,
	authService *authapp.AuthApplicationService,
	transferService *transferapp.TransferApplicationService,
	marketplaceService *marketplaceapp.MarketplaceApplicationService,
	payoutService *payoutapp.PayoutApplicationService,
	historyService *historyapp.HistoryApplicationService,
	rateService *rateapp.RateApplicationService,
) (*Router, error) {
	e := echo.New()

	// Echoのデフォルトエラーハンドラーを無効化（カスタムエラーハンドラーを使用）
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		// エラーハンドリングミドルウェアで処理される
	}

	// ミドルウェアの設定
	setupMiddleware(e, cfg, logger, metrics)

	// ハンドラーの作成
	r := &Router{
		echo:               e,
		authHandler:        handler.NewAuthHandler(authService),
		balanceHandler:     handler.NewBalanceHandler(transferService),
		transferHandler:    handler.NewTransferHandler(transferService),
		marketplaceHandler: handler.NewMarketplaceHandler(marketplaceService),
		payoutHandler:      handler.NewPayoutHandler(payoutService),
		historyHandler:     handler.NewHistoryHandler(historyService),
		rateHandler:        handler.NewRateHandler(rateService),
	}

	// ルーティングの設定
	r.setupRoutes(cfg, logger, healthChecker)

	// Swagger UI / ReDoc統合
	SetupSwagger(e)

	return r, nil
}

// setupMiddleware ミドルウェアを設定
func setupMiddleware(e *echo.Echo, cfg *config.Config, logger *otelinfra.Logger, metrics *otelinfra.Metrics) {
	// リカバリーミドルウェア
	e.Use(middleware.Recover())

	// CORS設定
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"}, // 本番環境では適切に設定
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key", "X-API-Key"},
	}))

	// リクエストIDの設定
	e.Use(middleware.RequestID())

	// セキュリティヘッダーの設定
	e.Use(restmiddleware.SecurityHeadersMiddleware())

	// トレーシングミドルウェア
	e.Use(restmiddleware.TracingMiddleware())

	// メトリクスミドルウェア
	e.Use(restmiddleware.MetricsMiddleware(metrics))

	// ログミドルウェア
	e.Use(restmiddleware.LoggingMiddleware(logger))

	// エラーハンドリングミドルウェア
	e.Use(restmiddleware.ErrorHandlerMiddleware(logger))
}

// setupRoutes ルーティングを設定
func (r *Router) setupRoutes(cfg *config.Config, logger *otelinfra.Logger, healthChecker HealthChecker) {
	e := r.echo

	// API v1グループ
	api := e.Group("/api/v1")

	// トークン発行エンドポイント（認証不要）
	api.POST("/auth/token", r.authHandler.GenerateToken)

	// 認証が必要なエンドポイント
	authGroup := api.Group("", restmiddleware.AuthMiddleware(&cfg.JWT, logger))

	// 残高関連エンドポイント
	authGroup.GET("/me/balance", r.balanceHandler.GetBalance)
	authGroup.GET("/me/spendable", r.balanceHandler.GetSpendable)

	// 移転関連エンドポイント
	authGroup.POST("/me/spend", r.transferHandler.Spend)
	authGroup.POST("/me/gifts", r.transferHandler.Gift)

	// マーケットプレイス関連エンドポイント
	authGroup.GET("/listings", r.marketplaceHandler.ListListings)
	authGroup.POST("/listings", r.marketplaceHandler.CreateListing)
	authGroup.GET("/listings/:listing_id", r.marketplaceHandler.GetListing)
	authGroup.POST("/listings/:listing_id/purchase", r.marketplaceHandler.Purchase)
	authGroup.DELETE("/listings/:listing_id", r.marketplaceHandler.CancelListing)

	// 換金申請関連エンドポイント
	authGroup.POST("/me/payouts", r.payoutHandler.RequestPayout)
	authGroup.GET("/me/payouts", r.payoutHandler.ListPayouts)
	authGroup.GET("/me/payouts/:payout_id", r.payoutHandler.GetPayout)
	authGroup.DELETE("/me/payouts/:payout_id", r.payoutHandler.CancelPayout)

	// 履歴関連エンドポイント
	authGroup.GET("/me/history", r.historyHandler.GetHistory)
	authGroup.GET("/me/records/:record_id", r.historyHandler.GetRecord)

	// レート関連エンドポイント
	authGroup.GET("/rates", r.rateHandler.GetRate)

	// 管理APIエンドポイント（APIキー認証）
	adminGroup := api.Group("/admin", restmiddleware.APIKeyMiddleware(&cfg.AdminAPI, logger))
	adminGroup.POST("/users/:user_id/earn", r.transferHandler.Earn)
	adminGroup.GET("/users/:user_id/balance", r.balanceHandler.GetBalanceAdmin)
	adminGroup.GET("/users/:user_id/history", r.historyHandler.GetHistoryAdmin)
	adminGroup.POST("/transfers", r.transferHandler.ExecuteTransfer)
	adminGroup.POST("/payouts/:payout_id/processing", r.payoutHandler.MarkProcessing)
	adminGroup.POST("/payouts/:payout_id/complete", r.payoutHandler.MarkCompleted)
	adminGroup.POST("/payouts/:payout_id/fail", r.payoutHandler.MarkFailed)
	adminGroup.POST("/rates", r.rateHandler.PushRate)

	// ヘルスチェックエンドポイント（認証不要）
	e.GET("/health", func(c echo.Context) error {
		if err := healthChecker.HealthCheck(); err != nil {
			return c.JSON(503, map[string]string{"status": "unavailable"})
		}
		return c.JSON(200, map[string]string{"status": "ok"})
	})
}

// Start サーバーを起動
func (r *Router) Start(address string) error {
	return r.echo.Start(address)
}

// Shutdown サーバーをシャットダウン
func (r *Router) Shutdown() error {
	return r.echo.Close()
}
