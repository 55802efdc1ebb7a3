package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authapp "xp-server/internal/application/auth"
	historyapp "xp-server/internal/application/history"
	marketplaceapp "xp-server/internal/application/marketplace"
	payoutapp "xp-server/internal/application/payout"
	rateapp "xp-server/internal/application/rateadmin"
	transferapp "xp-server/internal/application/transfer"
	"xp-server/internal/domain/fee"
	"xp-server/internal/domain/ledger"
	"xp-server/internal/domain/notification"
	"xp-server/internal/domain/service"
	"xp-server/internal/domain/settlement"
	"xp-server/internal/infrastructure/clients"
	"xp-server/internal/infrastructure/config"
	otelinfra "xp-server/internal/infrastructure/observability/otel"
	"xp-server/internal/infrastructure/persistence/mysql"
	"xp-server/internal/infrastructure/rates"
	"xp-server/internal/presentation/rest"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// OpenTelemetryの初期化
	tracerShutdown, err := otelinfra.InitTracer(&cfg.OpenTelemetry)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(ctx); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	meterShutdown, err := otelinfra.InitMeter(&cfg.OpenTelemetry)
	if err != nil {
		log.Fatalf("Failed to initialize meter: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterShutdown(ctx); err != nil {
			log.Printf("Failed to shutdown meter: %v", err)
		}
	}()

	// ロガーとメトリクスの初期化
	tracer := otelinfra.Tracer("xp-server")
	logger := otelinfra.NewLogger(tracer)
	metrics, err := otelinfra.NewMetrics("xp-server")
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	// データベース接続の初期化
	db, err := mysql.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// リポジトリの初期化
	accountRepo := mysql.NewAccountRepository(db)
	ledgerRepo := mysql.NewLedgerRepository(db)
	listingRepo := mysql.NewListingRepository(db)
	payoutRepo := mysql.NewPayoutRequestRepository(db)

	// トランザクションマネージャーの初期化
	txManager := mysql.NewTransactionManager(db, cfg.Database.TxTimeout)

	// ドメインサービスの初期化
	balanceService := service.NewBalanceService(accountRepo)

	// 手数料テーブルの構築
	feeTable, err := buildFeeTable(&cfg.Fees)
	if err != nil {
		log.Fatalf("Failed to build fee table: %v", err)
	}

	// 換算レートプロバイダーの初期化
	rateProvider := rates.NewMemoryProvider(cfg.Rates.DefaultXPPerUnit, cfg.Rates.DefaultCurrency)

	// 外部コラボレーターの初期化
	notifier := buildNotifier(&cfg.Notification, logger)
	gateway := buildGateway(&cfg.Settlement)

	// アプリケーションサービスの初期化
	authAppService := authapp.NewAuthApplicationService(&cfg.JWT, logger)

	transferAppService := transferapp.NewTransferApplicationService(
		accountRepo,
		ledgerRepo,
		txManager,
		balanceService,
		feeTable,
		notifier,
		cfg.Fees.PlatformAccountID,
		logger,
		metrics,
	)

	marketplaceAppService := marketplaceapp.NewMarketplaceApplicationService(
		listingRepo,
		ledgerRepo,
		transferAppService,
		notifier,
		logger,
		metrics,
	)

	payoutAppService := payoutapp.NewPayoutApplicationService(
		payoutRepo,
		transferAppService,
		rateProvider,
		feeTable,
		gateway,
		notifier,
		cfg.Payout.MinimumAmount,
		cfg.Payout.HoldingAccountID,
		cfg.Fees.PlatformAccountID,
		logger,
		metrics,
	)

	historyAppService := historyapp.NewHistoryApplicationService(
		ledgerRepo,
		logger,
		metrics,
	)

	rateAppService := rateapp.NewRateApplicationService(rateProvider, logger)

	// REST APIルーターの初期化
	router, err := rest.NewRouter(
		cfg,
		logger,
		metrics,
		db,
		authAppService,
		transferAppService,
		marketplaceAppService,
		payoutAppService,
		historyAppService,
		rateAppService,
	)
	if err != nil {
		log.Fatalf("Failed to create router: %v", err)
	}

	// サーバーアドレスの設定
	address := fmt.Sprintf(":%d", cfg.Server.Port)

	// グレースフルシャットダウンの設定
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// REST APIサーバーを別ゴルーチンで起動
	go func() {
		log.Printf("REST API server starting on %s", address)
		if err := router.Start(address); err != nil {
			log.Printf("REST API server error: %v", err)
		}
	}()

	// シグナルを待機
	<-quit
	log.Println("Shutting down server...")

	if err := router.Shutdown(); err != nil {
		log.Printf("Error shutting down REST API server: %v", err)
	}

	log.Println("Server stopped")
}

// buildFeeTable 設定から手数料テーブルを構築
func buildFeeTable(cfg *config.FeesConfig) (*fee.Table, error) {
	entries := cfg.FeeRules()
	rules := make([]fee.Rule, 0, len(entries))
	for _, e := range entries {
		kind, err := ledger.NewKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("invalid fee rule kind %q: %w", e.Kind, err)
		}
		rules = append(rules, fee.Rule{Kind: kind, Bps: e.Bps, MinFee: e.MinFee})
	}
	return fee.NewTable(rules)
}

// buildNotifier 通知設定からNotifierを構築
func buildNotifier(cfg *config.NotificationConfig, logger *otelinfra.Logger) notification.Notifier {
	if !cfg.Enabled || cfg.WebhookURL == "" {
		return clients.NewNopNotifier()
	}
	return clients.NewWebhookNotifier(cfg.WebhookURL, &http.Client{Timeout: cfg.Timeout}, logger)
}

// buildGateway 外部送金設定からGatewayを構築
func buildGateway(cfg *config.SettlementConfig) settlement.Gateway {
	if cfg.Endpoint == "" {
		return clients.NewNopGateway()
	}
	return clients.NewSettlementClient(cfg.Endpoint, cfg.APIKey, &http.Client{Timeout: cfg.Timeout})
}
