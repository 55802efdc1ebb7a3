package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config アプリケーション全体の設定
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	JWT           JWTConfig
	AdminAPI      AdminAPIConfig
	Fees          FeesConfig
	Rates         RatesConfig
	Payout        PayoutConfig
	Notification  NotificationConfig
	Settlement    SettlementConfig
	OpenTelemetry OpenTelemetryConfig
	Environment   string
}

// ServerConfig サーバー設定
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig データベース設定
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	TxTimeout       time.Duration
}

// JWTConfig JWT設定
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AdminAPIConfig 管理API設定
// 通貨の発行（earn）やレート更新は信頼された内部呼び出し元に限定される
type AdminAPIConfig struct {
	Enabled    bool
	APIKey     string
	AllowedIPs []string
}

// FeesConfig 手数料設定
// ベーシスポイント（1bps = 0.01%）と最低手数料（XPの最小単位）
type FeesConfig struct {
	PlatformAccountID  string
	MarketplaceSaleBps int64
	MarketplaceSaleMin int64
	PayoutBps          int64
	PayoutMin          int64
	GiftBps            int64
	GiftMin            int64
	SpendBps           int64
	SpendMin           int64
}

// RatesConfig 換算レートの初期設定
type RatesConfig struct {
	DefaultXPPerUnit int64
	DefaultCurrency  string
}

// PayoutConfig 換金申請設定
type PayoutConfig struct {
	MinimumAmount    int64
	HoldingAccountID string
}

// NotificationConfig 通知設定
type NotificationConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// SettlementConfig 外部送金設定
type SettlementConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// OpenTelemetryConfig OpenTelemetry設定
type OpenTelemetryConfig struct {
	Enabled         bool
	ServiceName     string
	ServiceVersion  string
	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceExporter   string // "otlp", "stdout"
	MetricsExporter string // "otlp", "stdout"
}

// Load 設定を読み込む
func Load() (*Config, error) {
	// .envファイルを読み込む（存在しない場合は無視）
	_ = godotenv.Load()

	env := getEnv("ENVIRONMENT", "development")

	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 3306),
			User:            getEnv("DB_USER", "root"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "xp_db"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
			TxTimeout:       getEnvAsDuration("DB_TX_TIMEOUT", 5*time.Second),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			Expiration: getEnvAsDuration("JWT_EXPIRATION", 24*time.Hour),
			Issuer:     getEnv("JWT_ISSUER", "xp-server"),
		},
		AdminAPI: AdminAPIConfig{
			Enabled:    getEnvAsBool("ADMIN_API_ENABLED", true),
			APIKey:     getEnv("ADMIN_API_KEY", ""),
			AllowedIPs: getEnvAsSlice("ADMIN_API_ALLOWED_IPS", nil),
		},
		Fees: FeesConfig{
			PlatformAccountID:  getEnv("FEES_PLATFORM_ACCOUNT_ID", "platform"),
			MarketplaceSaleBps: getEnvAsInt64("FEES_MARKETPLACE_SALE_BPS", 200),
			MarketplaceSaleMin: getEnvAsInt64("FEES_MARKETPLACE_SALE_MIN", 0),
			PayoutBps:          getEnvAsInt64("FEES_PAYOUT_BPS", 200),
			PayoutMin:          getEnvAsInt64("FEES_PAYOUT_MIN", 0),
			GiftBps:            getEnvAsInt64("FEES_GIFT_BPS", 500),
			GiftMin:            getEnvAsInt64("FEES_GIFT_MIN", 0),
			SpendBps:           getEnvAsInt64("FEES_SPEND_BPS", 0),
			SpendMin:           getEnvAsInt64("FEES_SPEND_MIN", 0),
		},
		Rates: RatesConfig{
			DefaultXPPerUnit: getEnvAsInt64("RATES_DEFAULT_XP_PER_UNIT", 100),
			DefaultCurrency:  getEnv("RATES_DEFAULT_CURRENCY", "USD"),
		},
		Payout: PayoutConfig{
			MinimumAmount:    getEnvAsInt64("PAYOUT_MINIMUM_AMOUNT", 1000),
			HoldingAccountID: getEnv("PAYOUT_HOLDING_ACCOUNT_ID", "payout_hold"),
		},
		Notification: NotificationConfig{
			Enabled:    getEnvAsBool("NOTIFICATION_ENABLED", false),
			WebhookURL: getEnv("NOTIFICATION_WEBHOOK_URL", ""),
			Timeout:    getEnvAsDuration("NOTIFICATION_TIMEOUT", 3*time.Second),
		},
		Settlement: SettlementConfig{
			Endpoint: getEnv("SETTLEMENT_ENDPOINT", ""),
			APIKey:   getEnv("SETTLEMENT_API_KEY", ""),
			Timeout:  getEnvAsDuration("SETTLEMENT_TIMEOUT", 10*time.Second),
		},
		OpenTelemetry: OpenTelemetryConfig{
			Enabled:         getEnvAsBool("OTEL_ENABLED", true),
			ServiceName:     getEnv("OTEL_SERVICE_NAME", "xp-server"),
			ServiceVersion:  getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			OTLPInsecure:    getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			TraceExporter:   getEnv("OTEL_TRACES_EXPORTER", "otlp"),
			MetricsExporter: getEnv("OTEL_METRICS_EXPORTER", "otlp"),
		},
	}

	// 必須設定の検証
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate 設定の検証
func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AdminAPI.Enabled && c.AdminAPI.APIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required when admin API is enabled")
	}
	if c.Payout.MinimumAmount <= 0 {
		return fmt.Errorf("PAYOUT_MINIMUM_AMOUNT must be positive")
	}
	if c.Rates.DefaultXPPerUnit <= 0 {
		return fmt.Errorf("RATES_DEFAULT_XP_PER_UNIT must be positive")
	}
	return nil
}

// DSN データベース接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// getEnv 環境変数を取得（デフォルト値付き）
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt 環境変数を整数として取得
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 環境変数を64ビット整数として取得
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool 環境変数を真偽値として取得
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration 環境変数を時間として取得
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice 環境変数をカンマ区切りのスライスとして取得
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// FeeRules 手数料設定から種別ごとのルール一覧を構築する
func (c *FeesConfig) FeeRules() []FeeRuleEntry {
	return []FeeRuleEntry{
		{Kind: "marketplace_sale", Bps: c.MarketplaceSaleBps, MinFee: c.MarketplaceSaleMin},
		{Kind: "payout", Bps: c.PayoutBps, MinFee: c.PayoutMin},
		{Kind: "gift", Bps: c.GiftBps, MinFee: c.GiftMin},
		{Kind: "spend", Bps: c.SpendBps, MinFee: c.SpendMin},
	}
}

// FeeRuleEntry 設定上の手数料ルール1件
type FeeRuleEntry struct {
	Kind   string
	Bps    int64
	MinFee int64
}
