// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура конфигурации приложения
type Config struct {
	// Exchange API
	BaseURL        string
	UseTestnet     bool
	TestnetBaseURL string
	Category       string // "spot", "linear", "inverse"

	// Наблюдаемые символы
	Symbols         []string
	OrderbookDepth  int
	TradesLimit     int
	CandleLimit1h   int
	CandleLimit15m  int
	CandleLimit1d   int
	LargeTradeQuote float64

	// OpenAI
	OpenAIApiKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAITimeout time.Duration

	// Scheduler
	SnapshotInterval time.Duration
	AnalysisInterval time.Duration
	InstrumentSyncAt string // "HH:MM" UTC

	// Backfill
	BackfillEnabled      bool
	BackfillLookbackDays int
	BackfillPageLimit    int

	// Ingestion feed (WebSocket)
	FeedEnabled   bool
	FeedPublicURL string

	// Logging
	LogLevel string
	LogFile  string
	Debug    bool

	// HTTP Server
	HttpPort    string
	HttpEnabled bool
	CorsOrigins []string

	// Performance
	RequestTimeout time.Duration

	// Вложенные конфигурации
	Database DatabaseConfig
	Redis    RedisConfig
}

// DatabaseConfig конфигурация PostgreSQL
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig конфигурация Redis
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SnapshotTTL  time.Duration
}

// LoadConfig загружает конфигурацию из .env файла
func LoadConfig(envPath string) (*Config, error) {
	// Загружаем .env файл
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
	}

	useTestnet := getEnvBool("USE_TESTNET", false)

	baseURL := getEnvString("BYBIT_API_URL", "https://api.bybit.com")
	testnetBaseURL := getEnvString("BYBIT_API_TEST_URL", "https://api-testnet.bybit.com")
	if useTestnet {
		baseURL = testnetBaseURL
	}

	config := &Config{
		// Exchange
		BaseURL:        baseURL,
		UseTestnet:     useTestnet,
		TestnetBaseURL: testnetBaseURL,
		Category:       getEnvString("MARKET_CATEGORY", "spot"),

		// Symbols
		Symbols:         parseSymbols(getEnvString("SYMBOLS", "BTCUSDT,ETHUSDT,SOLUSDT")),
		OrderbookDepth:  getEnvInt("ORDERBOOK_DEPTH", 50),
		TradesLimit:     getEnvInt("TRADES_LIMIT", 300),
		CandleLimit1h:   getEnvInt("CANDLE_LIMIT_1H", 200),
		CandleLimit15m:  getEnvInt("CANDLE_LIMIT_15M", 200),
		CandleLimit1d:   getEnvInt("CANDLE_LIMIT_1D", 90),
		LargeTradeQuote: getEnvFloat("LARGE_TRADE_QUOTE", 50000),

		// OpenAI
		OpenAIApiKey:  getEnvString("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnvString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnvString("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout: time.Duration(getEnvInt("OPENAI_TIMEOUT", 60)) * time.Second,

		// Scheduler
		SnapshotInterval: time.Duration(getEnvInt("SNAPSHOT_INTERVAL_MIN", 60)) * time.Minute,
		AnalysisInterval: time.Duration(getEnvInt("ANALYSIS_INTERVAL_MIN", 240)) * time.Minute,
		InstrumentSyncAt: getEnvString("INSTRUMENT_SYNC_AT", "03:00"),

		// Backfill
		BackfillEnabled:      getEnvBool("BACKFILL_ENABLED", false),
		BackfillLookbackDays: getEnvInt("BACKFILL_LOOKBACK_DAYS", 120),
		BackfillPageLimit:    getEnvInt("BACKFILL_PAGE_LIMIT", 1000),

		// Ingestion feed
		FeedEnabled:   getEnvBool("FEED_ENABLED", true),
		FeedPublicURL: getEnvString("FEED_PUBLIC_URL", "wss://stream.bybit.com/v5/public/spot"),

		// Logging
		LogLevel: getEnvString("LOG_LEVEL", "info"),
		LogFile:  getEnvString("LOG_FILE", "logs/advisor.log"),
		Debug:    getEnvBool("DEBUG", false),

		// HTTP Server
		HttpPort:    getEnvString("HTTP_PORT", "8080"),
		HttpEnabled: getEnvBool("HTTP_ENABLED", true),
		CorsOrigins: strings.Split(getEnvString("CORS_ORIGINS", "*"), ","),

		// Performance
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT", 30)) * time.Second,

		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnvString("DB_USER", "advisor"),
			Password:        getEnvString("DB_PASSWORD", ""),
			Name:            getEnvString("DB_NAME", "market_advisor"),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxConnLifetime: time.Duration(getEnvInt("DB_CONN_LIFETIME_MIN", 30)) * time.Minute,
			MaxConnIdleTime: time.Duration(getEnvInt("DB_CONN_IDLE_MIN", 5)) * time.Minute,
		},

		Redis: RedisConfig{
			Host:         getEnvString("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  time.Duration(getEnvInt("REDIS_DIAL_TIMEOUT", 5)) * time.Second,
			ReadTimeout:  time.Duration(getEnvInt("REDIS_READ_TIMEOUT", 3)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("REDIS_WRITE_TIMEOUT", 3)) * time.Second,
			SnapshotTTL:  time.Duration(getEnvInt("REDIS_SNAPSHOT_TTL_MIN", 120)) * time.Minute,
		},
	}

	return config, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}

	if c.OrderbookDepth < 1 || c.OrderbookDepth > 500 {
		return fmt.Errorf("orderbook depth must be between 1 and 500")
	}

	if c.SnapshotInterval < time.Minute {
		return fmt.Errorf("snapshot interval must be at least 1 minute")
	}

	if c.RequestTimeout < time.Second {
		return fmt.Errorf("request timeout must be at least 1 second")
	}

	if _, _, err := parseDailyAt(c.InstrumentSyncAt); err != nil {
		return fmt.Errorf("invalid INSTRUMENT_SYNC_AT: %w", err)
	}

	return nil
}

// InstrumentSyncTime возвращает час и минуту ежедневной синхронизации (UTC)
func (c *Config) InstrumentSyncTime() (hour, minute int) {
	hour, minute, _ = parseDailyAt(c.InstrumentSyncAt)
	return hour, minute
}

func parseDailyAt(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute %q", parts[1])
	}

	return hour, minute, nil
}

func parseSymbols(symbolsStr string) []string {
	parts := strings.Split(symbolsStr, ",")
	symbols := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.ToUpper(strings.TrimSpace(part))
		if trimmed != "" {
			symbols = append(symbols, trimmed)
		}
	}

	return symbols
}

// Вспомогательные функции для парсинга переменных окружения
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
