package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the trading core.
type Config struct {
	Port string

	// Solana RPC
	RPCHTTPURL        string
	RPCWSSURL         string
	RPCRequestsPerSec float64

	// Execution
	SimMode          bool
	DefaultPayer     string
	WatchAccounts    []string // extra accounts the wallet tracker follows
	DefaultTradeSol  float64 // SOL spent per swap when an order carries no amount
	SimStartingSol   float64
	ConfirmMaxTries  int
	ExecutionEnabled bool

	// Mock market feed
	UseMockFeed      bool
	MockFeedStepPct  float64
	MockFeedInterval int      // seconds
	MockTokens       []string // token mints seeded with synthetic pools in sim mode

	// Strategy bootstrap
	StrategySettingsPath string

	// Database
	DBPath string

	// Auth
	JWTSecret string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	// Database path: prefer DB_PATH, then DATABASE_PATH for backward compatibility.
	dbPath := getEnv("DB_PATH", "")
	if dbPath == "" {
		dbPath = getEnv("DATABASE_PATH", "./data/soltrader.db")
	}

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		RPCHTTPURL:           getEnv("RPC_HTTP_URL", "https://api.mainnet-beta.solana.com"),
		RPCWSSURL:            getEnv("RPC_WSS_URL", "wss://api.mainnet-beta.solana.com"),
		RPCRequestsPerSec:    getEnvFloat("RPC_REQUESTS_PER_SEC", 10),
		SimMode:              getEnv("SIM_MODE", "true") == "true",
		DefaultPayer:         getEnv("DEFAULT_PAYER", "sim-wallet"),
		WatchAccounts:        splitAndTrim(getEnv("WATCH_ACCOUNTS", "")),
		DefaultTradeSol:      getEnvFloat("DEFAULT_TRADE_SOL", 0.0001),
		SimStartingSol:       getEnvFloat("SIM_STARTING_SOL", 10),
		ConfirmMaxTries:      getEnvInt("CONFIRM_MAX_TRIES", 30),
		ExecutionEnabled:     getEnv("EXECUTION_ENABLED", "true") == "true",
		UseMockFeed:          getEnv("USE_MOCK_FEED", "true") == "true",
		MockFeedStepPct:      getEnvFloat("MOCK_FEED_STEP_PCT", 0.02),
		MockFeedInterval:     getEnvInt("MOCK_FEED_INTERVAL_SEC", 1),
		MockTokens:           splitAndTrim(getEnv("MOCK_TOKENS", "DemoMint1111111111111111111111111111111111")),
		StrategySettingsPath: getEnv("STRATEGY_SETTINGS_PATH", ""),
		DBPath:               dbPath,
		JWTSecret:            getEnv("JWT_SECRET", "dev-secret"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// splitAndTrim parses a comma-separated env value into its non-empty parts.
func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
