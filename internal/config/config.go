package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port   string
	Env    string
	APIUrl string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimeZone string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Telegram bot
	BotToken            string
	RequiredChannel     string
	AdminIDs            []int64
	WithdrawalLogChatID int64

	// Provider gateway (MTProto sidecar)
	GatewayURL    string
	GatewayAPIKey string

	// Credential artifacts
	SessionsDir      string
	DefaultTwoFactor string
	TwoFactorHint    string

	// Reward confirmation
	ClaimMargin        time.Duration
	MinClaimWait       time.Duration
	CancelPollInterval time.Duration
	LogoutSettle       time.Duration

	// Validation fallback
	ValidationBypass      bool
	StorageErrorThreshold int
	MinArtifactSize       int64
	LenientArtifactSize   int64
	FallbackArtifactSize  int64

	// Withdrawals
	MinWithdrawal float64

	// JWT
	JWTSecret              string
	JWTAccessTokenDuration time.Duration

	// Admin API
	AdminUsername string
	AdminPassword string

	// Security
	BcryptCost        int
	RateLimitRequests int
	RateLimitDuration time.Duration

	// Membership gate
	MembershipCacheTTL time.Duration

	// CORS
	AllowedOrigins []string
}

func New() *Config {
	return &Config{
		// Server
		Port:   getEnv("PORT", "8080"),
		Env:    getEnv("ENV", "development"),
		APIUrl: getEnv("API_URL", "http://localhost:8080"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "receiver"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "receiver_db"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),
		DBTimeZone: getEnv("DB_TIMEZONE", "UTC"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Telegram bot
		BotToken:            getEnv("BOT_TOKEN", ""),
		RequiredChannel:     getEnv("REQUIRED_CHANNEL", "@tgvipreceiver"),
		AdminIDs:            getEnvAsInt64Slice("ADMIN_IDS", nil),
		WithdrawalLogChatID: getEnvAsInt64("WITHDRAWAL_LOG_CHAT_ID", 0),

		// Provider gateway
		GatewayURL:    getEnv("GATEWAY_URL", "http://localhost:9001"),
		GatewayAPIKey: getEnv("GATEWAY_API_KEY", ""),

		// Credential artifacts
		SessionsDir:      getEnv("SESSIONS_DIR", "/data/sessions"),
		DefaultTwoFactor: getEnv("DEFAULT_2FA_PASSWORD", ""),
		TwoFactorHint:    getEnv("TWO_FACTOR_HINT", "auto-set by bot"),

		// Reward confirmation
		ClaimMargin:        getEnvAsDuration("CLAIM_MARGIN", "10s"),
		MinClaimWait:       getEnvAsDuration("MIN_CLAIM_WAIT", "10s"),
		CancelPollInterval: getEnvAsDuration("CANCEL_POLL_INTERVAL", "2s"),
		LogoutSettle:       getEnvAsDuration("LOGOUT_SETTLE", "2s"),

		// Validation fallback
		ValidationBypass:      getEnv("VALIDATION_BYPASS_MODE", "true") == "true",
		StorageErrorThreshold: getEnvAsInt("STORAGE_ERROR_THRESHOLD", 3),
		MinArtifactSize:       getEnvAsInt64("MIN_ARTIFACT_SIZE", 100),
		LenientArtifactSize:   getEnvAsInt64("LENIENT_ARTIFACT_SIZE", 500),
		FallbackArtifactSize:  getEnvAsInt64("FALLBACK_ARTIFACT_SIZE", 1000),

		// Withdrawals
		MinWithdrawal: getEnvAsFloat("MIN_WITHDRAWAL", 1.0),

		// JWT
		JWTSecret:              getEnv("JWT_SECRET", "your-secret-key"),
		JWTAccessTokenDuration: getEnvAsDuration("JWT_ACCESS_TOKEN_DURATION", "1h"),

		// Admin API
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),

		// Security
		BcryptCost:        getEnvAsInt("BCRYPT_COST", 12),
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitDuration: getEnvAsDuration("RATE_LIMIT_DURATION", "1m"),

		// Membership gate
		MembershipCacheTTL: getEnvAsDuration("MEMBERSHIP_CACHE_TTL", "5m"),

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}
}

// IsAdmin reports whether the given Telegram user id is a configured admin.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Hour
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}

func getEnvAsInt64Slice(key string, defaultValue []int64) []int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []int64
	for _, part := range strings.Split(valueStr, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}
