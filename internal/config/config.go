package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	// Timezone used for calendar-window math (daily/weekly/... sums,
	// streak day comparison). All stored timestamps are UTC.
	Timezone string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Payment lifecycle knobs. PollInterval is clamped to MinPollInterval
	// at use sites to respect provider rate limits.
	PollInterval   time.Duration
	PaymentTimeout time.Duration
	RequestTimeout time.Duration

	CacheTTL       time.Duration
	LeaderboardTTL time.Duration

	TSV   TSVConfig
	Sepay SepayConfig

	// Reward bridge endpoint owned by the host environment. Empty means
	// rewards are only logged.
	RewardBridgeURL string

	MilestonesFile string
	StreaksFile    string
}

// TSVConfig carries card provider credentials.
type TSVConfig struct {
	Endpoint   string
	PartnerID  string
	PartnerKey string
}

// SepayConfig carries bank transfer provider settings.
type SepayConfig struct {
	Endpoint      string
	APIToken      string
	AccountNumber string
	BankBIN       string
	BankName      string
	WebhookAPIKey string
	RefPrefix     string

	// AmountPolicy decides what happens when a webhook amount disagrees
	// with the pending payment: "lenient" logs and credits anyway (the
	// reference-code match is authoritative), "strict" drops the webhook.
	AmountPolicy string
}

const (
	AmountPolicyLenient = "lenient"
	AmountPolicyStrict  = "strict"

	// MinPollInterval is the floor for provider polling; providers rate
	// limit status checks.
	MinPollInterval = 3 * time.Second
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "simppay"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		Timezone:    getenv("TIMEZONE", "Asia/Ho_Chi_Minh"),

		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "simppay"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       int(getenvInt64("REDIS_DB", 0)),

		PollInterval:   getenvDuration("POLL_INTERVAL", 5*time.Second),
		PaymentTimeout: getenvDuration("PAYMENT_TIMEOUT", 30*time.Minute),
		RequestTimeout: getenvDuration("REQUEST_TIMEOUT", 10*time.Second),

		CacheTTL:       getenvDuration("CACHE_TTL", 5*time.Minute),
		LeaderboardTTL: getenvDuration("LEADERBOARD_TTL", 60*time.Second),

		TSV: TSVConfig{
			Endpoint:   getenv("TSV_ENDPOINT", "https://thesieuviet.net/chargingws/v2"),
			PartnerID:  strings.TrimSpace(getenv("TSV_PARTNER_ID", "")),
			PartnerKey: strings.TrimSpace(getenv("TSV_PARTNER_KEY", "")),
		},
		Sepay: SepayConfig{
			Endpoint:      getenv("SEPAY_ENDPOINT", "https://my.sepay.vn/userapi"),
			APIToken:      strings.TrimSpace(getenv("SEPAY_API_TOKEN", "")),
			AccountNumber: strings.TrimSpace(getenv("SEPAY_ACCOUNT_NUMBER", "")),
			BankBIN:       getenv("SEPAY_BANK_BIN", "970436"),
			BankName:      getenv("SEPAY_BANK_NAME", "Vietcombank"),
			WebhookAPIKey: strings.TrimSpace(getenv("SEPAY_WEBHOOK_API_KEY", "")),
			RefPrefix:     getenv("SEPAY_REF_PREFIX", "SP"),
			AmountPolicy:  normalizeAmountPolicy(getenv("SEPAY_AMOUNT_POLICY", AmountPolicyLenient)),
		},

		RewardBridgeURL: strings.TrimSpace(getenv("REWARD_BRIDGE_URL", "")),

		MilestonesFile: getenv("MILESTONES_FILE", "configs/milestones.yaml"),
		StreaksFile:    getenv("STREAKS_FILE", "configs/streaks.yaml"),
	}

	if cfg.PollInterval < MinPollInterval {
		cfg.PollInterval = MinPollInterval
	}

	return cfg
}

// Location resolves the configured timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func normalizeAmountPolicy(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case AmountPolicyStrict:
		return AmountPolicyStrict
	default:
		return AmountPolicyLenient
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
