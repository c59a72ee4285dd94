package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every setting the server and the init command read from the
// environment.
type Config struct {
	Env  string
	Port string

	LedgerName  string
	LedgerOwner string
	WithdrawCap uint64
	BankCap     uint64
	MinDeposit  uint64

	StoreDriver string // memory, postgres or sqlite
	SQLitePath  string
	DB          DBConfig

	RedisEnabled    bool
	Redis           RedisConfig
	EventStream     string
	BalanceCacheTTL time.Duration

	JWTSecret string

	PayoutDriver   string // local or stripe
	StripeKey      string
	StripeCurrency string
}

// DBConfig holds the postgres connection and pool settings.
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the full configuration from the environment.
func Load() Config {
	return Config{
		Env:  GetEnv("ENV", "development"),
		Port: GetEnv("PORT", "3000"),

		LedgerName:  GetEnv("LEDGER_NAME", "Custody Bank"),
		LedgerOwner: GetEnv("LEDGER_OWNER", ""),
		WithdrawCap: GetUint64Env("WITHDRAW_CAP", 250_000),
		BankCap:     GetUint64Env("BANK_CAP", 10_000_000),
		MinDeposit:  GetUint64Env("MIN_DEPOSIT", 1),

		StoreDriver: strings.ToLower(GetEnv("STORE_DRIVER", "memory")),
		SQLitePath:  GetEnv("SQLITE_PATH", "custody.db"),
		DB: DBConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "custody"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},

		RedisEnabled: GetBoolEnv("REDIS_ENABLED", false),
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		EventStream:     GetEnv("EVENT_STREAM", "ledger:events"),
		BalanceCacheTTL: GetDurationEnv("BALANCE_CACHE_TTL", 30*time.Second),

		JWTSecret: GetEnv("JWT_SECRET", "custody"),

		PayoutDriver:   strings.ToLower(GetEnv("PAYOUT_DRIVER", "local")),
		StripeKey:      GetEnv("STRIPE_SECRET_KEY", ""),
		StripeCurrency: GetEnv("STRIPE_CURRENCY", "usd"),
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetUint64Env accepts plain digits and "_" separators, e.g. 10_000_000.
func GetUint64Env(key string, defaultVal uint64) uint64 {
	if val, ok := os.LookupEnv(key); ok {
		if u, err := strconv.ParseUint(strings.ReplaceAll(val, "_", ""), 10, 64); err == nil {
			return u
		}
	}
	return defaultVal
}

func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
