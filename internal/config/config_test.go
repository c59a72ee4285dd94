package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, uint64(250_000), cfg.WithdrawCap)
	assert.Equal(t, uint64(10_000_000), cfg.BankCap)
	assert.Equal(t, uint64(1), cfg.MinDeposit)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "local", cfg.PayoutDriver)
	assert.False(t, cfg.RedisEnabled)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("WITHDRAW_CAP", "1_000")
	t.Setenv("BANK_CAP", "50000")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("BALANCE_CACHE_TTL", "2m")
	t.Setenv("ENV", "production")

	cfg := Load()

	assert.Equal(t, uint64(1000), cfg.WithdrawCap)
	assert.Equal(t, uint64(50000), cfg.BankCap)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, 2*time.Minute, cfg.BalanceCacheTTL)
	assert.True(t, cfg.IsProduction())
}

func TestGetUint64Env_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_CAP", "-5")
	assert.Equal(t, uint64(7), GetUint64Env("SOME_CAP", 7))
}
