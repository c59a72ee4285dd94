package cache

import (
	"fmt"
)

type EntityType string

const (
	EntityAccount EntityType = "account"
)

type KeyType string

const (
	KeyBalance KeyType = "balance"
)

// GenerateKey creates a standardized cache key
func GenerateKey(entity EntityType, keyType KeyType, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entity, keyType, value)
}

// BalanceKey is the cache key of one account balance.
func BalanceKey(account string) string {
	return GenerateKey(EntityAccount, KeyBalance, account)
}
