package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	PermissionLedgerRead  = "ledger:read"
	PermissionLedgerWrite = "ledger:write"
)

// LedgerClaims identifies the caller of a ledger request. The JWT subject is
// the caller's account address.
type LedgerClaims struct {
	jwt.RegisteredClaims
	Permissions []string `json:"permissions"`
}

// HasPermission checks if the claims include a specific permission
func (c *LedgerClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns the permissions granted to every account
func GetDefaultPermissions() []string {
	return []string{PermissionLedgerRead, PermissionLedgerWrite}
}
