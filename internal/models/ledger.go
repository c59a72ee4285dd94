package models

import (
	"time"
)

// LedgerStateID is the primary key of the single ledger_states row.
const LedgerStateID uint = 1

// LedgerState is the ledger-wide record: configuration fixed at construction
// plus aggregate counters.
type LedgerState struct {
	ID             uint   `gorm:"primarykey"`
	Name           string `gorm:"not null"`
	Owner          string `gorm:"not null"`
	WithdrawCap    uint64 `gorm:"not null"`
	BankCap        uint64 `gorm:"not null"`
	MinDeposit     uint64 `gorm:"not null"`
	TotalDeposited uint64 `gorm:"not null;default:0"`
	DepositCount   uint64 `gorm:"not null;default:0"`
	WithdrawCount  uint64 `gorm:"not null;default:0"`
	Custodied      uint64 `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Account holds one balance. Rows are created on first credit and kept at
// zero afterwards.
type Account struct {
	Address   string `gorm:"primarykey"`
	Balance   uint64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerEvent is one append-only audit record.
type LedgerEvent struct {
	Seq               uint64 `gorm:"primaryKey;autoIncrement"`
	EventID           string `gorm:"uniqueIndex;not null"`
	Type              string `gorm:"index;not null"`
	Account           string `gorm:"index"`
	To                string `gorm:"column:recipient"`
	Amount            uint64
	NewAccountBalance uint64
	NewCustodialTotal uint64
	NewName           string
	CreatedAt         time.Time
}
