package ledger

import (
	"context"

	domain "custody/internal/domain/ledger"
)

// Service defines the ledger operations exposed to hosts.
type Service interface {
	// Mutating operations
	Deposit(ctx context.Context, caller domain.Address, amount domain.Amount) (domain.Event, error)
	Receive(ctx context.Context, caller domain.Address, amount domain.Amount) (domain.Event, error)
	Withdraw(ctx context.Context, caller domain.Address, amount domain.Amount, to domain.Address) (domain.Event, error)
	RenameBank(ctx context.Context, caller domain.Address, newName string) (domain.Event, error)
	AbsorbInflow(ctx context.Context, amount domain.Amount) error

	// Queries
	BalanceOf(ctx context.Context, account domain.Address) (domain.Amount, error)
	CustodialTotal(ctx context.Context) (domain.Amount, error)
	DepositCount(ctx context.Context) (uint64, error)
	WithdrawCount(ctx context.Context) (uint64, error)
	BankName(ctx context.Context) (string, error)
	Snapshot(ctx context.Context) (domain.State, error)
	Events(ctx context.Context, afterSeq uint64, limit int) ([]domain.Event, error)
}

// Gateway moves value out of custody.
type Gateway interface {
	SendValue(ctx context.Context, to domain.Address, amount domain.Amount) error
}

// BalanceCache is an optional read-through cache for BalanceOf.
type BalanceCache interface {
	GetBalance(ctx context.Context, account domain.Address) (domain.Amount, bool, error)
	SetBalance(ctx context.Context, account domain.Address, amount domain.Amount) error
}
