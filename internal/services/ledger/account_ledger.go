package ledger

import (
	"context"
	"fmt"

	domain "custody/internal/domain/ledger"
)

// accountLedger owns every balance and aggregate mutation. Each method reads
// and writes through the transaction directly so that a nested frame opened
// by a re-entering recipient sees the latest values.
type accountLedger struct {
	tx domain.Tx
}

func newAccountLedger(tx domain.Tx) *accountLedger {
	return &accountLedger{tx: tx}
}

// Credit adds amount to the account and to the aggregate counters. It returns
// the new account balance and custodial total.
func (l *accountLedger) Credit(ctx context.Context, account domain.Address, amount domain.Amount) (domain.Amount, domain.Amount, error) {
	st, err := l.tx.State(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load ledger state: %w", err)
	}
	balance, err := l.tx.Balance(ctx, account)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load balance: %w", err)
	}

	newBalance, err := balance.Add(amount)
	if err != nil {
		return 0, 0, err
	}
	if st.TotalDeposited, err = st.TotalDeposited.Add(amount); err != nil {
		return 0, 0, err
	}
	if st.Custodied, err = st.Custodied.Add(amount); err != nil {
		return 0, 0, err
	}
	st.DepositCount++

	if err := l.tx.SetBalance(ctx, account, newBalance); err != nil {
		return 0, 0, fmt.Errorf("failed to save balance: %w", err)
	}
	if err := l.tx.SaveState(ctx, st); err != nil {
		return 0, 0, fmt.Errorf("failed to save ledger state: %w", err)
	}
	return newBalance, st.Custodied, nil
}

// Debit removes amount from the account and counts the withdrawal. Custodied
// value is left alone until Release confirms the payout.
func (l *accountLedger) Debit(ctx context.Context, account domain.Address, amount domain.Amount) (domain.Amount, error) {
	balance, err := l.tx.Balance(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to load balance: %w", err)
	}
	if amount > balance {
		return 0, &domain.InsufficientBalanceError{Requested: amount, Available: balance}
	}
	st, err := l.tx.State(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger state: %w", err)
	}

	newBalance := balance - amount
	st.WithdrawCount++

	if err := l.tx.SetBalance(ctx, account, newBalance); err != nil {
		return 0, fmt.Errorf("failed to save balance: %w", err)
	}
	if err := l.tx.SaveState(ctx, st); err != nil {
		return 0, fmt.Errorf("failed to save ledger state: %w", err)
	}
	return newBalance, nil
}

// Release removes paid-out value from the custodial total.
func (l *accountLedger) Release(ctx context.Context, amount domain.Amount) (domain.Amount, error) {
	return l.adjustCustodied(ctx, func(total domain.Amount) (domain.Amount, error) {
		return total.Sub(amount)
	})
}

// Absorb adds value that arrived outside of any deposit.
func (l *accountLedger) Absorb(ctx context.Context, amount domain.Amount) (domain.Amount, error) {
	return l.adjustCustodied(ctx, func(total domain.Amount) (domain.Amount, error) {
		return total.Add(amount)
	})
}

func (l *accountLedger) adjustCustodied(ctx context.Context, fn func(domain.Amount) (domain.Amount, error)) (domain.Amount, error) {
	st, err := l.tx.State(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger state: %w", err)
	}
	if st.Custodied, err = fn(st.Custodied); err != nil {
		return 0, err
	}
	if err := l.tx.SaveState(ctx, st); err != nil {
		return 0, fmt.Errorf("failed to save ledger state: %w", err)
	}
	return st.Custodied, nil
}

func (l *accountLedger) BalanceOf(ctx context.Context, account domain.Address) (domain.Amount, error) {
	return l.tx.Balance(ctx, account)
}
