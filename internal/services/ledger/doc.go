/*
Package ledger provides the custodial ledger service.

The service handles every ledger operation:
- Deposits (explicit and bare value arrival) credited to the caller's balance
- Withdrawals capped per request and paid out through a transfer gateway
- Renaming the ledger, restricted to the owner fixed at construction
- Read-only queries over balances, counters and the event history

Usage:

	// Construct the ledger once
	err := ledger.Initialize(ctx, store, domain.Config{
	    Name:        "Custody Bank",
	    Owner:       "0xowner",
	    WithdrawCap: 250_000,
	    BankCap:     10_000_000,
	})

	// Create the service
	svc := ledger.NewService(store, gateway, balanceCache, metrics, log)

	// Deposit and withdraw
	ev, err := svc.Deposit(ctx, caller, 1_000)
	ev, err = svc.Withdraw(ctx, caller, 500, recipient)

Ordering:

Every mutating operation runs inside one store transaction and follows
validate → debit → transfer → emit. The debit is written to the transaction
before the gateway is called, so a recipient re-entering Withdraw with the
context it received observes the reduced balance.

Error Handling:

Rejections are typed errors from the domain package:
- InsufficientAmountError: deposit below the minimum
- BankCapExceededError: deposit would push custodied value above the bank cap
- WithdrawCapExceededError: withdrawal above the per-request cap
- InsufficientBalanceError: withdrawal above the caller's balance
- ErrZeroAddress, TransferFailedError: payout could not be delivered
- ErrUnauthorized: rename by anyone but the owner

Any error aborts the whole transaction; nothing is partially applied.

Metrics:

The service reports operation durations, results, error kinds and the
custodial total through MetricsCollector.
*/
package ledger
