package transfer

import (
	"context"

	"custody/internal/domain/ledger"
)

// Transferer delivers value to an external recipient. A nil error means the
// recipient accepted the value.
type Transferer interface {
	Transfer(ctx context.Context, to ledger.Address, amount ledger.Amount) error
}

// Receiver is the acceptance logic of an in-process recipient. It receives the
// caller's context unchanged and may call back into the ledger with it.
type Receiver func(ctx context.Context, amount ledger.Amount) error
