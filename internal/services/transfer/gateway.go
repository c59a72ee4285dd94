package transfer

import (
	"context"

	"custody/internal/domain/ledger"
	"custody/internal/logger"
)

// Gateway is the single exit point for value leaving custody.
type Gateway struct {
	transferer Transferer
	log        *logger.Logger
}

// NewGateway creates a gateway delivering through t.
func NewGateway(t Transferer, log *logger.Logger) *Gateway {
	if t == nil {
		panic("transferer is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Gateway{transferer: t, log: log.With("component", "transfer_gateway")}
}

// SendValue hands amount to the transferer. The gateway does not undo any
// ledger state on failure; the caller's transaction is expected to abort on
// the returned error. The full request context is forwarded so the recipient
// is not limited by the gateway.
func (g *Gateway) SendValue(ctx context.Context, to ledger.Address, amount ledger.Amount) error {
	if to.IsZero() {
		return ledger.ErrZeroAddress
	}
	if err := g.transferer.Transfer(ctx, to, amount); err != nil {
		g.log.Warn("outbound transfer failed", "to", to, "amount", amount, "error", err)
		return &ledger.TransferFailedError{To: to, Amount: amount, Err: err}
	}
	g.log.Debug("outbound transfer delivered", "to", to, "amount", amount)
	return nil
}
