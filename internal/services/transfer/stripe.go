package transfer

import (
	"context"
	"fmt"
	"math"

	"custody/internal/domain/ledger"
	"custody/internal/logger"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v72"
	stripetransfer "github.com/stripe/stripe-go/v72/transfer"
)

// StripeTransferer pays out through Stripe Connect transfers. The recipient
// address is the destination connected account ID (acct_...), and amounts
// are in the currency's smallest unit. The payout key carried by the context,
// if any, is sent as the idempotency key.
type StripeTransferer struct {
	client   stripetransfer.Client
	currency string
	log      *logger.Logger
}

// NewStripeTransferer builds a transferer for the given secret key. backend
// may be nil to use Stripe's default API backend.
func NewStripeTransferer(key, currency string, backend stripe.Backend, log *logger.Logger) *StripeTransferer {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &StripeTransferer{
		client:   stripetransfer.Client{B: backend, Key: key},
		currency: currency,
		log:      log,
	}
}

func (s *StripeTransferer) Transfer(ctx context.Context, to ledger.Address, amount ledger.Amount) error {
	if uint64(amount) > math.MaxInt64 {
		return fmt.Errorf("amount %d exceeds stripe range: %w", amount, ledger.ErrAmountOverflow)
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(int64(amount)),
		Currency:    stripe.String(s.currency),
		Destination: stripe.String(string(to)),
	}
	params.Context = ctx
	key, ok := ledger.PayoutKey(ctx)
	if !ok {
		key = uuid.NewString()
	}
	params.SetIdempotencyKey(key)

	tr, err := s.client.New(params)
	if err != nil {
		return fmt.Errorf("stripe transfer failed: %w", err)
	}

	s.log.Info("stripe transfer created", "transfer_id", tr.ID, "destination", to, "amount", amount)
	return nil
}
