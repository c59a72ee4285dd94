package ledger

import "context"

type payoutKeyCtx struct{}

// WithPayoutKey attaches the idempotency key of the outbound payment being
// made. Retrying the same withdrawal yields the same key.
func WithPayoutKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, payoutKeyCtx{}, key)
}

// PayoutKey returns the key set by WithPayoutKey.
func PayoutKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(payoutKeyCtx{}).(string)
	return key, ok && key != ""
}
