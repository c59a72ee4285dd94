package ledger

import "context"

// Tx is one transaction frame against the ledger store. Reads observe every
// write made earlier in the same frame and in its enclosing frames. A Tx must
// not be shared between goroutines.
type Tx interface {
	State(ctx context.Context) (State, error)
	SaveState(ctx context.Context, st State) error
	Balance(ctx context.Context, account Address) (Amount, error)
	SetBalance(ctx context.Context, account Address, amount Amount) error
	// AppendEvent records e in the event log of this frame and returns it
	// with the log-assigned fields filled in.
	AppendEvent(ctx context.Context, e Event) (Event, error)
}

// Store is the logical key→value ledger store.
//
// InTx runs fn as a single all-or-nothing unit: if fn returns an error no
// write made through the Tx is visible afterwards. When ctx already carries a
// frame of the same store (a recipient re-entering the ledger during a
// payout) fn runs as a nested frame of it: a failing nested frame is
// discarded on its own, a successful one becomes part of the enclosing frame.
// Top-level frames are serialized.
//
// Load and Events may be called from inside a frame. Load then sees the
// frame's writes; Events lists committed events only.
type Store interface {
	Init(ctx context.Context, st State) error
	Load(ctx context.Context) (State, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Events(ctx context.Context, afterSeq uint64, limit int) ([]Event, error)
	// InFrame reports whether ctx carries an open frame of this store.
	InFrame(ctx context.Context) bool
}
