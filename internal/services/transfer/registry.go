package transfer

import (
	"context"
	"sync"

	"custody/internal/domain/ledger"
)

// Registry is an in-process Transferer. Addresses without a registered
// Receiver accept everything; registered receivers may reject or re-enter the
// ledger. Delivered totals are kept per address.
type Registry struct {
	mu        sync.RWMutex
	receivers map[ledger.Address]Receiver
	received  map[ledger.Address]ledger.Amount
}

func NewRegistry() *Registry {
	return &Registry{
		receivers: make(map[ledger.Address]Receiver),
		received:  make(map[ledger.Address]ledger.Amount),
	}
}

// Register installs the acceptance logic for addr, replacing any previous one.
func (r *Registry) Register(addr ledger.Address, recv Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receivers[addr] = recv
}

func (r *Registry) Transfer(ctx context.Context, to ledger.Address, amount ledger.Amount) error {
	r.mu.RLock()
	recv := r.receivers[to]
	r.mu.RUnlock()

	// called without the lock: the receiver may come back through Transfer
	if recv != nil {
		if err := recv(ctx, amount); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	total, err := r.received[to].Add(amount)
	if err != nil {
		return err
	}
	r.received[to] = total
	return nil
}

// Received returns the total delivered to addr so far.
func (r *Registry) Received(addr ledger.Address) ledger.Amount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.received[addr]
}
