// Package memory is an in-process ledger store. It keeps the whole ledger in
// maps guarded by a single mutex and stages every transaction in a write set
// that is applied only on commit.
package memory

import (
	"context"
	"sync"
	"time"

	"custody/internal/domain/ledger"
	"custody/internal/logger"

	"github.com/google/uuid"
)

type Store struct {
	mu          sync.Mutex
	initialized bool
	state       ledger.State
	balances    map[ledger.Address]ledger.Amount
	events      []ledger.Event

	publisher ledger.EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*Store)

// WithPublisher sets the sink that receives events after each commit.
func WithPublisher(p ledger.EventPublisher) Option {
	return func(s *Store) { s.publisher = p }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		balances: make(map[ledger.Address]ledger.Amount),
		log:      logger.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Init(ctx context.Context, st ledger.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return ledger.ErrAlreadyInitialized
	}
	s.state = st
	s.initialized = true
	return nil
}

func (s *Store) Load(ctx context.Context) (ledger.State, error) {
	// the enclosing top-level frame already holds s.mu
	if f, ok := s.frameOf(ctx); ok {
		return f.State(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ledger.State{}, ledger.ErrNotInitialized
	}
	return s.state, nil
}

type frameKey struct{}

func (s *Store) frameOf(ctx context.Context) (*frame, bool) {
	f, ok := ctx.Value(frameKey{}).(*frame)
	return f, ok && f.store == s
}

func (s *Store) InFrame(ctx context.Context) bool {
	_, ok := s.frameOf(ctx)
	return ok
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	if parent, ok := s.frameOf(ctx); ok {
		child := newFrame(s, parent)
		if err := fn(context.WithValue(ctx, frameKey{}, child), child); err != nil {
			return err
		}
		child.mergeInto(parent)
		return nil
	}

	committed, err := s.runTopLevel(ctx, fn)
	if err != nil {
		return err
	}
	if len(committed) > 0 && s.publisher != nil {
		if pubErr := s.publisher.Publish(ctx, committed); pubErr != nil {
			s.log.Warn("failed to publish committed events", "count", len(committed), "error", pubErr)
		}
	}
	return nil
}

func (s *Store) runTopLevel(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) ([]ledger.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, ledger.ErrNotInitialized
	}

	root := newFrame(s, nil)
	if err := fn(context.WithValue(ctx, frameKey{}, root), root); err != nil {
		return nil, err
	}
	return s.commit(root), nil
}

// commit applies the root frame's write set. Callers hold s.mu.
func (s *Store) commit(root *frame) []ledger.Event {
	for addr, amount := range root.balances {
		if amount == 0 {
			delete(s.balances, addr)
			continue
		}
		s.balances[addr] = amount
	}
	if root.state != nil {
		s.state = *root.state
	}
	committed := make([]ledger.Event, 0, len(root.events))
	for _, e := range root.events {
		e.Seq = uint64(len(s.events)) + 1
		s.events = append(s.events, e)
		committed = append(committed, e)
	}
	return committed
}

func (s *Store) Events(ctx context.Context, afterSeq uint64, limit int) ([]ledger.Event, error) {
	if !s.InFrame(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if afterSeq >= uint64(len(s.events)) {
		return []ledger.Event{}, nil
	}
	out := s.events[afterSeq:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]ledger.Event(nil), out...), nil
}

// Balances returns a copy of every non-zero committed balance. It must not be
// called from inside a transaction.
func (s *Store) Balances() map[ledger.Address]ledger.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[ledger.Address]ledger.Amount, len(s.balances))
	for addr, amount := range s.balances {
		out[addr] = amount
	}
	return out
}

// frame is one staged write set. Reads fall through to the enclosing frame
// and finally to the committed maps.
type frame struct {
	store    *Store
	parent   *frame
	state    *ledger.State
	balances map[ledger.Address]ledger.Amount
	events   []ledger.Event
}

func newFrame(s *Store, parent *frame) *frame {
	return &frame{
		store:    s,
		parent:   parent,
		balances: make(map[ledger.Address]ledger.Amount),
	}
}

func (f *frame) State(ctx context.Context) (ledger.State, error) {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.state != nil {
			return *cur.state, nil
		}
	}
	return f.store.state, nil
}

func (f *frame) SaveState(ctx context.Context, st ledger.State) error {
	f.state = &st
	return nil
}

func (f *frame) Balance(ctx context.Context, account ledger.Address) (ledger.Amount, error) {
	for cur := f; cur != nil; cur = cur.parent {
		if amount, ok := cur.balances[account]; ok {
			return amount, nil
		}
	}
	return f.store.balances[account], nil
}

func (f *frame) SetBalance(ctx context.Context, account ledger.Address, amount ledger.Amount) error {
	f.balances[account] = amount
	return nil
}

func (f *frame) AppendEvent(ctx context.Context, e ledger.Event) (ledger.Event, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = f.store.now().UTC()
	f.events = append(f.events, e)
	return e, nil
}

func (f *frame) mergeInto(parent *frame) {
	for addr, amount := range f.balances {
		parent.balances[addr] = amount
	}
	if f.state != nil {
		parent.state = f.state
	}
	parent.events = append(parent.events, f.events...)
}
