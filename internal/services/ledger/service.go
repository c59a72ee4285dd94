package ledger

import (
	"context"
	"fmt"
	"time"

	domain "custody/internal/domain/ledger"
	"custody/internal/logger"

	"github.com/google/uuid"
)

type service struct {
	store   domain.Store
	gateway Gateway
	cache   BalanceCache
	metrics MetricsCollector
	log     *logger.Logger
}

// Initialize validates cfg and constructs the ledger in store. It fails with
// ErrInvalidCap, ErrZeroAddress or ErrAlreadyInitialized.
func Initialize(ctx context.Context, store domain.Store, cfg domain.Config) (domain.State, error) {
	st, err := domain.NewState(cfg)
	if err != nil {
		return domain.State{}, err
	}
	if err := store.Init(ctx, st); err != nil {
		return domain.State{}, err
	}
	return st, nil
}

// Open loads the configuration of an already constructed ledger. It fails
// with ErrNotInitialized when store holds no ledger yet.
func Open(ctx context.Context, store domain.Store) (domain.State, error) {
	return store.Load(ctx)
}

// NewService creates a new ledger service. cache, metrics and log are optional.
func NewService(
	store domain.Store,
	gateway Gateway,
	cache BalanceCache,
	metrics MetricsCollector,
	log *logger.Logger,
) Service {
	if store == nil {
		panic("store is required")
	}
	if gateway == nil {
		panic("gateway is required")
	}

	// Metrics is optional, create no-op collector if nil
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &service{
		store:   store,
		gateway: gateway,
		cache:   cache,
		metrics: metrics,
		log:     log.With("component", "ledger"),
	}
}

func (s *service) Deposit(ctx context.Context, caller domain.Address, amount domain.Amount) (domain.Event, error) {
	return s.deposit(ctx, OpDeposit, caller, amount)
}

// Receive accepts value sent without an explicit deposit call. It applies
// exactly the same checks as Deposit.
func (s *service) Receive(ctx context.Context, caller domain.Address, amount domain.Amount) (domain.Event, error) {
	return s.deposit(ctx, OpReceive, caller, amount)
}

func (s *service) deposit(ctx context.Context, op string, caller domain.Address, amount domain.Amount) (domain.Event, error) {
	start := time.Now()
	var ev domain.Event

	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		st, err := tx.State(ctx)
		if err != nil {
			return fmt.Errorf("failed to load ledger state: %w", err)
		}
		policy := st.Policy()
		if err := policy.ValidateDeposit(amount); err != nil {
			return err
		}
		// the incoming value is not part of Custodied yet
		prospective, err := st.Custodied.Add(amount)
		if err != nil {
			return err
		}
		if err := policy.ValidateBankCeiling(prospective); err != nil {
			return err
		}

		book := newAccountLedger(tx)
		newBalance, newTotal, err := book.Credit(ctx, caller, amount)
		if err != nil {
			return err
		}

		ev, err = tx.AppendEvent(ctx, domain.Deposited(caller, amount, newBalance, newTotal))
		return err
	})

	s.observe(op, start, amount, ev.NewCustodialTotal, err)
	if err != nil {
		s.logFailure(op, err, "account", caller, "amount", amount)
		return domain.Event{}, err
	}
	s.log.Info("deposit accepted", "op", op, "account", caller, "amount", amount, "balance", ev.NewAccountBalance)
	return ev, nil
}

// Withdraw debits the caller, pays amount out to the recipient and emits
// Withdrawn, strictly in that order.
func (s *service) Withdraw(ctx context.Context, caller domain.Address, amount domain.Amount, to domain.Address) (domain.Event, error) {
	start := time.Now()
	var ev domain.Event

	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		st, err := tx.State(ctx)
		if err != nil {
			return fmt.Errorf("failed to load ledger state: %w", err)
		}
		if err := st.Policy().ValidateWithdrawCap(amount); err != nil {
			return err
		}

		book := newAccountLedger(tx)
		remaining, err := book.Debit(ctx, caller, amount)
		if err != nil {
			return err
		}

		payoutCtx := domain.WithPayoutKey(ctx, payoutKey(st, caller, to, amount, remaining))
		if err := s.gateway.SendValue(payoutCtx, to, amount); err != nil {
			return err
		}

		newTotal, err := book.Release(ctx, amount)
		if err != nil {
			return err
		}
		// re-read: the recipient may have touched the caller's balance
		newBalance, err := book.BalanceOf(ctx, caller)
		if err != nil {
			return fmt.Errorf("failed to load balance: %w", err)
		}

		ev, err = tx.AppendEvent(ctx, domain.Withdrawn(caller, to, amount, newBalance, newTotal))
		return err
	})

	s.observe(OpWithdraw, start, amount, ev.NewCustodialTotal, err)
	if err != nil {
		s.logFailure(OpWithdraw, err, "account", caller, "to", to, "amount", amount)
		return domain.Event{}, err
	}
	s.log.Info("withdrawal paid out", "account", caller, "to", to, "amount", amount, "balance", ev.NewAccountBalance)
	return ev, nil
}

func (s *service) RenameBank(ctx context.Context, caller domain.Address, newName string) (domain.Event, error) {
	start := time.Now()
	var ev domain.Event

	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		st, err := tx.State(ctx)
		if err != nil {
			return fmt.Errorf("failed to load ledger state: %w", err)
		}
		if err := (accessControl{owner: st.Owner}).RequireOwner(caller); err != nil {
			return err
		}

		st.Name = newName
		if err := tx.SaveState(ctx, st); err != nil {
			return fmt.Errorf("failed to save ledger state: %w", err)
		}

		ev, err = tx.AppendEvent(ctx, domain.Renamed(newName))
		return err
	})

	s.observe(OpRename, start, 0, 0, err)
	if err != nil {
		s.logFailure(OpRename, err, "caller", caller)
		return domain.Event{}, err
	}
	s.log.Info("ledger renamed", "name", newName)
	return ev, nil
}

// AbsorbInflow records value that reached custody without a deposit. No
// account is credited and no cap is checked.
func (s *service) AbsorbInflow(ctx context.Context, amount domain.Amount) error {
	start := time.Now()
	var total domain.Amount

	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		total, err = newAccountLedger(tx).Absorb(ctx, amount)
		return err
	})

	s.observe(OpAbsorb, start, amount, total, err)
	if err != nil {
		s.logFailure(OpAbsorb, err, "amount", amount)
		return err
	}
	s.log.Warn("untracked inflow absorbed", "amount", amount, "custodied", total)
	return nil
}

func (s *service) BalanceOf(ctx context.Context, account domain.Address) (domain.Amount, error) {
	// inside a frame the balance may still be rolled back
	useCache := s.cache != nil && !s.store.InFrame(ctx)
	if useCache {
		if amount, found, err := s.cache.GetBalance(ctx, account); err == nil && found {
			return amount, nil
		} else if err != nil {
			s.log.Warn("balance cache read failed", "account", account, "error", err)
		}
	}

	var balance domain.Amount
	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		balance, err = newAccountLedger(tx).BalanceOf(ctx, account)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	if useCache {
		if err := s.cache.SetBalance(ctx, account, balance); err != nil {
			s.log.Warn("balance cache write failed", "account", account, "error", err)
		}
	}
	return balance, nil
}

func (s *service) CustodialTotal(ctx context.Context) (domain.Amount, error) {
	st, err := s.Snapshot(ctx)
	return st.Custodied, err
}

func (s *service) DepositCount(ctx context.Context) (uint64, error) {
	st, err := s.Snapshot(ctx)
	return st.DepositCount, err
}

func (s *service) WithdrawCount(ctx context.Context) (uint64, error) {
	st, err := s.Snapshot(ctx)
	return st.WithdrawCount, err
}

func (s *service) BankName(ctx context.Context) (string, error) {
	st, err := s.Snapshot(ctx)
	return st.Name, err
}

// Snapshot returns every ledger-wide field from one consistent read.
func (s *service) Snapshot(ctx context.Context) (domain.State, error) {
	var st domain.State
	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		st, err = tx.State(ctx)
		return err
	})
	if err != nil {
		return domain.State{}, fmt.Errorf("failed to get ledger state: %w", err)
	}
	return st, nil
}

func (s *service) Events(ctx context.Context, afterSeq uint64, limit int) ([]domain.Event, error) {
	events, err := s.store.Events(ctx, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}

// Helper methods

// payoutKey names one withdrawal attempt. st is the state read before the
// debit, so a rolled-back attempt retried against the same state gets the
// same key while every committed withdrawal moves WithdrawCount on.
func payoutKey(st domain.State, caller, to domain.Address, amount, remaining domain.Amount) string {
	name := fmt.Sprintf("%s|%s|%s|%d|%d|%d", st.Owner, caller, to, amount, remaining, st.WithdrawCount)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (s *service) observe(op string, start time.Time, amount, total domain.Amount, err error) {
	s.metrics.RecordOperationDuration(op, time.Since(start))
	switch {
	case err == nil:
		s.metrics.RecordOperationResult(op, ResultSuccess)
		s.metrics.RecordTransaction(op, uint64(amount))
		if op != OpRename {
			s.metrics.RecordCustodialTotal(uint64(total))
		}
	case domain.IsRejection(err):
		s.metrics.RecordOperationResult(op, ResultRejected)
		s.metrics.RecordError(op, domain.ErrorKind(err))
	default:
		s.metrics.RecordOperationResult(op, ResultError)
		s.metrics.RecordError(op, domain.ErrorKind(err))
	}
}

func (s *service) logFailure(op string, err error, keysAndValues ...interface{}) {
	kv := append([]interface{}{"op", op, "error", err}, keysAndValues...)
	if domain.IsRejection(err) {
		s.log.Debug("operation rejected", kv...)
		return
	}
	s.log.Error("operation failed", kv...)
}
