package repositories

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"custody/internal/config"
	"custody/internal/domain/ledger"
	ledgerservice "custody/internal/services/ledger"
	"custody/internal/services/transfer"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	batches [][]ledger.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, events []ledger.Event) error {
	p.batches = append(p.batches, events)
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Connect(config.Config{
		StoreDriver: "sqlite",
		SQLitePath:  "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func newTestRepository(t *testing.T, opts ...LedgerOption) *LedgerRepository {
	t.Helper()
	repo := NewLedgerRepository(setupTestDB(t), opts...)
	st, err := ledger.NewState(ledger.Config{Name: "Test", Owner: "owner", WithdrawCap: 100, BankCap: 1000})
	require.NoError(t, err)
	require.NoError(t, repo.Init(context.Background(), st))
	return repo
}

func TestLedgerRepository_Init(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(setupTestDB(t))

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)
	err = repo.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error { return nil })
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)

	err = repo.Init(ctx, ledger.State{Owner: "owner", WithdrawCap: 1, BankCap: math.MaxUint64})
	assert.ErrorIs(t, err, ledger.ErrInvalidCap)

	st, err := ledger.NewState(ledger.Config{Name: "Test", Owner: "owner", WithdrawCap: 5, BankCap: 50})
	require.NoError(t, err)
	require.NoError(t, repo.Init(ctx, st))
	assert.ErrorIs(t, repo.Init(ctx, st), ledger.ErrAlreadyInitialized)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, st, loaded)
}

func TestLedgerRepository_CommitAndRollback(t *testing.T) {
	pub := &recordingPublisher{}
	repo := newTestRepository(t, WithEventPublisher(pub))
	ctx := context.Background()

	err := repo.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		require.NoError(t, tx.SetBalance(ctx, "alice", 10))
		require.NoError(t, tx.SetBalance(ctx, "alice", 20))
		bal, err := tx.Balance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, ledger.Amount(20), bal)
		_, err = tx.AppendEvent(ctx, ledger.Deposited("alice", 20, 20, 20))
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		require.NoError(t, tx.SetBalance(ctx, "alice", 99))
		st, err := tx.State(ctx)
		require.NoError(t, err)
		st.Name = "changed"
		require.NoError(t, tx.SaveState(ctx, st))
		_, _ = tx.AppendEvent(ctx, ledger.Renamed("changed"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = repo.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		bal, err := tx.Balance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, ledger.Amount(20), bal)
		return nil
	})
	require.NoError(t, err)

	st, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Test", st.Name)

	events, err := repo.Events(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ledger.EventDeposited, events[0].Type)
	assert.Equal(t, ledger.Amount(20), events[0].NewAccountBalance)

	require.Len(t, pub.batches, 1)
	assert.Equal(t, events[0].ID, pub.batches[0][0].ID)
	assert.Equal(t, events[0].Seq, pub.batches[0][0].Seq)
}

func TestLedgerRepository_NestedSavepoints(t *testing.T) {
	pub := &recordingPublisher{}
	repo := newTestRepository(t, WithEventPublisher(pub))
	ctx := context.Background()

	err := repo.InTx(ctx, func(ctx context.Context, outer ledger.Tx) error {
		require.NoError(t, outer.SetBalance(ctx, "alice", 50))

		nestedErr := repo.InTx(ctx, func(ctx context.Context, inner ledger.Tx) error {
			bal, err := inner.Balance(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, ledger.Amount(50), bal)
			require.NoError(t, inner.SetBalance(ctx, "alice", 0))
			_, _ = inner.AppendEvent(ctx, ledger.Renamed("discarded"))
			return errors.New("nested failure")
		})
		require.Error(t, nestedErr)

		bal, err := outer.Balance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, ledger.Amount(50), bal)

		err = repo.InTx(ctx, func(ctx context.Context, inner ledger.Tx) error {
			require.NoError(t, inner.SetBalance(ctx, "bob", 7))
			_, err := inner.AppendEvent(ctx, ledger.Renamed("inner"))
			return err
		})
		require.NoError(t, err)

		_, err = outer.AppendEvent(ctx, ledger.Renamed("outer"))
		return err
	})
	require.NoError(t, err)

	total, err := repo.TotalBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(57), total)

	events, err := repo.Events(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "inner", events[0].NewName)
	assert.Equal(t, "outer", events[1].NewName)
	assert.Less(t, events[0].Seq, events[1].Seq)

	require.Len(t, pub.batches, 1)
	require.Len(t, pub.batches[0], 2)
	assert.Equal(t, "inner", pub.batches[0][0].NewName)
}

func TestLedgerRepository_EventsPaging(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.InTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			_, err := tx.AppendEvent(ctx, ledger.Renamed("n"))
			return err
		}))
	}

	all, err := repo.Events(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	page, err := repo.Events(ctx, all[1].Seq, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, all[2].Seq, page[0].Seq)
	assert.Equal(t, all[3].Seq, page[1].Seq)

	page, err = repo.Events(ctx, all[4].Seq, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

// The service runs unchanged on the gorm store, including a recipient that
// re-enters the ledger while being paid.
func TestLedgerRepository_ServiceIntegration(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(setupTestDB(t))
	_, err := ledgerservice.Initialize(ctx, repo, ledger.Config{
		Name: "SQL Bank", Owner: "owner", WithdrawCap: 100, BankCap: 1000,
	})
	require.NoError(t, err)

	registry := transfer.NewRegistry()
	svc := ledgerservice.NewService(repo, transfer.NewGateway(registry, nil), nil, nil, nil)

	_, err = svc.Deposit(ctx, "alice", 300)
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, "bob", 800)
	assert.ErrorIs(t, err, ledger.ErrBankCapExceeded)

	// alice's payout address deposits what it receives straight back
	registry.Register("alice-wallet", func(ctx context.Context, amount ledger.Amount) error {
		_, err := svc.Deposit(ctx, "alice", amount)
		return err
	})
	ev, err := svc.Withdraw(ctx, "alice", 100, "alice-wallet")
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(300), ev.NewAccountBalance)
	assert.Equal(t, ledger.Amount(300), ev.NewCustodialTotal)

	registry.Register("broken", func(ctx context.Context, amount ledger.Amount) error {
		return errors.New("rejects value")
	})
	_, err = svc.Withdraw(ctx, "alice", 50, "broken")
	assert.ErrorIs(t, err, ledger.ErrTransferFailed)

	st, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(300), st.Custodied)
	assert.Equal(t, ledger.Amount(400), st.TotalDeposited)
	assert.Equal(t, uint64(2), st.DepositCount)
	assert.Equal(t, uint64(1), st.WithdrawCount)

	bal, err := svc.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(300), bal)

	total, err := repo.TotalBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.Custodied, total)

	events, err := svc.Events(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, ledger.EventDeposited, events[0].Type)
	assert.Equal(t, ledger.EventDeposited, events[1].Type)
	assert.Equal(t, ledger.EventWithdrawn, events[2].Type)
}

func TestLedgerRepository_ReadsInsideFrame(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(setupTestDB(t))
	_, err := ledgerservice.Initialize(ctx, repo, ledger.Config{
		Name: "SQL Bank", Owner: "owner", WithdrawCap: 100, BankCap: 1000,
	})
	require.NoError(t, err)

	registry := transfer.NewRegistry()
	svc := ledgerservice.NewService(repo, transfer.NewGateway(registry, nil), nil, nil, nil)
	_, err = svc.Deposit(ctx, "alice", 100)
	require.NoError(t, err)

	assert.False(t, repo.InFrame(ctx))

	var (
		inFrame bool
		events  []ledger.Event
		loaded  ledger.State
		total   ledger.Amount
	)
	registry.Register("bob", func(ctx context.Context, amount ledger.Amount) error {
		inFrame = repo.InFrame(ctx)
		// the recipient's own deposit is not committed yet and stays out of Events
		if _, err := svc.Deposit(ctx, "bob", 5); err != nil {
			return err
		}
		var err error
		if events, err = svc.Events(ctx, 0, 0); err != nil {
			return err
		}
		if loaded, err = repo.Load(ctx); err != nil {
			return err
		}
		total, err = repo.TotalBalances(ctx)
		return err
	})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Withdraw(ctx, "alice", 40, "bob")
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("withdrawal did not finish while the recipient read the ledger")
	}

	assert.True(t, inFrame)
	require.Len(t, events, 1)
	assert.Equal(t, ledger.EventDeposited, events[0].Type)
	assert.Equal(t, ledger.Amount(100), events[0].Amount)
	assert.Equal(t, uint64(1), loaded.WithdrawCount)
	assert.Equal(t, uint64(2), loaded.DepositCount)
	assert.Equal(t, ledger.Amount(65), total)

	all, err := svc.Events(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDropAllTables(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	st, err := ledger.NewState(ledger.Config{Owner: "owner", WithdrawCap: 5, BankCap: 50})
	require.NoError(t, err)
	require.NoError(t, repo.Init(ctx, st))

	require.NoError(t, DropAllTables(db))
	_, err = repo.Load(ctx)
	assert.Error(t, err)

	require.NoError(t, Migrate(db))
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)
}
