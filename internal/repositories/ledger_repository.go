package repositories

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"custody/internal/domain/ledger"
	"custody/internal/logger"
	"custody/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository is the gorm-backed ledger store. Every top-level
// transaction locks the ledger_states row, which serializes writers; nested
// frames run inside SAVEPOINTs.
type LedgerRepository struct {
	db        *gorm.DB
	publisher ledger.EventPublisher
	log       *logger.Logger
}

type LedgerOption func(*LedgerRepository)

// WithEventPublisher sets the sink that receives events after each commit.
func WithEventPublisher(p ledger.EventPublisher) LedgerOption {
	return func(r *LedgerRepository) { r.publisher = p }
}

func WithLogger(l *logger.Logger) LedgerOption {
	return func(r *LedgerRepository) { r.log = l }
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB, opts ...LedgerOption) *LedgerRepository {
	r := &LedgerRepository{db: db, log: logger.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *LedgerRepository) Init(ctx context.Context, st ledger.State) error {
	// both drivers store unsigned columns as signed 64-bit integers
	if uint64(st.BankCap) > math.MaxInt64 || uint64(st.WithdrawCap) > math.MaxInt64 {
		return fmt.Errorf("caps must fit in a signed 64-bit column: %w", ledger.ErrInvalidCap)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.LedgerState{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check ledger state: %w", err)
		}
		if count > 0 {
			return ledger.ErrAlreadyInitialized
		}
		row := toStateModel(st)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create ledger state: %w", err)
		}
		return nil
	})
}

func (r *LedgerRepository) Load(ctx context.Context) (ledger.State, error) {
	var row models.LedgerState
	if err := r.conn(ctx).First(&row, models.LedgerStateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.State{}, ledger.ErrNotInitialized
		}
		return ledger.State{}, fmt.Errorf("failed to load ledger state: %w", err)
	}
	return fromStateModel(row), nil
}

type gormTxKey struct{}

func (r *LedgerRepository) frameOf(ctx context.Context) (*gormTx, bool) {
	t, ok := ctx.Value(gormTxKey{}).(*gormTx)
	return t, ok && t.repo == r
}

func (r *LedgerRepository) InFrame(ctx context.Context) bool {
	_, ok := r.frameOf(ctx)
	return ok
}

// conn reads through the open transaction when ctx carries one. Going to the
// pool instead would wait on the lock, or on the only sqlite connection, held
// by that same transaction.
func (r *LedgerRepository) conn(ctx context.Context) *gorm.DB {
	if t, ok := r.frameOf(ctx); ok {
		return t.db
	}
	return r.db.WithContext(ctx)
}

func (r *LedgerRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	if parent, ok := r.frameOf(ctx); ok {
		// gorm turns a Transaction call on an open transaction into a savepoint
		return parent.db.Transaction(func(db *gorm.DB) error {
			child := &gormTx{repo: r, db: db, committedSeq: parent.committedSeq}
			if err := fn(context.WithValue(ctx, gormTxKey{}, child), child); err != nil {
				return err
			}
			parent.events = append(parent.events, child.events...)
			return nil
		})
	}

	root := &gormTx{repo: r}
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var row models.LedgerState
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, models.LedgerStateID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.ErrNotInitialized
		}
		if err != nil {
			return fmt.Errorf("failed to lock ledger state: %w", err)
		}
		err = db.Model(&models.LedgerEvent{}).Select("COALESCE(MAX(seq), 0)").Scan(&root.committedSeq).Error
		if err != nil {
			return fmt.Errorf("failed to read event log head: %w", err)
		}
		root.db = db
		return fn(context.WithValue(ctx, gormTxKey{}, root), root)
	})
	if err != nil {
		return err
	}

	if len(root.events) > 0 && r.publisher != nil {
		if pubErr := r.publisher.Publish(ctx, root.events); pubErr != nil {
			r.log.Warn("failed to publish committed events", "count", len(root.events), "error", pubErr)
		}
	}
	return nil
}

func (r *LedgerRepository) Events(ctx context.Context, afterSeq uint64, limit int) ([]ledger.Event, error) {
	query := r.conn(ctx).
		Where("seq > ?", afterSeq).
		Order("seq ASC")
	if t, ok := r.frameOf(ctx); ok {
		query = query.Where("seq <= ?", t.committedSeq)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.LedgerEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get ledger events: %w", err)
	}
	events := make([]ledger.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, fromEventModel(row))
	}
	return events, nil
}

// TotalBalances sums every account balance.
func (r *LedgerRepository) TotalBalances(ctx context.Context) (ledger.Amount, error) {
	var total uint64
	err := r.conn(ctx).Model(&models.Account{}).Select("COALESCE(SUM(balance), 0)").Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get total balance: %w", err)
	}
	return ledger.Amount(total), nil
}

// gormTx is one frame bound to an open *gorm.DB transaction. events holds
// what this frame and its committed children appended, in order.
// committedSeq is the last event sequence committed before the top-level
// transaction took its lock.
type gormTx struct {
	repo         *LedgerRepository
	db           *gorm.DB
	events       []ledger.Event
	committedSeq uint64
}

func (t *gormTx) State(ctx context.Context) (ledger.State, error) {
	var row models.LedgerState
	if err := t.db.First(&row, models.LedgerStateID).Error; err != nil {
		return ledger.State{}, err
	}
	return fromStateModel(row), nil
}

func (t *gormTx) SaveState(ctx context.Context, st ledger.State) error {
	row := toStateModel(st)
	return t.db.Model(&models.LedgerState{ID: models.LedgerStateID}).Updates(map[string]interface{}{
		"name":            row.Name,
		"total_deposited": row.TotalDeposited,
		"deposit_count":   row.DepositCount,
		"withdraw_count":  row.WithdrawCount,
		"custodied":       row.Custodied,
	}).Error
}

func (t *gormTx) Balance(ctx context.Context, account ledger.Address) (ledger.Amount, error) {
	var row models.Account
	err := t.db.Where("address = ?", string(account)).Limit(1).Find(&row).Error
	if err != nil {
		return 0, err
	}
	return ledger.Amount(row.Balance), nil
}

func (t *gormTx) SetBalance(ctx context.Context, account ledger.Address, amount ledger.Amount) error {
	row := models.Account{Address: string(account), Balance: uint64(amount)}
	return t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(&row).Error
}

func (t *gormTx) AppendEvent(ctx context.Context, e ledger.Event) (ledger.Event, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	row := toEventModel(e)
	if err := t.db.Create(&row).Error; err != nil {
		return ledger.Event{}, fmt.Errorf("failed to append ledger event: %w", err)
	}
	e.Seq = row.Seq
	t.events = append(t.events, e)
	return e, nil
}

func toStateModel(st ledger.State) models.LedgerState {
	return models.LedgerState{
		ID:             models.LedgerStateID,
		Name:           st.Name,
		Owner:          string(st.Owner),
		WithdrawCap:    uint64(st.WithdrawCap),
		BankCap:        uint64(st.BankCap),
		MinDeposit:     uint64(st.MinDeposit),
		TotalDeposited: uint64(st.TotalDeposited),
		DepositCount:   st.DepositCount,
		WithdrawCount:  st.WithdrawCount,
		Custodied:      uint64(st.Custodied),
	}
}

func fromStateModel(row models.LedgerState) ledger.State {
	return ledger.State{
		Name:           row.Name,
		Owner:          ledger.Address(row.Owner),
		WithdrawCap:    ledger.Amount(row.WithdrawCap),
		BankCap:        ledger.Amount(row.BankCap),
		MinDeposit:     ledger.Amount(row.MinDeposit),
		TotalDeposited: ledger.Amount(row.TotalDeposited),
		DepositCount:   row.DepositCount,
		WithdrawCount:  row.WithdrawCount,
		Custodied:      ledger.Amount(row.Custodied),
	}
}

func toEventModel(e ledger.Event) models.LedgerEvent {
	return models.LedgerEvent{
		EventID:           e.ID,
		Type:              string(e.Type),
		Account:           string(e.Account),
		To:                string(e.To),
		Amount:            uint64(e.Amount),
		NewAccountBalance: uint64(e.NewAccountBalance),
		NewCustodialTotal: uint64(e.NewCustodialTotal),
		NewName:           e.NewName,
		CreatedAt:         e.CreatedAt,
	}
}

func fromEventModel(row models.LedgerEvent) ledger.Event {
	return ledger.Event{
		ID:                row.EventID,
		Seq:               row.Seq,
		Type:              ledger.EventType(row.Type),
		CreatedAt:         row.CreatedAt,
		Account:           ledger.Address(row.Account),
		To:                ledger.Address(row.To),
		Amount:            ledger.Amount(row.Amount),
		NewAccountBalance: ledger.Amount(row.NewAccountBalance),
		NewCustodialTotal: ledger.Amount(row.NewCustodialTotal),
		NewName:           row.NewName,
	}
}
