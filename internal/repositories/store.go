package repositories

import (
	"fmt"

	"custody/internal/config"
	"custody/internal/domain/ledger"
	"custody/internal/logger"
	"custody/internal/repositories/memory"
)

// OpenStore builds the ledger store selected by cfg.StoreDriver. The returned
// close function releases the database connection, if any.
func OpenStore(cfg config.Config, publisher ledger.EventPublisher, log *logger.Logger) (ledger.Store, func() error, error) {
	if log == nil {
		log = logger.NewNop()
	}

	switch cfg.StoreDriver {
	case "memory":
		store := memory.New(memory.WithPublisher(publisher), memory.WithLogger(log))
		return store, func() error { return nil }, nil
	case "postgres", "sqlite":
		db, err := Connect(cfg)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		if err := Migrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("failed to migrate ledger tables: %w", err)
		}
		repo := NewLedgerRepository(db, WithEventPublisher(publisher), WithLogger(log))
		return repo, sqlDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// ResetStore drops every ledger table of the persistent store selected by
// cfg. The next OpenStore starts from an empty, uninitialized ledger.
func ResetStore(cfg config.Config) error {
	db, err := Connect(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	if err := DropAllTables(db); err != nil {
		return fmt.Errorf("failed to drop ledger tables: %w", err)
	}
	return nil
}
