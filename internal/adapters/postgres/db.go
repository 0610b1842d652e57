package postgres

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ledgerLockKey is the advisory lock every ledger transaction takes first.
const ledgerLockKey int64 = 0x5265656c506179

func Connect(ctx context.Context, databaseURL string, maxConns int32) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(int(maxConns))
		sqlDB.SetMaxIdleConns(int(maxConns) / 2)
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func RunMigrations(ctx context.Context, db *gorm.DB) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		raw, readErr := migrationFS.ReadFile("migrations/" + name)
		if readErr != nil {
			return fmt.Errorf("read migration %s: %w", name, readErr)
		}
		if execErr := db.WithContext(ctx).Exec(string(raw)).Error; execErr != nil {
			return fmt.Errorf("exec migration %s: %w", name, execErr)
		}
	}
	return nil
}

// Store serializes ledger transactions across every process sharing the
// database through a transaction-scoped advisory lock.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if open, interacting, ok := ports.TxFromContext(ctx); ok {
		if interacting {
			return domain.ErrReentrantCall
		}
		if t, mine := open.(*tx); mine && t.store == s {
			return fn(ctx, open)
		}
	}
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Exec("SELECT pg_advisory_xact_lock(?)", ledgerLockKey).Error; err != nil {
			return fmt.Errorf("acquire ledger lock: %w", err)
		}
		t := &tx{store: s, db: db}
		return fn(ports.ContextWithTx(ctx, t), t)
	})
}

type tx struct {
	store *Store
	db    *gorm.DB
}

func (t *tx) Roles() ports.RoleRepository           { return &roleRepository{db: t.db} }
func (t *tx) Parties() ports.PartyRepository        { return &partyRepository{db: t.db} }
func (t *tx) Policies() ports.PolicyRepository      { return &policyRepository{db: t.db} }
func (t *tx) Escrow() ports.EscrowRepository        { return &escrowRepository{db: t.db} }
func (t *tx) Claimables() ports.ClaimableRepository { return &claimableRepository{db: t.db} }
func (t *tx) Orders() ports.OrderRepository         { return &orderRepository{db: t.db} }
func (t *tx) Settings() ports.SettingsRepository    { return &settingsRepository{db: t.db} }
func (t *tx) Outbox() ports.OutboxRepository        { return &outboxRepository{db: t.db} }
