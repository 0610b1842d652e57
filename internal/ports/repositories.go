package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/reelpay/internal/domain"
)

type RoleRepository interface {
	Has(ctx context.Context, role domain.Role, account domain.Account) (bool, error)
	Add(ctx context.Context, role domain.Role, account domain.Account, at time.Time) error
	Remove(ctx context.Context, role domain.Role, account domain.Account) error
	Count(ctx context.Context, role domain.Role) (int64, error)
}

type PartyRepository interface {
	GetAdvertiser(ctx context.Context, account domain.Account) (domain.Advertiser, error)
	CreateAdvertiser(ctx context.Context, row domain.Advertiser) error
	UpdateAdvertiser(ctx context.Context, row domain.Advertiser) error
	GetMarketer(ctx context.Context, account domain.Account) (domain.Marketer, error)
	CreateMarketer(ctx context.Context, row domain.Marketer) error
}

type PolicyRepository interface {
	Get(ctx context.Context, productID string) (domain.CommissionPolicy, error)
	Upsert(ctx context.Context, row domain.CommissionPolicy) error
}

// EscrowRepository returns a zero-balance account for advertisers that never
// deposited.
type EscrowRepository interface {
	Get(ctx context.Context, advertiser domain.Account) (domain.EscrowAccount, error)
	Save(ctx context.Context, row domain.EscrowAccount) error
	Total(ctx context.Context) (int64, error)
}

// ClaimableRepository returns a zero balance for unknown beneficiaries.
type ClaimableRepository interface {
	Get(ctx context.Context, beneficiary domain.Account) (domain.ClaimableBalance, error)
	Save(ctx context.Context, row domain.ClaimableBalance) error
	Total(ctx context.Context) (int64, error)
}

type OrderRepository interface {
	Get(ctx context.Context, orderID string) (domain.OrderRecord, error)
	Create(ctx context.Context, row domain.OrderRecord) error
}

const (
	SettingSettlementEngine = "settlement_engine"
	SettingPlatformWallet   = "platform_wallet"
)

type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

type OutboxEvent struct {
	EventID          uuid.UUID
	EventType        string
	EventClass       string
	PartitionKey     string
	PartitionKeyPath string
	Payload          []byte
	OccurredAt       time.Time
	SchemaVersion    string
	TraceID          string
}

type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	PublishedAt  *time.Time
	LastError    *string
	LastErrorAt  *time.Time
	FirstSeenAt  time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}

// Tx is one serialized unit of work over the whole ledger.
type Tx interface {
	Roles() RoleRepository
	Parties() PartyRepository
	Policies() PolicyRepository
	Escrow() EscrowRepository
	Claimables() ClaimableRepository
	Orders() OrderRepository
	Settings() SettingsRepository
	Outbox() OutboxRepository
}

// Store runs fn as a single transaction. A returned error discards every write
// made through tx. Calls made with a ctx that already carries an open
// transaction join it, unless that transaction is inside an interaction with
// the value-transfer medium, in which case domain.ErrReentrantCall is returned.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
