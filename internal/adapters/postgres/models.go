package postgres

import (
	"time"

	"github.com/google/uuid"
)

type roleMemberModel struct {
	Role      string    `gorm:"column:role;primaryKey"`
	Account   string    `gorm:"column:account;primaryKey"`
	GrantedAt time.Time `gorm:"column:granted_at"`
}

func (roleMemberModel) TableName() string { return "role_members" }

type advertiserModel struct {
	Account        string    `gorm:"column:account;primaryKey"`
	Name           string    `gorm:"column:name"`
	DefaultRateBps int64     `gorm:"column:default_rate_bps"`
	MinTopUp       int64     `gorm:"column:min_top_up"`
	RegisteredAt   time.Time `gorm:"column:registered_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (advertiserModel) TableName() string { return "advertisers" }

type marketerModel struct {
	Account      string    `gorm:"column:account;primaryKey"`
	Handle       string    `gorm:"column:handle"`
	RegisteredAt time.Time `gorm:"column:registered_at"`
}

func (marketerModel) TableName() string { return "marketers" }

type commissionPolicyModel struct {
	ProductID       string    `gorm:"column:product_id;primaryKey"`
	MarketerRateBps int64     `gorm:"column:marketer_rate_bps"`
	PlatformRateBps int64     `gorm:"column:platform_rate_bps"`
	Active          bool      `gorm:"column:active"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (commissionPolicyModel) TableName() string { return "commission_policies" }

type escrowAccountModel struct {
	Advertiser     string    `gorm:"column:advertiser;primaryKey"`
	Balance        int64     `gorm:"column:balance"`
	TotalDeposited int64     `gorm:"column:total_deposited"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (escrowAccountModel) TableName() string { return "escrow_accounts" }

type claimableBalanceModel struct {
	Beneficiary  string    `gorm:"column:beneficiary;primaryKey"`
	Amount       int64     `gorm:"column:amount"`
	TotalClaimed int64     `gorm:"column:total_claimed"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (claimableBalanceModel) TableName() string { return "claimable_balances" }

type settlementOrderModel struct {
	OrderID         string    `gorm:"column:order_id;primaryKey"`
	Flow            string    `gorm:"column:flow"`
	ProductID       string    `gorm:"column:product_id"`
	Advertiser      string    `gorm:"column:advertiser"`
	Marketer        string    `gorm:"column:marketer"`
	Buyer           string    `gorm:"column:buyer"`
	Amount          int64     `gorm:"column:amount"`
	MarketerBps     int64     `gorm:"column:marketer_bps"`
	PlatformBps     int64     `gorm:"column:platform_bps"`
	MarketerCut     int64     `gorm:"column:marketer_cut"`
	PlatformCut     int64     `gorm:"column:platform_cut"`
	AdvertiserShare int64     `gorm:"column:advertiser_share"`
	PlatformWallet  string    `gorm:"column:platform_wallet"`
	SubmittedBy     string    `gorm:"column:submitted_by"`
	ProcessedAt     time.Time `gorm:"column:processed_at"`
}

func (settlementOrderModel) TableName() string { return "settlement_orders" }

type ledgerSettingModel struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value"`
}

func (ledgerSettingModel) TableName() string { return "ledger_settings" }

type outboxModel struct {
	OutboxID         uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType        string     `gorm:"column:event_type"`
	EventClass       string     `gorm:"column:event_class"`
	PartitionKey     string     `gorm:"column:partition_key"`
	PartitionKeyPath string     `gorm:"column:partition_key_path"`
	Payload          string     `gorm:"column:payload"`
	SchemaVersion    string     `gorm:"column:schema_version"`
	TraceID          string     `gorm:"column:trace_id"`
	RetryCount       int        `gorm:"column:retry_count"`
	LastError        *string    `gorm:"column:last_error"`
	LastErrorAt      *time.Time `gorm:"column:last_error_at"`
	PublishedAt      *time.Time `gorm:"column:published_at"`
	FirstSeenAt      time.Time  `gorm:"column:first_seen_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
}

func (outboxModel) TableName() string { return "reelpay_outbox" }
