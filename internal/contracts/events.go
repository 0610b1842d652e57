package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type EscrowDepositedPayload struct {
	Advertiser  string `json:"advertiser"`
	Amount      int64  `json:"amount"`
	Balance     int64  `json:"balance"`
	DepositedAt string `json:"deposited_at"`
}

type OrderSettledPayload struct {
	OrderID         string `json:"order_id"`
	Flow            string `json:"flow"`
	ProductID       string `json:"product_id"`
	Advertiser      string `json:"advertiser"`
	Marketer        string `json:"marketer"`
	Buyer           string `json:"buyer,omitempty"`
	Platform        string `json:"platform"`
	Amount          int64  `json:"amount"`
	MarketerCut     int64  `json:"marketer_cut"`
	PlatformCut     int64  `json:"platform_cut"`
	AdvertiserShare int64  `json:"advertiser_share"`
	ProcessedAt     string `json:"processed_at"`
}

type RewardsClaimedPayload struct {
	Beneficiary string `json:"beneficiary"`
	Amount      int64  `json:"amount"`
	ClaimedAt   string `json:"claimed_at"`
}

type CommissionPolicyUpdatedPayload struct {
	ProductID       string `json:"product_id"`
	MarketerRateBps int64  `json:"marketer_rate_bps"`
	PlatformRateBps int64  `json:"platform_rate_bps"`
	Active          bool   `json:"active"`
	UpdatedAt       string `json:"updated_at"`
}

type PartyRegisteredPayload struct {
	Account      string `json:"account"`
	Kind         string `json:"kind"`
	DisplayName  string `json:"display_name"`
	RegisteredAt string `json:"registered_at"`
}

type RoleChangedPayload struct {
	Account   string `json:"account"`
	Role      string `json:"role"`
	Granted   bool   `json:"granted"`
	ChangedBy string `json:"changed_by"`
	ChangedAt string `json:"changed_at"`
}

// OrderApprovedPayload is what the attestation backend publishes on
// commerce.order_approved.
type OrderApprovedPayload struct {
	OrderID    string `json:"order_id"`
	ProductID  string `json:"product_id"`
	Advertiser string `json:"advertiser"`
	Marketer   string `json:"marketer"`
	Buyer      string `json:"buyer"`
	Amount     int64  `json:"amount"`
}
