package domain

import "time"

type SettlementFlow string

const (
	FlowDeferred SettlementFlow = "deferred"
	FlowDirect   SettlementFlow = "direct"
)

type OrderStatus string

const (
	OrderStatusUnseen    OrderStatus = "unseen"
	OrderStatusProcessed OrderStatus = "processed"
)

// OrderRecord is written once per order id and never updated.
type OrderRecord struct {
	OrderID     string
	Flow        SettlementFlow
	ProductID   string
	Advertiser  Account
	Marketer    Account
	Buyer       Account
	Amount      int64
	Split       Split
	Platform    Account
	SubmittedBy Account
	ProcessedAt time.Time
}

func (o OrderRecord) Status() OrderStatus {
	if o.OrderID == "" {
		return OrderStatusUnseen
	}
	return OrderStatusProcessed
}
