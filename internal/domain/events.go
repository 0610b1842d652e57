package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
)

const (
	EventEscrowDeposited        = "reelpay.escrow_deposited"
	EventOrderSettled           = "reelpay.order_settled"
	EventRewardsClaimed         = "reelpay.rewards_claimed"
	EventCommissionPolicyUpdate = "reelpay.commission_policy_updated"
	EventPartyRegistered        = "reelpay.party_registered"
	EventRoleChanged            = "reelpay.role_changed"
)

const EventOrderApproved = "commerce.order_approved"

func IsCanonicalInputEvent(eventType string) bool {
	return eventType == EventOrderApproved
}

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventEscrowDeposited, EventOrderSettled, EventRewardsClaimed,
		EventCommissionPolicyUpdate, EventPartyRegistered, EventRoleChanged:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventEscrowDeposited, EventOrderSettled, EventRewardsClaimed:
		return CanonicalEventClassDomain
	case EventCommissionPolicyUpdate, EventPartyRegistered, EventRoleChanged:
		return CanonicalEventClassAnalyticsOnly
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch eventType {
	case EventEscrowDeposited:
		return "data.advertiser"
	case EventOrderSettled:
		return "data.order_id"
	case EventRewardsClaimed:
		return "data.beneficiary"
	case EventCommissionPolicyUpdate:
		return "data.product_id"
	case EventPartyRegistered, EventRoleChanged:
		return "data.account"
	default:
		return ""
	}
}
