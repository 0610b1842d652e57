package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type RoleGrantRequest struct {
	Account string `json:"account"`
}

type RoleMembershipResponse struct {
	Role    string `json:"role"`
	Account string `json:"account"`
	Member  bool   `json:"member"`
}

type RegisterAdvertiserRequest struct {
	Account        string `json:"account"`
	Name           string `json:"name"`
	DefaultRateBps int64  `json:"default_rate_bps"`
	MinTopUp       int64  `json:"min_top_up"`
}

type UpdateAdvertiserRequest struct {
	DefaultRateBps int64 `json:"default_rate_bps"`
	MinTopUp       int64 `json:"min_top_up"`
}

type AdvertiserResponse struct {
	Account        string `json:"account"`
	Name           string `json:"name"`
	DefaultRateBps int64  `json:"default_rate_bps"`
	MinTopUp       int64  `json:"min_top_up"`
}

type RegisterMarketerRequest struct {
	Account string `json:"account"`
	Handle  string `json:"handle"`
}

type MarketerResponse struct {
	Account string `json:"account"`
	Handle  string `json:"handle"`
}

type SetCommissionPolicyRequest struct {
	MarketerRateBps int64 `json:"marketer_rate_bps"`
	PlatformRateBps int64 `json:"platform_rate_bps"`
	Active          bool  `json:"active"`
}

type CommissionPolicyResponse struct {
	ProductID       string `json:"product_id"`
	MarketerRateBps int64  `json:"marketer_rate_bps"`
	PlatformRateBps int64  `json:"platform_rate_bps"`
	Active          bool   `json:"active"`
}

type ResolvedPolicyResponse struct {
	ProductID   string `json:"product_id"`
	Advertiser  string `json:"advertiser"`
	MarketerBps int64  `json:"marketer_bps"`
	PlatformBps int64  `json:"platform_bps"`
	FromPolicy  bool   `json:"from_policy"`
}

type DepositEscrowRequest struct {
	Amount int64 `json:"amount"`
}

type EscrowBalanceResponse struct {
	Advertiser     string `json:"advertiser"`
	Balance        int64  `json:"balance"`
	TotalDeposited int64  `json:"total_deposited"`
}

type ClaimableResponse struct {
	Account   string `json:"account"`
	Claimable int64  `json:"claimable"`
}

type ClaimResponse struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

type SubmitApprovedOrderRequest struct {
	OrderID    string `json:"order_id"`
	ProductID  string `json:"product_id"`
	Advertiser string `json:"advertiser"`
	Marketer   string `json:"marketer"`
	Buyer      string `json:"buyer"`
	Amount     int64  `json:"amount"`
}

type DirectPaymentRequest struct {
	OrderID    string `json:"order_id"`
	ProductID  string `json:"product_id"`
	Advertiser string `json:"advertiser"`
	Marketer   string `json:"marketer"`
	Amount     int64  `json:"amount"`
}

type OrderResponse struct {
	OrderID         string `json:"order_id"`
	Status          string `json:"status"`
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

// MintRequest takes either smallest units in amount or a decimal string such
// as "12.5" in display_amount.
type MintRequest struct {
	Account       string `json:"account"`
	Amount        int64  `json:"amount"`
	DisplayAmount string `json:"display_amount,omitempty"`
}

type ApproveRequest struct {
	Spender string `json:"spender"`
	Amount  int64  `json:"amount"`
}

type TokenBalanceResponse struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
	Display string `json:"display"`
	Symbol  string `json:"symbol"`
}
