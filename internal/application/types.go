package application

import (
	"time"

	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

type Config struct {
	ServiceName       string
	MinimumTopUpScope domain.MinimumTopUpScope
	PolicyCacheTTL    time.Duration
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	Account   domain.Account
	RequestID string
}

func (a Actor) normalized() Actor {
	a.Account = domain.NormalizeAccount(a.Account.String())
	return a
}

type Dependencies struct {
	Config Config
	Store  ports.Store
	Medium ports.ValueTransfer
	Cache  ports.Cache
}

func normalizeConfig(cfg Config) Config {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M42-ReelPay-Settlement-Service"
	}
	if _, ok := domain.ParseMinimumTopUpScope(string(cfg.MinimumTopUpScope)); !ok {
		cfg.MinimumTopUpScope = domain.MinimumTopUpFirstDeposit
	}
	if cfg.PolicyCacheTTL <= 0 {
		cfg.PolicyCacheTTL = 30 * time.Second
	}
	return cfg
}

type RegisterAdvertiserInput struct {
	Account        string
	Name           string
	DefaultRateBps int64
	MinTopUp       int64
}

type UpdateAdvertiserInput struct {
	Account        string
	DefaultRateBps int64
	MinTopUp       int64
}

type RegisterMarketerInput struct {
	Account string
	Handle  string
}

type SetCommissionPolicyInput struct {
	ProductID       string
	MarketerRateBps int64
	PlatformRateBps int64
	Active          bool
}

type ResolvedPolicy struct {
	ProductID   string
	Advertiser  domain.Account
	MarketerBps int64
	PlatformBps int64
	FromPolicy  bool
}

type SubmitApprovedOrderInput struct {
	OrderID    string
	ProductID  string
	Advertiser string
	Marketer   string
	Buyer      string
	Amount     int64
}

type DirectPaymentInput struct {
	OrderID    string
	ProductID  string
	Advertiser string
	Marketer   string
	Amount     int64
}

type ClaimResult struct {
	Beneficiary domain.Account
	Amount      int64
}
