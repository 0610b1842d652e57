package token

import (
	"context"
	"math"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/viralforge/reelpay/internal/domain"
)

const DefaultDecimals int32 = 6

type allowanceKey struct {
	owner   domain.Account
	spender domain.Account
}

// Mock is an in-process fungible token with balances, allowances and an open
// faucet. It stands in for the stablecoin in development and tests.
type Mock struct {
	mu         sync.Mutex
	symbol     string
	decimals   int32
	supply     int64
	balances   map[domain.Account]int64
	allowances map[allowanceKey]int64
}

func NewMock(symbol string, decimals int32) *Mock {
	if symbol == "" {
		symbol = "KRWT"
	}
	if decimals < 0 {
		decimals = DefaultDecimals
	}
	return &Mock{
		symbol:     symbol,
		decimals:   decimals,
		balances:   map[domain.Account]int64{},
		allowances: map[allowanceKey]int64{},
	}
}

func (m *Mock) Symbol() string  { return m.symbol }
func (m *Mock) Decimals() int32 { return m.decimals }

// ToUnits converts a human amount such as "12.5" into smallest units.
func (m *Mock) ToUnits(amount decimal.Decimal) (int64, error) {
	return ToUnits(amount, m.decimals)
}

func (m *Mock) FromUnits(units int64) decimal.Decimal {
	return decimal.New(units, -m.decimals)
}

func ToUnits(amount decimal.Decimal, decimals int32) (int64, error) {
	scaled := amount.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) || scaled.IsNegative() {
		return 0, domain.ErrInvalidInput
	}
	if scaled.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, domain.ErrInvalidInput
	}
	return scaled.IntPart(), nil
}

func (m *Mock) TotalSupply() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.supply
}

func (m *Mock) BalanceOf(_ context.Context, account domain.Account) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}

func (m *Mock) Allowance(_ context.Context, owner, spender domain.Account) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowances[allowanceKey{owner, spender}], nil
}

func (m *Mock) Approve(_ context.Context, owner, spender domain.Account, amount int64) error {
	if owner.IsZero() || spender.IsZero() || amount < 0 {
		return domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[allowanceKey{owner, spender}] = amount
	return nil
}

func (m *Mock) Mint(_ context.Context, to domain.Account, amount int64) error {
	if to.IsZero() || amount <= 0 {
		return domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.supply > math.MaxInt64-amount {
		return domain.ErrInvalidInput
	}
	m.supply += amount
	m.balances[to] += amount
	return nil
}

func (m *Mock) Transfer(_ context.Context, from, to domain.Account, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(from, to, amount)
}

func (m *Mock) TransferFrom(_ context.Context, spender, owner, to domain.Account, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := allowanceKey{owner, spender}
	if m.allowances[key] < amount {
		return domain.ErrInsufficientAllowance
	}
	if err := m.move(owner, to, amount); err != nil {
		return err
	}
	m.allowances[key] -= amount
	return nil
}

func (m *Mock) move(from, to domain.Account, amount int64) error {
	if from.IsZero() || to.IsZero() || amount < 0 {
		return domain.ErrInvalidInput
	}
	if m.balances[from] < amount {
		return domain.ErrInsufficientBalance
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}
