package ports

import (
	"context"

	"github.com/viralforge/reelpay/internal/domain"
)

// ValueTransfer is the fungible medium the ledger settles in. Amounts are in
// the token's smallest unit.
type ValueTransfer interface {
	BalanceOf(ctx context.Context, account domain.Account) (int64, error)
	Allowance(ctx context.Context, owner, spender domain.Account) (int64, error)
	Approve(ctx context.Context, owner, spender domain.Account, amount int64) error
	Transfer(ctx context.Context, from, to domain.Account, amount int64) error
	TransferFrom(ctx context.Context, spender, owner, to domain.Account, amount int64) error
}

// Mintable is only implemented by test and mock media.
type Mintable interface {
	Mint(ctx context.Context, to domain.Account, amount int64) error
}
