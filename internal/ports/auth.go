package ports

import (
	"context"

	"github.com/viralforge/reelpay/internal/domain"
)

// RoleChecker is the capability components depend on instead of the registry.
type RoleChecker interface {
	HasRole(ctx context.Context, role domain.Role, account domain.Account) (bool, error)
}

type RoleCheckFunc func(ctx context.Context, role domain.Role, account domain.Account) (bool, error)

func (f RoleCheckFunc) HasRole(ctx context.Context, role domain.Role, account domain.Account) (bool, error) {
	return f(ctx, role, account)
}

type AuthClaims struct {
	Account domain.Account
	Valid   bool
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (AuthClaims, error)
}
