package application

import (
	"context"
	"math"
	"time"

	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

func requireRole(ctx context.Context, checker ports.RoleChecker, role domain.Role, account domain.Account) error {
	account = domain.NormalizeAccount(account.String())
	if account.IsZero() {
		return domain.ErrUnauthorized
	}
	ok, err := checker.HasRole(ctx, role, account)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return nil
}

func addAmount(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, domain.ErrInvalidInput
	}
	return a + b, nil
}

func utcNow() time.Time { return time.Now().UTC() }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }
