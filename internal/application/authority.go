package application

import (
	"context"
	"time"

	"github.com/viralforge/reelpay/internal/contracts"
	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

// Authority is the role registry. ADMIN members administer every role,
// including ADMIN itself.
type Authority struct {
	cfg   Config
	store ports.Store
	nowFn func() time.Time
}

func NewAuthority(deps Dependencies) *Authority {
	return &Authority{cfg: normalizeConfig(deps.Config), store: deps.Store, nowFn: utcNow}
}

// Bootstrap grants ADMIN to deployer when the registry has no admin yet. A
// registry that already has admins only accepts one of them as deployer.
func (a *Authority) Bootstrap(ctx context.Context, deployer domain.Account) error {
	if deployer.IsZero() {
		return domain.ErrInvalidInput
	}
	return a.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		n, err := tx.Roles().Count(ctx, domain.RoleAdmin)
		if err != nil {
			return err
		}
		if n > 0 {
			ok, err := tx.Roles().Has(ctx, domain.RoleAdmin, deployer)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrUnauthorized
			}
			return nil
		}
		return a.changeRole(ctx, tx, deployer, domain.RoleAdmin, deployer, true)
	})
}

func (a *Authority) HasRole(ctx context.Context, role domain.Role, account domain.Account) (bool, error) {
	var ok bool
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		ok, err = tx.Roles().Has(ctx, role, account)
		return err
	})
	return ok, err
}

func (a *Authority) GrantRole(ctx context.Context, actor Actor, role domain.Role, account domain.Account) error {
	return a.administer(ctx, actor, role, account, true)
}

func (a *Authority) RevokeRole(ctx context.Context, actor Actor, role domain.Role, account domain.Account) error {
	return a.administer(ctx, actor, role, account, false)
}

// RenounceRole lets an account drop its own membership without ADMIN.
func (a *Authority) RenounceRole(ctx context.Context, actor Actor, role domain.Role) error {
	actor = actor.normalized()
	if actor.Account.IsZero() {
		return domain.ErrUnauthorized
	}
	if role == "" {
		return domain.ErrInvalidInput
	}
	return a.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return a.changeRole(ctx, tx, actor.Account, role, actor.Account, false)
	})
}

func (a *Authority) administer(ctx context.Context, actor Actor, role domain.Role, account domain.Account, grant bool) error {
	actor = actor.normalized()
	account = domain.NormalizeAccount(account.String())
	if role == "" || account.IsZero() {
		return domain.ErrInvalidInput
	}
	return a.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := requireRole(ctx, a, domain.RoleAdmin, actor.Account); err != nil {
			return err
		}
		return a.changeRole(ctx, tx, actor.Account, role, account, grant)
	})
}

func (a *Authority) changeRole(ctx context.Context, tx ports.Tx, by domain.Account, role domain.Role, account domain.Account, grant bool) error {
	has, err := tx.Roles().Has(ctx, role, account)
	if err != nil {
		return err
	}
	if has == grant {
		return nil
	}
	now := a.nowFn()
	if grant {
		err = tx.Roles().Add(ctx, role, account, now)
	} else {
		err = tx.Roles().Remove(ctx, role, account)
	}
	if err != nil {
		return err
	}
	return enqueueEvent(ctx, tx, a.cfg, domain.EventRoleChanged, "", contracts.RoleChangedPayload{
		Account: account.String(), Role: string(role), Granted: grant, ChangedBy: by.String(), ChangedAt: formatTime(now),
	}, account.String(), now)
}
