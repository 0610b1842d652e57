package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/viralforge/reelpay/internal/contracts"
	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

// Registry records advertisers, marketers, per-product commission policies and
// the platform wallet. Every mutation requires ADMIN.
type Registry struct {
	cfg       Config
	store     ports.Store
	authority ports.RoleChecker
	cache     ports.Cache
	nowFn     func() time.Time
}

func NewRegistry(deps Dependencies, authority ports.RoleChecker) *Registry {
	return &Registry{cfg: normalizeConfig(deps.Config), store: deps.Store, authority: authority, cache: deps.Cache, nowFn: utcNow}
}

func (r *Registry) RegisterAdvertiser(ctx context.Context, actor Actor, input RegisterAdvertiserInput) (domain.Advertiser, error) {
	account := domain.NormalizeAccount(input.Account)
	name := strings.TrimSpace(input.Name)
	if account.IsZero() || name == "" || input.MinTopUp < 0 {
		return domain.Advertiser{}, domain.ErrInvalidInput
	}
	if err := domain.ValidateRate(input.DefaultRateBps); err != nil {
		return domain.Advertiser{}, err
	}
	var out domain.Advertiser
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := requireRole(ctx, r.authority, domain.RoleAdmin, actor.Account); err != nil {
			return err
		}
		if _, err := tx.Parties().GetAdvertiser(ctx, account); err == nil {
			return domain.ErrAlreadyRegistered
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		now := r.nowFn()
		out = domain.Advertiser{Account: account, Name: name, DefaultRateBps: input.DefaultRateBps, MinTopUp: input.MinTopUp, RegisteredAt: now, UpdatedAt: now}
		if err := tx.Parties().CreateAdvertiser(ctx, out); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return domain.ErrAlreadyRegistered
			}
			return err
		}
		return enqueueEvent(ctx, tx, r.cfg, domain.EventPartyRegistered, actor.RequestID, contracts.PartyRegisteredPayload{
			Account: account.String(), Kind: "advertiser", DisplayName: name, RegisteredAt: formatTime(now),
		}, account.String(), now)
	})
	if err != nil {
		return domain.Advertiser{}, err
	}
	r.invalidate(ctx, advertiserCacheKey(account))
	return out, nil
}

func (r *Registry) UpdateAdvertiser(ctx context.Context, actor Actor, input UpdateAdvertiserInput) (domain.Advertiser, error) {
	account := domain.NormalizeAccount(input.Account)
	if account.IsZero() || input.MinTopUp < 0 {
		return domain.Advertiser{}, domain.ErrInvalidInput
	}
	if err := domain.ValidateRate(input.DefaultRateBps); err != nil {
		return domain.Advertiser{}, err
	}
	var out domain.Advertiser
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := requireRole(ctx, r.authority, domain.RoleAdmin, actor.Account); err != nil {
			return err
		}
		adv, err := r.advertiser(ctx, tx, account)
		if err != nil {
			return err
		}
		adv.DefaultRateBps = input.DefaultRateBps
		adv.MinTopUp = input.MinTopUp
		adv.UpdatedAt = r.nowFn()
		if err := tx.Parties().UpdateAdvertiser(ctx, adv); err != nil {
			return err
		}
		out = adv
		return nil
	})
	if err != nil {
		return domain.Advertiser{}, err
	}
	r.invalidate(ctx, advertiserCacheKey(account))
	return out, nil
}

func (r *Registry) RegisterMarketer(ctx context.Context, actor Actor, input RegisterMarketerInput) (domain.Marketer, error) {
	account := domain.NormalizeAccount(input.Account)
	handle := strings.TrimSpace(input.Handle)
	if account.IsZero() || handle == "" {
		return domain.Marketer{}, domain.ErrInvalidInput
	}
	var out domain.Marketer
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := requireRole(ctx, r.authority, domain.RoleAdmin, actor.Account); err != nil {
			return err
		}
		if _, err := tx.Parties().GetMarketer(ctx, account); err == nil {
			return domain.ErrAlreadyRegistered
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		now := r.nowFn()
		out = domain.Marketer{Account: account, Handle: handle, RegisteredAt: now}
		if err := tx.Parties().CreateMarketer(ctx, out); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return domain.ErrAlreadyRegistered
			}
			return err
		}
		return enqueueEvent(ctx, tx, r.cfg, domain.EventPartyRegistered, actor.RequestID, contracts.PartyRegisteredPayload{
			Account: account.String(), Kind: "marketer", DisplayName: handle, RegisteredAt: formatTime(now),
		}, account.String(), now)
	})
	if err != nil {
		return domain.Marketer{}, err
	}
	return out, nil
}

// SetCommissionPolicy overwrites any policy already stored for the product.
func (r *Registry) SetCommissionPolicy(ctx context.Context, actor Actor, input SetCommissionPolicyInput) (domain.CommissionPolicy, error) {
	productID := domain.NormalizeID(input.ProductID)
	if productID == "" {
		return domain.CommissionPolicy{}, domain.ErrInvalidInput
	}
	if err := domain.ValidatePolicyRates(input.MarketerRateBps, input.PlatformRateBps); err != nil {
		return domain.CommissionPolicy{}, err
	}
	var out domain.CommissionPolicy
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := requireRole(ctx, r.authority, domain.RoleAdmin, actor.Account); err != nil {
			return err
		}
		now := r.nowFn()
		out = domain.CommissionPolicy{ProductID: productID, MarketerRateBps: input.MarketerRateBps, PlatformRateBps: input.PlatformRateBps, Active: input.Active, UpdatedAt: now}
		if err := tx.Policies().Upsert(ctx, out); err != nil {
			return err
		}
		return enqueueEvent(ctx, tx, r.cfg, domain.EventCommissionPolicyUpdate, actor.RequestID, contracts.CommissionPolicyUpdatedPayload{
			ProductID: productID, MarketerRateBps: out.MarketerRateBps, PlatformRateBps: out.PlatformRateBps, Active: out.Active, UpdatedAt: formatTime(now),
		}, productID, now)
	})
	if err != nil {
		return domain.CommissionPolicy{}, err
	}
	r.invalidate(ctx, policyCacheKey(productID))
	return out, nil
}

func (r *Registry) SetPlatformWallet(ctx context.Context, actor Actor, wallet domain.Account) error {
	wallet = domain.NormalizeAccount(wallet.String())
	if wallet.IsZero() {
		return domain.ErrInvalidInput
	}
	return r.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := requireRole(ctx, r.authority, domain.RoleAdmin, actor.Account); err != nil {
			return err
		}
		return tx.Settings().Put(ctx, ports.SettingPlatformWallet, wallet.String())
	})
}

func (r *Registry) PlatformWallet(ctx context.Context) (domain.Account, error) {
	var out domain.Account
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		out, err = r.platformWallet(ctx, tx)
		return err
	})
	return out, err
}

func (r *Registry) GetAdvertiser(ctx context.Context, account domain.Account) (domain.Advertiser, error) {
	var out domain.Advertiser
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		out, err = r.advertiser(ctx, tx, account)
		return err
	})
	return out, err
}

func (r *Registry) GetMarketer(ctx context.Context, account domain.Account) (domain.Marketer, error) {
	var out domain.Marketer
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		out, err = r.marketer(ctx, tx, account)
		return err
	})
	return out, err
}

func (r *Registry) GetCommissionPolicy(ctx context.Context, productID string) (domain.CommissionPolicy, error) {
	productID = domain.NormalizeID(productID)
	var out domain.CommissionPolicy
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		p, err := tx.Policies().Get(ctx, productID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnknownProduct
		}
		out = p
		return err
	})
	return out, err
}

// ResolvePolicy is the read-only lookup exposed to callers. It is served from
// the cache when one is configured; settlement always resolves inside its own
// transaction instead.
func (r *Registry) ResolvePolicy(ctx context.Context, productID string, advertiser domain.Account) (ResolvedPolicy, error) {
	productID = domain.NormalizeID(productID)
	advertiser = domain.NormalizeAccount(advertiser.String())
	adv, advCached := r.cachedAdvertiser(ctx, advertiser)
	policy, policyCached := r.cachedPolicy(ctx, productID)
	if advCached && policyCached {
		return resolve(productID, adv, &policy), nil
	}
	var (
		dbAdv    domain.Advertiser
		dbPolicy *domain.CommissionPolicy
	)
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		dbAdv, dbPolicy, err = r.lookupPolicy(ctx, tx, productID, advertiser)
		return err
	})
	if err != nil {
		return ResolvedPolicy{}, err
	}
	r.remember(ctx, advertiserCacheKey(dbAdv.Account), dbAdv)
	if dbPolicy != nil {
		r.remember(ctx, policyCacheKey(productID), *dbPolicy)
	}
	return resolve(productID, dbAdv, dbPolicy), nil
}

func (r *Registry) resolveInTx(ctx context.Context, tx ports.Tx, productID string, advertiser domain.Account) (ResolvedPolicy, error) {
	adv, policy, err := r.lookupPolicy(ctx, tx, productID, advertiser)
	if err != nil {
		return ResolvedPolicy{}, err
	}
	return resolve(productID, adv, policy), nil
}

func (r *Registry) lookupPolicy(ctx context.Context, tx ports.Tx, productID string, advertiser domain.Account) (domain.Advertiser, *domain.CommissionPolicy, error) {
	adv, err := r.advertiser(ctx, tx, advertiser)
	if err != nil {
		return domain.Advertiser{}, nil, err
	}
	policy, err := tx.Policies().Get(ctx, productID)
	if errors.Is(err, domain.ErrNotFound) {
		return adv, nil, nil
	}
	if err != nil {
		return domain.Advertiser{}, nil, err
	}
	return adv, &policy, nil
}

func resolve(productID string, adv domain.Advertiser, policy *domain.CommissionPolicy) ResolvedPolicy {
	if policy != nil && policy.Active {
		return ResolvedPolicy{ProductID: productID, Advertiser: adv.Account, MarketerBps: policy.MarketerRateBps, PlatformBps: policy.PlatformRateBps, FromPolicy: true}
	}
	return ResolvedPolicy{ProductID: productID, Advertiser: adv.Account, MarketerBps: adv.DefaultRateBps, PlatformBps: 0}
}

func (r *Registry) advertiser(ctx context.Context, tx ports.Tx, account domain.Account) (domain.Advertiser, error) {
	adv, err := tx.Parties().GetAdvertiser(ctx, account)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Advertiser{}, domain.ErrUnknownAdvertiser
	}
	return adv, err
}

func (r *Registry) marketer(ctx context.Context, tx ports.Tx, account domain.Account) (domain.Marketer, error) {
	m, err := tx.Parties().GetMarketer(ctx, account)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Marketer{}, domain.ErrUnknownMarketer
	}
	return m, err
}

func (r *Registry) platformWallet(ctx context.Context, tx ports.Tx) (domain.Account, error) {
	raw, ok, err := tx.Settings().Get(ctx, ports.SettingPlatformWallet)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return "", domain.ErrPlatformNotConfigured
	}
	return domain.Account(raw), nil
}

func policyCacheKey(productID string) string { return "reelpay:policy:" + productID }

func advertiserCacheKey(account domain.Account) string {
	return "reelpay:advertiser:" + account.String()
}

func (r *Registry) cachedPolicy(ctx context.Context, productID string) (domain.CommissionPolicy, bool) {
	var p domain.CommissionPolicy
	return p, r.lookup(ctx, policyCacheKey(productID), &p)
}

func (r *Registry) cachedAdvertiser(ctx context.Context, account domain.Account) (domain.Advertiser, bool) {
	var a domain.Advertiser
	return a, r.lookup(ctx, advertiserCacheKey(account), &a)
}

// Cache failures are never surfaced; the store stays authoritative.
func (r *Registry) lookup(ctx context.Context, key string, out any) bool {
	if r.cache == nil {
		return false
	}
	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (r *Registry) remember(ctx context.Context, key string, v any) {
	if r.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = r.cache.Set(ctx, key, string(b), r.cfg.PolicyCacheTTL)
}

func (r *Registry) invalidate(ctx context.Context, keys ...string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, keys...)
}
