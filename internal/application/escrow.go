package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/viralforge/reelpay/internal/contracts"
	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

// EscrowLedger keeps advertiser escrow and beneficiary claimable balances and
// holds the medium backing both in its custody account.
type EscrowLedger struct {
	cfg       Config
	store     ports.Store
	medium    ports.ValueTransfer
	authority ports.RoleChecker
	registry  *Registry
	custody   domain.Account
	nowFn     func() time.Time
}

func NewEscrowLedger(deps Dependencies, custody domain.Account, authority ports.RoleChecker, registry *Registry) *EscrowLedger {
	return &EscrowLedger{
		cfg:       normalizeConfig(deps.Config),
		store:     deps.Store,
		medium:    deps.Medium,
		authority: authority,
		registry:  registry,
		custody:   custody,
		nowFn:     utcNow,
	}
}

func (l *EscrowLedger) Custody() domain.Account { return l.custody }

// SetSettlementEngine names the only account allowed to debit escrow and
// credit claimable balances.
func (l *EscrowLedger) SetSettlementEngine(ctx context.Context, actor Actor, engine domain.Account) error {
	engine = domain.NormalizeAccount(engine.String())
	if engine.IsZero() {
		return domain.ErrInvalidInput
	}
	return l.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := requireRole(ctx, l.authority, domain.RoleAdmin, actor.Account); err != nil {
			return err
		}
		return tx.Settings().Put(ctx, ports.SettingSettlementEngine, engine.String())
	})
}

func (l *EscrowLedger) SettlementEngine(ctx context.Context) (domain.Account, error) {
	var out domain.Account
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		raw, ok, err := tx.Settings().Get(ctx, ports.SettingSettlementEngine)
		if err != nil {
			return err
		}
		if !ok || strings.TrimSpace(raw) == "" {
			return domain.ErrEngineNotConfigured
		}
		out = domain.Account(raw)
		return nil
	})
	return out, err
}

// DepositEscrow pulls amount from the calling advertiser into custody.
func (l *EscrowLedger) DepositEscrow(ctx context.Context, actor Actor, amount int64) (domain.EscrowAccount, error) {
	actor = actor.normalized()
	advertiser := actor.Account
	if advertiser.IsZero() {
		return domain.EscrowAccount{}, domain.ErrUnauthorized
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return domain.EscrowAccount{}, err
	}
	var out domain.EscrowAccount
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		adv, err := l.registry.advertiser(ctx, tx, advertiser)
		if err != nil {
			return err
		}
		allowance, err := l.medium.Allowance(ctx, advertiser, l.custody)
		if err != nil {
			return fmt.Errorf("read allowance: %w", err)
		}
		if allowance < amount {
			return domain.ErrInsufficientAllowance
		}
		escrow, err := tx.Escrow().Get(ctx, advertiser)
		if err != nil {
			return err
		}
		if l.cfg.MinimumTopUpScope.MinimumApplies(escrow) {
			required := amount
			if l.cfg.MinimumTopUpScope == domain.MinimumTopUpFirstDeposit {
				required = escrow.Balance + amount
			}
			if required < adv.MinTopUp {
				return domain.ErrBelowMinimum
			}
		}

		now := l.nowFn()
		if escrow.Balance, err = addAmount(escrow.Balance, amount); err != nil {
			return err
		}
		if escrow.TotalDeposited, err = addAmount(escrow.TotalDeposited, amount); err != nil {
			return err
		}
		escrow.Advertiser = advertiser
		escrow.UpdatedAt = now
		if err := tx.Escrow().Save(ctx, escrow); err != nil {
			return err
		}
		if err := enqueueEvent(ctx, tx, l.cfg, domain.EventEscrowDeposited, actor.RequestID, contracts.EscrowDepositedPayload{
			Advertiser: advertiser.String(), Amount: amount, Balance: escrow.Balance, DepositedAt: formatTime(now),
		}, advertiser.String(), now); err != nil {
			return err
		}
		out = escrow

		if err := l.medium.TransferFrom(ports.Interacting(ctx), l.custody, advertiser, l.custody, amount); err != nil {
			return fmt.Errorf("pull escrow deposit: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.EscrowAccount{}, err
	}
	return out, nil
}

// DebitEscrow is reserved for the settlement engine. Called with the engine's
// transaction context it joins that transaction.
func (l *EscrowLedger) DebitEscrow(ctx context.Context, caller, advertiser domain.Account, amount int64) (domain.EscrowAccount, error) {
	if amount < 0 {
		return domain.EscrowAccount{}, domain.ErrInvalidInput
	}
	var out domain.EscrowAccount
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := l.requireEngine(ctx, tx, caller); err != nil {
			return err
		}
		escrow, err := tx.Escrow().Get(ctx, advertiser)
		if err != nil {
			return err
		}
		if amount > escrow.Balance {
			return domain.ErrInsufficientEscrow
		}
		out = escrow
		if amount == 0 {
			return nil
		}
		escrow.Balance -= amount
		escrow.UpdatedAt = l.nowFn()
		out = escrow
		return tx.Escrow().Save(ctx, escrow)
	})
	if err != nil {
		return domain.EscrowAccount{}, err
	}
	return out, nil
}

// Credit is reserved for the settlement engine. A zero amount succeeds without
// writing.
func (l *EscrowLedger) Credit(ctx context.Context, caller, beneficiary domain.Account, amount int64) (domain.ClaimableBalance, error) {
	if amount < 0 || beneficiary.IsZero() {
		return domain.ClaimableBalance{}, domain.ErrInvalidInput
	}
	var out domain.ClaimableBalance
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := l.requireEngine(ctx, tx, caller); err != nil {
			return err
		}
		bal, err := tx.Claimables().Get(ctx, beneficiary)
		if err != nil {
			return err
		}
		out = bal
		if amount == 0 {
			return nil
		}
		if bal.Amount, err = addAmount(bal.Amount, amount); err != nil {
			return err
		}
		bal.Beneficiary = beneficiary
		bal.UpdatedAt = l.nowFn()
		out = bal
		return tx.Claimables().Save(ctx, bal)
	})
	if err != nil {
		return domain.ClaimableBalance{}, err
	}
	return out, nil
}

// ClaimRewards pays out the caller's whole claimable balance. The balance is
// zeroed before the outbound transfer starts.
func (l *EscrowLedger) ClaimRewards(ctx context.Context, actor Actor) (ClaimResult, error) {
	actor = actor.normalized()
	beneficiary := actor.Account
	if beneficiary.IsZero() {
		return ClaimResult{}, domain.ErrUnauthorized
	}
	var out ClaimResult
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		bal, err := tx.Claimables().Get(ctx, beneficiary)
		if err != nil {
			return err
		}
		if bal.Amount <= 0 {
			return domain.ErrNothingToClaim
		}
		amount := bal.Amount
		now := l.nowFn()
		bal.Beneficiary = beneficiary
		bal.Amount = 0
		if bal.TotalClaimed, err = addAmount(bal.TotalClaimed, amount); err != nil {
			return err
		}
		bal.UpdatedAt = now
		if err := tx.Claimables().Save(ctx, bal); err != nil {
			return err
		}
		if err := enqueueEvent(ctx, tx, l.cfg, domain.EventRewardsClaimed, actor.RequestID, contracts.RewardsClaimedPayload{
			Beneficiary: beneficiary.String(), Amount: amount, ClaimedAt: formatTime(now),
		}, beneficiary.String(), now); err != nil {
			return err
		}
		out = ClaimResult{Beneficiary: beneficiary, Amount: amount}

		if err := l.medium.Transfer(ports.Interacting(ctx), l.custody, beneficiary, amount); err != nil {
			return fmt.Errorf("pay out rewards: %w", err)
		}
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}
	return out, nil
}

func (l *EscrowLedger) GetEscrow(ctx context.Context, advertiser domain.Account) (domain.EscrowAccount, error) {
	var out domain.EscrowAccount
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		out, err = tx.Escrow().Get(ctx, advertiser)
		return err
	})
	return out, err
}

func (l *EscrowLedger) EscrowBalance(ctx context.Context, advertiser domain.Account) (int64, error) {
	e, err := l.GetEscrow(ctx, advertiser)
	return e.Balance, err
}

func (l *EscrowLedger) ClaimableRewards(ctx context.Context, account domain.Account) (int64, error) {
	var out int64
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		bal, err := tx.Claimables().Get(ctx, account)
		out = bal.Amount
		return err
	})
	return out, err
}

// Liabilities is the total the custody account must hold: every escrow
// balance plus every unclaimed reward.
func (l *EscrowLedger) Liabilities(ctx context.Context) (int64, error) {
	var out int64
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		escrow, err := tx.Escrow().Total(ctx)
		if err != nil {
			return err
		}
		claimable, err := tx.Claimables().Total(ctx)
		if err != nil {
			return err
		}
		out = escrow + claimable
		return nil
	})
	return out, err
}

func (l *EscrowLedger) requireEngine(ctx context.Context, tx ports.Tx, caller domain.Account) error {
	raw, ok, err := tx.Settings().Get(ctx, ports.SettingSettlementEngine)
	if err != nil {
		return err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.ErrEngineNotConfigured
	}
	if caller.IsZero() || domain.Account(raw) != caller {
		return domain.ErrUnauthorized
	}
	return nil
}
