package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/viralforge/reelpay/internal/contracts"
	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

// Engine settles orders. Each order id moves from unseen to processed at most
// once; a replay fails with domain.ErrOrderAlreadyProcessed and changes nothing.
type Engine struct {
	cfg       Config
	store     ports.Store
	medium    ports.ValueTransfer
	authority ports.RoleChecker
	registry  *Registry
	ledger    *EscrowLedger
	self      domain.Account
	nowFn     func() time.Time
}

func NewEngine(deps Dependencies, self domain.Account, authority ports.RoleChecker, registry *Registry, ledger *EscrowLedger) *Engine {
	return &Engine{
		cfg:       normalizeConfig(deps.Config),
		store:     deps.Store,
		medium:    deps.Medium,
		authority: authority,
		registry:  registry,
		ledger:    ledger,
		self:      domain.NormalizeAccount(self.String()),
		nowFn:     utcNow,
	}
}

// Account is the identity the engine presents to the escrow ledger.
func (e *Engine) Account() domain.Account { return e.self }

// SubmitApprovedOrder settles an attested order out of the advertiser's
// escrow. Only the two commission cuts leave escrow; the advertiser's share
// stays there.
func (e *Engine) SubmitApprovedOrder(ctx context.Context, actor Actor, input SubmitApprovedOrderInput) (domain.OrderRecord, error) {
	actor = actor.normalized()
	buyer := domain.NormalizeAccount(input.Buyer)
	var out domain.OrderRecord
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := requireRole(ctx, e.authority, domain.RoleBackend, actor.Account); err != nil {
			return err
		}
		in, err := normalizeOrder(input.OrderID, input.ProductID, input.Advertiser, input.Marketer, input.Amount)
		if err != nil {
			return err
		}
		split, platform, err := e.prepare(ctx, tx, in)
		if err != nil {
			return err
		}
		if _, err := e.ledger.DebitEscrow(ctx, e.self, in.advertiser, split.Distributed()); err != nil {
			return err
		}
		if err := e.creditCuts(ctx, in.marketer, platform, split); err != nil {
			return err
		}
		out, err = e.record(ctx, tx, actor, in, domain.FlowDeferred, buyer, platform, split)
		return err
	})
	if err != nil {
		return domain.OrderRecord{}, err
	}
	return out, nil
}

// ProcessDirectPayment settles a buyer-paid order immediately. The buyer's
// own authorization on the medium is the only permission required.
func (e *Engine) ProcessDirectPayment(ctx context.Context, actor Actor, input DirectPaymentInput) (domain.OrderRecord, error) {
	actor = actor.normalized()
	buyer := actor.Account
	if buyer.IsZero() {
		return domain.OrderRecord{}, domain.ErrUnauthorized
	}
	in, err := normalizeOrder(input.OrderID, input.ProductID, input.Advertiser, input.Marketer, input.Amount)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	custody := e.ledger.Custody()
	var out domain.OrderRecord
	err = e.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		split, platform, err := e.prepare(ctx, tx, in)
		if err != nil {
			return err
		}
		allowance, err := e.medium.Allowance(ctx, buyer, custody)
		if err != nil {
			return fmt.Errorf("read allowance: %w", err)
		}
		if allowance < in.amount {
			return domain.ErrInsufficientAllowance
		}
		balance, err := e.medium.BalanceOf(ctx, buyer)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		if balance < in.amount {
			return domain.ErrInsufficientBalance
		}

		if err := e.creditCuts(ctx, in.marketer, platform, split); err != nil {
			return err
		}
		if out, err = e.record(ctx, tx, actor, in, domain.FlowDirect, buyer, platform, split); err != nil {
			return err
		}

		ictx := ports.Interacting(ctx)
		if err := e.medium.TransferFrom(ictx, custody, buyer, custody, in.amount); err != nil {
			return fmt.Errorf("pull direct payment: %w", err)
		}
		if split.AdvertiserShare == 0 {
			return nil
		}
		if err := e.medium.Transfer(ictx, custody, in.advertiser, split.AdvertiserShare); err != nil {
			if refundErr := e.medium.Transfer(ictx, custody, buyer, in.amount); refundErr != nil {
				return fmt.Errorf("pay advertiser share: %w (refund failed: %v)", err, refundErr)
			}
			return fmt.Errorf("pay advertiser share: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.OrderRecord{}, err
	}
	return out, nil
}

func (e *Engine) GetOrder(ctx context.Context, orderID string) (domain.OrderRecord, error) {
	orderID = domain.NormalizeID(orderID)
	if orderID == "" {
		return domain.OrderRecord{}, domain.ErrInvalidInput
	}
	var out domain.OrderRecord
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		out, err = tx.Orders().Get(ctx, orderID)
		return err
	})
	return out, err
}

func (e *Engine) IsProcessed(ctx context.Context, orderID string) (bool, error) {
	_, err := e.GetOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

type orderInput struct {
	orderID    string
	productID  string
	advertiser domain.Account
	marketer   domain.Account
	amount     int64
}

func normalizeOrder(orderID, productID, advertiser, marketer string, amount int64) (orderInput, error) {
	in := orderInput{
		orderID:    domain.NormalizeID(orderID),
		productID:  domain.NormalizeID(productID),
		advertiser: domain.NormalizeAccount(advertiser),
		marketer:   domain.NormalizeAccount(marketer),
		amount:     amount,
	}
	if in.orderID == "" || in.productID == "" || in.advertiser.IsZero() || in.marketer.IsZero() {
		return orderInput{}, domain.ErrInvalidInput
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return orderInput{}, err
	}
	return in, nil
}

// prepare runs every check shared by both flows: replay guard, registered
// parties, policy resolution and the split itself.
func (e *Engine) prepare(ctx context.Context, tx ports.Tx, in orderInput) (domain.Split, domain.Account, error) {
	if _, err := tx.Orders().Get(ctx, in.orderID); err == nil {
		return domain.Split{}, "", domain.ErrOrderAlreadyProcessed
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Split{}, "", err
	}
	policy, err := e.registry.resolveInTx(ctx, tx, in.productID, in.advertiser)
	if err != nil {
		return domain.Split{}, "", err
	}
	if _, err := e.registry.marketer(ctx, tx, in.marketer); err != nil {
		return domain.Split{}, "", err
	}
	platform, err := e.registry.platformWallet(ctx, tx)
	if err != nil {
		return domain.Split{}, "", err
	}
	split, err := domain.ComputeSplit(in.amount, policy.MarketerBps, policy.PlatformBps)
	if err != nil {
		return domain.Split{}, "", err
	}
	return split, platform, nil
}

func (e *Engine) creditCuts(ctx context.Context, marketer, platform domain.Account, split domain.Split) error {
	if _, err := e.ledger.Credit(ctx, e.self, marketer, split.MarketerCut); err != nil {
		return err
	}
	_, err := e.ledger.Credit(ctx, e.self, platform, split.PlatformCut)
	return err
}

func (e *Engine) record(ctx context.Context, tx ports.Tx, actor Actor, in orderInput, flow domain.SettlementFlow, buyer, platform domain.Account, split domain.Split) (domain.OrderRecord, error) {
	now := e.nowFn()
	rec := domain.OrderRecord{
		OrderID:     in.orderID,
		Flow:        flow,
		ProductID:   in.productID,
		Advertiser:  in.advertiser,
		Marketer:    in.marketer,
		Buyer:       buyer,
		Amount:      in.amount,
		Split:       split,
		Platform:    platform,
		SubmittedBy: actor.Account,
		ProcessedAt: now,
	}
	if err := tx.Orders().Create(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.OrderRecord{}, domain.ErrOrderAlreadyProcessed
		}
		return domain.OrderRecord{}, err
	}
	if err := enqueueEvent(ctx, tx, e.cfg, domain.EventOrderSettled, actor.RequestID, contracts.OrderSettledPayload{
		OrderID: rec.OrderID, Flow: string(flow), ProductID: rec.ProductID, Advertiser: rec.Advertiser.String(),
		Marketer: rec.Marketer.String(), Buyer: rec.Buyer.String(), Platform: platform.String(), Amount: rec.Amount,
		MarketerCut: split.MarketerCut, PlatformCut: split.PlatformCut, AdvertiserShare: split.AdvertiserShare,
		ProcessedAt: formatTime(now),
	}, rec.OrderID, now); err != nil {
		return domain.OrderRecord{}, err
	}
	return rec, nil
}

// HandleOrderApproved settles one commerce.order_approved envelope on behalf
// of backend. A replayed order id is acknowledged without error so that the
// consumer can commit its offset.
func (e *Engine) HandleOrderApproved(ctx context.Context, backend Actor, raw []byte) error {
	var env contracts.EventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.ErrInvalidInput
	}
	if err := validateEnvelope(env); err != nil {
		return err
	}
	if !domain.IsCanonicalInputEvent(env.EventType) {
		return domain.ErrInvalidInput
	}
	var payload contracts.OrderApprovedPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return domain.ErrInvalidInput
	}
	if backend.RequestID == "" {
		backend.RequestID = env.TraceID
	}
	_, err := e.SubmitApprovedOrder(ctx, backend, SubmitApprovedOrderInput{
		OrderID:    payload.OrderID,
		ProductID:  payload.ProductID,
		Advertiser: payload.Advertiser,
		Marketer:   payload.Marketer,
		Buyer:      payload.Buyer,
		Amount:     payload.Amount,
	})
	if errors.Is(err, domain.ErrOrderAlreadyProcessed) {
		return nil
	}
	return err
}
