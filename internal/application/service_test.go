package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/viralforge/reelpay/internal/adapters/cache"
	"github.com/viralforge/reelpay/internal/adapters/memory"
	"github.com/viralforge/reelpay/internal/adapters/token"
	"github.com/viralforge/reelpay/internal/application"
	"github.com/viralforge/reelpay/internal/contracts"
	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

const (
	deployer   domain.Account = "0xdeployer"
	backend    domain.Account = "0xbackend"
	platform   domain.Account = "0xplatform"
	custody    domain.Account = "0xescrowledger"
	engineAcct domain.Account = "0xsettlementengine"
	advertiser domain.Account = "0xadvertiser"
	marketer   domain.Account = "0xmarketer"
	buyer      domain.Account = "0xbuyer"
	product                   = "product-1"
)

type fixture struct {
	store     *memory.Store
	token     *token.Mock
	medium    ports.ValueTransfer
	authority *application.Authority
	registry  *application.Registry
	ledger    *application.EscrowLedger
	engine    *application.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithMedium(t, nil)
}

// newFixtureWithMedium lets a test wrap the mock token, e.g. to inject
// failures or reentrant calls.
func newFixtureWithMedium(t *testing.T, wrap func(*token.Mock) ports.ValueTransfer) *fixture {
	t.Helper()
	return buildFixture(t, wrap, nil)
}

func newFixtureWithCache(t *testing.T, c ports.Cache) *fixture {
	t.Helper()
	return buildFixture(t, nil, c)
}

func buildFixture(t *testing.T, wrap func(*token.Mock) ports.ValueTransfer, c ports.Cache) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memory.NewStore(), token: token.NewMock("KRWT", token.DefaultDecimals)}
	f.medium = f.token
	if wrap != nil {
		f.medium = wrap(f.token)
	}
	deps := application.Dependencies{Store: f.store, Medium: f.medium, Cache: c}
	f.authority = application.NewAuthority(deps)
	f.registry = application.NewRegistry(deps, f.authority)
	f.ledger = application.NewEscrowLedger(deps, custody, f.authority, f.registry)
	f.engine = application.NewEngine(deps, engineAcct, f.authority, f.registry, f.ledger)

	admin := application.Actor{Account: deployer}
	if err := f.authority.Bootstrap(ctx, deployer); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := f.authority.GrantRole(ctx, admin, domain.RoleBackend, backend); err != nil {
		t.Fatalf("GrantRole: %v", err)
	}
	if err := f.registry.SetPlatformWallet(ctx, admin, platform); err != nil {
		t.Fatalf("SetPlatformWallet: %v", err)
	}
	if err := f.ledger.SetSettlementEngine(ctx, admin, f.engine.Account()); err != nil {
		t.Fatalf("SetSettlementEngine: %v", err)
	}
	if _, err := f.registry.RegisterAdvertiser(ctx, admin, application.RegisterAdvertiserInput{Account: advertiser.String(), Name: "Acme", DefaultRateBps: 500, MinTopUp: 1000}); err != nil {
		t.Fatalf("RegisterAdvertiser: %v", err)
	}
	if _, err := f.registry.RegisterMarketer(ctx, admin, application.RegisterMarketerInput{Account: marketer.String(), Handle: "@reels"}); err != nil {
		t.Fatalf("RegisterMarketer: %v", err)
	}
	if _, err := f.registry.SetCommissionPolicy(ctx, admin, application.SetCommissionPolicyInput{ProductID: product, MarketerRateBps: 1000, PlatformRateBps: 200, Active: true}); err != nil {
		t.Fatalf("SetCommissionPolicy: %v", err)
	}
	return f
}

func (f *fixture) fundEscrow(t *testing.T, amount int64) {
	t.Helper()
	ctx := context.Background()
	if err := f.token.Mint(ctx, advertiser, amount); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := f.token.Approve(ctx, advertiser, custody, amount); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.ledger.DepositEscrow(ctx, application.Actor{Account: advertiser}, amount); err != nil {
		t.Fatalf("DepositEscrow: %v", err)
	}
}

func (f *fixture) fundBuyer(t *testing.T, amount int64) {
	t.Helper()
	ctx := context.Background()
	if err := f.token.Mint(ctx, buyer, amount); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := f.token.Approve(ctx, buyer, custody, amount); err != nil {
		t.Fatalf("Approve: %v", err)
	}
}

func order(id string, amount int64) application.SubmitApprovedOrderInput {
	return application.SubmitApprovedOrderInput{OrderID: id, ProductID: product, Advertiser: advertiser.String(), Marketer: marketer.String(), Buyer: buyer.String(), Amount: amount}
}

func direct(id string, amount int64) application.DirectPaymentInput {
	return application.DirectPaymentInput{OrderID: id, ProductID: product, Advertiser: advertiser.String(), Marketer: marketer.String(), Amount: amount}
}

type snapshot struct {
	escrow, marketer, platform      int64
	custodyTokens, advertiserTokens int64
	buyerTokens                     int64
}

func (f *fixture) snapshot(t *testing.T) snapshot {
	t.Helper()
	ctx := context.Background()
	var s snapshot
	var err error
	if s.escrow, err = f.ledger.EscrowBalance(ctx, advertiser); err != nil {
		t.Fatalf("EscrowBalance: %v", err)
	}
	if s.marketer, err = f.ledger.ClaimableRewards(ctx, marketer); err != nil {
		t.Fatalf("ClaimableRewards: %v", err)
	}
	if s.platform, err = f.ledger.ClaimableRewards(ctx, platform); err != nil {
		t.Fatalf("ClaimableRewards: %v", err)
	}
	s.custodyTokens, _ = f.token.BalanceOf(ctx, custody)
	s.advertiserTokens, _ = f.token.BalanceOf(ctx, advertiser)
	s.buyerTokens, _ = f.token.BalanceOf(ctx, buyer)
	return s
}

func (f *fixture) assertCustodyCovered(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	liabilities, err := f.ledger.Liabilities(ctx)
	if err != nil {
		t.Fatalf("Liabilities: %v", err)
	}
	held, _ := f.token.BalanceOf(ctx, custody)
	if held != liabilities {
		t.Fatalf("custody holds %d but owes %d", held, liabilities)
	}
}

func TestDeferredSettlementSplitsOutOfEscrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundEscrow(t, 500_000)

	rec, err := f.engine.SubmitApprovedOrder(ctx, application.Actor{Account: backend}, order("order-1", 100_000))
	if err != nil {
		t.Fatalf("SubmitApprovedOrder: %v", err)
	}
	if rec.Split.MarketerCut != 10_000 || rec.Split.PlatformCut != 2_000 || rec.Split.AdvertiserShare != 88_000 {
		t.Fatalf("unexpected split: %+v", rec.Split)
	}
	s := f.snapshot(t)
	if s.marketer != 10_000 || s.platform != 2_000 || s.escrow != 488_000 {
		t.Fatalf("unexpected balances: %+v", s)
	}
	if rec.Flow != domain.FlowDeferred || rec.Status() != domain.OrderStatusProcessed {
		t.Fatalf("unexpected record: %+v", rec)
	}
	f.assertCustodyCovered(t)
}

func TestDirectPaymentPaysAdvertiserImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundBuyer(t, 50_000)
	before := f.snapshot(t)

	if _, err := f.engine.ProcessDirectPayment(ctx, application.Actor{Account: buyer}, direct("order-pvr", 50_000)); err != nil {
		t.Fatalf("ProcessDirectPayment: %v", err)
	}
	after := f.snapshot(t)
	if after.marketer-before.marketer != 5_000 || after.platform-before.platform != 1_000 {
		t.Fatalf("unexpected claimables: before=%+v after=%+v", before, after)
	}
	if after.advertiserTokens-before.advertiserTokens != 44_000 {
		t.Fatalf("expected advertiser +44000, got %+d", after.advertiserTokens-before.advertiserTokens)
	}
	if after.buyerTokens != 0 || after.escrow != before.escrow {
		t.Fatalf("unexpected balances: %+v", after)
	}
	f.assertCustodyCovered(t)
}

func TestReplayedOrderIsRejectedWithoutChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundEscrow(t, 500_000)
	actor := application.Actor{Account: backend}
	if _, err := f.engine.SubmitApprovedOrder(ctx, actor, order("order-2", 100_000)); err != nil {
		t.Fatalf("SubmitApprovedOrder: %v", err)
	}
	before := f.snapshot(t)
	if _, err := f.engine.SubmitApprovedOrder(ctx, actor, order("order-2", 100_000)); !errors.Is(err, domain.ErrOrderAlreadyProcessed) {
		t.Fatalf("expected ErrOrderAlreadyProcessed, got %v", err)
	}
	f.fundBuyer(t, 100_000)
	before.buyerTokens = 100_000
	if _, err := f.engine.ProcessDirectPayment(ctx, application.Actor{Account: buyer}, direct("order-2", 100_000)); !errors.Is(err, domain.ErrOrderAlreadyProcessed) {
		t.Fatalf("expected ErrOrderAlreadyProcessed across flows, got %v", err)
	}
	if after := f.snapshot(t); after != before {
		t.Fatalf("replay changed state: before=%+v after=%+v", before, after)
	}
}

func TestConcurrentReplaySettlesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundEscrow(t, 500_000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, replays := 0, 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.SubmitApprovedOrder(ctx, application.Actor{Account: backend}, order("order-race", 100_000))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrOrderAlreadyProcessed):
				replays++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if successes != 1 || replays != 15 {
		t.Fatalf("expected 1 success and 15 replays, got %d and %d", successes, replays)
	}
	if s := f.snapshot(t); s.escrow != 488_000 {
		t.Fatalf("expected escrow 488000, got %d", s.escrow)
	}
}

func TestUnauthorizedSubmissionChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundEscrow(t, 500_000)
	before := f.snapshot(t)

	if _, err := f.engine.SubmitApprovedOrder(ctx, application.Actor{Account: marketer}, order("order-3", 100_000)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.engine.SubmitApprovedOrder(ctx, application.Actor{Account: marketer}, order("order-3", 0)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized regardless of input, got %v", err)
	}
	if after := f.snapshot(t); after != before {
		t.Fatalf("state changed: before=%+v after=%+v", before, after)
	}
	if ok, err := f.engine.IsProcessed(ctx, "order-3"); err != nil || ok {
		t.Fatalf("expected order unseen, got processed=%v err=%v", ok, err)
	}
}

func TestUnderfundedEscrowLeavesOrderUnseen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundEscrow(t, 1_000)
	before := f.snapshot(t)

	if _, err := f.engine.SubmitApprovedOrder(ctx, application.Actor{Account: backend}, order("order-4", 100_000)); !errors.Is(err, domain.ErrInsufficientEscrow) {
		t.Fatalf("expected ErrInsufficientEscrow, got %v", err)
	}
	if after := f.snapshot(t); after != before {
		t.Fatalf("state changed: before=%+v after=%+v", before, after)
	}
	if _, err := f.engine.GetOrder(ctx, "order-4"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimRewardsOnceThenNothingToClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundEscrow(t, 500_000)
	if _, err := f.engine.SubmitApprovedOrder(ctx, application.Actor{Account: backend}, order("order-5", 100_000)); err != nil {
		t.Fatalf("SubmitApprovedOrder: %v", err)
	}
	res, err := f.ledger.ClaimRewards(ctx, application.Actor{Account: marketer})
	if err != nil {
		t.Fatalf("ClaimRewards: %v", err)
	}
	if res.Amount != 10_000 {
		t.Fatalf("expected 10000 claimed, got %d", res.Amount)
	}
	if got, _ := f.token.BalanceOf(ctx, marketer); got != 10_000 {
		t.Fatalf("expected marketer tokens 10000, got %d", got)
	}
	if _, err := f.ledger.ClaimRewards(ctx, application.Actor{Account: marketer}); !errors.Is(err, domain.ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim, got %v", err)
	}
	f.assertCustodyCovered(t)
}

type reentrantMedium struct {
	*token.Mock
	reenter func(ctx context.Context) error
	err     error
}

func (m *reentrantMedium) Transfer(ctx context.Context, from, to domain.Account, amount int64) error {
	if m.reenter != nil {
		m.err = m.reenter(ctx)
	}
	return m.Mock.Transfer(ctx, from, to, amount)
}

func TestReentrantClaimIsRejected(t *testing.T) {
	var medium *reentrantMedium
	f := newFixtureWithMedium(t, func(m *token.Mock) ports.ValueTransfer {
		medium = &reentrantMedium{Mock: m}
		return medium
	})
	ctx := context.Background()
	f.fundEscrow(t, 500_000)
	if _, err := f.engine.SubmitApprovedOrder(ctx, application.Actor{Account: backend}, order("order-6", 100_000)); err != nil {
		t.Fatalf("SubmitApprovedOrder: %v", err)
	}
	medium.reenter = func(ctx context.Context) error {
		_, err := f.ledger.ClaimRewards(ctx, application.Actor{Account: marketer})
		return err
	}
	res, err := f.ledger.ClaimRewards(ctx, application.Actor{Account: marketer})
	if err != nil {
		t.Fatalf("ClaimRewards: %v", err)
	}
	if !errors.Is(medium.err, domain.ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall from nested claim, got %v", medium.err)
	}
	if got, _ := f.token.BalanceOf(ctx, marketer); got != res.Amount || res.Amount != 10_000 {
		t.Fatalf("expected a single payout of 10000, got %d tokens for claim %d", got, res.Amount)
	}
	f.assertCustodyCovered(t)
}

type failingPushMedium struct {
	*token.Mock
	failTo domain.Account
}

func (m *failingPushMedium) Transfer(ctx context.Context, from, to domain.Account, amount int64) error {
	if to == m.failTo {
		return errors.New("recipient rejected transfer")
	}
	return m.Mock.Transfer(ctx, from, to, amount)
}

func TestDirectPaymentRefundsWhenAdvertiserPushFails(t *testing.T) {
	f := newFixtureWithMedium(t, func(m *token.Mock) ports.ValueTransfer {
		return &failingPushMedium{Mock: m, failTo: advertiser}
	})
	ctx := context.Background()
	f.fundBuyer(t, 50_000)
	before := f.snapshot(t)

	if _, err := f.engine.ProcessDirectPayment(ctx, application.Actor{Account: buyer}, direct("order-7", 50_000)); err == nil {
		t.Fatalf("expected ProcessDirectPayment to fail")
	}
	if after := f.snapshot(t); after != before {
		t.Fatalf("state changed: before=%+v after=%+v", before, after)
	}
	if ok, _ := f.engine.IsProcessed(ctx, "order-7"); ok {
		t.Fatalf("expected order-7 unseen")
	}
}

func TestDirectPaymentRequiresAllowance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.token.Mint(ctx, buyer, 50_000)
	if _, err := f.engine.ProcessDirectPayment(ctx, application.Actor{Account: buyer}, direct("order-8", 50_000)); !errors.Is(err, domain.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	_ = f.token.Approve(ctx, buyer, custody, 80_000)
	if _, err := f.engine.ProcessDirectPayment(ctx, application.Actor{Account: buyer}, direct("order-8", 80_000)); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestDepositEscrowEnforcesMinimumOnFirstDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := application.Actor{Account: advertiser}
	_ = f.token.Mint(ctx, advertiser, 10_000)
	_ = f.token.Approve(ctx, advertiser, custody, 10_000)

	if _, err := f.ledger.DepositEscrow(ctx, actor, 999); !errors.Is(err, domain.ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	if _, err := f.ledger.DepositEscrow(ctx, actor, 1000); err != nil {
		t.Fatalf("DepositEscrow: %v", err)
	}
	if _, err := f.ledger.DepositEscrow(ctx, actor, 10); err != nil {
		t.Fatalf("top-up after first deposit: %v", err)
	}
	if got, _ := f.ledger.EscrowBalance(ctx, advertiser); got != 1010 {
		t.Fatalf("expected escrow 1010, got %d", got)
	}
	f.assertCustodyCovered(t)
}

func TestDepositEscrowEveryDepositScope(t *testing.T) {
	store := memory.NewStore()
	mock := token.NewMock("", token.DefaultDecimals)
	deps := application.Dependencies{Store: store, Medium: mock, Config: application.Config{MinimumTopUpScope: domain.MinimumTopUpEveryDeposit}}
	authority := application.NewAuthority(deps)
	registry := application.NewRegistry(deps, authority)
	ledger := application.NewEscrowLedger(deps, custody, authority, registry)
	ctx := context.Background()
	_ = authority.Bootstrap(ctx, deployer)
	if _, err := registry.RegisterAdvertiser(ctx, application.Actor{Account: deployer}, application.RegisterAdvertiserInput{Account: advertiser.String(), Name: "Acme", DefaultRateBps: 500, MinTopUp: 1000}); err != nil {
		t.Fatalf("RegisterAdvertiser: %v", err)
	}
	_ = mock.Mint(ctx, advertiser, 10_000)
	_ = mock.Approve(ctx, advertiser, custody, 10_000)
	actor := application.Actor{Account: advertiser}
	if _, err := ledger.DepositEscrow(ctx, actor, 1000); err != nil {
		t.Fatalf("DepositEscrow: %v", err)
	}
	if _, err := ledger.DepositEscrow(ctx, actor, 10); !errors.Is(err, domain.ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
}

func TestDepositEscrowRequiresAllowanceAndRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.token.Mint(ctx, advertiser, 10_000)
	if _, err := f.ledger.DepositEscrow(ctx, application.Actor{Account: advertiser}, 5_000); !errors.Is(err, domain.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if _, err := f.ledger.DepositEscrow(ctx, application.Actor{Account: buyer}, 5_000); !errors.Is(err, domain.ErrUnknownAdvertiser) {
		t.Fatalf("expected ErrUnknownAdvertiser, got %v", err)
	}
	if got, _ := f.token.BalanceOf(ctx, custody); got != 0 {
		t.Fatalf("custody received tokens on failed deposit: %d", got)
	}
}

func TestEscrowMutationsAreReservedForEngine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundEscrow(t, 5_000)
	if _, err := f.ledger.DebitEscrow(ctx, backend, advertiser, 100); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.ledger.Credit(ctx, deployer, marketer, 100); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.ledger.Credit(ctx, engineAcct, marketer, 0); err != nil {
		t.Fatalf("zero credit: %v", err)
	}
	if got, _ := f.ledger.ClaimableRewards(ctx, marketer); got != 0 {
		t.Fatalf("expected no credit, got %d", got)
	}
}

func TestDefaultRateAppliesWithoutActivePolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := application.Actor{Account: deployer}

	resolved, err := f.registry.ResolvePolicy(ctx, "unlisted", advertiser)
	if err != nil {
		t.Fatalf("ResolvePolicy: %v", err)
	}
	if resolved.MarketerBps != 500 || resolved.PlatformBps != 0 || resolved.FromPolicy {
		t.Fatalf("expected advertiser default, got %+v", resolved)
	}
	if _, err := f.registry.SetCommissionPolicy(ctx, admin, application.SetCommissionPolicyInput{ProductID: product, MarketerRateBps: 3000, PlatformRateBps: 100, Active: false}); err != nil {
		t.Fatalf("SetCommissionPolicy: %v", err)
	}
	resolved, err = f.registry.ResolvePolicy(ctx, product, advertiser)
	if err != nil || resolved.MarketerBps != 500 || resolved.PlatformBps != 0 {
		t.Fatalf("inactive policy should fall back to default, got %+v (%v)", resolved, err)
	}
	if _, err := f.registry.ResolvePolicy(ctx, product, buyer); !errors.Is(err, domain.ErrUnknownAdvertiser) {
		t.Fatalf("expected ErrUnknownAdvertiser, got %v", err)
	}
}

func TestInvalidRateLeavesPolicyUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := application.Actor{Account: deployer}
	if _, err := f.registry.SetCommissionPolicy(ctx, admin, application.SetCommissionPolicyInput{ProductID: product, MarketerRateBps: 9000, PlatformRateBps: 1001, Active: true}); !errors.Is(err, domain.ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
	p, err := f.registry.GetCommissionPolicy(ctx, product)
	if err != nil {
		t.Fatalf("GetCommissionPolicy: %v", err)
	}
	if p.MarketerRateBps != 1000 || p.PlatformRateBps != 200 {
		t.Fatalf("policy changed: %+v", p)
	}
	if _, err := f.registry.RegisterAdvertiser(ctx, admin, application.RegisterAdvertiserInput{Account: "0xother", Name: "Other", DefaultRateBps: 10_001}); !errors.Is(err, domain.ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
	if _, err := f.registry.GetCommissionPolicy(ctx, "missing"); !errors.Is(err, domain.ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
}

func TestRegistryRejectsDuplicatesAndNonAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := application.Actor{Account: deployer}
	if _, err := f.registry.RegisterAdvertiser(ctx, admin, application.RegisterAdvertiserInput{Account: advertiser.String(), Name: "Again", DefaultRateBps: 100}); !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if _, err := f.registry.RegisterMarketer(ctx, admin, application.RegisterMarketerInput{Account: marketer.String(), Handle: "@again"}); !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if _, err := f.registry.RegisterMarketer(ctx, application.Actor{Account: backend}, application.RegisterMarketerInput{Account: "0xnew", Handle: "@new"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.registry.GetMarketer(ctx, "0xnew"); !errors.Is(err, domain.ErrUnknownMarketer) {
		t.Fatalf("expected ErrUnknownMarketer, got %v", err)
	}
}

func TestUnknownMarketerCannotEarn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundEscrow(t, 500_000)
	in := order("order-9", 100_000)
	in.Marketer = "0xstranger"
	if _, err := f.engine.SubmitApprovedOrder(ctx, application.Actor{Account: backend}, in); !errors.Is(err, domain.ErrUnknownMarketer) {
		t.Fatalf("expected ErrUnknownMarketer, got %v", err)
	}
}

func TestRoleAdministration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := application.Actor{Account: deployer}

	if err := f.authority.GrantRole(ctx, application.Actor{Account: backend}, domain.RoleAdmin, backend); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if ok, _ := f.authority.HasRole(ctx, domain.RoleAdmin, backend); ok {
		t.Fatalf("backend must not be admin")
	}
	if err := f.authority.RevokeRole(ctx, admin, domain.RoleBackend, backend); err != nil {
		t.Fatalf("RevokeRole: %v", err)
	}
	if ok, _ := f.authority.HasRole(ctx, domain.RoleBackend, backend); ok {
		t.Fatalf("backend role still present after revoke")
	}
	if err := f.authority.GrantRole(ctx, admin, domain.RoleBackend, backend); err != nil {
		t.Fatalf("GrantRole: %v", err)
	}
	if err := f.authority.RenounceRole(ctx, application.Actor{Account: backend}, domain.RoleBackend); err != nil {
		t.Fatalf("RenounceRole: %v", err)
	}
	if _, err := f.engine.SubmitApprovedOrder(ctx, application.Actor{Account: backend}, order("order-10", 1_000)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after renounce, got %v", err)
	}
	if err := f.authority.Bootstrap(ctx, "0xintruder"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for second bootstrap, got %v", err)
	}
}

func TestMutationsEnqueueOutboxEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fundEscrow(t, 500_000)
	if _, err := f.engine.SubmitApprovedOrder(ctx, application.Actor{Account: backend}, order("order-11", 100_000)); err != nil {
		t.Fatalf("SubmitApprovedOrder: %v", err)
	}
	counts := map[string]int{}
	err := f.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		rows, err := tx.Outbox().FetchUnpublished(ctx, 100)
		for _, row := range rows {
			counts[row.EventType]++
		}
		return err
	})
	if err != nil {
		t.Fatalf("FetchUnpublished: %v", err)
	}
	if counts[domain.EventOrderSettled] != 1 || counts[domain.EventEscrowDeposited] != 1 {
		t.Fatalf("unexpected outbox contents: %v", counts)
	}
	if counts[domain.EventRoleChanged] != 2 || counts[domain.EventPartyRegistered] != 2 {
		t.Fatalf("unexpected outbox contents: %v", counts)
	}
}

func orderApprovedMessage(t *testing.T, orderID string, amount int64) []byte {
	t.Helper()
	data, err := json.Marshal(contracts.OrderApprovedPayload{
		OrderID: orderID, ProductID: product, Advertiser: advertiser.String(),
		Marketer: marketer.String(), Buyer: buyer.String(), Amount: amount,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	raw, err := json.Marshal(contracts.EventEnvelope{
		EventID:       "evt-" + orderID,
		EventType:     domain.EventOrderApproved,
		OccurredAt:    time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		PartitionKey:  orderID,
		SourceService: "commerce-backend",
		TraceID:       "trace-" + orderID,
		SchemaVersion: "v1",
		Data:          data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func TestHandleOrderApprovedSettlesAndAcksReplays(t *testing.T) {
	f := newFixture(t)
	f.fundEscrow(t, 500_000)
	ctx := context.Background()
	msg := orderApprovedMessage(t, "order-kafka-1", 100_000)

	if err := f.engine.HandleOrderApproved(ctx, application.Actor{Account: backend}, msg); err != nil {
		t.Fatalf("HandleOrderApproved: %v", err)
	}
	if err := f.engine.HandleOrderApproved(ctx, application.Actor{Account: backend}, msg); err != nil {
		t.Fatalf("replay should be acknowledged, got %v", err)
	}
	s := f.snapshot(t)
	if s.escrow != 488_000 || s.marketer != 10_000 || s.platform != 2_000 {
		t.Fatalf("unexpected balances %+v", s)
	}
	rec, err := f.engine.GetOrder(ctx, "order-kafka-1")
	if err != nil || rec.Flow != domain.FlowDeferred || rec.SubmittedBy != backend {
		t.Fatalf("unexpected order record %+v err=%v", rec, err)
	}
}

func TestHandleOrderApprovedRejectsBadMessages(t *testing.T) {
	f := newFixture(t)
	f.fundEscrow(t, 500_000)
	ctx := context.Background()

	if err := f.engine.HandleOrderApproved(ctx, application.Actor{Account: backend}, []byte("{")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for malformed json, got %v", err)
	}

	var env contracts.EventEnvelope
	_ = json.Unmarshal(orderApprovedMessage(t, "order-kafka-2", 1_000), &env)
	env.EventType = domain.EventOrderSettled
	raw, _ := json.Marshal(env)
	if err := f.engine.HandleOrderApproved(ctx, application.Actor{Account: backend}, raw); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for foreign event type, got %v", err)
	}

	err := f.engine.HandleOrderApproved(ctx, application.Actor{Account: marketer}, orderApprovedMessage(t, "order-kafka-3", 1_000))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-backend actor, got %v", err)
	}
	if ok, _ := f.engine.IsProcessed(ctx, "order-kafka-3"); ok {
		t.Fatalf("rejected order must not be marked processed")
	}
}

// countingCache records how many lookups were answered from the cache.
type countingCache struct {
	*cache.MemoryCache
	hits int
}

func (c *countingCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := c.MemoryCache.Get(ctx, key)
	if ok {
		c.hits++
	}
	return v, ok, err
}

func TestResolvePolicyCacheIsInvalidatedByUpdates(t *testing.T) {
	c := &countingCache{MemoryCache: cache.NewMemoryCache()}
	f := newFixtureWithCache(t, c)
	ctx := context.Background()
	admin := application.Actor{Account: deployer}

	resolveAs := func(wantMarketer, wantPlatform int64) {
		t.Helper()
		got, err := f.registry.ResolvePolicy(ctx, product, advertiser)
		if err != nil {
			t.Fatalf("ResolvePolicy: %v", err)
		}
		if got.MarketerBps != wantMarketer || got.PlatformBps != wantPlatform {
			t.Fatalf("expected %d/%d, got %d/%d", wantMarketer, wantPlatform, got.MarketerBps, got.PlatformBps)
		}
	}

	resolveAs(1000, 200)
	before := c.hits
	resolveAs(1000, 200)
	if c.hits != before+2 {
		t.Fatalf("second resolve should be served from cache, hits %d -> %d", before, c.hits)
	}

	if _, err := f.registry.SetCommissionPolicy(ctx, admin, application.SetCommissionPolicyInput{ProductID: product, MarketerRateBps: 1000, PlatformRateBps: 200, Active: false}); err != nil {
		t.Fatalf("SetCommissionPolicy: %v", err)
	}
	resolveAs(500, 0)

	if _, err := f.registry.UpdateAdvertiser(ctx, admin, application.UpdateAdvertiserInput{Account: advertiser.String(), DefaultRateBps: 700, MinTopUp: 1000}); err != nil {
		t.Fatalf("UpdateAdvertiser: %v", err)
	}
	resolveAs(700, 0)
	resolveAs(700, 0)
}

func TestMixedCaseActorsMatchRegisteredAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.token.Mint(ctx, advertiser, 500_000); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := f.token.Approve(ctx, advertiser, custody, 500_000); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.ledger.DepositEscrow(ctx, application.Actor{Account: "0xADVERTISER"}, 500_000); err != nil {
		t.Fatalf("DepositEscrow: %v", err)
	}
	rec, err := f.engine.SubmitApprovedOrder(ctx, application.Actor{Account: "0xBackend"}, order("order-case", 100_000))
	if err != nil {
		t.Fatalf("SubmitApprovedOrder: %v", err)
	}
	if rec.SubmittedBy != backend {
		t.Fatalf("expected normalized submitter, got %q", rec.SubmittedBy)
	}
	res, err := f.ledger.ClaimRewards(ctx, application.Actor{Account: " 0xMarketer "})
	if err != nil || res.Amount != 10_000 {
		t.Fatalf("ClaimRewards: %+v %v", res, err)
	}
	if got, _ := f.token.BalanceOf(ctx, marketer); got != 10_000 {
		t.Fatalf("expected marketer tokens 10000, got %d", got)
	}

	f.fundBuyer(t, 50_000)
	if _, err := f.engine.ProcessDirectPayment(ctx, application.Actor{Account: "0xBUYER"}, direct("order-case-2", 50_000)); err != nil {
		t.Fatalf("ProcessDirectPayment: %v", err)
	}
	f.assertCustodyCovered(t)
}
