package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/viralforge/reelpay/internal/adapters/token"
	"github.com/viralforge/reelpay/internal/application"
	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

// Component nonces fix each component address for a given deployer.
const (
	nonceAuthority uint64 = iota
	nonceToken
	nonceRegistry
	nonceLedger
	nonceEngine
)

type DeployInput struct {
	Config   application.Config
	Store    ports.Store
	Medium   ports.ValueTransfer
	Cache    ports.Cache
	Deployer domain.Account
	Backend  domain.Account
	Platform domain.Account
}

type Deployment struct {
	Authority *application.Authority
	Registry  *application.Registry
	Ledger    *application.EscrowLedger
	Engine    *application.Engine
	Addresses map[string]domain.Account
}

// Artifact is the per-component descriptor written next to a deployment.
type Artifact struct {
	Address   string   `json:"address"`
	Interface []string `json:"interface"`
}

var componentInterfaces = map[string][]string{
	"AuthorityRegistry": {"hasRole", "grantRole", "revokeRole", "renounceRole"},
	"PartyRegistry": {
		"registerAdvertiser", "updateAdvertiser", "registerMarketer",
		"setCommissionPolicy", "setPlatformWallet", "getAdvertiser",
		"getMarketer", "getCommissionPolicy", "resolvePolicy", "platformWallet",
	},
	"EscrowLedger": {
		"setSettlementEngine", "depositEscrow", "debitEscrow", "credit",
		"claimRewards", "escrowBalance", "claimableRewards",
	},
	"SettlementEngine": {"submitApprovedOrder", "processDirectPayment", "isProcessed", "getOrder"},
	"Token":            {"balanceOf", "allowance", "approve", "transfer", "transferFrom", "mint"},
}

// Deploy wires the four components for a deployer and brings role and
// settings state up to date. Running it again against the same store is a
// no-op apart from re-granting BACKEND.
func Deploy(ctx context.Context, in DeployInput) (Deployment, error) {
	if in.Deployer.IsZero() {
		return Deployment{}, fmt.Errorf("deploy: %w", domain.ErrInvalidInput)
	}
	if in.Backend.IsZero() {
		in.Backend = in.Deployer
	}
	if in.Platform.IsZero() {
		in.Platform = in.Deployer
	}
	addrs := map[string]domain.Account{
		"AuthorityRegistry": domain.DeriveAddress(in.Deployer, nonceAuthority),
		"Token":             domain.DeriveAddress(in.Deployer, nonceToken),
		"PartyRegistry":     domain.DeriveAddress(in.Deployer, nonceRegistry),
		"EscrowLedger":      domain.DeriveAddress(in.Deployer, nonceLedger),
		"SettlementEngine":  domain.DeriveAddress(in.Deployer, nonceEngine),
	}

	deps := application.Dependencies{Config: in.Config, Store: in.Store, Medium: in.Medium, Cache: in.Cache}
	authority := application.NewAuthority(deps)
	registry := application.NewRegistry(deps, authority)
	ledger := application.NewEscrowLedger(deps, addrs["EscrowLedger"], authority, registry)
	engine := application.NewEngine(deps, addrs["SettlementEngine"], authority, registry, ledger)

	if err := authority.Bootstrap(ctx, in.Deployer); err != nil {
		return Deployment{}, fmt.Errorf("bootstrap admin: %w", err)
	}
	admin := application.Actor{Account: in.Deployer, RequestID: "deploy"}
	if err := authority.GrantRole(ctx, admin, domain.RoleBackend, in.Backend); err != nil {
		return Deployment{}, fmt.Errorf("grant backend: %w", err)
	}
	if _, err := registry.PlatformWallet(ctx); errors.Is(err, domain.ErrPlatformNotConfigured) {
		if err := registry.SetPlatformWallet(ctx, admin, in.Platform); err != nil {
			return Deployment{}, fmt.Errorf("set platform wallet: %w", err)
		}
	} else if err != nil {
		return Deployment{}, fmt.Errorf("read platform wallet: %w", err)
	}
	current, err := ledger.SettlementEngine(ctx)
	if err != nil && !errors.Is(err, domain.ErrEngineNotConfigured) {
		return Deployment{}, fmt.Errorf("read settlement engine: %w", err)
	}
	if current != engine.Account() {
		if err := ledger.SetSettlementEngine(ctx, admin, engine.Account()); err != nil {
			return Deployment{}, fmt.Errorf("set settlement engine: %w", err)
		}
	}

	return Deployment{
		Authority: authority,
		Registry:  registry,
		Ledger:    ledger,
		Engine:    engine,
		Addresses: addrs,
	}, nil
}

// WriteArtifacts writes one <Component>.json per component into dir.
func WriteArtifacts(dir string, d Deployment) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}
	for name, addr := range d.Addresses {
		raw, err := json.MarshalIndent(Artifact{Address: addr.String(), Interface: componentInterfaces[name]}, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name+".json"), append(raw, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s artifact: %w", name, err)
		}
	}
	return nil
}

// DeployConfigured opens the configured store and deploys against it without
// starting any server. The returned func releases the store.
func DeployConfigured(ctx context.Context, cfg Config) (Deployment, func(), error) {
	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		return Deployment{}, nil, err
	}
	release := func() {
		if closer != nil {
			_ = closer.Close()
		}
	}
	d, err := Deploy(ctx, DeployInput{
		Config:   appConfig(cfg),
		Store:    store,
		Medium:   token.NewMock(cfg.TokenSymbol, cfg.TokenDecimals),
		Deployer: cfg.Deployer,
		Backend:  cfg.BackendAccount,
		Platform: cfg.PlatformWallet,
	})
	if err != nil {
		release()
		return Deployment{}, nil, err
	}
	return d, release, nil
}

func appConfig(cfg Config) application.Config {
	return application.Config{
		ServiceName:       cfg.ServiceID,
		MinimumTopUpScope: cfg.MinimumTopUpScope,
		PolicyCacheTTL:    cfg.PolicyCacheTTL,
	}
}
