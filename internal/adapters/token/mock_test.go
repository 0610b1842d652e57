package token

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/viralforge/reelpay/internal/domain"
)

func TestTransferFromConsumesAllowance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMock("", DefaultDecimals)
	if err := m.Mint(ctx, "alice", 1000); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := m.Approve(ctx, "alice", "vault", 600); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := m.TransferFrom(ctx, "vault", "alice", "vault", 400); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if got, _ := m.Allowance(ctx, "alice", "vault"); got != 200 {
		t.Fatalf("expected remaining allowance 200, got %d", got)
	}
	if err := m.TransferFrom(ctx, "vault", "alice", "vault", 300); !errors.Is(err, domain.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if got, _ := m.BalanceOf(ctx, "vault"); got != 400 {
		t.Fatalf("expected vault balance 400, got %d", got)
	}
}

func TestTransferRejectsOverdraft(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMock("", DefaultDecimals)
	_ = m.Mint(ctx, "alice", 10)
	if err := m.Transfer(ctx, "alice", "bob", 11); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got, _ := m.BalanceOf(ctx, "alice"); got != 10 {
		t.Fatalf("balance changed on failed transfer: %d", got)
	}
}

func TestToUnits(t *testing.T) {
	t.Parallel()
	got, err := ToUnits(decimal.RequireFromString("12.5"), 6)
	if err != nil || got != 12_500_000 {
		t.Fatalf("expected 12500000, got %d (%v)", got, err)
	}
	if _, err := ToUnits(decimal.RequireFromString("0.0000001"), 6); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected sub-unit amount to be rejected, got %v", err)
	}
	m := NewMock("", 6)
	if s := m.FromUnits(1_500_000).String(); s != "1.5" {
		t.Fatalf("expected 1.5, got %s", s)
	}
}
