package memory

import (
	"context"
	"sync"

	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

// Store keeps the whole ledger in process memory. Transactions are serialized
// by one mutex and run against a copy of the state that replaces the live
// state only when fn returns nil.
type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if open, interacting, ok := ports.TxFromContext(ctx); ok {
		if interacting {
			return domain.ErrReentrantCall
		}
		if t, mine := open.(*tx); mine && t.store == s {
			return fn(ctx, open)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{store: s, st: s.state.clone()}
	if err := fn(ports.ContextWithTx(ctx, t), t); err != nil {
		return err
	}
	s.state = t.st
	return nil
}

type tx struct {
	store *Store
	st    *state
}

func (t *tx) Roles() ports.RoleRepository           { return roleRepository{t.st} }
func (t *tx) Parties() ports.PartyRepository        { return partyRepository{t.st} }
func (t *tx) Policies() ports.PolicyRepository      { return policyRepository{t.st} }
func (t *tx) Escrow() ports.EscrowRepository        { return escrowRepository{t.st} }
func (t *tx) Claimables() ports.ClaimableRepository { return claimableRepository{t.st} }
func (t *tx) Orders() ports.OrderRepository         { return orderRepository{t.st} }
func (t *tx) Settings() ports.SettingsRepository    { return settingsRepository{t.st} }
func (t *tx) Outbox() ports.OutboxRepository        { return outboxRepository{t.st} }
