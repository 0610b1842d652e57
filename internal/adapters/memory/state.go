package memory

import (
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

type roleKey struct {
	role    domain.Role
	account domain.Account
}

type state struct {
	roles       map[roleKey]time.Time
	advertisers map[domain.Account]domain.Advertiser
	marketers   map[domain.Account]domain.Marketer
	policies    map[string]domain.CommissionPolicy
	escrow      map[domain.Account]domain.EscrowAccount
	claimables  map[domain.Account]domain.ClaimableBalance
	orders      map[string]domain.OrderRecord
	settings    map[string]string
	outbox      map[uuid.UUID]ports.OutboxRecord
	outboxOrder []uuid.UUID
}

func newState() *state {
	return &state{
		roles:       map[roleKey]time.Time{},
		advertisers: map[domain.Account]domain.Advertiser{},
		marketers:   map[domain.Account]domain.Marketer{},
		policies:    map[string]domain.CommissionPolicy{},
		escrow:      map[domain.Account]domain.EscrowAccount{},
		claimables:  map[domain.Account]domain.ClaimableBalance{},
		orders:      map[string]domain.OrderRecord{},
		settings:    map[string]string{},
		outbox:      map[uuid.UUID]ports.OutboxRecord{},
	}
}

// clone is shallow per row; rows are values and the outbox payloads are never
// mutated after enqueue.
func (s *state) clone() *state {
	return &state{
		roles:       maps.Clone(s.roles),
		advertisers: maps.Clone(s.advertisers),
		marketers:   maps.Clone(s.marketers),
		policies:    maps.Clone(s.policies),
		escrow:      maps.Clone(s.escrow),
		claimables:  maps.Clone(s.claimables),
		orders:      maps.Clone(s.orders),
		settings:    maps.Clone(s.settings),
		outbox:      maps.Clone(s.outbox),
		outboxOrder: append([]uuid.UUID(nil), s.outboxOrder...),
	}
}
