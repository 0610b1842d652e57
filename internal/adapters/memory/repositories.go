package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/reelpay/internal/domain"
	"github.com/viralforge/reelpay/internal/ports"
)

type roleRepository struct{ st *state }

func (r roleRepository) Has(_ context.Context, role domain.Role, account domain.Account) (bool, error) {
	_, ok := r.st.roles[roleKey{role, account}]
	return ok, nil
}

func (r roleRepository) Add(_ context.Context, role domain.Role, account domain.Account, at time.Time) error {
	r.st.roles[roleKey{role, account}] = at
	return nil
}

func (r roleRepository) Remove(_ context.Context, role domain.Role, account domain.Account) error {
	delete(r.st.roles, roleKey{role, account})
	return nil
}

func (r roleRepository) Count(_ context.Context, role domain.Role) (int64, error) {
	var n int64
	for k := range r.st.roles {
		if k.role == role {
			n++
		}
	}
	return n, nil
}

type partyRepository struct{ st *state }

func (r partyRepository) GetAdvertiser(_ context.Context, account domain.Account) (domain.Advertiser, error) {
	row, ok := r.st.advertisers[account]
	if !ok {
		return domain.Advertiser{}, domain.ErrNotFound
	}
	return row, nil
}

func (r partyRepository) CreateAdvertiser(_ context.Context, row domain.Advertiser) error {
	if _, ok := r.st.advertisers[row.Account]; ok {
		return domain.ErrConflict
	}
	r.st.advertisers[row.Account] = row
	return nil
}

func (r partyRepository) UpdateAdvertiser(_ context.Context, row domain.Advertiser) error {
	if _, ok := r.st.advertisers[row.Account]; !ok {
		return domain.ErrNotFound
	}
	r.st.advertisers[row.Account] = row
	return nil
}

func (r partyRepository) GetMarketer(_ context.Context, account domain.Account) (domain.Marketer, error) {
	row, ok := r.st.marketers[account]
	if !ok {
		return domain.Marketer{}, domain.ErrNotFound
	}
	return row, nil
}

func (r partyRepository) CreateMarketer(_ context.Context, row domain.Marketer) error {
	if _, ok := r.st.marketers[row.Account]; ok {
		return domain.ErrConflict
	}
	r.st.marketers[row.Account] = row
	return nil
}

type policyRepository struct{ st *state }

func (r policyRepository) Get(_ context.Context, productID string) (domain.CommissionPolicy, error) {
	row, ok := r.st.policies[productID]
	if !ok {
		return domain.CommissionPolicy{}, domain.ErrNotFound
	}
	return row, nil
}

func (r policyRepository) Upsert(_ context.Context, row domain.CommissionPolicy) error {
	r.st.policies[row.ProductID] = row
	return nil
}

type escrowRepository struct{ st *state }

func (r escrowRepository) Get(_ context.Context, advertiser domain.Account) (domain.EscrowAccount, error) {
	row, ok := r.st.escrow[advertiser]
	if !ok {
		return domain.EscrowAccount{Advertiser: advertiser}, nil
	}
	return row, nil
}

func (r escrowRepository) Save(_ context.Context, row domain.EscrowAccount) error {
	if row.Balance < 0 {
		return domain.ErrInvalidInput
	}
	r.st.escrow[row.Advertiser] = row
	return nil
}

func (r escrowRepository) Total(_ context.Context) (int64, error) {
	var n int64
	for _, row := range r.st.escrow {
		n += row.Balance
	}
	return n, nil
}

type claimableRepository struct{ st *state }

func (r claimableRepository) Get(_ context.Context, beneficiary domain.Account) (domain.ClaimableBalance, error) {
	row, ok := r.st.claimables[beneficiary]
	if !ok {
		return domain.ClaimableBalance{Beneficiary: beneficiary}, nil
	}
	return row, nil
}

func (r claimableRepository) Save(_ context.Context, row domain.ClaimableBalance) error {
	if row.Amount < 0 {
		return domain.ErrInvalidInput
	}
	r.st.claimables[row.Beneficiary] = row
	return nil
}

func (r claimableRepository) Total(_ context.Context) (int64, error) {
	var n int64
	for _, row := range r.st.claimables {
		n += row.Amount
	}
	return n, nil
}

type orderRepository struct{ st *state }

func (r orderRepository) Get(_ context.Context, orderID string) (domain.OrderRecord, error) {
	row, ok := r.st.orders[orderID]
	if !ok {
		return domain.OrderRecord{}, domain.ErrNotFound
	}
	return row, nil
}

func (r orderRepository) Create(_ context.Context, row domain.OrderRecord) error {
	if _, ok := r.st.orders[row.OrderID]; ok {
		return domain.ErrConflict
	}
	r.st.orders[row.OrderID] = row
	return nil
}

type settingsRepository struct{ st *state }

func (r settingsRepository) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := r.st.settings[key]
	return v, ok, nil
}

func (r settingsRepository) Put(_ context.Context, key, value string) error {
	r.st.settings[key] = value
	return nil
}

type outboxRepository struct{ st *state }

func (r outboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	if _, ok := r.st.outbox[event.EventID]; ok {
		return domain.ErrConflict
	}
	r.st.outbox[event.EventID] = ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      append([]byte(nil), event.Payload...),
		FirstSeenAt:  event.OccurredAt,
	}
	r.st.outboxOrder = append(r.st.outboxOrder, event.EventID)
	return nil
}

func (r outboxRepository) FetchUnpublished(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.st.outboxOrder {
		row, ok := r.st.outbox[id]
		if !ok || row.PublishedAt != nil {
			continue
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r outboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, at time.Time) error {
	row, ok := r.st.outbox[outboxID]
	if !ok {
		return domain.ErrNotFound
	}
	row.PublishedAt = &at
	r.st.outbox[outboxID] = row
	return nil
}

func (r outboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error {
	row, ok := r.st.outbox[outboxID]
	if !ok {
		return domain.ErrNotFound
	}
	row.RetryCount++
	row.LastError = &errMsg
	row.LastErrorAt = &at
	r.st.outbox[outboxID] = row
	return nil
}
