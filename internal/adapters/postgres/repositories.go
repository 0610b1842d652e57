package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/viralforge/reelpay/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roleRepository struct {
	db *gorm.DB
}

func (r *roleRepository) Has(ctx context.Context, role domain.Role, account domain.Account) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&roleMemberModel{}).Where("role = ? AND account = ?", string(role), account.String()).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *roleRepository) Add(ctx context.Context, role domain.Role, account domain.Account, at time.Time) error {
	rec := roleMemberModel{Role: string(role), Account: account.String(), GrantedAt: at}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func (r *roleRepository) Remove(ctx context.Context, role domain.Role, account domain.Account) error {
	return r.db.WithContext(ctx).Where("role = ? AND account = ?", string(role), account.String()).Delete(&roleMemberModel{}).Error
}

func (r *roleRepository) Count(ctx context.Context, role domain.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&roleMemberModel{}).Where("role = ?", string(role)).Count(&n).Error
	return n, err
}

type partyRepository struct {
	db *gorm.DB
}

func (r *partyRepository) GetAdvertiser(ctx context.Context, account domain.Account) (domain.Advertiser, error) {
	var rec advertiserModel
	if err := r.db.WithContext(ctx).Where("account = ?", account.String()).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Advertiser{}, domain.ErrNotFound
		}
		return domain.Advertiser{}, err
	}
	return toDomainAdvertiser(rec), nil
}

func (r *partyRepository) CreateAdvertiser(ctx context.Context, row domain.Advertiser) error {
	rec := toAdvertiserModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *partyRepository) UpdateAdvertiser(ctx context.Context, row domain.Advertiser) error {
	res := r.db.WithContext(ctx).Model(&advertiserModel{}).Where("account = ?", row.Account.String()).Updates(map[string]any{
		"default_rate_bps": row.DefaultRateBps,
		"min_top_up":       row.MinTopUp,
		"updated_at":       row.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *partyRepository) GetMarketer(ctx context.Context, account domain.Account) (domain.Marketer, error) {
	var rec marketerModel
	if err := r.db.WithContext(ctx).Where("account = ?", account.String()).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Marketer{}, domain.ErrNotFound
		}
		return domain.Marketer{}, err
	}
	return domain.Marketer{Account: domain.Account(rec.Account), Handle: rec.Handle, RegisteredAt: rec.RegisteredAt.UTC()}, nil
}

func (r *partyRepository) CreateMarketer(ctx context.Context, row domain.Marketer) error {
	rec := marketerModel{Account: row.Account.String(), Handle: row.Handle, RegisteredAt: row.RegisteredAt}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

type policyRepository struct {
	db *gorm.DB
}

func (r *policyRepository) Get(ctx context.Context, productID string) (domain.CommissionPolicy, error) {
	var rec commissionPolicyModel
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CommissionPolicy{}, domain.ErrNotFound
		}
		return domain.CommissionPolicy{}, err
	}
	return toDomainPolicy(rec), nil
}

func (r *policyRepository) Upsert(ctx context.Context, row domain.CommissionPolicy) error {
	rec := commissionPolicyModel{
		ProductID:       row.ProductID,
		MarketerRateBps: row.MarketerRateBps,
		PlatformRateBps: row.PlatformRateBps,
		Active:          row.Active,
		UpdatedAt:       row.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"marketer_rate_bps", "platform_rate_bps", "active", "updated_at"}),
	}).Create(&rec).Error
}

type escrowRepository struct {
	db *gorm.DB
}

func (r *escrowRepository) Get(ctx context.Context, advertiser domain.Account) (domain.EscrowAccount, error) {
	var rec escrowAccountModel
	if err := r.db.WithContext(ctx).Where("advertiser = ?", advertiser.String()).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.EscrowAccount{Advertiser: advertiser}, nil
		}
		return domain.EscrowAccount{}, err
	}
	return domain.EscrowAccount{
		Advertiser:     domain.Account(rec.Advertiser),
		Balance:        rec.Balance,
		TotalDeposited: rec.TotalDeposited,
		UpdatedAt:      rec.UpdatedAt.UTC(),
	}, nil
}

func (r *escrowRepository) Save(ctx context.Context, row domain.EscrowAccount) error {
	if row.Balance < 0 {
		return domain.ErrInvalidInput
	}
	rec := escrowAccountModel{Advertiser: row.Advertiser.String(), Balance: row.Balance, TotalDeposited: row.TotalDeposited, UpdatedAt: row.UpdatedAt}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "advertiser"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "total_deposited", "updated_at"}),
	}).Create(&rec).Error
}

func (r *escrowRepository) Total(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&escrowAccountModel{}).Select("COALESCE(SUM(balance), 0)").Scan(&n).Error
	return n, err
}

type claimableRepository struct {
	db *gorm.DB
}

func (r *claimableRepository) Get(ctx context.Context, beneficiary domain.Account) (domain.ClaimableBalance, error) {
	var rec claimableBalanceModel
	if err := r.db.WithContext(ctx).Where("beneficiary = ?", beneficiary.String()).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ClaimableBalance{Beneficiary: beneficiary}, nil
		}
		return domain.ClaimableBalance{}, err
	}
	return domain.ClaimableBalance{
		Beneficiary:  domain.Account(rec.Beneficiary),
		Amount:       rec.Amount,
		TotalClaimed: rec.TotalClaimed,
		UpdatedAt:    rec.UpdatedAt.UTC(),
	}, nil
}

func (r *claimableRepository) Save(ctx context.Context, row domain.ClaimableBalance) error {
	if row.Amount < 0 {
		return domain.ErrInvalidInput
	}
	rec := claimableBalanceModel{Beneficiary: row.Beneficiary.String(), Amount: row.Amount, TotalClaimed: row.TotalClaimed, UpdatedAt: row.UpdatedAt}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "beneficiary"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "total_claimed", "updated_at"}),
	}).Create(&rec).Error
}

func (r *claimableRepository) Total(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&claimableBalanceModel{}).Select("COALESCE(SUM(amount), 0)").Scan(&n).Error
	return n, err
}

type orderRepository struct {
	db *gorm.DB
}

func (r *orderRepository) Get(ctx context.Context, orderID string) (domain.OrderRecord, error) {
	var rec settlementOrderModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.OrderRecord{}, domain.ErrNotFound
		}
		return domain.OrderRecord{}, err
	}
	return toDomainOrder(rec), nil
}

func (r *orderRepository) Create(ctx context.Context, row domain.OrderRecord) error {
	rec := toOrderModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

type settingsRepository struct {
	db *gorm.DB
}

func (r *settingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var rec ledgerSettingModel
	if err := r.db.WithContext(ctx).Where("key = ?", key).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return rec.Value, true, nil
}

func (r *settingsRepository) Put(ctx context.Context, key, value string) error {
	rec := ledgerSettingModel{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rec).Error
}
