package postgres

import "github.com/viralforge/reelpay/internal/domain"

func toDomainAdvertiser(m advertiserModel) domain.Advertiser {
	return domain.Advertiser{
		Account:        domain.Account(m.Account),
		Name:           m.Name,
		DefaultRateBps: m.DefaultRateBps,
		MinTopUp:       m.MinTopUp,
		RegisteredAt:   m.RegisteredAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

func toAdvertiserModel(a domain.Advertiser) advertiserModel {
	return advertiserModel{
		Account:        a.Account.String(),
		Name:           a.Name,
		DefaultRateBps: a.DefaultRateBps,
		MinTopUp:       a.MinTopUp,
		RegisteredAt:   a.RegisteredAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func toDomainPolicy(m commissionPolicyModel) domain.CommissionPolicy {
	return domain.CommissionPolicy{
		ProductID:       m.ProductID,
		MarketerRateBps: m.MarketerRateBps,
		PlatformRateBps: m.PlatformRateBps,
		Active:          m.Active,
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

func toDomainOrder(m settlementOrderModel) domain.OrderRecord {
	return domain.OrderRecord{
		OrderID:    m.OrderID,
		Flow:       domain.SettlementFlow(m.Flow),
		ProductID:  m.ProductID,
		Advertiser: domain.Account(m.Advertiser),
		Marketer:   domain.Account(m.Marketer),
		Buyer:      domain.Account(m.Buyer),
		Amount:     m.Amount,
		Split: domain.Split{
			MarketerBps:     m.MarketerBps,
			PlatformBps:     m.PlatformBps,
			MarketerCut:     m.MarketerCut,
			PlatformCut:     m.PlatformCut,
			AdvertiserShare: m.AdvertiserShare,
		},
		Platform:    domain.Account(m.PlatformWallet),
		SubmittedBy: domain.Account(m.SubmittedBy),
		ProcessedAt: m.ProcessedAt.UTC(),
	}
}

func toOrderModel(o domain.OrderRecord) settlementOrderModel {
	return settlementOrderModel{
		OrderID:         o.OrderID,
		Flow:            string(o.Flow),
		ProductID:       o.ProductID,
		Advertiser:      o.Advertiser.String(),
		Marketer:        o.Marketer.String(),
		Buyer:           o.Buyer.String(),
		Amount:          o.Amount,
		MarketerBps:     o.Split.MarketerBps,
		PlatformBps:     o.Split.PlatformBps,
		MarketerCut:     o.Split.MarketerCut,
		PlatformCut:     o.Split.PlatformCut,
		AdvertiserShare: o.Split.AdvertiserShare,
		PlatformWallet:  o.Platform.String(),
		SubmittedBy:     o.SubmittedBy.String(),
		ProcessedAt:     o.ProcessedAt,
	}
}
