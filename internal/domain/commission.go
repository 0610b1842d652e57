package domain

import "math"

const BasisPointsDenominator int64 = 10000

// MaxOrderAmount keeps amount*bps inside int64.
const MaxOrderAmount = math.MaxInt64 / BasisPointsDenominator

type Split struct {
	MarketerBps     int64
	PlatformBps     int64
	MarketerCut     int64
	PlatformCut     int64
	AdvertiserShare int64
}

// Distributed is the part of an order that leaves the advertiser.
func (s Split) Distributed() int64 { return s.MarketerCut + s.PlatformCut }

func ValidateRate(bps int64) error {
	if bps < 0 || bps > BasisPointsDenominator {
		return ErrInvalidRate
	}
	return nil
}

func ValidatePolicyRates(marketerBps, platformBps int64) error {
	if err := ValidateRate(marketerBps); err != nil {
		return err
	}
	if err := ValidateRate(platformBps); err != nil {
		return err
	}
	if marketerBps+platformBps > BasisPointsDenominator {
		return ErrInvalidRate
	}
	return nil
}

func ValidateAmount(amount int64) error {
	if amount <= 0 || amount > MaxOrderAmount {
		return ErrInvalidInput
	}
	return nil
}

// ComputeSplit floors both cuts; rounding dust stays with the advertiser.
func ComputeSplit(amount, marketerBps, platformBps int64) (Split, error) {
	if err := ValidateAmount(amount); err != nil {
		return Split{}, err
	}
	if err := ValidatePolicyRates(marketerBps, platformBps); err != nil {
		return Split{}, err
	}
	marketerCut := amount * marketerBps / BasisPointsDenominator
	platformCut := amount * platformBps / BasisPointsDenominator
	return Split{
		MarketerBps:     marketerBps,
		PlatformBps:     platformBps,
		MarketerCut:     marketerCut,
		PlatformCut:     platformCut,
		AdvertiserShare: amount - marketerCut - platformCut,
	}, nil
}
