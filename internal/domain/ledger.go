package domain

import "time"

type EscrowAccount struct {
	Advertiser     Account
	Balance        int64
	TotalDeposited int64
	UpdatedAt      time.Time
}

// Fresh reports whether the escrow has never received a deposit.
func (e EscrowAccount) Fresh() bool { return e.TotalDeposited == 0 }

type ClaimableBalance struct {
	Beneficiary  Account
	Amount       int64
	TotalClaimed int64
	UpdatedAt    time.Time
}

type MinimumTopUpScope string

const (
	MinimumTopUpFirstDeposit MinimumTopUpScope = "first_deposit"
	MinimumTopUpEveryDeposit MinimumTopUpScope = "every_deposit"
)

func ParseMinimumTopUpScope(raw string) (MinimumTopUpScope, bool) {
	switch MinimumTopUpScope(raw) {
	case MinimumTopUpFirstDeposit:
		return MinimumTopUpFirstDeposit, true
	case MinimumTopUpEveryDeposit:
		return MinimumTopUpEveryDeposit, true
	default:
		return "", false
	}
}

// MinimumApplies reports whether a deposit into e must clear the advertiser's
// minimum top-up under the given scope.
func (s MinimumTopUpScope) MinimumApplies(e EscrowAccount) bool {
	if s == MinimumTopUpEveryDeposit {
		return true
	}
	return e.Fresh()
}
