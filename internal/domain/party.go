package domain

import (
	"strings"
	"time"
)

// Account identifies any participant: advertiser, marketer, buyer, platform
// wallet or a component's own custody address.
type Account string

func NormalizeAccount(raw string) Account {
	return Account(strings.ToLower(strings.TrimSpace(raw)))
}

func (a Account) String() string { return string(a) }

func (a Account) IsZero() bool { return strings.TrimSpace(string(a)) == "" }

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleBackend Role = "BACKEND"
)

func NormalizeRole(raw string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(raw)))
}

type Advertiser struct {
	Account        Account
	Name           string
	DefaultRateBps int64
	MinTopUp       int64
	RegisteredAt   time.Time
	UpdatedAt      time.Time
}

type Marketer struct {
	Account      Account
	Handle       string
	RegisteredAt time.Time
}

type CommissionPolicy struct {
	ProductID       string
	MarketerRateBps int64
	PlatformRateBps int64
	Active          bool
	UpdatedAt       time.Time
}
