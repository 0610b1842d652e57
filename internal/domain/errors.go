package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrAlreadyRegistered     = errors.New("already registered")
	ErrUnknownAdvertiser     = errors.New("unknown advertiser")
	ErrUnknownMarketer       = errors.New("unknown marketer")
	ErrUnknownProduct        = errors.New("unknown product")
	ErrInvalidRate           = errors.New("invalid commission rate")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrBelowMinimum          = errors.New("deposit below minimum top-up")
	ErrInsufficientEscrow    = errors.New("insufficient escrow balance")
	ErrOrderAlreadyProcessed = errors.New("order already processed")
	ErrNothingToClaim        = errors.New("nothing to claim")
	ErrReentrantCall         = errors.New("reentrant call")
	ErrEngineNotConfigured   = errors.New("settlement engine not configured")
	ErrPlatformNotConfigured = errors.New("platform wallet not configured")
)
