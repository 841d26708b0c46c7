package domain

import "errors"

// Validation errors: the caller supplied an out-of-range argument.
var (
	ErrZeroAmount     = errors.New("amount must be greater than zero")
	ErrLabelTooLong   = errors.New("label must be 32 characters or fewer")
	ErrInvalidPrice   = errors.New("price must be between 0 and the unit price")
	ErrInvalidOutcome = errors.New("outcome must be yes or no")
	ErrRoundingLoss   = errors.New("cost split does not divide evenly")
	ErrAmountOverflow = errors.New("amount arithmetic overflows")
)

// State errors: wrong lifecycle state or wrong principal.
var (
	ErrMarketNotActive   = errors.New("market is not active")
	ErrMarketNotPaused   = errors.New("market is not paused")
	ErrMarketNotResolved = errors.New("market is not resolved")
	ErrMarketResolved    = errors.New("market is already resolved")
	ErrNotOwner          = errors.New("caller is not the escrow owner")
	ErrNotAuthority      = errors.New("caller is not the market authority")
	ErrResumeDisabled    = errors.New("resuming paused markets is disabled")
)

// Solvency errors: the requested movement exceeds available funds or shares.
var (
	ErrInsufficientBalance  = errors.New("insufficient unlocked balance")
	ErrInsufficientLocked   = errors.New("insufficient locked balance")
	ErrInsufficientYesFunds = errors.New("insufficient locked balance for yes buyer")
	ErrInsufficientNoFunds  = errors.New("insufficient locked balance for no buyer")
	ErrNothingToClaim       = errors.New("no winning shares to claim")
)

// Record errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrBumpMismatch  = errors.New("record bump does not match derived address")
	ErrLockHeld      = errors.New("lock already held")
	ErrRateLimited   = errors.New("rate limited")
)
