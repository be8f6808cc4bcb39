package arbiter

import "errors"

var (
	// ErrNilState marks a registry used before its state backend was wired.
	ErrNilState = errors.New("arbiter registry: state not configured")

	ErrUnauthorized        = errors.New("arbiter: unauthorized caller")
	ErrInsufficientStake   = errors.New("arbiter: stake below minimum")
	ErrAlreadyRegistered   = errors.New("arbiter: already registered")
	ErrNotRegistered       = errors.New("arbiter: not registered")
	ErrNotActive           = errors.New("arbiter: not active")
	ErrWithdrawalPending   = errors.New("arbiter: withdrawal already requested")
	ErrNoWithdrawalRequest = errors.New("arbiter: no withdrawal requested")
	ErrCooldownActive      = errors.New("arbiter: cooling-off delay not elapsed")
	ErrNoStake             = errors.New("arbiter: no stake to withdraw")
	ErrInsufficientBalance = errors.New("arbiter: insufficient balance")
)
