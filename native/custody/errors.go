package custody

import "errors"

var (
	// ErrNilState marks an engine used before its state backend was wired.
	ErrNilState = errors.New("custody engine: state not configured")
	// ErrDealNotFound marks lookups of unknown deal identifiers.
	ErrDealNotFound = errors.New("custody: deal not found")
	// ErrDealExists is returned when creating a deal whose identifier is
	// already taken.
	ErrDealExists = errors.New("custody: deal already exists")

	// ErrUnauthorized marks a caller lacking the role an operation is
	// gated on.
	ErrUnauthorized = errors.New("custody: unauthorized caller")
	// ErrInvalidState marks an operation invoked outside the lifecycle
	// state that permits it.
	ErrInvalidState = errors.New("custody: operation not valid in current state")
	// ErrPaused marks state-changing calls against a paused deal.
	ErrPaused = errors.New("custody: deal paused")

	ErrZeroAddress        = errors.New("custody: zero address")
	ErrSameParty          = errors.New("custody: payer and payee must differ")
	ErrNonPositiveAmount  = errors.New("custody: amount must be positive")
	ErrPastDeadline       = errors.New("custody: deadline must be in the future")
	ErrEmptyDescription   = errors.New("custody: description required")
	ErrEmptyReason        = errors.New("custody: dispute reason required")
	ErrEmptyResolution    = errors.New("custody: resolution required")
	ErrAmountMismatch     = errors.New("custody: attached value must equal deal amount")
	ErrSplitMismatch      = errors.New("custody: split must equal amount minus fee")
	ErrDeadlinePassed     = errors.New("custody: deadline has passed")
	ErrDeadlineNotReached = errors.New("custody: deadline not yet passed")

	// ErrNothingToWithdraw marks withdrawals with a zero pending balance.
	ErrNothingToWithdraw = errors.New("custody: nothing to withdraw")
	// ErrInsufficientBalance marks transfers the paying account cannot
	// cover. Amount arithmetic fails rather than wrapping.
	ErrInsufficientBalance = errors.New("custody: insufficient balance")
)
