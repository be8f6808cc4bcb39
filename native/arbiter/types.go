package arbiter

import (
	"fmt"
	"math/big"
)

// WithdrawDelaySeconds is the cooling-off applied between a stake withdrawal
// request and the payout becoming claimable.
const WithdrawDelaySeconds int64 = 7 * 24 * 60 * 60 // 7 days

// DefaultMinimumStake is the bond required to become an active arbiter,
// denominated in the smallest currency unit.
var DefaultMinimumStake = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Record tracks one candidate arbiter identity. Records are created on first
// registration and never deleted; the resolution counters persist after the
// stake has been withdrawn.
type Record struct {
	Arbiter               [20]byte
	Active                bool
	Stake                 *big.Int
	DisputesResolved      uint64
	SuccessfulResolutions uint64
	// RegisteredAt distinguishes "never registered" (zero) from
	// "registered".
	RegisteredAt int64
	// WithdrawalRequestAt is zero while no withdrawal is pending; once set
	// it anchors the cooling-off delay.
	WithdrawalRequestAt int64
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Stake != nil {
		clone.Stake = new(big.Int).Set(r.Stake)
	} else {
		clone.Stake = big.NewInt(0)
	}
	return &clone
}

// ReputationScore returns the percentage of resolved disputes that went
// uncontested, 0 when the arbiter has no track record. Truncating integer
// division keeps the result in [0, 100].
func (r *Record) ReputationScore() uint64 {
	if r == nil || r.DisputesResolved == 0 {
		return 0
	}
	return r.SuccessfulResolutions * 100 / r.DisputesResolved
}

// SanitizeRecord validates the record's internal consistency and returns a
// clone with a non-nil stake.
func SanitizeRecord(r *Record) (*Record, error) {
	if r == nil {
		return nil, fmt.Errorf("arbiter: nil record")
	}
	clone := r.Clone()
	if clone.Stake.Sign() < 0 {
		return nil, fmt.Errorf("arbiter: negative stake")
	}
	if clone.SuccessfulResolutions > clone.DisputesResolved {
		return nil, fmt.Errorf("arbiter: successful resolutions exceed total")
	}
	return clone, nil
}
