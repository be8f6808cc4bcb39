package custody

import (
	"fmt"
	"math/big"
	"strings"
)

// Fee charged on every settlement, expressed in basis points of the original
// deposit. The division truncates; for a 10_000 unit deposit the fee is 50.
const (
	FeeBps         = 50
	BpsDenominator = 10_000
)

// DealStatus represents the lifecycle states of a custody deal.
type DealStatus uint8

const (
	DealCreated DealStatus = iota
	DealFunded
	DealDelivered
	DealCompleted
	DealDisputed
	DealResolved
	DealCancelled
	DealRefunded
)

// Valid reports whether the status value is within the supported range.
func (s DealStatus) Valid() bool {
	return s <= DealRefunded
}

// Terminal reports whether the status admits no further transitions.
func (s DealStatus) Terminal() bool {
	switch s {
	case DealCompleted, DealResolved, DealCancelled, DealRefunded:
		return true
	default:
		return false
	}
}

// String returns the canonical lowercase name used on the RPC surface.
func (s DealStatus) String() string {
	switch s {
	case DealCreated:
		return "created"
	case DealFunded:
		return "funded"
	case DealDelivered:
		return "delivered"
	case DealCompleted:
		return "completed"
	case DealDisputed:
		return "disputed"
	case DealResolved:
		return "resolved"
	case DealCancelled:
		return "cancelled"
	case DealRefunded:
		return "refunded"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Deal captures the immutable terms and runtime state of a single custody
// agreement. Records are never deleted; terminal states are data.
type Deal struct {
	ID            [32]byte
	Payer         [20]byte
	Payee         [20]byte
	Arbiter       [20]byte
	Amount        *big.Int
	Deadline      int64
	CreatedAt     int64
	Description   string
	Status        DealStatus
	Paused        bool
	Disputed      bool
	DisputeAt     int64
	DisputeReason string

	// Pending maps an owed identity (payer, payee or fee sink) to its
	// unclaimed settlement balance. Entries are credited by settlement
	// transitions and zeroed only by a successful Withdraw.
	Pending map[[20]byte]*big.Int
}

// Clone returns a deep copy so callers can mutate the result without
// affecting the stored instance.
func (d *Deal) Clone() *Deal {
	if d == nil {
		return nil
	}
	clone := *d
	if d.Amount != nil {
		clone.Amount = new(big.Int).Set(d.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	clone.Pending = make(map[[20]byte]*big.Int, len(d.Pending))
	for addr, amt := range d.Pending {
		if amt == nil {
			clone.Pending[addr] = big.NewInt(0)
			continue
		}
		clone.Pending[addr] = new(big.Int).Set(amt)
	}
	return &clone
}

// PendingFor returns the unclaimed balance owed to addr, zero when none.
func (d *Deal) PendingFor(addr [20]byte) *big.Int {
	if d == nil || d.Pending == nil {
		return big.NewInt(0)
	}
	amt, ok := d.Pending[addr]
	if !ok || amt == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amt)
}

func (d *Deal) credit(addr [20]byte, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	if d.Pending == nil {
		d.Pending = make(map[[20]byte]*big.Int)
	}
	current, ok := d.Pending[addr]
	if !ok || current == nil {
		current = big.NewInt(0)
	}
	d.Pending[addr] = new(big.Int).Add(current, amount)
}

// SanitizeDeal validates and normalises the supplied deal, returning a clone
// with a non-nil amount and a trimmed description. The original is not
// mutated.
func SanitizeDeal(d *Deal) (*Deal, error) {
	if d == nil {
		return nil, fmt.Errorf("custody: nil deal")
	}
	clone := d.Clone()
	clone.Description = strings.TrimSpace(clone.Description)
	if clone.Amount.Sign() < 0 {
		return nil, fmt.Errorf("custody: amount must be non-negative")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("custody: invalid status %d", clone.Status)
	}
	for _, amt := range clone.Pending {
		if amt.Sign() < 0 {
			return nil, fmt.Errorf("custody: negative pending balance")
		}
	}
	return clone, nil
}

// ComputeFee returns the platform fee for the supplied deposit using
// truncating basis-point arithmetic against the original amount.
func ComputeFee(amount *big.Int) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, big.NewInt(FeeBps))
	return fee.Div(fee, big.NewInt(BpsDenominator))
}
