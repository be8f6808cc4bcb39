package arbiter

import (
	"math/big"
	"time"

	"dealvault/core/events"
	"dealvault/core/types"
)

type registryState interface {
	ArbiterPut(*Record) error
	ArbiterGet(addr [20]byte) (*Record, bool)
	ArbiterActiveCount() (uint64, error)
	ArbiterSetActiveCount(count uint64) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Registry admits arbiters who post a bond, gates their eligibility for new
// deal assignment and accumulates their resolution track record. Bonds are
// held in a registry vault account and released only after the cooling-off
// delay.
type Registry struct {
	state        registryState
	emitter      events.Emitter
	vault        [20]byte
	admin        [20]byte
	minimumStake *big.Int
	nowFn        func() int64
}

// NewRegistry creates a registry with a no-op emitter and the default
// minimum stake.
func NewRegistry() *Registry {
	return &Registry{
		emitter:      events.NoopEmitter{},
		minimumStake: new(big.Int).Set(DefaultMinimumStake),
		nowFn:        func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the registry.
func (r *Registry) SetState(state registryState) { r.state = state }

// SetVault configures the account posted bonds are held in.
func (r *Registry) SetVault(addr [20]byte) { r.vault = addr }

// SetAdmin configures the administrative authority allowed to record
// resolution outcomes. Reputation is never self-graded.
func (r *Registry) SetAdmin(addr [20]byte) { r.admin = addr }

// SetMinimumStake overrides the bond required to register.
func (r *Registry) SetMinimumStake(minimum *big.Int) {
	if minimum == nil || minimum.Sign() <= 0 {
		r.minimumStake = new(big.Int).Set(DefaultMinimumStake)
		return
	}
	r.minimumStake = new(big.Int).Set(minimum)
}

// MinimumStake exposes the configured registration bond.
func (r *Registry) MinimumStake() *big.Int { return new(big.Int).Set(r.minimumStake) }

// SetNowFunc overrides the time source. Primarily intended for tests.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) emit(evt events.Event) {
	if r == nil || r.emitter == nil || evt == nil {
		return
	}
	r.emitter.Emit(evt)
}

func (r *Registry) now() int64 {
	if r == nil || r.nowFn == nil {
		return time.Now().Unix()
	}
	return r.nowFn()
}

func (r *Registry) transfer(from, to [20]byte, amount *big.Int) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	fromAcc, err := r.state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := r.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc.EnsureBalance()
	toAcc.EnsureBalance()
	if fromAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := r.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return r.state.PutAccount(to, toAcc)
}

// Register admits the caller as an active arbiter, moving the attached stake
// into the registry vault. A record whose stake was fully withdrawn may
// register again; one with bond still locked may not.
func (r *Registry) Register(caller [20]byte, value *big.Int) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	if value == nil || value.Cmp(r.minimumStake) < 0 {
		return ErrInsufficientStake
	}
	if existing, ok := r.state.ArbiterGet(caller); ok {
		if existing.Active {
			return ErrAlreadyRegistered
		}
		if existing.Stake != nil && existing.Stake.Sign() > 0 {
			return ErrWithdrawalPending
		}
	}
	if err := r.transfer(caller, r.vault, value); err != nil {
		return err
	}
	now := r.now()
	// Registration overwrites the record wholesale: counters reset to zero
	// and no withdrawal request carries over.
	record := &Record{
		Arbiter:      caller,
		Active:       true,
		Stake:        new(big.Int).Set(value),
		RegisteredAt: now,
	}
	if err := r.state.ArbiterPut(record); err != nil {
		return err
	}
	count, err := r.state.ArbiterActiveCount()
	if err != nil {
		return err
	}
	if err := r.state.ArbiterSetActiveCount(count + 1); err != nil {
		return err
	}
	r.emit(events.ArbiterRegistered{Arbiter: caller, Stake: new(big.Int).Set(value), RegisteredAt: now})
	return nil
}

// RequestWithdrawal flags the arbiter as ineligible for new assignment and
// anchors the cooling-off delay. Eligibility ends immediately; the bond stays
// locked until WithdrawStake.
func (r *Registry) RequestWithdrawal(caller [20]byte) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	record, ok := r.state.ArbiterGet(caller)
	if !ok || record.RegisteredAt == 0 {
		return ErrNotRegistered
	}
	if record.WithdrawalRequestAt != 0 {
		return ErrWithdrawalPending
	}
	if !record.Active {
		return ErrNotActive
	}
	now := r.now()
	record.Active = false
	record.WithdrawalRequestAt = now
	if err := r.state.ArbiterPut(record); err != nil {
		return err
	}
	r.emit(events.ArbiterWithdrawRequested{Arbiter: caller, RequestedAt: now})
	return nil
}

// WithdrawStake pays out the full bond once the cooling-off delay has
// elapsed. The recorded stake is zeroed before the outward transfer; a
// failed transfer restores it.
func (r *Registry) WithdrawStake(caller [20]byte) (*big.Int, error) {
	if r == nil || r.state == nil {
		return nil, ErrNilState
	}
	record, ok := r.state.ArbiterGet(caller)
	if !ok || record.RegisteredAt == 0 {
		return nil, ErrNotRegistered
	}
	if record.WithdrawalRequestAt == 0 {
		return nil, ErrNoWithdrawalRequest
	}
	if r.now() < record.WithdrawalRequestAt+WithdrawDelaySeconds {
		return nil, ErrCooldownActive
	}
	if record.Stake == nil || record.Stake.Sign() == 0 {
		return nil, ErrNoStake
	}
	amount := new(big.Int).Set(record.Stake)
	record.Stake = big.NewInt(0)
	if err := r.state.ArbiterPut(record); err != nil {
		return nil, err
	}
	if err := r.transfer(r.vault, caller, amount); err != nil {
		record.Stake = amount
		if storeErr := r.state.ArbiterPut(record); storeErr != nil {
			return nil, storeErr
		}
		return nil, err
	}
	count, err := r.state.ArbiterActiveCount()
	if err != nil {
		return nil, err
	}
	if count > 0 {
		if err := r.state.ArbiterSetActiveCount(count - 1); err != nil {
			return nil, err
		}
	}
	r.emit(events.ArbiterStakeWithdrawn{Arbiter: caller, Amount: new(big.Int).Set(amount)})
	return amount, nil
}

// UpdateReputation records a resolution outcome for the named arbiter. Only
// the administrative authority may call it, after the dispute settled.
func (r *Registry) UpdateReputation(caller, arbiter [20]byte, successful bool) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	if caller != r.admin {
		return ErrUnauthorized
	}
	record, ok := r.state.ArbiterGet(arbiter)
	if !ok || record.RegisteredAt == 0 {
		return ErrNotRegistered
	}
	record.DisputesResolved++
	if successful {
		record.SuccessfulResolutions++
	}
	if err := r.state.ArbiterPut(record); err != nil {
		return err
	}
	r.emit(events.ArbiterReputationUpdated{
		Arbiter:               arbiter,
		Successful:            successful,
		DisputesResolved:      record.DisputesResolved,
		SuccessfulResolutions: record.SuccessfulResolutions,
	})
	return nil
}

// IsActive reports whether the arbiter is eligible for new deal assignment.
func (r *Registry) IsActive(addr [20]byte) bool {
	if r == nil || r.state == nil {
		return false
	}
	record, ok := r.state.ArbiterGet(addr)
	return ok && record.Active
}

// ReputationScore returns the arbiter's score in [0, 100], 0 when the
// arbiter has no track record or was never registered.
func (r *Registry) ReputationScore(addr [20]byte) uint64 {
	if r == nil || r.state == nil {
		return 0
	}
	record, ok := r.state.ArbiterGet(addr)
	if !ok {
		return 0
	}
	return record.ReputationScore()
}

// Get returns a copy of the arbiter record.
func (r *Registry) Get(addr [20]byte) (*Record, bool) {
	if r == nil || r.state == nil {
		return nil, false
	}
	return r.state.ArbiterGet(addr)
}

// ActiveCount returns the global active-arbiter counter.
func (r *Registry) ActiveCount() (uint64, error) {
	if r == nil || r.state == nil {
		return 0, ErrNilState
	}
	return r.state.ArbiterActiveCount()
}
