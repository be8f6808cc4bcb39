package custody

import (
	"math/big"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"dealvault/core/events"
	"dealvault/core/types"
)

type engineState interface {
	DealPut(*Deal) error
	DealGet(id [32]byte) (*Deal, bool)
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Engine owns the per-deal custody state machine. All transitions are guarded
// by caller identity and current status; a failed guard aborts the call
// before any mutation. Settled balances are pull-based: transitions credit
// pending withdrawals and Withdraw pays them out.
type Engine struct {
	state        engineState
	emitter      events.Emitter
	vault        [20]byte
	feeCollector [20]byte
	admin        [20]byte
	nowFn        func() int64
}

// NewEngine creates a custody engine with a no-op emitter. Callers wire the
// state backend, vault, fee collector and administrative authority before
// use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetVault configures the account all escrowed deposits are held in.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

// SetFeeCollector configures the identity whose pending balance receives the
// platform fee at settlement.
func (e *Engine) SetFeeCollector(addr [20]byte) { e.feeCollector = addr }

// SetAdmin configures the administrative authority allowed to pause and
// unpause deals. In a full deployment this is the deal directory.
func (e *Engine) SetAdmin(addr [20]byte) { e.admin = addr }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// FeeCollector exposes the configured fee sink identity.
func (e *Engine) FeeCollector() [20]byte { return e.feeCollector }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// DealID derives the deterministic identifier for a deal from its parties and
// a caller-supplied nonce.
func DealID(payer, payee [20]byte, nonce uint64) [32]byte {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(nonce >> (8 * i))
	}
	return ethcrypto.Keccak256Hash(payer[:], payee[:], buf[:])
}

func (e *Engine) loadDeal(id [32]byte) (*Deal, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	deal, ok := e.state.DealGet(id)
	if !ok {
		return nil, ErrDealNotFound
	}
	return deal, nil
}

func (e *Engine) storeDeal(deal *Deal) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	return e.state.DealPut(deal)
}

// transfer moves amount between ledger accounts, failing on insufficient
// balance instead of wrapping.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrNonPositiveAmount
	}
	fromAcc, err := e.state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to)
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
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

// Role and status guards are kept as standalone predicates so every
// (role, state) combination stays independently testable.

func requireCaller(caller, want [20]byte) error {
	if caller != want {
		return ErrUnauthorized
	}
	return nil
}

func requireParticipant(deal *Deal, caller [20]byte) error {
	// Caller must be the payer or the payee. The negated form must AND the
	// two mismatches; OR-ing them rejects every caller.
	if caller != deal.Payer && caller != deal.Payee {
		return ErrUnauthorized
	}
	return nil
}

func requireStatus(deal *Deal, want DealStatus) error {
	if deal.Status != want {
		return ErrInvalidState
	}
	return nil
}

func requireRunning(deal *Deal) error {
	if deal.Paused {
		return ErrPaused
	}
	return nil
}

// Create initialises and persists a new deal in the Created state. The
// parties, amount, deadline and description are immutable thereafter.
func (e *Engine) Create(payer, payee, arbiter [20]byte, amount *big.Int, deadline int64, description string, nonce uint64) (*Deal, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if payer == ([20]byte{}) || payee == ([20]byte{}) || arbiter == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if payer == payee {
		return nil, ErrSameParty
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrNonPositiveAmount
	}
	now := e.now()
	if deadline <= now {
		return nil, ErrPastDeadline
	}
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return nil, ErrEmptyDescription
	}
	id := DealID(payer, payee, nonce)
	if _, ok := e.state.DealGet(id); ok {
		return nil, ErrDealExists
	}
	deal := &Deal{
		ID:          id,
		Payer:       payer,
		Payee:       payee,
		Arbiter:     arbiter,
		Amount:      new(big.Int).Set(amount),
		Deadline:    deadline,
		CreatedAt:   now,
		Description: trimmed,
		Status:      DealCreated,
		Pending:     make(map[[20]byte]*big.Int),
	}
	if err := e.storeDeal(deal); err != nil {
		return nil, err
	}
	e.emit(events.DealCreated{
		ID:        deal.ID,
		Payer:     deal.Payer,
		Payee:     deal.Payee,
		Arbiter:   deal.Arbiter,
		Amount:    new(big.Int).Set(deal.Amount),
		Deadline:  deal.Deadline,
		CreatedAt: deal.CreatedAt,
	})
	return deal.Clone(), nil
}

// Fund escrows the deposit. The attached value must equal the deal amount
// exactly and the deadline must not have passed.
func (e *Engine) Fund(id [32]byte, from [20]byte, value *big.Int) error {
	deal, err := e.loadDeal(id)
	if err != nil {
		return err
	}
	if err := requireRunning(deal); err != nil {
		return err
	}
	if err := requireCaller(from, deal.Payer); err != nil {
		return err
	}
	if err := requireStatus(deal, DealCreated); err != nil {
		return err
	}
	if value == nil || value.Cmp(deal.Amount) != 0 {
		return ErrAmountMismatch
	}
	now := e.now()
	if now > deal.Deadline {
		return ErrDeadlinePassed
	}
	if err := e.transfer(deal.Payer, e.vault, deal.Amount); err != nil {
		return err
	}
	deal.Status = DealFunded
	if err := e.storeDeal(deal); err != nil {
		return err
	}
	e.emit(events.DealFunded{
		ID:       deal.ID,
		Payer:    deal.Payer,
		Amount:   new(big.Int).Set(deal.Amount),
		FundedAt: now,
	})
	return nil
}

// MarkDelivered records that the payee has delivered, before the deadline
// only. A late delivery cannot be marked; the payer's refund escape stays
// available instead.
func (e *Engine) MarkDelivered(id [32]byte, caller [20]byte) error {
	deal, err := e.loadDeal(id)
	if err != nil {
		return err
	}
	if err := requireRunning(deal); err != nil {
		return err
	}
	if err := requireCaller(caller, deal.Payee); err != nil {
		return err
	}
	if err := requireStatus(deal, DealFunded); err != nil {
		return err
	}
	now := e.now()
	if now > deal.Deadline {
		return ErrDeadlinePassed
	}
	deal.Status = DealDelivered
	if err := e.storeDeal(deal); err != nil {
		return err
	}
	e.emit(events.DealDelivered{ID: deal.ID, Payee: deal.Payee, DeliveredAt: now})
	return nil
}

// ConfirmDelivery settles the deal in favour of the payee. The platform fee
// is computed against the original amount and credited to the fee sink's
// pending balance in the same step as the payee's payout.
func (e *Engine) ConfirmDelivery(id [32]byte, caller [20]byte) error {
	deal, err := e.loadDeal(id)
	if err != nil {
		return err
	}
	if err := requireRunning(deal); err != nil {
		return err
	}
	if err := requireCaller(caller, deal.Payer); err != nil {
		return err
	}
	if err := requireStatus(deal, DealDelivered); err != nil {
		return err
	}
	fee := ComputeFee(deal.Amount)
	payeeAmount := new(big.Int).Sub(deal.Amount, fee)
	deal.credit(deal.Payee, payeeAmount)
	deal.credit(e.feeCollector, fee)
	deal.Status = DealCompleted
	if err := e.storeDeal(deal); err != nil {
		return err
	}
	now := e.now()
	e.emit(events.DealCompleted{ID: deal.ID, PayeeAmount: payeeAmount, Fee: fee, CompletedAt: now})
	e.emit(events.WithdrawalReady{ID: deal.ID, Payee: deal.Payee, Amount: payeeAmount})
	if fee.Sign() > 0 {
		e.emit(events.WithdrawalReady{ID: deal.ID, Payee: e.feeCollector, Amount: fee})
	}
	return nil
}

// RaiseDispute escalates a delivered deal to arbitration. One-way: a dispute
// cannot be withdrawn once raised.
func (e *Engine) RaiseDispute(id [32]byte, caller [20]byte, reason string) error {
	deal, err := e.loadDeal(id)
	if err != nil {
		return err
	}
	if err := requireRunning(deal); err != nil {
		return err
	}
	if err := requireCaller(caller, deal.Payer); err != nil {
		return err
	}
	if err := requireStatus(deal, DealDelivered); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return ErrEmptyReason
	}
	now := e.now()
	deal.Status = DealDisputed
	deal.Disputed = true
	deal.DisputeAt = now
	deal.DisputeReason = trimmed
	if err := e.storeDeal(deal); err != nil {
		return err
	}
	e.emit(events.DealDisputed{ID: deal.ID, Raiser: caller, Reason: trimmed, DisputedAt: now})
	return nil
}

// ResolveDispute applies the arbiter's split. The fee is computed against the
// original amount and the caller-supplied split must account for exactly the
// remainder, so no value can leak or be minted.
func (e *Engine) ResolveDispute(id [32]byte, caller [20]byte, buyerAmount, sellerAmount *big.Int, resolution string) error {
	deal, err := e.loadDeal(id)
	if err != nil {
		return err
	}
	if err := requireRunning(deal); err != nil {
		return err
	}
	if err := requireCaller(caller, deal.Arbiter); err != nil {
		return err
	}
	if err := requireStatus(deal, DealDisputed); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(resolution)
	if trimmed == "" {
		return ErrEmptyResolution
	}
	if buyerAmount == nil || sellerAmount == nil || buyerAmount.Sign() < 0 || sellerAmount.Sign() < 0 {
		return ErrSplitMismatch
	}
	fee := ComputeFee(deal.Amount)
	available := new(big.Int).Sub(deal.Amount, fee)
	total := new(big.Int).Add(buyerAmount, sellerAmount)
	if total.Cmp(available) != 0 {
		return ErrSplitMismatch
	}
	deal.credit(deal.Payer, buyerAmount)
	deal.credit(deal.Payee, sellerAmount)
	deal.credit(e.feeCollector, fee)
	deal.Status = DealResolved
	if err := e.storeDeal(deal); err != nil {
		return err
	}
	now := e.now()
	e.emit(events.DealResolved{
		ID:           deal.ID,
		Arbiter:      caller,
		BuyerAmount:  new(big.Int).Set(buyerAmount),
		SellerAmount: new(big.Int).Set(sellerAmount),
		Resolution:   trimmed,
		ResolvedAt:   now,
	})
	if buyerAmount.Sign() > 0 {
		e.emit(events.WithdrawalReady{ID: deal.ID, Payee: deal.Payer, Amount: new(big.Int).Set(buyerAmount)})
	}
	if sellerAmount.Sign() > 0 {
		e.emit(events.WithdrawalReady{ID: deal.ID, Payee: deal.Payee, Amount: new(big.Int).Set(sellerAmount)})
	}
	if fee.Sign() > 0 {
		e.emit(events.WithdrawalReady{ID: deal.ID, Payee: e.feeCollector, Amount: fee})
	}
	return nil
}

// Cancel aborts the deal. From Created it succeeds unconditionally; from
// Funded it is only permitted once the deadline has passed and refunds the
// full deposit to the payer's pending balance. A dispute or completion
// forecloses cancellation.
func (e *Engine) Cancel(id [32]byte, caller [20]byte) error {
	deal, err := e.loadDeal(id)
	if err != nil {
		return err
	}
	if err := requireRunning(deal); err != nil {
		return err
	}
	if err := requireParticipant(deal, caller); err != nil {
		return err
	}
	now := e.now()
	switch deal.Status {
	case DealCreated:
		deal.Status = DealCancelled
		if err := e.storeDeal(deal); err != nil {
			return err
		}
		e.emit(events.DealCancelled{ID: deal.ID, Caller: caller, CancelledAt: now})
		return nil
	case DealFunded:
		if now <= deal.Deadline {
			return ErrDeadlineNotReached
		}
		refund := new(big.Int).Set(deal.Amount)
		deal.credit(deal.Payer, refund)
		deal.Status = DealRefunded
		if err := e.storeDeal(deal); err != nil {
			return err
		}
		e.emit(events.RefundClaimed{ID: deal.ID, Payer: deal.Payer, Amount: refund, RefundedAt: now})
		e.emit(events.WithdrawalReady{ID: deal.ID, Payee: deal.Payer, Amount: new(big.Int).Set(refund)})
		return nil
	default:
		return ErrInvalidState
	}
}

// Withdraw pays out the caller's entire pending balance for the deal. The
// balance is zeroed and persisted before the outward transfer so a reentrant
// call observes nothing left to claim; a failed transfer restores it.
func (e *Engine) Withdraw(id [32]byte, caller [20]byte) (*big.Int, error) {
	deal, err := e.loadDeal(id)
	if err != nil {
		return nil, err
	}
	if err := requireRunning(deal); err != nil {
		return nil, err
	}
	amount := deal.PendingFor(caller)
	if amount.Sign() == 0 {
		return nil, ErrNothingToWithdraw
	}
	delete(deal.Pending, caller)
	if err := e.storeDeal(deal); err != nil {
		return nil, err
	}
	if err := e.transfer(e.vault, caller, amount); err != nil {
		deal.credit(caller, amount)
		if storeErr := e.storeDeal(deal); storeErr != nil {
			return nil, storeErr
		}
		return nil, err
	}
	e.emit(events.Withdrawn{ID: deal.ID, Caller: caller, Amount: new(big.Int).Set(amount)})
	return amount, nil
}

// Pause blocks every state-changing operation on the deal until Unpause.
// Reads remain available. Only the administrative authority may call it.
func (e *Engine) Pause(id [32]byte, caller [20]byte) error {
	return e.setPaused(id, caller, true)
}

// Unpause clears the pause flag. Only the administrative authority may call
// it.
func (e *Engine) Unpause(id [32]byte, caller [20]byte) error {
	return e.setPaused(id, caller, false)
}

func (e *Engine) setPaused(id [32]byte, caller [20]byte, paused bool) error {
	deal, err := e.loadDeal(id)
	if err != nil {
		return err
	}
	if err := requireCaller(caller, e.admin); err != nil {
		return err
	}
	if deal.Paused == paused {
		return nil
	}
	deal.Paused = paused
	return e.storeDeal(deal)
}

// Get returns a copy of the deal record. Available regardless of pause.
func (e *Engine) Get(id [32]byte) (*Deal, error) {
	deal, err := e.loadDeal(id)
	if err != nil {
		return nil, err
	}
	return deal, nil
}

// Status returns the deal's lifecycle state. Available regardless of pause.
func (e *Engine) Status(id [32]byte) (DealStatus, error) {
	deal, err := e.loadDeal(id)
	if err != nil {
		return 0, err
	}
	return deal.Status, nil
}
