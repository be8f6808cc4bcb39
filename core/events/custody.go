package events

import (
	"math/big"

	"dealvault/core/types"
)

const (
	TypeDealCreated     = "custody.created"
	TypeDealFunded      = "custody.funded"
	TypeDealDelivered   = "custody.delivered"
	TypeDealCompleted   = "custody.completed"
	TypeDealDisputed    = "custody.disputed"
	TypeDealResolved    = "custody.resolved"
	TypeDealCancelled   = "custody.cancelled"
	TypeRefundClaimed   = "custody.refundClaimed"
	TypeWithdrawalReady = "custody.withdrawalReady"
	TypeWithdrawn       = "custody.withdrawn"
)

type DealCreated struct {
	ID        [32]byte
	Payer     [20]byte
	Payee     [20]byte
	Arbiter   [20]byte
	Amount    *big.Int
	Deadline  int64
	CreatedAt int64
}

func (DealCreated) EventType() string { return TypeDealCreated }

func (e DealCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeDealCreated,
		Attributes: map[string]string{
			"id":        formatID(e.ID),
			"payer":     formatAddress(e.Payer),
			"payee":     formatAddress(e.Payee),
			"arbiter":   formatAddress(e.Arbiter),
			"amount":    formatAmount(e.Amount),
			"deadline":  intToString(e.Deadline),
			"createdAt": intToString(e.CreatedAt),
		},
	}
}

type DealFunded struct {
	ID       [32]byte
	Payer    [20]byte
	Amount   *big.Int
	FundedAt int64
}

func (DealFunded) EventType() string { return TypeDealFunded }

func (e DealFunded) Event() *types.Event {
	return &types.Event{
		Type: TypeDealFunded,
		Attributes: map[string]string{
			"id":       formatID(e.ID),
			"payer":    formatAddress(e.Payer),
			"amount":   formatAmount(e.Amount),
			"fundedAt": intToString(e.FundedAt),
		},
	}
}

type DealDelivered struct {
	ID          [32]byte
	Payee       [20]byte
	DeliveredAt int64
}

func (DealDelivered) EventType() string { return TypeDealDelivered }

func (e DealDelivered) Event() *types.Event {
	return &types.Event{
		Type: TypeDealDelivered,
		Attributes: map[string]string{
			"id":          formatID(e.ID),
			"payee":       formatAddress(e.Payee),
			"deliveredAt": intToString(e.DeliveredAt),
		},
	}
}

type DealCompleted struct {
	ID          [32]byte
	PayeeAmount *big.Int
	Fee         *big.Int
	CompletedAt int64
}

func (DealCompleted) EventType() string { return TypeDealCompleted }

func (e DealCompleted) Event() *types.Event {
	return &types.Event{
		Type: TypeDealCompleted,
		Attributes: map[string]string{
			"id":          formatID(e.ID),
			"payeeAmount": formatAmount(e.PayeeAmount),
			"fee":         formatAmount(e.Fee),
			"completedAt": intToString(e.CompletedAt),
		},
	}
}

type DealDisputed struct {
	ID         [32]byte
	Raiser     [20]byte
	Reason     string
	DisputedAt int64
}

func (DealDisputed) EventType() string { return TypeDealDisputed }

func (e DealDisputed) Event() *types.Event {
	return &types.Event{
		Type: TypeDealDisputed,
		Attributes: map[string]string{
			"id":         formatID(e.ID),
			"raiser":     formatAddress(e.Raiser),
			"reason":     e.Reason,
			"disputedAt": intToString(e.DisputedAt),
		},
	}
}

type DealResolved struct {
	ID          [32]byte
	Arbiter     [20]byte
	BuyerAmount *big.Int
	SellerAmount *big.Int
	Resolution  string
	ResolvedAt  int64
}

func (DealResolved) EventType() string { return TypeDealResolved }

func (e DealResolved) Event() *types.Event {
	return &types.Event{
		Type: TypeDealResolved,
		Attributes: map[string]string{
			"id":           formatID(e.ID),
			"arbiter":      formatAddress(e.Arbiter),
			"buyerAmount":  formatAmount(e.BuyerAmount),
			"sellerAmount": formatAmount(e.SellerAmount),
			"resolution":   e.Resolution,
			"resolvedAt":   intToString(e.ResolvedAt),
		},
	}
}

type DealCancelled struct {
	ID          [32]byte
	Caller      [20]byte
	CancelledAt int64
}

func (DealCancelled) EventType() string { return TypeDealCancelled }

func (e DealCancelled) Event() *types.Event {
	return &types.Event{
		Type: TypeDealCancelled,
		Attributes: map[string]string{
			"id":          formatID(e.ID),
			"caller":      formatAddress(e.Caller),
			"cancelledAt": intToString(e.CancelledAt),
		},
	}
}

type RefundClaimed struct {
	ID         [32]byte
	Payer      [20]byte
	Amount     *big.Int
	RefundedAt int64
}

func (RefundClaimed) EventType() string { return TypeRefundClaimed }

func (e RefundClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeRefundClaimed,
		Attributes: map[string]string{
			"id":         formatID(e.ID),
			"payer":      formatAddress(e.Payer),
			"amount":     formatAmount(e.Amount),
			"refundedAt": intToString(e.RefundedAt),
		},
	}
}

// WithdrawalReady is emitted once per pending-balance credit so indexers can
// prompt the owed party to pull their funds.
type WithdrawalReady struct {
	ID     [32]byte
	Payee  [20]byte
	Amount *big.Int
}

func (WithdrawalReady) EventType() string { return TypeWithdrawalReady }

func (e WithdrawalReady) Event() *types.Event {
	return &types.Event{
		Type: TypeWithdrawalReady,
		Attributes: map[string]string{
			"id":     formatID(e.ID),
			"payee":  formatAddress(e.Payee),
			"amount": formatAmount(e.Amount),
		},
	}
}

type Withdrawn struct {
	ID     [32]byte
	Caller [20]byte
	Amount *big.Int
}

func (Withdrawn) EventType() string { return TypeWithdrawn }

func (e Withdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeWithdrawn,
		Attributes: map[string]string{
			"id":     formatID(e.ID),
			"caller": formatAddress(e.Caller),
			"amount": formatAmount(e.Amount),
		},
	}
}
