package events

import (
	"math/big"

	"dealvault/core/types"
)

const (
	TypeArbiterRegistered        = "arbiter.registered"
	TypeArbiterWithdrawRequested = "arbiter.withdrawRequested"
	TypeArbiterStakeWithdrawn    = "arbiter.stakeWithdrawn"
	TypeArbiterReputationUpdated = "arbiter.reputationUpdated"
)

type ArbiterRegistered struct {
	Arbiter      [20]byte
	Stake        *big.Int
	RegisteredAt int64
}

func (ArbiterRegistered) EventType() string { return TypeArbiterRegistered }

func (e ArbiterRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeArbiterRegistered,
		Attributes: map[string]string{
			"arbiter":      formatAddress(e.Arbiter),
			"stake":        formatAmount(e.Stake),
			"registeredAt": intToString(e.RegisteredAt),
		},
	}
}

type ArbiterWithdrawRequested struct {
	Arbiter     [20]byte
	RequestedAt int64
}

func (ArbiterWithdrawRequested) EventType() string { return TypeArbiterWithdrawRequested }

func (e ArbiterWithdrawRequested) Event() *types.Event {
	return &types.Event{
		Type: TypeArbiterWithdrawRequested,
		Attributes: map[string]string{
			"arbiter":     formatAddress(e.Arbiter),
			"requestedAt": intToString(e.RequestedAt),
		},
	}
}

type ArbiterStakeWithdrawn struct {
	Arbiter [20]byte
	Amount  *big.Int
}

func (ArbiterStakeWithdrawn) EventType() string { return TypeArbiterStakeWithdrawn }

func (e ArbiterStakeWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeArbiterStakeWithdrawn,
		Attributes: map[string]string{
			"arbiter": formatAddress(e.Arbiter),
			"amount":  formatAmount(e.Amount),
		},
	}
}

type ArbiterReputationUpdated struct {
	Arbiter               [20]byte
	Successful            bool
	DisputesResolved      uint64
	SuccessfulResolutions uint64
}

func (ArbiterReputationUpdated) EventType() string { return TypeArbiterReputationUpdated }

func (e ArbiterReputationUpdated) Event() *types.Event {
	successful := "false"
	if e.Successful {
		successful = "true"
	}
	return &types.Event{
		Type: TypeArbiterReputationUpdated,
		Attributes: map[string]string{
			"arbiter":               formatAddress(e.Arbiter),
			"successful":            successful,
			"disputesResolved":      uintToString(e.DisputesResolved),
			"successfulResolutions": uintToString(e.SuccessfulResolutions),
		},
	}
}
