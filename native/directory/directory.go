package directory

import (
	"errors"
	"math/big"

	"dealvault/native/arbiter"
	"dealvault/native/custody"
)

var (
	ErrNotConfigured    = errors.New("directory: not configured")
	ErrUnauthorized     = errors.New("directory: unauthorized caller")
	ErrArbiterNotActive = errors.New("directory: arbiter not active")
)

type directoryState interface {
	ParticipantDealsAppend(addr [20]byte, id [32]byte) error
	ParticipantDeals(addr [20]byte) ([][32]byte, error)
}

// Directory deploys custody deals, indexes them by participant and gates
// which arbiters may be assigned. Its own identity is the custody fee sink
// and the pause authority; platform fees accrue to it as pending withdrawals
// on each settled deal.
type Directory struct {
	engine   *custody.Engine
	registry *arbiter.Registry
	state    directoryState
	// addr is the directory's ledger identity; owner is the operator
	// account allowed to administer it.
	addr  [20]byte
	owner [20]byte
}

// NewDirectory creates an unwired directory. Callers attach the custody
// engine, registry, index state, address and owner before use.
func NewDirectory() *Directory { return &Directory{} }

func (d *Directory) SetEngine(engine *custody.Engine) { d.engine = engine }
func (d *Directory) SetRegistry(reg *arbiter.Registry) { d.registry = reg }
func (d *Directory) SetState(state directoryState) { d.state = state }
func (d *Directory) SetAddress(addr [20]byte) { d.addr = addr }
func (d *Directory) SetOwner(owner [20]byte) { d.owner = owner }

// Address returns the directory's ledger identity.
func (d *Directory) Address() [20]byte { return d.addr }

func (d *Directory) configured() error {
	if d == nil || d.engine == nil || d.registry == nil || d.state == nil {
		return ErrNotConfigured
	}
	return nil
}

// CreateDeal validates the parameters, checks the arbiter's eligibility with
// the registry and deploys a new custody deal, indexing it for all three
// participants. Parameter validation beyond eligibility lives in the custody
// engine; the directory adds no guards of its own.
func (d *Directory) CreateDeal(payer, payee, arbiterAddr [20]byte, amount *big.Int, deadline int64, description string, nonce uint64) (*custody.Deal, error) {
	if err := d.configured(); err != nil {
		return nil, err
	}
	if !d.registry.IsActive(arbiterAddr) {
		return nil, ErrArbiterNotActive
	}
	deal, err := d.engine.Create(payer, payee, arbiterAddr, amount, deadline, description, nonce)
	if err != nil {
		return nil, err
	}
	for _, participant := range [][20]byte{payer, payee, arbiterAddr} {
		if err := d.state.ParticipantDealsAppend(participant, deal.ID); err != nil {
			return nil, err
		}
	}
	return deal, nil
}

// DealsFor lists the deal identifiers the address participates in.
func (d *Directory) DealsFor(addr [20]byte) ([][32]byte, error) {
	if err := d.configured(); err != nil {
		return nil, err
	}
	return d.state.ParticipantDeals(addr)
}

// RecordResolution forwards a settled dispute outcome to the registry using
// the directory's administrative identity. Arbiters cannot grade themselves.
func (d *Directory) RecordResolution(caller, arbiterAddr [20]byte, successful bool) error {
	if err := d.configured(); err != nil {
		return err
	}
	if caller != d.owner {
		return ErrUnauthorized
	}
	return d.registry.UpdateReputation(d.addr, arbiterAddr, successful)
}

// PauseDeal suspends all state-changing operations on the deal.
func (d *Directory) PauseDeal(caller [20]byte, id [32]byte) error {
	if err := d.configured(); err != nil {
		return err
	}
	if caller != d.owner {
		return ErrUnauthorized
	}
	return d.engine.Pause(id, d.addr)
}

// UnpauseDeal lifts a suspension.
func (d *Directory) UnpauseDeal(caller [20]byte, id [32]byte) error {
	if err := d.configured(); err != nil {
		return err
	}
	if caller != d.owner {
		return ErrUnauthorized
	}
	return d.engine.Unpause(id, d.addr)
}

// WithdrawFees pulls the directory's accrued platform fee for the deal.
func (d *Directory) WithdrawFees(caller [20]byte, id [32]byte) (*big.Int, error) {
	if err := d.configured(); err != nil {
		return nil, err
	}
	if caller != d.owner {
		return nil, ErrUnauthorized
	}
	return d.engine.Withdraw(id, d.addr)
}
