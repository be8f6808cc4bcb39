package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"dealvault/core/types"
	"dealvault/native/arbiter"
	"dealvault/native/custody"
	"dealvault/storage"
)

var (
	dealPrefix        = []byte("custody/deal/")
	accountPrefix     = []byte("account/")
	arbiterPrefix     = []byte("arbiter/record/")
	participantPrefix = []byte("directory/deals/")

	arbiterActiveCountKey = []byte("arbiter/activeCount")
)

// Manager persists deals, arbiter records and ledger accounts on a key-value
// backend. It implements the state interfaces consumed by the custody engine,
// the arbiter registry and the deal directory. Records are append-only: keys
// are overwritten but never removed.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func dealKey(id [32]byte) []byte {
	return append(append([]byte(nil), dealPrefix...), []byte(hex.EncodeToString(id[:]))...)
}

func accountKey(addr [20]byte) []byte {
	return append(append([]byte(nil), accountPrefix...), []byte(hex.EncodeToString(addr[:]))...)
}

func arbiterKey(addr [20]byte) []byte {
	return append(append([]byte(nil), arbiterPrefix...), []byte(hex.EncodeToString(addr[:]))...)
}

func participantKey(addr [20]byte) []byte {
	return append(append([]byte(nil), participantPrefix...), []byte(hex.EncodeToString(addr[:]))...)
}

// KVGet decodes the stored value for key into out, reporting whether the key
// exists.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, errors.New("state: database not configured")
	}
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// KVPut encodes value and stores it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return errors.New("state: database not configured")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, raw)
}

// storedDeal is the serialised form of a custody deal. Addresses and amounts
// use strings so the JSON stays stable across schema evolution.
type storedDeal struct {
	ID            string            `json:"id"`
	Payer         string            `json:"payer"`
	Payee         string            `json:"payee"`
	Arbiter       string            `json:"arbiter"`
	Amount        string            `json:"amount"`
	Deadline      int64             `json:"deadline"`
	CreatedAt     int64             `json:"createdAt"`
	Description   string            `json:"description"`
	Status        uint8             `json:"status"`
	Paused        bool              `json:"paused,omitempty"`
	Disputed      bool              `json:"disputed,omitempty"`
	DisputeAt     int64             `json:"disputeAt,omitempty"`
	DisputeReason string            `json:"disputeReason,omitempty"`
	Pending       map[string]string `json:"pending,omitempty"`
}

func encodeAddress(addr [20]byte) string { return hex.EncodeToString(addr[:]) }

func decodeAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return addr, err
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("state: address length %d", len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

func decodeAmount(raw string) (*big.Int, error) {
	if raw == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("state: invalid amount %q", raw)
	}
	return amount, nil
}

// DealPut sanitises and persists the deal.
func (m *Manager) DealPut(deal *custody.Deal) error {
	sanitized, err := custody.SanitizeDeal(deal)
	if err != nil {
		return err
	}
	stored := storedDeal{
		ID:            hex.EncodeToString(sanitized.ID[:]),
		Payer:         encodeAddress(sanitized.Payer),
		Payee:         encodeAddress(sanitized.Payee),
		Arbiter:       encodeAddress(sanitized.Arbiter),
		Amount:        sanitized.Amount.String(),
		Deadline:      sanitized.Deadline,
		CreatedAt:     sanitized.CreatedAt,
		Description:   sanitized.Description,
		Status:        uint8(sanitized.Status),
		Paused:        sanitized.Paused,
		Disputed:      sanitized.Disputed,
		DisputeAt:     sanitized.DisputeAt,
		DisputeReason: sanitized.DisputeReason,
	}
	if len(sanitized.Pending) > 0 {
		stored.Pending = make(map[string]string, len(sanitized.Pending))
		for addr, amt := range sanitized.Pending {
			stored.Pending[encodeAddress(addr)] = amt.String()
		}
	}
	return m.KVPut(dealKey(sanitized.ID), &stored)
}

// DealGet returns a copy of the stored deal.
func (m *Manager) DealGet(id [32]byte) (*custody.Deal, bool) {
	var stored storedDeal
	ok, err := m.KVGet(dealKey(id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	deal := &custody.Deal{
		ID:            id,
		Deadline:      stored.Deadline,
		CreatedAt:     stored.CreatedAt,
		Description:   stored.Description,
		Status:        custody.DealStatus(stored.Status),
		Paused:        stored.Paused,
		Disputed:      stored.Disputed,
		DisputeAt:     stored.DisputeAt,
		DisputeReason: stored.DisputeReason,
		Pending:       make(map[[20]byte]*big.Int, len(stored.Pending)),
	}
	if deal.Payer, err = decodeAddress(stored.Payer); err != nil {
		return nil, false
	}
	if deal.Payee, err = decodeAddress(stored.Payee); err != nil {
		return nil, false
	}
	if deal.Arbiter, err = decodeAddress(stored.Arbiter); err != nil {
		return nil, false
	}
	if deal.Amount, err = decodeAmount(stored.Amount); err != nil {
		return nil, false
	}
	for rawAddr, rawAmt := range stored.Pending {
		addr, err := decodeAddress(rawAddr)
		if err != nil {
			return nil, false
		}
		amt, err := decodeAmount(rawAmt)
		if err != nil {
			return nil, false
		}
		deal.Pending[addr] = amt
	}
	return deal, true
}

type storedArbiter struct {
	Arbiter               string `json:"arbiter"`
	Active                bool   `json:"active"`
	Stake                 string `json:"stake"`
	DisputesResolved      uint64 `json:"disputesResolved"`
	SuccessfulResolutions uint64 `json:"successfulResolutions"`
	RegisteredAt          int64  `json:"registeredAt"`
	WithdrawalRequestAt   int64  `json:"withdrawalRequestAt,omitempty"`
}

// ArbiterPut sanitises and persists the arbiter record.
func (m *Manager) ArbiterPut(record *arbiter.Record) error {
	sanitized, err := arbiter.SanitizeRecord(record)
	if err != nil {
		return err
	}
	stored := storedArbiter{
		Arbiter:               encodeAddress(sanitized.Arbiter),
		Active:                sanitized.Active,
		Stake:                 sanitized.Stake.String(),
		DisputesResolved:      sanitized.DisputesResolved,
		SuccessfulResolutions: sanitized.SuccessfulResolutions,
		RegisteredAt:          sanitized.RegisteredAt,
		WithdrawalRequestAt:   sanitized.WithdrawalRequestAt,
	}
	return m.KVPut(arbiterKey(sanitized.Arbiter), &stored)
}

// ArbiterGet returns a copy of the stored arbiter record.
func (m *Manager) ArbiterGet(addr [20]byte) (*arbiter.Record, bool) {
	var stored storedArbiter
	ok, err := m.KVGet(arbiterKey(addr), &stored)
	if err != nil || !ok {
		return nil, false
	}
	record := &arbiter.Record{
		Arbiter:               addr,
		Active:                stored.Active,
		DisputesResolved:      stored.DisputesResolved,
		SuccessfulResolutions: stored.SuccessfulResolutions,
		RegisteredAt:          stored.RegisteredAt,
		WithdrawalRequestAt:   stored.WithdrawalRequestAt,
	}
	if record.Stake, err = decodeAmount(stored.Stake); err != nil {
		return nil, false
	}
	return record, true
}

// ArbiterActiveCount returns the global active-arbiter counter.
func (m *Manager) ArbiterActiveCount() (uint64, error) {
	var count uint64
	ok, err := m.KVGet(arbiterActiveCountKey, &count)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return count, nil
}

// ArbiterSetActiveCount stores the global active-arbiter counter.
func (m *Manager) ArbiterSetActiveCount(count uint64) error {
	return m.KVPut(arbiterActiveCountKey, count)
}

type storedAccount struct {
	Nonce   uint64 `json:"nonce"`
	Balance string `json:"balance"`
}

// GetAccount returns the ledger account for addr, a zero-balance account when
// none exists yet.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	balance, err := decodeAmount(stored.Balance)
	if err != nil {
		return nil, err
	}
	return &types.Account{Nonce: stored.Nonce, Balance: balance}, nil
}

// PutAccount persists the ledger account.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return errors.New("state: nil account")
	}
	account.EnsureBalance()
	if account.Balance.Sign() < 0 {
		return errors.New("state: negative balance")
	}
	stored := storedAccount{Nonce: account.Nonce, Balance: account.Balance.String()}
	return m.KVPut(accountKey(addr), &stored)
}

// ParticipantDealsAppend adds the deal to the participant's index.
func (m *Manager) ParticipantDealsAppend(addr [20]byte, id [32]byte) error {
	ids, err := m.ParticipantDeals(addr)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	encoded := make([]string, 0, len(ids)+1)
	for _, existing := range ids {
		encoded = append(encoded, hex.EncodeToString(existing[:]))
	}
	encoded = append(encoded, hex.EncodeToString(id[:]))
	return m.KVPut(participantKey(addr), encoded)
}

// ParticipantDeals lists the deal identifiers indexed for the participant in
// insertion order.
func (m *Manager) ParticipantDeals(addr [20]byte) ([][32]byte, error) {
	var encoded []string
	ok, err := m.KVGet(participantKey(addr), &encoded)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	ids := make([][32]byte, 0, len(encoded))
	for _, raw := range encoded {
		decoded, err := hex.DecodeString(raw)
		if err != nil || len(decoded) != 32 {
			return nil, fmt.Errorf("state: invalid deal id %q", raw)
		}
		var id [32]byte
		copy(id[:], decoded)
		ids = append(ids, id)
	}
	return ids, nil
}
