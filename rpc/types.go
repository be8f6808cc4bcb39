package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"dealvault/native/arbiter"
	"dealvault/native/custody"
	"dealvault/native/directory"
)

func parseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if trimmed == "" {
		return addr, errors.New("address required")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address: %w", err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("invalid address length %d", len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func parseDealID(raw string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("invalid deal id: %w", err)
	}
	if len(decoded) != len(id) {
		return id, fmt.Errorf("invalid deal id length %d", len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}

func formatDealID(id [32]byte) string {
	return hex.EncodeToString(id[:])
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, errors.New("amount must not be negative")
	}
	return amount, nil
}

func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

type dealJSON struct {
	ID            string            `json:"id"`
	Payer         string            `json:"payer"`
	Payee         string            `json:"payee"`
	Arbiter       string            `json:"arbiter"`
	Amount        string            `json:"amount"`
	Deadline      int64             `json:"deadline"`
	CreatedAt     int64             `json:"createdAt"`
	Description   string            `json:"description"`
	Status        string            `json:"status"`
	Paused        bool              `json:"paused"`
	Disputed      bool              `json:"disputed"`
	DisputeAt     int64             `json:"disputeAt,omitempty"`
	DisputeReason string            `json:"disputeReason,omitempty"`
	Pending       map[string]string `json:"pending,omitempty"`
}

func formatDealJSON(deal *custody.Deal) dealJSON {
	if deal == nil {
		return dealJSON{}
	}
	out := dealJSON{
		ID:            formatDealID(deal.ID),
		Payer:         formatAddress(deal.Payer),
		Payee:         formatAddress(deal.Payee),
		Arbiter:       formatAddress(deal.Arbiter),
		Amount:        deal.Amount.String(),
		Deadline:      deal.Deadline,
		CreatedAt:     deal.CreatedAt,
		Description:   deal.Description,
		Status:        deal.Status.String(),
		Paused:        deal.Paused,
		Disputed:      deal.Disputed,
		DisputeAt:     deal.DisputeAt,
		DisputeReason: deal.DisputeReason,
	}
	if len(deal.Pending) > 0 {
		out.Pending = make(map[string]string, len(deal.Pending))
		for addr, amt := range deal.Pending {
			out.Pending[formatAddress(addr)] = amt.String()
		}
	}
	return out
}

type arbiterJSON struct {
	Arbiter               string `json:"arbiter"`
	Active                bool   `json:"active"`
	Stake                 string `json:"stake"`
	DisputesResolved      uint64 `json:"disputesResolved"`
	SuccessfulResolutions uint64 `json:"successfulResolutions"`
	RegisteredAt          int64  `json:"registeredAt"`
	WithdrawalRequestAt   int64  `json:"withdrawalRequestAt,omitempty"`
	ReputationScore       uint64 `json:"reputationScore"`
}

func formatArbiterJSON(record *arbiter.Record) arbiterJSON {
	if record == nil {
		return arbiterJSON{}
	}
	return arbiterJSON{
		Arbiter:               formatAddress(record.Arbiter),
		Active:                record.Active,
		Stake:                 record.Stake.String(),
		DisputesResolved:      record.DisputesResolved,
		SuccessfulResolutions: record.SuccessfulResolutions,
		RegisteredAt:          record.RegisteredAt,
		WithdrawalRequestAt:   record.WithdrawalRequestAt,
		ReputationScore:       record.ReputationScore(),
	}
}

// moduleError maps domain sentinels onto JSON-RPC status and error codes so
// every failure surfaces as a named condition.
func moduleError(w http.ResponseWriter, id interface{}, err error) {
	status := http.StatusBadRequest
	code := codeInvalidParams
	switch {
	case errors.Is(err, custody.ErrDealNotFound),
		errors.Is(err, arbiter.ErrNotRegistered):
		status = http.StatusNotFound
		code = codeNotFound
	case errors.Is(err, custody.ErrUnauthorized),
		errors.Is(err, arbiter.ErrUnauthorized),
		errors.Is(err, directory.ErrUnauthorized):
		status = http.StatusForbidden
		code = codeForbidden
	case errors.Is(err, custody.ErrInvalidState),
		errors.Is(err, custody.ErrPaused),
		errors.Is(err, custody.ErrDealExists),
		errors.Is(err, directory.ErrArbiterNotActive),
		errors.Is(err, arbiter.ErrAlreadyRegistered),
		errors.Is(err, arbiter.ErrWithdrawalPending),
		errors.Is(err, arbiter.ErrNoWithdrawalRequest),
		errors.Is(err, arbiter.ErrCooldownActive),
		errors.Is(err, arbiter.ErrNoStake):
		status = http.StatusConflict
		code = codeConflict
	case errors.Is(err, custody.ErrNilState),
		errors.Is(err, arbiter.ErrNilState),
		errors.Is(err, directory.ErrNotConfigured):
		status = http.StatusInternalServerError
		code = codeServerError
	}
	writeError(w, status, id, code, err.Error(), nil)
}
