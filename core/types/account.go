package types

import "math/big"

// Account is a ledger account holding the native currency. Deposits move
// between participant accounts and the custody vault; the arbiter registry
// vault holds posted bonds the same way.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// EnsureBalance normalises a nil balance to zero so arithmetic never has to
// branch on nil.
func (a *Account) EnsureBalance() {
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
}
