package token

import "yieldvault/crypto"

// Mint describes a fungible asset: who may issue it and how much exists.
type Mint struct {
	Address   crypto.Address
	Authority crypto.Address
	Decimals  uint8
	Supply    uint64
}

// Account holds a balance of a single mint on behalf of an owner. The owner is
// the only identity allowed to move funds out of the account.
type Account struct {
	Address crypto.Address
	Mint    crypto.Address
	Owner   crypto.Address
	Amount  uint64
}

// Clone returns a copy of the account record.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// Clone returns a copy of the mint record.
func (m *Mint) Clone() *Mint {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}
