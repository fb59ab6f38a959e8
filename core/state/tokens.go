package state

import (
	"fmt"

	"yieldvault/crypto"
	"yieldvault/native/token"
)

var (
	tokenMintPrefix    = []byte("token/mint/")
	tokenAccountPrefix = []byte("token/account/")
)

func tokenMintKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), tokenMintPrefix...), addr[:]...)
}

func tokenAccountKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), tokenAccountPrefix...), addr[:]...)
}

type storedMint struct {
	Authority crypto.Address
	Decimals  uint8
	Supply    uint64
}

type storedAccount struct {
	Mint   crypto.Address
	Owner  crypto.Address
	Amount uint64
}

// TokenMintGet loads the mint stored at addr.
func (t *Txn) TokenMintGet(addr crypto.Address) (*token.Mint, bool, error) {
	var stored storedMint
	ok, err := t.KVGet(tokenMintKey(addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &token.Mint{
		Address:   addr,
		Authority: stored.Authority,
		Decimals:  stored.Decimals,
		Supply:    stored.Supply,
	}, true, nil
}

func (t *Txn) TokenMintPut(m *token.Mint) error {
	if m == nil || m.Address.IsZero() {
		return fmt.Errorf("state: invalid mint")
	}
	return t.KVPut(tokenMintKey(m.Address), &storedMint{
		Authority: m.Authority,
		Decimals:  m.Decimals,
		Supply:    m.Supply,
	})
}

// TokenAccountGet loads the token account stored at addr.
func (t *Txn) TokenAccountGet(addr crypto.Address) (*token.Account, bool, error) {
	var stored storedAccount
	ok, err := t.KVGet(tokenAccountKey(addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &token.Account{
		Address: addr,
		Mint:    stored.Mint,
		Owner:   stored.Owner,
		Amount:  stored.Amount,
	}, true, nil
}

func (t *Txn) TokenAccountPut(a *token.Account) error {
	if a == nil || a.Address.IsZero() {
		return fmt.Errorf("state: invalid token account")
	}
	return t.KVPut(tokenAccountKey(a.Address), &storedAccount{
		Mint:   a.Mint,
		Owner:  a.Owner,
		Amount: a.Amount,
	})
}
