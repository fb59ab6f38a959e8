package token

import (
	"fmt"
	"math"

	"yieldvault/crypto"
)

// State is the persistence surface the ledger needs. Implementations are
// expected to run inside the caller's transaction so that a failed operation
// leaves no partial transfer behind.
type State interface {
	TokenMintGet(addr crypto.Address) (*Mint, bool, error)
	TokenMintPut(mint *Mint) error
	TokenAccountGet(addr crypto.Address) (*Account, bool, error)
	TokenAccountPut(account *Account) error
}

// Ledger implements mint, transfer and burn over token accounts.
type Ledger struct {
	state State
}

// NewLedger binds a ledger to the supplied state.
func NewLedger(state State) *Ledger {
	return &Ledger{state: state}
}

// AssociatedAddress returns the canonical token account for owner and mint.
func AssociatedAddress(owner, mint crypto.Address) crypto.Address {
	return crypto.Derive([]byte("associated-token"), owner[:], mint[:])
}

// Mint loads a mint record.
func (l *Ledger) Mint(addr crypto.Address) (*Mint, error) {
	mint, ok, err := l.state.TokenMintGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMintNotFound, addr)
	}
	return mint, nil
}

// Account loads a token account record.
func (l *Ledger) Account(addr crypto.Address) (*Account, error) {
	acc, ok, err := l.state.TokenAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acc, nil
}

// CreateMint registers a new mint controlled by authority.
func (l *Ledger) CreateMint(addr, authority crypto.Address, decimals uint8) (*Mint, error) {
	if addr.IsZero() || authority.IsZero() {
		return nil, ErrNullAddress
	}
	if _, ok, err := l.state.TokenMintGet(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrMintExists, addr)
	}
	mint := &Mint{Address: addr, Authority: authority, Decimals: decimals}
	if err := l.state.TokenMintPut(mint); err != nil {
		return nil, err
	}
	return mint, nil
}

// CreateAccount opens an empty account for owner holding mint.
func (l *Ledger) CreateAccount(addr, mint, owner crypto.Address) (*Account, error) {
	if addr.IsZero() || owner.IsZero() {
		return nil, ErrNullAddress
	}
	if _, err := l.Mint(mint); err != nil {
		return nil, err
	}
	if _, ok, err := l.state.TokenAccountGet(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, addr)
	}
	acc := &Account{Address: addr, Mint: mint, Owner: owner}
	if err := l.state.TokenAccountPut(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// EnsureAssociatedAccount returns the associated account of owner for mint,
// opening it when it does not exist yet.
func (l *Ledger) EnsureAssociatedAccount(owner, mint crypto.Address) (*Account, error) {
	addr := AssociatedAddress(owner, mint)
	acc, ok, err := l.state.TokenAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if ok {
		return acc, nil
	}
	return l.CreateAccount(addr, mint, owner)
}

// Transfer moves amount from one account to another. authority must own the
// source account and both accounts must hold the same mint.
func (l *Ledger) Transfer(from, to, authority crypto.Address, amount uint64) error {
	src, err := l.Account(from)
	if err != nil {
		return err
	}
	dst, err := l.Account(to)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, from)
	}
	if src.Mint != dst.Mint {
		return ErrMintMismatch
	}
	if amount == 0 || from == to {
		if src.Amount < amount {
			return ErrInsufficientFunds
		}
		return nil
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, src.Amount, amount)
	}
	if dst.Amount > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	src.Amount -= amount
	dst.Amount += amount
	if err := l.state.TokenAccountPut(src); err != nil {
		return err
	}
	return l.state.TokenAccountPut(dst)
}

// MintTo issues amount new units of mint into the destination account.
func (l *Ledger) MintTo(mintAddr, to, authority crypto.Address, amount uint64) error {
	mint, err := l.Mint(mintAddr)
	if err != nil {
		return err
	}
	dst, err := l.Account(to)
	if err != nil {
		return err
	}
	if mint.Authority != authority {
		return ErrMintAuthority
	}
	if dst.Mint != mint.Address {
		return ErrMintMismatch
	}
	if amount == 0 {
		return nil
	}
	if mint.Supply > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	if dst.Amount > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	mint.Supply += amount
	dst.Amount += amount
	if err := l.state.TokenMintPut(mint); err != nil {
		return err
	}
	return l.state.TokenAccountPut(dst)
}

// Burn destroys amount units held in from. authority must own the account.
func (l *Ledger) Burn(mintAddr, from, authority crypto.Address, amount uint64) error {
	mint, err := l.Mint(mintAddr)
	if err != nil {
		return err
	}
	src, err := l.Account(from)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, from)
	}
	if src.Mint != mint.Address {
		return ErrMintMismatch
	}
	if amount == 0 {
		return nil
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, src.Amount, amount)
	}
	if mint.Supply < amount {
		return ErrSupplyOverflow
	}
	src.Amount -= amount
	mint.Supply -= amount
	if err := l.state.TokenAccountPut(src); err != nil {
		return err
	}
	return l.state.TokenMintPut(mint)
}
