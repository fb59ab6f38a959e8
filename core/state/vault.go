package state

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"

	"yieldvault/crypto"
	"yieldvault/native/vault"
)

var (
	vaultRecordPrefix    = []byte("vault/record/")
	vaultPositionPrefix  = []byte("vault/position/")
	vaultHoldersPrefix   = []byte("vault/holders/")
	vaultDirectoryKey    = []byte("vault/directory")
	errAccumulatorTooBig = errors.New("state: stored accumulator exceeds 256 bits")
)

func vaultKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), vaultRecordPrefix...), addr[:]...)
}

func positionKey(vaultAddr, owner crypto.Address) []byte {
	id := vault.PositionAddress(vaultAddr, owner)
	return append(append([]byte(nil), vaultPositionPrefix...), id[:]...)
}

func holdersKey(vaultAddr crypto.Address) []byte {
	return append(append([]byte(nil), vaultHoldersPrefix...), vaultAddr[:]...)
}

type storedVault struct {
	Owner              crypto.Address
	AuthorityActive    bool
	Authority          crypto.Address
	Name               string
	PaymentMint        crypto.Address
	ShareMint          crypto.Address
	Signer             crypto.Address
	PrincipalAccount   crypto.Address
	RevenueAccount     crypto.Address
	TreasuryAccount    crypto.Address
	TotalShares        uint64
	MintedShares       uint64
	PricePerShare      uint64
	PerformanceFeeBps  uint16
	TotalFeesCollected uint64
	RewardAccumulator  *big.Int
	RewardRemainder    uint64
	CreatedAt          uint64
}

type storedPosition struct {
	Vault            crypto.Address
	Owner            crypto.Address
	Quantity         uint64
	RewardCheckpoint *big.Int
}

func bigToU256(v *big.Int) (uint256.Int, error) {
	var out uint256.Int
	if v == nil {
		return out, nil
	}
	if v.Sign() < 0 {
		return out, fmt.Errorf("state: negative accumulator")
	}
	if out.SetFromBig(v) {
		return out, errAccumulatorTooBig
	}
	return out, nil
}

func newStoredVault(v *vault.Vault) *storedVault {
	id, active := v.Authority.Identity()
	createdAt := uint64(0)
	if v.CreatedAt > 0 {
		createdAt = uint64(v.CreatedAt)
	}
	return &storedVault{
		Owner:              v.Owner,
		AuthorityActive:    active,
		Authority:          id,
		Name:               v.Name,
		PaymentMint:        v.PaymentMint,
		ShareMint:          v.ShareMint,
		Signer:             v.Signer,
		PrincipalAccount:   v.PrincipalAccount,
		RevenueAccount:     v.RevenueAccount,
		TreasuryAccount:    v.TreasuryAccount,
		TotalShares:        v.TotalShares,
		MintedShares:       v.MintedShares,
		PricePerShare:      v.PricePerShare,
		PerformanceFeeBps:  v.PerformanceFeeBps,
		TotalFeesCollected: v.TotalFeesCollected,
		RewardAccumulator:  v.RewardAccumulator.ToBig(),
		RewardRemainder:    v.RewardRemainder,
		CreatedAt:          createdAt,
	}
}

func (s *storedVault) toVault(addr crypto.Address) (*vault.Vault, error) {
	acc, err := bigToU256(s.RewardAccumulator)
	if err != nil {
		return nil, err
	}
	authority := vault.RevokedAuthority()
	if s.AuthorityActive {
		authority = vault.ActiveAuthority(s.Authority)
	}
	createdAt := int64(0)
	if s.CreatedAt <= math.MaxInt64 {
		createdAt = int64(s.CreatedAt)
	}
	return &vault.Vault{
		Address:            addr,
		Owner:              s.Owner,
		Authority:          authority,
		Name:               s.Name,
		PaymentMint:        s.PaymentMint,
		ShareMint:          s.ShareMint,
		Signer:             s.Signer,
		PrincipalAccount:   s.PrincipalAccount,
		RevenueAccount:     s.RevenueAccount,
		TreasuryAccount:    s.TreasuryAccount,
		TotalShares:        s.TotalShares,
		MintedShares:       s.MintedShares,
		PricePerShare:      s.PricePerShare,
		PerformanceFeeBps:  s.PerformanceFeeBps,
		TotalFeesCollected: s.TotalFeesCollected,
		RewardAccumulator:  acc,
		RewardRemainder:    s.RewardRemainder,
		CreatedAt:          createdAt,
	}, nil
}

// VaultGet loads the vault stored at addr.
func (t *Txn) VaultGet(addr crypto.Address) (*vault.Vault, bool, error) {
	var stored storedVault
	ok, err := t.KVGet(vaultKey(addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := stored.toVault(addr)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// VaultPut persists the vault record. New vaults are added to the directory.
func (t *Txn) VaultPut(v *vault.Vault) error {
	if v == nil {
		return fmt.Errorf("state: nil vault")
	}
	if v.Address.IsZero() {
		return fmt.Errorf("state: vault address must not be empty")
	}
	if err := t.KVAppend(vaultDirectoryKey, v.Address.Bytes()); err != nil {
		return err
	}
	return t.KVPut(vaultKey(v.Address), newStoredVault(v))
}

// VaultList returns the address of every stored vault in creation order.
func (t *Txn) VaultList() ([]crypto.Address, error) {
	var raw [][]byte
	if err := t.KVGetList(vaultDirectoryKey, &raw); err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, len(raw))
	for _, entry := range raw {
		out = append(out, crypto.BytesToAddress(entry))
	}
	return out, nil
}

// PositionGet loads owner's position in vaultAddr.
func (t *Txn) PositionGet(vaultAddr, owner crypto.Address) (*vault.Position, bool, error) {
	var stored storedPosition
	ok, err := t.KVGet(positionKey(vaultAddr, owner), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	checkpoint, err := bigToU256(stored.RewardCheckpoint)
	if err != nil {
		return nil, false, err
	}
	return &vault.Position{
		Vault:            stored.Vault,
		Owner:            stored.Owner,
		Quantity:         stored.Quantity,
		RewardCheckpoint: checkpoint,
	}, true, nil
}

// PositionPut persists the position and records its owner in the vault's
// holder index.
func (t *Txn) PositionPut(p *vault.Position) error {
	if p == nil {
		return fmt.Errorf("state: nil position")
	}
	if p.Vault.IsZero() || p.Owner.IsZero() {
		return fmt.Errorf("state: position vault and owner must not be empty")
	}
	if err := t.KVAppend(holdersKey(p.Vault), p.Owner.Bytes()); err != nil {
		return err
	}
	return t.KVPut(positionKey(p.Vault, p.Owner), &storedPosition{
		Vault:            p.Vault,
		Owner:            p.Owner,
		Quantity:         p.Quantity,
		RewardCheckpoint: p.RewardCheckpoint.ToBig(),
	})
}

// Positions returns every position recorded for vaultAddr, in the order the
// holders first appeared.
func (t *Txn) Positions(vaultAddr crypto.Address) ([]*vault.Position, error) {
	var holders [][]byte
	if err := t.KVGetList(holdersKey(vaultAddr), &holders); err != nil {
		return nil, err
	}
	out := make([]*vault.Position, 0, len(holders))
	for _, raw := range holders {
		pos, ok, err := t.PositionGet(vaultAddr, crypto.BytesToAddress(raw))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("state: holder index references missing position %x", raw)
		}
		out = append(out, pos)
	}
	return out, nil
}

// VaultStore exposes the manager's transactions to the vault engine.
type VaultStore struct {
	manager *Manager
}

// NewVaultStore wraps m for use by vault.Engine.
func NewVaultStore(m *Manager) *VaultStore {
	return &VaultStore{manager: m}
}

func (s *VaultStore) Update(fn func(vault.State) error) error {
	return s.manager.Update(func(tx *Txn) error { return fn(tx) })
}

func (s *VaultStore) View(fn func(vault.State) error) error {
	return s.manager.View(func(tx *Txn) error { return fn(tx) })
}

var (
	_ vault.State = (*Txn)(nil)
	_ vault.Store = (*VaultStore)(nil)
)
