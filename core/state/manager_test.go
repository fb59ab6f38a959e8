package state

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"yieldvault/crypto"
	"yieldvault/native/token"
	"yieldvault/native/vault"
	"yieldvault/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { _ = db.Close() })
	return NewManager(db)
}

func TestUpdateCommitsAllOrNothing(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Update(func(tx *Txn) error {
		return tx.KVPut([]byte("a"), uint64(1))
	}))

	boom := errors.New("boom")
	err := mgr.Update(func(tx *Txn) error {
		if err := tx.KVPut([]byte("a"), uint64(2)); err != nil {
			return err
		}
		if err := tx.KVPut([]byte("b"), uint64(3)); err != nil {
			return err
		}
		var seen uint64
		ok, err := tx.KVGet([]byte("a"), &seen)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint64(2), seen)
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, mgr.View(func(tx *Txn) error {
		var a uint64
		ok, err := tx.KVGet([]byte("a"), &a)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint64(1), a)

		ok, err = tx.KVGet([]byte("b"), nil)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}

func TestViewRejectsWrites(t *testing.T) {
	mgr := newTestManager(t)
	err := mgr.View(func(tx *Txn) error {
		return tx.KVPut([]byte("a"), uint64(1))
	})
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestKVAppendDeduplicates(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Update(func(tx *Txn) error {
		for _, v := range []string{"x", "y", "x"} {
			if err := tx.KVAppend([]byte("list"), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	}))
	require.NoError(t, mgr.View(func(tx *Txn) error {
		var list [][]byte
		require.NoError(t, tx.KVGetList([]byte("list"), &list))
		require.Equal(t, [][]byte{[]byte("x"), []byte("y")}, list)

		var empty [][]byte
		require.NoError(t, tx.KVGetList([]byte("missing"), &empty))
		require.NotNil(t, empty)
		require.Empty(t, empty)
		return nil
	}))
}

func TestVaultRecordRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	owner := crypto.BytesToAddress([]byte{0x01})
	addr := vault.VaultAddress(owner)

	var acc uint256.Int
	acc.Lsh(uint256.NewInt(1), 120)
	acc.AddUint64(&acc, 7)

	original := &vault.Vault{
		Address:            addr,
		Owner:              owner,
		Authority:          vault.ActiveAuthority(owner),
		Name:               "solar farm",
		PaymentMint:        crypto.BytesToAddress([]byte{0x02}),
		ShareMint:          vault.ShareMintAddress(addr),
		Signer:             vault.SignerAddress(addr),
		PrincipalAccount:   vault.PrincipalAddress(addr),
		RevenueAccount:     vault.RevenueAddress(addr),
		TreasuryAccount:    vault.TreasuryAddress(addr),
		TotalShares:        10_000,
		MintedShares:       300,
		PricePerShare:      100,
		PerformanceFeeBps:  1500,
		TotalFeesCollected: 42,
		RewardAccumulator:  acc,
		RewardRemainder:    299,
		CreatedAt:          1_700_000_000,
	}
	require.NoError(t, mgr.Update(func(tx *Txn) error { return tx.VaultPut(original) }))

	require.NoError(t, mgr.View(func(tx *Txn) error {
		loaded, ok, err := tx.VaultGet(addr)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, original, loaded)

		list, err := tx.VaultList()
		require.NoError(t, err)
		require.Equal(t, []crypto.Address{addr}, list)
		return nil
	}))

	revoked := original.Clone()
	revoked.Authority = vault.RevokedAuthority()
	require.NoError(t, mgr.Update(func(tx *Txn) error { return tx.VaultPut(revoked) }))
	require.NoError(t, mgr.View(func(tx *Txn) error {
		loaded, _, err := tx.VaultGet(addr)
		require.NoError(t, err)
		require.True(t, loaded.Authority.Revoked())
		list, err := tx.VaultList()
		require.NoError(t, err)
		require.Len(t, list, 1)
		return nil
	}))
}

func TestPositionsFollowHolderIndex(t *testing.T) {
	mgr := newTestManager(t)
	vaultAddr := crypto.BytesToAddress([]byte{0xaa})
	alice := crypto.BytesToAddress([]byte{0x0a})
	bob := crypto.BytesToAddress([]byte{0x0b})

	require.NoError(t, mgr.Update(func(tx *Txn) error {
		if err := tx.PositionPut(&vault.Position{Vault: vaultAddr, Owner: alice, Quantity: 100}); err != nil {
			return err
		}
		if err := tx.PositionPut(&vault.Position{Vault: vaultAddr, Owner: bob, Quantity: 200, RewardCheckpoint: *uint256.NewInt(9)}); err != nil {
			return err
		}
		return tx.PositionPut(&vault.Position{Vault: vaultAddr, Owner: alice, Quantity: 0})
	}))

	require.NoError(t, mgr.View(func(tx *Txn) error {
		positions, err := tx.Positions(vaultAddr)
		require.NoError(t, err)
		require.Len(t, positions, 2)
		require.Equal(t, alice, positions[0].Owner)
		require.Zero(t, positions[0].Quantity)
		require.Equal(t, uint64(200), positions[1].Quantity)
		require.Equal(t, uint64(9), positions[1].RewardCheckpoint.Uint64())

		_, ok, err := tx.PositionGet(crypto.BytesToAddress([]byte{0xbb}), alice)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}

func TestTokenRecordsPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	db, err := storage.NewLevelDB(path)
	require.NoError(t, err)

	mintAddr := crypto.BytesToAddress([]byte{0x10})
	owner := crypto.BytesToAddress([]byte{0x20})
	mgr := NewManager(db)
	require.NoError(t, EnsureStateVersion(mgr, false))
	require.NoError(t, mgr.Update(func(tx *Txn) error {
		ledger := token.NewLedger(tx)
		if _, err := ledger.CreateMint(mintAddr, owner, 6); err != nil {
			return err
		}
		acct, err := ledger.EnsureAssociatedAccount(owner, mintAddr)
		if err != nil {
			return err
		}
		return ledger.MintTo(mintAddr, acct.Address, owner, 5_000)
	}))
	require.NoError(t, db.Close())

	db, err = storage.NewLevelDB(path)
	require.NoError(t, err)
	defer db.Close()
	mgr = NewManager(db)
	require.NoError(t, EnsureStateVersion(mgr, false))
	require.NoError(t, mgr.View(func(tx *Txn) error {
		ledger := token.NewLedger(tx)
		mint, err := ledger.Mint(mintAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(5_000), mint.Supply)
		require.Equal(t, uint8(6), mint.Decimals)

		acct, err := ledger.Account(token.AssociatedAddress(owner, mintAddr))
		require.NoError(t, err)
		require.Equal(t, uint64(5_000), acct.Amount)
		return nil
	}))
}

func TestEnsureStateVersionRejectsMismatch(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.SetStateVersion(StateVersion+1))
	require.ErrorIs(t, EnsureStateVersion(mgr, false), ErrStateVersionMismatch)
	require.NoError(t, EnsureStateVersion(mgr, true))

	version, ok, err := mgr.StateVersion()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, StateVersion+1, version)
}
