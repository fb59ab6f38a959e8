package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldvault/crypto"
	"yieldvault/native/token"
	"yieldvault/native/vault"
	"yieldvault/storage"
)

func TestVaultEngineOverPersistentStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	db, err := storage.NewLevelDB(path)
	require.NoError(t, err)

	owner := crypto.BytesToAddress([]byte{0x01})
	issuer := crypto.BytesToAddress([]byte{0x02})
	paymentMint := crypto.BytesToAddress([]byte{0x03})
	buyer := crypto.BytesToAddress([]byte{0x04})

	mgr := NewManager(db)
	require.NoError(t, mgr.Update(func(tx *Txn) error {
		ledger := token.NewLedger(tx)
		if _, err := ledger.CreateMint(paymentMint, issuer, 6); err != nil {
			return err
		}
		acct, err := ledger.EnsureAssociatedAccount(buyer, paymentMint)
		if err != nil {
			return err
		}
		return ledger.MintTo(paymentMint, acct.Address, issuer, 1_000)
	}))

	engine := vault.NewEngine()
	engine.SetStore(NewVaultStore(mgr))
	engine.SetStrictInvariants(true)
	v, err := engine.InitializeVault(owner, vault.InitParams{
		Name:          "orchard",
		PaymentMint:   paymentMint,
		TotalShares:   1_000,
		PricePerShare: 10,
	})
	require.NoError(t, err)

	payment := token.AssociatedAddress(buyer, paymentMint)
	accts := vault.MintAccounts{Vault: v.Address, Payment: payment, Principal: v.PrincipalAccount, Revenue: v.RevenueAccount}
	_, err = engine.MintShares(buyer, accts, 50)
	require.NoError(t, err)

	// The cost transfer fails after the position would have been written;
	// nothing from the attempt may reach the database.
	_, err = engine.MintShares(buyer, accts, 51)
	require.ErrorIs(t, err, token.ErrInsufficientFunds)
	require.NoError(t, db.Close())

	db, err = storage.NewLevelDB(path)
	require.NoError(t, err)
	defer db.Close()
	engine.SetStore(NewVaultStore(NewManager(db)))

	stored, err := engine.Vault(v.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(50), stored.MintedShares)
	pos, err := engine.Position(v.Address, buyer)
	require.NoError(t, err)
	require.Equal(t, uint64(50), pos.Quantity)

	report, err := engine.Audit(v.Address)
	require.NoError(t, err)
	require.True(t, report.OK(), "%+v", report)
	require.Equal(t, uint64(500), report.PrincipalBalance)
}
