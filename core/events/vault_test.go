package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"yieldvault/crypto"
)

func TestVaultEventsRenderPayloads(t *testing.T) {
	vault := crypto.BytesToAddress([]byte{0x01})
	owner := crypto.BytesToAddress([]byte{0x02})

	payloads := []Payload{
		VaultInitialized{Vault: vault, Owner: owner, TotalShares: 10},
		SharesMinted{Vault: vault, Owner: owner, Amount: 1},
		RevenueDeposited{Vault: vault, Depositor: owner, Gross: 100},
		YieldHarvested{Vault: vault, Owner: owner},
		SharesRedeemed{Vault: vault, Owner: owner, Amount: 1},
		PerformanceFeeUpdated{Vault: vault, Authority: owner},
		AuthorityTransferred{Vault: vault, From: owner, To: vault},
		AuthorityRevoked{Vault: vault, By: owner},
		TreasuryUpdated{Vault: vault, Previous: owner, Next: vault},
	}
	seen := make(map[string]bool, len(payloads))
	for _, p := range payloads {
		evt := p.Event()
		require.Equal(t, p.EventType(), evt.Type)
		require.Equal(t, vault.String(), evt.Attributes["vault"], evt.Type)
		require.False(t, seen[evt.Type], "duplicate type %s", evt.Type)
		seen[evt.Type] = true
	}
}

func TestRevenueDepositedOmitsEmptyAccumulator(t *testing.T) {
	evt := RevenueDeposited{Gross: 1_000, Fee: 100, Distributable: 900, Remainder: 7}.Event()
	require.Equal(t, []string{"depositor", "distributable", "fee", "gross", "remainder", "vault"}, evt.Keys())
	require.Equal(t, "900", evt.Attributes["distributable"])

	evt = RevenueDeposited{Accumulator: "340282366920938463463374607431768211455"}.Event()
	require.Equal(t, "340282366920938463463374607431768211455", evt.Attributes["accumulator"])
}

func TestSettledAttributeOnlyWhenPaid(t *testing.T) {
	require.NotContains(t, SharesMinted{Amount: 5}.Event().Attributes, "settled")
	require.Equal(t, "3", SharesRedeemed{Settled: 3}.Event().Attributes["settled"])
}
