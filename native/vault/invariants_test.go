package vault

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldvault/crypto"
)

func TestRandomizedOperationsPreserveInvariants(t *testing.T) {
	for _, seed := range []int64{1, 42, 1337} {
		seed := seed
		t.Run("", func(t *testing.T) {
			runRandomizedLedger(t, rand.New(rand.NewSource(seed)))
		})
	}
}

func runRandomizedLedger(t *testing.T, rng *rand.Rand) {
	h := newHarness(t, InitParams{TotalShares: 5_000, PricePerShare: 7, PerformanceFeeBps: 1250})
	h.engine.SetStrictInvariants(true)
	holders := []crypto.Address{alice, bob, carol, testAddress(0x0d)}
	depositor := testAddress(0x0e)
	for _, holder := range holders {
		h.fund(holder, 1_000_000)
	}
	h.fund(depositor, 10_000_000)

	held := make(map[crypto.Address]uint64)
	var deposited, fees, paid uint64
	for i := 1; i <= 400; i++ {
		holder := holders[rng.Intn(len(holders))]
		v := h.current()
		switch rng.Intn(5) {
		case 0:
			room := v.TotalShares - v.MintedShares
			if room == 0 {
				continue
			}
			amount := uint64(1)
			if rng.Intn(3) > 0 {
				amount = uint64(rng.Int63n(int64(min(room, 250)))) + 1
			}
			receipt, err := h.mint(holder, amount)
			require.NoError(t, err)
			held[holder] += amount
			paid += receipt.Yield
		case 1:
			if v.MintedShares == 0 {
				continue
			}
			amount := uint64(rng.Int63n(10_000)) + 1
			receipt, err := h.deposit(depositor, amount)
			require.NoError(t, err)
			deposited += amount
			fees += receipt.Fee
		case 2:
			if _, err := h.engine.Position(v.Address, holder); err != nil {
				require.ErrorIs(t, err, ErrShareholderNotFound)
				continue
			}
			amount, err := h.harvest(holder)
			require.NoError(t, err)
			paid += amount
		case 3:
			if held[holder] == 0 {
				continue
			}
			amount := uint64(rng.Int63n(int64(held[holder]))) + 1
			receipt, err := h.redeem(holder, amount)
			require.NoError(t, err)
			require.Equal(t, amount*v.PricePerShare, receipt.Refund)
			held[holder] -= amount
			paid += receipt.Yield
		case 4:
			// Occasionally empty the vault so later mints start from a
			// drained share base that still carries dust.
			if rng.Intn(4) != 0 {
				continue
			}
			for _, owner := range holders {
				if held[owner] == 0 {
					continue
				}
				receipt, err := h.redeem(owner, held[owner])
				require.NoError(t, err)
				held[owner] = 0
				paid += receipt.Yield
			}
			require.Zero(t, h.current().MintedShares)
		}
		if i%10 == 0 {
			h.requireInvariants()
		}
	}
	h.requireInvariants()

	final := h.current()
	require.Equal(t, fees, final.TotalFeesCollected)
	require.Equal(t, deposited-fees, paid+h.balance(final.RevenueAccount))

	positions, err := h.engine.Positions(final.Address)
	require.NoError(t, err)
	for _, pos := range positions {
		require.Equal(t, held[pos.Owner], pos.Quantity)
	}
}
