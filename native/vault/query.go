package vault

import (
	"fmt"

	"github.com/holiman/uint256"

	"yieldvault/crypto"
)

// Audit findings, one per violated ledger invariant.
const (
	ViolationHolderSum         = "holder-sum"
	ViolationSupplyCap         = "supply-cap"
	ViolationRemainderBound    = "remainder-bound"
	ViolationTreasuryBalance   = "treasury-balance"
	ViolationPrincipalCoverage = "principal-coverage"
	ViolationDistinctAccounts  = "distinct-accounts"
)

// AuditReport captures the figures behind every ledger invariant for one vault.
type AuditReport struct {
	Vault            crypto.Address
	Holders          int
	HolderShares     uint64
	MintedShares     uint64
	TotalShares      uint64
	RewardRemainder  uint64
	FeesCollected    uint64
	TreasuryBalance  uint64
	PrincipalBalance uint64
	RevenueBalance   uint64
	Violations       []string
}

// OK reports whether the audit found no violations.
func (r *AuditReport) OK() bool { return r != nil && len(r.Violations) == 0 }

// Vault returns a copy of the vault record.
func (e *Engine) Vault(addr crypto.Address) (*Vault, error) {
	var out *Vault
	err := e.view(func(st State) error {
		v, ok, err := st.VaultGet(addr)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVaultNotFound
		}
		out = v
		return nil
	})
	return out, err
}

// Position returns owner's position in the vault.
func (e *Engine) Position(vaultAddr, owner crypto.Address) (*Position, error) {
	var out *Position
	err := e.view(func(st State) error {
		pos, ok, err := st.PositionGet(vaultAddr, owner)
		if err != nil {
			return err
		}
		if !ok {
			return ErrShareholderNotFound
		}
		out = pos
		return nil
	})
	return out, err
}

// Positions lists every position recorded for the vault, including drained
// ones.
func (e *Engine) Positions(vaultAddr crypto.Address) ([]*Position, error) {
	var out []*Position
	err := e.view(func(st State) error {
		if _, ok, err := st.VaultGet(vaultAddr); err != nil {
			return err
		} else if !ok {
			return ErrVaultNotFound
		}
		positions, err := st.Positions(vaultAddr)
		out = positions
		return err
	})
	return out, err
}

// PendingYield returns what Harvest would pay owner right now.
func (e *Engine) PendingYield(vaultAddr, owner crypto.Address) (uint64, error) {
	var owed uint64
	err := e.view(func(st State) error {
		v, ok, err := st.VaultGet(vaultAddr)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVaultNotFound
		}
		pos, ok, err := st.PositionGet(vaultAddr, owner)
		if err != nil {
			return err
		}
		if !ok {
			return ErrShareholderNotFound
		}
		owed, _, err = Owed(v.RewardAccumulator, pos.RewardCheckpoint, pos.Quantity)
		return err
	})
	return owed, err
}

// Audit evaluates every ledger invariant for the vault.
func (e *Engine) Audit(vaultAddr crypto.Address) (*AuditReport, error) {
	var report *AuditReport
	err := e.view(func(st State) error {
		r, err := audit(st, e.newMover(st), vaultAddr)
		report = r
		return err
	})
	return report, err
}

func audit(st State, assets AssetMover, vaultAddr crypto.Address) (*AuditReport, error) {
	v, ok, err := st.VaultGet(vaultAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVaultNotFound
	}
	positions, err := st.Positions(vaultAddr)
	if err != nil {
		return nil, err
	}
	report := &AuditReport{
		Vault:           v.Address,
		Holders:         len(positions),
		MintedShares:    v.MintedShares,
		TotalShares:     v.TotalShares,
		RewardRemainder: v.RewardRemainder,
		FeesCollected:   v.TotalFeesCollected,
	}
	holderSum := new(uint256.Int)
	for _, pos := range positions {
		holderSum.Add(holderSum, uint256.NewInt(pos.Quantity))
	}
	if holderSum.IsUint64() {
		report.HolderShares = holderSum.Uint64()
	}
	if !holderSum.Eq(uint256.NewInt(v.MintedShares)) {
		report.Violations = append(report.Violations, ViolationHolderSum)
	}
	if v.MintedShares > v.TotalShares {
		report.Violations = append(report.Violations, ViolationSupplyCap)
	}
	if v.MintedShares > 0 && v.RewardRemainder >= v.MintedShares {
		report.Violations = append(report.Violations, ViolationRemainderBound)
	}

	balances := make(map[crypto.Address]uint64, 3)
	for _, addr := range []crypto.Address{v.PrincipalAccount, v.RevenueAccount, v.TreasuryAccount} {
		acct, err := assets.Account(addr)
		if err != nil {
			return nil, fmt.Errorf("vault: audit %s: %w", addr, err)
		}
		balances[addr] = acct.Amount
	}
	report.PrincipalBalance = balances[v.PrincipalAccount]
	report.RevenueBalance = balances[v.RevenueAccount]
	report.TreasuryBalance = balances[v.TreasuryAccount]
	if len(balances) != 3 {
		report.Violations = append(report.Violations, ViolationDistinctAccounts)
	}
	if report.TreasuryBalance != v.TotalFeesCollected {
		report.Violations = append(report.Violations, ViolationTreasuryBalance)
	}
	required := new(uint256.Int).Mul(uint256.NewInt(v.MintedShares), uint256.NewInt(v.PricePerShare))
	if required.Gt(uint256.NewInt(report.PrincipalBalance)) {
		report.Violations = append(report.Violations, ViolationPrincipalCoverage)
	}
	return report, nil
}
