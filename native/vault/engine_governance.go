package vault

import (
	"log/slog"

	"yieldvault/core/events"
	"yieldvault/crypto"
)

// authorize enforces the governance gate shared by every governance
// operation. A revoked authority reports ErrGovernanceDisabled ahead of any
// caller mismatch.
func authorize(v *Vault, caller crypto.Address) error {
	if v.Authority.Revoked() {
		return ErrGovernanceDisabled
	}
	if !v.Authority.Permits(caller) {
		return ErrUnauthorized
	}
	return nil
}

// UpdatePerformanceFee changes the fee applied to future deposits. Existing
// accruals are unaffected.
func (e *Engine) UpdatePerformanceFee(caller, vaultAddr crypto.Address, feeBps uint16) error {
	return e.mutate("update_fee", func(tx *txn) error {
		v, err := tx.loadVault(vaultAddr)
		if err != nil {
			return err
		}
		if err := authorize(v, caller); err != nil {
			return err
		}
		if feeBps > MaxPerformanceFeeBps {
			return ErrPerformanceFeeExceedsMax
		}
		previous := v.PerformanceFeeBps
		v.PerformanceFeeBps = feeBps
		if err := tx.state.VaultPut(v); err != nil {
			return err
		}
		tx.emit(events.PerformanceFeeUpdated{Vault: v.Address, Authority: caller, OldBps: previous, NewBps: feeBps})
		return nil
	})
}

// TransferAuthority hands governance to next.
func (e *Engine) TransferAuthority(caller, vaultAddr, next crypto.Address) error {
	return e.mutate("transfer_authority", func(tx *txn) error {
		v, err := tx.loadVault(vaultAddr)
		if err != nil {
			return err
		}
		if err := authorize(v, caller); err != nil {
			return err
		}
		if next.IsZero() {
			return ErrInvalidAuthority
		}
		v.Authority = ActiveAuthority(next)
		if err := tx.state.VaultPut(v); err != nil {
			return err
		}
		tx.emit(events.AuthorityTransferred{Vault: v.Address, From: caller, To: next})
		return nil
	})
}

// RevokeAuthority permanently disables governance for the vault. There is no
// way back.
func (e *Engine) RevokeAuthority(caller, vaultAddr crypto.Address) error {
	err := e.mutate("revoke_authority", func(tx *txn) error {
		v, err := tx.loadVault(vaultAddr)
		if err != nil {
			return err
		}
		if err := authorize(v, caller); err != nil {
			return err
		}
		v.Authority = RevokedAuthority()
		if err := tx.state.VaultPut(v); err != nil {
			return err
		}
		tx.emit(events.AuthorityRevoked{Vault: v.Address, By: caller})
		return nil
	})
	if err == nil {
		e.logger.Warn("vault governance revoked",
			slog.String("vault", vaultAddr.String()),
			slog.String("by", caller.String()))
	}
	return err
}

// UpdateTreasury points fee collection at a new, empty, signer-owned account
// and sweeps the old treasury balance into it.
func (e *Engine) UpdateTreasury(caller, vaultAddr, next crypto.Address) (uint64, error) {
	var swept uint64
	err := e.mutate("update_treasury", func(tx *txn) error {
		v, err := tx.loadVault(vaultAddr)
		if err != nil {
			return err
		}
		if err := authorize(v, caller); err != nil {
			return err
		}
		if next == v.TreasuryAccount || next == v.PrincipalAccount || next == v.RevenueAccount {
			return ErrInvalidTreasury
		}
		acct, err := tx.assets.Account(next)
		if err != nil {
			return ErrInvalidTreasury
		}
		if acct.Mint != v.PaymentMint || acct.Owner != v.Signer || acct.Amount != 0 {
			return ErrInvalidTreasury
		}
		current, err := tx.assets.Account(v.TreasuryAccount)
		if err != nil {
			return err
		}
		swept = current.Amount
		if err := tx.assets.Transfer(v.TreasuryAccount, next, v.Signer, swept); err != nil {
			return err
		}
		previous := v.TreasuryAccount
		v.TreasuryAccount = next
		if err := tx.state.VaultPut(v); err != nil {
			return err
		}
		tx.emit(events.TreasuryUpdated{Vault: v.Address, Previous: previous, Next: next, Swept: swept})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return swept, nil
}
