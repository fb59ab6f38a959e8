package events

import (
	"strconv"
	"strings"

	"yieldvault/core/types"
	"yieldvault/crypto"
)

const (
	TypeVaultInitialized      = "vault.initialized"
	TypeVaultSharesMinted     = "vault.shares_minted"
	TypeVaultRevenueDeposited = "vault.revenue_deposited"
	TypeVaultYieldHarvested   = "vault.yield_harvested"
	TypeVaultSharesRedeemed   = "vault.shares_redeemed"
	TypeVaultFeeUpdated       = "vault.performance_fee_updated"
	TypeVaultAuthorityChanged = "vault.authority_transferred"
	TypeVaultAuthorityRevoked = "vault.authority_revoked"
	TypeVaultTreasuryUpdated  = "vault.treasury_updated"
)

// VaultInitialized is emitted once per vault when it is created.
type VaultInitialized struct {
	Vault         crypto.Address
	Owner         crypto.Address
	Name          string
	PaymentMint   crypto.Address
	ShareMint     crypto.Address
	TotalShares   uint64
	PricePerShare uint64
	FeeBps        uint16
}

func (VaultInitialized) EventType() string { return TypeVaultInitialized }

func (e VaultInitialized) Event() *types.Event {
	attrs := map[string]string{
		"vault":         e.Vault.String(),
		"owner":         e.Owner.String(),
		"paymentMint":   e.PaymentMint.String(),
		"shareMint":     e.ShareMint.String(),
		"totalShares":   formatUint(e.TotalShares),
		"pricePerShare": formatUint(e.PricePerShare),
		"feeBps":        formatUint(uint64(e.FeeBps)),
	}
	if name := strings.TrimSpace(e.Name); name != "" {
		attrs["name"] = name
	}
	return &types.Event{Type: TypeVaultInitialized, Attributes: attrs}
}

// SharesMinted records a share purchase.
type SharesMinted struct {
	Vault   crypto.Address
	Owner   crypto.Address
	Amount  uint64
	Cost    uint64
	Settled uint64
	Minted  uint64
}

func (SharesMinted) EventType() string { return TypeVaultSharesMinted }

func (e SharesMinted) Event() *types.Event {
	attrs := map[string]string{
		"vault":  e.Vault.String(),
		"owner":  e.Owner.String(),
		"amount": formatUint(e.Amount),
		"cost":   formatUint(e.Cost),
		"minted": formatUint(e.Minted),
	}
	if e.Settled > 0 {
		attrs["settled"] = formatUint(e.Settled)
	}
	return &types.Event{Type: TypeVaultSharesMinted, Attributes: attrs}
}

// RevenueDeposited records a revenue deposit and its fee split. Accumulator
// is the decimal rendering of the post-deposit reward accumulator.
type RevenueDeposited struct {
	Vault         crypto.Address
	Depositor     crypto.Address
	Gross         uint64
	Fee           uint64
	Distributable uint64
	Accumulator   string
	Remainder     uint64
}

func (RevenueDeposited) EventType() string { return TypeVaultRevenueDeposited }

func (e RevenueDeposited) Event() *types.Event {
	attrs := map[string]string{
		"vault":         e.Vault.String(),
		"depositor":     e.Depositor.String(),
		"gross":         formatUint(e.Gross),
		"fee":           formatUint(e.Fee),
		"distributable": formatUint(e.Distributable),
		"remainder":     formatUint(e.Remainder),
	}
	if e.Accumulator != "" {
		attrs["accumulator"] = e.Accumulator
	}
	return &types.Event{Type: TypeVaultRevenueDeposited, Attributes: attrs}
}

// YieldHarvested records a shareholder claim. Zero-amount harvests are still
// emitted because the checkpoint moves.
type YieldHarvested struct {
	Vault       crypto.Address
	Owner       crypto.Address
	Destination crypto.Address
	Amount      uint64
}

func (YieldHarvested) EventType() string { return TypeVaultYieldHarvested }

func (e YieldHarvested) Event() *types.Event {
	return &types.Event{Type: TypeVaultYieldHarvested, Attributes: map[string]string{
		"vault":       e.Vault.String(),
		"owner":       e.Owner.String(),
		"destination": e.Destination.String(),
		"amount":      formatUint(e.Amount),
	}}
}

// SharesRedeemed records a share redemption at par.
type SharesRedeemed struct {
	Vault   crypto.Address
	Owner   crypto.Address
	Amount  uint64
	Refund  uint64
	Settled uint64
	Minted  uint64
}

func (SharesRedeemed) EventType() string { return TypeVaultSharesRedeemed }

func (e SharesRedeemed) Event() *types.Event {
	attrs := map[string]string{
		"vault":  e.Vault.String(),
		"owner":  e.Owner.String(),
		"amount": formatUint(e.Amount),
		"refund": formatUint(e.Refund),
		"minted": formatUint(e.Minted),
	}
	if e.Settled > 0 {
		attrs["settled"] = formatUint(e.Settled)
	}
	return &types.Event{Type: TypeVaultSharesRedeemed, Attributes: attrs}
}

// PerformanceFeeUpdated records a governance fee change.
type PerformanceFeeUpdated struct {
	Vault     crypto.Address
	Authority crypto.Address
	OldBps    uint16
	NewBps    uint16
}

func (PerformanceFeeUpdated) EventType() string { return TypeVaultFeeUpdated }

func (e PerformanceFeeUpdated) Event() *types.Event {
	return &types.Event{Type: TypeVaultFeeUpdated, Attributes: map[string]string{
		"vault":     e.Vault.String(),
		"authority": e.Authority.String(),
		"oldBps":    formatUint(uint64(e.OldBps)),
		"newBps":    formatUint(uint64(e.NewBps)),
	}}
}

// AuthorityTransferred records a handover of governance.
type AuthorityTransferred struct {
	Vault crypto.Address
	From  crypto.Address
	To    crypto.Address
}

func (AuthorityTransferred) EventType() string { return TypeVaultAuthorityChanged }

func (e AuthorityTransferred) Event() *types.Event {
	return &types.Event{Type: TypeVaultAuthorityChanged, Attributes: map[string]string{
		"vault": e.Vault.String(),
		"from":  e.From.String(),
		"to":    e.To.String(),
	}}
}

// AuthorityRevoked records the permanent end of governance for a vault.
type AuthorityRevoked struct {
	Vault crypto.Address
	By    crypto.Address
}

func (AuthorityRevoked) EventType() string { return TypeVaultAuthorityRevoked }

func (e AuthorityRevoked) Event() *types.Event {
	return &types.Event{Type: TypeVaultAuthorityRevoked, Attributes: map[string]string{
		"vault": e.Vault.String(),
		"by":    e.By.String(),
	}}
}

// TreasuryUpdated records a treasury account rotation and the balance swept
// from the previous account.
type TreasuryUpdated struct {
	Vault    crypto.Address
	Previous crypto.Address
	Next     crypto.Address
	Swept    uint64
}

func (TreasuryUpdated) EventType() string { return TypeVaultTreasuryUpdated }

func (e TreasuryUpdated) Event() *types.Event {
	return &types.Event{Type: TypeVaultTreasuryUpdated, Attributes: map[string]string{
		"vault":    e.Vault.String(),
		"previous": e.Previous.String(),
		"next":     e.Next.String(),
		"swept":    formatUint(e.Swept),
	}}
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }
