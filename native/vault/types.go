package vault

import (
	"github.com/holiman/uint256"

	"yieldvault/crypto"
)

const (
	// MaxPerformanceFeeBps caps the performance fee at 20%.
	MaxPerformanceFeeBps uint16 = 2000
	// FeeBpsDenominator is the basis point denominator.
	FeeBpsDenominator = 10_000
	// MaxNameLength bounds the cosmetic vault name in bytes.
	MaxNameLength = 50
)

// Authority is the governance controller of a vault. The zero value is the
// revoked state, so a vault can never hold governance rights by accident.
type Authority struct {
	id     crypto.Address
	active bool
}

// ActiveAuthority returns an authority controlled by id.
func ActiveAuthority(id crypto.Address) Authority {
	return Authority{id: id, active: !id.IsZero()}
}

// RevokedAuthority returns the terminal, governance-disabled state.
func RevokedAuthority() Authority { return Authority{} }

// Revoked reports whether governance has been permanently disabled.
func (a Authority) Revoked() bool { return !a.active }

// Identity returns the controlling identity and whether governance is active.
func (a Authority) Identity() (crypto.Address, bool) {
	if !a.active {
		return crypto.Address{}, false
	}
	return a.id, true
}

// Permits reports whether caller may run governance operations.
func (a Authority) Permits(caller crypto.Address) bool {
	return a.active && !caller.IsZero() && a.id == caller
}

func (a Authority) String() string {
	if !a.active {
		return "revoked"
	}
	return a.id.String()
}

// Vault is the aggregate ledger record of one tokenized yield offering.
type Vault struct {
	Address   crypto.Address
	Owner     crypto.Address
	Authority Authority
	Name      string

	PaymentMint crypto.Address
	ShareMint   crypto.Address
	Signer      crypto.Address

	// Segregated asset accounts, all owned by Signer.
	PrincipalAccount crypto.Address
	RevenueAccount   crypto.Address
	TreasuryAccount  crypto.Address

	TotalShares        uint64
	MintedShares       uint64
	PricePerShare      uint64
	PerformanceFeeBps  uint16
	TotalFeesCollected uint64

	// RewardAccumulator is the cumulative distributable revenue per share,
	// scaled by Scale. It never decreases and always fits in 128 bits.
	RewardAccumulator uint256.Int
	// RewardRemainder carries scaled dust between deposits.
	RewardRemainder uint64

	CreatedAt int64
}

// Clone returns a deep copy of the vault.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

// Position records one owner's holding in one vault.
type Position struct {
	Vault            crypto.Address
	Owner            crypto.Address
	Quantity         uint64
	RewardCheckpoint uint256.Int
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// MintReceipt summarises a successful MintShares call.
type MintReceipt struct {
	Position *Position
	Cost     uint64
	// Yield is the pending revenue paid out while settling the position.
	Yield uint64
}

// DepositReceipt summarises a successful DepositRevenue call.
type DepositReceipt struct {
	Fee           uint64
	Distributable uint64
	Accumulator   uint256.Int
	Remainder     uint64
}

// RedeemReceipt summarises a successful RedeemShares call.
type RedeemReceipt struct {
	Position *Position
	Refund   uint64
	Yield    uint64
}
