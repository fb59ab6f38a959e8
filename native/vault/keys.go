package vault

import "yieldvault/crypto"

// VaultAddress derives the vault id owned by owner.
func VaultAddress(owner crypto.Address) crypto.Address {
	return crypto.Derive([]byte("vault"), owner[:])
}

// SignerAddress derives the identity that controls the vault's asset accounts
// and share mint.
func SignerAddress(vault crypto.Address) crypto.Address {
	return crypto.Derive([]byte("vault_signer"), vault[:])
}

// ShareMintAddress derives the vault's share token mint.
func ShareMintAddress(vault crypto.Address) crypto.Address {
	return crypto.Derive([]byte("vault_share_mint"), vault[:])
}

// PrincipalAddress derives the account holding share payments.
func PrincipalAddress(vault crypto.Address) crypto.Address {
	return crypto.Derive([]byte("principal-vault"), vault[:])
}

// RevenueAddress derives the account holding distributable revenue.
func RevenueAddress(vault crypto.Address) crypto.Address {
	return crypto.Derive([]byte("revenue-vault"), vault[:])
}

// TreasuryAddress derives the account receiving performance fees.
func TreasuryAddress(vault crypto.Address) crypto.Address {
	return crypto.Derive([]byte("treasury"), vault[:])
}

// PositionAddress derives the id of owner's position in vault.
func PositionAddress(vault, owner crypto.Address) crypto.Address {
	return crypto.Derive([]byte("shareholder"), vault[:], owner[:])
}
