package token

import "errors"

var (
	ErrMintNotFound      = errors.New("token: mint not found")
	ErrMintExists        = errors.New("token: mint already exists")
	ErrAccountNotFound   = errors.New("token: account not found")
	ErrAccountExists     = errors.New("token: account already exists")
	ErrOwnerMismatch     = errors.New("token: signer does not own source account")
	ErrMintMismatch      = errors.New("token: accounts hold different mints")
	ErrMintAuthority     = errors.New("token: signer is not the mint authority")
	ErrInsufficientFunds = errors.New("token: insufficient funds")
	ErrSupplyOverflow    = errors.New("token: supply overflow")
	ErrBalanceOverflow   = errors.New("token: balance overflow")
	ErrNullAddress       = errors.New("token: null address")
)
