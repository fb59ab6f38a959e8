package vault

import "errors"

// Validation failures. All of them are returned before any state is written
// and are never retried by the engine.
var (
	ErrInvalidShareAmount       = errors.New("vault: share amount must be greater than zero")
	ErrExceedsTotalSupply       = errors.New("vault: exceeds total supply")
	ErrInsufficientShares       = errors.New("vault: insufficient shares for redemption")
	ErrInvalidPaymentAsset      = errors.New("vault: invalid payment asset")
	ErrInvalidPrincipalVault    = errors.New("vault: invalid principal account")
	ErrInvalidRevenueVault      = errors.New("vault: invalid revenue account")
	ErrInvalidTreasury          = errors.New("vault: invalid treasury account")
	ErrInvalidTokenAccountOwner = errors.New("vault: token account not owned by caller")
	ErrNoShareholders           = errors.New("vault: no shares minted")
	ErrInvalidRevenueAmount     = errors.New("vault: revenue amount must be greater than zero")
	ErrMathOverflow             = errors.New("vault: math overflow")
	ErrUnauthorized             = errors.New("vault: caller is not the vault authority")
	ErrGovernanceDisabled       = errors.New("vault: governance permanently disabled")
	ErrPerformanceFeeExceedsMax = errors.New("vault: performance fee exceeds maximum of 2000 bps")
	ErrInvalidAuthority         = errors.New("vault: invalid authority")
	ErrInvalidPrice             = errors.New("vault: price per share must be greater than zero")
	ErrNameTooLong              = errors.New("vault: name too long")
	ErrVaultExists              = errors.New("vault: vault already exists")
	ErrVaultNotFound            = errors.New("vault: vault not found")
	ErrShareholderNotFound      = errors.New("vault: shareholder position not found")
	ErrInsufficientVaultBalance = errors.New("vault: insufficient vault balance")
)

// Internal consistency faults. These indicate corrupted state rather than a
// bad request.
var (
	ErrAccumulatorRegression = errors.New("vault: reward accumulator below checkpoint")
	ErrInvariantViolation    = errors.New("vault: invariant violation")
	errNilState              = errors.New("vault engine: store not configured")
)
