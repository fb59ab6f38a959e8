package vault

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"yieldvault/core/events"
	"yieldvault/crypto"
	nativecommon "yieldvault/native/common"
	"yieldvault/native/token"
)

// ModuleName is the pause key guarding the vault's mutating operations.
const ModuleName = "vault"

// State is the storage surface the engine mutates inside one transaction.
type State interface {
	token.State
	VaultGet(addr crypto.Address) (*Vault, bool, error)
	VaultPut(v *Vault) error
	PositionGet(vault, owner crypto.Address) (*Position, bool, error)
	PositionPut(p *Position) error
	Positions(vault crypto.Address) ([]*Position, error)
}

// Store runs fn against a transactional State. Update commits every write made
// by fn or none of them; View never commits.
type Store interface {
	Update(fn func(State) error) error
	View(fn func(State) error) error
}

// AssetMover moves fungible assets between token accounts.
type AssetMover interface {
	Mint(addr crypto.Address) (*token.Mint, error)
	Account(addr crypto.Address) (*token.Account, error)
	CreateMint(addr, authority crypto.Address, decimals uint8) (*token.Mint, error)
	CreateAccount(addr, mint, owner crypto.Address) (*token.Account, error)
	EnsureAssociatedAccount(owner, mint crypto.Address) (*token.Account, error)
	Transfer(from, to, authority crypto.Address, amount uint64) error
	MintTo(mint, to, authority crypto.Address, amount uint64) error
	Burn(mint, from, authority crypto.Address, amount uint64) error
}

// Observer receives per-operation telemetry.
type Observer interface {
	ObserveOperation(op string, duration time.Duration, err error)
	RecordFees(vault crypto.Address, total uint64)
}

type noopObserver struct{}

func (noopObserver) ObserveOperation(string, time.Duration, error) {}
func (noopObserver) RecordFees(crypto.Address, uint64)             {}

// Engine applies vault operations against a Store. Every operation runs in a
// single store transaction; events are emitted only after it commits.
type Engine struct {
	store    Store
	emitter  events.Emitter
	observer Observer
	logger   *slog.Logger
	pauses   nativecommon.PauseView
	strict   bool
	nowFn    func() int64
	newMover func(State) AssetMover
}

// NewEngine creates a vault engine with a no-op emitter and the token ledger
// as its asset mover.
func NewEngine() *Engine {
	return &Engine{
		emitter:  events.NoopEmitter{},
		observer: noopObserver{},
		logger:   slog.Default(),
		nowFn:    func() int64 { return time.Now().Unix() },
		newMover: defaultMover,
	}
}

func defaultMover(st State) AssetMover { return token.NewLedger(st) }

// SetStore configures the store backend used by the engine.
func (e *Engine) SetStore(store Store) { e.store = store }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetObserver installs the telemetry sink. Nil disables telemetry.
func (e *Engine) SetObserver(observer Observer) {
	if observer == nil {
		e.observer = noopObserver{}
		return
	}
	e.observer = observer
}

// SetLogger configures the logger used for governance changes and rejected
// operations. A nil logger falls back to slog.Default.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		e.logger = slog.Default()
		return
	}
	e.logger = logger
}

// SetPauses wires the pause view consulted before every mutating operation.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetStrictInvariants makes every mutating operation audit the touched vault
// before commit and abort with ErrInvariantViolation on any finding.
func (e *Engine) SetStrictInvariants(strict bool) { e.strict = strict }

// SetAssetMover overrides how asset movements are performed. Nil restores
// the token ledger.
func (e *Engine) SetAssetMover(factory func(State) AssetMover) {
	if factory == nil {
		e.newMover = defaultMover
		return
	}
	e.newMover = factory
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// txn is the per-operation scratch space handed to operation bodies.
type txn struct {
	state   State
	assets  AssetMover
	vault   crypto.Address
	pending []events.Event
}

func (t *txn) emit(evt events.Event) { t.pending = append(t.pending, evt) }

func (t *txn) loadVault(addr crypto.Address) (*Vault, error) {
	v, ok, err := t.state.VaultGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVaultNotFound
	}
	t.vault = addr
	return v, nil
}

func (e *Engine) mutate(op string, fn func(*txn) error) error {
	start := time.Now()
	err := e.runMutation(op, fn)
	e.observer.ObserveOperation(op, time.Since(start), err)
	if err != nil {
		e.logger.Debug("vault operation rejected", slog.String("op", op), slog.Any("error", err))
	}
	return err
}

func (e *Engine) runMutation(op string, fn func(*txn) error) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	var committed *txn
	err := e.store.Update(func(st State) error {
		tx := &txn{state: st, assets: e.newMover(st)}
		if err := fn(tx); err != nil {
			return err
		}
		if e.strict && !tx.vault.IsZero() {
			report, err := audit(tx.state, tx.assets, tx.vault)
			if err != nil {
				return err
			}
			if !report.OK() {
				e.logger.Error("vault invariant violated",
					slog.String("op", op),
					slog.String("vault", tx.vault.String()),
					slog.String("violations", strings.Join(report.Violations, ",")))
				return fmt.Errorf("%w: %s", ErrInvariantViolation, strings.Join(report.Violations, ", "))
			}
		}
		committed = tx
		return nil
	})
	if err != nil {
		return err
	}
	for _, evt := range committed.pending {
		e.emitter.Emit(evt)
	}
	return nil
}

func (e *Engine) view(fn func(State) error) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	return e.store.View(fn)
}

// InitParams configures a new vault.
type InitParams struct {
	Name              string
	PaymentMint       crypto.Address
	TotalShares       uint64
	PricePerShare     uint64
	PerformanceFeeBps uint16
}

// InitializeVault creates the vault owned by owner together with its share
// mint and its principal, revenue and treasury accounts. The owner becomes the
// initial governance authority.
func (e *Engine) InitializeVault(owner crypto.Address, params InitParams) (*Vault, error) {
	var created *Vault
	err := e.mutate("initialize", func(tx *txn) error {
		if owner.IsZero() {
			return ErrInvalidAuthority
		}
		if params.TotalShares == 0 {
			return ErrInvalidShareAmount
		}
		if params.PricePerShare == 0 {
			return ErrInvalidPrice
		}
		if params.PerformanceFeeBps > MaxPerformanceFeeBps {
			return ErrPerformanceFeeExceedsMax
		}
		if len(params.Name) > MaxNameLength {
			return ErrNameTooLong
		}
		addr := VaultAddress(owner)
		if _, exists, err := tx.state.VaultGet(addr); err != nil {
			return err
		} else if exists {
			return ErrVaultExists
		}
		paymentMint, err := tx.assets.Mint(params.PaymentMint)
		if err != nil {
			if errors.Is(err, token.ErrMintNotFound) {
				return fmt.Errorf("%w: %v", ErrInvalidPaymentAsset, err)
			}
			return err
		}

		v := &Vault{
			Address:           addr,
			Owner:             owner,
			Authority:         ActiveAuthority(owner),
			Name:              params.Name,
			PaymentMint:       paymentMint.Address,
			ShareMint:         ShareMintAddress(addr),
			Signer:            SignerAddress(addr),
			PrincipalAccount:  PrincipalAddress(addr),
			RevenueAccount:    RevenueAddress(addr),
			TreasuryAccount:   TreasuryAddress(addr),
			TotalShares:       params.TotalShares,
			PricePerShare:     params.PricePerShare,
			PerformanceFeeBps: params.PerformanceFeeBps,
			CreatedAt:         e.now(),
		}
		if _, err := tx.assets.CreateMint(v.ShareMint, v.Signer, paymentMint.Decimals); err != nil {
			return fmt.Errorf("vault: create share mint: %w", err)
		}
		for _, acct := range []crypto.Address{v.PrincipalAccount, v.RevenueAccount, v.TreasuryAccount} {
			if _, err := tx.assets.CreateAccount(acct, v.PaymentMint, v.Signer); err != nil {
				return fmt.Errorf("vault: create asset account: %w", err)
			}
		}
		if err := tx.state.VaultPut(v); err != nil {
			return err
		}
		tx.vault = addr
		tx.emit(events.VaultInitialized{
			Vault:         addr,
			Owner:         owner,
			Name:          v.Name,
			PaymentMint:   v.PaymentMint,
			ShareMint:     v.ShareMint,
			TotalShares:   v.TotalShares,
			PricePerShare: v.PricePerShare,
			FeeBps:        v.PerformanceFeeBps,
		})
		created = v.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("vault initialized",
		slog.String("vault", created.Address.String()),
		slog.String("owner", owner.String()),
		slog.Uint64("total_shares", created.TotalShares),
		slog.Uint64("price_per_share", created.PricePerShare))
	return created, nil
}

// MintAccounts names the accounts a share purchase touches. Payment is the
// caller's payment-asset account: it funds the purchase and receives any
// yield settled on the caller's existing position.
type MintAccounts struct {
	Vault     crypto.Address
	Payment   crypto.Address
	Principal crypto.Address
	Revenue   crypto.Address
}

// MintShares sells amount shares to caller at the vault's fixed price.
func (e *Engine) MintShares(caller crypto.Address, accts MintAccounts, amount uint64) (*MintReceipt, error) {
	var receipt *MintReceipt
	err := e.mutate("mint", func(tx *txn) error {
		if amount == 0 {
			return ErrInvalidShareAmount
		}
		v, err := tx.loadVault(accts.Vault)
		if err != nil {
			return err
		}
		minted, err := addU64(v.MintedShares, amount)
		if err != nil {
			return err
		}
		if minted > v.TotalShares {
			return ErrExceedsTotalSupply
		}
		if err := tx.checkCallerAccount(v, accts.Payment, caller); err != nil {
			return err
		}
		if err := tx.checkVaultAccount(v, accts.Principal, v.PrincipalAccount, ErrInvalidPrincipalVault); err != nil {
			return err
		}
		if err := tx.checkVaultAccount(v, accts.Revenue, v.RevenueAccount, ErrInvalidRevenueVault); err != nil {
			return err
		}
		cost, err := mulU64(amount, v.PricePerShare)
		if err != nil {
			return err
		}

		pos, err := tx.positionOrNew(v, caller)
		if err != nil {
			return err
		}
		settled, err := tx.settle(v, pos, accts.Payment)
		if err != nil {
			return err
		}
		quantity, err := addU64(pos.Quantity, amount)
		if err != nil {
			return err
		}
		if err := tx.assets.Transfer(accts.Payment, v.PrincipalAccount, caller, cost); err != nil {
			return err
		}
		shareAccount, err := tx.assets.EnsureAssociatedAccount(caller, v.ShareMint)
		if err != nil {
			return err
		}
		if err := tx.assets.MintTo(v.ShareMint, shareAccount.Address, v.Signer, amount); err != nil {
			return err
		}
		pos.Quantity = quantity
		v.MintedShares = minted
		if err := foldRemainder(v); err != nil {
			return err
		}
		if err := tx.state.PositionPut(pos); err != nil {
			return err
		}
		if err := tx.state.VaultPut(v); err != nil {
			return err
		}
		tx.emit(events.SharesMinted{
			Vault:   v.Address,
			Owner:   caller,
			Amount:  amount,
			Cost:    cost,
			Settled: settled,
			Minted:  v.MintedShares,
		})
		receipt = &MintReceipt{Position: pos.Clone(), Cost: cost, Yield: settled}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// DepositAccounts names the accounts a revenue deposit touches.
type DepositAccounts struct {
	Vault    crypto.Address
	Payment  crypto.Address
	Revenue  crypto.Address
	Treasury crypto.Address
}

// DepositRevenue splits amount into the performance fee, routed to the
// treasury, and the distributable share, routed to the revenue account and
// folded into the reward accumulator. Anyone may deposit.
func (e *Engine) DepositRevenue(caller crypto.Address, accts DepositAccounts, amount uint64) (*DepositReceipt, error) {
	var (
		receipt *DepositReceipt
		vaultID crypto.Address
		fees    uint64
	)
	err := e.mutate("deposit", func(tx *txn) error {
		if amount == 0 {
			return ErrInvalidRevenueAmount
		}
		v, err := tx.loadVault(accts.Vault)
		if err != nil {
			return err
		}
		if v.MintedShares == 0 {
			return ErrNoShareholders
		}
		if err := tx.checkCallerAccount(v, accts.Payment, caller); err != nil {
			return err
		}
		if err := tx.checkVaultAccount(v, accts.Revenue, v.RevenueAccount, ErrInvalidRevenueVault); err != nil {
			return err
		}
		if err := tx.checkVaultAccount(v, accts.Treasury, v.TreasuryAccount, ErrInvalidTreasury); err != nil {
			return err
		}
		fee, distributable, err := SplitRevenue(amount, v.PerformanceFeeBps)
		if err != nil {
			return err
		}
		totalFees, err := addU64(v.TotalFeesCollected, fee)
		if err != nil {
			return err
		}
		acc, remainder, err := Accrue(v.RewardAccumulator, v.RewardRemainder, distributable, v.MintedShares)
		if err != nil {
			return err
		}

		if err := tx.assets.Transfer(accts.Payment, v.TreasuryAccount, caller, fee); err != nil {
			return err
		}
		if err := tx.assets.Transfer(accts.Payment, v.RevenueAccount, caller, distributable); err != nil {
			return err
		}
		treasury, err := tx.assets.Account(v.TreasuryAccount)
		if err != nil {
			return err
		}
		if treasury.Amount != totalFees {
			return fmt.Errorf("%w: treasury balance %d != fees collected %d", ErrInvariantViolation, treasury.Amount, totalFees)
		}

		v.TotalFeesCollected = totalFees
		v.RewardAccumulator = acc
		v.RewardRemainder = remainder
		if err := tx.state.VaultPut(v); err != nil {
			return err
		}
		tx.emit(events.RevenueDeposited{
			Vault:         v.Address,
			Depositor:     caller,
			Gross:         amount,
			Fee:           fee,
			Distributable: distributable,
			Accumulator:   acc.Dec(),
			Remainder:     remainder,
		})
		receipt = &DepositReceipt{Fee: fee, Distributable: distributable, Accumulator: acc, Remainder: remainder}
		vaultID = v.Address
		fees = totalFees
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.observer.RecordFees(vaultID, fees)
	return receipt, nil
}

// HarvestAccounts names the accounts a yield claim touches.
type HarvestAccounts struct {
	Vault       crypto.Address
	Revenue     crypto.Address
	Destination crypto.Address
}

// Harvest pays caller the revenue accrued on their position since its last
// checkpoint. The checkpoint advances even when nothing is owed.
func (e *Engine) Harvest(caller crypto.Address, accts HarvestAccounts) (uint64, error) {
	var paid uint64
	err := e.mutate("harvest", func(tx *txn) error {
		v, err := tx.loadVault(accts.Vault)
		if err != nil {
			return err
		}
		pos, ok, err := tx.state.PositionGet(v.Address, caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrShareholderNotFound
		}
		if err := tx.checkVaultAccount(v, accts.Revenue, v.RevenueAccount, ErrInvalidRevenueVault); err != nil {
			return err
		}
		if err := tx.checkCallerAccount(v, accts.Destination, caller); err != nil {
			return err
		}
		amount, err := tx.settle(v, pos, accts.Destination)
		if err != nil {
			return err
		}
		if err := tx.state.PositionPut(pos); err != nil {
			return err
		}
		tx.emit(events.YieldHarvested{
			Vault:       v.Address,
			Owner:       caller,
			Destination: accts.Destination,
			Amount:      amount,
		})
		paid = amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return paid, nil
}

// RedeemAccounts names the accounts a redemption touches. Payment receives
// both the par refund and any settled yield.
type RedeemAccounts struct {
	Vault     crypto.Address
	Payment   crypto.Address
	Principal crypto.Address
	Revenue   crypto.Address
}

// RedeemShares burns amount of caller's shares and refunds them at the
// original price from the principal account.
func (e *Engine) RedeemShares(caller crypto.Address, accts RedeemAccounts, amount uint64) (*RedeemReceipt, error) {
	var receipt *RedeemReceipt
	err := e.mutate("redeem", func(tx *txn) error {
		if amount == 0 {
			return ErrInvalidShareAmount
		}
		v, err := tx.loadVault(accts.Vault)
		if err != nil {
			return err
		}
		pos, ok, err := tx.state.PositionGet(v.Address, caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrShareholderNotFound
		}
		if pos.Quantity < amount {
			return ErrInsufficientShares
		}
		if err := tx.checkCallerAccount(v, accts.Payment, caller); err != nil {
			return err
		}
		if err := tx.checkVaultAccount(v, accts.Principal, v.PrincipalAccount, ErrInvalidPrincipalVault); err != nil {
			return err
		}
		if err := tx.checkVaultAccount(v, accts.Revenue, v.RevenueAccount, ErrInvalidRevenueVault); err != nil {
			return err
		}
		refund, err := mulU64(amount, v.PricePerShare)
		if err != nil {
			return err
		}
		principal, err := tx.assets.Account(v.PrincipalAccount)
		if err != nil {
			return err
		}
		if principal.Amount < refund {
			return ErrInsufficientVaultBalance
		}

		settled, err := tx.settle(v, pos, accts.Payment)
		if err != nil {
			return err
		}
		shareAccount := token.AssociatedAddress(caller, v.ShareMint)
		if err := tx.assets.Burn(v.ShareMint, shareAccount, caller, amount); err != nil {
			return err
		}
		if err := tx.assets.Transfer(v.PrincipalAccount, accts.Payment, v.Signer, refund); err != nil {
			return err
		}
		pos.Quantity -= amount
		v.MintedShares -= amount
		if err := foldRemainder(v); err != nil {
			return err
		}
		if err := tx.state.PositionPut(pos); err != nil {
			return err
		}
		if err := tx.state.VaultPut(v); err != nil {
			return err
		}
		tx.emit(events.SharesRedeemed{
			Vault:   v.Address,
			Owner:   caller,
			Amount:  amount,
			Refund:  refund,
			Settled: settled,
			Minted:  v.MintedShares,
		})
		receipt = &RedeemReceipt{Position: pos.Clone(), Refund: refund, Yield: settled}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// positionOrNew loads caller's position, or starts one checkpointed at the
// current accumulator so it earns nothing from earlier deposits.
func (tx *txn) positionOrNew(v *Vault, owner crypto.Address) (*Position, error) {
	pos, ok, err := tx.state.PositionGet(v.Address, owner)
	if err != nil {
		return nil, err
	}
	if ok {
		return pos, nil
	}
	return &Position{Vault: v.Address, Owner: owner, RewardCheckpoint: v.RewardAccumulator}, nil
}

// settle pays out everything pos has accrued into dest and moves its
// checkpoint to the current accumulator. The caller persists pos.
func (tx *txn) settle(v *Vault, pos *Position, dest crypto.Address) (uint64, error) {
	owed, checkpoint, err := Owed(v.RewardAccumulator, pos.RewardCheckpoint, pos.Quantity)
	if err != nil {
		return 0, err
	}
	if owed > 0 {
		revenue, err := tx.assets.Account(v.RevenueAccount)
		if err != nil {
			return 0, err
		}
		if revenue.Amount < owed {
			return 0, ErrInsufficientVaultBalance
		}
		if err := tx.assets.Transfer(v.RevenueAccount, dest, v.Signer, owed); err != nil {
			return 0, err
		}
	}
	pos.RewardCheckpoint = checkpoint
	return owed, nil
}

// foldRemainder spreads carried dust over the current share base once it no
// longer fits under it. That happens when redemptions shrink the base, or when
// a vault drained to zero shares is minted into again with a smaller lot.
func foldRemainder(v *Vault) error {
	if v.MintedShares == 0 || v.RewardRemainder < v.MintedShares {
		return nil
	}
	acc, remainder, err := Accrue(v.RewardAccumulator, v.RewardRemainder, 0, v.MintedShares)
	if err != nil {
		return err
	}
	v.RewardAccumulator = acc
	v.RewardRemainder = remainder
	return nil
}

// checkCallerAccount verifies addr is a payment-asset account owned by caller.
func (tx *txn) checkCallerAccount(v *Vault, addr, caller crypto.Address) error {
	acct, err := tx.assets.Account(addr)
	if err != nil {
		if errors.Is(err, token.ErrAccountNotFound) {
			return fmt.Errorf("%w: %v", ErrInvalidPaymentAsset, err)
		}
		return err
	}
	if acct.Mint != v.PaymentMint {
		return ErrInvalidPaymentAsset
	}
	if acct.Owner != caller {
		return ErrInvalidTokenAccountOwner
	}
	return nil
}

// checkVaultAccount verifies the supplied account is the vault's designated
// account and still belongs to the vault signer.
func (tx *txn) checkVaultAccount(v *Vault, supplied, designated crypto.Address, mismatch error) error {
	if supplied != designated {
		return mismatch
	}
	acct, err := tx.assets.Account(designated)
	if err != nil {
		return fmt.Errorf("%w: %v", mismatch, err)
	}
	if acct.Owner != v.Signer || acct.Mint != v.PaymentMint {
		return mismatch
	}
	return nil
}
