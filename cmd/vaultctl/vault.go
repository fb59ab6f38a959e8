package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"yieldvault/core/state"
	"yieldvault/crypto"
	"yieldvault/native/token"
	"yieldvault/native/vault"
)

type vaultCommand struct {
	run   func(env *cliEnv, args []string) int
	usage string
}

var vaultCommands = map[string]vaultCommand{
	"init":               {runVaultInit, "Create the caller's vault"},
	"mint":               {runVaultMint, "Buy shares at the vault's fixed price"},
	"deposit":            {runVaultDeposit, "Deposit revenue for shareholders"},
	"harvest":            {runVaultHarvest, "Claim accrued yield"},
	"redeem":             {runVaultRedeem, "Redeem shares at the original price"},
	"set-fee":            {runVaultSetFee, "Change the performance fee (authority only)"},
	"transfer-authority": {runVaultTransferAuthority, "Hand governance to another identity"},
	"revoke":             {runVaultRevoke, "Permanently disable governance"},
	"update-treasury":    {runVaultUpdateTreasury, "Move the treasury to a new account"},
	"show":               {runVaultShow, "Print the vault record"},
	"position":           {runVaultPosition, "Print a shareholder position"},
	"pending":            {runVaultPending, "Print yield a shareholder could harvest"},
	"audit":              {runVaultAudit, "Check the ledger invariants"},
	"list":               {runVaultList, "List every vault"},
}

var vaultCommandOrder = []string{
	"init", "mint", "deposit", "harvest", "redeem",
	"set-fee", "transfer-authority", "revoke", "update-treasury",
	"show", "position", "pending", "audit", "list",
}

func runVaultCommand(env *cliEnv, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(env.stderr, vaultUsage())
		return 1
	}
	cmd, ok := vaultCommands[args[0]]
	if !ok {
		fmt.Fprintf(env.stderr, "Unknown vault command: %s\n", args[0])
		fmt.Fprintln(env.stderr, vaultUsage())
		return 1
	}
	return cmd.run(env, args[1:])
}

func vaultUsage() string {
	var b strings.Builder
	b.WriteString("Usage: vaultctl vault <command> [flags]\n")
	for _, name := range vaultCommandOrder {
		fmt.Fprintf(&b, "  %-20s %s\n", name, vaultCommands[name].usage)
	}
	return b.String()
}

// vaultAddress resolves --vault, falling back to the vault owned by the caller.
func (e *cliEnv) vaultAddress(cf *callerFlags, flagValue string) (crypto.Address, error) {
	if strings.TrimSpace(flagValue) != "" {
		return parseAddress("vault", flagValue)
	}
	caller, err := e.caller(cf)
	if err != nil {
		return crypto.Address{}, err
	}
	return vault.VaultAddress(caller), nil
}

// vaultFlagSet builds the flag set shared by vault commands.
func vaultFlagSet(env *cliEnv, name string) (*pflag.FlagSet, *callerFlags, *string) {
	fs := pflag.NewFlagSet("vault "+name, pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	cf := addCallerFlags(fs)
	vaultFlag := fs.String("vault", "", "vault address (defaults to the caller's vault)")
	return fs, cf, vaultFlag
}

// prepare opens the ledger and resolves the caller and the vault it acts on.
func (e *cliEnv) prepare(cf *callerFlags, vaultFlag string) (crypto.Address, *vault.Vault, error) {
	if err := e.open(); err != nil {
		return crypto.Address{}, nil, err
	}
	caller, err := e.caller(cf)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	addr := vault.VaultAddress(caller)
	if strings.TrimSpace(vaultFlag) != "" {
		if addr, err = parseAddress("vault", vaultFlag); err != nil {
			return crypto.Address{}, nil, err
		}
	}
	v, err := e.engine.Vault(addr)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	return caller, v, nil
}

func (e *cliEnv) decimalsOf(mint crypto.Address) uint8 {
	var decimals uint8
	err := e.manager.View(func(tx *state.Txn) error {
		m, err := token.NewLedger(tx).Mint(mint)
		if err != nil {
			return err
		}
		decimals = m.Decimals
		return nil
	})
	if err != nil {
		return e.cfg.Asset.Decimals
	}
	return decimals
}

func runVaultInit(env *cliEnv, args []string) int {
	fs := pflag.NewFlagSet("vault init", pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	cf := addCallerFlags(fs)
	name := fs.String("name", "", "vault name")
	mintFlag := fs.String("mint", "", "payment mint (defaults to the configured mint)")
	totalShares := fs.Uint64("total-shares", 0, "maximum number of shares")
	price := fs.String("price", "", "price per share in display units")
	feeBps := fs.Uint16("fee-bps", 0, "performance fee in basis points (defaults to the configured value)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := env.open(); err != nil {
		return env.fail("opening ledger", err)
	}
	defer env.close()

	caller, err := env.caller(cf)
	if err != nil {
		return env.fail("loading caller", err)
	}
	mint, err := env.paymentMint(*mintFlag)
	if err != nil {
		return env.fail("resolving mint", err)
	}
	decimals := env.decimalsOf(mint)
	pricePerShare, err := parseAmount(*price, decimals)
	if err != nil {
		return env.fail("parsing price", err)
	}
	fee := env.cfg.Vault.DefaultFeeBps
	if fs.Changed("fee-bps") {
		fee = *feeBps
	}
	v, err := env.engine.InitializeVault(caller, vault.InitParams{
		Name:              *name,
		PaymentMint:       mint,
		TotalShares:       *totalShares,
		PricePerShare:     pricePerShare,
		PerformanceFeeBps: fee,
	})
	if err != nil {
		return env.fail("initializing vault", err)
	}
	fmt.Fprintf(env.stdout, "Vault %q initialized\n", v.Name)
	printVault(env, v, decimals)
	return 0
}

func runVaultMint(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "mint")
	shares := fs.Uint64("shares", 0, "number of shares to buy")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	caller, v, err := env.prepare(cf, *vaultFlag)
	if err != nil {
		return env.fail("preparing mint", err)
	}
	receipt, err := env.engine.MintShares(caller, vault.MintAccounts{
		Vault:     v.Address,
		Payment:   token.AssociatedAddress(caller, v.PaymentMint),
		Principal: v.PrincipalAccount,
		Revenue:   v.RevenueAccount,
	}, *shares)
	if err != nil {
		return env.fail("minting shares", err)
	}
	decimals := env.decimalsOf(v.PaymentMint)
	fmt.Fprintf(env.stdout, "Minted %d shares for %s\n", *shares, formatAmount(receipt.Cost, decimals))
	if receipt.Yield > 0 {
		fmt.Fprintf(env.stdout, "Settled yield: %s\n", formatAmount(receipt.Yield, decimals))
	}
	fmt.Fprintf(env.stdout, "Position: %d shares\n", receipt.Position.Quantity)
	return 0
}

func runVaultDeposit(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "deposit")
	amountFlag := fs.String("amount", "", "revenue amount in display units")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	caller, v, err := env.prepare(cf, *vaultFlag)
	if err != nil {
		return env.fail("preparing deposit", err)
	}
	decimals := env.decimalsOf(v.PaymentMint)
	amount, err := parseAmount(*amountFlag, decimals)
	if err != nil {
		return env.fail("parsing amount", err)
	}
	receipt, err := env.engine.DepositRevenue(caller, vault.DepositAccounts{
		Vault:    v.Address,
		Payment:  token.AssociatedAddress(caller, v.PaymentMint),
		Revenue:  v.RevenueAccount,
		Treasury: v.TreasuryAccount,
	}, amount)
	if err != nil {
		return env.fail("depositing revenue", err)
	}
	fmt.Fprintf(env.stdout, "Deposited %s\n", formatAmount(amount, decimals))
	fmt.Fprintf(env.stdout, "  Fee:           %s\n", formatAmount(receipt.Fee, decimals))
	fmt.Fprintf(env.stdout, "  Distributable: %s\n", formatAmount(receipt.Distributable, decimals))
	fmt.Fprintf(env.stdout, "  Accumulator:   %s\n", receipt.Accumulator.Dec())
	return 0
}

func runVaultHarvest(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "harvest")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	caller, v, err := env.prepare(cf, *vaultFlag)
	if err != nil {
		return env.fail("preparing harvest", err)
	}
	paid, err := env.engine.Harvest(caller, vault.HarvestAccounts{
		Vault:       v.Address,
		Revenue:     v.RevenueAccount,
		Destination: token.AssociatedAddress(caller, v.PaymentMint),
	})
	if err != nil {
		return env.fail("harvesting", err)
	}
	fmt.Fprintf(env.stdout, "Harvested %s\n", formatAmount(paid, env.decimalsOf(v.PaymentMint)))
	return 0
}

func runVaultRedeem(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "redeem")
	shares := fs.Uint64("shares", 0, "number of shares to redeem")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	caller, v, err := env.prepare(cf, *vaultFlag)
	if err != nil {
		return env.fail("preparing redeem", err)
	}
	receipt, err := env.engine.RedeemShares(caller, vault.RedeemAccounts{
		Vault:     v.Address,
		Payment:   token.AssociatedAddress(caller, v.PaymentMint),
		Principal: v.PrincipalAccount,
		Revenue:   v.RevenueAccount,
	}, *shares)
	if err != nil {
		return env.fail("redeeming shares", err)
	}
	decimals := env.decimalsOf(v.PaymentMint)
	fmt.Fprintf(env.stdout, "Redeemed %d shares for %s\n", *shares, formatAmount(receipt.Refund, decimals))
	if receipt.Yield > 0 {
		fmt.Fprintf(env.stdout, "Settled yield: %s\n", formatAmount(receipt.Yield, decimals))
	}
	fmt.Fprintf(env.stdout, "Position: %d shares\n", receipt.Position.Quantity)
	return 0
}

func runVaultSetFee(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "set-fee")
	feeBps := fs.Uint16("bps", 0, "new performance fee in basis points")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	if !fs.Changed("bps") {
		return env.fail("updating fee", fmt.Errorf("--bps is required"))
	}
	caller, v, err := env.prepare(cf, *vaultFlag)
	if err != nil {
		return env.fail("preparing fee update", err)
	}
	if err := env.engine.UpdatePerformanceFee(caller, v.Address, *feeBps); err != nil {
		return env.fail("updating fee", err)
	}
	fmt.Fprintf(env.stdout, "Performance fee set to %d bps\n", *feeBps)
	return 0
}

func runVaultTransferAuthority(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "transfer-authority")
	toFlag := fs.String("to", "", "identity receiving governance")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	next, err := parseAddress("to", *toFlag)
	if err != nil {
		return env.fail("parsing authority", err)
	}
	caller, v, err := env.prepare(cf, *vaultFlag)
	if err != nil {
		return env.fail("preparing authority transfer", err)
	}
	if err := env.engine.TransferAuthority(caller, v.Address, next); err != nil {
		return env.fail("transferring authority", err)
	}
	fmt.Fprintf(env.stdout, "Authority transferred to %s\n", next)
	return 0
}

func runVaultRevoke(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "revoke")
	confirm := fs.Bool("yes", false, "confirm that governance should be disabled permanently")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	if !*confirm {
		return env.fail("revoking authority", fmt.Errorf("revocation is permanent; pass --yes to confirm"))
	}
	caller, v, err := env.prepare(cf, *vaultFlag)
	if err != nil {
		return env.fail("preparing revocation", err)
	}
	if err := env.engine.RevokeAuthority(caller, v.Address); err != nil {
		return env.fail("revoking authority", err)
	}
	fmt.Fprintln(env.stdout, "Governance disabled")
	return 0
}

func runVaultUpdateTreasury(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "update-treasury")
	toFlag := fs.String("to", "", "new treasury account (see 'asset open-treasury')")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	next, err := parseAddress("to", *toFlag)
	if err != nil {
		return env.fail("parsing treasury", err)
	}
	caller, v, err := env.prepare(cf, *vaultFlag)
	if err != nil {
		return env.fail("preparing treasury update", err)
	}
	swept, err := env.engine.UpdateTreasury(caller, v.Address, next)
	if err != nil {
		return env.fail("updating treasury", err)
	}
	fmt.Fprintf(env.stdout, "Treasury moved to %s (swept %s)\n", next, formatAmount(swept, env.decimalsOf(v.PaymentMint)))
	return 0
}

func runVaultShow(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "show")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	_, v, err := env.prepareRead(cf, *vaultFlag)
	if err != nil {
		return env.fail("loading vault", err)
	}
	printVault(env, v, env.decimalsOf(v.PaymentMint))
	return 0
}

func runVaultPosition(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "position")
	ownerFlag := fs.String("owner", "", "shareholder identity (defaults to the caller)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	owner, v, err := env.prepareOwner(cf, *vaultFlag, *ownerFlag)
	if err != nil {
		return env.fail("loading position", err)
	}
	pos, err := env.engine.Position(v.Address, owner)
	if err != nil {
		return env.fail("loading position", err)
	}
	fmt.Fprintf(env.stdout, "Position: %s\n", vault.PositionAddress(v.Address, owner))
	fmt.Fprintf(env.stdout, "Owner:      %s\n", pos.Owner)
	fmt.Fprintf(env.stdout, "Shares:     %d\n", pos.Quantity)
	fmt.Fprintf(env.stdout, "Checkpoint: %s\n", pos.RewardCheckpoint.Dec())
	return 0
}

func runVaultPending(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "pending")
	ownerFlag := fs.String("owner", "", "shareholder identity (defaults to the caller)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	owner, v, err := env.prepareOwner(cf, *vaultFlag, *ownerFlag)
	if err != nil {
		return env.fail("loading position", err)
	}
	owed, err := env.engine.PendingYield(v.Address, owner)
	if err != nil {
		return env.fail("computing pending yield", err)
	}
	fmt.Fprintf(env.stdout, "Pending yield: %s\n", formatAmount(owed, env.decimalsOf(v.PaymentMint)))
	return 0
}

func runVaultAudit(env *cliEnv, args []string) int {
	fs, cf, vaultFlag := vaultFlagSet(env, "audit")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	defer env.close()
	_, v, err := env.prepareRead(cf, *vaultFlag)
	if err != nil {
		return env.fail("loading vault", err)
	}
	report, err := env.engine.Audit(v.Address)
	if err != nil {
		return env.fail("auditing vault", err)
	}
	decimals := env.decimalsOf(v.PaymentMint)
	fmt.Fprintf(env.stdout, "Vault:     %s\n", report.Vault)
	fmt.Fprintf(env.stdout, "Holders:   %d (%d shares, %d minted, cap %d)\n", report.Holders, report.HolderShares, report.MintedShares, report.TotalShares)
	fmt.Fprintf(env.stdout, "Principal: %s\n", formatAmount(report.PrincipalBalance, decimals))
	fmt.Fprintf(env.stdout, "Revenue:   %s\n", formatAmount(report.RevenueBalance, decimals))
	fmt.Fprintf(env.stdout, "Treasury:  %s (fees %s)\n", formatAmount(report.TreasuryBalance, decimals), formatAmount(report.FeesCollected, decimals))
	fmt.Fprintf(env.stdout, "Remainder: %d\n", report.RewardRemainder)
	if !report.OK() {
		fmt.Fprintf(env.stdout, "Violations: %s\n", strings.Join(report.Violations, ", "))
		return 2
	}
	fmt.Fprintln(env.stdout, "Invariants: ok")
	return 0
}

func runVaultList(env *cliEnv, args []string) int {
	fs := pflag.NewFlagSet("vault list", pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := env.open(); err != nil {
		return env.fail("opening ledger", err)
	}
	defer env.close()
	var addrs []crypto.Address
	err := env.manager.View(func(tx *state.Txn) error {
		list, err := tx.VaultList()
		addrs = list
		return err
	})
	if err != nil {
		return env.fail("listing vaults", err)
	}
	for _, addr := range addrs {
		v, err := env.engine.Vault(addr)
		if err != nil {
			return env.fail("loading vault", err)
		}
		fmt.Fprintf(env.stdout, "%s  %-20s  %d/%d shares\n", v.Address, strconv.Quote(v.Name), v.MintedShares, v.TotalShares)
	}
	return 0
}

// prepareRead opens the ledger and resolves the vault without requiring a
// caller key when --vault is given.
func (e *cliEnv) prepareRead(cf *callerFlags, vaultFlag string) (crypto.Address, *vault.Vault, error) {
	if err := e.open(); err != nil {
		return crypto.Address{}, nil, err
	}
	addr, err := e.vaultAddress(cf, vaultFlag)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	v, err := e.engine.Vault(addr)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	return addr, v, nil
}

func (e *cliEnv) prepareOwner(cf *callerFlags, vaultFlag, ownerFlag string) (crypto.Address, *vault.Vault, error) {
	_, v, err := e.prepareRead(cf, vaultFlag)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	if strings.TrimSpace(ownerFlag) != "" {
		owner, err := parseAddress("owner", ownerFlag)
		return owner, v, err
	}
	owner, err := e.caller(cf)
	return owner, v, err
}

func printVault(env *cliEnv, v *vault.Vault, decimals uint8) {
	fmt.Fprintf(env.stdout, "Address:          %s\n", v.Address)
	fmt.Fprintf(env.stdout, "Name:             %s\n", v.Name)
	fmt.Fprintf(env.stdout, "Owner:            %s\n", v.Owner)
	fmt.Fprintf(env.stdout, "Authority:        %s\n", v.Authority)
	fmt.Fprintf(env.stdout, "Payment mint:     %s\n", v.PaymentMint)
	fmt.Fprintf(env.stdout, "Share mint:       %s\n", v.ShareMint)
	fmt.Fprintf(env.stdout, "Principal:        %s\n", v.PrincipalAccount)
	fmt.Fprintf(env.stdout, "Revenue:          %s\n", v.RevenueAccount)
	fmt.Fprintf(env.stdout, "Treasury:         %s\n", v.TreasuryAccount)
	fmt.Fprintf(env.stdout, "Shares:           %d/%d\n", v.MintedShares, v.TotalShares)
	fmt.Fprintf(env.stdout, "Price per share:  %s\n", formatAmount(v.PricePerShare, decimals))
	fmt.Fprintf(env.stdout, "Performance fee:  %d bps\n", v.PerformanceFeeBps)
	fmt.Fprintf(env.stdout, "Fees collected:   %s\n", formatAmount(v.TotalFeesCollected, decimals))
	fmt.Fprintf(env.stdout, "Accumulator:      %s\n", v.RewardAccumulator.Dec())
	fmt.Fprintf(env.stdout, "Remainder:        %d\n", v.RewardRemainder)
}
