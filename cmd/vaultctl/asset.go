package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"yieldvault/config"
	"yieldvault/core/state"
	"yieldvault/crypto"
	"yieldvault/native/token"
	"yieldvault/native/vault"
)

func runAssetCommand(env *cliEnv, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(env.stderr, "Usage: vaultctl asset <create|open|faucet|open-treasury> [flags]")
		return 1
	}
	switch args[0] {
	case "create":
		return runAssetCreate(env, args[1:])
	case "open":
		return runAssetOpen(env, args[1:])
	case "faucet":
		return runAssetFaucet(env, args[1:])
	case "open-treasury":
		return runAssetOpenTreasury(env, args[1:])
	default:
		fmt.Fprintf(env.stderr, "Unknown asset command: %s\n", args[0])
		return 1
	}
}

// paymentMint resolves the payment mint from --mint or the configuration.
func (e *cliEnv) paymentMint(flagValue string) (crypto.Address, error) {
	value := strings.TrimSpace(flagValue)
	if value == "" {
		value = e.cfg.Asset.Mint
	}
	if value == "" {
		return crypto.Address{}, fmt.Errorf("no payment mint configured; run 'vaultctl asset create' or pass --mint")
	}
	return parseAddress("mint", value)
}

func runAssetCreate(env *cliEnv, args []string) int {
	fs := pflag.NewFlagSet("asset create", pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	cf := addCallerFlags(fs)
	symbol := fs.String("symbol", "", "asset symbol (defaults to the configured symbol)")
	decimals := fs.Uint8("decimals", 0, "display decimals (defaults to the configured value)")
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
	cfg := env.cfg
	if *symbol != "" {
		cfg.Asset.Symbol = *symbol
	}
	if fs.Changed("decimals") {
		cfg.Asset.Decimals = *decimals
	}
	mintAddr := crypto.Derive([]byte("asset"), []byte(cfg.Asset.Symbol), caller[:])
	err = env.manager.Update(func(tx *state.Txn) error {
		_, err := token.NewLedger(tx).CreateMint(mintAddr, caller, cfg.Asset.Decimals)
		return err
	})
	if err != nil {
		return env.fail("creating asset", err)
	}
	cfg.Asset.Mint = mintAddr.String()
	if err := config.Save(env.configPath, cfg); err != nil {
		return env.fail("saving config", err)
	}
	fmt.Fprintf(env.stdout, "Asset %s created\n", cfg.Asset.Symbol)
	fmt.Fprintf(env.stdout, "  Mint:      %s\n", mintAddr)
	fmt.Fprintf(env.stdout, "  Authority: %s\n", caller)
	return 0
}

func runAssetOpen(env *cliEnv, args []string) int {
	fs := pflag.NewFlagSet("asset open", pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	cf := addCallerFlags(fs)
	mintFlag := fs.String("mint", "", "payment mint (defaults to the configured mint)")
	ownerFlag := fs.String("owner", "", "account owner (defaults to the caller)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := env.open(); err != nil {
		return env.fail("opening ledger", err)
	}
	defer env.close()

	mint, err := env.paymentMint(*mintFlag)
	if err != nil {
		return env.fail("resolving mint", err)
	}
	var owner crypto.Address
	if *ownerFlag != "" {
		owner, err = parseAddress("owner", *ownerFlag)
	} else {
		owner, err = env.caller(cf)
	}
	if err != nil {
		return env.fail("resolving owner", err)
	}
	var acct *token.Account
	err = env.manager.Update(func(tx *state.Txn) error {
		a, err := token.NewLedger(tx).EnsureAssociatedAccount(owner, mint)
		acct = a
		return err
	})
	if err != nil {
		return env.fail("opening account", err)
	}
	fmt.Fprintf(env.stdout, "Account: %s\n", acct.Address)
	return 0
}

func runAssetFaucet(env *cliEnv, args []string) int {
	fs := pflag.NewFlagSet("asset faucet", pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	cf := addCallerFlags(fs)
	mintFlag := fs.String("mint", "", "payment mint (defaults to the configured mint)")
	toFlag := fs.String("to", "", "recipient identity; funds land in its associated account")
	amountFlag := fs.String("amount", "", "amount in display units, e.g. 12.5")
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
	recipient, err := parseAddress("to", *toFlag)
	if err != nil {
		return env.fail("parsing recipient", err)
	}
	amount, err := parseAmount(*amountFlag, env.cfg.Asset.Decimals)
	if err != nil {
		return env.fail("parsing amount", err)
	}
	var dest crypto.Address
	err = env.manager.Update(func(tx *state.Txn) error {
		ledger := token.NewLedger(tx)
		acct, err := ledger.EnsureAssociatedAccount(recipient, mint)
		if err != nil {
			return err
		}
		dest = acct.Address
		return ledger.MintTo(mint, acct.Address, caller, amount)
	})
	if err != nil {
		return env.fail("minting", err)
	}
	fmt.Fprintf(env.stdout, "Minted %s %s to %s\n", formatAmount(amount, env.cfg.Asset.Decimals), env.cfg.Asset.Symbol, dest)
	return 0
}

// runAssetOpenTreasury opens an empty payment account owned by a vault's
// signer, suitable as the target of update-treasury.
func runAssetOpenTreasury(env *cliEnv, args []string) int {
	fs := pflag.NewFlagSet("asset open-treasury", pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	cf := addCallerFlags(fs)
	vaultFlag := fs.String("vault", "", "vault address (defaults to the caller's vault)")
	seed := fs.String("seed", "", "seed distinguishing this account from earlier treasuries")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := env.open(); err != nil {
		return env.fail("opening ledger", err)
	}
	defer env.close()

	vaultAddr, err := env.vaultAddress(cf, *vaultFlag)
	if err != nil {
		return env.fail("resolving vault", err)
	}
	if strings.TrimSpace(*seed) == "" {
		return env.fail("opening treasury", fmt.Errorf("--seed is required"))
	}
	v, err := env.engine.Vault(vaultAddr)
	if err != nil {
		return env.fail("loading vault", err)
	}
	addr := crypto.Derive([]byte("treasury-account"), vaultAddr[:], []byte(*seed))
	err = env.manager.Update(func(tx *state.Txn) error {
		_, err := token.NewLedger(tx).CreateAccount(addr, v.PaymentMint, vault.SignerAddress(vaultAddr))
		return err
	})
	if err != nil {
		return env.fail("opening treasury", err)
	}
	fmt.Fprintf(env.stdout, "Treasury account: %s\n", addr)
	return 0
}

func runBalance(env *cliEnv, args []string) int {
	fs := pflag.NewFlagSet("balance", pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	cf := addCallerFlags(fs)
	accountFlag := fs.String("account", "", "token account address")
	ownerFlag := fs.String("owner", "", "identity whose associated payment account to show (defaults to the caller)")
	mintFlag := fs.String("mint", "", "payment mint (defaults to the configured mint)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := env.open(); err != nil {
		return env.fail("opening ledger", err)
	}
	defer env.close()

	var (
		addr crypto.Address
		err  error
	)
	switch {
	case *accountFlag != "":
		addr, err = parseAddress("account", *accountFlag)
	default:
		var mint, owner crypto.Address
		mint, err = env.paymentMint(*mintFlag)
		if err != nil {
			break
		}
		if *ownerFlag != "" {
			owner, err = parseAddress("owner", *ownerFlag)
		} else {
			owner, err = env.caller(cf)
		}
		addr = token.AssociatedAddress(owner, mint)
	}
	if err != nil {
		return env.fail("resolving account", err)
	}

	var acct *token.Account
	var mint *token.Mint
	err = env.manager.View(func(tx *state.Txn) error {
		ledger := token.NewLedger(tx)
		a, err := ledger.Account(addr)
		if err != nil {
			return err
		}
		m, err := ledger.Mint(a.Mint)
		if err != nil {
			return err
		}
		acct, mint = a, m
		return nil
	})
	if err != nil {
		return env.fail("reading balance", err)
	}
	fmt.Fprintf(env.stdout, "Account: %s\n", acct.Address)
	fmt.Fprintf(env.stdout, "Owner:   %s\n", acct.Owner)
	fmt.Fprintf(env.stdout, "Mint:    %s\n", acct.Mint)
	fmt.Fprintf(env.stdout, "Balance: %s\n", formatAmount(acct.Amount, mint.Decimals))
	return 0
}
