package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldvault/config"
	"yieldvault/crypto"
	"yieldvault/native/vault"
)

type cliHarness struct {
	t          *testing.T
	dir        string
	configPath string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.KeystorePath = filepath.Join(dir, "caller.keystore")
	cfg.Logging.Level = "warn"
	cfg.Metrics.TextfilePath = filepath.Join(dir, "vaultctl.prom")
	path := filepath.Join(dir, "vaultctl.toml")
	require.NoError(t, config.Save(path, cfg))
	t.Setenv(defaultPassphraseEnv, "correct horse")
	return &cliHarness{t: t, dir: dir, configPath: path}
}

func (h *cliHarness) run(args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--config", h.configPath}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	code, stdout, stderr := h.run(args...)
	require.Equal(h.t, 0, code, "vaultctl %s\nstdout: %s\nstderr: %s", strings.Join(args, " "), stdout, stderr)
	return stdout
}

func (h *cliHarness) keystore(name string) string {
	return filepath.Join(h.dir, name+".keystore")
}

func (h *cliHarness) newIdentity(name string) crypto.Address {
	h.t.Helper()
	h.mustRun("keygen", "--lightkdf", "--keystore", h.keystore(name))
	out := h.mustRun("address", "--keystore", h.keystore(name))
	addr, err := crypto.DecodeAddress(strings.TrimSpace(out))
	require.NoError(h.t, err)
	return addr
}

func TestVaultLifecycleThroughCLI(t *testing.T) {
	h := newCLIHarness(t)
	alice := h.newIdentity("alice")
	bob := h.newIdentity("bob")
	aliceKey := "--keystore=" + h.keystore("alice")
	bobKey := "--keystore=" + h.keystore("bob")

	h.mustRun("asset", "create", aliceKey, "--symbol", "USDC", "--decimals", "6")
	cfg, err := config.Load(h.configPath)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Asset.Mint)

	h.mustRun("asset", "faucet", aliceKey, "--to", alice.String(), "--amount", "1000")
	h.mustRun("asset", "faucet", aliceKey, "--to", bob.String(), "--amount", "500")

	out := h.mustRun("vault", "init", aliceKey, "--name", "Solar Farm", "--total-shares", "1000", "--price", "1", "--fee-bps", "1000")
	require.Contains(t, out, `Vault "Solar Farm" initialized`)
	vaultAddr := vault.VaultAddress(alice).String()

	out = h.mustRun("vault", "mint", bobKey, "--vault", vaultAddr, "--shares", "100")
	require.Contains(t, out, "Minted 100 shares for 100.000000")

	out = h.mustRun("vault", "deposit", aliceKey, "--amount", "10")
	require.Contains(t, out, "Fee:           1.000000")
	require.Contains(t, out, "Distributable: 9.000000")

	out = h.mustRun("vault", "pending", bobKey, "--vault", vaultAddr)
	require.Contains(t, out, "Pending yield: 9.000000")

	out = h.mustRun("vault", "harvest", bobKey, "--vault", vaultAddr)
	require.Contains(t, out, "Harvested 9.000000")

	out = h.mustRun("vault", "audit", "--vault", vaultAddr)
	require.Contains(t, out, "Invariants: ok")

	out = h.mustRun("vault", "redeem", bobKey, "--vault", vaultAddr, "--shares", "100")
	require.Contains(t, out, "Redeemed 100 shares for 100.000000")

	out = h.mustRun("balance", bobKey)
	require.Contains(t, out, "Balance: 509.000000")

	out = h.mustRun("vault", "list")
	require.Contains(t, out, vaultAddr)

	_, err = os.Stat(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
}

func TestGovernanceThroughCLI(t *testing.T) {
	h := newCLIHarness(t)
	alice := h.newIdentity("alice")
	bob := h.newIdentity("bob")
	aliceKey := "--keystore=" + h.keystore("alice")
	bobKey := "--keystore=" + h.keystore("bob")

	h.mustRun("asset", "create", aliceKey)
	h.mustRun("vault", "init", aliceKey, "--name", "Gov", "--total-shares", "10", "--price", "0.5")
	vaultAddr := vault.VaultAddress(alice).String()

	code, _, stderr := h.run("vault", "set-fee", bobKey, "--vault", vaultAddr, "--bps", "100")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, vault.ErrUnauthorized.Error())

	h.mustRun("vault", "set-fee", aliceKey, "--bps", "2000")
	code, _, stderr = h.run("vault", "set-fee", aliceKey, "--bps", "2001")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, vault.ErrPerformanceFeeExceedsMax.Error())

	out := h.mustRun("asset", "open-treasury", aliceKey, "--seed", "v2")
	treasury := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Treasury account:"))
	out = h.mustRun("vault", "update-treasury", aliceKey, "--to", treasury)
	require.Contains(t, out, "swept 0.000000")

	h.mustRun("vault", "transfer-authority", aliceKey, "--to", bob.String())
	h.mustRun("vault", "set-fee", bobKey, "--vault", vaultAddr, "--bps", "50")

	code, _, _ = h.run("vault", "revoke", bobKey, "--vault", vaultAddr)
	require.Equal(t, 1, code, "revoke requires --yes")
	h.mustRun("vault", "revoke", bobKey, "--vault", vaultAddr, "--yes")

	code, _, stderr = h.run("vault", "set-fee", bobKey, "--vault", vaultAddr, "--bps", "10")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, vault.ErrGovernanceDisabled.Error())

	out = h.mustRun("vault", "show", "--vault", vaultAddr)
	require.Contains(t, out, "Performance fee:  50 bps")
	require.Contains(t, out, "Price per share:  0.500000")
}

func TestUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run([]string{"frobnicate"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "Unknown command: frobnicate")
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in       string
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{"12.5", 6, 12_500_000, false},
		{"0", 6, 0, false},
		{"1", 0, 1, false},
		{" 3.000001 ", 6, 3_000_001, false},
		{"0.0000001", 6, 0, true},
		{"-1", 6, 0, true},
		{"abc", 6, 0, true},
		{"", 6, 0, true},
		{"18446744073709551616", 0, 0, true},
	}
	for _, tc := range cases {
		got, err := parseAmount(tc.in, tc.decimals)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "12.500000", formatAmount(12_500_000, 6))
	require.Equal(t, "7", formatAmount(7, 0))
	require.Equal(t, "0.01", formatAmount(1, 2))
}
