package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"yieldvault/config"
	"yieldvault/core/events"
	"yieldvault/core/state"
	"yieldvault/crypto"
	"yieldvault/native/vault"
	"yieldvault/observability"
	"yieldvault/observability/logging"
	"yieldvault/storage"
)

const defaultPassphraseEnv = "VAULTCTL_PASSPHRASE"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := pflag.NewFlagSet("vaultctl", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	configPath := global.String("config", "vaultctl.toml", "path to the TOML configuration file")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(stdout, usage())
			return 0
		}
		return 1
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	env := &cliEnv{configPath: *configPath, stdout: stdout, stderr: stderr}
	switch rest[0] {
	case "keygen":
		return runKeygen(env, rest[1:])
	case "address":
		return runAddress(env, rest[1:])
	case "asset":
		return runAssetCommand(env, rest[1:])
	case "balance":
		return runBalance(env, rest[1:])
	case "vault":
		return runVaultCommand(env, rest[1:])
	case "help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "Usage: vaultctl [--config path] <command> [flags]")
	fmt.Fprintln(buf, "Commands:")
	fmt.Fprintln(buf, "  keygen       Generate a caller key and seal it in the keystore")
	fmt.Fprintln(buf, "  address      Print the caller address")
	fmt.Fprintln(buf, "  asset        Create the payment asset, open accounts, run the faucet")
	fmt.Fprintln(buf, "  balance      Show a token account balance")
	fmt.Fprintln(buf, "  vault        Vault operations and queries")
	return buf.String()
}

// cliEnv carries per-invocation settings and, once opened, the ledger.
type cliEnv struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer

	cfg     *config.Config
	logger  *slog.Logger
	closers []io.Closer
	manager *state.Manager
	engine  *vault.Engine
}

func (e *cliEnv) loadConfig() error {
	if e.cfg != nil {
		return nil
	}
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts := logging.Options{
		Service:    cfg.Logging.Service,
		Env:        cfg.Logging.Env,
		Format:     cfg.Logging.Format,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}
	if opts.File == "" {
		opts.Writer = e.stderr
	}
	logger, closer, err := logging.Setup(opts)
	if err != nil {
		return err
	}
	e.cfg = cfg
	// op_id ties together every line written by one invocation.
	e.logger = logger.With(slog.String("op_id", uuid.NewString()))
	e.closers = append(e.closers, closer)
	return nil
}

// open loads the configuration and opens the ledger with a wired engine.
func (e *cliEnv) open() error {
	if err := e.loadConfig(); err != nil {
		return err
	}
	if e.manager != nil {
		return nil
	}
	db, err := storage.Open(e.cfg.Backend, e.cfg.DataDir)
	if err != nil {
		return err
	}
	e.closers = append([]io.Closer{db}, e.closers...)
	manager := state.NewManager(db)
	if err := state.EnsureStateVersion(manager, false); err != nil {
		return err
	}

	engine := vault.NewEngine()
	engine.SetStore(state.NewVaultStore(manager))
	engine.SetLogger(e.logger.With(slog.String("component", "vault")))
	engine.SetObserver(observability.Vault())
	engine.SetEmitter(observability.CountingEmitter{
		Metrics: observability.Events(),
		Next:    logEmitter{logger: e.logger},
	})
	engine.SetPauses(e.cfg.Pauses())
	engine.SetStrictInvariants(e.cfg.Vault.StrictInvariants)

	e.manager = manager
	e.engine = engine
	return nil
}

func (e *cliEnv) close() {
	if e.cfg != nil && e.cfg.Metrics.TextfilePath != "" {
		if err := prometheus.WriteToTextfile(e.cfg.Metrics.TextfilePath, prometheus.DefaultGatherer); err != nil {
			fmt.Fprintf(e.stderr, "Failed to write metrics: %v\n", err)
		}
	}
	for _, c := range e.closers {
		_ = c.Close()
	}
	e.closers = nil
}

// fail reports err and returns the exit status for it.
func (e *cliEnv) fail(action string, err error) int {
	fmt.Fprintf(e.stderr, "Error %s: %v\n", action, err)
	return 1
}

// callerFlags are shared by every command that acts as a signer.
type callerFlags struct {
	keystore      string
	passphraseEnv string
}

func addCallerFlags(fs *pflag.FlagSet) *callerFlags {
	cf := &callerFlags{}
	fs.StringVar(&cf.keystore, "keystore", "", "caller keystore file (defaults to KeystorePath from config)")
	fs.StringVar(&cf.passphraseEnv, "passphrase-env", defaultPassphraseEnv, "environment variable holding the keystore passphrase")
	return cf
}

func (e *cliEnv) caller(cf *callerFlags) (crypto.Address, error) {
	path := cf.keystore
	if path == "" {
		path = e.cfg.KeystorePath
	}
	passphrase := os.Getenv(cf.passphraseEnv)
	key, err := crypto.LoadFromKeystore(path, passphrase)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("open keystore %s: %w", path, err)
	}
	addr := key.PubKey().Address()
	e.logger.Debug("caller key loaded",
		slog.String("keystore", path),
		logging.MaskField("passphrase", passphrase),
		slog.String("caller", addr.String()))
	return addr, nil
}

func runKeygen(env *cliEnv, args []string) int {
	fs := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	cf := addCallerFlags(fs)
	light := fs.Bool("lightkdf", false, "use light scrypt parameters (testing only)")
	force := fs.Bool("force", false, "overwrite an existing keystore")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := env.loadConfig(); err != nil {
		return env.fail("loading config", err)
	}
	defer env.close()

	path := cf.keystore
	if path == "" {
		path = env.cfg.KeystorePath
	}
	if _, err := os.Stat(path); err == nil && !*force {
		return env.fail("generating key", fmt.Errorf("keystore %s already exists (use --force)", path))
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return env.fail("generating key", err)
	}
	save := crypto.SaveToKeystore
	if *light {
		save = crypto.SaveToKeystoreLight
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return env.fail("generating key", err)
	}
	if err := save(path, key, os.Getenv(cf.passphraseEnv)); err != nil {
		return env.fail("saving keystore", err)
	}
	fmt.Fprintf(env.stdout, "Address:  %s\n", key.PubKey().Address())
	fmt.Fprintf(env.stdout, "Keystore: %s\n", path)
	return 0
}

func runAddress(env *cliEnv, args []string) int {
	fs := pflag.NewFlagSet("address", pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	cf := addCallerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := env.loadConfig(); err != nil {
		return env.fail("loading config", err)
	}
	defer env.close()
	addr, err := env.caller(cf)
	if err != nil {
		return env.fail("loading caller", err)
	}
	fmt.Fprintln(env.stdout, addr)
	return 0
}

// logEmitter writes committed ledger events to the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	typed, ok := evt.(events.Payload)
	if !ok {
		l.logger.Info("ledger event", slog.String("type", evt.EventType()))
		return
	}
	payload := typed.Event()
	keys := payload.Keys()
	attrs := make([]any, 0, len(keys)+1)
	attrs = append(attrs, slog.String("type", payload.Type))
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, payload.Attributes[k]))
	}
	l.logger.Info("ledger event", attrs...)
}

func parseAddress(flagName, value string) (crypto.Address, error) {
	if strings.TrimSpace(value) == "" {
		return crypto.Address{}, fmt.Errorf("--%s is required", flagName)
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("--%s: %w", flagName, err)
	}
	return addr, nil
}
