package logging

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func restoreDefaults(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		log.SetOutput(os.Stderr)
	})
}

func TestSetupJSONRenamesKeys(t *testing.T) {
	restoreDefaults(t)
	var buf bytes.Buffer
	logger, closer, err := Setup(Options{Service: "vaultctl", Env: "test", Writer: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("vault initialized", slog.String("vault", "yv1abc"))
	logger.Debug("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "vault initialized", line["message"])
	require.Equal(t, "vaultctl", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
	require.NotContains(t, buf.String(), "hidden")
}

func TestSetupBridgesStdLogger(t *testing.T) {
	restoreDefaults(t)
	var buf bytes.Buffer
	_, _, err := Setup(Options{Service: "vaultctl", Writer: &buf})
	require.NoError(t, err)

	log.Printf("legacy %d", 7)
	require.Contains(t, buf.String(), `"message":"legacy 7"`)
}

func TestSetupConsoleFormat(t *testing.T) {
	restoreDefaults(t)
	var buf bytes.Buffer
	logger, _, err := Setup(Options{Service: "vaultctl", Format: "console", Level: "debug", Writer: &buf})
	require.NoError(t, err)

	logger.Debug("settled", slog.Uint64("amount", 42))
	out := buf.String()
	require.Contains(t, out, "settled")
	require.Contains(t, out, "amount=42")
	require.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestSetupWritesRotatingFile(t *testing.T) {
	restoreDefaults(t)
	path := filepath.Join(t.TempDir(), "logs", "vault.log")
	logger, closer, err := Setup(Options{Service: "vaultctl", File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	logger.Warn("rotated")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"severity":"WARN"`)
}

func TestSetupRejectsUnknownSettings(t *testing.T) {
	_, _, err := Setup(Options{Format: "xml"})
	require.Error(t, err)
	_, _, err = Setup(Options{Level: "loud"})
	require.Error(t, err)
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("keystore_password", "hunter2").Value.String())
	require.Equal(t, " ", MaskField("passphrase", " ").Value.String())
	require.True(t, IsSecret(" Passphrase "))
	require.False(t, IsSecret("vault"))
}

func TestHandlersRedactSecretKeys(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		t.Run(format, func(t *testing.T) {
			restoreDefaults(t)
			var buf bytes.Buffer
			logger, _, err := Setup(Options{Service: "vaultctl", Format: format, Writer: &buf})
			require.NoError(t, err)

			logger.Info("caller key loaded", slog.String("passphrase", "hunter2"), slog.String("vault", "yv1abc"))
			require.NotContains(t, buf.String(), "hunter2")
			require.Contains(t, buf.String(), RedactedValue)
			require.Contains(t, buf.String(), "yv1abc")
		})
	}
}
