package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces secret values in log output.
const RedactedValue = "[REDACTED]"

// secretKeys lists attribute keys whose values never reach a log sink, however
// they were logged.
var secretKeys = map[string]struct{}{
	"passphrase":  {},
	"password":    {},
	"private_key": {},
	"seed":        {},
	"mnemonic":    {},
}

// IsSecret reports whether values logged under key are masked by the handler.
func IsSecret(key string) bool {
	_, ok := secretKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField returns an attribute that records whether a secret was supplied
// without recording the secret itself. Empty values pass through so a missing
// passphrase stays visible in debug output.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// redactAttr is installed on every handler built by Setup.
func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup {
		return attr
	}
	if IsSecret(attr.Key) && attr.Value.String() != "" {
		return slog.String(attr.Key, RedactedValue)
	}
	return attr
}
