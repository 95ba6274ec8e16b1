// Package logging builds the zap loggers used by the agent and the CLI.
//
// Every logger is wrapped in a core that replaces the value of any field whose key looks
// like secret material, so a stray zap.String("private_key", ...) never reaches a sink.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redactedValue = "[REDACTED]"

var sensitiveKeyParts = []string{
	"private", "secret", "mnemonic", "plaintext", "bundle", "token", "password", "authorization", "stamp",
}

func NewLogger(debug bool) (*zap.Logger, error) {
	opt := zap.WrapCore(Redact)
	if debug {
		return zap.NewDevelopment(opt)
	}
	return zap.NewProduction(opt)
}

// Redact wraps core so that sensitive fields are masked before encoding.
func Redact(core zapcore.Core) zapcore.Core {
	if core == nil {
		return nil
	}
	return &redactingCore{Core: core}
}

type redactingCore struct {
	zapcore.Core
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(redactFields(fields))}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, redactFields(fields))
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	out := fields
	copied := false
	for i, f := range fields {
		if !IsSensitiveKey(f.Key) {
			continue
		}
		if !copied {
			out = append([]zapcore.Field(nil), fields...)
			copied = true
		}
		out[i] = zap.String(f.Key, redactedValue)
	}
	return out
}

// IsSensitiveKey reports whether a field with this key must not be logged verbatim.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	// Public keys are fine to log.
	if strings.Contains(k, "public") {
		return false
	}
	for _, part := range sensitiveKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}
