// Package cryptoerr defines the error kinds returned by the custody crypto core.
//
// Every failure carries one Kind so that callers (HTTP handlers, CLIs) can map it to
// a response without inspecting messages. Messages never include key material.
package cryptoerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation is a caller-input fault: bad lengths, prefixes, encodings.
	KindValidation
	// KindBundleFormat is a credential bundle that fails decoding or layout checks.
	KindBundleFormat
	// KindCryptographic is an authentication failure, signing failure or an off-curve point.
	KindCryptographic
	// KindConfiguration is missing or inconsistent key material from the environment.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBundleFormat:
		return "bundle_format"
	case KindCryptographic:
		return "cryptographic"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Kind sentinels, matched with errors.Is against any *Error of that kind.
var (
	ErrValidation    = errors.New("validation error")
	ErrBundleFormat  = errors.New("bundle format error")
	ErrCryptographic = errors.New("cryptographic error")
	ErrConfiguration = errors.New("configuration error")
)

// Sentinel errors - keys and points
var (
	ErrInvalidKeyFormat = errors.New("invalid key format")
	ErrPointNotOnCurve  = fmt.Errorf("%w: point not on curve", ErrInvalidKeyFormat)
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// Sentinel errors - operations
var (
	ErrInvalidBundle        = errors.New("invalid credential bundle")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrSigningFailed        = errors.New("signing failed")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrMissingKeyMaterial   = errors.New("missing key material")
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrBundleFormat:
		return e.Kind == KindBundleFormat
	case ErrCryptographic:
		return e.Kind == KindCryptographic
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	default:
		return false
	}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) error    { return newError(KindValidation, op, err) }
func BundleFormat(op string, err error) error  { return newError(KindBundleFormat, op, err) }
func Cryptographic(op string, err error) error { return newError(KindCryptographic, op, err) }
func Configuration(op string, err error) error { return newError(KindConfiguration, op, err) }

// Validationf builds a validation error around a formatted message that wraps base.
func Validationf(op string, base error, format string, args ...any) error {
	return Validation(op, fmt.Errorf("%w: "+format, append([]any{base}, args...)...))
}

// BundleFormatf builds a bundle format error wrapping ErrInvalidBundle.
func BundleFormatf(op string, format string, args ...any) error {
	return BundleFormat(op, fmt.Errorf("%w: "+format, append([]any{ErrInvalidBundle}, args...)...))
}
