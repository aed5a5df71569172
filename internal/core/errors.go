package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a failure the way spec §7 taxonomizes it — by what
// happened, not by Go type. Components branch on Kind, never on a concrete
// error type, so the propagation policy ("recover locally vs. surface") can
// be expressed once per kind instead of once per call site.
type ErrorKind int

const (
	// KindUnknown is the zero value; treat as KindUpstreamRemote-severity.
	KindUnknown ErrorKind = iota
	// KindUpstreamRateLimit is a remote "too many requests" response.
	KindUpstreamRateLimit
	// KindUpstreamAuth is a remote "token invalid" / "access denied" response.
	KindUpstreamAuth
	// KindUpstreamTransport is a connection reset, timeout, or DNS failure.
	KindUpstreamTransport
	// KindUpstreamRemote is a schema or decoding failure in an otherwise
	// successful response.
	KindUpstreamRemote
	// KindStore is a transaction conflict or persistence failure.
	KindStore
	// KindCache is a rate-gate or cache backing-store failure (fail-open).
	KindCache
	// KindValidation is a rejected operator input.
	KindValidation
	// KindCancelled is a cooperative cancellation; terminal, not a metric error.
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindUpstreamRateLimit:
		return "upstream_rate_limit"
	case KindUpstreamAuth:
		return "upstream_auth"
	case KindUpstreamTransport:
		return "upstream_transport"
	case KindUpstreamRemote:
		return "upstream_remote"
	case KindStore:
		return "store"
	case KindCache:
		return "cache"
	case KindValidation:
		return "validation"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// KindedError wraps an underlying error with its ErrorKind. It implements
// Unwrap so errors.Is/errors.As keep working against the wrapped cause.
type KindedError struct {
	Kind  ErrorKind
	cause error
}

func (e *KindedError) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

func (e *KindedError) Unwrap() error { return e.cause }

// Wrap annotates err with kind, adding a stack trace via pkg/errors the way
// the teacher wraps infrastructure failures.
func Wrap(kind ErrorKind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &KindedError{Kind: kind, cause: errors.Wrap(err, msg)}
}

// NewError constructs a new KindedError from a message, with a stack trace.
func NewError(kind ErrorKind, msg string, args ...interface{}) error {
	return &KindedError{Kind: kind, cause: errors.Errorf(msg, args...)}
}

// KindOf extracts the ErrorKind carried by err, defaulting to KindUnknown.
func KindOf(err error) ErrorKind {
	var ke *KindedError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the propagation policy of spec §7 allows a
// local retry for this kind (rate limit, transport, and store failures do;
// auth, validation, and cancellation never do).
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindUpstreamRateLimit, KindUpstreamTransport, KindStore:
		return true
	default:
		return false
	}
}
