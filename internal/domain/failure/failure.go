// Package failure defines the error kinds returned by the core's public operations.
//
// Every exported operation either succeeds or returns an *Error (possibly wrapped).
// Callers branch on the kind with errors.Is against the sentinels below, or with
// the Is* helpers.
package failure

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a failure
type Kind int

const (
	// KindUnknown is any failure not produced by this package
	KindUnknown Kind = iota
	// KindTransport means the upstream could not be reached or answered with a non-2xx status
	KindTransport
	// KindUpstream means the upstream answered but reported a semantic failure
	KindUpstream
	// KindTimeout means the upstream call exceeded its deadline
	KindTimeout
	// KindPartialRefresh means some per-target upserts of a refresh failed
	KindPartialRefresh
	// KindRateUnavailable means no direct or inverse rate is stored for a pair
	KindRateUnavailable
	// KindInvalidCurrency means a currency code is not a valid ISO 4217 code
	KindInvalidCurrency
	// KindNotFound means a requested record does not exist
	KindNotFound
	// KindInvalidInput means a request failed validation
	KindInvalidInput
)

// String returns the label used in logs and metrics
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUpstream:
		return "upstream"
	case KindTimeout:
		return "timeout"
	case KindPartialRefresh:
		return "partial_refresh"
	case KindRateUnavailable:
		return "rate_unavailable"
	case KindInvalidCurrency:
		return "invalid_currency"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the single error type used across the core
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "refresh" or "resolve"
	Op string
	// Currency is the currency or pair involved, when there is one
	Currency string
	// UpstreamType carries the upstream "error-type" field for KindUpstream
	UpstreamType string
	// Targets lists the failed targets for KindPartialRefresh
	Targets []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Currency != "" {
		b.WriteString(" [")
		b.WriteString(e.Currency)
		b.WriteString("]")
	}
	if e.UpstreamType != "" {
		b.WriteString(" error-type=")
		b.WriteString(e.UpstreamType)
	}
	if len(e.Targets) > 0 {
		b.WriteString(" targets=")
		b.WriteString(strings.Join(e.Targets, ","))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Currency == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrTransport           = &Error{Kind: KindTransport}
	ErrUpstream            = &Error{Kind: KindUpstream}
	ErrTimeout             = &Error{Kind: KindTimeout}
	ErrPartialRefresh      = &Error{Kind: KindPartialRefresh}
	ErrRateUnavailable     = &Error{Kind: KindRateUnavailable}
	ErrInvalidCurrencyCode = &Error{Kind: KindInvalidCurrency}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
)

// New builds an *Error of the given kind
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds an *Error with a formatted cause
func Newf(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Unavailable reports a missing rate for the pair from/to
func Unavailable(from, to string) *Error {
	return &Error{Kind: KindRateUnavailable, Op: "resolve", Currency: from + "/" + to}
}

// InvalidCurrency reports a malformed currency code
func InvalidCurrency(op, code string) *Error {
	return &Error{Kind: KindInvalidCurrency, Op: op, Currency: code}
}

// Partial reports the failed targets of a refresh, sorted for stable output
func Partial(base string, failed map[string]error, err error) *Error {
	targets := make([]string, 0, len(failed))
	for t := range failed {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return &Error{Kind: KindPartialRefresh, Op: "refresh", Currency: base, Targets: targets, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsFetch reports whether err is a fetch failure (transport, upstream or timeout)
func IsFetch(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindUpstream, KindTimeout:
		return true
	default:
		return false
	}
}

// IsUnavailable reports whether err signals a missing rate
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrRateUnavailable)
}

// IsTimeout reports whether err is an upstream timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Classify returns a metrics label for err
func Classify(err error) string {
	if err == nil {
		return "none"
	}
	return KindOf(err).String()
}
