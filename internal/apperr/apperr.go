// Package apperr defines the typed error taxonomy shared by every layer of
// the card-game service. Errors carry a kind (which maps to an HTTP status
// and a WebSocket close code), a stable machine-readable reason, and a bag
// of contextual fields collected on the way up the stack.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an application error.
type Kind int

const (
	// KindParse indicates malformed client data (card, command, config).
	KindParse Kind = iota
	// KindRules indicates a game or table rule violation.
	KindRules
	// KindInternal indicates an impossible state was reached.
	KindInternal
	// KindNotFound indicates an unknown table, event or resource.
	KindNotFound
	// KindInfra indicates a store or cache failure.
	KindInfra
	// KindAuth indicates a missing or invalid token.
	KindAuth
)

// String returns the string representation of a kind.
func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse_error"
	case KindRules:
		return "rules_error"
	case KindInternal:
		return "internal_error"
	case KindNotFound:
		return "not_found"
	case KindInfra:
		return "infra_error"
	case KindAuth:
		return "auth_error"
	default:
		return "unknown"
	}
}

// Error is a typed application error.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Context map[string]any
	cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Reason != "" {
		b.WriteString("(")
		b.WriteString(e.Reason)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap exposes the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is makes errors.Is match on (kind, reason) pairs so sentinel errors
// created with New can be compared against wrapped instances.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Reason == "" || e.Reason == t.Reason)
}

// New creates an error of the given kind.
func New(kind Kind, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

// Parse creates a malformed-input error.
func Parse(reason, message string) *Error { return New(KindParse, reason, message) }

// Rules creates a rule-violation error.
func Rules(reason, message string) *Error { return New(KindRules, reason, message) }

// Internal creates an impossible-state error.
func Internal(reason, message string) *Error { return New(KindInternal, reason, message) }

// NotFound creates an unknown-resource error.
func NotFound(reason string) *Error { return New(KindNotFound, reason, "") }

// Infra wraps a store or cache failure.
func Infra(reason string, cause error) *Error {
	e := New(KindInfra, reason, "")
	if cause != nil {
		e.Message = cause.Error()
		e.cause = cause
	}
	return e
}

// Auth creates an authentication error.
func Auth(reason, message string) *Error { return New(KindAuth, reason, message) }

// WithContext returns a copy of the error with additional key/value pairs
// attached. The receiver is not modified, so package-level sentinels stay
// clean. Keys already present are overwritten.
func (e *Error) WithContext(kv ...any) *Error {
	clone := &Error{
		Kind:    e.Kind,
		Reason:  e.Reason,
		Message: e.Message,
		cause:   e.cause,
		Context: make(map[string]any, len(e.Context)+len(kv)/2),
	}
	for k, v := range e.Context {
		clone.Context[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		clone.Context[key] = kv[i+1]
	}
	return clone
}

// WithContext attaches context to err if it is an application error and
// returns it unchanged otherwise.
func WithContext(err error, kv ...any) error {
	var e *Error
	if errors.As(err, &e) {
		return e.WithContext(kv...)
	}
	return err
}

// KindOf reports the kind of err, defaulting to KindInfra for errors that
// did not originate in this taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfra
}

// ReasonOf reports the machine-readable reason of err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// HTTPStatus maps an error to its REST status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindParse, KindRules:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the minimal payload safe to deliver to clients. Internal
// and infra errors hide their message.
func Public(err error) (code string, reason string, message string) {
	var e *Error
	if !errors.As(err, &e) {
		return KindInfra.String(), "", ""
	}
	switch e.Kind {
	case KindInternal, KindInfra:
		return e.Kind.String(), e.Reason, ""
	default:
		return e.Kind.String(), e.Reason, e.Message
	}
}
