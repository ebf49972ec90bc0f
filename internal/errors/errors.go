package errors

import (
	"errors"
	"fmt"
)

// Common causes surfaced by the session controller and the query pipeline
var (
	// Authentication errors
	ErrNoActiveAccount     = errors.New("no active account")
	ErrInteractionRequired = errors.New("interaction required")
	ErrNoAccountInResult   = errors.New("no account associated with this user")
	ErrNoIDToken           = errors.New("no id token in response")
	ErrStateMismatch       = errors.New("state mismatch")
	ErrNonceMismatch       = errors.New("nonce mismatch")
	ErrLoginTimeout        = errors.New("login timed out")
	ErrAuthorizationDenied = errors.New("authorization denied")

	// Query errors
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnsupportedResult = errors.New("unsupported result")
	ErrQueryFailed       = errors.New("query failed")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInvalidArgs = errors.New("invalid arguments")
)

// Kind classifies a failure so callers can branch without matching on messages.
type Kind int

const (
	KindUnknown Kind = iota
	// KindSilentAuth is a failed non-interactive sign-in or token request.
	KindSilentAuth
	// KindInteractiveAuth is a failed interactive sign-in. Terminal for the attempt.
	KindInteractiveAuth
	// KindNoAccount means the provider reported success without a usable account.
	KindNoAccount
	// KindLogout is a provider-side sign-out failure. Local state is never rolled back.
	KindLogout
	// KindQuery covers network, status and response-shape failures of a query.
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindSilentAuth:
		return "silent-auth"
	case KindInteractiveAuth:
		return "interactive-auth"
	case KindNoAccount:
		return "no-account"
	case KindLogout:
		return "logout"
	case KindQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Error is a classified failure of a user-triggered operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failed", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New classifies err under kind. A nil err still produces an error so a
// successful-but-unusable outcome can be reported.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusError carries a non-success HTTP response from a remote service.
type StatusError struct {
	StatusCode int
	Code       string // Service error code, when the body carried one
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("%s %d", ErrUnexpectedStatus, e.StatusCode)
	}
	return fmt.Sprintf("%s %d: %s %s", ErrUnexpectedStatus, e.StatusCode, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
