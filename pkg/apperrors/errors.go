// Package apperrors defines the closed set of error kinds the gateway can
// surface, each mapped to a machine-readable code and an HTTP status.
// Components produce kinds directly instead of downstream code inferring
// them from error shapes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a category of failure.
type Kind int

const (
	// Internal is the catch-all for unexpected failures.
	Internal Kind = iota

	// TokenRequired means a protected route received no credential.
	TokenRequired
	// InvalidToken means the credential failed signature verification.
	InvalidToken
	// TokenExpired means the credential's expiry claim has passed.
	TokenExpired
	// SessionExpired means the token verified but its server-side session
	// is gone. Session revocation is authoritative over token expiry.
	SessionExpired
	// AuthenticationRequired means a role check ran without an identity.
	AuthenticationRequired
	// InsufficientPermissions means the identity's role is not allowed.
	InsufficientPermissions

	// RateLimited means the client exceeded its request ceiling.
	RateLimited

	// Validation means the request body is missing required fields.
	Validation

	// AIService means the completion service was unreachable or failed.
	AIService
	// AIQuota means the completion service rejected the call for quota.
	AIQuota
	// InvalidAIRequest means the payload was malformed for its task type.
	InvalidAIRequest
	// AIProcessing covers handler failures, including unparseable
	// structured output.
	AIProcessing

	// StoreUnavailable means the cache store transport failed.
	StoreUnavailable
)

// Code returns the wire code for the kind.
func (k Kind) Code() string {
	switch k {
	case TokenRequired:
		return "TOKEN_REQUIRED"
	case InvalidToken:
		return "INVALID_TOKEN"
	case TokenExpired:
		return "TOKEN_EXPIRED"
	case SessionExpired:
		return "SESSION_EXPIRED"
	case AuthenticationRequired:
		return "AUTHENTICATION_REQUIRED"
	case InsufficientPermissions:
		return "INSUFFICIENT_PERMISSIONS"
	case RateLimited:
		return "RATE_LIMIT_EXCEEDED"
	case Validation:
		return "VALIDATION_ERROR"
	case AIService:
		return "AI_SERVICE_ERROR"
	case AIQuota:
		return "AI_QUOTA_EXCEEDED"
	case InvalidAIRequest:
		return "INVALID_AI_REQUEST"
	case AIProcessing:
		return "AI_PROCESSING_ERROR"
	case StoreUnavailable:
		return "STORE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus returns the HTTP status the kind maps to at the boundary.
func (k Kind) HTTPStatus() int {
	switch k {
	case TokenRequired, InvalidToken, TokenExpired, SessionExpired, AuthenticationRequired:
		return http.StatusUnauthorized
	case InsufficientPermissions:
		return http.StatusForbidden
	case RateLimited, AIQuota:
		return http.StatusTooManyRequests
	case Validation, InvalidAIRequest:
		return http.StatusBadRequest
	case AIService:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// KindForCode is the inverse of Code. Unknown codes map to Internal.
func KindForCode(code string) Kind {
	for k := Internal; k <= StoreUnavailable; k++ {
		if k.Code() == code {
			return k
		}
	}
	return Internal
}

// Error is a kinded error carrying a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from err, defaulting to Internal for errors
// produced outside this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// MessageOf returns the message for err, hiding wrapped internals for
// non-kinded errors.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal server error"
}
