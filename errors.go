package session

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidCredentials marks malformed login/register payloads
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	// TextCodeAuthRejected marks a server-side credential or token rejection
	TextCodeAuthRejected = "AUTH_REJECTED"
	// TextCodeSessionExpired marks a session that failed verification
	TextCodeSessionExpired = "SESSION_EXPIRED"
	// TextCodeBackendUnreachable marks transport failures
	TextCodeBackendUnreachable = "BACKEND_UNREACHABLE"
)

// ErrInvalidCredentials is returned when a login payload fails validation
// before any network round trip.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeBadRequest)

// ErrSessionExpired is returned when verification is attempted without a
// usable access token.
var ErrSessionExpired = goerrors.New("session is expired or missing", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// authError builds a server-rejection error carrying the server's message.
func authError(message string) *goerrors.Error {
	if message == "" {
		message = "authentication rejected"
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(TextCodeAuthRejected).
		WithCode(goerrors.CodeUnauthorized)
}

// transportError wraps a network-level failure.
func transportError(err error, message string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, message).
		WithTextCode(TextCodeBackendUnreachable)
}

// IsAuthError checks whether the server rejected credentials or a token
func IsAuthError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryAuth
}

// IsTransportError checks for network-level failures
func IsTransportError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeBackendUnreachable
}

// IsValidationError checks for payload validation failures
func IsValidationError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryValidation
}

// messageOf extracts the human-readable message mirrored into state
func messageOf(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Message
	}
	return err.Error()
}
