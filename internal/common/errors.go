// Package common defines shared constants and sentinel errors used across
// the credential service layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Account errors.
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")

	// Renewal token errors.
	ErrMissingToken        = errors.New("missing refresh token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Signed access token errors.
	ErrTokenExpired   = errors.New("token expired")
	ErrMalformedToken = errors.New("malformed or unsigned token")

	// Federated identity errors.
	ErrInvalidFederatedToken = errors.New("invalid federated token")

	// Authorization header errors.
	ErrMissingAuthorization   = errors.New("missing authorization header")
	ErrMalformedAuthorization = errors.New("invalid authorization header")

	// ErrInvalidCredential is returned when neither a local access token nor
	// a federated identity token could be resolved from a bearer credential.
	ErrInvalidCredential = errors.New("invalid token")
)
