// Package common contains shared constants and small helpers used across
// WriteDesk client components.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the only token type the API issues.
	BearerScheme = "Bearer"

	// RequestIDHeaderName correlates client log lines with server-side traces.
	RequestIDHeaderName = "X-Request-ID"

	// Persisted session keys.
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)
