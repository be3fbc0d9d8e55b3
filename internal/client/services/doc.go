// Package services holds the client's stateful core.
//
// SessionManager owns the access/refresh token pair: it restores a persisted
// session on start, adopts tokens from login, OTP and 2FA verification,
// keeps a timer armed to refresh before expiry and coalesces concurrent
// refreshes into one network call. WithAuthRetry wraps an authenticated call
// so that a rejected token triggers one refresh and one replay.
//
// WorkspaceCache keeps the user's projects, search results and trash listing
// in memory and mutates them only after the server confirmed the change.
//
// Both publish notifications on an events.Bus when one is configured.
package services
