// Package client is the transport layer of the WriteDesk CLI.
//
// # Overview
//
// The package provides:
//  1. The API contract (see the Client interface): authentication, profile
//     and workspace project endpoints.
//  2. A JSON/HTTP implementation (see HTTPClient) that unwraps the server's
//     {success, message, data} envelope at the boundary and attaches the
//     bearer token found in the request context (see WithAccessToken).
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable. Application failures are returned
// as *APIError carrying the server's message; errors.Is matches them against
// ErrUnauthorized (401), ErrForbidden (403), ErrNotFound (404) and
// ErrUnavailable (502/503/504). ErrSessionExpired is reserved for the session layer.
// UserMessage renders any of these for display.
//
// HTTPClient is safe for concurrent use. Token refresh is not its concern:
// it reports ErrUnauthorized and leaves recovery to the caller.
//
// The request timeout bounds JSON calls end to end. Exports are bounded only
// until the response headers arrive, so large documents can stream.
package client
