// Package models holds the client-side data types exchanged with the
// WriteDesk API: session tokens, user identity and profile, workspace
// projects and search results. JSON tags follow the server's snake_case wire
// format.
package models
