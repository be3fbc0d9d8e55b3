// Package cli provides the interactive WriteDesk command-line client.
//
// It wires configuration, the local token store, the API client, the
// session manager and the workspace cache, and runs a REPL on top of them.
// On start the stored session is restored; a background watcher listens on
// the event bus and tells the user when the session expires.
//
// Key features:
//   - Login with optional two-factor or one-time-password verification
//   - List, create, rename, search, delete, restore and purge projects
//   - Show project details and export documents to local files
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, runREPL and execIface for details.
package cli
