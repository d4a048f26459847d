// Package session provides durable persistence for the client's session
// snapshot: the user record and the credential bundle that let a process
// resume an authenticated session after a restart.
//
// # Snapshot encoding
//
// Snapshots are stored as versioned JSON records. Version 1 is the legacy
// camelCase layout without an expiry timestamp; version 2 adds expires_at
// and uses snake_case keys. Older versions are migrated forward on read and
// always rewritten at the current version.
//
// # Architecture boundaries
//
// This package owns the [Store] capability (Load, Save, Clear), the
// [Snapshot] model and its backends (memory, file, Redis, SQLite). It does
// NOT decide whether a session is valid, refresh credentials, or talk to the
// authentication backend; those responsibilities belong to the Manager.
//
// # What this package must NOT do
//
//   - Import authclient or jwt (no upward imports).
//   - Persist transient UI state such as loading flags or error messages.
//   - Persist a partial credential bundle.
package session
