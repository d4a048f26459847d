// Package middleware gates local HTTP routes on the client session.
//
// # Guards
//
//   - [RequireAuthenticated] admits signed-in sessions.
//   - [RequireAdmin] admits the reserved administrator only.
//   - [RequireAnonymous] admits signed-out sessions, for sign-in pages.
//
// Each guard reads [authclient.Manager.State] once per request and stores
// the snapshot in the request context for the handler.
//
// # What this package must NOT do
//
//   - Change the session. Guards only read it; sign-in and sign-out belong
//     to the Manager.
//   - Talk to the backend.
package middleware
