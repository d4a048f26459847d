// Package fakebackend is an in-process authentication backend for tests and
// demos.
//
// It serves the twelve auth endpoints the client calls, signs HS256 access
// tokens, rotates opaque refresh tokens and detects their reuse. Failures and
// latency can be injected per endpoint, and every call is recorded.
//
// # What this package must NOT do
//
//   - Be used as a real server. Accounts live in memory and passwords are
//     compared in plain text.
//   - Import authclient. Tests of the root package depend on it.
package fakebackend
