// Package authclient manages the authentication session of one client
// process: it signs in against a backend auth service, keeps the issued
// credential bundle, persists it across restarts, refreshes it ahead of
// expiry and terminates it as soon as the backend rejects it.
//
// # Architecture
//
// A [Manager], assembled with [New], is the only writer of the session.
// Every request to the backend goes through its [Gateway], which attaches the
// bearer and CSRF headers and ends the session on 401 or 403. A background
// scheduler calls [Manager.RefreshTokens] shortly before the access token
// expires. [Operations] wraps each user action with loading, error and
// success bookkeeping for UI collaborators.
//
// The session is persisted through a [session.Store]; [OpenStore] builds the
// memory, file, SQLite or Redis backend named in [SessionConfig].
//
// # Errors
//
// Operations return the sentinels in this package, possibly wrapped in
// [*ValidationError] or [*APIError]. Use [errors.Is] to classify them and
// [UserMessage] for text that is safe to show. [ErrSessionExpired] always
// means the session has already been terminated.
//
// # Concurrency
//
// A Manager is safe for concurrent use. Sign in, sign out and refresh are
// serialized; concurrent refresh calls share one backend exchange.
// Subscribers run on the goroutine that changed the session and must not
// block.
package authclient
