package middleware

import "net/http"

// RequireAuthenticated admits signed-in sessions. Signed-out requests get
// 401, or a redirect with WithSignInRedirect.
func RequireAuthenticated(sessions SessionReader, opts ...Option) func(http.Handler) http.Handler {
	return Guard(sessions, Authenticated, opts...)
}

// RequireAdmin admits the reserved administrator. Other signed-in users get
// 403.
func RequireAdmin(sessions SessionReader, opts ...Option) func(http.Handler) http.Handler {
	return Guard(sessions, Admin, opts...)
}

// RequireAnonymous admits signed-out sessions.
func RequireAnonymous(sessions SessionReader, opts ...Option) func(http.Handler) http.Handler {
	return Guard(sessions, Anonymous, opts...)
}
