package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authclient"
)

// SessionReader is satisfied by *authclient.Manager.
type SessionReader interface {
	State() authclient.State
}

// Rule decides whether a session may enter a route.
type Rule int

const (
	// Authenticated admits any signed-in session.
	Authenticated Rule = iota
	// Admin admits the reserved administrator.
	Admin
	// Anonymous admits signed-out sessions.
	Anonymous
)

type stateContextKey struct{}

// StateFromContext returns the session snapshot a guard admitted the request
// with.
func StateFromContext(ctx context.Context) (authclient.State, bool) {
	st, ok := ctx.Value(stateContextKey{}).(authclient.State)
	return st, ok
}

// Option customises how a guard rejects requests.
type Option func(*options)

type options struct {
	signInURL string
	homeURL   string
	reject    http.Handler
}

// WithSignInRedirect sends rejected signed-out visitors to url with 303
// instead of answering 401.
func WithSignInRedirect(url string) Option {
	return func(o *options) { o.signInURL = url }
}

// WithHomeRedirect sends signed-in visitors of an Anonymous route to url with
// 303 instead of answering 409.
func WithHomeRedirect(url string) Option {
	return func(o *options) { o.homeURL = url }
}

// WithRejectHandler replaces the default status responses.
func WithRejectHandler(h http.Handler) Option {
	return func(o *options) { o.reject = h }
}

// Guard returns middleware that admits requests whose session satisfies rule.
func Guard(sessions SessionReader, rule Rule, opts ...Option) func(http.Handler) http.Handler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			st := sessions.State()
			if status := check(st, rule); status != 0 {
				o.rejectRequest(w, r, status)
				return
			}

			ctx := context.WithValue(r.Context(), stateContextKey{}, st)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// check returns 0 to admit, or the status to reject with.
func check(st authclient.State, rule Rule) int {
	switch rule {
	case Anonymous:
		if st.IsAuthenticated {
			return http.StatusConflict
		}
		return 0
	case Admin:
		if !st.IsAuthenticated {
			return http.StatusUnauthorized
		}
		if !st.IsAdmin {
			return http.StatusForbidden
		}
		return 0
	default:
		if !st.IsAuthenticated {
			return http.StatusUnauthorized
		}
		return 0
	}
}

func (o *options) rejectRequest(w http.ResponseWriter, r *http.Request, status int) {
	switch {
	case o.reject != nil:
		o.reject.ServeHTTP(w, r)
	case status == http.StatusUnauthorized && o.signInURL != "":
		http.Redirect(w, r, o.signInURL, http.StatusSeeOther)
	case status == http.StatusConflict && o.homeURL != "":
		http.Redirect(w, r, o.homeURL, http.StatusSeeOther)
	default:
		http.Error(w, http.StatusText(status), status)
	}
}
