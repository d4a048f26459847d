package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrEthical07/authclient"
)

type fixedSession authclient.State

func (f fixedSession) State() authclient.State { return authclient.State(f) }

var (
	signedOut = fixedSession{}
	member    = fixedSession{User: &authclient.User{Username: "ada"}, IsAuthenticated: true}
	admin     = fixedSession{User: &authclient.User{Username: "admin"}, IsAuthenticated: true, IsAdmin: true}
)

func serve(mw func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, ok := StateFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		name := "anonymous"
		if st.User != nil {
			name = st.User.Username
		}
		_, _ = w.Write([]byte(name))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	return rec
}

func TestGuardRules(t *testing.T) {
	cases := []struct {
		name    string
		mw      func(SessionReader, ...Option) func(http.Handler) http.Handler
		session fixedSession
		status  int
	}{
		{"authenticated admits member", RequireAuthenticated, member, http.StatusOK},
		{"authenticated rejects signed out", RequireAuthenticated, signedOut, http.StatusUnauthorized},
		{"admin admits admin", RequireAdmin, admin, http.StatusOK},
		{"admin forbids member", RequireAdmin, member, http.StatusForbidden},
		{"admin rejects signed out", RequireAdmin, signedOut, http.StatusUnauthorized},
		{"anonymous admits signed out", RequireAnonymous, signedOut, http.StatusOK},
		{"anonymous rejects member", RequireAnonymous, member, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(tc.mw(tc.session))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestGuardPassesSnapshotToHandler(t *testing.T) {
	rec := serve(RequireAuthenticated(member))
	assert.Equal(t, "ada", rec.Body.String())
}

func TestGuardRedirects(t *testing.T) {
	rec := serve(RequireAuthenticated(signedOut, WithSignInRedirect("/login")))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = serve(RequireAnonymous(member, WithHomeRedirect("/")))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	// a forbidden admin route is not redirected to sign in
	rec = serve(RequireAdmin(member, WithSignInRedirect("/login")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardCustomRejectHandler(t *testing.T) {
	reject := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec := serve(RequireAdmin(member, WithRejectHandler(reject)))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestGuardWithoutSessionReader(t *testing.T) {
	rec := serve(Guard(nil, Authenticated))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
