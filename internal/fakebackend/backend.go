package fakebackend

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ExpiryMode selects how auth responses report the access token expiry.
type ExpiryMode int

const (
	// ExpiresIn sends a relative lifetime in seconds.
	ExpiresIn ExpiryMode = iota
	// ExpiresAt sends an absolute timestamp.
	ExpiresAt
	// TokenOnly sends nothing; the expiry is only in the token's exp claim.
	TokenOnly
)

// Config configures a Backend. Zero fields take the defaults of New.
type Config struct {
	Secret        []byte
	Issuer        string
	AccessTTL     time.Duration
	AdminUsername string
	AdminPassword string
	Expiry        ExpiryMode
	Now           func() time.Time
}

// Call is one recorded request.
type Call struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Account is a backend user. Password is only read by AddAccount, which
// stores it as PasswordHash.
type Account struct {
	ID           string
	Email        string
	Username     string
	Password     string
	PasswordHash string
	Verified     bool
	CreatedAt time.Time
	LastLogin time.Time
}

type family struct {
	email   string
	hash    [32]byte
	csrf    string
	revoked bool
}

type grant struct {
	email string
	hash  [32]byte
}

type cannedResponse struct {
	status int
	body   []byte
}

type hold struct {
	entered chan struct{}
	release chan struct{}
}

// Backend is an http.Handler serving the auth endpoints.
type Backend struct {
	cfg Config
	mux *http.ServeMux

	mu            sync.Mutex
	accounts      map[string]*Account
	families      map[string]*family
	resets        map[string]grant
	verifications map[string]grant
	calls         []Call
	canned        map[string][]cannedResponse
	sticky        map[string]cannedResponse
	delays        map[string]time.Duration
	holds         map[string]*hold
}

// New returns a Backend with an administrator account already registered.
func New(cfg Config) *Backend {
	if len(cfg.Secret) == 0 {
		cfg.Secret = []byte("fakebackend-signing-secret")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "fakebackend"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "admin"
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin-password"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	b := &Backend{
		cfg:           cfg,
		accounts:      make(map[string]*Account),
		families:      make(map[string]*family),
		resets:        make(map[string]grant),
		verifications: make(map[string]grant),
		canned:        make(map[string][]cannedResponse),
		sticky:        make(map[string]cannedResponse),
		delays:        make(map[string]time.Duration),
		holds:         make(map[string]*hold),
	}
	b.AddAccount(Account{
		Email:    cfg.AdminUsername + "@example.com",
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Verified: true,
	})
	b.routes()
	return b
}

// Secret returns the access token signing secret.
func (b *Backend) Secret() []byte {
	return b.cfg.Secret
}

// AddAccount registers acct. A missing ID is generated. It panics when the
// password cannot be hashed.
func (b *Backend) AddAccount(acct Account) Account {
	if acct.PasswordHash == "" {
		encoded, err := hashPassword(acct.Password)
		if err != nil {
			panic("fakebackend: hash password: " + err.Error())
		}
		acct.PasswordHash = encoded
	}
	acct.Password = ""
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = b.cfg.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := acct
	b.accounts[strings.ToLower(acct.Email)] = &stored
	return stored
}

// Account returns a copy of the account registered under email.
func (b *Backend) Account(email string) (Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[strings.ToLower(email)]
	if !ok {
		return Account{}, false
	}
	return *acct, true
}

// CheckPassword reports whether password is the current password of the
// account registered under email.
func (b *Backend) CheckPassword(email, password string) bool {
	acct, ok := b.Account(email)
	return ok && passwordMatches(password, acct.PasswordHash)
}

// IssueResetToken creates a password reset token for email, as the reset
// e-mail would carry.
func (b *Backend) IssueResetToken(email string) (string, error) {
	return b.issueGrant(b.resets, email)
}

// IssueVerificationToken creates an e-mail verification token for email.
func (b *Backend) IssueVerificationToken(email string) (string, error) {
	return b.issueGrant(b.verifications, email)
}

func (b *Backend) issueGrant(into map[string]grant, email string) (string, error) {
	id, err := newOpaqueID()
	if err != nil {
		return "", err
	}
	token, hash, err := mintOpaque(id)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[strings.ToLower(email)]; !ok {
		return "", errors.New("unknown account")
	}
	into[id.String()] = grant{email: strings.ToLower(email), hash: hash}
	return token, nil
}

// RevokeAll revokes every refresh family, as a server-side sign out would.
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range b.families {
		f.revoked = true
	}
}

/*
====================================
FAULT INJECTION
====================================
*/

// RespondNext makes the next request to path answer status with body instead
// of being handled. Calls queue up.
func (b *Backend) RespondNext(path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.canned[path] = append(b.canned[path], cannedResponse{status: status, body: []byte(body)})
}

// FailNext makes the next request to path answer status with an error body.
func (b *Backend) FailNext(path string, status int) {
	b.RespondNext(path, status, `{"error":"`+http.StatusText(status)+`"}`)
}

// FailAlways makes every request to path answer status until ClearFailures.
func (b *Backend) FailAlways(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sticky[path] = cannedResponse{status: status, body: []byte(`{"error":"` + http.StatusText(status) + `"}`)}
}

// ClearFailures drops every queued and persistent injected response.
func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.canned = make(map[string][]cannedResponse)
	b.sticky = make(map[string]cannedResponse)
}

// SetDelay delays every request to path by d, or until the request is
// cancelled.
func (b *Backend) SetDelay(path string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[path] = d
}

// Hold parks the next request to path before it is handled. entered is
// closed once the request arrives; release lets it continue.
func (b *Backend) Hold(path string) (entered <-chan struct{}, release func()) {
	h := &hold{entered: make(chan struct{}), release: make(chan struct{})}
	b.mu.Lock()
	b.holds[path] = h
	b.mu.Unlock()

	var once sync.Once
	return h.entered, func() { once.Do(func() { close(h.release) }) }
}

/*
====================================
CALL LOG
====================================
*/

// Calls returns the number of requests received for path.
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Path == path {
			n++
		}
	}
	return n
}

// TotalCalls returns the number of requests received.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

// LastCall returns the most recent request for path.
func (b *Backend) LastCall(path string) (Call, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.calls) - 1; i >= 0; i-- {
		if b.calls[i].Path == path {
			return b.calls[i], true
		}
	}
	return Call{}, false
}

// ServeHTTP records the request, applies injected behaviour and dispatches
// to the endpoint handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	r.Body = io.NopCloser(bytes.NewReader(body))

	b.mu.Lock()
	b.calls = append(b.calls, Call{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
	delay := b.delays[r.URL.Path]
	h := b.holds[r.URL.Path]
	delete(b.holds, r.URL.Path)
	b.mu.Unlock()

	if h != nil {
		close(h.entered)
		select {
		case <-h.release:
		case <-r.Context().Done():
			return
		}
	}
	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-r.Context().Done():
			t.Stop()
			return
		}
	}

	if canned, ok := b.takeCanned(r.URL.Path); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(canned.status)
		_, _ = w.Write(canned.body)
		return
	}
	b.mux.ServeHTTP(w, r)
}

func (b *Backend) takeCanned(path string) (cannedResponse, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if queue := b.canned[path]; len(queue) > 0 {
		b.canned[path] = queue[1:]
		return queue[0], true
	}
	c, ok := b.sticky[path]
	return c, ok
}
