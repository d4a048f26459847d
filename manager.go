package authclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/authclient/internal/audit"
	"github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/internal/logattr"
	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/session"
)

const (
	pathLogin              = "/auth/login"
	pathAdminLogin         = "/auth/admin/login"
	pathRegister           = "/auth/register"
	pathLogout             = "/auth/logout"
	pathRefresh            = "/auth/refresh"
	pathForgotPassword     = "/auth/forgot-password"
	pathResetPassword      = "/auth/reset-password"
	pathChangePassword     = "/auth/change-password"
	pathVerifyEmail        = "/auth/verify-email"
	pathResendVerification = "/auth/resend-verification"
	pathExportData         = "/auth/export-data"
	pathDeleteAccount      = "/auth/delete-account"
)

// Manager owns the client session. It is the only writer of the session and
// of its persisted copy; create one per process with a Builder and share it.
//
// Login, AdminLogin, Logout and RefreshTokens are serialized. Every change of
// credentials advances a generation counter, and results computed against an
// older generation are discarded, so a late response never resurrects or
// overwrites a newer session.
type Manager struct {
	config    Config
	store     session.Store
	gateway   *Gateway
	tokens    *jwt.Reader
	scheduler *refreshScheduler
	throttle  *actionThrottle
	metrics   *Metrics
	audit     *audit.Dispatcher
	log       *slog.Logger
	now       func() time.Time

	opMu         sync.Mutex
	refreshGroup singleflight.Group

	mu          sync.RWMutex
	state       sessionState
	generation  uint64
	pending     int
	persistSeq  uint64
	subscribers map[uint64]func(State)
	nextSubID   uint64

	persistMu    sync.Mutex
	persistedSeq uint64
	closed       atomic.Bool
	closeOnce    sync.Once
}

// State returns a copy of the current session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.view(m.config.Admin.Username, m.pending > 0)
}

// Credentials returns the current credential bundle. The zero value means
// anonymous.
func (m *Manager) Credentials() Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.creds
}

// Gateway returns the request gateway bound to this session, for calls to
// backend endpoints the Manager does not wrap.
func (m *Manager) Gateway() *Gateway {
	return m.gateway
}

// Subscribe registers fn to receive the session after every change. fn runs
// on the goroutine that made the change and must not block.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
		})
	}
}

// MetricsSnapshot returns a copy of the client counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped by a full buffer.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// Close stops the refresh schedule and flushes audit events. The session and
// its persisted copy are left as they are so the next process can resume.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.scheduler.Close()
		m.audit.Close()
	})
}

// InitializeAuth starts the refresh schedule when the session hydrated at
// build time is authenticated. It is idempotent.
func (m *Manager) InitializeAuth(ctx context.Context) {
	if m.closed.Load() {
		return
	}
	if !m.State().IsAuthenticated {
		return
	}
	if m.scheduler.Start() {
		m.log.InfoContext(ctx, "session resumed", logattr.Username(m.username()))
	}
}

/*
====================================
LOGIN
====================================
*/

type loginKind struct {
	op              string
	path            string
	requireUsername string
	successEvent    string
	failureEvent    string
	successMetric   MetricID
	failureMetric   MetricID
}

type loginBody struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type adminLoginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates with email and password and replaces the whole
// session. On any failure the session is reset to anonymous and State.Error
// holds a user-safe message.
func (m *Manager) Login(ctx context.Context, req LoginRequest) error {
	kind := loginKind{
		op:            "login",
		path:          pathLogin,
		successEvent:  AuditLoginSuccess,
		failureEvent:  AuditLoginFailure,
		successMetric: MetricLoginSuccess,
		failureMetric: MetricLoginFailure,
	}
	body := loginBody{Email: req.Email, Password: req.Password, RememberMe: req.Remember}
	return m.authenticate(ctx, kind, body, req.validate())
}

// AdminLogin authenticates the reserved administrator. Any other username is
// rejected with ErrInvalidCredentials before a request is sent, and a
// response for a different user is rejected as well.
func (m *Manager) AdminLogin(ctx context.Context, req AdminLoginRequest) error {
	kind := loginKind{
		op:              "admin_login",
		path:            pathAdminLogin,
		requireUsername: m.config.Admin.Username,
		successEvent:    AuditAdminLoginSuccess,
		failureEvent:    AuditAdminLoginFailure,
		successMetric:   MetricAdminLoginSuccess,
		failureMetric:   MetricAdminLoginFailure,
	}
	precheck := req.validate()
	if precheck == nil && !isAdminUsername(req.Username, m.config.Admin.Username) {
		precheck = ErrInvalidCredentials
	}
	body := adminLoginBody{Username: req.Username, Password: req.Password}
	return m.authenticate(ctx, kind, body, precheck)
}

func (m *Manager) authenticate(ctx context.Context, kind loginKind, body any, precheck error) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	done := m.track()
	defer done()

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if precheck != nil {
		m.failAuthentication(ctx, kind, precheck)
		return precheck
	}

	res := flows.RunLogin(ctx, body, flows.LoginDeps{
		Path:            kind.path,
		Send:            m.sender(true),
		Expiry:          m.expiryDeps(),
		RequireUsername: kind.requireUsername,
	})
	if res.Failure != flows.LoginFailureNone {
		err := loginError(res)
		m.failAuthentication(ctx, kind, err)
		return err
	}

	m.replaceSession(ctx, res.User, credentialsFromBundle(res.Bundle))
	m.metrics.Inc(kind.successMetric)
	m.emitAudit(ctx, kind.successEvent, true, res.User, nil, nil)
	m.log.InfoContext(ctx, "signed in", logattr.Operation(kind.op), logattr.Username(res.User.Username))

	if !m.scheduler.Start() {
		m.scheduler.Reschedule()
	}
	return nil
}

func (m *Manager) failAuthentication(ctx context.Context, kind loginKind, err error) {
	m.reset(ctx, 0, false, UserMessage(err))
	m.metrics.Inc(kind.failureMetric)
	m.emitAudit(ctx, kind.failureEvent, false, nil, err, nil)
	m.log.InfoContext(ctx, "sign in failed", logattr.Operation(kind.op), logattr.Error(err))
}

func loginError(res flows.LoginResult) error {
	switch res.Failure {
	case flows.LoginFailureTransport:
		return res.Err
	case flows.LoginFailureRejected:
		return &APIError{Status: res.Status, Kind: ErrInvalidCredentials}
	case flows.LoginFailureInvalidInput:
		return &APIError{Status: res.Status, Kind: ErrValidation}
	case flows.LoginFailureRateLimited:
		return &APIError{Status: res.Status, Kind: ErrRateLimited}
	case flows.LoginFailureNotAdmin:
		return ErrInvalidCredentials
	case flows.LoginFailureMalformed:
		return fmt.Errorf("%w: %v", ErrServer, res.Err)
	default:
		return statusError(res.Status)
	}
}

/*
====================================
REGISTER / LOGOUT
====================================
*/

type registerBody struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	PrivacyAccepted bool   `json:"privacy_accepted"`
}

// Register creates an account. It never signs in or changes the session.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if err := req.validate(); err != nil {
		return err
	}
	done := m.track()
	defer done()

	_, err := m.call(ctx, Request{
		Method: http.MethodPost,
		Path:   pathRegister,
		Body: registerBody{
			Email:           req.Email,
			Username:        req.Username,
			Password:        req.Password,
			PrivacyAccepted: req.PrivacyAccepted,
		},
		Anonymous: true,
	})
	if err != nil {
		m.metrics.Inc(MetricRegisterFailure)
		m.emitAudit(ctx, AuditRegister, false, nil, err, nil)
		return err
	}
	m.metrics.Inc(MetricRegisterSuccess)
	m.emitAudit(ctx, AuditRegister, true, nil, nil, nil)
	return nil
}

type refreshTokenBody struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout asks the backend to revoke the refresh token and then, whatever the
// outcome, resets the session to anonymous and clears the persisted copy.
func (m *Manager) Logout(ctx context.Context) {
	done := m.track()
	defer done()

	m.opMu.Lock()
	defer m.opMu.Unlock()

	creds, _ := m.requestCredentials()
	user := m.currentUser()
	if creds.RefreshToken != "" && !m.closed.Load() {
		resp, err := m.gateway.Do(ctx, Request{
			Method: http.MethodPost,
			Path:   pathLogout,
			Body:   refreshTokenBody{RefreshToken: creds.RefreshToken},
		})
		switch {
		case err != nil:
			m.log.WarnContext(ctx, "logout not acknowledged by backend", logattr.Error(err))
		case !resp.OK():
			m.log.WarnContext(ctx, "logout not acknowledged by backend", logattr.StatusCode(resp.StatusCode))
		}
	}

	m.reset(ctx, 0, false, "")
	m.metrics.Inc(MetricLogout)
	m.emitAudit(ctx, AuditLogout, true, user, nil, nil)
	m.log.InfoContext(ctx, "signed out", logattr.Username(usernameOf(user)))
}

/*
====================================
REFRESH
====================================
*/

// RefreshTokens exchanges the refresh token for a new credential bundle.
// Concurrent callers share one exchange. Any failure terminates the session
// and returns an error matching ErrSessionExpired.
func (m *Manager) RefreshTokens(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	// Rotated refresh tokens are single use, so the exchange is not
	// cancelled with the caller; the HTTP client timeout bounds it.
	_, err, shared := m.refreshGroup.Do("refresh", func() (any, error) {
		return nil, m.refreshOnce(context.WithoutCancel(ctx))
	})
	if shared {
		m.metrics.Inc(MetricRefreshCoalesced)
	}
	return err
}

func (m *Manager) refreshOnce(ctx context.Context) error {
	done := m.track()
	defer done()

	m.opMu.Lock()
	defer m.opMu.Unlock()

	creds, generation := m.requestCredentials()
	user := m.currentUser()
	if creds.RefreshToken == "" {
		// nothing to exchange; clear whatever is held or stored like Logout
		m.reset(ctx, 0, false, UserMessage(ErrSessionExpired))
		m.metrics.Inc(MetricRefreshFailure)
		return ErrSessionExpired
	}

	res := flows.RunRefresh(ctx, creds.RefreshToken, flows.RefreshDeps{
		Path:   pathRefresh,
		Send:   m.sender(false),
		Expiry: m.expiryDeps(),
	})
	if res.Failure != flows.RefreshFailureNone {
		err := refreshError(res)
		m.reset(ctx, generation, true, UserMessage(ErrSessionExpired))
		m.metrics.Inc(MetricRefreshFailure)
		m.emitAudit(ctx, AuditRefreshFailure, false, user, err, nil)
		m.log.WarnContext(ctx, "refresh failed, session terminated", logattr.Error(err))
		return err
	}

	if !m.applyRefresh(ctx, generation, res.User, credentialsFromBundle(res.Bundle)) {
		m.metrics.Inc(MetricStaleResultDiscarded)
		m.log.InfoContext(ctx, "refresh result discarded: session changed while in flight")
		return ErrSessionExpired
	}

	m.metrics.Inc(MetricRefreshSuccess)
	m.emitAudit(ctx, AuditRefreshSuccess, true, m.currentUser(), nil, nil)
	m.scheduler.Reschedule()
	return nil
}

func refreshError(res flows.RefreshResult) error {
	switch res.Failure {
	case flows.RefreshFailureMissingToken:
		return ErrSessionExpired
	case flows.RefreshFailureTransport:
		if errors.Is(res.Err, ErrSessionExpired) {
			return res.Err
		}
		return fmt.Errorf("%w: %w", ErrSessionExpired, res.Err)
	case flows.RefreshFailureRejected:
		return &APIError{Status: res.Status, Kind: ErrSessionExpired}
	case flows.RefreshFailureMalformed:
		return fmt.Errorf("%w: %w: %v", ErrSessionExpired, ErrServer, res.Err)
	default:
		return fmt.Errorf("%w: %w", ErrSessionExpired, statusError(res.Status))
	}
}

/*
====================================
DIRECT STATE EDITS
====================================
*/

// SetUser replaces the user record of an authenticated session and
// recomputes the admin flag.
func (m *Manager) SetUser(ctx context.Context, user *User) error {
	if user == nil {
		return invalid("user", "is required")
	}

	m.mu.Lock()
	authenticated, _ := derive(m.state.user, m.state.creds, m.config.Admin.Username)
	if !authenticated {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	m.state.user = user.Clone()
	seq, snap := m.persistPointLocked()
	m.mu.Unlock()

	m.persist(ctx, seq, snap)
	m.notify()
	return nil
}

// SetError stores a user-facing message in State.Error.
func (m *Manager) SetError(msg string) {
	m.mu.Lock()
	m.state.err = msg
	m.mu.Unlock()
	m.notify()
}

// ClearError empties State.Error.
func (m *Manager) ClearError() {
	m.SetError("")
}

// ForceTerminate ends the session if generation still identifies the current
// credentials, and reports whether it did. The Gateway calls it when the
// backend rejects the credentials it attached; it does not wait for an
// in-flight session operation.
func (m *Manager) ForceTerminate(ctx context.Context, generation uint64, reason string) bool {
	user := m.currentUser()
	if !m.reset(ctx, generation, true, UserMessage(ErrSessionExpired)) {
		return false
	}
	m.metrics.Inc(MetricForcedTermination)
	m.emitAudit(ctx, AuditForcedTermination, true, user, ErrSessionExpired, map[string]string{"reason": reason})
	m.log.WarnContext(ctx, "session terminated", logattr.Reason(reason), logattr.Username(usernameOf(user)))
	return true
}

/*
====================================
TRANSITIONS
====================================
*/

// replaceSession installs a new session unconditionally.
func (m *Manager) replaceSession(ctx context.Context, user *User, creds Credentials) {
	m.mu.Lock()
	m.state = sessionState{user: user.Clone(), creds: creds}
	m.generation++
	seq, snap := m.persistPointLocked()
	m.mu.Unlock()

	m.persist(ctx, seq, snap)
	m.notify()
}

// applyRefresh installs rotated credentials if the session is still the one
// the refresh started from.
func (m *Manager) applyRefresh(ctx context.Context, generation uint64, user *User, creds Credentials) bool {
	m.mu.Lock()
	if m.generation != generation || m.state.user == nil {
		m.mu.Unlock()
		return false
	}
	m.state.creds = creds
	if user != nil {
		m.state.user = user.Clone()
	}
	m.generation++
	seq, snap := m.persistPointLocked()
	m.mu.Unlock()

	m.persist(ctx, seq, snap)
	m.notify()
	return true
}

// reset makes the session anonymous with errMsg as State.Error, clears the
// store and stops the schedule. With guarded set it only acts when
// generation is current.
func (m *Manager) reset(ctx context.Context, generation uint64, guarded bool, errMsg string) bool {
	m.mu.Lock()
	if guarded && m.generation != generation {
		m.mu.Unlock()
		return false
	}
	m.state = sessionState{err: errMsg}
	m.generation++
	seq, snap := m.persistPointLocked()
	m.mu.Unlock()

	m.scheduler.Stop()
	m.persist(ctx, seq, snap)
	m.notify()
	return true
}

// persistPointLocked orders a write of the current session. m.mu must be
// held.
func (m *Manager) persistPointLocked() (uint64, *session.Snapshot) {
	m.persistSeq++
	return m.persistSeq, m.state.snapshot(m.config.Admin.Username)
}

// persist writes snap, or clears the store for nil, unless a newer write has
// already landed. Store failures are logged, never returned.
func (m *Manager) persist(ctx context.Context, seq uint64, snap *session.Snapshot) {
	ctx = context.WithoutCancel(ctx)

	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	if seq <= m.persistedSeq {
		return
	}
	m.persistedSeq = seq

	var err error
	if snap == nil {
		err = m.store.Clear(ctx)
	} else {
		err = m.store.Save(ctx, snap)
	}
	if err != nil {
		m.metrics.Inc(MetricStoreWriteFailure)
		m.log.ErrorContext(ctx, "persist session failed", logattr.Error(err))
	}
}

func (m *Manager) notify() {
	m.mu.RLock()
	if len(m.subscribers) == 0 {
		m.mu.RUnlock()
		return
	}
	st := m.state.view(m.config.Admin.Username, m.pending > 0)
	subs := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(st)
	}
}

// track marks a session operation in flight for State.IsLoading.
func (m *Manager) track() func() {
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()
	m.notify()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.pending--
			m.mu.Unlock()
			m.notify()
		})
	}
}

/*
====================================
HYDRATION
====================================
*/

// hydrate loads the persisted session once at build time. Unusable records
// are cleared; an unreachable store leaves the session anonymous.
func (m *Manager) hydrate(ctx context.Context) {
	snap, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return
	case errors.Is(err, session.ErrStoreUnavailable):
		m.log.WarnContext(ctx, "session store unavailable, starting anonymous", logattr.Error(err))
		return
	case err != nil:
		m.discardPersisted(ctx, err)
		return
	}

	st, ok := stateFromSnapshot(snap)
	if !ok {
		m.discardPersisted(ctx, session.ErrPartialCredentials)
		return
	}
	if st.user == nil {
		return
	}
	if st.creds.ExpiresAt.IsZero() {
		if exp, err := m.tokenExpiry(st.creds.AccessToken); err == nil {
			st.creds.ExpiresAt = exp.UTC()
		}
	}

	m.mu.Lock()
	m.state = st
	m.generation++
	m.mu.Unlock()

	m.metrics.Inc(MetricSessionHydrated)
	m.emitAudit(ctx, AuditSessionHydrated, true, st.user, nil, nil)
	m.log.InfoContext(ctx, "session restored", logattr.Username(st.user.Username))
}

func (m *Manager) discardPersisted(ctx context.Context, cause error) {
	m.metrics.Inc(MetricSessionDiscarded)
	m.emitAudit(ctx, AuditSessionDiscarded, false, nil, nil, map[string]string{"cause": cause.Error()})
	m.log.WarnContext(ctx, "discarding unusable persisted session", logattr.Error(cause))
	if err := m.store.Clear(ctx); err != nil {
		m.log.WarnContext(ctx, "clear persisted session failed", logattr.Error(err))
	}
}

/*
====================================
HELPERS
====================================
*/

func (m *Manager) requestCredentials() (Credentials, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.creds, m.generation
}

func (m *Manager) currentUser() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.user.Clone()
}

func (m *Manager) username() string {
	return usernameOf(m.currentUser())
}

// scheduleExpiry feeds the refresh scheduler.
func (m *Manager) scheduleExpiry() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	authenticated, _ := derive(m.state.user, m.state.creds, m.config.Admin.Username)
	return m.state.creds.ExpiresAt, authenticated
}

func (m *Manager) tokenExpiry(accessToken string) (time.Time, error) {
	return m.tokens.ExpiresAt(accessToken)
}

func (m *Manager) expiryDeps() flows.ExpiryDeps {
	return flows.ExpiryDeps{Now: m.now, TokenExpiry: m.tokenExpiry}
}

// sender adapts the Gateway to the flows package.
func (m *Manager) sender(anonymous bool) flows.Sender {
	return func(ctx context.Context, path string, body any) (flows.Exchange, error) {
		resp, err := m.gateway.Do(ctx, Request{
			Method:    http.MethodPost,
			Path:      path,
			Body:      body,
			Anonymous: anonymous,
		})
		if err != nil {
			return flows.Exchange{}, err
		}
		return flows.Exchange{Status: resp.StatusCode, Body: resp.Body}, nil
	}
}

// call sends req and maps non-2xx statuses to typed errors.
func (m *Manager) call(ctx context.Context, req Request) (*Response, error) {
	resp, err := m.gateway.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError(resp.StatusCode)
	}
	return resp, nil
}

func credentialsFromBundle(b flows.Bundle) Credentials {
	return Credentials{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		CSRFToken:    b.CSRFToken,
		ExpiresAt:    b.ExpiresAt,
	}
}

func usernameOf(u *User) string {
	if u == nil {
		return ""
	}
	return u.Username
}
