package authclient

import (
	"context"
	"sync"
)

// OperationStatus is the observable state of one Operation.
type OperationStatus struct {
	Loading bool
	// Error is a user-safe message from UserMessage.
	Error   string
	Success bool
}

// Operation wraps one action with loading, error and success bookkeeping for
// a UI collaborator. When invocations overlap, the status reflects the most
// recent one.
type Operation[Req, Res any] struct {
	fn func(context.Context, Req) (Res, error)

	mu       sync.Mutex
	seq      uint64
	status   OperationStatus
	onChange func(OperationStatus)
}

// NewOperation wraps fn.
func NewOperation[Req, Res any](fn func(context.Context, Req) (Res, error)) *Operation[Req, Res] {
	return &Operation[Req, Res]{fn: fn}
}

// Do runs the action. The error is returned unchanged; Status carries its
// user-safe message.
func (o *Operation[Req, Res]) Do(ctx context.Context, req Req) (Res, error) {
	o.mu.Lock()
	o.seq++
	seq := o.seq
	o.status = OperationStatus{Loading: true}
	o.mu.Unlock()
	o.changed()

	res, err := o.fn(ctx, req)

	o.mu.Lock()
	if seq != o.seq {
		// superseded by a newer invocation or a Reset
		o.mu.Unlock()
		return res, err
	}
	if err != nil {
		o.status = OperationStatus{Error: UserMessage(err)}
	} else {
		o.status = OperationStatus{Success: true}
	}
	o.mu.Unlock()
	o.changed()

	return res, err
}

func (o *Operation[Req, Res]) Status() OperationStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Reset clears the status. Invocations still in flight no longer update it.
// The session is not touched.
func (o *Operation[Req, Res]) Reset() {
	o.mu.Lock()
	o.seq++
	o.status = OperationStatus{}
	o.mu.Unlock()
	o.changed()
}

// OnChange registers a listener called after every status change. It
// replaces any previous listener.
func (o *Operation[Req, Res]) OnChange(fn func(OperationStatus)) {
	o.mu.Lock()
	o.onChange = fn
	o.mu.Unlock()
}

func (o *Operation[Req, Res]) changed() {
	o.mu.Lock()
	fn := o.onChange
	st := o.status
	o.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// None is the request or result type of actions that take or return nothing.
type None = struct{}

// Operations bundles one Operation per user-facing action of a Manager.
type Operations struct {
	Login              *Operation[LoginRequest, None]
	AdminLogin         *Operation[AdminLoginRequest, None]
	Register           *Operation[RegisterRequest, None]
	Logout             *Operation[None, None]
	Refresh            *Operation[None, None]
	ForgotPassword     *Operation[string, None]
	ResetPassword      *Operation[ResetPasswordRequest, None]
	ChangePassword     *Operation[ChangePasswordRequest, None]
	VerifyEmail        *Operation[string, None]
	ResendVerification *Operation[string, None]
	ExportData         *Operation[None, []byte]
	DeleteAccount      *Operation[string, None]
}

// NewOperations binds a facade to m.
func NewOperations(m *Manager) *Operations {
	return &Operations{
		Login:      NewOperation(noResult(m.Login)),
		AdminLogin: NewOperation(noResult(m.AdminLogin)),
		Register:   NewOperation(noResult(m.Register)),
		Logout: NewOperation(func(ctx context.Context, _ None) (None, error) {
			m.Logout(ctx)
			return None{}, nil
		}),
		Refresh: NewOperation(func(ctx context.Context, _ None) (None, error) {
			return None{}, m.RefreshTokens(ctx)
		}),
		ForgotPassword:     NewOperation(noResult(m.ForgotPassword)),
		ResetPassword:      NewOperation(noResult(m.ResetPassword)),
		ChangePassword:     NewOperation(noResult(m.ChangePassword)),
		VerifyEmail:        NewOperation(noResult(m.VerifyEmail)),
		ResendVerification: NewOperation(noResult(m.ResendVerification)),
		ExportData: NewOperation(func(ctx context.Context, _ None) ([]byte, error) {
			return m.ExportData(ctx)
		}),
		DeleteAccount: NewOperation(noResult(m.DeleteAccount)),
	}
}

// ResetAll clears every operation status.
func (ops *Operations) ResetAll() {
	ops.Login.Reset()
	ops.AdminLogin.Reset()
	ops.Register.Reset()
	ops.Logout.Reset()
	ops.Refresh.Reset()
	ops.ForgotPassword.Reset()
	ops.ResetPassword.Reset()
	ops.ChangePassword.Reset()
	ops.VerifyEmail.Reset()
	ops.ResendVerification.Reset()
	ops.ExportData.Reset()
	ops.DeleteAccount.Reset()
}

func noResult[Req any](fn func(context.Context, Req) error) func(context.Context, Req) (None, error) {
	return func(ctx context.Context, req Req) (None, error) {
		return None{}, fn(ctx, req)
	}
}
