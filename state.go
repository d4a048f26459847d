package authclient

import "github.com/MrEthical07/authclient/session"

// sessionState is the Manager's authoritative session. It is only touched
// with Manager.mu held.
type sessionState struct {
	user  *User
	creds Credentials
	err   string
}

// derive computes the derived flags. It is the only place they are set.
func derive(user *User, creds Credentials, adminUsername string) (authenticated, admin bool) {
	if user == nil {
		return false, false
	}
	authenticated = creds.AccessToken != ""
	admin = isAdminUsername(user.Username, adminUsername)
	return authenticated, admin
}

func isAdminUsername(username, adminUsername string) bool {
	return adminUsername != "" && username == adminUsername
}

func (s *sessionState) view(adminUsername string, loading bool) State {
	authenticated, admin := derive(s.user, s.creds, adminUsername)
	return State{
		User:            s.user.Clone(),
		Credentials:     s.creds,
		IsAuthenticated: authenticated,
		IsAdmin:         admin,
		IsLoading:       loading,
		Error:           s.err,
	}
}

// snapshot returns the durable form of s, or nil when s is anonymous and the
// store should be cleared.
func (s *sessionState) snapshot(adminUsername string) *session.Snapshot {
	if s.user == nil || !s.creds.Complete() {
		return nil
	}
	authenticated, admin := derive(s.user, s.creds, adminUsername)
	return &session.Snapshot{
		User:            s.user.Clone(),
		AccessToken:     s.creds.AccessToken,
		RefreshToken:    s.creds.RefreshToken,
		CSRFToken:       s.creds.CSRFToken,
		ExpiresAt:       s.creds.ExpiresAt,
		IsAuthenticated: authenticated,
		IsAdmin:         admin,
	}
}

// stateFromSnapshot rebuilds a session from storage. Stored flags are
// ignored; ok is false when the record cannot represent a usable session.
func stateFromSnapshot(snap *session.Snapshot) (sessionState, bool) {
	if snap == nil || snap.Anonymous() {
		return sessionState{}, true
	}
	if !snap.Complete() || snap.User == nil {
		return sessionState{}, false
	}
	return sessionState{
		user: snap.User.Clone(),
		creds: Credentials{
			AccessToken:  snap.AccessToken,
			RefreshToken: snap.RefreshToken,
			CSRFToken:    snap.CSRFToken,
			ExpiresAt:    snap.ExpiresAt,
		},
	}, true
}
