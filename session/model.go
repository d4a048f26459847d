package session

import "time"

// Profile is the progress snapshot embedded in a user record.
type Profile struct {
	XP             int `json:"xp"`
	Level          int `json:"level"`
	Streak         int `json:"streak"`
	CompletedCount int `json:"completed_count"`
}

// User is the client's read replica of the backend user record.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	LastLogin  time.Time `json:"last_login"`
	Profile    *Profile  `json:"profile,omitempty"`
}

// Clone returns a deep copy of u. A nil receiver yields nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Profile != nil {
		p := *u.Profile
		out.Profile = &p
	}
	return &out
}

// Snapshot is the durable subset of a client session.
//
// IsAuthenticated and IsAdmin are persisted for compatibility with other
// readers of the record; the Manager recomputes both on hydration.
type Snapshot struct {
	Version         int       `json:"version"`
	User            *User     `json:"user"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	CSRFToken       string    `json:"csrf_token"`
	ExpiresAt       time.Time `json:"expires_at,omitzero"`
	IsAuthenticated bool      `json:"is_authenticated"`
	IsAdmin         bool      `json:"is_admin"`
}

// Anonymous reports whether the snapshot carries no credentials at all.
func (s *Snapshot) Anonymous() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.CSRFToken == ""
}

// Complete reports whether all three tokens are present.
func (s *Snapshot) Complete() bool {
	return s.AccessToken != "" && s.RefreshToken != "" && s.CSRFToken != ""
}
