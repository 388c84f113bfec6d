package domain

import "time"

// Token is an opaque bearer credential. Its validity is only ever learned by
// using it against the identity API.
type Token string

// SessionState is the console's cached answer to "who is the current user".
type SessionState struct {
	User      *User
	IsLoading bool
	Err       error
	// ResolvedAt is the completion time of the last applied resolution.
	ResolvedAt time.Time
}

// Authenticated reports whether a user is resolved.
func (s SessionState) Authenticated() bool { return s.User != nil }

// WindowsLogin is the implicit identity answer: a freshly minted token plus the user.
type WindowsLogin struct {
	WindowsUser string `json:"windows_user"`
	AuthMode    string `json:"auth_mode"`
	Token       Token  `json:"token"`
	User        *User  `json:"user"`
}

// AuthEvent is an audit record of an authentication attempt.
type AuthEvent struct {
	Type      AuthEventType
	Username  string
	UserID    UserID
	Success   bool
	Reason    string
	Timestamp time.Time
}

type AuthEventType string

const (
	EventLoginPassword    AuthEventType = "login_password"
	EventLoginWindows     AuthEventType = "login_windows"
	EventRegister         AuthEventType = "register"
	EventWindowsProvision AuthEventType = "windows_provision"
)
