package session

import (
	"encoding/json"

	"github.com/distcompute/dcctl/pkg/client"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	Id    client.ID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

// UnmarshalJSON accepts "username" as an alias of "name" and defaults the role to RoleUser.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var raw struct {
		plain
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.plain)
	if u.Name == "" {
		u.Name = raw.Username
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session is an immutable snapshot of the authenticated identity.
type Session struct {
	User User
	// Credential is the opaque token presented to the backend.
	Credential client.Token
}

type State int

const (
	// StateUnknown holds until the first session check completes. It is never re-entered.
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// View is where the user should be taken after an operation.
type View string

const (
	ViewNone      View = ""
	ViewHome      View = "home"
	ViewLogin     View = "login"
	ViewDashboard View = "dashboard"
)

// Result is the outcome of a login, register or logout. Failures carry a human readable message.
type Result struct {
	OK      bool
	Message string
	Next    View
	Session *Session
}

type EventKind string

const (
	EventLoginSucceeded     EventKind = "login_succeeded"
	EventLoginFailed        EventKind = "login_failed"
	EventRegistered         EventKind = "registered"
	EventRegisterFailed     EventKind = "register_failed"
	EventLoggedOut          EventKind = "logged_out"
	EventSessionInvalidated EventKind = "session_invalidated"
)

// Event is emitted for every state-changing operation, typically rendered as a notification.
type Event struct {
	Kind    EventKind
	Message string
}

type Observer func(Event)
