package models

import (
	"encoding/json"
	"strings"
)

// AuthScheme discriminates the two credential schemes a session can use.
type AuthScheme string

const (
	SchemeToken  AuthScheme = "TOKEN"
	SchemeLegacy AuthScheme = "LEGACY"
)

// AdminAuthority is the authority granted to administrators under the
// token scheme.
const AdminAuthority = "ROLE_ADMIN"

// Session identifies the current actor. Exactly one scheme is active; the
// fields belonging to the other scheme stay empty. An anonymous actor is
// represented by a nil *Session.
type Session struct {
	Scheme   AuthScheme
	Username string
	UserID   string

	// Token and Authorities are set only under SchemeToken.
	Token       string
	Authorities []string

	// Role is set only under SchemeLegacy.
	Role string
}

// IsAdmin reports whether the actor may triage issues.
func (s *Session) IsAdmin() bool {
	if s == nil {
		return false
	}
	switch s.Scheme {
	case SchemeToken:
		for _, a := range s.Authorities {
			if a == AdminAuthority {
				return true
			}
		}
		return false
	case SchemeLegacy:
		return strings.EqualFold(s.Role, "admin")
	default:
		return false
	}
}

// Clone returns a deep copy so callers can hold it without sharing the
// authority slice with the store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Authorities = append([]string(nil), s.Authorities...)
	return &c
}

// AuthResult is the backend response to a successful login.
type AuthResult struct {
	Token       string      `json:"token"`
	Username    string      `json:"username"`
	Authorities Authorities `json:"authorities"`
}

// Authorities decodes either ["ROLE_X"] or [{"authority":"ROLE_X"}].
type Authorities []string

func (a *Authorities) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Authority string `json:"authority"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return err
		}
		out = append(out, obj.Authority)
	}
	*a = out
	return nil
}

// LegacyUser is a user record kept in local storage by the legacy scheme.
// Older records carry a plain Password; records written by this client
// carry a bcrypt PasswordHash instead.
type LegacyUser struct {
	ID           FlexID `json:"id,omitempty"`
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Role         string `json:"role,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
}

// RegisterRequest is the payload for backend registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// FlexID is an identifier that may arrive as a JSON string or number.
// Numbers are kept in their decimal text form so ids compare as strings.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}
