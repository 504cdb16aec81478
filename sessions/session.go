package sessions

import (
	"github.com/zenty/portal/users"
)

// Status of a Store's one-time rehydration.
type Status string

const (
	StatusResolving Status = "resolving" // Rehydration has not finished
	StatusResolved  Status = "resolved"
)

// Session is an immutable view of a device's authentication state.
// Exactly one of Customer and Merchant is set when Role is set.
type Session struct {
	Status     Status
	Role       users.Role // Empty when anonymous
	Credential string     // Bearer token, empty when anonymous
	Customer   *users.Customer
	Merchant   *users.Merchant
}

// Resolved reports whether rehydration has finished.
func (s Session) Resolved() bool {
	return s.Status == StatusResolved
}

// Authenticated reports whether an identity is present.
func (s Session) Authenticated() bool {
	return s.Identity() != nil
}

// Identity returns the Customer or Merchant, or nil when anonymous.
func (s Session) Identity() users.Identity {
	switch {
	case s.Customer != nil:
		return s.Customer
	case s.Merchant != nil:
		return s.Merchant
	}
	return nil
}

// clone deep copies the identity so callers cannot reach the Store's state.
func (s Session) clone() Session {
	out := s
	if s.Customer != nil {
		c := *s.Customer
		out.Customer = &c
	}
	if s.Merchant != nil {
		m := *s.Merchant
		out.Merchant = &m
	}
	return out
}

// anonymous keeps the status and drops everything else.
func (s Session) anonymous() Session {
	return Session{Status: s.Status}
}
