// Package guard decides whether a page may render for the current session.
package guard

import (
	"github.com/zenty/portal/sessions"
	"github.com/zenty/portal/users"
)

// Requirement is the access level a page declares.
type Requirement string

const (
	Public        Requirement = "public"
	Authenticated Requirement = "authenticated"
	Customer      Requirement = "customer"
	Merchant      Requirement = "merchant"
)

// Landing pages
const (
	Home              = "/"
	CustomerLanding   = "/dashboard"
	MerchantLanding   = "/merchant/dashboard"
	unknownPathTarget = Home
)

type Action string

const (
	Render   Action = "render"
	Loading  Action = "loading"
	Redirect Action = "redirect"
)

// Decision is the outcome of a guard evaluation. Location is set for Redirect only.
type Decision struct {
	Action   Action
	Location string
}

// Evaluate applies the access table. It is pure; callers evaluate on every navigation.
func Evaluate(s sessions.Session, req Requirement) Decision {
	if !s.Resolved() {
		return Decision{Action: Loading}
	}
	if req == Public {
		return Decision{Action: Render}
	}
	if !s.Authenticated() {
		return Decision{Action: Redirect, Location: Home}
	}
	if req == Authenticated {
		return Decision{Action: Render}
	}
	if string(req) != s.Role.String() {
		return Decision{Action: Redirect, Location: LandingFor(s.Role)}
	}
	return Decision{Action: Render}
}

// Unmatched is the decision for a path no page claims.
func Unmatched() Decision {
	return Decision{Action: Redirect, Location: unknownPathTarget}
}

// LandingFor returns the home page of a role.
func LandingFor(role users.Role) string {
	switch role {
	case users.RoleCustomer:
		return CustomerLanding
	case users.RoleMerchant:
		return MerchantLanding
	}
	return Home
}
