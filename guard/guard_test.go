package guard_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenty/portal/guard"
	"github.com/zenty/portal/sessions"
	"github.com/zenty/portal/users"
)

func session(status sessions.Status, role users.Role) sessions.Session {
	s := sessions.Session{Status: status}
	switch role {
	case users.RoleCustomer:
		s.Role, s.Credential, s.Customer = role, "T", &users.Customer{ID: "u1"}
	case users.RoleMerchant:
		s.Role, s.Credential, s.Merchant = role, "T", &users.Merchant{ID: "m1"}
	}
	return s
}

func TestEvaluate_Table(t *testing.T) {
	render := guard.Decision{Action: guard.Render}
	loading := guard.Decision{Action: guard.Loading}
	redirect := func(to string) guard.Decision { return guard.Decision{Action: guard.Redirect, Location: to} }

	requirements := []guard.Requirement{guard.Public, guard.Authenticated, guard.Customer, guard.Merchant}
	identities := []users.Role{"", users.RoleCustomer, users.RoleMerchant}

	// Whatever the identity, a resolving session shows the loading state
	for _, role := range identities {
		for _, req := range requirements {
			require.Equal(t, loading, guard.Evaluate(session(sessions.StatusResolving, role), req), "resolving/%q/%s", role, req)
		}
	}

	expected := map[users.Role]map[guard.Requirement]guard.Decision{
		"": {
			guard.Public:        render,
			guard.Authenticated: redirect("/"),
			guard.Customer:      redirect("/"),
			guard.Merchant:      redirect("/"),
		},
		users.RoleCustomer: {
			guard.Public:        render,
			guard.Authenticated: render,
			guard.Customer:      render,
			guard.Merchant:      redirect("/dashboard"),
		},
		users.RoleMerchant: {
			guard.Public:        render,
			guard.Authenticated: render,
			guard.Customer:      redirect("/merchant/dashboard"),
			guard.Merchant:      render,
		},
	}

	for _, role := range identities {
		for _, req := range requirements {
			t.Run(fmt.Sprintf("resolved/%q/%s", role, req), func(t *testing.T) {
				got := guard.Evaluate(session(sessions.StatusResolved, role), req)
				require.Equal(t, expected[role][req], got)
			})
		}
	}
}

func TestEvaluate_MerchantOnCustomerPage(t *testing.T) {
	d := guard.Evaluate(session(sessions.StatusResolved, users.RoleMerchant), guard.Customer)
	require.Equal(t, guard.Redirect, d.Action)
	require.Equal(t, "/merchant/dashboard", d.Location)
}

func TestUnmatched(t *testing.T) {
	require.Equal(t, guard.Decision{Action: guard.Redirect, Location: "/"}, guard.Unmatched())
}

func TestLandingFor(t *testing.T) {
	require.Equal(t, "/dashboard", guard.LandingFor(users.RoleCustomer))
	require.Equal(t, "/merchant/dashboard", guard.LandingFor(users.RoleMerchant))
	require.Equal(t, "/", guard.LandingFor(""))
}
