package auth

import "github.com/dukerupert/roomboard/internal/model"

// RouteKind classifies a route for the gate.
type RouteKind int

const (
	// Public routes are for signed-out visitors (login, register).
	Public RouteKind = iota
	Protected
	Admin
)

func (k RouteKind) String() string {
	switch k {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Admin:
		return "admin"
	}
	return "unknown"
}

type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectHome
	RedirectUnauthorized
)

// Location is the redirect target of d, or "" for Allow.
func (d Decision) Location() string {
	switch d {
	case RedirectLogin:
		return "/login"
	case RedirectHome:
		return "/dashboard"
	case RedirectUnauthorized:
		return "/unauthorized"
	}
	return ""
}

// State is what the gate knows about the visitor.
type State struct {
	Authenticated bool
	Role          model.Role
}

// Gate decides whether a visitor may see a route.
type Gate struct {
	enforceAdmin bool
}

// NewGate returns a gate. With enforceAdmin false, admin routes only
// require a signed-in user.
func NewGate(enforceAdmin bool) Gate {
	return Gate{enforceAdmin: enforceAdmin}
}

func (g Gate) EnforcesAdmin() bool {
	return g.enforceAdmin
}

func (g Gate) Decide(kind RouteKind, st State) Decision {
	switch kind {
	case Public:
		if st.Authenticated {
			return RedirectHome
		}
		return Allow
	case Protected:
		if !st.Authenticated {
			return RedirectLogin
		}
		return Allow
	case Admin:
		if !st.Authenticated {
			return RedirectLogin
		}
		if g.enforceAdmin && st.Role != model.RoleAdmin {
			return RedirectUnauthorized
		}
		return Allow
	}
	return RedirectLogin
}
