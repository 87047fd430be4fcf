// Package guard decides whether a request may reach a protected route.
//
// The decision is a pure function of an explicit auth.Session and the
// route's declared requirements; the HTTP middleware applies it to a route
// and every route mounted below it and performs the redirect on denial.
package guard

import (
	"net/http"
	"slices"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/server/auth"
)

// Route is the access metadata a protected route declares. A nil or empty
// list disables the corresponding check.
type Route struct {
	Roles       []string
	Permissions []string
}

// Reasons attached to decisions.
const (
	ReasonAllowed         = "allowed"
	ReasonUnauthenticated = "unauthenticated"
	ReasonRole            = "role"
	ReasonPermission      = "permission"
)

// Decision is the outcome of a check. Redirect is set whenever Allowed is
// false.
type Decision struct {
	Allowed  bool
	Redirect string
	Reason   string
}

// Recorder observes decisions, e.g. to count denials.
type Recorder interface {
	GuardDecision(reason string)
}

// Guard holds the redirect targets used on denial.
type Guard struct {
	signInPath       string
	unauthorizedPath string
	recorder         Recorder
}

// New builds a Guard. recorder may be nil.
func New(signInPath, unauthorizedPath string, recorder Recorder) *Guard {
	return &Guard{signInPath: signInPath, unauthorizedPath: unauthorizedPath, recorder: recorder}
}

// Check evaluates route against the session.
//
// Permission-level granularity is not enforced yet: when a route declares
// permissions, only the admin role passes.
func (g *Guard) Check(s auth.Session, route Route) Decision {
	if !s.Authenticated() {
		return Decision{Redirect: g.signInPath, Reason: ReasonUnauthenticated}
	}

	role := s.Identity.PrimaryRole()

	if len(route.Roles) > 0 && !slices.Contains(route.Roles, role) {
		return Decision{Redirect: g.unauthorizedPath, Reason: ReasonRole}
	}

	if len(route.Permissions) > 0 && role != common.RoleAdmin {
		return Decision{Redirect: g.unauthorizedPath, Reason: ReasonPermission}
	}

	return Decision{Allowed: true, Reason: ReasonAllowed}
}

// Require returns middleware enforcing route on everything it wraps. Denied
// requests are redirected with 303 See Other and never reach next.
func (g *Guard) Require(route Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Check(auth.SessionFrom(r.Context()), route)
			if g.recorder != nil {
				g.recorder.GuardDecision(d.Reason)
			}
			if !d.Allowed {
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
