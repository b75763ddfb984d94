// Package guard decides whether a navigation may proceed. It holds no state
// and must be consulted on every navigation: a logout takes effect at the
// next check.
package guard

import "github.com/dmitrijs2005/pvault/internal/common"

// SessionReader is the part of the session store the guard needs.
type SessionReader interface {
	IsAuthenticated() bool
}

// Route is a navigation target.
type Route struct {
	Path           string
	RequiresDoctor bool
}

// Decision is the outcome of Check. A zero Redirect means Allow.
type Decision struct {
	Redirect string
}

func (d Decision) Allowed() bool { return d.Redirect == "" }

var Allow = Decision{}

func RedirectTo(path string) Decision { return Decision{Redirect: path} }

type Guard struct {
	sessions  SessionReader
	loginPath string
}

// New returns a guard that redirects to loginPath, or to the doctor login
// route when loginPath is empty.
func New(sessions SessionReader, loginPath string) *Guard {
	if loginPath == "" {
		loginPath = common.RouteDoctorLogin
	}
	return &Guard{sessions: sessions, loginPath: loginPath}
}

func (g *Guard) Check(route Route) Decision {
	return Check(route, g.sessions, g.loginPath)
}

// Check is the pure form of Guard.Check.
func Check(route Route, sessions SessionReader, loginPath string) Decision {
	if !route.RequiresDoctor {
		return Allow
	}
	if sessions != nil && sessions.IsAuthenticated() {
		return Allow
	}
	return RedirectTo(loginPath)
}
