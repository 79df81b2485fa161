package router

import (
	"github.com/biocom-dev/biocom/internal/cli/session"
)

// Decision is the outcome of a guard check
type Decision int

const (
	Allowed Decision = iota
	Redirected
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Redirected:
		return "redirected"
	default:
		return "unknown"
	}
}

// SessionReader is the part of the session store the guard needs
type SessionReader interface {
	Get(field session.Field) (string, bool)
}

// Guard decides whether a route may be entered. It only checks that a token
// is present; validity is left to the first API call.
type Guard struct {
	sessions  SessionReader
	loginPath string
}

// NewGuard creates a guard redirecting to the login route
func NewGuard(sessions SessionReader) *Guard {
	return &Guard{sessions: sessions, loginPath: PathLogin}
}

// Check returns Allowed with the route's own path, or Redirected with the
// login path.
func (g *Guard) Check(route Route) (Decision, string) {
	if !route.RequiresAuth {
		return Allowed, route.Path
	}
	if _, ok := g.sessions.Get(session.FieldAccessToken); ok {
		return Allowed, route.Path
	}
	return Redirected, g.loginPath
}
