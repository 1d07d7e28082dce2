// Package guard decides whether the current session may reach protected
// surfaces. It holds no state: decisions are a pure function of session
// status, so they can never disagree with the session manager.
package guard

import "github.com/drivelink/drivelink/internal/session"

// Decision is the outcome of a guard check.
type Decision int

const (
	// Allow - the protected surface may be shown.
	Allow Decision = iota
	// RedirectToLogin - the user must authenticate first.
	RedirectToLogin
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "redirect-to-login"
}

// Decide maps session status to a routing decision. Only an authenticated
// session passes; initializing and anonymous both redirect.
func Decide(status session.Status) Decision {
	if status == session.StatusAuthenticated {
		return Allow
	}
	return RedirectToLogin
}
