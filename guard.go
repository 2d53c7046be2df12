package session

// Decision is the outcome of gating a navigation against the session
type Decision int

const (
	// Render allows the protected content
	Render Decision = iota
	// ShowLoading defers while bootstrap is still running
	ShowLoading
	// RedirectLogin sends an unauthenticated visitor to login
	RedirectLogin
	// RedirectUnauthorized rejects an authenticated user lacking the role
	RedirectUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case ShowLoading:
		return "show-loading"
	case RedirectLogin:
		return "redirect-login"
	case RedirectUnauthorized:
		return "redirect-unauthorized"
	default:
		return "unknown"
	}
}

// Decide maps session state and a route's role requirements to a
// navigation decision. It is pure: verification side effects belong to
// the host integration, not here.
func Decide(snap Snapshot, allowedRoles ...Role) Decision {
	if snap.Loading {
		return ShowLoading
	}
	if !snap.Authenticated {
		return RedirectLogin
	}
	if !snap.HasRole(allowedRoles...) {
		return RedirectUnauthorized
	}
	return Render
}
