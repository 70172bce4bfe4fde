package auth

import "github.com/jrsteele09/beetrack-client/users"

// Decision is the outcome of a route guard
type Decision int

const (
	// DecisionDefer means bootstrap has not finished; decide later
	DecisionDefer Decision = iota
	DecisionAllow
	// DecisionLogin sends an anonymous user to the login screen
	DecisionLogin
	// DecisionForbidden means signed in but the role may not open the route
	DecisionForbidden
	// DecisionDashboard sends a signed-in user away from login/register
	DecisionDashboard
)

func (d Decision) String() string {
	switch d {
	case DecisionDefer:
		return "defer"
	case DecisionAllow:
		return "allow"
	case DecisionLogin:
		return "login"
	case DecisionForbidden:
		return "forbidden"
	case DecisionDashboard:
		return "dashboard"
	}
	return "unknown"
}

// Guard decides whether the current user may open route. While loading the
// answer is always DecisionDefer, never a redirect.
func (m *Manager) Guard(route string) Decision {
	m.mu.RLock()
	loading, user := m.loading, m.user
	m.mu.RUnlock()

	if loading {
		return DecisionDefer
	}

	switch users.Match(route) {
	case users.RouteLogin, users.RouteRegister:
		if user != nil {
			return DecisionDashboard
		}
		return DecisionAllow
	}

	if users.IsPublic(route) {
		return DecisionAllow
	}
	if user == nil {
		return DecisionLogin
	}
	if !users.CanAccess(route, user.Role) {
		return DecisionForbidden
	}
	return DecisionAllow
}
