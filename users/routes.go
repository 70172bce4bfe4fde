package users

import "strings"

// Client-side routes
const (
	RouteRoot      = "/"
	RouteLogin     = "/login"
	RouteRegister  = "/register"
	RouteDashboard = "/dashboard"

	RouteHives    = "/dashboard/hives"
	RouteHive     = "/dashboard/hives/:id"
	RouteProducts = "/dashboard/products"
	RouteOrders   = "/dashboard/orders"
	RouteStats    = "/dashboard/stats"
	RouteExport   = "/dashboard/export"
	RouteUsers    = "/dashboard/users"
	RouteLogs     = "/dashboard/logs"
	RouteSessions = "/dashboard/sessions"
	RouteMe       = "/dashboard/me"
	RouteHelp     = "/dashboard/help"
)

// access is who may open a route
type access int

const (
	public access = iota
	authenticated
	adminOnly
)

// policy is the single table every route decision is made from. Routes that
// are not listed are denied.
var policy = map[string]access{
	RouteRoot:      public,
	RouteLogin:     public,
	RouteRegister:  public,
	RouteDashboard: authenticated,
	RouteHives:     authenticated,
	RouteHive:      authenticated,
	RouteProducts:  authenticated,
	RouteOrders:    authenticated,
	RouteSessions:  authenticated,
	RouteMe:        authenticated,
	RouteHelp:      authenticated,
	RouteStats:     adminOnly,
	RouteExport:    adminOnly,
	RouteUsers:     adminOnly,
	RouteLogs:      adminOnly,
}

// CanAccess reports whether role may open route. An empty role means no
// user is signed in. Concrete paths such as /dashboard/hives/12 match their
// parameterised pattern.
func CanAccess(route string, role Role) bool {
	level, ok := policy[Match(route)]
	if !ok {
		return false
	}

	switch level {
	case public:
		return true
	case authenticated:
		return role.Normalised() != ""
	case adminOnly:
		return role.IsAdmin()
	}
	return false
}

// IsPublic reports whether route is reachable without signing in
func IsPublic(route string) bool {
	level, ok := policy[Match(route)]
	return ok && level == public
}

// Match returns the policy pattern for path, or path itself when none matches
func Match(path string) string {
	clean := path
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	if len(clean) > 1 {
		clean = strings.TrimRight(clean, "/")
	}
	if _, ok := policy[clean]; ok {
		return clean
	}

	segments := strings.Split(clean, "/")
	for pattern := range policy {
		if matchSegments(strings.Split(pattern, "/"), segments) {
			return pattern
		}
	}
	return clean
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i := range pattern {
		if strings.HasPrefix(pattern[i], ":") {
			if path[i] == "" {
				return false
			}
			continue
		}
		if pattern[i] != path[i] {
			return false
		}
	}
	return true
}

// Routes lists every known route in a stable order
func Routes() []string {
	return []string{
		RouteRoot, RouteLogin, RouteRegister, RouteDashboard,
		RouteHives, RouteHive, RouteProducts, RouteOrders,
		RouteStats, RouteExport, RouteUsers, RouteLogs,
		RouteSessions, RouteMe, RouteHelp,
	}
}
