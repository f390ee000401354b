package client

import (
	"strings"

	"github.com/trezcool/colegio/core/user"
)

type (
	// Route restricts the paths under Prefix to the users holding a role of one of Families.
	// A Route without Families is public.
	Route struct {
		Prefix   string
		Families []string
	}

	// Decision is the outcome of a navigation: either allowed, or redirected.
	Decision struct {
		Allowed  bool
		Redirect string
	}

	sessionReader interface {
		User() (SessionUser, bool)
	}

	// Guard decides where a navigation ends up, based on the session's role families.
	Guard struct {
		session sessionReader
		routes  []Route
	}
)

// HomePaths maps every role family to the home of its dashboard.
var HomePaths = map[string]string{
	user.FamilyAdmin:   "/admin",
	user.FamilyTeacher: "/docente",
	user.FamilyStudent: "/estudiante",
	user.FamilyTutor:   "/tutor",
}

// DefaultRoutes is the route table of the dashboards.
var DefaultRoutes = []Route{
	{Prefix: LoginPath},
	{Prefix: "/password-reset"},
	{Prefix: "/admin", Families: []string{user.FamilyAdmin}},
	{Prefix: "/docente", Families: []string{user.FamilyTeacher}},
	{Prefix: "/estudiante", Families: []string{user.FamilyStudent}},
	{Prefix: "/tutor", Families: []string{user.FamilyTutor}},
	{Prefix: "/perfil", Families: []string{user.FamilyAdmin, user.FamilyTeacher, user.FamilyStudent, user.FamilyTutor}},
}

// HomePath returns the dashboard home of family, or LoginPath for an unknown family.
func HomePath(family string) string {
	if home, ok := HomePaths[family]; ok {
		return home
	}
	return LoginPath
}

// NewGuard returns a Guard over routes; DefaultRoutes are used when none are given.
func NewGuard(session sessionReader, routes ...Route) *Guard {
	if len(routes) == 0 {
		routes = DefaultRoutes
	}
	return &Guard{session: session, routes: routes}
}

func (g *Guard) match(path string) (Route, bool) {
	var (
		best  Route
		found bool
	)
	for _, r := range g.routes {
		if path != r.Prefix && !strings.HasPrefix(path, strings.TrimRight(r.Prefix, "/")+"/") {
			continue
		}
		if !found || len(r.Prefix) > len(best.Prefix) {
			best, found = r, true
		}
	}
	return best, found
}

// Resolve decides the navigation to path:
//   - "/" leads to the user's home, or to the login page;
//   - the login page leads authenticated users to their home;
//   - a protected route sends anonymous users to the login page,
//     and users of other roles to their own home.
//
// A session without a known role family has no home and is treated as anonymous.
// Paths outside the route table are allowed.
func (g *Guard) Resolve(path string) Decision {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	usr, authed := g.session.User()
	if _, ok := HomePaths[usr.Role]; authed && !ok {
		authed = false
	}

	if path == "" || path == "/" {
		if authed {
			return redirect(HomePath(usr.Role))
		}
		return redirect(LoginPath)
	}

	route, ok := g.match(path)
	if !ok {
		return Decision{Allowed: true}
	}
	if len(route.Families) == 0 {
		if route.Prefix == LoginPath && authed {
			return redirect(HomePath(usr.Role))
		}
		return Decision{Allowed: true}
	}
	if !authed {
		return redirect(LoginPath)
	}
	for _, family := range route.Families {
		if usr.HasFamily(family) {
			return Decision{Allowed: true}
		}
	}
	return redirect(HomePath(usr.Role))
}

func redirect(path string) Decision {
	return Decision{Redirect: path}
}
