package apiclient

// LoginPath is where expired sessions are sent.
const LoginPath = "/login"

// Navigator lets browser style hosts react to session expiry. CurrentPath
// returns the path the user is on; Redirect sends them elsewhere.
type Navigator interface {
	CurrentPath() string
	Redirect(path string)
}

// publicPaths are reachable without a session, so expiry on one of them does
// not trigger a redirect.
var publicPaths = map[string]struct{}{
	"/":         {},
	"/login":    {},
	"/register": {},
	"/about":    {},
	"/privacy":  {},
	"/terms":    {},
}

// PublicPath reports whether the path is reachable without a session.
func PublicPath(path string) bool {
	_, ok := publicPaths[path]
	return ok
}

// NopNavigator ignores navigation, for headless hosts.
type NopNavigator struct{}

// CurrentPath implements Navigator. It always reports a public path so the
// client never issues a redirect.
func (NopNavigator) CurrentPath() string { return "/" }

// Redirect implements Navigator.
func (NopNavigator) Redirect(string) {}
