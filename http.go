package session

import (
	"time"

	"github.com/goliatone/go-router"
)

// GuardConfig configures the host-side route guard integration
type GuardConfig struct {
	// LoginPath receives unauthenticated visitors
	LoginPath string
	// UnauthorizedPath receives authenticated users lacking the role
	UnauthorizedPath string
	// RejectedRouteKey names the cookie carrying the attempted URL so
	// login can return the user afterward
	RejectedRouteKey string
	// LoadingHandler renders while bootstrap is still running
	LoadingHandler router.HandlerFunc
}

// RouteGuard applies Decide to incoming navigations and performs the
// side effects the pure function leaves to the host: stashing the
// attempted URL and upgrading token-only sessions through verification.
type RouteGuard struct {
	manager *Manager
	cfg     GuardConfig
	Logger  Logger
}

func NewRouteGuard(manager *Manager, cfg GuardConfig) *RouteGuard {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.UnauthorizedPath == "" {
		cfg.UnauthorizedPath = "/unauthorized"
	}
	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = "rejected_route"
	}
	if cfg.LoadingHandler == nil {
		cfg.LoadingHandler = func(c router.Context) error {
			return c.Status(router.StatusServiceUnavailable).SendString("session loading")
		}
	}

	return &RouteGuard{
		manager: manager,
		cfg:     cfg,
		Logger:  defLogger{},
	}
}

// Protected guards a route subtree. No roles means any authenticated
// user may enter.
func (g *RouteGuard) Protected(allowedRoles ...Role) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			g.ensureVerified(c)

			snap := g.manager.Snapshot()
			switch Decide(snap, allowedRoles...) {
			case ShowLoading:
				return g.cfg.LoadingHandler(c)
			case RedirectLogin:
				g.SetRedirect(c)
				return c.Redirect(g.cfg.LoginPath, router.StatusSeeOther)
			case RedirectUnauthorized:
				g.Logger.Info(
					"role rejected for %s",
					c.OriginalURL(),
				)
				return c.Redirect(g.cfg.UnauthorizedPath, router.StatusSeeOther)
			}
			return next(c)
		}
	}
}

// ensureVerified upgrades a token-only session before any protected
// content renders. Concurrent mounts collapse into a single verify call
// inside the manager.
func (g *RouteGuard) ensureVerified(c router.Context) {
	snap := g.manager.Snapshot()
	if snap.User != nil || !snap.Tokens.HasAccess() {
		return
	}
	if err := g.manager.VerifySession(c.Context()); err != nil {
		g.Logger.Warn("session verification during navigation failed: %v", err)
	}
}

// SetRedirect stashes the attempted URL so login can send the user back
func (g *RouteGuard) SetRedirect(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     g.cfg.RejectedRouteKey,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// GetRedirect pops the stashed URL, falling back to the given default
func (g *RouteGuard) GetRedirect(c router.Context, def ...string) string {
	r := c.Cookies(g.cfg.RejectedRouteKey)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return "/"
	}
	g.cookieDel(c, g.cfg.RejectedRouteKey)
	return r
}

func (g *RouteGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
