package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/biocom-dev/biocom/internal/cli/client"
)

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrNoView        = errors.New("route has no view")
)

// ExpiredNotice is written before the redirect that follows a rejected token
const ExpiredNotice = "Session expired or invalid, redirecting to login..."

// Navigation records how one navigation ended
type Navigation struct {
	Requested string
	Final     string
	Decision  Decision
}

// Router resolves paths against the route table and runs the guard before
// rendering a view.
type Router struct {
	routes map[string]Route
	order  []string
	guard  *Guard
	out    io.Writer
	logger zerolog.Logger
}

// New builds a router from routes. Paths must be unique and the table must
// contain the login route.
func New(routes []Route, guard *Guard, out io.Writer, logger zerolog.Logger) (*Router, error) {
	r := &Router{
		routes: make(map[string]Route, len(routes)),
		guard:  guard,
		out:    out,
		logger: logger.With().Str("component", "router").Logger(),
	}

	for _, route := range routes {
		path := normalize(route.Path)
		if _, exists := r.routes[path]; exists {
			return nil, fmt.Errorf("duplicate route %s", path)
		}
		route.Path = path
		r.routes[path] = route
		r.order = append(r.order, path)
	}

	login, ok := r.routes[guard.loginPath]
	if !ok {
		return nil, fmt.Errorf("route table has no login route %s", guard.loginPath)
	}
	if login.RequiresAuth {
		return nil, fmt.Errorf("login route %s must not require authentication", guard.loginPath)
	}

	return r, nil
}

// Bind attaches a view to a path
func (r *Router) Bind(path string, view View) error {
	path = normalize(path)
	route, ok := r.routes[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}
	route.View = view
	r.routes[path] = route
	return nil
}

// Routes returns the table in declaration order
func (r *Router) Routes() []Route {
	routes := make([]Route, 0, len(r.order))
	for _, path := range r.order {
		routes = append(routes, r.routes[path])
	}
	return routes
}

// Lookup returns the route for path
func (r *Router) Lookup(path string) (Route, bool) {
	route, ok := r.routes[normalize(path)]
	return route, ok
}

// Navigate evaluates the guard for path and renders the resulting view. A
// denied navigation renders the login view instead. When an allowed view
// reports that login is required, a notice is written and the login view is
// rendered. Navigation is never retried.
func (r *Router) Navigate(ctx context.Context, path string) (*Navigation, error) {
	route, ok := r.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}

	nav := &Navigation{Requested: route.Path}
	log := r.logger.With().Str("route", route.Path).Logger()

	decision, target := r.guard.Check(route)
	nav.Decision = decision
	nav.Final = target

	if decision == Redirected {
		log.Info().Str("target", target).Msg("No session, redirecting")
		return nav, r.render(ctx, target)
	}

	err := r.render(ctx, route.Path)
	if err == nil || !client.IsLoginRequired(err) || route.Path == PathLogin {
		return nav, err
	}

	log.Warn().Err(err).Msg("Session rejected, redirecting to login")
	fmt.Fprintln(r.out, ExpiredNotice)

	nav.Decision = Redirected
	nav.Final = PathLogin
	return nav, r.render(ctx, PathLogin)
}

func (r *Router) render(ctx context.Context, path string) error {
	route := r.routes[path]
	if route.View == nil {
		return fmt.Errorf("%w: %s", ErrNoView, path)
	}
	return route.View(ctx, r.out)
}

func normalize(path string) string {
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	return path
}
