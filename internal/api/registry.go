// Package api holds the route table the dispatcher serves from and the
// contract every route handler satisfies.
package api

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateRoute = errors.New("duplicate route")
	ErrInvalidRoute   = errors.New("invalid route")
)

// Route names a path, its handler and its ingestion policy.
type Route struct {
	Path    string
	Handler Handler
	// WantsBody makes the dispatcher accumulate the request body before
	// the handler runs.
	WantsBody bool
	// ExpectsJSON makes the dispatcher parse the accumulated body as JSON.
	// It requires WantsBody.
	ExpectsJSON bool
}

// Registry is an immutable, ordered set of routes keyed by exact path.
type Registry struct {
	routes []Route
	byPath map[string]int
}

// NewRegistry builds a registry from routes in the given order.
func NewRegistry(routes ...Route) (*Registry, error) {
	reg := &Registry{
		routes: make([]Route, 0, len(routes)),
		byPath: make(map[string]int, len(routes)),
	}
	for _, rt := range routes {
		if err := reg.register(rt); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (reg *Registry) register(rt Route) error {
	switch {
	case !strings.HasPrefix(rt.Path, "/"):
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidRoute, rt.Path)
	case strings.ContainsAny(rt.Path, "?#"):
		return fmt.Errorf("%w: path %q has a query or fragment", ErrInvalidRoute, rt.Path)
	case rt.Handler == nil:
		return fmt.Errorf("%w: path %q has no handler", ErrInvalidRoute, rt.Path)
	case rt.ExpectsJSON && !rt.WantsBody:
		return fmt.Errorf("%w: path %q expects JSON without wanting a body", ErrInvalidRoute, rt.Path)
	}
	if _, ok := reg.byPath[rt.Path]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, rt.Path)
	}
	reg.byPath[rt.Path] = len(reg.routes)
	reg.routes = append(reg.routes, rt)
	return nil
}

// Lookup finds the route registered for exactly path.
func (reg *Registry) Lookup(path string) (Route, bool) {
	i, ok := reg.byPath[path]
	if !ok {
		return Route{}, false
	}
	return reg.routes[i], true
}

// Routes returns the routes in registration order.
func (reg *Registry) Routes() []Route {
	out := make([]Route, len(reg.routes))
	copy(out, reg.routes)
	return out
}

func (reg *Registry) Len() int {
	return len(reg.routes)
}
