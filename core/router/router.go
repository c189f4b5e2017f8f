// Package router maps (method, path) pairs to handlers by exact match.
package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/searchktools/fast-backend/apperror"
	"github.com/searchktools/fast-backend/core/http"
)

type route struct {
	method string
	path   string
}

// Route describes a registered route.
type Route struct {
	Method string
	Path   string
}

// Router is an exact-match route table. Paths are compared byte for byte
// after the query string has been stripped: no trailing-slash folding, no
// case folding, no parameters. It is not safe for concurrent registration;
// lookups are safe once registration is done.
type Router struct {
	routes map[route]http.HandlerFunc
}

// New creates an empty router.
func New() *Router {
	return &Router{routes: make(map[route]http.HandlerFunc, 16)}
}

// Add registers handler for method and path. It panics on a duplicate route
// or a path that does not start with '/'.
func (r *Router) Add(method, path string, handler http.HandlerFunc) {
	if !strings.HasPrefix(path, "/") {
		panic(fmt.Sprintf("router: path %q must begin with '/'", path))
	}
	if handler == nil {
		panic(fmt.Sprintf("router: nil handler for %s %s", method, path))
	}
	key := route{method: strings.ToUpper(method), path: path}
	if _, ok := r.routes[key]; ok {
		panic(fmt.Sprintf("router: duplicate route %s %s", key.method, path))
	}
	r.routes[key] = handler
}

// GET registers a GET route.
func (r *Router) GET(path string, handler http.HandlerFunc) {
	r.Add("GET", path, handler)
}

// POST registers a POST route.
func (r *Router) POST(path string, handler http.HandlerFunc) {
	r.Add("POST", path, handler)
}

// Find returns the handler registered for method and path.
func (r *Router) Find(method, path string) (http.HandlerFunc, bool) {
	h, ok := r.routes[route{method: method, path: path}]
	return h, ok
}

// Dispatch runs the handler matching ctx, or returns a NotFound error.
func (r *Router) Dispatch(ctx *http.Context) error {
	h, ok := r.Find(ctx.Method(), ctx.Path())
	if !ok {
		return apperror.NotFound(ctx.Method(), ctx.Path())
	}
	return h(ctx)
}

// Routes lists registered routes ordered by path then method.
func (r *Router) Routes() []Route {
	out := make([]Route, 0, len(r.routes))
	for k := range r.routes {
		out = append(out, Route{Method: k.method, Path: k.path})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}
