// Package middleware composes request wrappers around the route dispatcher.
package middleware

import (
	"github.com/searchktools/fast-backend/core/http"
)

// Middleware wraps a handler. It may act before and after calling next, or
// answer the request itself without calling next.
type Middleware func(next http.HandlerFunc) http.HandlerFunc

// Pipeline is an ordered middleware chain. The first middleware added is
// the outermost wrapper.
type Pipeline struct {
	handlers []Middleware
}

// NewPipeline creates a new middleware pipeline
func NewPipeline() *Pipeline {
	return &Pipeline{
		handlers: make([]Middleware, 0, 8),
	}
}

// Use adds middlewares to the end of the pipeline
func (p *Pipeline) Use(mw ...Middleware) *Pipeline {
	p.handlers = append(p.handlers, mw...)
	return p
}

// Then composes the pipeline around final and returns the resulting handler.
// Compose once at startup; the result is safe for concurrent use.
func (p *Pipeline) Then(final http.HandlerFunc) http.HandlerFunc {
	// Fast path: no middlewares
	if len(p.handlers) == 0 {
		return final
	}

	h := final
	for i := len(p.handlers) - 1; i >= 0; i-- {
		h = p.handlers[i](h)
	}
	return h
}
