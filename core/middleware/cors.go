package middleware

import (
	"strconv"
	"strings"

	"github.com/searchktools/fast-backend/core/http"
)

// CORSPolicy holds the cross-origin headers attached to every response.
type CORSPolicy struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int // seconds
}

// DefaultCORSPolicy allows everything and lets preflights be cached for an hour.
func DefaultCORSPolicy() CORSPolicy {
	return CORSPolicy{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"*"},
		AllowHeaders: []string{"*"},
		MaxAge:       3600,
	}
}

// CORS attaches the policy headers to every response, including error
// responses produced further down the chain. OPTIONS requests are answered
// with 204 and an empty body without reaching the router.
func CORS(policy CORSPolicy) Middleware {
	wildcard := len(policy.AllowOrigins) == 0
	origins := make(map[string]struct{}, len(policy.AllowOrigins))
	for _, o := range policy.AllowOrigins {
		if o == "*" {
			wildcard = true
		}
		origins[o] = struct{}{}
	}
	methods := joinOrWildcard(policy.AllowMethods)
	headers := joinOrWildcard(policy.AllowHeaders)
	maxAge := strconv.Itoa(policy.MaxAge)

	apply := func(ctx *http.Context) {
		h := ctx.ResponseHeader()
		if wildcard {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Add("Vary", "Origin")
			if origin := ctx.Header("Origin"); origin != "" {
				if _, ok := origins[origin]; ok {
					h.Set("Access-Control-Allow-Origin", origin)
				}
			}
		}
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Max-Age", maxAge)
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(ctx *http.Context) error {
			if ctx.Method() == "OPTIONS" {
				apply(ctx)
				return ctx.NoContent(204)
			}

			err := next(ctx)
			apply(ctx)
			return err
		}
	}
}

func joinOrWildcard(values []string) string {
	if len(values) == 0 {
		return "*"
	}
	return strings.Join(values, ", ")
}
