// Package middleware provides HTTP middleware for the interview API.
package middleware

import (
	"fmt"
	"net/http"
	"regexp"
)

// OriginPolicy decides which browser origins may call the API.
type OriginPolicy struct {
	origins []string
	pattern *regexp.Regexp
}

// NewOriginPolicy accepts exact origins plus an optional origin regexp.
func NewOriginPolicy(origins []string, pattern string) (*OriginPolicy, error) {
	p := &OriginPolicy{origins: origins}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid origin pattern %q: %w", pattern, err)
		}
		p.pattern = re
	}
	return p, nil
}

// Allowed reports whether origin may call the API.
func (p *OriginPolicy) Allowed(origin string) bool {
	if p == nil || origin == "" {
		return false
	}
	for _, o := range p.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return p.pattern != nil && p.pattern.MatchString(origin)
}

// CORS returns middleware that handles CORS headers.
func CORS(policy *OriginPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if policy.Allowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
