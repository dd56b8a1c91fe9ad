package testutils

import (
	"context"
	"net/http"

	"changemgmt/internal/auth"

	"github.com/go-chi/chi/v5"
)

// WithChiURLParams injects chi path parameters into the request context.
func WithChiURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for k, v := range params {
		chiCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}

// WithPrincipal attaches an authenticated principal, bypassing the session
// middleware.
func WithPrincipal(req *http.Request, p *auth.Principal) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), p))
}
