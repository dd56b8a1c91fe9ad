package handlers

import (
	"net/http"
	"time"

	"changemgmt/internal/auth"
	"changemgmt/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const contentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; " +
	"frame-ancestors 'none'; form-action 'self'"

// SecurityHeaders sets the browser hardening headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("X-Content-Type-Options", "nosniff")
		hdr.Set("X-Frame-Options", "DENY")
		hdr.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		hdr.Set("Content-Security-Policy", contentSecurityPolicy)
		next.ServeHTTP(w, r)
	})
}

// AccessLog logs one line per request.
func AccessLog(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
				"remote":     r.RemoteAddr,
			}).Info("http request")
		})
	}
}

// Routes builds the application router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(h.log.WithField("component", "http")))
	r.Use(middleware.Recoverer)
	r.Use(h.metrics.Middleware)
	r.Use(SecurityHeaders)
	r.Use(h.auth.Authenticate)

	r.NotFound(h.NotFoundHandler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, requestBasePath, http.StatusFound)
	})
	r.Get("/healthz", h.HealthHandler)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))

	r.Route("/Account", func(r chi.Router) {
		r.Get("/Login", h.LoginFormHandler)
		r.Post("/Login", h.LoginHandler)
		r.Post("/Logout", h.LogoutHandler)
		r.Get("/AccessDenied", h.AccessDeniedHandler)
	})

	r.Route(requestBasePath, func(r chi.Router) {
		r.Use(h.auth.Require(auth.AdminOrEmployee))
		r.Get("/", h.ListRequestsHandler)
		r.Get("/GetAll", h.GetAllRequestsHandler)
		r.Get("/Details/{id}", h.RequestDetailsHandler)
		r.Get("/Edit/{id}", h.EditRequestFormHandler)
		r.Post("/Edit/{id}", h.EditRequestHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Require(auth.EmployeeOnly))
			r.Get("/Create", h.CreateRequestFormHandler)
			r.Post("/Create", h.CreateRequestHandler)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.auth.Require(auth.AdminOnly))
			r.Get("/Delete/{id}", h.DeleteRequestFormHandler)
			r.Post("/Delete/{id}", h.DeleteRequestHandler)
		})
	})

	for _, v := range []statusView{approvedView, notApprovedView} {
		r.Route(v.basePath, func(r chi.Router) {
			r.Use(h.auth.Require(auth.AdminOrEmployee))
			r.Get("/", h.listView(v))
			r.Get("/GetAll", h.getAllView(v))
			r.Get("/Details/{id}", h.detailsView(v))
		})
	}

	return r
}
