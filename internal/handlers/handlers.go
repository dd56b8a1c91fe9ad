package handlers

import (
	"html/template"
	"net/http"
	"time"

	"changemgmt/internal/auth"
	"changemgmt/internal/metrics"
	"changemgmt/web"

	"github.com/go-playground/form"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// maxFormBytes caps request bodies.
const maxFormBytes = 1 << 20

// Handler serves the change request pages and JSON listings.
type Handler struct {
	Store StorageInterface

	auth     *auth.Authenticator
	notifier Notifier
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	now      func() time.Time
	secure   bool

	pages    map[string]*template.Template
	decoder  *form.Decoder
	validate *validator.Validate
}

type Option func(*Handler)

func WithNotifier(n Notifier) Option {
	return func(h *Handler) { h.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithClock replaces the time source used for submission and decision dates.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithSecureCookies sets the Secure flag on flash cookies.
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) { h.secure = secure }
}

// NewHandler wires the handler. Templates are parsed once here.
func NewHandler(store StorageInterface, authn *auth.Authenticator, log logrus.FieldLogger, opts ...Option) *Handler {
	h := &Handler{
		Store:    store,
		auth:     authn,
		log:      log.WithField("component", "handlers"),
		now:      time.Now,
		decoder:  form.NewDecoder(),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(h)
	}

	pages, err := web.Pages(templateFuncs)
	if err != nil {
		// Templates are embedded; a parse error is a build defect.
		panic(err)
	}
	h.pages = pages

	authn.Forbidden = h.AccessDeniedHandler
	return h
}

// HealthHandler answers "ok" when the database is reachable.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.log.WithError(err).Warn("health check failed")
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
