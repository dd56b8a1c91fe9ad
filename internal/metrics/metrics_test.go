package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"changemgmt/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestIncOperation(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.IncOperation("create", metrics.OutcomeSuccess)
	m.IncOperation("create", metrics.OutcomeSuccess)
	m.IncOperation("create", metrics.OutcomeInvalid)

	require.Equal(t, 2.0, testutil.ToFloat64(m.RequestOperations.WithLabelValues("create", metrics.OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RequestOperations.WithLabelValues("create", metrics.OutcomeInvalid)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.IncOperation("create", metrics.OutcomeSuccess)
	m.IncEmail(metrics.OutcomeError)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestMiddlewareLabelsRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/Request/Details/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/Request/Details/7", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/Request/Details/8", nil))

	require.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
}
