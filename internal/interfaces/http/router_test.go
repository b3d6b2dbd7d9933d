package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/prometheus"
	"github.com/clauselens/clauselens/internal/interfaces/http/middleware"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "clauselens"})
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		Mode:           gin.TestMode,
		Version:        "test",
		Metrics:        prometheus.NewAppMetrics(collector),
		MetricsHandler: collector.Handler(),
	})
}

func TestRouter_Healthz(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/healthz", nil))

	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"up"`)
}

func TestRouter_EchoesRequestID(t *testing.T) {
	req := httptest.NewRequest(nethttp.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-42")

	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(middleware.HeaderRequestID))
}

func TestRouter_MintsRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/healthz", nil))

	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
}

func TestRouter_MetricsScrape(t *testing.T) {
	r := testRouter(t)

	// A probe first so the scrape has something to report.
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(nethttp.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))

	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clauselens_http_requests_total")
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(nethttp.MethodOptions, "/api/v1/contracts", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", nethttp.MethodPost)

	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)

	assert.Equal(t, nethttp.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
