package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/grantsync/internal/infrastructure/store/memory"
	"github.com/turtacn/grantsync/internal/interfaces/http/handlers"
	"github.com/turtacn/grantsync/internal/testutil"
)

func newTestRouter(t *testing.T) (http.Handler, *testutil.MockLogger) {
	t.Helper()

	store := memory.NewStore()
	require.NoError(t, store.Save(context.Background(), []patent.Patent{{
		PatentNumber:            "09532496",
		PatentApplicationNumber: "US14585764",
		AssigneeEntityName:      patent.StringPtr("Precision Planting LLC"),
		FilingDate:              patent.MustParseDate("2014-12-30"),
		GrantDate:               patent.MustParseDate("2017-01-03"),
		InventionTitle:          "Dynamic supplemental downforce control system for planter row units",
	}}))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, nil)
	require.NoError(t, err)

	log := testutil.NewMockLogger()
	return NewRouter(RouterConfig{
		GrantHandler:     handlers.NewGrantHandler(store, log),
		HealthHandler:    handlers.NewHealthHandler("test", handlers.StoreChecker("memory", store)),
		Logger:           log,
		MetricsCollector: collector,
		AppMetrics:       prometheus.NewAppMetrics(collector),
	}), log
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewRouter_HealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	assert.Equal(t, http.StatusOK, get(r, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(r, "/readyz").Code)
}

func TestNewRouter_ListGrants(t *testing.T) {
	r, log := newTestRouter(t)

	rec := get(r, "/api/v1/grants?from=2017-01-01&to=2017-01-31")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.GrantListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	name, ok := resp.Grants[0].Assignee()
	assert.True(t, ok)
	assert.Equal(t, "Precision Planting LLC", name)

	assert.True(t, log.HasMessage("info", "HTTP request completed"))
	id, ok := log.Field("HTTP request completed", "request_id")
	assert.True(t, ok)
	assert.NotEmpty(t, id)
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	get(r, "/api/v1/grants?from=2017-01-31&to=2017-01-01")

	out := get(r, "/metrics").Body.String()
	assert.Contains(t, out, `test_http_requests_total{method="GET",path="/api/v1/grants",status_code="400"} 1`)
}

func TestNewRouter_UnknownRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/portfolios").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, func() int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/grants", nil))
		return rec.Code
	}())
}

func TestNewRouter_NilMembers(t *testing.T) {
	r := NewRouter(RouterConfig{})
	assert.Equal(t, http.StatusNotFound, get(r, "/healthz").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/metrics").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/grants").Code)
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	r := NewRouter(RouterConfig{})
	mux, ok := r.(interface {
		Get(string, http.HandlerFunc)
	})
	require.True(t, ok)
	mux.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	assert.Equal(t, http.StatusInternalServerError, get(r, "/boom").Code)
}
