package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func named(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(name))
	})
}

func newTestRouter() http.Handler {
	return NewRouter(Handlers{
		Checkout: named("checkout"),
		Webhook:  named("webhook"),
		Version:  named("version"),
	})
}

func TestRouterMountsFunctions(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		method, path, want string
	}{
		{http.MethodPost, "/create-payment", "checkout"},
		{http.MethodOptions, "/create-payment", "checkout"},
		{http.MethodPost, "/stripe-webhook", "webhook"},
		{http.MethodPost, "/functions/v1/create-payment", "checkout"},
		{http.MethodOptions, "/functions/v1/stripe-webhook", "webhook"},
		{http.MethodGet, "/version", "version"},
		{http.MethodGet, "/healthz", "ok"},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, tt.method+" "+tt.path)
		assert.Equal(t, tt.want, rr.Body.String(), tt.method+" "+tt.path)
	}
}

func TestRouterRejectsUnknownMethod(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/create-payment", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRouterSetsRequestID(t *testing.T) {
	r := newTestRouter()

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestVersionCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set("Origin", "https://letpeople.work")
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
