package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/191-iota/textreflex/server/metrics"
	"github.com/191-iota/textreflex/server/middleware"
)

func TestPrometheusMetrics(t *testing.T) {
	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectedCode   int
		expectedStatus string
	}{
		{
			name: "success request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			expectedCode:   http.StatusOK,
			expectedStatus: "200",
		},
		{
			name: "error request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectedCode:   http.StatusInternalServerError,
			expectedStatus: "500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Fresh metrics per case so counts start at zero.
			m := metrics.NewMetrics()
			handler := middleware.PrometheusMetrics(m)(tt.handler)

			req := httptest.NewRequest("GET", "/", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)

			requestCount := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/", tt.expectedStatus))
			assert.Equal(t, float64(1), requestCount)

			// Active requests drain back to zero once the handler returns.
			activeRequests := testutil.ToFloat64(m.ActiveRequests)
			assert.Equal(t, float64(0), activeRequests)

			if tt.expectedCode >= 500 {
				errorCount := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("server_error"))
				assert.Equal(t, float64(1), errorCount)
			}
		})
	}
}
