package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}

func TestRecordReload(t *testing.T) {
	m := newTestMetrics()

	m.RecordReload("csv", nil, 3, 10, 2, 4)
	m.RecordReload("csv", errors.New("missing file"), 0, 0, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues("csv", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues("csv", "error")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.RecordsLoaded.WithLabelValues("impression")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Generation))
}

func TestRecordComputationAndCache(t *testing.T) {
	m := newTestMetrics()

	m.RecordComputation("summary", 3*time.Millisecond)
	m.RecordComputation("summary", time.Millisecond)
	m.RecordCacheResult("hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Computations.WithLabelValues("summary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ComputeLatency))
}

func TestRecordRequestError(t *testing.T) {
	m := newTestMetrics()

	m.RecordRequestError("/api/summary", http.StatusBadRequest)
	m.RecordRequestError("/api/summary", 799)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestErrors.WithLabelValues("/api/summary", "Bad Request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestErrors.WithLabelValues("/api/summary", "unknown")))
}

func TestHandler_ServesOwnRegistry(t *testing.T) {
	m := newTestMetrics()
	m.RecordRateLimitHit("/api/series")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_rate_limit_hits_total{endpoint="/api/series"} 1`))
}
