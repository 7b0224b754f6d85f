package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("gw")

	m.ObserveDownload(OutcomeSuccess, time.Second)
	m.ObserveDownload(OutcomeSuccess, 2*time.Second)
	m.ObserveDownload(OutcomeFailure, 0)
	m.AuthRejected("missing_api_key")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.downloadsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downloadsTotal.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRejections.WithLabelValues("missing_api_key")))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), "gw_download_duration_seconds_count 2")
}

func TestMetrics_InProgress(t *testing.T) {
	m := New("gw")

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.inProgress))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDownload(OutcomeSuccess, time.Second)
		m.SessionOpened()
		m.SessionClosed()
		m.AuthRejected("x")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New("gw")
	m.ObserveDownload(OutcomeSuccess, time.Second)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `gw_downloads_total{outcome="success"} 1`)
}
