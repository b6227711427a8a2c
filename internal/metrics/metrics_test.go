package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSearch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveSearch(OutcomeFound, 2*time.Second, 1000)
	m.ObserveSearch(OutcomeCancelled, time.Second, 50)

	assert.Equal(t, 1050.0, testutil.ToFloat64(m.noncesTested))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues(OutcomeFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues(OutcomeCancelled)))
}

func TestWorkerGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.WorkerStarted()
	m.WorkerStarted()
	m.WorkerStopped()
	m.WorkerPanicked()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeWorkers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.workerPanics))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSearch(OutcomeExhausted, time.Second, 1)
		m.WorkerStarted()
		m.WorkerStopped()
		m.WorkerPanicked()
	})
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.ObserveSearch(OutcomeFound, time.Millisecond, 7)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pow_miner_nonces_tested_total 7")
}
