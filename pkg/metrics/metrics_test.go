package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/casse/pkg/metrics"
)

func TestTransition(t *testing.T) {
	m := metrics.New()

	m.Transition("approve", metrics.OutcomeSuccess)
	m.Transition("approve", metrics.OutcomeSuccess)
	m.Transition("approve", metrics.OutcomeNotFound)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("approve", metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("approve", metrics.OutcomeNotFound)))
}

func TestStepFailed(t *testing.T) {
	m := metrics.New()
	m.StepFailed("notify")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepFailures.WithLabelValues("notify")))
}

func TestInstancesAreIndependent(t *testing.T) {
	a := metrics.New()
	b := metrics.New()

	a.StepFailed("notify")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.StepFailures.WithLabelValues("notify")))
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.Transition("submit", metrics.OutcomeSuccess)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `casse_approval_transitions_total{outcome="success",transition="submit"} 1`)
}
