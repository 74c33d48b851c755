package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(func() float64 { return 2 })

	m.TurnHandled("awaiting_date")
	m.TurnHandled("awaiting_date")
	m.CallEnded("confirmed")
	m.ObserveExtraction("intent", 150*time.Millisecond, true)
	m.ObserveExtraction("intent", 8*time.Second, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turns.WithLabelValues("awaiting_date")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("confirmed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.extractions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessions))
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.CallEnded("deferred")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `serviceswarm_call_outcomes_total{outcome="deferred"} 1`)
}
