package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersByLabel(t *testing.T) {
	m := New()

	m.VoteCast("accepted")
	m.VoteCast("accepted")
	m.VoteCast("already_voted")
	m.TallyServed(true)
	m.TallyServed(false)
	m.TallyServed(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.votes.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.votes.WithLabelValues("already_voted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tallies.WithLabelValues("cache")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tallies.WithLabelValues("store")))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.VoteCast("accepted")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pollr_votes_cast_total{outcome="accepted"} 1`)
}
