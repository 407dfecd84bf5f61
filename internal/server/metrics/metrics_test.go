package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()

	c.ConnectionOpened()
	c.ConnectionOpened()
	c.ConnectionClosed()
	c.SlotsFree(7)
	c.Request("LOGINA")
	c.Request("LOGINA")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ConnectionsAccepted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ActiveHandlers))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.FreeSlots))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Requests.WithLabelValues("LOGINA")))
}

func TestCollector_Training(t *testing.T) {
	c := NewCollector()

	c.TrainingFinished(2*time.Second, 0.001, nil)
	c.TrainingFinished(time.Second, 0.5, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.TrainingRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.TrainingRuns.WithLabelValues("error")))
	assert.Equal(t, 0.001, testutil.ToFloat64(c.TrainingCost))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.Request("DEFEND")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mousetrap_requests_total{op="DEFEND"} 1`)
}
