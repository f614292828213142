package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	t.Parallel()

	r := NewRecorder("", "")
	r.Fetched("articles", "newsapi", 3)
	r.Fetched("articles", "newsapi", 2)
	r.Failed("events", "eventbrite")
	r.Fallback("summarizer")
	r.Fallback("summarizer")
	r.BlacklistDropped(4)
	r.BlacklistDropped(0)
	r.RunFinished("completed", 1500*time.Millisecond)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.itemsFetched.WithLabelValues("articles", "newsapi")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchFailures.WithLabelValues("events", "eventbrite")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.stageFallbacks.WithLabelValues("summarizer")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.blacklistDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.runDuration))

	require.NoError(t, r.Push(context.Background()))
}

func TestRecorderPush(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		path.Store(req.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := NewRecorder(server.URL, "daily")
	r.RunFinished("no data found", time.Second)
	require.NoError(t, r.Push(context.Background()))

	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, strings.HasPrefix(path.Load().(string), "/metrics/job/daily"))
}
