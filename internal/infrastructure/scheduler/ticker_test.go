package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerRunsImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewTickerScheduler(10 * time.Millisecond)
	require.NoError(t, s.Start(context.Background(), func(context.Context) { runs.Add(1) }))

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestTickerJobsNeverOverlap(t *testing.T) {
	t.Parallel()

	var active, maxActive atomic.Int32
	s := NewTickerScheduler(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx, func(context.Context) {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
	}))

	time.Sleep(40 * time.Millisecond)
	done := s.Done()
	cancel()
	<-done

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewTickerScheduler(0)
	assert.Equal(t, 24*time.Hour, s.interval)
	assert.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Start(context.Background(), nil))
}
