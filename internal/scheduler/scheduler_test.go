package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/observability"
	"github.com/i474232898/weather-lookup/internal/weather"
)

type countingRefresher struct {
	calls       atomic.Int32
	hadDeadline atomic.Bool
}

func (r *countingRefresher) Refresh(ctx context.Context) weather.State {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); ok {
		r.hadDeadline.Store(true)
	}
	return weather.State{Status: weather.StatusReady}
}

func TestScheduler_RefreshesPeriodically(t *testing.T) {
	r := &countingRefresher{}
	s := New(20*time.Millisecond, time.Second, r, observability.NopLogger())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.True(t, s.Running())
	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, r.hadDeadline.Load())
}

func TestScheduler_DisabledInterval(t *testing.T) {
	r := &countingRefresher{}
	s := New(0, time.Second, r, observability.NopLogger())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.False(t, s.Running())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.calls.Load())
}
