package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOutcomesArriveOnOneChannel(t *testing.T) {
	d := New(context.Background(), 2, zap.NewNop())

	boom := errors.New("boom")
	require.NoError(t, d.Submit("ok", func(context.Context) (any, error) { return 42, nil }))
	require.NoError(t, d.Submit("fail", func(context.Context) (any, error) { return nil, boom }))

	got := make(map[string]Outcome)
	for i := 0; i < 2; i++ {
		out := <-d.Results()
		got[out.Name] = out
	}
	require.NoError(t, d.Close())

	assert.Equal(t, 42, got["ok"].Value)
	assert.NoError(t, got["ok"].Err)
	assert.ErrorIs(t, got["fail"].Err, boom)

	_, open := <-d.Results()
	assert.False(t, open)
}

func TestSubmitDoesNotBlockAndRespectsLimit(t *testing.T) {
	d := New(context.Background(), 2, nil)
	release := make(chan struct{})
	var running, peak atomic.Int32

	task := func(context.Context) (any, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return nil, nil
	}

	submitted := make(chan struct{})
	go func() {
		for i := 0; i < 6; i++ {
			_ = d.Submit("slow", task)
		}
		close(submitted)
	}()

	select {
	case <-submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("submit blocked while workers were busy")
	}

	close(release)
	count := 0
	done := make(chan struct{})
	go func() {
		for range d.Results() {
			count++
		}
		close(done)
	}()
	require.NoError(t, d.Close())
	<-done

	assert.Equal(t, 6, count)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestSubmitAfterClose(t *testing.T) {
	d := New(context.Background(), 1, nil)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Submit("late", func(context.Context) (any, error) { return nil, nil }), ErrClosed)
}

func TestCancelledContextFailsQueuedTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := New(ctx, 1, nil)

	called := false
	require.NoError(t, d.Submit("never", func(context.Context) (any, error) {
		called = true
		return nil, nil
	}))
	out := <-d.Results()
	require.NoError(t, d.Close())

	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.False(t, called)
}
