package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	calls  atomic.Int32
	counts map[uuid.UUID]int64
}

func (l *countingLoader) load(context.Context) (map[uuid.UUID]int64, error) {
	l.calls.Add(1)
	return copyCounts(l.counts), nil
}

func TestTallyCachePassThrough(t *testing.T) {
	cache := NewTallyCache(0, testclock.NewClock(time.Now()))
	position, candidate := uuid.New(), uuid.New()
	loader := &countingLoader{counts: map[uuid.UUID]int64{candidate: 3}}

	for i := 0; i < 3; i++ {
		counts, cached, err := cache.Get(context.Background(), position, loader.load)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, int64(3), counts[candidate])
	}
	assert.Equal(t, int32(3), loader.calls.Load())
}

func TestTallyCacheExpiresAndInvalidates(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	cache := NewTallyCache(time.Minute, clk)
	ctx := context.Background()
	position, candidate := uuid.New(), uuid.New()
	loader := &countingLoader{counts: map[uuid.UUID]int64{candidate: 1}}

	_, cached, err := cache.Get(ctx, position, loader.load)
	require.NoError(t, err)
	assert.False(t, cached)

	counts, cached, err := cache.Get(ctx, position, loader.load)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, int32(1), loader.calls.Load())

	counts[candidate] = 99
	again, _, err := cache.Get(ctx, position, loader.load)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again[candidate], "callers get a copy")

	cache.BeginWrite(position)()
	_, cached, err = cache.Get(ctx, position, loader.load)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(2), loader.calls.Load())

	clk.Advance(time.Minute)
	_, cached, err = cache.Get(ctx, position, loader.load)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(3), loader.calls.Load())
}

func TestTallyCacheCollapsesConcurrentLoads(t *testing.T) {
	cache := NewTallyCache(time.Minute, testclock.NewClock(time.Now()))
	position := uuid.New()

	release := make(chan struct{})
	var calls atomic.Int32
	load := func(context.Context) (map[uuid.UUID]int64, error) {
		calls.Add(1)
		<-release
		return map[uuid.UUID]int64{}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := cache.Get(context.Background(), position, load)
			assert.NoError(t, err)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestTallyCacheDoesNotKeepErrors(t *testing.T) {
	cache := NewTallyCache(time.Minute, testclock.NewClock(time.Now()))
	position := uuid.New()
	boom := errors.New("boom")

	_, _, err := cache.Get(context.Background(), position, func(context.Context) (map[uuid.UUID]int64, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	loader := &countingLoader{counts: map[uuid.UUID]int64{}}
	_, cached, err := cache.Get(context.Background(), position, loader.load)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestTallyCacheLoadOutlivesCancelledCaller(t *testing.T) {
	cache := NewTallyCache(time.Minute, testclock.NewClock(time.Now()))
	position, candidate := uuid.New(), uuid.New()

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(ctx context.Context) (map[uuid.UUID]int64, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return map[uuid.UUID]int64{candidate: 4}, nil
	}

	// 1. The first reader starts the load and gives up
	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := cache.Get(firstCtx, position, load)
		firstErr <- err
	}()
	<-started

	// 2. A second reader joins the same load
	type result struct {
		counts map[uuid.UUID]int64
		err    error
	}
	second := make(chan result, 1)
	go func() {
		counts, _, err := cache.Get(context.Background(), position, load)
		second <- result{counts, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	// 3. The load finishes for the reader still waiting
	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, int64(4), res.counts[candidate])
	assert.Equal(t, int32(1), calls.Load())

	counts, cached, err := cache.Get(context.Background(), position, load)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, int64(4), counts[candidate])
}

func TestTallyCacheBypassedDuringWrite(t *testing.T) {
	cache := NewTallyCache(time.Minute, testclock.NewClock(time.Now()))
	ctx := context.Background()
	position, candidate := uuid.New(), uuid.New()
	loader := &countingLoader{counts: map[uuid.UUID]int64{candidate: 0}}

	// 1. Prime the cache
	_, _, err := cache.Get(ctx, position, loader.load)
	require.NoError(t, err)
	_, cached, err := cache.Get(ctx, position, loader.load)
	require.NoError(t, err)
	require.True(t, cached)

	// 2. A write commits but has not finished yet
	done := cache.BeginWrite(position)
	loader.counts[candidate] = 1

	for i := 0; i < 2; i++ {
		counts, cached, err := cache.Get(ctx, position, loader.load)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, int64(1), counts[candidate])
	}
	assert.Equal(t, int32(3), loader.calls.Load())

	// 3. Once finished the cache fills again
	done()
	done()
	_, cached, err = cache.Get(ctx, position, loader.load)
	require.NoError(t, err)
	assert.False(t, cached)
	counts, cached, err := cache.Get(ctx, position, loader.load)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, int64(1), counts[candidate])
	assert.Equal(t, int32(4), loader.calls.Load())
}

func TestTallyCachePassThroughWrite(t *testing.T) {
	cache := NewTallyCache(0, testclock.NewClock(time.Now()))
	done := cache.BeginWrite(uuid.New())
	assert.NotPanics(t, done)
}
