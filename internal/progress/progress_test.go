package progress

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateSerializesAccess(t *testing.T) {
	g := NewGate()

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, g.Holding())

	_, ok := g.TryAcquire()
	assert.False(t, ok, "gate should be busy while held")

	release()
	assert.False(t, g.Holding())

	release2, ok := g.TryAcquire()
	assert.True(t, ok)
	release2()
}

func TestGateReleaseIsIdempotent(t *testing.T) {
	g := NewGate()
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	release()
	assert.NotPanics(t, func() {
		release()
		release()
	})
	assert.False(t, g.Holding())
}

func TestGateFIFOOrdering(t *testing.T) {
	g := NewGate()
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	const n = 5
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := g.Acquire(context.Background())
			require.NoError(t, err)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			r()
		}()
		// give each goroutine a moment to enqueue before the next one starts,
		// so arrival order is deterministic for the assertion below.
		time.Sleep(5 * time.Millisecond)
	}

	release()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, i, order[i])
	}
}

func TestGateAcquireRespectsContextCancellation(t *testing.T) {
	g := NewGate()
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistryAtMostOneActive(t *testing.T) {
	r := NewRegistry()
	r.Begin("job1", "fp1", "he", 10)
	r.Begin("job2", "fp2", "ar", 10)

	r.MarkActive("job1")
	assert.Equal(t, 1, r.ActiveCount())

	// job2 cannot also become active while the gate is held by job1 in a
	// real call path; the registry itself only enforces the invariant on
	// jobs it's told to mark active, so simulate the gate-serialized usage.
	release, err := r.Gate().Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	var activeObserved int32
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rel, err := r.Gate().Acquire(context.Background())
		require.NoError(t, err)
		defer rel()
		r.MarkActive("job2")
		atomic.AddInt32(&activeObserved, int32(r.ActiveCount()))
		r.End("job2", nil)
	}()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, r.ActiveCount(), "job2 must not become active while job1 holds the gate")

	release()
	release = func() {}
	wg.Wait()
}

func TestRegistryEndRemovesJobAndIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Begin("job1", "fp1", "he", 4)
	r.MarkActive("job1")
	r.Update("job1", 4)

	require.NotPanics(t, func() {
		r.End("job1", nil)
		r.End("job1", assert.AnError)
	})

	_, ok := r.Snapshot("job1")
	assert.False(t, ok, "a finished job is removed from the registry, not just marked done")
	assert.Zero(t, r.ActiveCount())
}

func TestRegistryUpdateOnUnknownJobIsNoOp(t *testing.T) {
	r := NewRegistry()
	assert.NotPanics(t, func() {
		r.Update("ghost", 5)
		r.End("ghost", nil)
	})
	_, ok := r.Snapshot("ghost")
	assert.False(t, ok)
}
