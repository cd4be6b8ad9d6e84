package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clockStart = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

func TestClock_StepsMonotonically(t *testing.T) {
	clock := NewClock(clockStart, time.Second)

	assert.Equal(t, clockStart, clock.Now())
	assert.Equal(t, clockStart.Add(time.Second), clock.Now())
	assert.Equal(t, clockStart.Add(2*time.Second), clock.Now())
}

func TestClock_PeekDoesNotAdvance(t *testing.T) {
	clock := NewClock(clockStart, time.Minute)

	assert.Equal(t, clockStart, clock.Peek())
	assert.Equal(t, clockStart, clock.Peek())
	assert.Equal(t, clockStart, clock.Now())
	assert.Equal(t, clockStart.Add(time.Minute), clock.Peek())
}

func TestClock_Reset(t *testing.T) {
	clock := NewClock(clockStart, time.Second)

	first := []time.Time{clock.Now(), clock.Now(), clock.Now()}
	clock.Reset()
	second := []time.Time{clock.Now(), clock.Now(), clock.Now()}

	assert.Equal(t, first, second)
}

func TestClock_ThreadSafe(t *testing.T) {
	clock := NewClock(clockStart, time.Second)
	const goroutines = 50
	const callsEach = 20

	var wg sync.WaitGroup
	wg.Add(goroutines)
	seen := make(chan time.Time, goroutines*callsEach)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsEach; j++ {
				seen <- clock.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	// Every instant handed out exactly once.
	unique := make(map[time.Time]bool)
	for ts := range seen {
		require.False(t, unique[ts], "instant %v handed out twice", ts)
		unique[ts] = true
	}
	assert.Len(t, unique, goroutines*callsEach)
}

func TestOpenStoreDeterministic(t *testing.T) {
	a := OpenStore(t)
	SeedSample(t, a)
	b := OpenStore(t)
	SeedSample(t, b)

	ctx := context.Background()
	uidA, err := a.UIDByNaturalKey(ctx, "ingredients", "slug", "t55-flour")
	require.NoError(t, err)
	uidB, err := b.UIDByNaturalKey(ctx, "ingredients", "slug", "t55-flour")
	require.NoError(t, err)
	assert.Equal(t, uidA, uidB)

	for table, want := range SampleCounts {
		n, err := a.CountRows(ctx, table)
		require.NoError(t, err)
		assert.Equal(t, want, n, table)
	}
}
