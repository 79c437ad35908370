package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_FirstNowIsStart(t *testing.T) {
	clock := NewDeterministicClock(1700000000, 1)
	assert.Equal(t, int64(1700000000), clock.Now())
	assert.Equal(t, int64(1700000000), clock.Current())
}

func TestDeterministicClock_Steps(t *testing.T) {
	clock := NewDeterministicClock(100, 10)

	assert.Equal(t, int64(100), clock.Now())
	assert.Equal(t, int64(110), clock.Now())
	assert.Equal(t, int64(120), clock.Now())
	assert.Equal(t, int64(120), clock.Current())
}

func TestDeterministicClock_Frozen(t *testing.T) {
	clock := NewDeterministicClock(42, 0)
	for i := 0; i < 3; i++ {
		assert.Equal(t, int64(42), clock.Now())
	}
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(5, 1)
	clock.Now()
	clock.Now()
	assert.Equal(t, int64(6), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(5), clock.Now())
}

func TestDeterministicClock_ConcurrentAccess(t *testing.T) {
	clock := NewDeterministicClock(1, 1)
	const goroutines = 50
	const perGoroutine = 20

	var wg sync.WaitGroup
	seen := make(chan int64, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				seen <- clock.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for v := range seen {
		require.False(t, unique[v], "duplicate timestamp %d", v)
		unique[v] = true
	}
	assert.Len(t, unique, goroutines*perGoroutine)
	assert.Equal(t, int64(goroutines*perGoroutine), clock.Current())
}
