package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_Defaults(t *testing.T) {
	clock := NewDeterministicClock(time.Time{}, 0)
	assert.Equal(t, Epoch, clock.Current())
	assert.Equal(t, Epoch, clock.Next())
	assert.Equal(t, Epoch.Add(time.Second), clock.Current())
}

func TestDeterministicClock_NextAdvancesByStep(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewDeterministicClock(start, 30*time.Second)

	assert.Equal(t, start, clock.Next())
	assert.Equal(t, start.Add(30*time.Second), clock.Next())
	assert.Equal(t, start.Add(60*time.Second), clock.Next())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(time.Time{}, time.Minute)
	clock.Next()
	clock.Next()

	clock.Reset()
	assert.Equal(t, Epoch, clock.Next())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock(time.Time{}, time.Millisecond)

	const goroutines, calls = 10, 100
	var wg sync.WaitGroup
	seen := make(chan time.Time, goroutines*calls)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seen <- clock.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, goroutines*calls, "every Next must return a distinct time")
	assert.Equal(t, Epoch.Add(goroutines*calls*time.Millisecond), clock.Current())
}
