package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStepClock_FirstCallReturnsStart(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)
	assert.Equal(t, epoch, clock.Now())
	assert.Equal(t, int64(1), clock.Calls())
}

func TestStepClock_AdvancesByStep(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)

	clock.Now()
	assert.Equal(t, epoch.Add(time.Second), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Second), clock.Now())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(epoch, time.Minute)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Calls())
	assert.Equal(t, epoch, clock.Now())
}

func TestStepClock_ThreadSafe(t *testing.T) {
	clock := NewStepClock(epoch, time.Millisecond)
	const numGoroutines = 50
	const callsPerGoroutine = 20

	seen := make(chan time.Time, numGoroutines*callsPerGoroutine)
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				seen <- clock.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, numGoroutines*callsPerGoroutine, "every call must return a distinct time")
}
