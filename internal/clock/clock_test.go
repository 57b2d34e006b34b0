package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtual_TimersRunInOrder(t *testing.T) {
	v := NewVirtual()
	var got []string

	v.After(500*time.Millisecond, func() { got = append(got, "settle") })
	v.After(10*time.Millisecond, func() { got = append(got, "reveal") })
	v.Post(func() { got = append(got, "now") })

	v.RunReady()
	assert.Equal(t, []string{"now"}, got)

	v.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"now", "reveal"}, got)

	v.Advance(489 * time.Millisecond)
	assert.Len(t, got, 2)

	v.Advance(time.Millisecond)
	assert.Equal(t, []string{"now", "reveal", "settle"}, got)
	assert.Equal(t, 500*time.Millisecond, v.Now())
}

func TestVirtual_SameDeadlineKeepsPostOrder(t *testing.T) {
	v := NewVirtual()
	var got []int
	for i := 0; i < 5; i++ {
		v.After(time.Second, func() { got = append(got, i) })
	}
	v.Advance(time.Second)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestVirtual_JobsCompleteInChosenOrder(t *testing.T) {
	v := NewVirtual()
	var got []string

	v.Go(func() func() { return func() { got = append(got, "a") } })
	v.Go(func() func() { return func() { got = append(got, "b") } })
	require.Equal(t, 2, v.Jobs())

	v.RunJob(1)
	v.RunJob(0)
	assert.Equal(t, []string{"b", "a"}, got)
	assert.Zero(t, v.Jobs())
}

func TestVirtual_SettleBounded(t *testing.T) {
	v := NewVirtual()
	runs := 0
	var tick func()
	tick = func() {
		runs++
		v.After(time.Second, tick)
	}
	v.Post(tick)
	v.Settle(5)
	assert.Equal(t, 5, runs)
}

func TestLoop_RunsTasksInOrder(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	l.Post(func() { got = append(got, 1) })
	l.Go(func() func() {
		return func() {
			mu.Lock()
			got = append(got, 2)
			mu.Unlock()
			l.After(5*time.Millisecond, func() {
				got = append(got, 3)
				close(done)
			})
		}
	})

	go l.Run(ctx)

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("loop did not run all tasks")
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestLoop_NextHonoursContext(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := l.Next(ctx)
	assert.False(t, ok)
}
