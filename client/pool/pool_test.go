package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestWorkerPool_LimitsConcurrency(t *testing.T) {
	p := NewWorkerPool(2, zaptest.NewLogger(t))

	var running, peak atomic.Int32
	for i := 0; i < 8; i++ {
		p.Submit(context.Background(), func(ctx context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		}, nil)
	}

	p.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(0), running.Load())
}

func TestWorkerPool_ReportsErrors(t *testing.T) {
	p := NewWorkerPool(3, zaptest.NewLogger(t))

	boom := errors.New("task failed")
	var mu sync.Mutex
	var results []error

	collect := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, err)
	}

	p.Submit(context.Background(), func(context.Context) error { return nil }, collect)
	p.Submit(context.Background(), func(context.Context) error { return boom }, collect)
	p.Wait()

	assert.Len(t, results, 2)
	assert.Contains(t, results, boom)
	assert.Contains(t, results, nil)
}

func TestWorkerPool_RecoversPanics(t *testing.T) {
	p := NewWorkerPool(1, zaptest.NewLogger(t))

	var got error
	p.Submit(context.Background(), func(context.Context) error {
		panic("nil map write")
	}, func(err error) { got = err })
	p.Wait()

	assert.EqualError(t, got, "job panicked: nil map write")
}

func TestWorkerPool_CancelledBeforeSlot(t *testing.T) {
	p := NewWorkerPool(1, zaptest.NewLogger(t))

	started := make(chan struct{})
	release := make(chan struct{})
	p.Submit(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	}, nil)
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	var got error
	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(ctx, func(context.Context) error {
		ran.Store(true)
		return nil
	}, func(err error) {
		got = err
		wg.Done()
	})

	cancel()
	wg.Wait()
	close(release)
	p.Wait()

	assert.False(t, ran.Load())
	assert.ErrorIs(t, got, context.Canceled)
}
