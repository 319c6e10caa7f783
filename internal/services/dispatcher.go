package services

import (
	"context"
	"sync"
)

// Dispatcher runs post-commit side effects on their own goroutines and keeps
// count of them so shutdown can wait until mail, events and archive uploads
// have finished.
type Dispatcher struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Go starts task in the background. Once Wait has been called, tasks run on
// the caller's goroutine instead so none is started after the drain.
func (d *Dispatcher) Go(task func()) {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		task()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		task()
	}()
}

// Wait blocks until every dispatched task returned or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	d.draining = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
