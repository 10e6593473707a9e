// ABOUTME: Per-chat serial work queues backed by one goroutine per busy chat
// ABOUTME: Same-chat tasks run in order; workers exit when their queue drains

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type lane struct {
	tasks []func()
}

// Lanes runs tasks serially per key and concurrently across keys.
type Lanes struct {
	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewLanes creates an empty set of lanes.
func NewLanes(logger *slog.Logger) *Lanes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lanes{
		lanes:  make(map[string]*lane),
		logger: logger.With("component", "lanes"),
	}
}

// Submit queues task on the lane for key. It returns false once Close has
// been called.
func (l *Lanes) Submit(key string, task func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	if ln, ok := l.lanes[key]; ok {
		ln.tasks = append(ln.tasks, task)
		return true
	}

	ln := &lane{tasks: []func(){task}}
	l.lanes[key] = ln
	l.wg.Add(1)
	go l.drain(key, ln)
	return true
}

func (l *Lanes) drain(key string, ln *lane) {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		if len(ln.tasks) == 0 {
			delete(l.lanes, key)
			l.mu.Unlock()
			return
		}
		task := ln.tasks[0]
		ln.tasks[0] = nil
		ln.tasks = ln.tasks[1:]
		l.mu.Unlock()

		l.run(key, task)
	}
}

// run isolates a panicking task so the lane keeps draining.
func (l *Lanes) run(key string, task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "lane", key, "panic", fmt.Sprint(r))
		}
	}()
	task()
}

// Active returns the number of lanes with a running worker.
func (l *Lanes) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

// Close stops accepting tasks. Queued tasks still run.
func (l *Lanes) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// Wait blocks until every queued task has run or ctx is done.
func (l *Lanes) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
