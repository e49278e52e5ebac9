package lsp

import (
	"context"
	"sync"
	"time"
)

// debounce runs process for a key once requests for that key have stopped
// for duration. Each key has its own timer.
type debounce[K comparable] struct {
	duration time.Duration
	process  func(context.Context, K)

	lock   sync.Mutex
	timers map[K]*time.Timer
}

func newDebounce[K comparable](duration time.Duration, process func(context.Context, K)) *debounce[K] {
	return &debounce[K]{
		duration: duration,
		process:  process,
		timers:   map[K]*time.Timer{},
	}
}

func (d *debounce[K]) request(ctx context.Context, key K) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if timer, ok := d.timers[key]; ok {
		timer.Reset(d.duration)
		return
	}
	ctx = context.WithoutCancel(ctx)
	d.timers[key] = time.AfterFunc(d.duration, func() {
		d.lock.Lock()
		delete(d.timers, key)
		d.lock.Unlock()
		d.process(ctx, key)
	})
}

func (d *debounce[K]) stop() {
	d.lock.Lock()
	defer d.lock.Unlock()
	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
