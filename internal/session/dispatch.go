package session

import (
	"sync"

	"keytyper/internal/sequencer"
)

// dispatcher delivers events to listeners in order on its own goroutine.
// Enqueue never blocks.
type dispatcher struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []sequencer.Event
	listeners []func(sequencer.Event)
	closed    bool
	idle      chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{idle: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.loop()
	return d
}

func (d *dispatcher) subscribe(fn func(sequencer.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

func (d *dispatcher) enqueue(e sequencer.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, e)
	d.cond.Signal()
}

// close drains pending events and stops the loop.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.cond.Signal()
	d.mu.Unlock()
	<-d.idle
}

func (d *dispatcher) loop() {
	defer close(d.idle)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 && d.closed {
			d.mu.Unlock()
			return
		}
		e := d.queue[0]
		d.queue = d.queue[1:]
		listeners := make([]func(sequencer.Event), len(d.listeners))
		copy(listeners, d.listeners)
		d.mu.Unlock()

		for _, fn := range listeners {
			fn(e)
		}
	}
}
