package coordinator

import "sync"

// serialDispatcher runs callbacks one at a time on its own goroutine. It
// stands in for the host's main thread: document publication and listener
// notification never interleave.
type serialDispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool
	done    chan struct{}
}

func newSerialDispatcher() *serialDispatcher {
	d := &serialDispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

// Dispatch implements jobs.Dispatcher. Calls after stop are dropped.
func (d *serialDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.queue = append(d.queue, fn)
	d.cond.Signal()
}

// stop runs what is already queued and then exits
func (d *serialDispatcher) stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		d.cond.Broadcast()
	}
	d.mu.Unlock()
	<-d.done
}

func (d *serialDispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.stopped {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		batch := d.queue
		d.queue = nil
		d.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
	}
}

// flush blocks until every callback queued before the call has run
func (d *serialDispatcher) flush() {
	ran := make(chan struct{})
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, func() { close(ran) })
	d.cond.Signal()
	d.mu.Unlock()
	<-ran
}
