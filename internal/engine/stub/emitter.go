package stub

import "sync"

// emitter delivers native callbacks from its own goroutine, in push order,
// the way a real engine calls back from its worker threads.
type emitter struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newEmitter() *emitter {
	e := &emitter{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *emitter) push(fn func()) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, fn)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *emitter) pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *emitter) pop() (func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || len(e.queue) == 0 {
		return nil, false
	}
	fn := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	return fn, true
}

func (e *emitter) run() {
	defer close(e.done)
	for {
		select {
		case <-e.stop:
			return
		case <-e.wake:
		}
		for {
			fn, ok := e.pop()
			if !ok {
				break
			}
			fn()
		}
	}
}

// close discards undelivered callbacks and waits for the one in progress.
func (e *emitter) close() {
	e.once.Do(func() {
		e.mu.Lock()
		e.stopped = true
		e.queue = nil
		e.mu.Unlock()
		close(e.stop)
	})
	<-e.done
}
