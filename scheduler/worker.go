package scheduler

import "sync"

/*
Worker executes tasks on one long-lived background goroutine, in submission order.
*/
type Worker struct {

	// ch is a buffered channel that holds pending tasks.
	// Buffering lets bursts of submissions through without blocking.
	ch chan func()

	// mu guards closed against Submit racing with Close.
	mu     sync.RWMutex
	closed bool

	// wg is used to wait for the worker to finish during shutdown.
	wg sync.WaitGroup
}

// NewWorker creates a Worker with a queue of the given size and starts its goroutine.
func NewWorker(buffer int) *Worker {
	if buffer < 0 {
		buffer = 0
	}
	w := &Worker{ch: make(chan func(), buffer)}

	w.wg.Add(1)
	go w.loop()

	return w
}

// Submit queues task. If the queue is full, or the worker is closed, the task
// is DROPPED and Submit returns false. Blocking here would stall the caller,
// which defeats the purpose of background work.
func (w *Worker) Submit(task func()) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return false
	}
	select {
	case w.ch <- task:
		return true
	default:
		return false
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()

	for task := range w.ch {
		task()
	}
}

/*
Close shuts the worker down gracefully.
------------------
1. Stop accepting tasks
2. Wait for the goroutine to run what is already queued

Close is safe to call more than once.
*/
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	w.wg.Wait()
}
