package storage

import (
	"context"
	"sync"
	"time"

	"github.com/moisesjgomez/open-pet-platform/internal/logging"
)

const (
	// writeQueueSize is the buffer size for pending writes.
	// If full, writes are dropped (non-blocking).
	writeQueueSize = 1000

	// defaultWriteTimeout bounds each queued write.
	defaultWriteTimeout = 5 * time.Second
)

// WriteFunc is a best-effort durable write.
type WriteFunc func(ctx context.Context) error

type pendingWrite struct {
	name string
	fn   WriteFunc
}

// Writer runs named best-effort writes in the background.
//
// Submit never blocks and never returns an error: failures are logged and
// swallowed. Stop drains whatever is still queued.
type Writer struct {
	queue    chan pendingWrite
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	timeout  time.Duration

	mu      sync.Mutex
	stopped bool
	dropped int
	failed  int
}

// NewWriter starts a background writer. A zero timeout selects the default.
func NewWriter(timeout time.Duration) *Writer {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	w := &Writer{
		queue:    make(chan pendingWrite, writeQueueSize),
		stopChan: make(chan struct{}),
		timeout:  timeout,
	}

	w.wg.Add(1)
	go w.process()

	return w
}

// Submit queues fn under name. If the queue is full or the writer is
// stopped, the write is dropped and a warning is logged.
func (w *Writer) Submit(name string, fn WriteFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		w.dropped++
		logging.Warn().Str("op", name).Msg("writer stopped, dropping write")
		return
	}

	select {
	case w.queue <- pendingWrite{name: name, fn: fn}:
	default:
		w.dropped++
		logging.Warn().Str("op", name).Msg("write queue full, dropping write")
	}
}

// Stop gracefully shuts down the writer, running remaining queued writes.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()

		close(w.stopChan)
		w.wg.Wait()
	})
}

// Pending returns the number of queued writes.
func (w *Writer) Pending() int {
	return len(w.queue)
}

// Stats returns how many writes were dropped and how many failed.
func (w *Writer) Stats() (dropped, failed int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped, w.failed
}

func (w *Writer) process() {
	defer w.wg.Done()

	for {
		select {
		case pw := <-w.queue:
			w.run(pw)

		case <-w.stopChan:
			for {
				select {
				case pw := <-w.queue:
					w.run(pw)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) run(pw pendingWrite) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := pw.fn(ctx); err != nil {
		w.mu.Lock()
		w.failed++
		w.mu.Unlock()
		logging.Warn().Err(err).Str("op", pw.name).Msg("best-effort write failed")
	}
}
