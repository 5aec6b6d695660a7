package transport

import (
	"context"
	"sync"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

// Queue is an in-memory FIFO transport. Enqueued messages are delivered to
// every registered handler in enqueue order by a single dispatch goroutine,
// so handlers never see messages out of order.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  []chat.ChatMessage
	handlers []Handler
	started  bool
	stopped  bool
	done     chan struct{}
}

func NewQueue() *Queue {
	q := &Queue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a message for delivery.
func (q *Queue) Enqueue(msg chat.ChatMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, msg)
	q.cond.Signal()
}

// Dequeue pops the oldest pending message without dispatching it.
func (q *Queue) Dequeue() (chat.ChatMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return chat.ChatMessage{}, false
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	return msg, true
}

// Size reports the number of undelivered messages.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Clear drops all undelivered messages.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
}

// OnMessage registers a delivery callback. All callbacks receive every
// message.
func (q *Queue) OnMessage(h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, h)
}

// Start launches the dispatch goroutine.
func (q *Queue) Start() error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return nil
	}
	q.started = true
	q.mu.Unlock()

	go q.dispatch()
	return nil
}

func (q *Queue) dispatch() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.stopped {
			q.cond.Wait()
		}
		if q.stopped && len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		msg := q.pending[0]
		q.pending = q.pending[1:]
		handlers := append([]Handler(nil), q.handlers...)
		q.mu.Unlock()

		for _, h := range handlers {
			h(context.Background(), msg)
		}
	}
}

// Stop drains pending messages, then stops the dispatcher.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.stopped = true
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.cond.Signal()
	q.mu.Unlock()
	<-q.done
}

// IsConnected is always true for the in-memory queue once started.
func (q *Queue) IsConnected() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.started && !q.stopped
}
