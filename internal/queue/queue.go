package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kickscout/sneaker-tracker/internal/models"
)

var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrQueueClosed = errors.New("queue is closed")
)

// Task is one scrape request waiting for a worker: an article and the
// ordered brand list to try it against.
type Task struct {
	ID        string
	Article   string
	Brands    []models.Brand
	Priority  int
	Retries   int
	CreatedAt time.Time
}

type Queue interface {
	Push(task *Task) error
	Pop(ctx context.Context) (*Task, error)
	Size() int
	Close() error
}

// InMemoryQueue is a mutex-guarded priority queue. Blocked Pop calls
// register a wakeup channel instead of sharing a condition variable, so
// the lock never changes hands between goroutines and cancellation
// cannot race an unlock.
type InMemoryQueue struct {
	mu      sync.Mutex
	tasks   []*Task
	waiters []chan struct{}
	closed  bool
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		tasks: make([]*Task, 0),
	}
}

func (q *InMemoryQueue) Push(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.tasks = append(q.tasks, task)
	q.sortByPriority()
	q.wakeLocked()

	return nil
}

// Pop returns the highest-priority task, blocking until one is pushed,
// the queue is closed, or ctx is cancelled. Wakeups are broadcast and
// re-checked under the lock, so a cancelled waiter never swallows a
// task meant for another.
func (q *InMemoryQueue) Pop(ctx context.Context) (*Task, error) {
	for {
		q.mu.Lock()

		if len(q.tasks) > 0 {
			task := q.tasks[0]
			q.tasks = q.tasks[1:]
			q.mu.Unlock()
			return task, nil
		}

		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}

		wake := make(chan struct{})
		q.waiters = append(q.waiters, wake)
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			q.dropWaiter(wake)
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

func (q *InMemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.wakeLocked()

	return nil
}

// wakeLocked releases every parked Pop. Callers hold q.mu.
func (q *InMemoryQueue) wakeLocked() {
	for _, wake := range q.waiters {
		close(wake)
	}
	q.waiters = nil
}

func (q *InMemoryQueue) dropWaiter(wake chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, w := range q.waiters {
		if w == wake {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}

func (q *InMemoryQueue) sortByPriority() {
	for i := 0; i < len(q.tasks)-1; i++ {
		for j := 0; j < len(q.tasks)-i-1; j++ {
			if q.tasks[j].Priority < q.tasks[j+1].Priority {
				q.tasks[j], q.tasks[j+1] = q.tasks[j+1], q.tasks[j]
			}
		}
	}
}
