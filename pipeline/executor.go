package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrExecutorClosed is returned when a task is submitted after Close
var ErrExecutorClosed = errors.New("executor is closed")

// Executor runs submitted tasks one at a time, in submission order, on a
// single background goroutine
type Executor struct {
	// tasks waiting to be run
	tasks chan func()
	// done is closed when the worker goroutine exits
	done chan struct{}
	// mu guards closed against concurrent Submit and Close
	mu     sync.RWMutex
	closed bool
	close  sync.Once
	log    logrus.FieldLogger
}

// NewExecutor starts the worker goroutine.  queue is the number of tasks
// that can wait before Submit blocks.
func NewExecutor(queue int, log logrus.FieldLogger) *Executor {

	e := &Executor{
		tasks: make(chan func(), max(queue, 1)),
		done:  make(chan struct{}),
		log:   log,
	}

	go e.run()

	return e
}

func (e *Executor) run() {

	defer close(e.done)

	for task := range e.tasks {
		e.exec(task)
	}
}

// exec runs a single task, a panicking task is logged and does not stop the
// worker
func (e *Executor) exec(task func()) {

	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", fmt.Sprint(r)).Error("Background task panicked")
		}
	}()

	task()
}

// Submit queues a task to be run on the worker
func (e *Executor) Submit(task func()) error {

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrExecutorClosed
	}

	e.tasks <- task

	return nil
}

// Close stops accepting tasks and waits for the queued ones to finish
func (e *Executor) Close() {
	e.close.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.tasks)
		e.mu.Unlock()

		<-e.done
	})
}
