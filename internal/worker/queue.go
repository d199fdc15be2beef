// Package worker — очередь фоновых задач с одним исполнителем.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull — буфер очереди заполнен.
	ErrQueueFull = errors.New("task queue is full")
	// ErrQueueClosed — очередь остановлена.
	ErrQueueClosed = errors.New("task queue is closed")
)

// Task — единица фоновой работы.
type Task struct {
	ID   string
	Name string
	Run  func(ctx context.Context) error
}

// TaskError — ошибка выполнения задачи, отдаётся через Errors().
type TaskError struct {
	TaskID string
	Name   string
	Err    error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("task %s (%s): %v", e.Name, e.TaskID, e.Err)
}

func (e TaskError) Unwrap() error { return e.Err }

// Queue выполняет задачи по одной в порядке поступления.
type Queue struct {
	logger *zap.SugaredLogger
	tasks  chan Task
	errs   chan TaskError

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewQueue создаёт очередь с буфером size.
func NewQueue(size int, logger *zap.SugaredLogger) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{
		logger: logger,
		tasks:  make(chan Task, size),
		errs:   make(chan TaskError, size),
	}
}

// Start запускает исполнителя. Повторный вызов ничего не делает.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	q.wg.Add(1)
	go q.loop(ctx)
}

// Submit ставит задачу в очередь, не блокируясь. Пустой ID заполняется UUID.
func (q *Queue) Submit(t Task) (string, error) {
	if t.Run == nil {
		return "", errors.New("task has no run func")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", ErrQueueClosed
	}
	select {
	case q.tasks <- t:
		return t.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Len — число задач, ожидающих выполнения.
func (q *Queue) Len() int { return len(q.tasks) }

// Errors отдаёт ошибки задач. Если читателя нет и буфер полон,
// ошибка только пишется в лог.
func (q *Queue) Errors() <-chan TaskError { return q.errs }

// Stop закрывает очередь и ждёт завершения уже поставленных задач.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	started := q.started
	q.mu.Unlock()

	if started {
		q.wg.Wait()
	}
	close(q.errs)
}

func (q *Queue) loop(ctx context.Context) {
	defer q.wg.Done()
	for t := range q.tasks {
		q.run(ctx, t)
	}
}

func (q *Queue) run(ctx context.Context, t Task) {
	defer func() {
		if r := recover(); r != nil {
			q.report(TaskError{TaskID: t.ID, Name: t.Name, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	q.logger.Debugw("Task started", "task_id", t.ID, "task", t.Name)
	if err := t.Run(ctx); err != nil {
		q.report(TaskError{TaskID: t.ID, Name: t.Name, Err: err})
		return
	}
	q.logger.Debugw("Task finished", "task_id", t.ID, "task", t.Name)
}

func (q *Queue) report(te TaskError) {
	select {
	case q.errs <- te:
	default:
		q.logger.Errorw("Task failed", "task_id", te.TaskID, "task", te.Name, "error", te.Err)
	}
}
