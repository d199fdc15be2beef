package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueue_RunsTasksInOrder(t *testing.T) {
	q := NewQueue(8, zap.NewNop().Sugar())
	q.Start(context.Background())

	var mu sync.Mutex
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		_, err := q.Submit(Task{Name: "n", Run: func(ctx context.Context) error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}})
		require.NoError(t, err)
	}
	q.Stop()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestQueue_ReportsErrorsAndPanics(t *testing.T) {
	q := NewQueue(4, zap.NewNop().Sugar())
	q.Start(context.Background())

	boom := errors.New("boom")
	id, err := q.Submit(Task{ID: "t1", Name: "enrich", Run: func(ctx context.Context) error { return boom }})
	require.NoError(t, err)
	assert.Equal(t, "t1", id)
	_, err = q.Submit(Task{Name: "panic", Run: func(ctx context.Context) error { panic("oops") }})
	require.NoError(t, err)

	select {
	case te := <-q.Errors():
		assert.Equal(t, "t1", te.TaskID)
		assert.ErrorIs(t, te, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("no error reported")
	}
	select {
	case te := <-q.Errors():
		assert.Equal(t, "panic", te.Name)
		assert.Contains(t, te.Error(), "oops")
	case <-time.After(2 * time.Second):
		t.Fatal("panic not reported")
	}
	q.Stop()
}

func TestQueue_FullAndClosed(t *testing.T) {
	q := NewQueue(1, zap.NewNop().Sugar())
	// исполнитель не запущен — буфер на одну задачу
	noop := func(ctx context.Context) error { return nil }
	id, err := q.Submit(Task{Run: noop})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, q.Len())

	_, err = q.Submit(Task{Run: noop})
	assert.ErrorIs(t, err, ErrQueueFull)

	q.Stop()
	_, err = q.Submit(Task{Run: noop})
	assert.ErrorIs(t, err, ErrQueueClosed)

	// повторный Stop безопасен
	q.Stop()
}

func TestQueue_SubmitWithoutRun(t *testing.T) {
	q := NewQueue(1, zap.NewNop().Sugar())
	_, err := q.Submit(Task{Name: "empty"})
	assert.Error(t, err)
}
