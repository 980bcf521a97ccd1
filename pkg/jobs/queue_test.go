package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRejectsSubmitBeforeStart(t *testing.T) {
	pool := NewPool("reports", func(context.Context, Task) error { return nil }, Options{})
	err := pool.Submit(Task{ID: "task-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestPoolProcessesSubmittedTasks(t *testing.T) {
	done := make(chan Task, 1)
	pool := NewPool("reports", func(_ context.Context, task Task) error {
		done <- task
		return nil
	}, Options{Workers: 2})
	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{ID: "task-1", Kind: "behavior"}))

	select {
	case task := <-done:
		assert.Equal(t, "task-1", task.ID)
		assert.Equal(t, "behavior", task.Kind)
		assert.False(t, task.SubmittedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("task was not processed")
	}
}

func TestPoolRetriesUntilSuccess(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	pool := NewPool("reports", func(_ context.Context, _ Task) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, Options{Retries: 5, Backoff: time.Millisecond})
	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{ID: "task-1"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not retried to completion")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}
