package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// WorkerPool bounds how many record-level units of work run at once
type WorkerPool struct {
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPool(config WorkerPoolConfig, logger *slog.Logger) (*WorkerPool, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPool{
		pool:   pool,
		logger: logger,
	}, nil
}

// RunBatch submits every task to the pool and waits for all of them to return.
// A task that cannot be submitted is dropped and logged; the rest still run.
func (w *WorkerPool) RunBatch(ctx context.Context, tasks []func()) {
	var wg sync.WaitGroup

	for i, task := range tasks {
		if ctx.Err() != nil {
			w.logger.Warn("Context done, not submitting remaining batch tasks", "remaining", len(tasks)-i)
			break
		}

		wg.Add(1)
		err := w.pool.Submit(func() {
			defer wg.Done()
			task()
		})
		if err != nil {
			wg.Done()
			w.logger.Error("Failed to submit task to worker pool", "task_index", i, "error", err)
		}
	}

	wg.Wait()
}

// Shutdown releases the pool after running tasks finish
func (w *WorkerPool) Shutdown() {
	w.logger.Info("Shutting down worker pool", "running_workers", w.pool.Running())
	w.pool.Release()
}

// Running returns the number of running workers in the pool.
func (w *WorkerPool) Running() int {
	return w.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (w *WorkerPool) Capacity() int {
	return w.pool.Cap()
}
