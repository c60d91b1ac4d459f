// Package fetch simulates the network boundary in front of task data.
package fetch

import (
	"context"
	"time"

	"rewario/internal/catalog"
	"rewario/internal/domain"
)

// Source supplies task data. The local catalog and the HTTP SDK client both implement it.
type Source interface {
	ListTasks(ctx context.Context, f catalog.Filter) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
}

// Local adapts an in-process catalog.
type Local struct {
	Catalog *catalog.Catalog
}

func (l Local) ListTasks(_ context.Context, f catalog.Filter) ([]domain.Task, error) {
	return l.Catalog.List(f), nil
}

func (l Local) GetTask(_ context.Context, id string) (domain.Task, error) {
	return l.Catalog.Get(id)
}

// Future resolves once with a value or an error.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func run[T any](delay time.Duration, fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if delay > 0 {
			time.Sleep(delay)
		}
		f.val, f.err = fn()
	}()
	return f
}

// Done is closed when the result is ready.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the result is ready.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.val, f.err
}

// Client delays each call by a fixed latency. Zero latencies resolve immediately.
type Client struct {
	Source      Source
	ListLatency time.Duration
	GetLatency  time.Duration
}

func (c Client) ListTasks(ctx context.Context, f catalog.Filter) *Future[[]domain.Task] {
	return run(c.ListLatency, func() ([]domain.Task, error) {
		return c.Source.ListTasks(ctx, f)
	})
}

func (c Client) GetTask(ctx context.Context, id string) *Future[domain.Task] {
	return run(c.GetLatency, func() (domain.Task, error) {
		return c.Source.GetTask(ctx, id)
	})
}
