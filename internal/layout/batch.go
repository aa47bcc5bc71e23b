package layout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vanshika/fraudring/internal/ring"
)

// TaskError accumulates multiple errors produced during a batch run.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error { return e.Errors }

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Batch lays out many independent rings using a worker pool.
type Batch struct {
	cfg     Config
	workers int
}

// NewBatch creates a Batch with the provided concurrency.
func NewBatch(cfg Config, workers int) *Batch {
	if workers <= 0 {
		workers = 4
	}
	return &Batch{cfg: cfg, workers: workers}
}

// Run settles every ring and returns the results in input order. Rings are
// independent, so each gets its own simulation. Nil entries and repeated ring
// ids are reported in the returned *TaskError and leave a zero Result in place.
// A cancelled context stops dispatching and returns ctx.Err().
func (b *Batch) Run(ctx context.Context, rings []*ring.Ring) ([]Result, error) {
	results := make([]Result, len(rings))
	if len(rings) == 0 {
		return results, nil
	}

	var taskErr TaskError
	valid := make([]int, 0, len(rings))
	seen := make(map[string]struct{}, len(rings))
	for i, r := range rings {
		if r == nil {
			taskErr.append(fmt.Errorf("ring %d: nil ring", i))
			continue
		}
		if _, dup := seen[r.ID()]; dup {
			taskErr.append(fmt.Errorf("ring %d: duplicate ring id %q", i, r.ID()))
			continue
		}
		seen[r.ID()] = struct{}{}
		valid = append(valid, i)
	}

	err := b.run(ctx, len(valid), func(idx int) error {
		i := valid[idx]
		res := New(rings[i], b.cfg).Run(ctx)
		if !res.Settled {
			return ctx.Err()
		}
		results[i] = res
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return results, err
		}
		var te *TaskError
		if errors.As(err, &te) {
			for _, e := range te.Errors {
				taskErr.append(e)
			}
		}
	}
	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, taskErr.asError()
}

func (b *Batch) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
