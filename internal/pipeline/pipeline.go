package pipeline

import (
	"context"
	"errors"
	"sync"
)

var (
	errGenerateCanceled = errors.New("generate canceled")
	errGroupCanceled    = errors.New("group canceled")
	errSinkCanceled     = errors.New("sink canceled")
)

type (
	// EachFunc is called for each item of the input channel
	EachFunc[T any] func(item T) error
	// GenerateFunc produces the items of Generate, ok=false skips the item
	GenerateFunc[T any] func() (item T, ok bool, err error)
	// BelongFunc checks if an item belongs to a group
	BelongFunc[T any] func(item T, group []T) (bool, error)
	// WorkerFunc consumes an item of the input channel
	// and publishes its results to the output channel
	WorkerFunc[In, Out any] func(ctx context.Context, item In, outc chan<- Out) error
)

// Generate converts the output of a GenerateFunc to a channel.
// The only way to close the output channel is to return an error from the GenerateFunc,
// io.EOF is the conventional end of stream.
func Generate[T any](ctx context.Context, fn GenerateFunc[T]) (<-chan T, <-chan error) {
	outc := make(chan T)
	errc := make(chan error, 1)
	go func() {
		defer func() {
			close(outc)
			close(errc)
		}()
		for {
			res, ok, err := fn()
			switch {
			case err != nil:
				errc <- err
				return
			case !ok:
				continue
			}
			select {
			case <-ctx.Done():
				errc <- errGenerateCanceled
				return
			case outc <- res:
			}
		}
	}()

	return outc, errc
}

// Group is a transformer that groups consecutive items by checking against a BelongFunc
func Group[T any](ctx context.Context, inc <-chan T, belong BelongFunc[T]) (<-chan []T, <-chan error) {
	outc := make(chan []T)
	errc := make(chan error, 1)
	emit := func(group []T) bool {
		if len(group) == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case outc <- group:
			return true
		}
	}

	go func() {
		var group []T
		defer func() {
			// drain the last group
			emit(group)
			close(outc)
			close(errc)
		}()
		for item := range inc {
			if len(group) == 0 {
				group = append(group, item)
				continue
			}
			ok, err := belong(item, group)
			if err != nil {
				errc <- err
				return
			}
			if ok {
				group = append(group, item)
				continue
			}
			// the item did not belong to the group, so the group is complete
			if !emit(group) {
				group = nil
				errc <- errGroupCanceled
				return
			}
			group = []T{item}
		}
	}()
	return outc, errc
}

// Sink runs an EachFunc on each item.
// It is the final stage of the pipeline as it does not produce any channel
func Sink[T any](ctx context.Context, inc <-chan T, fn EachFunc[T]) error {
	for item := range inc {
		select {
		case <-ctx.Done():
			return errSinkCanceled
		default:
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

// WorkerPool fans out the input channel to N workers which all publish on the output channel.
// If a worker returns an error the pool reports it, skips the current item and keeps the worker.
func WorkerPool[In, Out any](ctx context.Context, concurrency int, inc <-chan In, worker WorkerFunc[In, Out]) (<-chan Out, <-chan error) {
	var wg sync.WaitGroup
	outc := make(chan Out)
	errc := make(chan error, concurrency)

	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for item := range inc {
				if err := worker(ctx, item, outc); err != nil {
					select {
					case errc <- err:
					default:
						// the error channel is full, the first errors are enough
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(outc)
		close(errc)
	}()

	return outc, errc
}

// MergeErrors is a transformer which merges all input error channels into one output channel
func MergeErrors(ctx context.Context, errs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	outc := make(chan error, len(errs))
	output := func(errc <-chan error) {
		defer wg.Done()
		for e := range errc {
			select {
			case outc <- e:
			case <-ctx.Done():
				return
			}
		}
	}

	wg.Add(len(errs))
	for _, errc := range errs {
		go output(errc)
	}

	go func() {
		wg.Wait()
		close(outc)
	}()

	return outc
}
