package compose

import (
	"context"
	"errors"
	"iter"
	"sync"
)

// Sequence is the ordered result of ResolveAll. Each element is constructed
// the first time it is reached and remembered for later iterations.
type Sequence struct {
	items []*element
}

type element struct {
	mu    sync.Mutex
	done  bool
	reg   *Registration
	build func(context.Context) (any, error)
	value any
	err   error
}

// get builds the element once. A failure caused by the caller's context is
// not remembered, so a later call with a live context tries again.
func (e *element) get(ctx context.Context) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return e.value, e.err
	}
	v, err := e.build(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	e.value, e.err, e.done = v, err, true
	return v, err
}

// Len returns the number of registrations in the sequence.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Metadata returns the export metadata of the i-th registration.
func (s *Sequence) Metadata(i int) Metadata {
	return s.items[i].reg.exportMetadata()
}

// All iterates the values in order, constructing each one when reached.
// Iteration continues after a failed element unless the caller stops.
func (s *Sequence) All(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		if s == nil {
			return
		}
		for _, it := range s.items {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			if !yield(it.get(ctx)) {
				return
			}
		}
	}
}

// Materialize constructs every element and returns the values in order. It
// stops at the first failure.
func (s *Sequence) Materialize(ctx context.Context) ([]any, error) {
	out := make([]any, 0, s.Len())
	for v, err := range s.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
