package device

import (
	"context"
	"sync"
)

// guarded holds a vendor status value. Readers get a copy; writers replace it
// under the lock.
type guarded[T any] struct {
	mu sync.RWMutex
	v  T
}

func (g *guarded[T]) get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.v
}

func (g *guarded[T]) update(fn func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.v)
}

func (g *guarded[T]) set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.v = v
}

// optimistic applies mutate locally, then runs call. A failed call runs the
// undo returned by mutate, so only the fields this mutation touched are
// restored.
func optimistic[T any](ctx context.Context, g *guarded[T], mutate func(*T) (undo func()), call func(context.Context) error) error {
	var undo func()
	g.update(func(v *T) { undo = mutate(v) })
	if err := call(ctx); err != nil {
		g.update(func(*T) { undo() })
		return err
	}
	return nil
}

// swap stores v in *p and returns the undo. The undo leaves *p alone when
// something else has written it since.
func swap[V comparable](p *V, v V) (undo func()) {
	old := *p
	*p = v
	return func() {
		if *p == v {
			*p = old
		}
	}
}

func undoAll(undos ...func()) func() {
	return func() {
		for _, u := range undos {
			u()
		}
	}
}
