package arena

import (
	"errors"
	"fmt"
)

// Handle addresses one arena slot. The generation half invalidates the
// handle once the slot is freed: a handle whose generation no longer
// matches the slot's current generation must never resolve to a live node.
//
// The zero Handle is never valid - generations start at 1.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether h is the zero handle (never allocated).
func (h Handle) IsZero() bool {
	return h.Gen == 0
}

// String renders the handle as "#index@gen" for logs and traces.
func (h Handle) String() string {
	return fmt.Sprintf("#%d@%d", h.Index, h.Gen)
}

// StaleHandleError is returned when resolving a handle whose generation
// does not match the slot's current generation. This is a normal, expected
// condition after scope teardown: messages already in flight to a freed
// node resolve stale and are dropped, not escalated.
type StaleHandleError struct {
	Handle     Handle
	CurrentGen uint32
}

func (e *StaleHandleError) Error() string {
	return fmt.Sprintf("stale handle %s: slot is at generation %d", e.Handle, e.CurrentGen)
}

// IsStale reports whether err is (or wraps) a StaleHandleError.
func IsStale(err error) bool {
	var se *StaleHandleError
	return errors.As(err, &se)
}

type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// Arena is contiguous reusable storage addressed by generation-checked
// handles. Alloc preferentially reuses freed indices (LIFO free list);
// Free is the only operation that bumps a slot's generation.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// New creates an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Alloc stores v in a slot and returns its handle. A recycled slot keeps
// the generation it was bumped to on free, so handles from the previous
// occupancy stay invalid.
func (a *Arena[T]) Alloc(v T) Handle {
	a.live++

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.live = true
		s.val = v
		return Handle{Index: idx, Gen: s.gen}
	}

	a.slots = append(a.slots, slot[T]{gen: 1, live: true, val: v})
	return Handle{Index: uint32(len(a.slots) - 1), Gen: 1}
}

// Free releases the slot addressed by h. The slot's generation is bumped
// and its storage cleared before the index is pushed onto the free list,
// so no two live handles ever share (index, generation).
//
// Freeing an already-stale handle returns StaleHandleError.
func (a *Arena[T]) Free(h Handle) error {
	s, err := a.lookup(h)
	if err != nil {
		return err
	}

	var zero T
	s.val = zero
	s.live = false
	s.gen++
	a.live--
	a.free = append(a.free, h.Index)
	return nil
}

// Resolve returns a pointer to the value stored at h, or StaleHandleError
// if the slot has been freed (or never allocated) since h was issued.
//
// The pointer is only valid until the next Alloc or Free; callers must not
// retain it across processing steps.
func (a *Arena[T]) Resolve(h Handle) (*T, error) {
	s, err := a.lookup(h)
	if err != nil {
		return nil, err
	}
	return &s.val, nil
}

func (a *Arena[T]) lookup(h Handle) (*slot[T], error) {
	if int(h.Index) >= len(a.slots) {
		return nil, &StaleHandleError{Handle: h}
	}
	s := &a.slots[h.Index]
	if !s.live || s.gen != h.Gen {
		return nil, &StaleHandleError{Handle: h, CurrentGen: s.gen}
	}
	return s, nil
}

// Live returns the number of live slots.
func (a *Arena[T]) Live() int {
	return a.live
}

// Cap returns the total number of slots ever allocated (live plus freed).
func (a *Arena[T]) Cap() int {
	return len(a.slots)
}

// Range calls f for each live slot in index order. Iteration stops if f
// returns false. Index order is stable, which keeps snapshot record order
// deterministic.
func (a *Arena[T]) Range(f func(Handle, *T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		if !f(Handle{Index: uint32(i), Gen: s.gen}, &s.val) {
			return
		}
	}
}
