// Package route maps a producing node's output to its subscribers.
//
// Two route kinds exist. Static routes are fixed at construction and
// carry ordinary variable/field wiring. Dynamic routes are keyed by a
// stable per-element identity (a collection element's allocation key, or
// an object's field name), so removing one element tears down exactly its
// own subscriptions and never renumbers siblings.
//
// Fan-out order is deterministic: static routes in wiring order, dynamic
// routes in key insertion order. The engine's dirty queue inherits this
// order, which is what keeps tick propagation replayable.
package route

import (
	"github.com/BoonLang/boon-sub001/internal/arena"
)

// Table is the routing table. Owned by the engine's single-writer loop;
// not safe for concurrent mutation.
type Table struct {
	static  map[arena.Handle]*arena.HandleList
	dynamic map[arena.Handle]*keyedRoutes
}

// keyedRoutes keeps dynamic routes for one producer in key insertion
// order.
type keyedRoutes struct {
	order []string
	subs  map[string]*arena.HandleList
}

// NewTable creates an empty routing table.
func NewTable() *Table {
	return &Table{
		static:  make(map[arena.Handle]*arena.HandleList),
		dynamic: make(map[arena.Handle]*keyedRoutes),
	}
}

// AddStatic subscribes sub to producer. Duplicate routes are ignored.
func (t *Table) AddStatic(producer, sub arena.Handle) {
	l := t.static[producer]
	if l == nil {
		l = &arena.HandleList{}
		t.static[producer] = l
	}
	if !l.Contains(sub) {
		l.Append(sub)
	}
}

// AddDynamic subscribes sub to producer under an element identity key.
func (t *Table) AddDynamic(producer arena.Handle, key string, sub arena.Handle) {
	kr := t.dynamic[producer]
	if kr == nil {
		kr = &keyedRoutes{subs: make(map[string]*arena.HandleList)}
		t.dynamic[producer] = kr
	}
	l := kr.subs[key]
	if l == nil {
		l = &arena.HandleList{}
		kr.subs[key] = l
		kr.order = append(kr.order, key)
	}
	if !l.Contains(sub) {
		l.Append(sub)
	}
}

// RemoveStatic removes one static route. Returns false if absent.
func (t *Table) RemoveStatic(producer, sub arena.Handle) bool {
	l := t.static[producer]
	if l == nil {
		return false
	}
	return l.Remove(sub)
}

// RemoveDynamic removes all routes under one element key of a producer.
// Sibling keys keep their subscriptions untouched. Returns false if the
// key had no routes.
func (t *Table) RemoveDynamic(producer arena.Handle, key string) bool {
	kr := t.dynamic[producer]
	if kr == nil {
		return false
	}
	if _, ok := kr.subs[key]; !ok {
		return false
	}
	delete(kr.subs, key)
	for i, k := range kr.order {
		if k == key {
			kr.order = append(kr.order[:i], kr.order[i+1:]...)
			break
		}
	}
	return true
}

// FanOutStatic returns only the static subscribers of producer, in
// wiring order. Whole-value and delta emissions use this: dynamic
// subscribers are keyed to a single element identity and must never see
// traffic for siblings or for the collection as a whole.
func (t *Table) FanOutStatic(producer arena.Handle) []arena.Handle {
	l := t.static[producer]
	if l == nil {
		return nil
	}
	return l.All()
}

// FanOutKey returns the subscribers registered under one element key.
func (t *Table) FanOutKey(producer arena.Handle, key string) []arena.Handle {
	kr := t.dynamic[producer]
	if kr == nil {
		return nil
	}
	l := kr.subs[key]
	if l == nil {
		return nil
	}
	return l.All()
}

// Keys returns the producer's dynamic route keys in insertion order.
func (t *Table) Keys(producer arena.Handle) []string {
	kr := t.dynamic[producer]
	if kr == nil {
		return nil
	}
	out := make([]string, len(kr.order))
	copy(out, kr.order)
	return out
}

// Drop removes every route mentioning h, as producer or subscriber. Called
// on scope teardown; messages already in flight to h resolve stale at the
// arena instead.
func (t *Table) Drop(h arena.Handle) {
	delete(t.static, h)
	delete(t.dynamic, h)
	for _, l := range t.static {
		l.Remove(h)
	}
	for _, kr := range t.dynamic {
		for _, l := range kr.subs {
			l.Remove(h)
		}
	}
}

// StaticRoutes returns a copy of the static adjacency, used by the
// construction-time topology validator.
func (t *Table) StaticRoutes() map[arena.Handle][]arena.Handle {
	out := make(map[arena.Handle][]arena.Handle, len(t.static))
	for p, l := range t.static {
		out[p] = l.All()
	}
	return out
}
