package payload

import (
	"slices"
	"unicode/utf16"

	"github.com/BoonLang/boon-sub001/internal/arena"
)

// Value is the sealed payload union. Only the types in this package
// implement it. No floats anywhere - fractional arithmetic breaks
// cross-target determinism and has no hardware mapping.
type Value interface {
	value()
}

// Absent means the node has no value yet. Asking a node that has never
// fired for its value yields Absent, not an error and not a block.
type Absent struct{}

func (Absent) value() {}

// Skip means a body declined to emit for this firing. The engine drops
// the emission; subscribers are not notified.
type Skip struct{}

func (Skip) value() {}

// Int is a 64-bit integer value.
type Int int64

func (Int) value() {}

// Text is a text value.
type Text string

func (Text) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Tag is a variant/enum tag value.
type Tag string

func (Tag) value() {}

// Object is a field-keyed structural value. Use SortedKeys for
// deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// Element is one list entry: a stable identity key plus a value. The key
// is an allocation identity (UUIDv7 in production), not a position, so
// removing one element never renumbers its siblings.
type Element struct {
	Key   string
	Value Value
}

func (Element) value() {}

// List is a full-value structural collection.
type List []Element

func (List) value() {}

// Ref is a handle to the node that owns a structural collection. Streaming
// consumers hold a Ref and subscribe for deltas instead of copying the
// collection.
type Ref struct {
	Node arena.Handle
}

func (Ref) value() {}

// Flushed wraps a value that short-circuits normal processing. Transform
// stages pass a Flushed payload through unchanged until it reaches a node
// declared as an unwrap boundary, where the inner value becomes the
// ordinary value again.
type Flushed struct {
	Inner Value
}

func (Flushed) value() {}

// SortedKeys returns the object's keys in RFC 8785 canonical order
// (UTF-16 code units). Go's default string sort is UTF-8 byte order,
// which differs for supplementary-plane characters.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < len(a16) && i < len(b16); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// Find returns the index of the element with the given identity key, or
// -1 if absent.
func (l List) Find(key string) int {
	for i, e := range l {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// Clone returns a shallow copy of the list. Element values are immutable
// by convention, so sharing them is safe.
func (l List) Clone() List {
	out := make(List, len(l))
	copy(out, l)
	return out
}

// Equal reports deep structural equality between two payload values.
// Deltas are never compared (they are transport, not state).
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Absent:
		_, ok := b.(Absent)
		return ok
	case Skip:
		_, ok := b.(Skip)
		return ok
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Tag:
		bv, ok := b.(Tag)
		return ok && av == bv
	case Ref:
		bv, ok := b.(Ref)
		return ok && av == bv
	case Flushed:
		bv, ok := b.(Flushed)
		return ok && Equal(av.Inner, bv.Inner)
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case Element:
		bv, ok := b.(Element)
		return ok && av.Key == bv.Key && Equal(av.Value, bv.Value)
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i].Key != bv[i].Key || !Equal(av[i].Value, bv[i].Value) {
				return false
			}
		}
		return true
	case ListDelta:
		bv, ok := b.(ListDelta)
		return ok && av.Base == bv.Base && av.Next == bv.Next && slicesEqualOps(av.Ops, bv.Ops)
	case ObjectDelta:
		bv, ok := b.(ObjectDelta)
		return ok && av.Base == bv.Base && av.Next == bv.Next && av.Field == bv.Field && Equal(av.Value, bv.Value)
	default:
		return false
	}
}

func slicesEqualOps(a, b []ListOp) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Op != b[i].Op || a[i].Key != b[i].Key || a[i].Index != b[i].Index || !Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

// IsFlushed reports whether v is a flushed wrapper.
func IsFlushed(v Value) bool {
	_, ok := v.(Flushed)
	return ok
}

// IsAbsent reports whether v is Absent (or nil).
func IsAbsent(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Absent)
	return ok
}
