package payload

import (
	"errors"
	"fmt"
)

// OpKind discriminates list delta operations.
type OpKind string

const (
	// OpInsert inserts a new element at Index with identity Key.
	OpInsert OpKind = "insert"
	// OpRemove removes the element with identity Key.
	OpRemove OpKind = "remove"
	// OpReplace replaces the value of the element with identity Key.
	OpReplace OpKind = "replace"
)

// ListOp is one structural change. Remove and replace address elements by
// identity key, never by position; Index is only consulted for inserts.
type ListOp struct {
	Op    OpKind
	Key   string
	Index int
	Value Value
}

// ListDelta is an incremental change to a list, valid only against the
// exact base version it was computed from.
type ListDelta struct {
	Base int64
	Next int64
	Ops  []ListOp
}

func (ListDelta) value() {}

// ObjectDelta replaces one field of an object.
type ObjectDelta struct {
	Base  int64
	Next  int64
	Field string
	Value Value
}

func (ObjectDelta) value() {}

// VersionGapError reports a delta that does not chain onto the consumer's
// committed version. Recovery is always a full-value resync, never a
// partial apply.
type VersionGapError struct {
	Have int64
	Base int64
}

func (e *VersionGapError) Error() string {
	return fmt.Sprintf("delta version gap: have version %d, delta applies to %d", e.Have, e.Base)
}

// IsVersionGap reports whether err is (or wraps) a VersionGapError.
func IsVersionGap(err error) bool {
	var ve *VersionGapError
	return errors.As(err, &ve)
}

// ApplyList applies d to cur, which must be at version have. Returns the
// new list contents. The input list is not mutated.
func ApplyList(cur List, have int64, d ListDelta) (List, error) {
	if d.Base != have {
		return nil, &VersionGapError{Have: have, Base: d.Base}
	}

	out := cur.Clone()
	for i, op := range d.Ops {
		switch op.Op {
		case OpInsert:
			if out.Find(op.Key) >= 0 {
				return nil, fmt.Errorf("delta op %d: insert duplicate key %q", i, op.Key)
			}
			idx := op.Index
			if idx < 0 || idx > len(out) {
				idx = len(out)
			}
			out = append(out[:idx], append(List{{Key: op.Key, Value: op.Value}}, out[idx:]...)...)

		case OpRemove:
			idx := out.Find(op.Key)
			if idx < 0 {
				return nil, fmt.Errorf("delta op %d: remove unknown key %q", i, op.Key)
			}
			out = append(out[:idx], out[idx+1:]...)

		case OpReplace:
			idx := out.Find(op.Key)
			if idx < 0 {
				return nil, fmt.Errorf("delta op %d: replace unknown key %q", i, op.Key)
			}
			out[idx] = Element{Key: op.Key, Value: op.Value}

		default:
			return nil, fmt.Errorf("delta op %d: unknown op kind %q", i, op.Op)
		}
	}
	return out, nil
}

// ApplyObject applies d to cur at version have. Returns the new object.
func ApplyObject(cur Object, have int64, d ObjectDelta) (Object, error) {
	if d.Base != have {
		return nil, &VersionGapError{Have: have, Base: d.Base}
	}
	out := make(Object, len(cur)+1)
	for k, v := range cur {
		out[k] = v
	}
	out[d.Field] = d.Value
	return out, nil
}
