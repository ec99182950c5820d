package payload

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyList_Basic(t *testing.T) {
	cur := List{{Key: "a", Value: Int(1)}, {Key: "b", Value: Int(2)}}

	out, err := ApplyList(cur, 5, ListDelta{Base: 5, Next: 6, Ops: []ListOp{
		{Op: OpInsert, Key: "c", Index: 1, Value: Int(3)},
		{Op: OpReplace, Key: "a", Value: Int(10)},
		{Op: OpRemove, Key: "b"},
	}})
	require.NoError(t, err)

	assert.Equal(t, List{{Key: "a", Value: Int(10)}, {Key: "c", Value: Int(3)}}, out)

	// Input untouched.
	assert.Equal(t, Int(1), cur[0].Value)
}

func TestApplyList_VersionGap(t *testing.T) {
	cur := List{{Key: "a", Value: Int(1)}}

	_, err := ApplyList(cur, 7, ListDelta{Base: 5, Next: 6})
	require.Error(t, err)
	assert.True(t, IsVersionGap(err))

	var ve *VersionGapError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, int64(7), ve.Have)
	assert.Equal(t, int64(5), ve.Base)
}

func TestApplyList_UnknownKey(t *testing.T) {
	cur := List{{Key: "a", Value: Int(1)}}

	_, err := ApplyList(cur, 1, ListDelta{Base: 1, Next: 2, Ops: []ListOp{{Op: OpRemove, Key: "nope"}}})
	assert.Error(t, err)
	assert.False(t, IsVersionGap(err), "unknown key is a malformed delta, not a gap")

	_, err = ApplyList(cur, 1, ListDelta{Base: 1, Next: 2, Ops: []ListOp{{Op: OpInsert, Key: "a", Value: Int(2)}}})
	assert.Error(t, err, "duplicate identity insert rejected")
}

func TestApplyList_InsertOutOfRangeAppends(t *testing.T) {
	cur := List{{Key: "a", Value: Int(1)}}

	out, err := ApplyList(cur, 1, ListDelta{Base: 1, Next: 2, Ops: []ListOp{{Op: OpInsert, Key: "z", Index: 99, Value: Int(2)}}})
	require.NoError(t, err)
	assert.Equal(t, "z", out[len(out)-1].Key)
}

func TestApplyObject(t *testing.T) {
	cur := Object{"x": Int(1), "y": Int(2)}

	out, err := ApplyObject(cur, 3, ObjectDelta{Base: 3, Next: 4, Field: "y", Value: Int(20)})
	require.NoError(t, err)
	assert.True(t, Equal(Object{"x": Int(1), "y": Int(20)}, out))
	assert.Equal(t, Int(2), cur["y"], "input untouched")

	_, err = ApplyObject(cur, 9, ObjectDelta{Base: 3, Next: 4, Field: "y", Value: Int(20)})
	assert.True(t, IsVersionGap(err))
}

// TestApplyList_DeltaFullEquivalence drives two consumers through random
// insert/remove/replace sequences. The producer mutates its list directly,
// op by op, with plain slice surgery. The mirror sees only the delta
// stream and materializes it through ApplyList. After every step both must
// agree byte for byte under canonical encoding.
func TestApplyList_DeltaFullEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	apply := func(full List, op ListOp) List {
		switch op.Op {
		case OpInsert:
			i := op.Index
			if i > len(full) {
				i = len(full)
			}
			out := make(List, 0, len(full)+1)
			out = append(out, full[:i]...)
			out = append(out, Element{Key: op.Key, Value: op.Value})
			return append(out, full[i:]...)
		case OpRemove:
			out := make(List, 0, len(full))
			for _, el := range full {
				if el.Key != op.Key {
					out = append(out, el)
				}
			}
			return out
		default:
			out := full.Clone()
			for i, el := range out {
				if el.Key == op.Key {
					out[i].Value = op.Value
				}
			}
			return out
		}
	}

	for trial := 0; trial < 50; trial++ {
		full := List{}
		mirror := List{}
		version := int64(0)
		nextKey := 0

		for step := 0; step < 40; step++ {
			var op ListOp
			switch {
			case len(full) == 0 || rng.Intn(3) == 0:
				op = ListOp{Op: OpInsert, Key: fmt.Sprintf("k%d", nextKey), Index: rng.Intn(len(full) + 1), Value: Int(rng.Int63n(100))}
				nextKey++
			case rng.Intn(2) == 0:
				op = ListOp{Op: OpRemove, Key: full[rng.Intn(len(full))].Key}
			default:
				op = ListOp{Op: OpReplace, Key: full[rng.Intn(len(full))].Key, Value: Int(rng.Int63n(100))}
			}

			full = apply(full, op)

			next, err := ApplyList(mirror, version, ListDelta{Base: version, Next: version + 1, Ops: []ListOp{op}})
			require.NoError(t, err, "trial %d step %d", trial, step)
			mirror = next
			version++

			want, err := MarshalCanonical(full)
			require.NoError(t, err)
			got, err := MarshalCanonical(mirror)
			require.NoError(t, err)
			require.Equal(t, string(want), string(got), "trial %d step %d", trial, step)
		}
	}
}
