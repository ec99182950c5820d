package graph

import (
	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

// Node is the uniform unit of state and behavior. One record shape for
// every kind keeps the arena contiguous and gives the hardware backend a
// flat node table; Kind selects which fields are meaningful.
//
// Nodes are created when the compiler lowers a construct, mutated only by
// the engine during its own tick, and destroyed when the owning scope is
// torn down.
type Node struct {
	Kind Kind
	Name string

	// Version increases monotonically per committed update. Deltas chain
	// on it; a subscriber that detects a gap resyncs with the full value.
	Version int64
	// Dirty marks the node as pending processing in the current tick.
	Dirty bool

	// Inputs are the node's producers in wiring order. Inline capacity
	// with overflow, see arena.HandleList.
	Inputs arena.HandleList

	// Value is the committed value. Absent until the first commit.
	Value payload.Value

	// Pending buffers the value computed by a combiner/register body
	// before it is swapped in. Two-phase commit: the body only ever reads
	// Value (the pre-tick snapshot); the engine moves Pending into Value
	// after the body completes.
	Pending    payload.Value
	HasPending bool

	// Body is the update expression for combiner, register and
	// transformer kinds.
	Body Body `json:"-"`

	// Arms are the ordered variant arms of a pattern mux.
	Arms []Arm

	// Mode is the evaluation mode a pattern mux body runs under:
	// Snapshot for WHEN, Streaming for WHILE.
	Mode Mode

	// Unwrap marks a binding/exit boundary that unwraps flushed values
	// back into ordinary ones.
	Unwrap bool

	// Fired marks a producer that has already emitted its one value.
	Fired bool

	// Elements is the authoritative collection of a bus node.
	Elements payload.List

	// DeltaLog is the bus's bounded window of recent deltas, oldest
	// first. A consumer whose version is inside the window can catch up
	// by replay; outside it the bus re-emits the full value.
	DeltaLog []payload.ListDelta

	// Cond is the last condition value a switched wire received on its
	// first input. It selects which of the remaining inputs forwards.
	Cond payload.Value

	// PadName is the external channel name of a pad node.
	PadName string
}

// CommitPending swaps the buffered value in and bumps the version.
// Returns false if there was nothing pending.
func (n *Node) CommitPending() bool {
	if !n.HasPending {
		return false
	}
	n.Value = n.Pending
	n.Pending = nil
	n.HasPending = false
	n.Version++
	return true
}

// Commit sets the committed value directly and bumps the version.
func (n *Node) Commit(v payload.Value) {
	n.Value = v
	n.Version++
}

// Current returns the committed value, Absent if the node never fired.
func (n *Node) Current() payload.Value {
	if n.Value == nil {
		return payload.Absent{}
	}
	return n.Value
}

// PatternKind discriminates pattern arms.
type PatternKind int

const (
	// PatternAny matches every payload (the wildcard arm).
	PatternAny PatternKind = iota + 1
	// PatternLiteral matches by structural equality with a literal.
	PatternLiteral
	// PatternTag matches a tag payload, or a tagged object's "tag" field.
	PatternTag
)

// Pattern is one arm's match condition.
type Pattern struct {
	Kind    PatternKind
	Literal payload.Value
	Tag     string
}

// Any returns the wildcard pattern.
func Any() Pattern {
	return Pattern{Kind: PatternAny}
}

// Lit returns a literal-equality pattern.
func Lit(v payload.Value) Pattern {
	return Pattern{Kind: PatternLiteral, Literal: v}
}

// ByTag returns a tag-matching pattern.
func ByTag(tag string) Pattern {
	return Pattern{Kind: PatternTag, Tag: tag}
}

// Matches reports whether v satisfies the pattern. Flushed values are
// never matched here; the mux bypasses them before trying arms.
func (p Pattern) Matches(v payload.Value) bool {
	switch p.Kind {
	case PatternAny:
		return true
	case PatternLiteral:
		return payload.Equal(p.Literal, v)
	case PatternTag:
		switch tv := v.(type) {
		case payload.Tag:
			return string(tv) == p.Tag
		case payload.Object:
			t, ok := tv["tag"].(payload.Tag)
			return ok && string(t) == p.Tag
		default:
			return false
		}
	default:
		return false
	}
}

// Arm is one ordered variant arm of a pattern mux: the first arm whose
// pattern matches has its body evaluated as the mux output.
type Arm struct {
	Pattern Pattern
	Body    Body
}
