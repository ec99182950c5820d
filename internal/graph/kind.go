package graph

// Kind discriminates node behavior. The engine switches on it when
// processing a message; the hardware backend maps it via HardwareTag.
type Kind int

const (
	// KindProducer emits a fixed value once at construction; never re-fires.
	KindProducer Kind = iota + 1
	// KindWire forwards its single input verbatim to all subscribers.
	KindWire
	// KindRouter demultiplexes an object's fields to per-field subscribers.
	KindRouter
	// KindBus holds a dynamic collection and emits structural deltas.
	KindBus
	// KindCombiner merges labeled event sources into one evolving value
	// (LATEST); its body reads the previous committed value.
	KindCombiner
	// KindRegister is the named accumulator specialization of Combiner
	// (HOLD); same merge/commit cycle, first-class persistent storage.
	KindRegister
	// KindTransformer evaluates a stateless body per upstream firing
	// (THEN), in snapshot mode.
	KindTransformer
	// KindPatternMux pattern-matches upstream values against ordered arms
	// (WHEN in snapshot mode, WHILE in streaming mode).
	KindPatternMux
	// KindSwitchedWire continuously forwards whichever branch the live
	// condition selects (WHILE passthrough).
	KindSwitchedWire
	// KindPad is the boundary node for an externally-bound channel;
	// bidirectional.
	KindPad
)

var kindNames = map[Kind]string{
	KindProducer:     "producer",
	KindWire:         "wire",
	KindRouter:       "router",
	KindBus:          "bus",
	KindCombiner:     "combiner",
	KindRegister:     "register",
	KindTransformer:  "transformer",
	KindPatternMux:   "pattern_mux",
	KindSwitchedWire: "switched_wire",
	KindPad:          "pad",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// KindFromString parses the snapshot/spec spelling of a kind. Returns
// zero for unknown names.
func KindFromString(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return 0
}

// HardwareTag is the fixed semantic tag the hardware backend maps a node
// kind onto. The engine only preserves it; synthesis happens downstream.
type HardwareTag string

const (
	HWTiedSignal     HardwareTag = "tied_signal"
	HWNamedWire      HardwareTag = "named_wire"
	HWDemultiplexer  HardwareTag = "demultiplexer"
	HWAddressDecoder HardwareTag = "address_decoder"
	HWMultiplexer    HardwareTag = "multiplexer"
	HWFlipFlop       HardwareTag = "flip_flop"
	HWCombinational  HardwareTag = "combinational_logic"
	HWPatternDecoder HardwareTag = "pattern_decoder"
	HWTriStateBuffer HardwareTag = "tri_state_buffer"
	HWIOPort         HardwareTag = "io_port"
)

// HardwareTag returns the synthesis tag for the kind.
func (k Kind) HardwareTag() HardwareTag {
	switch k {
	case KindProducer:
		return HWTiedSignal
	case KindWire:
		return HWNamedWire
	case KindRouter:
		return HWDemultiplexer
	case KindBus:
		return HWAddressDecoder
	case KindCombiner:
		return HWMultiplexer
	case KindRegister:
		return HWFlipFlop
	case KindTransformer:
		return HWCombinational
	case KindPatternMux:
		return HWPatternDecoder
	case KindSwitchedWire:
		return HWTriStateBuffer
	case KindPad:
		return HWIOPort
	default:
		return ""
	}
}

// TimeShifted reports whether the kind's self-reference is the sanctioned
// read-previous/commit-next pattern. Only these kinds may observe their
// own (or each other's) committed value.
func (k Kind) TimeShifted() bool {
	return k == KindCombiner || k == KindRegister
}
