package engine

import (
	"sort"

	"github.com/BoonLang/boon-sub001/internal/payload"
)

// timerWheel holds pending logical timers. Timers fire in (due tick,
// registration order); there is no wall-clock anywhere, which is what
// lets a test harness or a hardware backend drive time explicitly.
//
// Long-running external work is modeled with timers: the request fires
// now, the response re-enters the loop as a later tick's event.
type timerWheel struct {
	entries []timerEntry
	seq     int
}

type timerEntry struct {
	due     int64
	seq     int
	pad     string
	payload payload.Value
	token   string
}

func newTimerWheel() *timerWheel {
	return &timerWheel{}
}

// schedule registers a payload to arrive at pad when the clock reaches
// due.
func (w *timerWheel) schedule(due int64, pad string, p payload.Value, token string) {
	w.entries = append(w.entries, timerEntry{due: due, seq: w.seq, pad: pad, payload: p, token: token})
	w.seq++
	sort.SliceStable(w.entries, func(i, j int) bool {
		if w.entries[i].due != w.entries[j].due {
			return w.entries[i].due < w.entries[j].due
		}
		return w.entries[i].seq < w.entries[j].seq
	})
}

// drainDue removes and returns all timers due at or before tick.
func (w *timerWheel) drainDue(tick int64) []ExternalEvent {
	var out []ExternalEvent
	i := 0
	for ; i < len(w.entries) && w.entries[i].due <= tick; i++ {
		e := w.entries[i]
		out = append(out, ExternalEvent{Pad: e.pad, Payload: e.payload, Token: e.token})
	}
	w.entries = w.entries[i:]
	return out
}

// pending returns the number of scheduled timers.
func (w *timerWheel) pending() int {
	return len(w.entries)
}
