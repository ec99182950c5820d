package arena

// inlineHandles is the inline capacity of a HandleList. Most nodes have a
// handful of inputs and subscribers; collection elements with large
// fan-out spill into the extension slice.
const inlineHandles = 4

// HandleList is a bounded-inline list of handles. The first few entries
// live inline in the node record; overflow is held in a separately
// allocated extension. Order is insertion order and is preserved by
// Remove, which keeps fan-out deterministic.
type HandleList struct {
	inline [inlineHandles]Handle
	n      int
	ext    []Handle
}

// Len returns the number of handles in the list.
func (l *HandleList) Len() int {
	return l.n
}

// At returns the handle at position i. Panics if i is out of range, same
// as a slice index.
func (l *HandleList) At(i int) Handle {
	if i < 0 || i >= l.n {
		panic("arena: HandleList index out of range")
	}
	if i < inlineHandles {
		return l.inline[i]
	}
	return l.ext[i-inlineHandles]
}

// Append adds h at the end of the list.
func (l *HandleList) Append(h Handle) {
	if l.n < inlineHandles {
		l.inline[l.n] = h
	} else {
		l.ext = append(l.ext, h)
	}
	l.n++
}

// Contains reports whether h is in the list.
func (l *HandleList) Contains(h Handle) bool {
	for i := 0; i < l.n; i++ {
		if l.At(i) == h {
			return true
		}
	}
	return false
}

// Remove deletes the first occurrence of h, shifting later entries down.
// Returns false if h is not present.
func (l *HandleList) Remove(h Handle) bool {
	for i := 0; i < l.n; i++ {
		if l.At(i) != h {
			continue
		}
		for j := i; j < l.n-1; j++ {
			l.set(j, l.At(j+1))
		}
		l.n--
		if len(l.ext) > 0 {
			l.ext = l.ext[:len(l.ext)-1]
		}
		return true
	}
	return false
}

func (l *HandleList) set(i int, h Handle) {
	if i < inlineHandles {
		l.inline[i] = h
	} else {
		l.ext[i-inlineHandles] = h
	}
}

// All returns the handles as a fresh slice in list order.
func (l *HandleList) All() []Handle {
	out := make([]Handle, l.n)
	for i := 0; i < l.n; i++ {
		out[i] = l.At(i)
	}
	return out
}
