package notify

import "sync"

// Queue is a two-level ordered map of pending notices: source (the
// subsystem that raised it) to slot (the specific event) to a notice.
// Producers are open-ended, so both levels preserve insertion order for a
// stable drain sequence.
//
// Push may be called from any goroutine; Drain follows a snapshot-then-clear
// protocol: it removes exactly the leaves present when it runs, so a
// concurrent producer writing into the same slot is never lost — its notice
// is either part of this drain or survives for the next one.
type Queue struct {
	mu      sync.Mutex
	order   []string
	sources map[string]*slotMap
}

type slotMap struct {
	order   []string
	notices map[string]Notice
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{sources: make(map[string]*slotMap)}
}

// Push queues n under (source, slot), replacing any notice already pending
// in that slot.
func (q *Queue) Push(source, slot string, n Notice) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sm, ok := q.sources[source]
	if !ok {
		sm = &slotMap{notices: make(map[string]Notice)}
		q.sources[source] = sm
		q.order = append(q.order, source)
	}
	if _, ok := sm.notices[slot]; !ok {
		sm.order = append(sm.order, slot)
	}
	sm.notices[slot] = n
}

// Drain atomically collects every pending notice and clears them. The
// returned order is source insertion order, then slot insertion order
// within each source; it carries no meaning beyond display. An empty queue
// drains to nil.
func (q *Queue) Drain() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Entry
	for _, source := range q.order {
		sm := q.sources[source]
		for _, slot := range sm.order {
			n, ok := sm.notices[slot]
			if !ok {
				continue
			}
			out = append(out, Entry{Source: source, Slot: slot, Notice: n})
		}
	}
	q.order = nil
	q.sources = make(map[string]*slotMap)
	return out
}

// Peek returns the pending notices without clearing them.
func (q *Queue) Peek() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Entry
	for _, source := range q.order {
		sm := q.sources[source]
		for _, slot := range sm.order {
			n, ok := sm.notices[slot]
			if !ok {
				continue
			}
			out = append(out, Entry{Source: source, Slot: slot, Notice: n})
		}
	}
	return out
}

// Len returns the number of pending notices.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, sm := range q.sources {
		n += len(sm.notices)
	}
	return n
}
