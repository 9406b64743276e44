// Package keymap resolves which handler reacts to a keypress. Blocks register
// prioritized handlers per key name; the dispatcher walks them in order and
// stops at the first one that reports the event handled.
package keymap

import "sort"

// Priority bands. View-level handlers (suggestion-list navigation) win over
// block-local editing, which wins over defaults.
const (
	PriorityView    = 20
	PriorityBlock   = 10
	PriorityDefault = 0
)

// Event is one keypress as seen by handlers. Key uses the normalized names
// the front-end produces ("enter", "esc", "left", "ctrl+u", single runes).
type Event struct {
	Key string
}

// Handler reacts to an event. Returning true stops dispatch.
type Handler func(Event) bool

// Entry is one block's handler for one key.
type Entry struct {
	BlockID  string
	Key      string
	Priority int
	Handler  Handler
}

type block struct {
	entries []Entry
	seq     int
}

// Registry holds the keyboard handlers of one editing session. It only
// supplies ordering; walking the list is the Dispatcher's job. Explicit
// instance per session, never process-wide.
type Registry struct {
	blocks map[string]*block
	seq    int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{blocks: make(map[string]*block)}
}

// Register installs entries for blockID and returns a func that removes that
// block's contribution. Registering the same blockID again atomically
// replaces only its entries; the block keeps its original ordering position
// for priority ties and other blocks are untouched.
func (r *Registry) Register(blockID string, entries []Entry) func() {
	copied := make([]Entry, len(entries))
	copy(copied, entries)
	for i := range copied {
		copied[i].BlockID = blockID
	}
	if prior, ok := r.blocks[blockID]; ok {
		prior.entries = copied
	} else {
		r.seq++
		r.blocks[blockID] = &block{entries: copied, seq: r.seq}
	}
	return func() { delete(r.blocks, blockID) }
}

// HandlersForKey returns the handlers registered for key sorted by descending
// priority, ties broken by block registration order then in-block order. The
// result is a fresh snapshot per call, so a handler that mutates the registry
// mid-dispatch never invalidates an in-flight walk. An unknown key yields an
// empty list.
func (r *Registry) HandlersForKey(key string) []Entry {
	type candidate struct {
		entry    Entry
		blockSeq int
		inBlock  int
	}
	var cands []candidate
	for _, b := range r.blocks {
		for i, e := range b.entries {
			if e.Key == key {
				cands = append(cands, candidate{entry: e, blockSeq: b.seq, inBlock: i})
			}
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].entry.Priority != cands[j].entry.Priority {
			return cands[i].entry.Priority > cands[j].entry.Priority
		}
		if cands[i].blockSeq != cands[j].blockSeq {
			return cands[i].blockSeq < cands[j].blockSeq
		}
		return cands[i].inBlock < cands[j].inBlock
	})
	out := make([]Entry, len(cands))
	for i, c := range cands {
		out[i] = c.entry
	}
	return out
}

// Dispatcher walks a registry's handler ordering for incoming events.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher wraps registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch offers ev to each handler in priority order, stopping at the first
// that returns true. Returns whether anyone handled it.
func (d *Dispatcher) Dispatch(ev Event) bool {
	for _, e := range d.registry.HandlersForKey(ev.Key) {
		if e.Handler == nil {
			continue
		}
		if e.Handler(ev) {
			return true
		}
	}
	return false
}
