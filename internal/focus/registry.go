// Package focus tracks the focusable sub-elements ("blocks") of one token and
// drives intra-token navigation plus the token's focus lifecycle state machine.
package focus

import "sort"

// Position is the cursor position requested when an element gains focus.
type Position string

const (
	PositionStart Position = "start"
	PositionEnd   Position = "end"
)

// Direction of relative navigation between blocks.
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

// Target of absolute navigation.
type Target string

const (
	TargetFirst Target = "first"
	TargetLast  Target = "last"
)

// Filter restricts which elements a navigation call may land on.
type Filter int

const (
	// FilterAll considers every registered element.
	FilterAll Filter = iota
	// FilterEntry considers only entry-focusable elements. Used when a
	// boundary-crossing key (Backspace/Delete at a token edge) enters the
	// token, so focus never lands on blocks like a delete button.
	FilterEntry
)

// ViewHandle is the opaque link between a registered element and its rendered
// view. Order gives the element's current position in view order; Attached
// reports whether the view is still mounted. Elements whose handle is
// detached are excluded from queries but stay registered, tolerating
// transient remounts.
type ViewHandle interface {
	Order() int
	Attached() bool
}

// Element is one focusable block of a token.
type Element struct {
	ID             string
	View           ViewHandle
	Focus          func(Position)
	EntryFocusable bool
}

// Options tunes a navigation call.
type Options struct {
	Filter Filter
	// Position overrides the default cursor position (start moving forward,
	// end moving backward).
	Position Position
}

// Registry holds the focusable elements of a single token. One registry per
// token instance; never shared across editing sessions. All query methods
// work on a snapshot computed per call so reentrant dispatch is safe.
type Registry struct {
	elements map[string]*entry
	seq      int

	// OnExitLeft/OnExitRight fire when relative navigation runs past the
	// corresponding boundary instead of wrapping.
	OnExitLeft  func()
	OnExitRight func()
}

type entry struct {
	el  Element
	seq int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{elements: make(map[string]*entry)}
}

// Register adds el and returns a func that removes it again. Registering an
// ID twice replaces the earlier element but keeps its registration order.
func (r *Registry) Register(el Element) func() {
	if prior, ok := r.elements[el.ID]; ok {
		prior.el = el
		id := el.ID
		return func() { delete(r.elements, id) }
	}
	r.seq++
	r.elements[el.ID] = &entry{el: el, seq: r.seq}
	id := el.ID
	return func() { delete(r.elements, id) }
}

// Elements returns the currently-registered, currently-attached elements
// sorted by view order. The slice is a fresh snapshot on every call; blocks
// may mount in any order, so registration order is only a tie-breaker.
func (r *Registry) Elements() []Element {
	entries := make([]*entry, 0, len(r.elements))
	for _, e := range r.elements {
		if e.el.View == nil || !e.el.View.Attached() {
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		oi, oj := entries[i].el.View.Order(), entries[j].el.View.Order()
		if oi != oj {
			return oi < oj
		}
		return entries[i].seq < entries[j].seq
	})
	out := make([]Element, len(entries))
	for i, e := range entries {
		out[i] = e.el
	}
	return out
}

// NavigateAbsolute focuses the first or last element matching opts.Filter.
// With no matching element it is a silent no-op.
func (r *Registry) NavigateAbsolute(target Target, opts Options) {
	els := r.filtered(opts.Filter)
	if len(els) == 0 {
		return
	}
	var el Element
	var pos Position
	if target == TargetFirst {
		el, pos = els[0], PositionStart
	} else {
		el, pos = els[len(els)-1], PositionEnd
	}
	if opts.Position != "" {
		pos = opts.Position
	}
	focusElement(el, pos)
}

// NavigateRelative moves focus from fromID one step in dir, skipping elements
// excluded by opts.Filter. Running past a boundary invokes OnExitLeft or
// OnExitRight exactly once instead of wrapping. Unknown fromID or an empty
// registry is a silent no-op.
func (r *Registry) NavigateRelative(fromID string, dir Direction, opts Options) {
	els := r.filtered(FilterAll)
	idx := indexOf(els, fromID)
	if idx < 0 {
		return
	}
	step := 1
	pos := PositionStart
	if dir == DirectionPrev {
		step = -1
		pos = PositionEnd
	}
	if opts.Position != "" {
		pos = opts.Position
	}
	for i := idx + step; i >= 0 && i < len(els); i += step {
		if opts.Filter == FilterEntry && !els[i].EntryFocusable {
			continue
		}
		focusElement(els[i], pos)
		return
	}
	if dir == DirectionNext {
		if r.OnExitRight != nil {
			r.OnExitRight()
		}
	} else if r.OnExitLeft != nil {
		r.OnExitLeft()
	}
}

// FocusByID focuses the element with the given id. Returns false when the id
// is unknown or its view handle is detached.
func (r *Registry) FocusByID(id string, pos Position) bool {
	e, ok := r.elements[id]
	if !ok || e.el.View == nil || !e.el.View.Attached() {
		return false
	}
	if pos == "" {
		pos = PositionStart
	}
	focusElement(e.el, pos)
	return true
}

func (r *Registry) filtered(f Filter) []Element {
	els := r.Elements()
	if f == FilterAll {
		return els
	}
	out := els[:0:0]
	for _, el := range els {
		if el.EntryFocusable {
			out = append(out, el)
		}
	}
	return out
}

func indexOf(els []Element, id string) int {
	for i, el := range els {
		if el.ID == id {
			return i
		}
	}
	return -1
}

func focusElement(el Element, pos Position) {
	if el.Focus != nil {
		el.Focus(pos)
	}
}
