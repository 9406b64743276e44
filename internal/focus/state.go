package focus

// FocusType names what a pending entry should focus once the token's view is
// ready to receive it.
type FocusType string

const (
	// FocusFirst targets the first element regardless of entry eligibility.
	FocusFirst FocusType = "first"
	// FocusLast targets the last element regardless of entry eligibility.
	FocusLast FocusType = "last"
	// FocusEntryFirst targets the first entry-focusable element.
	FocusEntryFirst FocusType = "entry-first"
	// FocusEntryLast targets the last entry-focusable element.
	FocusEntryLast FocusType = "entry-last"
)

// EntryDirection records which side the user entered the token from.
type EntryDirection string

const (
	EntryFromLeft  EntryDirection = "from-left"
	EntryFromRight EntryDirection = "from-right"
)

// EntryPolicy selects which elements a keyboard entry may land on.
// PolicyEntry is used for boundary-crossing keys (Backspace/Delete at a token
// edge) so focus never lands on blocks marked non-entry-focusable; PolicyAll
// is used for explicit arrow traversal, which must reach every block.
type EntryPolicy string

const (
	PolicyEntry EntryPolicy = "entry"
	PolicyAll   EntryPolicy = "all"
)

// ExitDirection records which side focus leaves the token towards.
type ExitDirection string

const (
	ExitLeft  ExitDirection = "left"
	ExitRight ExitDirection = "right"
)

// Entry describes how focus arrived at the token: either a keyboard entry
// with a direction and policy, or a direct pointer entry.
type Entry struct {
	Pointer   bool
	Direction EntryDirection
	Policy    EntryPolicy
}

// StateKind tags the variants of State.
type StateKind string

const (
	StateInactive     StateKind = "inactive"
	StatePendingEntry StateKind = "pending-entry"
	StateActive       StateKind = "active"
	StateExiting      StateKind = "exiting"
)

// State is one token's focus lifecycle state. Exactly one token instance owns
// one State value at a time; values are immutable and transitions are pure.
type State struct {
	Kind StateKind

	// pending-entry fields
	FocusType      FocusType
	CursorPosition Position

	// pending-entry and active
	EntryDirection EntryDirection

	// active
	FocusID string

	// exiting
	ExitDirection ExitDirection
}

// Inactive is the zero starting state.
func Inactive() State { return State{Kind: StateInactive} }

// Action drives Reduce. The concrete types below are the only actions.
type Action interface{ isFocusAction() }

// PluginFocusGained reports that the host surface handed focus to the token.
type PluginFocusGained struct{ Entry Entry }

// PendingFocusExecuted reports that the pending entry was realized and the
// given element now holds focus.
type PendingFocusExecuted struct{ FocusID string }

// ChildFocused reports that a block inside the token received focus directly.
type ChildFocused struct{ ID string }

// PluginFocusLost reports that the host surface took focus away.
type PluginFocusLost struct{}

// ExitRequested asks to leave the token towards a direction.
type ExitRequested struct{ Direction ExitDirection }

// ExitCompleted reports that the host surface finished moving focus out.
type ExitCompleted struct{}

// EditorDisabled forces the token inactive, pre-empting any in-progress
// interaction. The only transition accepted from every state.
type EditorDisabled struct{}

func (PluginFocusGained) isFocusAction()    {}
func (PendingFocusExecuted) isFocusAction() {}
func (ChildFocused) isFocusAction()         {}
func (PluginFocusLost) isFocusAction()      {}
func (ExitRequested) isFocusAction()        {}
func (ExitCompleted) isFocusAction()        {}
func (EditorDisabled) isFocusAction()       {}

// Reduce applies action to state. Invalid transitions return state unchanged;
// this is deliberate defense against event ordering races, never an error.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case EditorDisabled:
		return Inactive()

	case PluginFocusGained:
		// Only accepted from inactive; duplicate gain events are idempotent.
		if state.Kind != StateInactive {
			return state
		}
		ft, pos, dir := classifyEntry(a.Entry)
		return State{
			Kind:           StatePendingEntry,
			FocusType:      ft,
			CursorPosition: pos,
			EntryDirection: dir,
		}

	case PendingFocusExecuted:
		if state.Kind != StatePendingEntry {
			return state
		}
		return State{Kind: StateActive, FocusID: a.FocusID, EntryDirection: state.EntryDirection}

	case ChildFocused:
		if state.Kind != StateActive && state.Kind != StatePendingEntry {
			return state
		}
		return State{Kind: StateActive, FocusID: a.ID, EntryDirection: state.EntryDirection}

	case PluginFocusLost:
		if state.Kind != StateActive && state.Kind != StatePendingEntry {
			return state
		}
		return Inactive()

	case ExitRequested:
		if state.Kind != StateActive && state.Kind != StatePendingEntry {
			return state
		}
		return State{Kind: StateExiting, ExitDirection: a.Direction}

	case ExitCompleted:
		if state.Kind != StateExiting {
			return state
		}
		return Inactive()
	}
	return state
}

// classifyEntry maps an entry event to the focus target it implies.
// Pointer entry targets the first entry-focusable element counted from the
// end of the token, cursor at end (a click drops the user into the trailing
// value input).
func classifyEntry(e Entry) (FocusType, Position, EntryDirection) {
	if e.Pointer {
		return FocusEntryLast, PositionEnd, EntryFromRight
	}
	entering := e.Policy != PolicyAll
	if e.Direction == EntryFromRight {
		if entering {
			return FocusEntryLast, PositionEnd, EntryFromRight
		}
		return FocusLast, PositionEnd, EntryFromRight
	}
	if entering {
		return FocusEntryFirst, PositionStart, EntryFromLeft
	}
	return FocusFirst, PositionStart, EntryFromLeft
}

// IsFocused reports whether the token currently holds or is about to hold focus.
func (s State) IsFocused() bool {
	return s.Kind == StatePendingEntry || s.Kind == StateActive
}

// CurrentFocusID returns the focused element id while active.
func (s State) CurrentFocusID() (string, bool) {
	if s.Kind != StateActive {
		return "", false
	}
	return s.FocusID, true
}

// GetEntryDirection returns the side focus entered from, while focused.
func (s State) GetEntryDirection() (EntryDirection, bool) {
	if !s.IsFocused() {
		return "", false
	}
	return s.EntryDirection, true
}

// PendingFocus returns what to focus once the pending entry is realized.
func (s State) PendingFocus() (FocusType, Position, bool) {
	if s.Kind != StatePendingEntry {
		return "", "", false
	}
	return s.FocusType, s.CursorPosition, true
}

// GetExitDirection returns the direction of an in-progress exit.
func (s State) GetExitDirection() (ExitDirection, bool) {
	if s.Kind != StateExiting {
		return "", false
	}
	return s.ExitDirection, true
}

// pendingFocusDispatch maps every FocusType to its registry call. A fixed
// table rather than a branch chain so the exhaustiveness test can range over
// AllFocusTypes and fail when a value has no entry.
var pendingFocusDispatch = map[FocusType]func(r *Registry, pos Position){
	FocusFirst: func(r *Registry, pos Position) {
		r.NavigateAbsolute(TargetFirst, Options{Filter: FilterAll, Position: pos})
	},
	FocusLast: func(r *Registry, pos Position) {
		r.NavigateAbsolute(TargetLast, Options{Filter: FilterAll, Position: pos})
	},
	FocusEntryFirst: func(r *Registry, pos Position) {
		r.NavigateAbsolute(TargetFirst, Options{Filter: FilterEntry, Position: pos})
	},
	FocusEntryLast: func(r *Registry, pos Position) {
		r.NavigateAbsolute(TargetLast, Options{Filter: FilterEntry, Position: pos})
	},
}

// AllFocusTypes lists every FocusType value; tests assert the dispatch table
// covers each one.
var AllFocusTypes = []FocusType{FocusFirst, FocusLast, FocusEntryFirst, FocusEntryLast}

// ExecutePendingFocus realizes a pending entry against the registry. It is a
// no-op unless the state is pending-entry.
func ExecutePendingFocus(s State, r *Registry) {
	ft, pos, ok := s.PendingFocus()
	if !ok {
		return
	}
	if run, ok := pendingFocusDispatch[ft]; ok {
		run(r, pos)
	}
}
