package suggest

// Gesture is a user action that may close the suggestion surface.
type Gesture string

const (
	GesturePointerOutside Gesture = "pointer-outside"
	GestureFocusOutside   Gesture = "focus-outside"
	GestureEscape         Gesture = "escape"
)

// BoundaryType defines what counts as "outside" for a dismissal gesture.
type BoundaryType string

const (
	// BoundaryContainer dismisses on gestures outside the whole input.
	BoundaryContainer BoundaryType = "container"
	// BoundaryToken dismisses on gestures outside the owning token.
	BoundaryToken BoundaryType = "token"
	// BoundaryValueInput dismisses on gestures outside the active value input.
	BoundaryValueInput BoundaryType = "value-input"
)

// Policy decides which gestures close an open suggestion surface of a kind.
type Policy struct {
	Boundary BoundaryType
	// DismissOn is the gesture subset that closes the surface.
	DismissOn map[Gesture]bool
	// RequireExplicitConfirm marks kinds (date/time pickers) that keep their
	// surface open until the user confirms; pointer/focus gestures only
	// dismiss when they land fully outside the owning token.
	RequireExplicitConfirm bool
}

// Allows reports whether the policy closes the surface for the gesture.
// outsideToken reports whether the gesture landed fully outside the token
// that owns the surface.
func (p Policy) Allows(g Gesture, outsideToken bool) bool {
	if !p.DismissOn[g] {
		return false
	}
	if p.RequireExplicitConfirm && g != GestureEscape && !outsideToken {
		return false
	}
	return true
}

// dismissPolicies is the per-kind dispatch table. List kinds close on any
// outside interaction; picker kinds demand explicit confirmation.
var dismissPolicies = map[Kind]Policy{
	KindField: {
		Boundary:  BoundaryContainer,
		DismissOn: map[Gesture]bool{GesturePointerOutside: true, GestureFocusOutside: true, GestureEscape: true},
	},
	KindValue: {
		Boundary:  BoundaryValueInput,
		DismissOn: map[Gesture]bool{GesturePointerOutside: true, GestureFocusOutside: true, GestureEscape: true},
	},
	KindCustom: {
		Boundary:  BoundaryValueInput,
		DismissOn: map[Gesture]bool{GesturePointerOutside: true, GestureFocusOutside: true, GestureEscape: true},
	},
	KindFieldWithCustom: {
		Boundary:  BoundaryContainer,
		DismissOn: map[Gesture]bool{GesturePointerOutside: true, GestureFocusOutside: true, GestureEscape: true},
	},
	KindDate: {
		Boundary:               BoundaryToken,
		DismissOn:              map[Gesture]bool{GesturePointerOutside: true, GestureFocusOutside: true, GestureEscape: true},
		RequireExplicitConfirm: true,
	},
	KindDateTime: {
		Boundary:               BoundaryToken,
		DismissOn:              map[Gesture]bool{GesturePointerOutside: true, GestureFocusOutside: true, GestureEscape: true},
		RequireExplicitConfirm: true,
	},
}

// PolicyFor returns the dismissal policy of a kind. KindNone (or an unknown
// kind) yields a policy that never dismisses.
func PolicyFor(kind Kind) Policy {
	if p, ok := dismissPolicies[kind]; ok {
		return p
	}
	return Policy{}
}

// AllKinds lists every open suggestion kind; tests assert the policy table
// covers each one.
var AllKinds = []Kind{KindField, KindValue, KindCustom, KindFieldWithCustom, KindDate, KindDateTime}
