// Package suggest manages the lifecycle of one autocomplete session:
// debounced source invocation, stale-response rejection by generation,
// timeout, pagination, merge of field-derived and custom suggestion lists,
// and per-kind dismissal policy.
package suggest

import "context"

// Kind is the category of suggestion content currently shown. Exactly one
// session (and so one kind) is open at a time per editing surface.
type Kind string

const (
	KindNone            Kind = "none"
	KindField           Kind = "field"
	KindValue           Kind = "value"
	KindCustom          Kind = "custom"
	KindFieldWithCustom Kind = "fieldWithCustom"
	KindDate            Kind = "date"
	KindDateTime        Kind = "datetime"
)

// Item is one suggestion row.
type Item struct {
	// Text is inserted when the item is accepted.
	Text string
	// Label is the display text; empty falls back to Text.
	Label string
	// Detail is a secondary hint (operator list, value type).
	Detail string
	Icon   string
}

// DisplayLabel returns the text shown in the list.
func (it Item) DisplayLabel() string {
	if it.Label != "" {
		return it.Label
	}
	return it.Text
}

// Request is what a Source receives.
type Request struct {
	Query    string
	FieldKey string
	Kind     Kind
	Offset   int
	Limit    int
}

// Result is what a Source returns. HasMore enables pagination.
type Result struct {
	Items   []Item
	HasMore bool
}

// Source supplies suggestions. Implementations may be synchronous or hit a
// network; they may ignore ctx. The orchestrator never relies on real
// cancellation, it drops stale responses instead.
type Source interface {
	Suggest(ctx context.Context, req Request) (Result, error)
	LoadMore(ctx context.Context, req Request) (Result, error)
}

// SourceFuncs adapts plain functions to Source. LoadMoreFn may be nil when
// the source never paginates.
type SourceFuncs struct {
	SuggestFn  func(ctx context.Context, req Request) (Result, error)
	LoadMoreFn func(ctx context.Context, req Request) (Result, error)
}

func (s SourceFuncs) Suggest(ctx context.Context, req Request) (Result, error) {
	return s.SuggestFn(ctx, req)
}

func (s SourceFuncs) LoadMore(ctx context.Context, req Request) (Result, error) {
	if s.LoadMoreFn == nil {
		return Result{}, nil
	}
	return s.LoadMoreFn(ctx, req)
}

// ListID names the two independently paginated lists of a session.
type ListID string

const (
	ListPrimary ListID = "primary"
	ListCustom  ListID = "custom"
)

// ListState is the pagination state of one list.
type ListState struct {
	Items   []Item
	Offset  int
	HasMore bool
	Loading bool
}

// State is the externally visible snapshot of the session.
type State struct {
	Kind        Kind
	Query       string
	FieldKey    string
	ActiveIndex int
	Primary     ListState
	Custom      ListState
	// DateValue carries the picker's pending value for date/datetime kinds.
	DateValue string
}

// IsOpen reports whether a suggestion surface is showing.
func (s State) IsOpen() bool { return s.Kind != KindNone }

// DisplayMode governs merge order when both field-derived and custom
// suggestions exist.
type DisplayMode string

const (
	// DisplayReplace shows only the custom list.
	DisplayReplace DisplayMode = "replace"
	// DisplayPrepend shows custom items ahead of field-derived ones.
	DisplayPrepend DisplayMode = "prepend"
	// DisplayAppend shows custom items after field-derived ones.
	DisplayAppend DisplayMode = "append"
)

// Merged returns the display list for mode. Each source list keeps its own
// pagination state; only the presentation interleaves.
func (s State) Merged(mode DisplayMode) []Item {
	if len(s.Custom.Items) == 0 {
		return s.Primary.Items
	}
	switch mode {
	case DisplayReplace:
		return s.Custom.Items
	case DisplayPrepend:
		return append(append([]Item{}, s.Custom.Items...), s.Primary.Items...)
	default: // DisplayAppend
		return append(append([]Item{}, s.Primary.Items...), s.Custom.Items...)
	}
}

// ListAt maps an index in the merged display list back to the owning list
// and the index within it. The offset arithmetic depends on the display
// mode: under prepend the custom list occupies the head, under append the
// tail.
func (s State) ListAt(mode DisplayMode, index int) (ListID, int) {
	if len(s.Custom.Items) == 0 {
		return ListPrimary, index
	}
	switch mode {
	case DisplayReplace:
		return ListCustom, index
	case DisplayPrepend:
		if index < len(s.Custom.Items) {
			return ListCustom, index
		}
		return ListPrimary, index - len(s.Custom.Items)
	default: // DisplayAppend
		if index < len(s.Primary.Items) {
			return ListPrimary, index
		}
		return ListCustom, index - len(s.Primary.Items)
	}
}
