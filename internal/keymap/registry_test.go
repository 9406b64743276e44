package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handlerReturning(handled bool, log *[]string, tag string) Handler {
	return func(Event) bool {
		*log = append(*log, tag)
		return handled
	}
}

func TestHandlersForKeyPriorityOrder(t *testing.T) {
	r := NewRegistry()
	var log []string

	r.Register("default", []Entry{{Key: "enter", Priority: PriorityDefault, Handler: handlerReturning(false, &log, "default")}})
	r.Register("view", []Entry{{Key: "enter", Priority: PriorityView, Handler: handlerReturning(false, &log, "view")}})
	r.Register("block", []Entry{{Key: "enter", Priority: PriorityBlock, Handler: handlerReturning(false, &log, "block")}})

	got := r.HandlersForKey("enter")
	require.Len(t, got, 3)
	assert.Equal(t, "view", got[0].BlockID)
	assert.Equal(t, "block", got[1].BlockID)
	assert.Equal(t, "default", got[2].BlockID)
}

func TestHandlersForKeyStableTies(t *testing.T) {
	r := NewRegistry()
	r.Register("first", []Entry{{Key: "tab", Priority: PriorityBlock, Handler: func(Event) bool { return false }}})
	r.Register("second", []Entry{{Key: "tab", Priority: PriorityBlock, Handler: func(Event) bool { return false }}})

	got := r.HandlersForKey("tab")
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].BlockID)
	assert.Equal(t, "second", got[1].BlockID)
}

func TestReRegisterReplacesInPlace(t *testing.T) {
	r := NewRegistry()
	var log []string

	r.Register("view", []Entry{{Key: "down", Priority: PriorityBlock, Handler: handlerReturning(true, &log, "view-old")}})
	r.Register("block", []Entry{{Key: "down", Priority: PriorityBlock, Handler: handlerReturning(true, &log, "block")}})

	// Replace view's contribution; it must keep its position ahead of block
	// on the tie-break and only the new closure may run.
	r.Register("view", []Entry{{Key: "down", Priority: PriorityBlock, Handler: handlerReturning(true, &log, "view-new")}})

	got := r.HandlersForKey("down")
	require.Len(t, got, 2)
	assert.Equal(t, "view", got[0].BlockID)

	NewDispatcher(r).Dispatch(Event{Key: "down"})
	assert.Equal(t, []string{"view-new"}, log)
}

func TestReRegisterOnlyAffectsOwnKeys(t *testing.T) {
	r := NewRegistry()
	r.Register("value", []Entry{
		{Key: "left", Priority: PriorityBlock, Handler: func(Event) bool { return true }},
		{Key: "right", Priority: PriorityBlock, Handler: func(Event) bool { return true }},
	})
	r.Register("label", []Entry{{Key: "left", Priority: PriorityBlock, Handler: func(Event) bool { return true }}})

	r.Register("value", []Entry{{Key: "right", Priority: PriorityBlock, Handler: func(Event) bool { return true }}})

	assert.Len(t, r.HandlersForKey("left"), 1, "value's left handler is gone")
	assert.Equal(t, "label", r.HandlersForKey("left")[0].BlockID)
	assert.Len(t, r.HandlersForKey("right"), 1)
}

func TestHandlersForKeyUnknownKeyEmpty(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.HandlersForKey("f13"))
}

func TestDispatchStopsAtFirstHandled(t *testing.T) {
	r := NewRegistry()
	var log []string
	r.Register("view", []Entry{{Key: "esc", Priority: PriorityView, Handler: handlerReturning(false, &log, "view")}})
	r.Register("block", []Entry{{Key: "esc", Priority: PriorityBlock, Handler: handlerReturning(true, &log, "block")}})
	r.Register("default", []Entry{{Key: "esc", Priority: PriorityDefault, Handler: handlerReturning(true, &log, "default")}})

	handled := NewDispatcher(r).Dispatch(Event{Key: "esc"})
	assert.True(t, handled)
	assert.Equal(t, []string{"view", "block"}, log, "default never runs once block handles the key")
}

func TestDispatchUnhandled(t *testing.T) {
	r := NewRegistry()
	var log []string
	r.Register("block", []Entry{{Key: "a", Priority: PriorityBlock, Handler: handlerReturning(false, &log, "block")}})

	assert.False(t, NewDispatcher(r).Dispatch(Event{Key: "a"}))
	assert.False(t, NewDispatcher(r).Dispatch(Event{Key: "b"}))
}

func TestDispatchReentrantRegistration(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r)
	var log []string

	// A handler that re-registers another block mid-dispatch must not corrupt
	// the in-flight walk: queries are snapshots.
	r.Register("view", []Entry{{Key: "enter", Priority: PriorityView, Handler: func(ev Event) bool {
		log = append(log, "view")
		r.Register("block", []Entry{{Key: "enter", Priority: PriorityBlock, Handler: handlerReturning(true, &log, "block-new")}})
		return false
	}}})
	r.Register("block", []Entry{{Key: "enter", Priority: PriorityBlock, Handler: handlerReturning(true, &log, "block-old")}})

	assert.NotPanics(t, func() { d.Dispatch(Event{Key: "enter"}) })
	require.Equal(t, "view", log[0])
	assert.Len(t, log, 2, "exactly one block handler ran after view")
}
