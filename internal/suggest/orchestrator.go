package suggest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// ErrTimeout is reported through OnError when a source call outlives the
// configured timeout.
var ErrTimeout = errors.New("suggestion source timed out")

// ErrorType tags OnError callbacks.
type ErrorType string

const (
	ErrorSuggest  ErrorType = "suggest"
	ErrorLoadMore ErrorType = "loadMore"
)

// ErrorInfo is the context handed to OnError alongside the error.
type ErrorInfo struct {
	Type  ErrorType
	Query string
}

// Options configures an Orchestrator.
type Options struct {
	// Debounce is the quiescence window after a query-changing keystroke.
	Debounce time.Duration
	// MaxSuggestions caps each list's page size.
	MaxSuggestions int
	// Timeout bounds a single source call.
	Timeout time.Duration
	// DisplayMode governs the merge of field-derived and custom lists.
	DisplayMode DisplayMode
	// OnError is invoked at most once per failed call of the latest
	// generation; stale failures are swallowed like stale results.
	OnError func(error, ErrorInfo)
	// OnUpdate is invoked with a state snapshot after every visible change.
	OnUpdate func(State)
	Logger   logr.Logger
}

const (
	defaultDebounce       = 150 * time.Millisecond
	defaultMaxSuggestions = 5
	defaultTimeout        = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = defaultDebounce
	}
	if o.MaxSuggestions <= 0 {
		o.MaxSuggestions = defaultMaxSuggestions
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.DisplayMode == "" {
		o.DisplayMode = DisplayAppend
	}
	if o.Logger.GetSink() == nil {
		o.Logger = logr.Discard()
	}
	return o
}

// Sources supplies the two suggestion lists. Either may be nil when the
// session never opens a kind that needs it.
type Sources struct {
	Primary Source
	Custom  Source
}

// Orchestrator manages one editing surface's suggestion session. Cancellation
// is cooperative: a superseded request is never aborted, its response is
// dropped by the generation check on arrival. The mutex only guards the
// orchestrator's own state against its timer goroutines; callers are expected
// to drive it from a single logical UI goroutine.
type Orchestrator struct {
	mu         sync.Mutex
	opts       Options
	sources    Sources
	state      State
	generation uint64
	timer      *time.Timer
	dismissed  bool
}

// New builds an orchestrator with closed state.
func New(sources Sources, opts Options) *Orchestrator {
	return &Orchestrator{
		opts:    opts.withDefaults(),
		sources: sources,
		state:   State{Kind: KindNone},
	}
}

// State returns a snapshot of the current session.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// DisplayMode returns the configured merge mode.
func (o *Orchestrator) DisplayMode() DisplayMode { return o.opts.DisplayMode }

// Open starts a new suggestion session, atomically replacing any prior one
// and resetting the dismissal latch. List kinds fire an immediate (not
// debounced) source call for the initial query; picker kinds wait for the
// picker. Open with KindNone closes the session.
func (o *Orchestrator) Open(kind Kind, fieldKey, query string) {
	o.mu.Lock()
	o.stopTimerLocked()
	o.generation++
	o.dismissed = false
	o.state = State{Kind: kind, FieldKey: fieldKey, Query: query}
	snapshot := o.state
	o.mu.Unlock()

	o.notify(snapshot)
	if kind != KindNone && !isPickerKind(kind) {
		o.fire(query)
	}
}

// Close shuts the session unconditionally (explicit confirm, token deleted,
// editor disabled). In-flight requests become stale.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.stopTimerLocked()
	o.generation++
	o.state = State{Kind: KindNone}
	snapshot := o.state
	o.mu.Unlock()
	o.notify(snapshot)
}

// QueryChanged schedules a debounced refresh for the new query. Keystrokes
// inside the debounce window coalesce into a single source call for the
// final query; a still-pending scheduled call is cancelled first.
func (o *Orchestrator) QueryChanged(query string) {
	o.mu.Lock()
	if !o.state.IsOpen() || isPickerKind(o.state.Kind) {
		o.mu.Unlock()
		return
	}
	o.state.Query = query
	o.stopTimerLocked()
	o.timer = time.AfterFunc(o.opts.Debounce, func() { o.fire(query) })
	o.mu.Unlock()
}

// fire issues source calls for the session's kind. Each call is tagged with
// a fresh generation; only responses matching the latest generation are
// accepted.
func (o *Orchestrator) fire(query string) {
	o.mu.Lock()
	if !o.state.IsOpen() {
		o.mu.Unlock()
		return
	}
	o.generation++
	gen := o.generation
	kind := o.state.Kind
	req := Request{
		Query:    query,
		FieldKey: o.state.FieldKey,
		Kind:     kind,
		Limit:    o.opts.MaxSuggestions,
	}
	o.mu.Unlock()

	if src := o.sources.Primary; src != nil && needsPrimary(kind) {
		go o.request(gen, ListPrimary, src, req)
	}
	if src := o.sources.Custom; src != nil && needsCustom(kind) {
		go o.request(gen, ListCustom, src, req)
	}
}

// request races one Suggest call against the timeout. The loser of the race
// is discarded the same way a superseded request is: by the generation check
// in deliver.
func (o *Orchestrator) request(gen uint64, list ListID, src Source, req Request) {
	res, err := o.callWithTimeout(req, func(ctx context.Context) (Result, error) {
		return src.Suggest(ctx, req)
	})
	o.deliver(gen, list, req, res, err)
}

type outcome struct {
	res Result
	err error
}

func (o *Orchestrator) callWithTimeout(req Request, call func(context.Context) (Result, error)) (Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), o.opts.Timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		res, err := call(ctx)
		ch <- outcome{res: res, err: err}
	}()
	select {
	case out := <-ch:
		return out.res, out.err
	case <-ctx.Done():
		return Result{}, ErrTimeout
	}
}

// deliver folds a Suggest response into the session. Stale generations are
// dropped silently, including their errors.
func (o *Orchestrator) deliver(gen uint64, list ListID, req Request, res Result, err error) {
	o.mu.Lock()
	if gen != o.generation || !o.state.IsOpen() {
		o.mu.Unlock()
		o.opts.Logger.V(1).Info("dropped stale suggestion response", "list", string(list), "query", req.Query)
		return
	}
	if err != nil {
		// Fall back to empty rather than stale data; the input stays usable.
		o.setListLocked(list, ListState{})
		o.clampActiveLocked()
		snapshot := o.state
		o.mu.Unlock()
		o.reportError(err, ErrorInfo{Type: ErrorSuggest, Query: req.Query})
		o.notify(snapshot)
		return
	}
	items := res.Items
	hasMore := res.HasMore
	if len(items) > req.Limit {
		items = items[:req.Limit]
		hasMore = true
	}
	o.setListLocked(list, ListState{Items: items, Offset: len(items), HasMore: hasMore})
	o.clampActiveLocked()
	snapshot := o.state
	o.mu.Unlock()
	o.notify(snapshot)
}

// LoadMore extends one list. It only runs when the list reports more data
// and has no request outstanding; a second call while one is in flight is
// ignored, not queued. The two lists paginate independently.
func (o *Orchestrator) LoadMore(list ListID) {
	o.mu.Lock()
	if !o.state.IsOpen() {
		o.mu.Unlock()
		return
	}
	ls := o.listLocked(list)
	if ls == nil || !ls.HasMore || ls.Loading {
		o.mu.Unlock()
		return
	}
	ls.Loading = true
	gen := o.generation
	req := Request{
		Query:    o.state.Query,
		FieldKey: o.state.FieldKey,
		Kind:     o.state.Kind,
		Offset:   ls.Offset,
		Limit:    o.opts.MaxSuggestions,
	}
	src := o.sources.Primary
	if list == ListCustom {
		src = o.sources.Custom
	}
	o.mu.Unlock()

	if src == nil {
		return
	}
	go func() {
		res, err := o.callWithTimeout(req, func(ctx context.Context) (Result, error) {
			return src.LoadMore(ctx, req)
		})
		o.deliverMore(gen, list, req, res, err)
	}()
}

func (o *Orchestrator) deliverMore(gen uint64, list ListID, req Request, res Result, err error) {
	o.mu.Lock()
	if gen != o.generation || !o.state.IsOpen() {
		// A newer query replaced the whole session state, Loading included.
		o.mu.Unlock()
		return
	}
	ls := o.listLocked(list)
	if ls == nil {
		o.mu.Unlock()
		return
	}
	ls.Loading = false
	if err != nil {
		snapshot := o.state
		o.mu.Unlock()
		o.reportError(err, ErrorInfo{Type: ErrorLoadMore, Query: req.Query})
		o.notify(snapshot)
		return
	}
	items := res.Items
	hasMore := res.HasMore
	if len(items) > req.Limit {
		items = items[:req.Limit]
		hasMore = true
	}
	ls.Items = append(ls.Items, items...)
	ls.Offset += len(items)
	ls.HasMore = hasMore
	snapshot := o.state
	o.mu.Unlock()
	o.notify(snapshot)
}

// MoveActive shifts the active index through the merged display list,
// wrapping at both ends.
func (o *Orchestrator) MoveActive(delta int) {
	o.mu.Lock()
	merged := o.state.Merged(o.opts.DisplayMode)
	if len(merged) == 0 {
		o.mu.Unlock()
		return
	}
	idx := (o.state.ActiveIndex + delta) % len(merged)
	if idx < 0 {
		idx += len(merged)
	}
	o.state.ActiveIndex = idx
	snapshot := o.state
	o.mu.Unlock()
	o.notify(snapshot)
}

// ActiveItem returns the currently highlighted item.
func (o *Orchestrator) ActiveItem() (Item, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	merged := o.state.Merged(o.opts.DisplayMode)
	if o.state.ActiveIndex < 0 || o.state.ActiveIndex >= len(merged) {
		return Item{}, false
	}
	return merged[o.state.ActiveIndex], true
}

// Dismiss closes the session if the active kind's policy allows the gesture.
// outsideToken reports whether the gesture landed fully outside the owning
// token. At most one dismissal fires per user gesture even when a pointer
// and a focus event arrive for the same interaction; the latch resets when a
// session reopens. Returns whether the surface was closed.
func (o *Orchestrator) Dismiss(g Gesture, outsideToken bool) bool {
	o.mu.Lock()
	if !o.state.IsOpen() || o.dismissed {
		o.mu.Unlock()
		return false
	}
	if !PolicyFor(o.state.Kind).Allows(g, outsideToken) {
		o.mu.Unlock()
		return false
	}
	o.dismissed = true
	o.stopTimerLocked()
	o.generation++
	o.state = State{Kind: KindNone}
	snapshot := o.state
	o.mu.Unlock()
	o.notify(snapshot)
	return true
}

// SetDateValue stages the picker's pending value for date/datetime kinds.
func (o *Orchestrator) SetDateValue(v string) {
	o.mu.Lock()
	if !isPickerKind(o.state.Kind) {
		o.mu.Unlock()
		return
	}
	o.state.DateValue = v
	snapshot := o.state
	o.mu.Unlock()
	o.notify(snapshot)
}

// Confirm closes a picker session and returns its staged value. Returns
// false when no picker is open.
func (o *Orchestrator) Confirm() (string, bool) {
	o.mu.Lock()
	if !isPickerKind(o.state.Kind) {
		o.mu.Unlock()
		return "", false
	}
	v := o.state.DateValue
	o.stopTimerLocked()
	o.generation++
	o.state = State{Kind: KindNone}
	snapshot := o.state
	o.mu.Unlock()
	o.notify(snapshot)
	return v, true
}

func (o *Orchestrator) stopTimerLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

func (o *Orchestrator) listLocked(list ListID) *ListState {
	switch list {
	case ListPrimary:
		return &o.state.Primary
	case ListCustom:
		return &o.state.Custom
	}
	return nil
}

func (o *Orchestrator) setListLocked(list ListID, ls ListState) {
	if p := o.listLocked(list); p != nil {
		*p = ls
	}
}

func (o *Orchestrator) clampActiveLocked() {
	merged := o.state.Merged(o.opts.DisplayMode)
	if o.state.ActiveIndex >= len(merged) {
		o.state.ActiveIndex = 0
	}
}

func (o *Orchestrator) notify(s State) {
	if o.opts.OnUpdate != nil {
		o.opts.OnUpdate(s)
	}
}

func (o *Orchestrator) reportError(err error, info ErrorInfo) {
	o.opts.Logger.V(1).Info("suggestion source failed", "type", string(info.Type), "query", info.Query, "error", err.Error())
	if o.opts.OnError != nil {
		o.opts.OnError(err, info)
	}
}

func isPickerKind(k Kind) bool { return k == KindDate || k == KindDateTime }

func needsPrimary(k Kind) bool {
	return k == KindField || k == KindValue || k == KindFieldWithCustom
}

// needsCustom includes KindValue so a host-supplied source can merge with
// (or, for fields without static values, stand in for) the field-derived
// value list.
func needsCustom(k Kind) bool {
	return k == KindCustom || k == KindFieldWithCustom || k == KindValue
}
